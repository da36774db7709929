package facts

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/ZuhairORZaki/subscription-manager/cmdutil"
)

// collectVirt fills virt.is_guest and virt.host_type. When no probe can
// answer, is_guest reads "Unknown" rather than guessing.
func collectVirt(ctx context.Context, r cmdutil.Runner, facts map[string]string) {
	hostType, err := detectVirt(ctx, r)
	if err != nil {
		log.Debug("virtualization detection failed", "error", err)
		facts["virt.is_guest"] = "Unknown"
		return
	}

	if hostType == "" {
		facts["virt.is_guest"] = "false"
		facts["virt.host_type"] = "Not Applicable"
		return
	}

	facts["virt.is_guest"] = "true"
	facts["virt.host_type"] = hostType
}

// detectVirt returns the hypervisor name, empty on bare metal. It asks
// systemd-detect-virt first and falls back to virt-what.
func detectVirt(ctx context.Context, r cmdutil.Runner) (string, error) {
	// systemd-detect-virt exits nonzero on bare metal but still prints
	// "none", so the output decides before the error does.
	out, err := r.Output(ctx, "systemd-detect-virt", "--vm")
	name := strings.TrimSpace(string(out))
	if name == "none" {
		return "", nil
	}
	if err == nil && name != "" {
		return name, nil
	}
	if err != nil && !errors.Is(err, exec.ErrNotFound) {
		log.Debug("systemd-detect-virt unusable", "error", err)
	}

	// virt-what prints one hypervisor fact per line and nothing on
	// bare metal.
	lines, err := cmdutil.OutputLines(ctx, r, "virt-what")
	if err != nil {
		return "", err
	}
	return strings.Join(lines, ", "), nil
}
