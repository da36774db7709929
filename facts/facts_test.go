package facts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

type fakeResult struct {
	out string
	err error
}

// fakeRunner serves canned probe output by command name. Commands not
// in the map behave like missing binaries.
type fakeRunner struct {
	outputs map[string]fakeResult
}

func (f fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	res, ok := f.outputs[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, exec.ErrNotFound)
	}
	return []byte(res.out), res.err
}

func writeFixtures(t *testing.T) (osRelease, customDir string) {
	t.Helper()
	dir := t.TempDir()

	osRelease = filepath.Join(dir, "os-release")
	content := `NAME="Red Hat Enterprise Linux"
VERSION="9.4 (Plow)"
ID="rhel"
VERSION_ID="9.4"
`
	if err := os.WriteFile(osRelease, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	customDir = filepath.Join(dir, "facts.d")
	if err := os.MkdirAll(customDir, 0o755); err != nil {
		t.Fatal(err)
	}
	override := `{"distribution.name": "Custom OS", "datacenter.rack": "r12"}`
	if err := os.WriteFile(filepath.Join(customDir, "site.facts"), []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}

	return osRelease, customDir
}

func kvmRunner() fakeRunner {
	return fakeRunner{outputs: map[string]fakeResult{
		"systemd-detect-virt": {out: "kvm\n"},
	}}
}

func TestCollectorFacts(t *testing.T) {
	osRelease, customDir := writeFixtures(t)
	c := NewCollector(Options{
		OSRelease: osRelease,
		CustomDir: customDir,
		Runner:    kvmRunner(),
	})

	facts := c.Facts(context.Background())

	if got := facts["distribution.version"]; got != "9.4" {
		t.Errorf("distribution.version = %q, want %q", got, "9.4")
	}
	if got := facts["distribution.id"]; got != "Plow" {
		t.Errorf("distribution.id = %q, want %q", got, "Plow")
	}
	// The custom override beats the collected value.
	if got := facts["distribution.name"]; got != "Custom OS" {
		t.Errorf("distribution.name = %q, want %q", got, "Custom OS")
	}
	if got := facts["datacenter.rack"]; got != "r12" {
		t.Errorf("datacenter.rack = %q, want %q", got, "r12")
	}
	if got := facts["virt.is_guest"]; got != "true" {
		t.Errorf("virt.is_guest = %q, want %q", got, "true")
	}
	if got := facts["virt.host_type"]; got != "kvm" {
		t.Errorf("virt.host_type = %q, want %q", got, "kvm")
	}
	if got := facts["uname.sysname"]; got != "Linux" {
		t.Errorf("uname.sysname = %q, want %q", got, "Linux")
	}
	if c.CollectedAt().IsZero() {
		t.Error("CollectedAt() is zero after collection")
	}
}

func TestCollectorCopyOnRead(t *testing.T) {
	osRelease, customDir := writeFixtures(t)
	c := NewCollector(Options{
		OSRelease: osRelease,
		CustomDir: customDir,
		Runner:    kvmRunner(),
		Staleness: time.Hour,
	})

	first := c.Facts(context.Background())
	first["distribution.version"] = "tampered"

	second := c.Facts(context.Background())
	if got := second["distribution.version"]; got != "9.4" {
		t.Errorf("held facts changed through a returned copy: %q", got)
	}
}

func TestCollectorStalenessReuse(t *testing.T) {
	osRelease, customDir := writeFixtures(t)
	c := NewCollector(Options{
		OSRelease: osRelease,
		CustomDir: customDir,
		Runner:    kvmRunner(),
		Staleness: time.Hour,
	})

	ctx := context.Background()
	c.Facts(ctx)
	collectedAt := c.CollectedAt()

	// A new override landing on disk is not seen until the window
	// passes or Update is called.
	extra := `{"late.arrival": "yes"}`
	if err := os.WriteFile(filepath.Join(customDir, "zz.facts"), []byte(extra), 0o644); err != nil {
		t.Fatal(err)
	}

	facts := c.Facts(ctx)
	if _, ok := facts["late.arrival"]; ok {
		t.Error("fresh collection happened inside the staleness window")
	}
	if !c.CollectedAt().Equal(collectedAt) {
		t.Error("CollectedAt() advanced without a collection")
	}

	updated := c.Update(ctx)
	if got := updated["late.arrival"]; got != "yes" {
		t.Errorf("late.arrival = %q after Update, want %q", got, "yes")
	}
	if !c.CollectedAt().After(collectedAt) {
		t.Error("CollectedAt() did not advance after Update")
	}
}

func TestCollectorStalenessExpired(t *testing.T) {
	osRelease, customDir := writeFixtures(t)
	c := NewCollector(Options{
		OSRelease: osRelease,
		CustomDir: customDir,
		Runner:    kvmRunner(),
		Staleness: time.Nanosecond,
	})

	ctx := context.Background()
	c.Facts(ctx)

	extra := `{"late.arrival": "yes"}`
	if err := os.WriteFile(filepath.Join(customDir, "zz.facts"), []byte(extra), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(time.Millisecond)
	facts := c.Facts(ctx)
	if got := facts["late.arrival"]; got != "yes" {
		t.Errorf("late.arrival = %q after window expiry, want %q", got, "yes")
	}
}

func TestCollectorGet(t *testing.T) {
	osRelease, customDir := writeFixtures(t)
	c := NewCollector(Options{
		OSRelease: osRelease,
		CustomDir: customDir,
		Runner:    kvmRunner(),
	})

	value, ok := c.Get(context.Background(), "cpu.cpu(s)")
	if !ok {
		t.Fatal("Get(cpu.cpu(s)) not found")
	}
	count, err := strconv.Atoi(value)
	if err != nil || count < 1 {
		t.Errorf("cpu.cpu(s) = %q, want a positive integer", value)
	}

	if _, ok := c.Get(context.Background(), "no.such.fact"); ok {
		t.Error("Get(no.such.fact) found, want missing")
	}
}

func TestNewCollectorDefaults(t *testing.T) {
	c := NewCollector(Options{})
	if c.staleness != DefaultStaleness {
		t.Errorf("staleness = %v, want %v", c.staleness, DefaultStaleness)
	}
	if c.customDir != DefaultCustomDir {
		t.Errorf("customDir = %q, want %q", c.customDir, DefaultCustomDir)
	}
	if c.osRelease != "/etc/os-release" {
		t.Errorf("osRelease = %q, want %q", c.osRelease, "/etc/os-release")
	}
	if c.runner == nil {
		t.Error("runner = nil, want default")
	}
}
