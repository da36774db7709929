package version

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ZuhairORZaki/subscription-manager/cliout"
	"github.com/ZuhairORZaki/subscription-manager/httpclient"
)

// Server type lines. The unregistered wording matches what every other
// unregistered code path prints.
const (
	ServerTypeRegistered = "Red Hat Subscription Management"
	ServerTypeUnknown    = "This system is currently not registered."
	serverVersionUnknown = "Unknown"
)

// StatusSource asks the entitlement server for its status.
type StatusSource interface {
	GetStatus(ctx context.Context) (*httpclient.ServerStatus, error)
}

// CommandOptions wires the version command to the rest of the client.
type CommandOptions struct {
	// Source asks the server for its version. Nil skips the lookup.
	Source StatusSource

	// Registered reports whether a consumer identity exists.
	Registered func() bool
}

// Report is the version command's payload.
type Report struct {
	ServerType string `json:"serverType"`
	Server     string `json:"server"`
	Client     string `json:"client"`
}

// NewCommand creates the version command. It reports the client build
// and, when the server answers, the entitlement server version.
func NewCommand(info *Info, opts CommandOptions) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display client and subscription server version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if quiet {
				cliout.Plain("%s", info.Version)
				return nil
			}

			report := buildReport(cmd.Context(), info, opts)
			return cliout.Print(report, func() {
				cliout.Label("server type", report.ServerType)
				cliout.Label("subscription management server", report.Server)
				cliout.Label(info.Name, report.Client)
			})
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the client version number")
	cliout.AddFormatFlag(cmd.Flags())
	return cmd
}

func buildReport(ctx context.Context, info *Info, opts CommandOptions) Report {
	report := Report{
		ServerType: ServerTypeUnknown,
		Server:     serverVersionUnknown,
		Client:     info.Version,
	}
	if opts.Registered != nil && opts.Registered() {
		report.ServerType = ServerTypeRegistered
	}
	if opts.Source == nil {
		return report
	}

	status, err := opts.Source.GetStatus(ctx)
	if err != nil || status == nil {
		// An unreachable server is not an error for this command.
		return report
	}
	report.Server = status.Version
	if status.Release != "" {
		report.Server = status.Version + "-" + status.Release
	}
	return report
}
