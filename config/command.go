package config

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/ini.v1"

	"github.com/ZuhairORZaki/subscription-manager/cliout"
)

// NewCommand creates the config command: list, read, write, or remove
// configuration values, or open the file in an editor. With no flags the
// full configuration is listed.
func NewCommand() *cobra.Command {
	var (
		list        bool
		get         string
		assignments []string
		removals    []string
		edit        bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "List, set, or remove the configuration parameters in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Load(Path())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch {
			case edit:
				return cfg.Edit(cmd.Context())
			case get != "":
				value, err := cfg.GetProperty(get)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, value)
			case len(assignments) > 0 || len(removals) > 0:
				reloadLogging := false
				for _, assignment := range assignments {
					key, value, found := strings.Cut(assignment, "=")
					if !found {
						return fmt.Errorf("--set takes section.property=value, got %q", assignment)
					}
					if err := cfg.SetProperty(key, value); err != nil {
						return err
					}
					reloadLogging = reloadLogging || strings.HasPrefix(key, "logging.")
				}
				for _, key := range removals {
					if err := removeProperty(cfg, key, out); err != nil {
						return err
					}
					reloadLogging = reloadLogging || strings.HasPrefix(key, "logging.")
				}
				if reloadLogging {
					cfg.ApplyLogging()
				}
			default:
				renderList(cfg, out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list the configuration for this system")
	cmd.Flags().StringVar(&get, "get", "", "get a configuration value as section.property")
	cmd.Flags().StringArrayVar(&assignments, "set", nil, "set a configuration value as section.property=value")
	cmd.Flags().StringArrayVar(&removals, "remove", nil, "remove a configuration value as section.property")
	cmd.Flags().BoolVar(&edit, "edit", false, "open the configuration file in an editor and reload it")
	cliout.AddFormatFlag(cmd.Flags())
	return cmd
}

func removeProperty(cfg *Config, key string, out io.Writer) error {
	section, property, err := splitPropertyKey(key)
	if err != nil {
		return err
	}
	if !cfg.HasSection(section) {
		return ErrUnknownSection
	}
	if _, err := cfg.Section(section).Delete(property); err != nil {
		return err
	}
	if err := cfg.Persist(); err != nil {
		return err
	}
	fmt.Fprintf(out, "You have removed the value for section %s and name %s.\n", section, property)
	if _, ok := defaultValue(section, strings.ToLower(property)); ok {
		fmt.Fprintf(out, "The default value for %s will now be used.\n", property)
	}
	return nil
}

// renderList prints every section, bracketing values served by a stock
// default rather than the file.
func renderList(cfg *Config, out io.Writer) {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	names := make(map[string]bool)
	for _, name := range cfg.file.SectionStrings() {
		if name != ini.DefaultSection {
			names[name] = true
		}
	}
	for _, name := range defaultSectionNames() {
		names[name] = true
	}
	sections := make([]string, 0, len(names))
	for name := range names {
		sections = append(sections, name)
	}
	sort.Strings(sections)

	for _, section := range sections {
		fmt.Fprintf(out, "[%s]\n", section)
		keys := cfg.keys(section)
		sort.Strings(keys)
		for _, key := range keys {
			value, _ := cfg.lookup(section, key)
			if !cfg.inFile(section, key) {
				value = "[" + value + "]"
			}
			fmt.Fprintf(out, "   %s = %s\n", key, value)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, "[] - Default value in use")
}
