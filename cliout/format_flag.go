package cliout

import "github.com/spf13/pflag"

// AddFormatFlag registers the shared --output flag on flags. Parsing
// the flag value switches the process-wide format, so command bodies
// run with the format already applied.
func AddFormatFlag(flags *pflag.FlagSet) {
	flags.Var(&formatValue{}, "output", `output format: "default" or "json"`)
}

// formatValue binds the --output flag to SetFormat.
type formatValue struct {
	value string
}

func (f *formatValue) String() string {
	return f.value
}

func (f *formatValue) Set(value string) error {
	if err := SetFormat(value); err != nil {
		return err
	}
	f.value = value
	return nil
}

func (f *formatValue) Type() string {
	return "string"
}
