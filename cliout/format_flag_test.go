package cliout

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestAddFormatFlag(t *testing.T) {
	capture(t)

	flags := pflag.NewFlagSet("status", pflag.ContinueOnError)
	AddFormatFlag(flags)

	if err := flags.Parse([]string{"--output", "json"}); err != nil {
		t.Fatalf("Parse() unexpected error = %v", err)
	}
	if got := GetFormat(); got != FormatJSON {
		t.Errorf("GetFormat() = %v, want %v", got, FormatJSON)
	}
	if got := flags.Lookup("output").Value.String(); got != "json" {
		t.Errorf("flag value = %q, want %q", got, "json")
	}
}

func TestAddFormatFlagInvalid(t *testing.T) {
	capture(t)

	flags := pflag.NewFlagSet("status", pflag.ContinueOnError)
	flags.SetOutput(new(strings.Builder))
	AddFormatFlag(flags)

	err := flags.Parse([]string{"--output", "yaml"})
	if err == nil {
		t.Fatal("Parse() expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "invalid output format") {
		t.Errorf("Parse() error = %v, want invalid output format", err)
	}
	if got := GetFormat(); got != FormatDefault {
		t.Errorf("GetFormat() = %v after failed parse, want %v", got, FormatDefault)
	}
}
