package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.jacobcolvin.com/struktur/log"
)

// Flags holds CLI flag names for the build command, allowing callers to
// customize flag names while keeping sensible defaults via [NewConfig].
type Flags struct {
	Config    string
	Engine    string
	LogLevel  string
	LogFormat string
	Progress  string
}

// Config holds CLI flag values for the build command.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags].
type Config struct {
	Flags Flags

	ConfigPath string
	Engine     string
	LogLevel   string
	LogFormat  string
	Progress   bool
}

// NewConfig returns a new [Config] with default flag names and values.
func NewConfig() *Config {
	f := Flags{
		Config:    "config",
		Engine:    "engine",
		LogLevel:  "log-level",
		LogFormat: "log-format",
		Progress:  "progress",
	}

	return &Config{Flags: f}
}

// RegisterFlags adds build command flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&c.ConfigPath, c.Flags.Config, "c", "struktur.yaml",
		"path to the build configuration file")
	flags.StringVar(&c.Engine, c.Flags.Engine, "",
		"template engine override (defaults to the config file's own setting)")
	flags.StringVar(&c.LogLevel, c.Flags.LogLevel, string(log.LevelInfo),
		"log level (debug, info, warn, error)")
	flags.StringVar(&c.LogFormat, c.Flags.LogFormat, string(log.FormatText),
		"log format (text, logfmt, json)")
	flags.BoolVar(&c.Progress, c.Flags.Progress, false,
		"show a live progress view while building instead of plain log output")
}

// RegisterCompletions registers shell completions for build command flags
// on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.LogLevel,
		cobra.FixedCompletions(log.GetAllLevelStrings(), cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.LogLevel, err)
	}

	err = cmd.RegisterFlagCompletionFunc(c.Flags.LogFormat,
		cobra.FixedCompletions(log.GetAllFormatStrings(), cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.LogFormat, err)
	}

	noFileComp := func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	err = cmd.RegisterFlagCompletionFunc(c.Flags.Engine, noFileComp)
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Engine, err)
	}

	return nil
}
