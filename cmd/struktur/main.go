// Command struktur runs a data-driven build: it loads classes, aspects, and
// instances from a YAML build configuration, validates the merged result,
// and renders templates against it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go.jacobcolvin.com/struktur/buildconfig"
	"go.jacobcolvin.com/struktur/log"
	"go.jacobcolvin.com/struktur/orchestrator"
	"go.jacobcolvin.com/struktur/profile"
	"go.jacobcolvin.com/struktur/progress"
	"go.jacobcolvin.com/struktur/version"
)

func main() {
	cfg := NewConfig()
	profileCfg := profile.NewConfig()

	rootCmd := &cobra.Command{
		Use:           "struktur",
		Short:         "struktur is a data-driven build engine",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Load classes, aspects, and instances, validate, and render",
		Long: `build loads classes, aspects, and instances from a YAML build
configuration, validates the merged result, and renders templates against it.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(cfg, profileCfg)
		},
	}

	cfg.RegisterFlags(buildCmd.Flags())
	profileCfg.RegisterFlags(buildCmd.Flags())

	if err := cfg.RegisterCompletions(buildCmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	if err := profileCfg.RegisterCompletions(buildCmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	rootCmd.AddCommand(buildCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(cfg *Config, profileCfg *profile.Config) error {
	buildCfg, err := buildconfig.LoadFile(cfg.ConfigPath)
	if err != nil {
		return err
	}

	if cfg.Engine != "" {
		buildCfg.Engine = cfg.Engine
	}

	profiler := profileCfg.NewProfiler()
	if err := profiler.Start(); err != nil {
		return err
	}

	defer func() {
		if stopErr := profiler.Stop(); stopErr != nil {
			fmt.Fprintf(os.Stderr, "stop profiler: %v\n", stopErr)
		}
	}()

	ctx := context.Background()

	var result *orchestrator.Result
	if cfg.Progress {
		result, err = runWithProgress(ctx, cfg, buildCfg)
	} else {
		result, err = runPlain(ctx, cfg, buildCfg)
	}

	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "build complete: %s (%d/%d instances valid)\n",
		result.BuildDir, result.Validation.Valid, result.Validation.Total)

	return nil
}

// runPlain builds with log output written straight to stderr.
func runPlain(ctx context.Context, cfg *Config, buildCfg *buildconfig.Config) (*orchestrator.Result, error) {
	handler, err := log.NewHandlerFromStrings(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	return orchestrator.Build(ctx, orchestrator.Options{
		Config:  buildCfg,
		Version: version.Version,
		Logger:  slog.New(handler),
	})
}

// runWithProgress builds behind a live Bubble Tea view, feeding it the same
// log records runPlain would have written to stderr.
func runWithProgress(ctx context.Context, cfg *Config, buildCfg *buildconfig.Config) (*orchestrator.Result, error) {
	pub := log.NewPublisher()

	handler, err := log.NewHandlerFromStrings(pub, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	logger := slog.New(handler)

	var result *orchestrator.Result

	runErr := progress.Run(ctx, pub, func(ctx context.Context) error {
		built, buildErr := orchestrator.Build(ctx, orchestrator.Options{
			Config:  buildCfg,
			Version: version.Version,
			Logger:  logger,
		})
		result = built

		return buildErr
	})
	if runErr != nil {
		return nil, runErr
	}

	return result, nil
}
