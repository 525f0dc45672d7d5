package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatnuff/internal/archive"
	"github.com/vovakirdan/chatnuff/internal/config"
	"github.com/vovakirdan/chatnuff/internal/log"
)

// cli holds state shared by subcommands after the root pre-run.
type cli struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    config.Config
	logger *zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "chatnuff",
		Short:         "Chat message archive with spoiler-preserving summaries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "path to config.yaml (default ./config.yaml)")
	flags.StringVar(&c.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	flags.StringVar(&c.logFormat, "log-format", "", "override log format (console, json)")

	root.AddCommand(
		newServeCmd(c),
		newStoreCmd(c),
		newReplayCmd(c),
		newExistsCmd(c),
		newStatusCmd(c),
		newWrapCmd(),
		newUnwrapCmd(),
		newTranscriptCmd(c),
		newSummarizeCmd(c),
	)
	return root
}

func (c *cli) load(cmd *cobra.Command) error {
	bootstrap := log.NewWithWriter(cmd.ErrOrStderr(), "warn", "console")

	cfg, path, err := config.Load(bootstrap, c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}

	c.cfg = cfg
	c.logger = log.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	c.logger.Debug().Str("config", path).Str("backend", cfg.Archive.Backend).Msg("configuration loaded")
	return nil
}

// openArchive connects to the configured archive; the caller closes it.
func (c *cli) openArchive(ctx context.Context) (*archive.Archive, error) {
	a, ok := archive.Connect(ctx, c.cfg.Archive, c.logger)
	if !ok {
		return nil, fmt.Errorf("archive backend %q is unavailable", c.cfg.Archive.Backend)
	}
	return a, nil
}
