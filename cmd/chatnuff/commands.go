package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatnuff/internal/app"
	"github.com/vovakirdan/chatnuff/internal/archive"
	"github.com/vovakirdan/chatnuff/internal/digest"
	"github.com/vovakirdan/chatnuff/internal/ingest"
	"github.com/vovakirdan/chatnuff/internal/spoiler"
)

// skipConfig replaces the root pre-run for commands that need no archive.
func skipConfig(*cobra.Command, []string) error { return nil }

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP status and replay server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}

			c.logger.Info().Str("addr", c.cfg.Addr).Msg("starting chatnuff server")
			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited: %w", err)
			}
			c.logger.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	return cmd
}

func newStoreCmd(c *cli) *cobra.Command {
	var (
		ev       ingest.Event
		spoilers []string
	)
	cmd := &cobra.Command{
		Use:   "store TEXT",
		Short: "Archive one message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev.Text = args[0]
			ev.Date = time.Now()
			for _, raw := range spoilers {
				r, err := parseRange(raw)
				if err != nil {
					return err
				}
				ev.Entities = append(ev.Entities, ingest.Entity{Type: ingest.EntitySpoiler, Offset: r.Start, Length: r.Length})
			}

			a, err := c.openArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := ingest.New(a, c.logger).Handle(cmd.Context(), ev)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	f := cmd.Flags()
	f.Int64Var(&ev.ChatID, "chat", 0, "conversation id")
	f.Int64Var(&ev.MessageID, "message-id", 0, "message id")
	f.Int64Var(&ev.From.ID, "from-id", 0, "author id")
	f.StringVar(&ev.From.FirstName, "first-name", "", "author first name")
	f.StringVar(&ev.From.LastName, "last-name", "", "author last name")
	f.StringArrayVar(&spoilers, "spoiler", nil, "spoiler entity as OFFSET:LENGTH in UTF-16 units (repeatable)")
	_ = cmd.MarkFlagRequired("chat")
	return cmd
}

func newReplayCmd(c *cli) *cobra.Command {
	var (
		chatID int64
		n      int
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Print the latest messages of a chat, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.openArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			msgs, err := a.Latest(cmd.Context(), chatID, n)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range archive.Chronological(msgs) {
				fmt.Fprintf(out, "[%s] %s: %s\n", m.CreatedAt, m.OwnerName, m.Content)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&chatID, "chat", 0, "conversation id")
	cmd.Flags().IntVarP(&n, "count", "n", 10, "number of messages")
	_ = cmd.MarkFlagRequired("chat")
	return cmd
}

func newExistsCmd(c *cli) *cobra.Command {
	var chatID int64
	cmd := &cobra.Command{
		Use:   "exists",
		Short: "Report whether a chat has archived messages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.openArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ok, err := a.Exists(cmd.Context(), chatID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
	cmd.Flags().Int64Var(&chatID, "chat", 0, "conversation id")
	_ = cmd.MarkFlagRequired("chat")
	return cmd
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Ping the archive backend and print its details",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.openArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := a.Ping(ctx); err != nil {
				return fmt.Errorf("ping archive: %w", err)
			}
			info, err := a.Describe(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend: %s\nping: ok\n", c.cfg.Archive.Backend)
			keys := lo.Keys(info)
			slices.Sort(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s: %s\n", k, info[k])
			}
			return nil
		},
	}
}

func newWrapCmd() *cobra.Command {
	var ranges []string
	cmd := &cobra.Command{
		Use:               "wrap TEXT",
		Short:             "Mark spoiler ranges inline",
		Args:              cobra.ExactArgs(1),
		PersistentPreRunE: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make([]spoiler.Range, 0, len(ranges))
			for _, raw := range ranges {
				r, err := parseRange(raw)
				if err != nil {
					return err
				}
				parsed = append(parsed, r)
			}
			marked, err := spoiler.Wrap(args[0], parsed)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), marked)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&ranges, "range", "r", nil, "spoiler range as START:LENGTH in characters (repeatable)")
	return cmd
}

func newUnwrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "unwrap TEXT",
		Short:             "Strip spoiler markers and print text with ranges as JSON",
		Args:              cobra.ExactArgs(1),
		PersistentPreRunE: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, ranges, err := spoiler.Unwrap(args[0])
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(digest.Summary{Text: text, Spoilers: ranges})
		},
	}
}

func newTranscriptCmd(c *cli) *cobra.Command {
	var (
		chatID int64
		n      int
	)
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Print the summarization transcript of a chat",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.openArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if n <= 0 {
				n = a.DefaultRead()
			}
			msgs, err := a.Latest(cmd.Context(), chatID, min(n, archive.MaxCapacity))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), digest.Transcript(archive.Chronological(msgs)))
			return nil
		},
	}
	cmd.Flags().Int64Var(&chatID, "chat", 0, "conversation id")
	cmd.Flags().IntVarP(&n, "count", "n", 0, "number of messages (default from config)")
	_ = cmd.MarkFlagRequired("chat")
	return cmd
}

func newSummarizeCmd(c *cli) *cobra.Command {
	var (
		chatID    int64
		n         int
		style     string
		generator string
	)
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize a chat through an external generator command",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := digest.ParseStyle(style)
			if err != nil {
				return err
			}
			gen, err := digest.ParseCommand(generator)
			if err != nil {
				return err
			}

			a, err := c.openArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := digest.NewSummarizer(a, gen, c.logger).Summarize(cmd.Context(), chatID, n, st)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(summary)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&chatID, "chat", 0, "conversation id")
	f.IntVarP(&n, "count", "n", 0, "number of messages (default from config)")
	f.StringVar(&style, "style", string(digest.Paragraph), "summary style (paragraph, bullets)")
	f.StringVar(&generator, "generator", "", "command that reads the transcript on stdin and prints the summary")
	_ = cmd.MarkFlagRequired("chat")
	_ = cmd.MarkFlagRequired("generator")
	return cmd
}

// parseRange reads "START:LENGTH".
func parseRange(raw string) (spoiler.Range, error) {
	startRaw, lengthRaw, ok := strings.Cut(raw, ":")
	if !ok {
		return spoiler.Range{}, fmt.Errorf("range %q: expected START:LENGTH", raw)
	}
	start, err := strconv.Atoi(startRaw)
	if err != nil {
		return spoiler.Range{}, fmt.Errorf("range %q: %w", raw, err)
	}
	length, err := strconv.Atoi(lengthRaw)
	if err != nil {
		return spoiler.Range{}, fmt.Errorf("range %q: %w", raw, err)
	}
	return spoiler.Range{Start: start, Length: length}, nil
}
