// Command scoolctl submits scores, prints standings and load-tests a SCool
// server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/scool/internal/loadtest"
	"github.com/okian/scool/pkg/logger"
)

type rootFlags struct {
	baseURL string
	timeout time.Duration
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:          "scoolctl",
		Short:        "Drive and inspect a SCool leaderboard server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			level := "warn"
			if f.verbose {
				level = "debug"
			}
			return logger.SetLevelString(level)
		},
	}
	root.PersistentFlags().StringVar(&f.baseURL, "url", envOr("SCOOL_URL", loadtest.DefaultBaseURL), "base URL of the server")
	root.PersistentFlags().DurationVar(&f.timeout, "timeout", loadtest.DefaultTimeout, "per-request timeout")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(
		newSubmitCmd(f),
		newStandingsCmd(f),
		newVerifyCmd(f),
		newLoadCmd(f),
	)
	return root
}

func newSubmitCmd(f *rootFlags) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "submit <username> <score>",
		Short: "Submit one score and print the committed rank",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("score must be an integer: %w", err)
			}
			if name == "" {
				name = args[0]
			}
			c := loadtest.NewClient(f.baseURL, f.timeout)
			res, err := c.Submit(cmd.Context(), args[0], name, score)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: rank %d with %d points\n", args[0], res.Rank, res.Score)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the username)")
	return cmd
}

func newStandingsCmd(f *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "standings",
		Short: "Print the leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := loadtest.NewClient(f.baseURL, f.timeout)
			entries, err := c.Standings(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tUSERNAME\tNAME\tSCORE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", e.Rank, e.Username, e.Name, e.Score)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of entries (server default when 0)")
	return cmd
}

func newVerifyCmd(f *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the standings are densely ranked and ordered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := loadtest.NewClient(f.baseURL, f.timeout)
			entries, err := c.Standings(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if err := loadtest.Verify(entries); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d entries verified\n", len(entries))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", loadtest.DefaultVerifyLimit, "number of entries to check")
	return cmd
}

func newLoadCmd(f *rootFlags) *cobra.Command {
	cfg := loadtest.Config{}
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Submit random scores concurrently, then verify the standings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.BaseURL = f.baseURL
			cfg.Timeout = f.timeout
			rep, err := loadtest.Run(cmd.Context(), cfg, loadtest.NewClient(f.baseURL, f.timeout))
			if err != nil {
				return err
			}
			s := rep.Stats
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "submitted %d in %s (%.1f/s)\n", s.Submitted, s.Duration.Round(time.Millisecond), s.PerSecond())
			fmt.Fprintf(out, "ok %d, rate limited %d, unavailable %d, failed %d\n", s.Succeeded, s.RateLimited, s.Unavailable, s.Failed)
			if rep.VerifyErr != nil {
				return rep.VerifyErr
			}
			fmt.Fprintf(out, "ok: %d entries verified\n", rep.Verified)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.IntVarP(&cfg.Submissions, "submissions", "n", loadtest.DefaultSubmissions, "number of submissions")
	fl.IntVarP(&cfg.Participants, "participants", "p", 0, "distinct usernames (defaults to submissions)")
	fl.IntVarP(&cfg.Concurrency, "concurrency", "c", 0, "concurrent requests (defaults to 2x CPUs)")
	fl.Int64Var(&cfg.MaxScore, "max-score", loadtest.DefaultMaxScore, "highest generated score")
	fl.StringVar(&cfg.Prefix, "prefix", "", "username prefix (random when empty)")
	fl.IntVar(&cfg.VerifyLimit, "verify-limit", loadtest.DefaultVerifyLimit, "standings entries to verify")
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
