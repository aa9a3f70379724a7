package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rowdelta/internal/changes"
	"github.com/roach88/rowdelta/internal/store"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	Driver       string
	Start        string
	End          string
	Config       string
	FailOnChange bool
}

// DiffOutput is the JSON payload of the diff command.
type DiffOutput struct {
	Changes []changes.Record `json:"changes"`
	Count   int              `json:"count"`
	Digest  string           `json:"digest"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "List the row changes between two databases",
		Long: `Capture the configured tables and requests from a start database and
an end database, then list the rows created, modified and deleted.

Exit codes:
  0 - Changes listed (or none found)
  1 - Changes found and --fail-on-change is set
  2 - Command error (bad config, database unreachable, incomparable snapshots)

Examples:
  rowdelta diff --start before.db --end after.db --config capture.cue
  rowdelta diff --driver postgres --start "$OLD_DSN" --end "$NEW_DSN" --config capture.cue --fail-on-change`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Driver, "driver", store.DriverSQLite, "database driver (sqlite3|postgres)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "database at the start point (required)")
	cmd.Flags().StringVar(&opts.End, "end", "", "database at the end point (required)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "CUE capture config (required)")
	cmd.Flags().BoolVar(&opts.FailOnChange, "fail-on-change", false, "exit with code 1 when any change is found")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runDiff(ctx context.Context, opts *DiffOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := formatter.Logger()

	src, err := LoadConfig(opts.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid config", err)
	}

	// Both stores draw from one clock so the end capture is sequenced after
	// the start capture.
	clock := store.NewClock()

	startStore, err := store.Open(opts.Driver, opts.Start, store.WithLogger(logger), store.WithSequencer(clock))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open start database", err)
	}
	defer startStore.Close()

	endStore, err := store.Open(opts.Driver, opts.End, store.WithLogger(logger), store.WithSequencer(clock))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open end database", err)
	}
	defer endStore.Close()

	start, err := startStore.Capture(ctx, src)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCapture, "failed to capture start point", err)
	}
	formatter.VerboseLog("Captured start point from %s", opts.Start)

	end, err := endStore.Capture(ctx, src)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCapture, "failed to capture end point", err)
	}
	formatter.VerboseLog("Captured end point from %s", opts.End)

	listing, err := changes.Compute(start, end)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCompute, "snapshots cannot be compared", err)
	}

	digest, err := listing.Digest()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to digest changes", err)
	}

	out := DiffOutput{Changes: listing.Records(), Count: listing.Len(), Digest: digest}
	text := listing.String() + fmt.Sprintf("%d change(s), digest %s\n", listing.Len(), digest)
	if err := formatter.Success(out, text); err != nil {
		return err
	}

	if opts.FailOnChange && listing.Len() > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d change(s) found", listing.Len()))
	}
	return nil
}
