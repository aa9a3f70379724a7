package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rowdelta/internal/snapshot"
	"github.com/roach88/rowdelta/internal/store"
)

// SnapshotOptions holds flags for the snapshot command.
type SnapshotOptions struct {
	*RootOptions
	Driver   string
	Database string
	Config   string
}

// SnapshotOutput is the JSON form of one captured snapshot.
type SnapshotOutput struct {
	Label      string   `json:"label"`
	Kind       string   `json:"kind"`
	CaptureID  string   `json:"capture_id"`
	Seq        int64    `json:"seq"`
	Columns    []string `json:"columns"`
	PrimaryKey []string `json:"primary_key"`
	Rows       [][]any  `json:"rows"`
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture and print the configured tables and requests",
		Long: `Capture every table and request named in the config file and print
the rows, ordered by primary key.

Example:
  rowdelta snapshot --db ./app.db --config capture.cue
  rowdelta snapshot --driver postgres --db "postgres://localhost/app?sslmode=disable" --config capture.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Driver, "driver", store.DriverSQLite, "database driver (sqlite3|postgres)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "database file or connection string (required)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "CUE capture config (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runSnapshot(ctx context.Context, opts *SnapshotOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	src, err := LoadConfig(opts.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid config", err)
	}
	formatter.VerboseLog("Config selects %d table(s) and %d request(s)", len(src.Tables), len(src.Requests))

	st, err := store.Open(opts.Driver, opts.Database, store.WithLogger(formatter.Logger()))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	set, err := st.Capture(ctx, src)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCapture, "failed to capture snapshots", err)
	}

	out := make([]SnapshotOutput, 0, set.Len())
	for _, snap := range set.All() {
		out = append(out, snapshotOutput(snap))
	}
	return formatter.Success(out, formatSnapshots(set))
}

func snapshotOutput(snap *snapshot.Snapshot) SnapshotOutput {
	out := SnapshotOutput{
		Label:      snap.Label(),
		Kind:       string(snap.Kind()),
		CaptureID:  snap.CaptureID(),
		Seq:        snap.Seq(),
		Columns:    snap.ColumnNames(),
		PrimaryKey: snap.PrimaryKeyNames(),
		Rows:       make([][]any, 0, snap.Len()),
	}
	if out.PrimaryKey == nil {
		out.PrimaryKey = []string{}
	}
	for _, row := range snap.Rows() {
		values := row.Values()
		cells := make([]any, len(values))
		for i, v := range values {
			cells[i] = v.Canonical()
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}

func formatSnapshots(set *snapshot.Set) string {
	var b strings.Builder
	for _, snap := range set.All() {
		fmt.Fprintf(&b, "%s\n", snap)
		for _, row := range snap.Rows() {
			fmt.Fprintf(&b, "  %s\n", row)
		}
	}
	return b.String()
}
