package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/rowdelta/internal/changes"
	"github.com/roach88/rowdelta/internal/snapshot"
	"github.com/roach88/rowdelta/internal/store"
	"github.com/roach88/rowdelta/internal/testutil"
)

// Harness is the scenario execution engine.
// It captures both points with predictable capture ids and sequence numbers.
type Harness struct {
	ids    *testutil.CaptureIDs
	clock  *testutil.Sequence
	logger *slog.Logger
}

// New returns a harness logging to logger. A nil logger discards logs.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{
		ids:    testutil.NewCaptureIDs(""),
		clock:  testutil.NewSequence(0),
		logger: logger,
	}
}

// Run executes a test scenario with a discarding logger.
func Run(scenario *Scenario) (*Result, error) {
	return New(nil).Run(context.Background(), scenario)
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Build the start and end snapshot sets, from inline rows or from a
// fresh in-memory SQLite database
// 2. Compute the changes between them
// 3. Evaluate assertions; failures are collected in the result
//
// Malformed scenarios, snapshots that cannot be compared and predicate
// misuse abort with an error instead.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	h.ids.Reset()
	h.clock.Reset()

	var (
		start, end *snapshot.Set
		err        error
	)
	if scenario.inline() {
		start, end, err = h.buildInline(scenario)
	} else {
		start, end, err = h.captureDatabase(ctx, scenario)
	}
	if err != nil {
		return nil, err
	}

	listing, err := changes.Compute(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to compute changes: %w", err)
	}

	result := NewResult(listing)
	failures, err := EvaluateAssertions(listing, scenario.Assertions)
	if err != nil {
		return nil, err
	}
	for _, msg := range failures {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"changes", listing.Len(),
		"pass", result.Pass,
	)
	return result, nil
}

// buildInline builds both points from the rows in the scenario file.
func (h *Harness) buildInline(scenario *Scenario) (*snapshot.Set, *snapshot.Set, error) {
	startID, startSeq := h.ids.Generate(), h.clock.Next()
	endID, endSeq := h.ids.Generate(), h.clock.Next()

	var starts, ends []*snapshot.Snapshot
	for _, table := range scenario.Tables {
		s, err := buildTable(table, table.Start, startID, startSeq)
		if err != nil {
			return nil, nil, fmt.Errorf("start point: %w", err)
		}
		e, err := buildTable(table, table.End, endID, endSeq)
		if err != nil {
			return nil, nil, fmt.Errorf("end point: %w", err)
		}
		starts = append(starts, s)
		ends = append(ends, e)
	}

	start, err := snapshot.NewSet(starts...)
	if err != nil {
		return nil, nil, fmt.Errorf("start point: %w", err)
	}
	end, err := snapshot.NewSet(ends...)
	if err != nil {
		return nil, nil, fmt.Errorf("end point: %w", err)
	}
	return start, end, nil
}

func buildTable(table TableData, rows [][]any, captureID string, seq int64) (*snapshot.Snapshot, error) {
	cols := make([]snapshot.Column, len(table.Columns))
	for i, name := range table.Columns {
		cols[i] = snapshot.Column{Name: name, DeclaredType: declaredType(table.Types, name)}
	}

	b := snapshot.NewTable(table.Name, cols, table.PrimaryKey...).WithCapture(captureID, seq)
	for _, row := range rows {
		raw := make([]any, len(row))
		for i, cell := range row {
			raw[i] = cellValue(cell, cols[i].DeclaredType)
		}
		b.Add(raw...)
	}
	return b.Build()
}

func declaredType(types map[string]string, column string) string {
	for name, t := range types {
		if strings.EqualFold(name, column) {
			return t
		}
	}
	return ""
}

// cellValue converts a YAML scalar into what a database driver would have
// returned for a column of the declared type.
func cellValue(cell any, declared string) any {
	switch v := cell.(type) {
	case int:
		cell = int64(v)
	case string:
		switch store.BaseType(declared) {
		case "BLOB", "BYTEA", "BINARY", "VARBINARY":
			cell = []byte(v)
		}
	}
	return store.Normalize(cell, declared)
}

// captureDatabase runs the scenario statements against a fresh in-memory
// SQLite database and captures both points.
func (h *Harness) captureDatabase(ctx context.Context, scenario *Scenario) (*snapshot.Set, *snapshot.Set, error) {
	st, err := store.Open(store.DriverSQLite, ":memory:",
		store.WithLogger(h.logger),
		store.WithIDGenerator(h.ids),
		store.WithSequencer(h.clock),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	src := sources(scenario)

	if err := st.Exec(ctx, scenario.Database.Setup...); err != nil {
		return nil, nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	start, err := st.Capture(ctx, src)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to capture start point: %w", err)
	}

	if err := st.Exec(ctx, scenario.Database.Between...); err != nil {
		return nil, nil, fmt.Errorf("failed to execute between: %w", err)
	}
	end, err := st.Capture(ctx, src)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to capture end point: %w", err)
	}

	return start, end, nil
}

func sources(scenario *Scenario) store.Sources {
	var src store.Sources
	for _, t := range scenario.Tables {
		spec := store.TableSpec{Name: t.Name, PrimaryKey: t.PrimaryKey}
		if len(t.Columns) > 0 {
			spec.Columns = t.Columns
		}
		src.Tables = append(src.Tables, spec)
	}
	for _, r := range scenario.Requests {
		src.Requests = append(src.Requests, store.RequestSpec{
			Label:      r.Label,
			Query:      r.Query,
			PrimaryKey: r.PrimaryKey,
		})
	}
	return src
}
