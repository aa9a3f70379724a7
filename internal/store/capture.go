package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/rowdelta/internal/snapshot"
)

// TableSpec selects a table. A nil Columns selects every column; a nil
// PrimaryKey is discovered from the catalog, an empty non-nil one means the
// table has no key.
type TableSpec struct {
	Name       string
	Columns    []string
	PrimaryKey []string
}

// RequestSpec is a query whose result is captured under Label. Args are
// passed to the driver as query arguments.
type RequestSpec struct {
	Label      string
	Query      string
	Args       []any
	PrimaryKey []string
}

// Sources lists what one capture reads. Tables come first in the resulting
// set, then requests, each in declaration order.
type Sources struct {
	Tables   []TableSpec
	Requests []RequestSpec
}

type stamp struct {
	id  string
	seq int64
}

func (s *Store) newStamp() stamp {
	return stamp{id: s.ids.Generate(), seq: s.clock.Next()}
}

// Capture reads every source at one point. All snapshots share one capture
// id and sequence number.
func (s *Store) Capture(ctx context.Context, src Sources) (*snapshot.Set, error) {
	st := s.newStamp()
	var snaps []*snapshot.Snapshot
	for _, spec := range src.Tables {
		snap, err := s.captureTable(ctx, spec, st)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	for _, spec := range src.Requests {
		snap, err := s.captureRequest(ctx, spec, st)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	set, err := snapshot.NewSet(snaps...)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", st.id, err)
	}
	s.logger.Info("capture complete", "capture_id", st.id, "seq", st.seq, "snapshots", set.Len())
	return set, nil
}

// CaptureTable reads one table.
func (s *Store) CaptureTable(ctx context.Context, spec TableSpec) (*snapshot.Snapshot, error) {
	return s.captureTable(ctx, spec, s.newStamp())
}

// CaptureRequest runs one request.
func (s *Store) CaptureRequest(ctx context.Context, spec RequestSpec) (*snapshot.Snapshot, error) {
	return s.captureRequest(ctx, spec, s.newStamp())
}

func (s *Store) captureTable(ctx context.Context, spec TableSpec, st stamp) (*snapshot.Snapshot, error) {
	if err := checkIdentifier(spec.Name); err != nil {
		return nil, fmt.Errorf("table: %w", err)
	}
	for _, c := range spec.Columns {
		if err := checkIdentifier(c); err != nil {
			return nil, fmt.Errorf("table %s column: %w", spec.Name, err)
		}
	}

	pk := spec.PrimaryKey
	if pk == nil {
		discovered, err := s.dialect.primaryKey(ctx, s.db, spec.Name)
		if err != nil {
			return nil, err
		}
		pk = discovered
		s.logger.Debug("primary key discovered", "table", spec.Name, "primary_key", pk)
	}
	for _, c := range pk {
		if err := checkIdentifier(c); err != nil {
			return nil, fmt.Errorf("table %s primary key: %w", spec.Name, err)
		}
	}

	query := fmt.Sprintf("SELECT %s FROM %s", s.columnList(spec.Columns), s.dialect.quote(spec.Name))
	if len(pk) > 0 {
		query += " ORDER BY " + s.columnList(pk)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", spec.Name, classify(err))
	}
	defer rows.Close()

	snap, err := s.read(rows, st, func(cols []snapshot.Column) *snapshot.Builder {
		return snapshot.NewTable(spec.Name, cols, pk...)
	})
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", spec.Name, err)
	}
	s.logger.Debug("table captured", "table", spec.Name, "rows", snap.Len(), "capture_id", st.id, "seq", st.seq)
	return snap, nil
}

func (s *Store) captureRequest(ctx context.Context, spec RequestSpec, st stamp) (*snapshot.Snapshot, error) {
	if strings.TrimSpace(spec.Query) == "" {
		return nil, fmt.Errorf("request %s: empty query", spec.Label)
	}
	rows, err := s.db.QueryContext(ctx, spec.Query, spec.Args...)
	if err != nil {
		return nil, fmt.Errorf("query request %s: %w", spec.Label, classify(err))
	}
	defer rows.Close()

	snap, err := s.read(rows, st, func(cols []snapshot.Column) *snapshot.Builder {
		return snapshot.NewRequest(spec.Label, cols, spec.PrimaryKey...)
	})
	if err != nil {
		return nil, fmt.Errorf("read request %s: %w", spec.Label, err)
	}
	s.logger.Debug("request captured", "label", spec.Label, "rows", snap.Len(), "capture_id", st.id, "seq", st.seq)
	return snap, nil
}

func (s *Store) columnList(cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = s.dialect.quote(c)
	}
	return strings.Join(quoted, ", ")
}

// read materialises rows into a snapshot built by newBuilder.
func (s *Store) read(rows *sql.Rows, st stamp, newBuilder func([]snapshot.Column) *snapshot.Builder) (*snapshot.Snapshot, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	cols := make([]snapshot.Column, len(types))
	for i, ct := range types {
		cols[i] = snapshot.Column{Name: ct.Name(), DeclaredType: ct.DatabaseTypeName()}
	}

	b := newBuilder(cols).WithCapture(st.id, st.seq)
	dest := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		raw := make([]any, len(cols))
		for i, d := range dest {
			raw[i] = Normalize(d, cols[i].DeclaredType)
		}
		b.Add(raw...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return b.Build()
}
