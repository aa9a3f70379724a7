package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rowdelta/internal/changes"
	"github.com/roach88/rowdelta/internal/value"
)

// Scenario defines a change test: data at a start and an end point, and
// assertions over the changes between them.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Tables lists the tables to compare, in listing order.
	// With inline data each table carries its start and end rows.
	// With a database the rows are read from SQLite instead.
	Tables []TableData `yaml:"tables"`

	// Requests lists queries captured at both points. Database mode only.
	Requests []RequestData `yaml:"requests,omitempty"`

	// Database switches the scenario to an in-memory SQLite database.
	Database *Database `yaml:"database,omitempty"`

	// Assertions validate the computed changes.
	Assertions []Assertion `yaml:"assertions"`
}

// TableData describes one table.
type TableData struct {
	Name string `yaml:"name"`

	// Columns names the columns. Required with inline rows; in database
	// mode an empty list selects every column.
	Columns []string `yaml:"columns,omitempty"`

	// Types maps column names to declared SQL types (DATE, TIME,
	// TIMESTAMP, BOOLEAN, NUMERIC, BLOB). Inline mode only.
	Types map[string]string `yaml:"types,omitempty"`

	// PrimaryKey names the key columns. In database mode an absent key is
	// discovered from the catalog and an empty list means no key.
	PrimaryKey []string `yaml:"primary_key,omitempty"`

	Start [][]any `yaml:"start,omitempty"`
	End   [][]any `yaml:"end,omitempty"`
}

// RequestData is a query captured at both points.
type RequestData struct {
	Label      string   `yaml:"label"`
	Query      string   `yaml:"query"`
	PrimaryKey []string `yaml:"primary_key,omitempty"`
}

// Database holds the statements that produce the two points.
type Database struct {
	// Setup runs before the start point is captured.
	Setup []string `yaml:"setup"`

	// Between runs after the start point and before the end point.
	Between []string `yaml:"between"`
}

// Assertion validates the changes.
//
// A change is selected either by Index into the full listing, or by Table
// together with PrimaryKey.
type Assertion struct {
	// Type specifies the assertion type:
	// - "change_count": number of changes, optionally of ChangeType on Table
	// - "change": the selected change has ChangeType, Table and PrimaryKey
	// - "modified_columns": the selected change modifies exactly Columns
	// - "value": Predicate holds for Column of the selected change at Point
	Type string `yaml:"type"`

	Count      *int   `yaml:"count,omitempty"`
	ChangeType string `yaml:"change_type,omitempty"`
	Table      string `yaml:"table,omitempty"`
	Index      *int   `yaml:"index,omitempty"`
	PrimaryKey []any  `yaml:"primary_key,omitempty"`

	// Columns is the expected list of modified columns, in column order.
	Columns []string `yaml:"columns,omitempty"`

	// Point is "start" or "end". Defaults to "end".
	Point     string `yaml:"point,omitempty"`
	Column    string `yaml:"column,omitempty"`
	Predicate string `yaml:"predicate,omitempty"`

	// Expected is the predicate argument. A list supplies several
	// arguments (is_close_to, is_of_type).
	Expected any `yaml:"expected,omitempty"`
}

// Assertion type constants.
const (
	AssertChangeCount     = "change_count"
	AssertChange          = "change"
	AssertModifiedColumns = "modified_columns"
	AssertValue           = "value"
)

// inline reports whether the scenario carries its rows in the file.
func (s *Scenario) inline() bool {
	return s.Database == nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Tables) == 0 && len(s.Requests) == 0 {
		return fmt.Errorf("tables list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.inline() && len(s.Requests) > 0 {
		return fmt.Errorf("requests need a database section")
	}

	for i, table := range s.Tables {
		if err := validateTable(i, &table, s.inline()); err != nil {
			return err
		}
	}

	for i, req := range s.Requests {
		if req.Label == "" {
			return fmt.Errorf("requests[%d]: label is required", i)
		}
		if req.Query == "" {
			return fmt.Errorf("requests[%d]: query is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateTable(index int, t *TableData, inline bool) error {
	if t.Name == "" {
		return fmt.Errorf("tables[%d]: name is required", index)
	}
	if !inline {
		if t.Start != nil || t.End != nil || t.Types != nil {
			return fmt.Errorf("tables[%d]: start, end and types are only allowed without a database", index)
		}
		return nil
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("tables[%d]: columns list is required", index)
	}
	for _, rows := range [][][]any{t.Start, t.End} {
		for j, row := range rows {
			if len(row) != len(t.Columns) {
				return fmt.Errorf("tables[%d]: row %d has %d values, want %d", index, j, len(row), len(t.Columns))
			}
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if a.ChangeType != "" {
		if _, ok := changes.ParseChangeType(a.ChangeType); !ok {
			return fmt.Errorf("assertions[%d]: unknown change_type %q", index, a.ChangeType)
		}
	}

	switch a.Type {
	case AssertChangeCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for change_count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must not be negative", index)
		}
	case AssertChange:
		if err := validateSelector(index, a); err != nil {
			return err
		}
		if a.ChangeType == "" && a.Index == nil {
			return fmt.Errorf("assertions[%d]: change needs change_type when selected by primary_key", index)
		}
	case AssertModifiedColumns:
		if err := validateSelector(index, a); err != nil {
			return err
		}
		if a.Columns == nil {
			return fmt.Errorf("assertions[%d]: columns list is required for modified_columns (use [] for none)", index)
		}
	case AssertValue:
		if err := validateSelector(index, a); err != nil {
			return err
		}
		if a.Column == "" {
			return fmt.Errorf("assertions[%d]: column is required for value", index)
		}
		if a.Point != "" {
			if _, ok := changes.ParsePoint(a.Point); !ok {
				return fmt.Errorf("assertions[%d]: point must be start or end, got %q", index, a.Point)
			}
		}
		arity, ok := value.PredicateArity(a.Predicate)
		if !ok {
			return fmt.Errorf("assertions[%d]: unknown predicate %q", index, a.Predicate)
		}
		if arity == 0 && a.Expected != nil {
			return fmt.Errorf("assertions[%d]: predicate %s takes no expected value", index, a.Predicate)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}

	return nil
}

func validateSelector(index int, a *Assertion) error {
	if a.Index != nil {
		if *a.Index < 0 {
			return fmt.Errorf("assertions[%d]: index must not be negative", index)
		}
		return nil
	}
	if a.Table == "" || len(a.PrimaryKey) == 0 {
		return fmt.Errorf("assertions[%d]: %s needs index or table with primary_key", index, a.Type)
	}
	return nil
}
