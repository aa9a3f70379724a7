package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rowdelta/internal/store"
)

// configSchema constrains capture configs. #Config is closed, so a
// misspelled field is an error rather than silently ignored.
const configSchema = `
#Table: {
	name:         string & =~"^[A-Za-z_][A-Za-z0-9_]*(\\.[A-Za-z_][A-Za-z0-9_]*)?$"
	columns?:     [...string]
	primary_key?: [...string]
}

#Request: {
	label:        string & !=""
	query:        string & !=""
	primary_key?: [...string]
}

#Config: {
	tables?:   [...#Table]
	requests?: [...#Request]
}
`

// ConfigError is a config problem with its source position when known.
type ConfigError struct {
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// LoadConfig reads a CUE capture config:
//
//	tables: [
//		{name: "members", primary_key: ["id"]},
//		{name: "events", columns: ["at", "kind"], primary_key: []},
//	]
//	requests: [
//		{label: "adults", query: "SELECT id, name FROM members WHERE age >= 18", primary_key: ["id"]},
//	]
//
// A table without primary_key has its key discovered from the database; an
// empty list means the table is compared without a key.
func LoadConfig(path string) (store.Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return store.Sources{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(path, data)
}

// ParseConfig parses CUE config source. filename is used in error positions.
func ParseConfig(filename string, data []byte) (store.Sources, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(configSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return store.Sources{}, formatCUEError(err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return store.Sources{}, formatCUEError(err)
	}

	v = schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return store.Sources{}, formatCUEError(err)
	}

	var src store.Sources
	tables, err := listOf(v, "tables")
	if err != nil {
		return store.Sources{}, err
	}
	for _, t := range tables {
		spec := store.TableSpec{}
		if spec.Name, err = t.LookupPath(cue.ParsePath("name")).String(); err != nil {
			return store.Sources{}, formatCUEError(err)
		}
		if spec.Columns, err = stringsAt(t, "columns"); err != nil {
			return store.Sources{}, err
		}
		if spec.PrimaryKey, err = stringsAt(t, "primary_key"); err != nil {
			return store.Sources{}, err
		}
		src.Tables = append(src.Tables, spec)
	}

	requests, err := listOf(v, "requests")
	if err != nil {
		return store.Sources{}, err
	}
	for _, r := range requests {
		spec := store.RequestSpec{}
		if spec.Label, err = r.LookupPath(cue.ParsePath("label")).String(); err != nil {
			return store.Sources{}, formatCUEError(err)
		}
		if spec.Query, err = r.LookupPath(cue.ParsePath("query")).String(); err != nil {
			return store.Sources{}, formatCUEError(err)
		}
		if spec.PrimaryKey, err = stringsAt(r, "primary_key"); err != nil {
			return store.Sources{}, err
		}
		src.Requests = append(src.Requests, spec)
	}

	if len(src.Tables) == 0 && len(src.Requests) == 0 {
		return store.Sources{}, &ConfigError{Message: "config selects no tables or requests", Pos: v.Pos()}
	}
	return src, nil
}

func listOf(v cue.Value, field string) ([]cue.Value, error) {
	if !present(v, field) {
		return nil, nil
	}
	iter, err := v.LookupPath(cue.ParsePath(field)).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var items []cue.Value
	for iter.Next() {
		items = append(items, iter.Value())
	}
	return items, nil
}

// stringsAt returns nil for an absent field and a non-nil slice for a
// present one, even when it is empty.
func stringsAt(v cue.Value, field string) ([]string, error) {
	if !present(v, field) {
		return nil, nil
	}
	items, err := listOf(v, field)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := item.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// present reports whether field is set in v. Optional schema fields the
// config leaves out are not reported by Fields.
func present(v cue.Value, field string) bool {
	iter, err := v.Fields()
	if err != nil {
		return false
	}
	for iter.Next() {
		if iter.Selector().String() == field {
			return true
		}
	}
	return false
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &ConfigError{Message: first.Error(), Pos: positions[0]}
	}
	return &ConfigError{Message: first.Error()}
}
