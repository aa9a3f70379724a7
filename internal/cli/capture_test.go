package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowdelta/internal/changes"
	"github.com/roach88/rowdelta/internal/store"
)

const membersSchema = "CREATE TABLE members (id INTEGER PRIMARY KEY, name TEXT NOT NULL, birth DATE)"

// sqliteFile creates a SQLite database file populated by stmts.
func sqliteFile(t *testing.T, name string, stmts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	st, err := store.Open(store.DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, st.Exec(context.Background(), stmts...))
	require.NoError(t, st.Close())
	return path
}

func configFile(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSnapshotCommand_Text(t *testing.T) {
	db := sqliteFile(t, "app.db", membersSchema,
		"INSERT INTO members VALUES (2, 'Evans', NULL), (1, 'Hewson', '1960-05-10')")
	cfg := configFile(t, `tables: [{name: "members"}]`)

	out, err := execute(t, "snapshot", "--db", db, "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t,
		"table members (2 rows)\n"+
			"  {id=1, name=Hewson, birth=1960-05-10}\n"+
			"  {id=2, name=Evans, birth=null}\n",
		out)
}

func TestSnapshotCommand_JSON(t *testing.T) {
	db := sqliteFile(t, "app.db", membersSchema, "INSERT INTO members VALUES (1, 'Hewson', NULL)")
	cfg := configFile(t, `
tables: [{name: "members", columns: ["id", "name"]}]
requests: [{label: "names", query: "SELECT name FROM members"}]
`)

	out, err := execute(t, "snapshot", "--format", "json", "--db", db, "--config", cfg)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   []SnapshotOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)

	members := resp.Data[0]
	assert.Equal(t, "members", members.Label)
	assert.Equal(t, "TABLE", members.Kind)
	assert.Equal(t, []string{"id", "name"}, members.Columns)
	assert.Equal(t, []string{"id"}, members.PrimaryKey)
	assert.Equal(t, [][]any{{[]any{"NUMBER", "1"}, []any{"TEXT", "Hewson"}}}, members.Rows)
	assert.NotEmpty(t, members.CaptureID)

	names := resp.Data[1]
	assert.Equal(t, "REQUEST", names.Kind)
	assert.Equal(t, []string{}, names.PrimaryKey)
	assert.Equal(t, members.CaptureID, names.CaptureID, "one capture stamps every snapshot")
}

func TestSnapshotCommand_Errors(t *testing.T) {
	db := sqliteFile(t, "app.db", membersSchema)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad config", []string{"--db", db, "--config", configFile(t, `tabels: []`)}, "invalid config"},
		{"unknown table", []string{"--db", db, "--config", configFile(t, `tables: [{name: "nope"}]`)}, "failed to capture snapshots"},
		{"bad driver", []string{"--driver", "mysql", "--db", db, "--config", configFile(t, `tables: [{name: "members"}]`)}, "failed to open database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"snapshot"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, out, "Error [")
		})
	}
}

func diffDatabases(t *testing.T) (start, end, cfg string) {
	t.Helper()
	start = sqliteFile(t, "start.db", membersSchema,
		"INSERT INTO members VALUES (1, 'Hewson', '1960-05-10'), (2, 'Evans', NULL), (4, 'Mullen', NULL)")
	end = sqliteFile(t, "end.db", membersSchema,
		"INSERT INTO members VALUES (1, 'Hewson', '1960-05-10'), (3, 'Clayton', NULL), (4, 'Mullen Jr', NULL)")
	cfg = configFile(t, `tables: [{name: "members"}]`)
	return start, end, cfg
}

func TestDiffCommand_Text(t *testing.T) {
	start, end, cfg := diffDatabases(t)

	out, err := execute(t, "diff", "--start", start, "--end", end, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out,
		"#0 DELETION on table members [2]\n"+
			"#1 CREATION on table members [3]\n"+
			"#2 MODIFICATION on table members [4]\n"+
			"3 change(s), digest ")
}

func TestDiffCommand_JSON(t *testing.T) {
	start, end, cfg := diffDatabases(t)

	out, err := execute(t, "diff", "--format", "json", "--start", start, "--end", end, "--config", cfg)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   DiffOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 3, resp.Data.Count)
	require.Len(t, resp.Data.Changes, 3)
	assert.Equal(t, changes.Modification, resp.Data.Changes[2].Type)
	assert.Len(t, resp.Data.Digest, 64)
}

func TestDiffCommand_FailOnChange(t *testing.T) {
	start, end, cfg := diffDatabases(t)

	_, err := execute(t, "diff", "--fail-on-change", "--start", start, "--end", end, "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "3 change(s) found")

	_, err = execute(t, "diff", "--fail-on-change", "--start", start, "--end", start, "--config", cfg)
	assert.NoError(t, err)
}

func TestDiffCommand_IncomparableSnapshots(t *testing.T) {
	start := sqliteFile(t, "start.db", "CREATE TABLE t (id INTEGER PRIMARY KEY, a TEXT)")
	end := sqliteFile(t, "end.db", "CREATE TABLE t (id INTEGER PRIMARY KEY, b TEXT)")
	cfg := configFile(t, `tables: [{name: "t"}]`)

	_, err := execute(t, "diff", "--start", start, "--end", end, "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "snapshots cannot be compared")
	assert.True(t, changes.IsInputError(err))
}
