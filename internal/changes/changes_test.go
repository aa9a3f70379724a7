package changes

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowdelta/internal/snapshot"
	"github.com/roach88/rowdelta/internal/value"
)

func table(label string, cols []string, pk []string, rows ...[]any) *snapshot.Snapshot {
	b := snapshot.NewTable(label, snapshot.Columns(cols...), pk...)
	for _, r := range rows {
		b.Add(r...)
	}
	return b.MustBuild()
}

func compute(t *testing.T, start, end []*snapshot.Snapshot) *Changes {
	t.Helper()
	c, err := Compute(snapshot.MustSet(start...), snapshot.MustSet(end...))
	require.NoError(t, err)
	return c
}

func summary(c *Changes) []string {
	var out []string
	for _, ch := range c.All() {
		out = append(out, fmt.Sprintf("%d %s %s %v", ch.Index(), ch.Type(), ch.Label(), ch.KeyStrings()))
	}
	return out
}

var idName = []string{"id", "name"}

func TestCompute_DeletionAndCreation(t *testing.T) {
	start := table("T", idName, []string{"id"}, []any{1, "A"}, []any{2, "B"})
	end := table("T", idName, []string{"id"}, []any{1, "A"}, []any{3, "C"})

	c := compute(t, []*snapshot.Snapshot{start}, []*snapshot.Snapshot{end})

	assert.Equal(t, []string{
		"0 DELETION T [2]",
		"1 CREATION T [3]",
	}, summary(c))

	del, _ := c.At(0)
	assert.Nil(t, del.End())
	require.NotNil(t, del.Start())
	assert.Equal(t, "B", del.Start().ValueAt(1).Raw())

	cre, _ := c.At(1)
	assert.Nil(t, cre.Start())
	assert.Equal(t, "C", cre.End().ValueAt(1).Raw())
}

func TestCompute_InterleavesTypesByKey(t *testing.T) {
	start := table("t", idName, []string{"id"},
		[]any{5, "e"}, []any{1, "a"}, []any{3, "c"}, []any{4, "d"})
	end := table("t", idName, []string{"id"},
		[]any{2, "b"}, []any{3, "C"}, []any{4, "d"}, []any{1, "a"}, []any{10, "j"})

	c := compute(t, []*snapshot.Snapshot{start}, []*snapshot.Snapshot{end})

	assert.Equal(t, []string{
		"0 CREATION t [2]",
		"1 MODIFICATION t [3]",
		"2 DELETION t [5]",
		"3 CREATION t [10]",
	}, summary(c), "numeric keys order by magnitude, not text")
}

func TestCompute_LabelsInDeclarationOrder(t *testing.T) {
	a0 := table("a", idName, []string{"id"}, []any{1, "x"})
	a1 := table("a", idName, []string{"id"}, []any{1, "y"})
	quiet := table("quiet", idName, []string{"id"}, []any{1, "same"})
	b0 := table("b", idName, []string{"id"})
	b1 := table("b", idName, []string{"id"}, []any{7, "new"})

	// the end set's order does not matter
	c := compute(t,
		[]*snapshot.Snapshot{b0, quiet, a0},
		[]*snapshot.Snapshot{a1, quiet, b1})

	assert.Equal(t, []string{
		"0 CREATION b [7]",
		"1 MODIFICATION a [1]",
	}, summary(c))
}

func TestCompute_EmptyStartAndEnd(t *testing.T) {
	empty := table("t", idName, []string{"id"})
	full := table("t", idName, []string{"id"}, []any{2, "b"}, []any{1, "a"})

	created := compute(t, []*snapshot.Snapshot{empty}, []*snapshot.Snapshot{full})
	assert.Equal(t, 2, created.OfCreation().Len())
	assert.Equal(t, 2, created.Len())

	deleted := compute(t, []*snapshot.Snapshot{full}, []*snapshot.Snapshot{empty})
	assert.Equal(t, []string{"0 DELETION t [1]", "1 DELETION t [2]"}, summary(deleted))

	none := compute(t, []*snapshot.Snapshot{full}, []*snapshot.Snapshot{full})
	assert.Equal(t, 0, none.Len())
}

func TestCompute_KeysMatchAcrossNumericRepresentations(t *testing.T) {
	start := table("t", idName, []string{"id"}, []any{1, "a"}, []any{int64(2), "b"})
	end := table("t", idName, []string{"id"}, []any{1.0, "a"}, []any{uint8(2), "B"})

	c := compute(t, []*snapshot.Snapshot{start}, []*snapshot.Snapshot{end})

	require.Equal(t, 1, c.Len())
	ch, _ := c.At(0)
	assert.Equal(t, Modification, ch.Type())
	assert.Equal(t, []string{"2"}, ch.KeyStrings())
}

func TestCompute_CompositeKey(t *testing.T) {
	cols := []string{"region", "id", "qty"}
	pk := []string{"region", "id"}
	start := table("stock", cols, pk, []any{"west", 1, 5}, []any{"east", 2, 1})
	end := table("stock", cols, pk, []any{"west", 1, 6}, []any{"east", 2, 1}, []any{"east", 1, 0})

	c := compute(t, []*snapshot.Snapshot{start}, []*snapshot.Snapshot{end})

	assert.Equal(t, []string{
		"0 CREATION stock [east 1]",
		"1 MODIFICATION stock [west 1]",
	}, summary(c))
	ch, _ := c.At(0)
	assert.Equal(t, []string{"region", "id"}, ch.PrimaryKeyNames())
}

func TestCompute_NullKeysSortFirst(t *testing.T) {
	start := table("t", idName, []string{"id"})
	end := table("t", idName, []string{"id"}, []any{1, "a"}, []any{nil, "n"})

	c := compute(t, []*snapshot.Snapshot{start}, []*snapshot.Snapshot{end})
	assert.Equal(t, []string{"0 CREATION t [null]", "1 CREATION t [1]"}, summary(c))
}

func TestCompute_WithoutPrimaryKey(t *testing.T) {
	start := table("r", idName, nil,
		[]any{1, "a"}, []any{1, "a"}, []any{2, "b"}, []any{3, "c"})
	end := table("r", idName, nil,
		[]any{4, "d"}, []any{1, "a"}, []any{3, "C"}, []any{3, "c"})

	c := compute(t, []*snapshot.Snapshot{start}, []*snapshot.Snapshot{end})

	// one duplicate of {1, a} and {2, b} disappear; {4, d} and {3, C} appear
	assert.Equal(t, []string{
		"0 CREATION r []",
		"1 CREATION r []",
		"2 DELETION r []",
		"3 DELETION r []",
	}, summary(c))
	first, _ := c.At(0)
	assert.Equal(t, 4, first.End().ValueAt(0).Raw())
	second, _ := c.At(1)
	assert.Equal(t, "C", second.End().ValueAt(1).Raw())
	third, _ := c.At(2)
	assert.Equal(t, 1, third.Start().ValueAt(0).Raw())
	fourth, _ := c.At(3)
	assert.Equal(t, 2, fourth.Start().ValueAt(0).Raw())
	assert.Empty(t, fourth.PrimaryKey())
}

func TestCompute_InputErrors(t *testing.T) {
	base := table("t", idName, []string{"id"}, []any{1, "a"})

	tests := []struct {
		name  string
		start []*snapshot.Snapshot
		end   []*snapshot.Snapshot
		code  InputErrorCode
	}{
		{
			name:  "label only at start",
			start: []*snapshot.Snapshot{base, table("u", idName, nil)},
			end:   []*snapshot.Snapshot{base},
			code:  ErrCodeMissingLabel,
		},
		{
			name:  "label only at end",
			start: []*snapshot.Snapshot{base},
			end:   []*snapshot.Snapshot{base, table("u", idName, nil)},
			code:  ErrCodeMissingLabel,
		},
		{
			name:  "columns differ",
			start: []*snapshot.Snapshot{base},
			end:   []*snapshot.Snapshot{table("t", []string{"id", "title"}, []string{"id"})},
			code:  ErrCodeColumnMismatch,
		},
		{
			name:  "primary keys differ",
			start: []*snapshot.Snapshot{base},
			end:   []*snapshot.Snapshot{table("t", idName, []string{"name"})},
			code:  ErrCodeKeyMismatch,
		},
		{
			name:  "table against request",
			start: []*snapshot.Snapshot{base},
			end:   []*snapshot.Snapshot{snapshot.NewRequest("t", snapshot.Columns(idName...), "id").MustBuild()},
			code:  ErrCodeKindMismatch,
		},
		{
			name:  "duplicate key",
			start: []*snapshot.Snapshot{table("t", idName, []string{"id"}, []any{1, "a"}, []any{1.0, "b"})},
			end:   []*snapshot.Snapshot{base},
			code:  ErrCodeDuplicateKey,
		},
		{
			name: "end captured before start",
			start: []*snapshot.Snapshot{
				snapshot.NewTable("t", snapshot.Columns(idName...), "id").WithCapture("b", 2).MustBuild(),
			},
			end: []*snapshot.Snapshot{
				snapshot.NewTable("t", snapshot.Columns(idName...), "id").WithCapture("a", 1).MustBuild(),
			},
			code: ErrCodePointOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Compute(snapshot.MustSet(tt.start...), snapshot.MustSet(tt.end...))
			require.Error(t, err)
			assert.Nil(t, c)
			assert.True(t, IsInputError(err))

			var ie *InputError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.code, ie.Code)
		})
	}
}

func TestCompute_NilSet(t *testing.T) {
	_, err := Compute(nil, snapshot.MustSet())
	var ie *InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrCodeNilSet, ie.Code)
}

// Every key in end\start is one creation, every key in start\end one
// deletion, and every differing key in both one modification.
func TestCompute_Completeness(t *testing.T) {
	for seed := 0; seed < 20; seed++ {
		var startRows, endRows [][]any
		wantTypes := map[string]ChangeType{}
		for k := 0; k < 30; k++ {
			inStart := (k*7+seed)%3 != 0
			inEnd := (k*5+seed)%4 != 0
			differ := (k+seed)%5 == 0
			if inStart {
				startRows = append(startRows, []any{k, "v"})
			}
			if inEnd {
				name := "v"
				if differ {
					name = "w"
				}
				endRows = append(endRows, []any{k, name})
			}
			key := fmt.Sprint(k)
			switch {
			case inStart && !inEnd:
				wantTypes[key] = Deletion
			case !inStart && inEnd:
				wantTypes[key] = Creation
			case inStart && inEnd && differ:
				wantTypes[key] = Modification
			}
		}

		c := compute(t,
			[]*snapshot.Snapshot{table("t", idName, []string{"id"}, startRows...)},
			[]*snapshot.Snapshot{table("t", idName, []string{"id"}, endRows...)})

		got := map[string]ChangeType{}
		prev := -1
		for i, ch := range c.All() {
			assert.Equal(t, i, ch.Index())
			key := ch.KeyStrings()[0]
			_, dup := got[key]
			assert.False(t, dup, "seed %d: key %s changed twice", seed, key)
			got[key] = ch.Type()

			k := ch.PrimaryKey()[0].Raw().(int)
			assert.Greater(t, k, prev, "seed %d: ascending keys", seed)
			prev = k
		}
		assert.Equal(t, wantTypes, got, "seed %d", seed)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	start := table("t", idName, []string{"id"}, []any{1, "a"}, []any{2, "b"}, []any{3, "c"}, []any{4, "d"})
	end := table("t", idName, []string{"id"}, []any{4, "D"}, []any{2, "b"}, []any{5, "e"})

	first := compute(t, []*snapshot.Snapshot{start}, []*snapshot.Snapshot{end})
	for i := 0; i < 10; i++ {
		again := compute(t, []*snapshot.Snapshot{start}, []*snapshot.Snapshot{end})
		assert.Equal(t, summary(first), summary(again))

		d1, err := first.Digest()
		require.NoError(t, err)
		d2, err := again.Digest()
		require.NoError(t, err)
		assert.Equal(t, d1, d2)
	}
}

func TestChange_Columns(t *testing.T) {
	cols := []string{"id", "name", "note"}
	start := table("t", cols, []string{"id"}, []any{1, "a", nil}, []any{2, "b", "x"})
	end := table("t", cols, []string{"id"}, []any{1, "A", "new"}, []any{3, "c", nil})

	c := compute(t, []*snapshot.Snapshot{start}, []*snapshot.Snapshot{end})
	require.Equal(t, 3, c.Len())

	mod, _ := c.At(0)
	require.Equal(t, Modification, mod.Type())
	assert.Equal(t, []int{1, 2}, mod.ModifiedColumns())
	assert.Equal(t, []string{"name", "note"}, mod.ModifiedColumnNames())

	name, ok := mod.Column("NAME")
	require.True(t, ok)
	assert.Equal(t, "a", name.Start.Raw())
	assert.Equal(t, "A", name.End.Raw())
	assert.True(t, name.Modified)
	assert.Equal(t, 1, name.Index)

	id, ok := mod.ColumnAt(0)
	require.True(t, ok)
	assert.False(t, id.Modified)

	_, ok = mod.Column("missing")
	assert.False(t, ok)
	_, ok = mod.ColumnAt(3)
	assert.False(t, ok)

	// absent rows read as NULL, so a NULL column of a created row is not modified
	created, _ := c.At(2)
	require.Equal(t, Creation, created.Type())
	assert.Equal(t, []string{"id", "name"}, created.ModifiedColumnNames())
	note, _ := created.Column("note")
	assert.False(t, note.Start.Valid())

	deleted, _ := c.At(1)
	assert.Equal(t, []int{0, 1, 2}, deleted.ModifiedColumns())
	assert.Equal(t, []string{"id", "name", "note"}, deleted.Columns())
}

func TestChange_PointAndString(t *testing.T) {
	start := table("members", idName, []string{"id"}, []any{1, "a"})
	end := table("members", idName, []string{"id"}, []any{1, "b"})
	c := compute(t, []*snapshot.Snapshot{start}, []*snapshot.Snapshot{end})

	ch, _ := c.At(0)
	assert.Same(t, ch.Start(), ch.Point(PointStart))
	assert.Same(t, ch.End(), ch.Point(PointEnd))
	assert.Equal(t, "#0 MODIFICATION on table members [1]", ch.String())
	assert.Equal(t, snapshot.KindTable, ch.Kind())

	loc := ch.Locate("name", PointEnd)
	assert.Equal(t, value.Location{Label: "members", PrimaryKey: []string{"1"}, Column: "name", Point: "end"}, loc)
}

func TestParseChangeTypeAndPoint(t *testing.T) {
	ct, ok := ParseChangeType("creation")
	assert.True(t, ok)
	assert.Equal(t, Creation, ct)
	_, ok = ParseChangeType("update")
	assert.False(t, ok)

	p, ok := ParsePoint("END")
	assert.True(t, ok)
	assert.Equal(t, PointEnd, p)
	_, ok = ParsePoint("middle")
	assert.False(t, ok)
}

func filtered() (*Changes, error) {
	members0 := table("members", idName, []string{"id"}, []any{1, "a"}, []any{2, "b"})
	members1 := table("members", idName, []string{"id"}, []any{1, "A"}, []any{3, "c"})
	adults0 := snapshot.NewRequest("adults", snapshot.Columns(idName...), "id").Add(1, "a").MustBuild()
	adults1 := snapshot.NewRequest("adults", snapshot.Columns(idName...), "id").Add(1, "a").Add(4, "d").MustBuild()
	return Compute(snapshot.MustSet(members0, adults0), snapshot.MustSet(members1, adults1))
}

func TestChanges_Filters(t *testing.T) {
	c, err := filtered()
	require.NoError(t, err)
	require.Equal(t, 4, c.Len())

	assert.Equal(t, 2, c.OfCreation().Len())
	assert.Equal(t, 1, c.OfModification().Len())
	assert.Equal(t, 1, c.OfDeletion().Len())
	assert.Equal(t, 3, c.OnTable("MEMBERS").Len())
	assert.Equal(t, 0, c.OnTable("adults").Len())
	assert.Equal(t, 1, c.OnRequest("adults").Len())
	assert.Equal(t, 1, c.OnTable("members").OfCreation().Len())

	// filtered views keep global indices
	req, ok := c.OnRequest("adults").At(0)
	require.True(t, ok)
	assert.Equal(t, 3, req.Index())

	_, ok = c.At(4)
	assert.False(t, ok)
	_, ok = c.At(-1)
	assert.False(t, ok)
}

func TestChanges_Find(t *testing.T) {
	c, err := filtered()
	require.NoError(t, err)

	ch, err := c.Find("members", "3")
	require.NoError(t, err)
	assert.Equal(t, Creation, ch.Type())

	ch, err = c.Find("ADULTS", 4.0)
	require.NoError(t, err)
	assert.Equal(t, "adults", ch.Label())

	_, err = c.Find("members", 9)
	assert.True(t, IsNoChange(err))

	_, err = c.Find("members")
	assert.True(t, IsNoChange(err))

	_, err = c.Find("members", "three")
	assert.True(t, value.IsInputError(err))
}

func TestChanges_RecordsAndCanonical(t *testing.T) {
	start := table("t", idName, []string{"id"}, []any{1, "a"})
	end := table("t", idName, []string{"id"}, []any{1, nil})
	c := compute(t, []*snapshot.Snapshot{start}, []*snapshot.Snapshot{end})

	recs := c.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, Record{
		Index:      0,
		Type:       Modification,
		Kind:       snapshot.KindTable,
		Label:      "t",
		PrimaryKey: []string{"1"},
		Columns: []ColumnRecord{
			{Name: "id", Start: []any{"NUMBER", "1"}, End: []any{"NUMBER", "1"}},
			{Name: "name", Start: []any{"TEXT", "a"}, End: nil, Modified: true},
		},
	}, recs[0])

	data, err := c.Canonical()
	require.NoError(t, err)
	assert.Equal(t,
		`[{"columns":[{"end":["NUMBER","1"],"modified":false,"name":"id","start":["NUMBER","1"]},`+
			`{"end":null,"modified":true,"name":"name","start":["TEXT","a"]}],`+
			`"index":0,"kind":"TABLE","label":"t","primary_key":["1"],"type":"MODIFICATION"}]`,
		string(data))

	_, err = json.Marshal(recs)
	assert.NoError(t, err)
}

func TestChanges_String(t *testing.T) {
	c, err := filtered()
	require.NoError(t, err)
	assert.Equal(t,
		"#0 MODIFICATION on table members [1]\n"+
			"#1 DELETION on table members [2]\n"+
			"#2 CREATION on table members [3]\n"+
			"#3 CREATION on request adults [4]\n",
		c.String())
}

func TestCursor(t *testing.T) {
	c, err := filtered()
	require.NoError(t, err)
	cur := NewCursor(c)

	assert.Equal(t, 0, cur.NextIndex("", ""))
	first, ok := cur.Next()
	require.True(t, ok)
	assert.Equal(t, 0, first.Index())
	assert.Equal(t, 1, cur.NextIndex("", ""))

	// each filter has its own counter
	cre, ok := cur.NextOfType(Creation)
	require.True(t, ok)
	assert.Equal(t, 2, cre.Index())
	cre, ok = cur.NextOfType(Creation)
	require.True(t, ok)
	assert.Equal(t, 3, cre.Index())
	_, ok = cur.NextOfType(Creation)
	assert.False(t, ok)
	assert.Equal(t, 2, cur.NextIndex(Creation, ""))

	onAdults, ok := cur.NextOnTable("adults")
	require.True(t, ok)
	assert.Equal(t, 3, onAdults.Index())

	del, ok := cur.NextMatching(Deletion, "Members")
	require.True(t, ok)
	assert.Equal(t, 1, del.Index())
	assert.Equal(t, 1, cur.NextIndex(Deletion, "members"))

	second, ok := cur.Next()
	require.True(t, ok)
	assert.Equal(t, 1, second.Index())

	cur.Reset()
	assert.Equal(t, 0, cur.NextIndex(Creation, ""))
}

// "e" + U+0301 and U+00E9 render alike but are different text.
const (
	decomposed = "e\u0301"
	composed   = "\u00e9"
)

func TestCompute_TextKeysAreByteExact(t *testing.T) {
	t.Run("keyless rows differing in normalisation", func(t *testing.T) {
		start := table("r", []string{"v"}, nil, []any{decomposed})
		end := table("r", []string{"v"}, nil, []any{composed})

		c := compute(t, []*snapshot.Snapshot{start}, []*snapshot.Snapshot{end})

		assert.Equal(t, []string{"0 CREATION r []", "1 DELETION r []"}, summary(c))
	})

	t.Run("distinct keys in one snapshot", func(t *testing.T) {
		start := table("t", []string{"k", "v"}, []string{"k"}, []any{decomposed, 1}, []any{composed, 2})
		end := table("t", []string{"k", "v"}, []string{"k"}, []any{decomposed, 1}, []any{composed, 2})

		c, err := Compute(snapshot.MustSet(start), snapshot.MustSet(end))
		require.NoError(t, err)
		assert.Zero(t, c.Len())
	})

	t.Run("key respelled between points", func(t *testing.T) {
		start := table("t", []string{"k", "v"}, []string{"k"}, []any{decomposed, 1})
		end := table("t", []string{"k", "v"}, []string{"k"}, []any{composed, 1})

		c := compute(t, []*snapshot.Snapshot{start}, []*snapshot.Snapshot{end})

		require.Equal(t, 2, c.Len())
		assert.Equal(t, 1, c.OfCreation().Len())
		assert.Equal(t, 1, c.OfDeletion().Len())
		assert.Zero(t, c.OfModification().Len())

		created := c.OfCreation().All()[0]
		assert.Equal(t, composed, created.End().ValueAt(0).Raw())
		deleted := c.OfDeletion().All()[0]
		assert.Equal(t, decomposed, deleted.Start().ValueAt(0).Raw())
	})
}
