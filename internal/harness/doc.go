// Package harness runs change scenarios described in YAML.
//
// A scenario declares data at a start point and an end point, computes the
// changes between them and checks assertions over those changes.
//
// # Scenario Format
//
// Inline rows:
//
//	name: member_changes
//	description: "A member leaves and another joins"
//	tables:
//	  - name: members
//	    columns: [id, name, birth]
//	    types: {birth: DATE}
//	    primary_key: [id]
//	    start: [[1, "Hewson", "1960-05-10"], [2, "Evans", null]]
//	    end:   [[1, "Hewson", "1960-05-10"], [3, "Clayton", null]]
//	assertions:
//	  - type: change_count
//	    count: 2
//	  - type: change
//	    index: 0
//	    change_type: DELETION
//	    table: members
//	    primary_key: [2]
//
// A database section replaces inline rows with statements run against a
// fresh in-memory SQLite database:
//
//	tables:
//	  - name: members
//	database:
//	  setup: ["CREATE TABLE members (id INTEGER PRIMARY KEY, name TEXT)"]
//	  between: ["INSERT INTO members VALUES (1, 'Mullen')"]
//
// # Assertion Types
//
//   - change_count: the number of changes, optionally of one change_type on one table
//   - change: the change at index (or on table with primary_key) has the given type, table and key
//   - modified_columns: the change modifies exactly the listed columns
//   - value: a value predicate holds for a column of the change at a point
//
// Value assertions name a predicate (is_equal_to, is_before, is_close_to and
// so on) and its expected argument. A failing value assertion reports where
// the value lives; a malformed expected literal aborts the run.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/member_changes.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
