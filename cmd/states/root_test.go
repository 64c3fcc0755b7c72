package states

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

// TestStateRows tests a few well known rows of the table
func TestStateRows(t *testing.T) {
	rows := stateRows()
	if len(rows) != 10 {
		t.Fatalf("stateRows() has %d rows, want 10", len(rows))
	}

	byName := make(map[string]stateRow)
	for _, r := range rows {
		byName[r.State] = r
	}

	tests := []struct {
		state string
		check func(r stateRow) bool
	}{
		{"GARBAGE", func(r stateRow) bool { return r.CanAwardRead == "error" && r.Context == "error" && r.Free }},
		{"FREE", func(r stateRow) bool { return r.CanAwardRead == "false" && r.Context == "none" && r.FlushOnUnlock }},
		{"GREEDY_WRITE", func(r stateRow) bool { return r.CanAwardWrite == "true" && r.Greedy && !r.FlushOnUnlock }},
		{"RECALLED_WRITE_FOR_READ", func(r stateRow) bool { return r.CanAwardRead == "true" && r.FlushLevel == "read" }},
		{"READ_RECALL_IN_PROGRESS", func(r stateRow) bool { return r.RecallInProcess && r.Context == "greedyHolderRead" }},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			r, ok := byName[tt.state]
			if !ok {
				t.Fatalf("no row for %s", tt.state)
			}
			if !tt.check(r) {
				t.Errorf("unexpected row %+v", r)
			}
		})
	}
}

// TestPrintStates tests both output formats
func TestPrintStates(t *testing.T) {
	var buf bytes.Buffer
	if err := printStates(&buf, "table"); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 11 {
		t.Errorf("table has %d lines, want header and 10 rows", lines)
	}

	buf.Reset()
	if err := printStates(&buf, "json"); err != nil {
		t.Fatal(err)
	}
	var rows []stateRow
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(rows) != 10 {
		t.Errorf("json has %d rows, want 10", len(rows))
	}

	if err := printStates(&buf, "yaml"); err == nil {
		t.Errorf("printStates() accepted yaml")
	}
}
