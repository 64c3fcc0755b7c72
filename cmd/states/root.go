package states

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ValentinKolb/dLock/cmd/util"
	"github.com/ValentinKolb/dLock/lib/lockmgr"
	"github.com/spf13/cobra"
)

var (
	format string

	// StatesCmd prints the greediness state table
	StatesCmd = &cobra.Command{
		Use:   "states",
		Short: "Print every greediness state and its query answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printStates(os.Stdout, format)
		},
	}
)

func init() {
	StatesCmd.Flags().StringVar(&format, "format", "table", util.WrapString("output format (table, json)"))
}

// stateRow holds the query answers of one state
type stateRow struct {
	State           string `json:"state"`
	CanAwardRead    string `json:"canAwardRead"`
	CanAwardWrite   string `json:"canAwardWrite"`
	Free            bool   `json:"free"`
	Greedy          bool   `json:"greedy"`
	Recalled        bool   `json:"recalled"`
	RecallInProcess bool   `json:"recallInProgress"`
	FlushOnUnlock   bool   `json:"flushOnUnlock"`
	FlushLevel      string `json:"flushLevel"`
	Context         string `json:"context"`
}

// stateRows evaluates every query for every state
func stateRows() []stateRow {
	award := func(g lockmgr.Greediness, level lockmgr.LockLevel) string {
		ok, err := g.CanAward(level)
		if err != nil {
			return "error"
		}
		return fmt.Sprintf("%t", ok)
	}

	rows := make([]stateRow, 0, len(lockmgr.AllGreediness))
	for _, g := range lockmgr.AllGreediness {
		row := stateRow{
			State:           g.String(),
			CanAwardRead:    award(g, lockmgr.LevelRead),
			CanAwardWrite:   award(g, lockmgr.LevelWrite),
			Free:            g.IsFree(),
			Greedy:          g.IsGreedy(),
			Recalled:        g.IsRecalled(),
			RecallInProcess: g.IsRecallInProgress(),
			FlushOnUnlock:   g.FlushOnUnlock(),
			FlushLevel:      g.FlushLevel().String(),
		}

		ctx, err := g.ToContext("lock", 0)
		switch {
		case err != nil:
			row.Context = "error"
		case ctx == nil:
			row.Context = "none"
		default:
			row.Context = ctx.State.String()
		}
		rows = append(rows, row)
	}
	return rows
}

// printStates writes the state table in the given format
func printStates(w io.Writer, format string) error {
	rows := stateRows()

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "table":
		line := func(cols ...string) {
			fmt.Fprintf(w, "%-34s %-6s %-6s %-6s %-7s %-9s %-12s %-9s %-6s %s\n",
				cols[0], cols[1], cols[2], cols[3], cols[4], cols[5], cols[6], cols[7], cols[8], cols[9])
		}
		line("STATE", "READ", "WRITE", "FREE", "GREEDY", "RECALLED", "IN-PROGRESS", "FLUSH", "LEVEL", "CONTEXT")
		for _, r := range rows {
			line(r.State, r.CanAwardRead, r.CanAwardWrite, yes(r.Free), yes(r.Greedy), yes(r.Recalled),
				yes(r.RecallInProcess), yes(r.FlushOnUnlock), r.FlushLevel, r.Context)
		}
		return nil
	default:
		return fmt.Errorf("invalid format %s, must be one of %s", format, strings.Join([]string{"table", "json"}, ", "))
	}
}

func yes(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
