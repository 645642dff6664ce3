package indexdb

import (
	"path/filepath"
	"testing"

	"croftsim/internal/protocol"
)

func TestRunIndexRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	idx.RecordStart("run-a", 42, "casual", 35, "/tmp/run-a.jsonl.zst")
	idx.RecordSummary(&protocol.SummaryMsg{
		Type:            protocol.TypeSummary,
		ProtocolVersion: protocol.Version,
		RunID:           "run-a",
		Reason:          "VICTORY",
		FinalPhase:      "manor",
		TotalTicks:      12345,
		Days:            8,
		ActionCounts:    map[string]int{"PLANT": 40, "HARVEST": 38},
		Bottlenecks: []protocol.BottleneckObs{
			{FromTick: 100, ToTick: 500, Cause: "low gold"},
		},
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen and read back: the writer must have flushed everything on Close.
	idx2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx2.Close()

	runs, err := idx2.RecentRuns(10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("indexed runs = %d, want 1", len(runs))
	}
	r := runs[0]
	if r.RunID != "run-a" || r.Seed != 42 || r.Persona != "casual" {
		t.Fatalf("bad run row: %+v", r)
	}
	if r.Reason != "VICTORY" || r.FinalPhase != "manor" || r.TotalTicks != 12345 || r.Days != 8 {
		t.Fatalf("summary not applied: %+v", r)
	}
}

// A summary for a run the index never saw started still produces a queryable
// row.
func TestSummaryWithoutStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	idx.RecordSummary(&protocol.SummaryMsg{RunID: "orphan", Reason: "MAX_TICKS"})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx2.Close()
	runs, err := idx2.RecentRuns(10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "orphan" || runs[0].Reason != "MAX_TICKS" {
		t.Fatalf("orphan summary not indexed: %+v", runs)
	}
}
