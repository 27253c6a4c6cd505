package store

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"speclens/internal/dataset"
	"speclens/internal/features"
	"speclens/internal/verify"
)

func openTemp(t *testing.T) (*SqlStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs", "speclens.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func sampleRecords() []dataset.Record {
	return []dataset.Record{
		{
			SourceFile: "pool_a.py",
			Name:       "add",
			Features:   features.Vector{NParams: 2, NEnsures: 1, NLOC: 1, EnsuresComplexity: 5, EnsuresHasArith: 1, EnsuresHasCmp: 1},
			Label:      verify.Safe,
		},
		{
			SourceFile: "pool_a.py",
			Name:       "drain",
			Class:      "Account",
			Features:   features.Vector{NParams: 1, NInvariants: 1, NLOC: 2, HasSelf: 1},
			Label:      verify.Risky,
		},
	}
}

func TestSaveRunRoundTrip(t *testing.T) {
	s, _ := openTemp(t)

	recs := sampleRecords()
	meta := RunMeta{
		PoolPath:   "testdata/pool",
		Trials:     20,
		Seed:       7,
		StepBudget: 10000,
		Stats:      dataset.Summarize(recs),
	}
	runID, err := s.SaveRun(meta, recs)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if runID <= 0 {
		t.Fatalf("runID = %d", runID)
	}

	got, err := s.RunRecords(runID)
	if err != nil {
		t.Fatalf("RunRecords: %v", err)
	}
	if diff := cmp.Diff(recs, got); diff != "" {
		t.Fatalf("records mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestRunsNewestFirst(t *testing.T) {
	s, _ := openTemp(t)

	for i := 0; i < 2; i++ {
		if _, err := s.SaveRun(RunMeta{PoolPath: "p", Trials: 5, Seed: int64(i)}, nil); err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}
	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID <= runs[1].ID {
		t.Fatalf("runs not newest first: %d, %d", runs[0].ID, runs[1].ID)
	}
	if runs[0].CreatedAt == "" {
		t.Fatal("missing created_at")
	}
}

func TestReopenKeepsData(t *testing.T) {
	s, path := openTemp(t)
	runID, err := s.SaveRun(RunMeta{PoolPath: "p", Trials: 5}, sampleRecords())
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()

	recs, err := again.RunRecords(runID)
	if err != nil {
		t.Fatalf("RunRecords after reopen: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records after reopen, want 2", len(recs))
	}
}

func TestFutureSchemaRejected(t *testing.T) {
	s, path := openTemp(t)
	if _, err := s.db.Exec("UPDATE schema_version SET version = ?", currentSchemaVersion+1); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected error opening a newer-schema store")
	}
}
