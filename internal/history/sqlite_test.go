package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/anvers/jobrelay/internal/model"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		RunID:      id,
		Source:     model.SourceScheduled,
		Method:     "public-api",
		JobCount:   4,
		Success:    true,
		Delivered:  true,
		StatusCode: 200,
		StartedAt:  started,
		Duration:   1200 * time.Millisecond,
	}
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)

	now := time.Now()
	if err := store.Record(sampleRun("run-1", now.Add(-2*time.Minute))); err != nil {
		t.Fatalf("recording: %v", err)
	}
	if err := store.Record(sampleRun("run-2", now.Add(-1*time.Minute))); err != nil {
		t.Fatalf("recording: %v", err)
	}

	runs, err := store.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	// Newest first.
	if runs[0].RunID != "run-2" || runs[1].RunID != "run-1" {
		t.Errorf("order = [%s, %s], want [run-2, run-1]", runs[0].RunID, runs[1].RunID)
	}

	r := runs[0]
	if r.Method != "public-api" || r.JobCount != 4 || !r.Success || !r.Delivered {
		t.Errorf("round-trip mismatch: %+v", r)
	}
	if r.Duration != 1200*time.Millisecond {
		t.Errorf("Duration = %v, want 1.2s", r.Duration)
	}
}

func TestRecord_DuplicateRunIDIsNoop(t *testing.T) {
	store := openTestStore(t)

	run := sampleRun("run-1", time.Now())
	if err := store.Record(run); err != nil {
		t.Fatalf("recording: %v", err)
	}
	run.JobCount = 99
	if err := store.Record(run); err != nil {
		t.Fatalf("re-recording: %v", err)
	}

	runs, err := store.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].JobCount != 4 {
		t.Errorf("JobCount = %d, original row should win", runs[0].JobCount)
	}
}

func TestRecent_Limit(t *testing.T) {
	store := openTestStore(t)

	now := time.Now()
	for i := 0; i < 5; i++ {
		if err := store.Record(sampleRun(string(rune('a'+i)), now.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("recording: %v", err)
		}
	}

	runs, err := store.Recent(3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("got %d runs, want 3", len(runs))
	}
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)

	if err := store.Record(sampleRun("old", time.Now().Add(-48*time.Hour))); err != nil {
		t.Fatalf("recording: %v", err)
	}
	if err := store.Record(sampleRun("fresh", time.Now())); err != nil {
		t.Fatalf("recording: %v", err)
	}

	if err := store.Prune(24 * time.Hour); err != nil {
		t.Fatalf("pruning: %v", err)
	}

	runs, err := store.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "fresh" {
		t.Errorf("after prune got %+v, want only fresh", runs)
	}
}
