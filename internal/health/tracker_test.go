package health

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/openonco/scout/internal/types"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tracker, err := NewTracker(filepath.Join(t.TempDir(), "health.json"))
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	return tracker
}

func TestRecordSuccessLazyInit(t *testing.T) {
	tracker := newTestTracker(t)

	if _, exists := tracker.Get(types.SourceVendor); exists {
		t.Fatal("record exists before first run")
	}

	if err := tracker.RecordSuccess(types.SourceVendor); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}

	rec, exists := tracker.Get(types.SourceVendor)
	if !exists {
		t.Fatal("record not created on first success")
	}
	if rec.SuccessCount != 1 || rec.ErrorCount != 0 {
		t.Errorf("counts = %d/%d, want 1/0", rec.SuccessCount, rec.ErrorCount)
	}
	if rec.LastSuccess == nil {
		t.Error("LastSuccess not stamped")
	}
	if rec.LastError != nil {
		t.Error("LastError stamped on success")
	}
}

func TestRecordErrorKeepsLatestMessage(t *testing.T) {
	tracker := newTestTracker(t)

	if err := tracker.RecordError(types.SourceLiterature, errors.New("first failure")); err != nil {
		t.Fatalf("RecordError: %v", err)
	}
	if err := tracker.RecordError(types.SourceLiterature, errors.New("second failure")); err != nil {
		t.Fatalf("RecordError: %v", err)
	}

	rec, _ := tracker.Get(types.SourceLiterature)
	if rec.ErrorCount != 2 {
		t.Errorf("ErrorCount = %d, want 2", rec.ErrorCount)
	}
	if rec.LastErrorMessage != "second failure" {
		t.Errorf("LastErrorMessage = %q, want latest message only", rec.LastErrorMessage)
	}
}

func TestCountersAreMonotonic(t *testing.T) {
	tracker := newTestTracker(t)

	for i := 0; i < 3; i++ {
		if err := tracker.RecordSuccess(types.SourcePreprint); err != nil {
			t.Fatalf("RecordSuccess: %v", err)
		}
	}
	if err := tracker.RecordError(types.SourcePreprint, errors.New("boom")); err != nil {
		t.Fatalf("RecordError: %v", err)
	}

	rec, _ := tracker.Get(types.SourcePreprint)
	if rec.SuccessCount != 3 || rec.ErrorCount != 1 {
		t.Errorf("counts = %d/%d, want 3/1", rec.SuccessCount, rec.ErrorCount)
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "health.json")

	tracker, err := NewTracker(statePath)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	base := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return base }

	if err := tracker.RecordSuccess(types.SourceDeviceApproval); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}
	if err := tracker.RecordError(types.SourcePayer, errors.New("scrape failed")); err != nil {
		t.Fatalf("RecordError: %v", err)
	}

	reloaded, err := NewTracker(statePath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	rec, exists := reloaded.Get(types.SourceDeviceApproval)
	if !exists || rec.SuccessCount != 1 {
		t.Errorf("device-approval record not reloaded: %+v", rec)
	}
	if rec.LastSuccess == nil || !rec.LastSuccess.Equal(base) {
		t.Errorf("LastSuccess = %v, want %v", rec.LastSuccess, base)
	}

	payer, _ := reloaded.Get(types.SourcePayer)
	if payer.LastErrorMessage != "scrape failed" {
		t.Errorf("payer LastErrorMessage = %q", payer.LastErrorMessage)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	tracker := newTestTracker(t)
	if err := tracker.RecordSuccess(types.SourceVendor); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}

	snap := tracker.Snapshot()
	rec := snap[types.SourceVendor]
	rec.SuccessCount = 99

	fresh, _ := tracker.Get(types.SourceVendor)
	if fresh.SuccessCount != 1 {
		t.Error("mutating a snapshot leaked into the tracker")
	}
}
