package store

import (
	"sync/atomic"
	"testing"
	"time"

	"batchup/internal/model"
)

func testBatch() model.DiscoveryBatch {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return model.DiscoveryBatch{
		Folder: "docs",
		Files: []model.DiscoveredFile{
			{Path: "docs/a.txt", Name: "a.txt", Size: 10, ModTime: base},
			{Path: "docs/b.txt", Name: "b.txt", Size: 30, ModTime: base.Add(time.Hour)},
			{Path: "docs/c.txt", Name: "c.txt", Size: 20, ModTime: base.Add(2 * time.Hour)},
		},
	}
}

func paths(rows []*model.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Path)
	}
	return out
}

func equalPaths(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func statusPtr(s model.RowStatus) *model.RowStatus { return &s }
func floatPtr(f float64) *float64                  { return &f }

func TestHydrateNoDuplicates(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())
	s.Hydrate(testBatch())

	if got := s.Len(); got != 3 {
		t.Fatalf("expected 3 rows after overlapping hydration, got %d", got)
	}
}

func TestHydrateDoesNotResetExisting(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())
	s.Update("docs/a.txt", model.RowPatch{Status: statusPtr(model.StatusCompleted)})

	s.Hydrate(testBatch())

	row, ok := s.Get("docs/a.txt")
	if !ok {
		t.Fatal("row missing after re-hydration")
	}
	if row.Status != model.StatusCompleted {
		t.Fatalf("re-hydration reset status to %q", row.Status)
	}
}

func TestUpdateMergesLeftToRight(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())

	s.Update("docs/a.txt", model.RowPatch{Status: statusPtr(model.StatusInProgress)})
	s.Update("docs/a.txt", model.RowPatch{Progress: floatPtr(40)})
	s.Update("docs/a.txt", model.RowPatch{Progress: floatPtr(80)})

	row, _ := s.Get("docs/a.txt")
	if row.Status != model.StatusInProgress {
		t.Fatalf("unexpected status: %q", row.Status)
	}
	if row.Progress != 80 {
		t.Fatalf("unexpected progress: %v", row.Progress)
	}
}

func TestUpdateUnknownPathIsNoop(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())

	s.Update("docs/ghost.txt", model.RowPatch{Status: statusPtr(model.StatusFailed)})

	if got := s.Len(); got != 3 {
		t.Fatalf("store size changed to %d", got)
	}
}

func TestUpdateClampsProgress(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())

	s.Update("docs/a.txt", model.RowPatch{Progress: floatPtr(150)})
	if row, _ := s.Get("docs/a.txt"); row.Progress != 100 {
		t.Fatalf("expected clamp to 100, got %v", row.Progress)
	}

	s.Update("docs/a.txt", model.RowPatch{Progress: floatPtr(-5)})
	if row, _ := s.Get("docs/a.txt"); row.Progress != 0 {
		t.Fatalf("expected clamp to 0, got %v", row.Progress)
	}
}

func TestUpdateIsCopyOnWrite(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())

	before := s.Snapshot()
	var old *model.Row
	for _, r := range before {
		if r.Path == "docs/a.txt" {
			old = r
		}
	}

	s.Update("docs/a.txt", model.RowPatch{Progress: floatPtr(10)})

	var fresh *model.Row
	for _, r := range s.Snapshot() {
		if r.Path == "docs/a.txt" {
			fresh = r
		}
	}

	if old == fresh {
		t.Fatal("expected a fresh row object after update")
	}
	if old.Progress != 0 {
		t.Fatal("previous row object was mutated in place")
	}
}

func TestFreezeUnfreezeRoundTrip(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())
	s.SetSortDirection(SortSize, true)

	before := paths(s.Snapshot())
	s.Freeze()
	s.Unfreeze()
	after := paths(s.Snapshot())

	if !equalPaths(before, after) {
		t.Fatalf("round trip changed projection: %v vs %v", before, after)
	}
}

func TestFrozenOrderStableUnderUpdates(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())
	s.SetSortDirection(SortSize, true)
	s.Freeze()

	before := paths(s.Snapshot())

	// A status sort key change would normally move this row; while frozen
	// only content may change.
	s.Update("docs/b.txt", model.RowPatch{
		Status:   statusPtr(model.StatusCompleted),
		Progress: floatPtr(100),
	})
	s.Update("docs/a.txt", model.RowPatch{Status: statusPtr(model.StatusFailed)})

	after := paths(s.Snapshot())
	if !equalPaths(before, after) {
		t.Fatalf("frozen order changed: %v vs %v", before, after)
	}

	if row, _ := s.Get("docs/b.txt"); row.Status != model.StatusCompleted {
		t.Fatalf("content update lost while frozen: %q", row.Status)
	}
}

func TestSortWhileFrozenRepositionsOnce(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())
	s.SetSortDirection(SortName, true)
	s.Freeze()

	s.SetSortDirection(SortSize, false)

	got := paths(s.Snapshot())
	want := []string{"docs/b.txt", "docs/c.txt", "docs/a.txt"}
	if !equalPaths(got, want) {
		t.Fatalf("unexpected order after frozen re-sort: %v", got)
	}

	// Still frozen: later updates must not reshuffle.
	s.Update("docs/a.txt", model.RowPatch{Status: statusPtr(model.StatusCompleted)})
	if !equalPaths(paths(s.Snapshot()), want) {
		t.Fatal("order changed after update despite freeze")
	}
}

func TestFilterAndSearchCompose(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())
	s.Update("docs/a.txt", model.RowPatch{Status: statusPtr(model.StatusCompleted)})

	s.SetFilter(model.StatusNew)
	unsearched := paths(s.Snapshot())

	s.SetSearch("b.")
	searched := paths(s.Snapshot())

	for _, p := range searched {
		found := false
		for _, q := range unsearched {
			if p == q {
				found = true
			}
		}
		if !found {
			t.Fatalf("search result %q not a subset of filter-only result", p)
		}
	}

	s.SetSearch("")
	if !equalPaths(paths(s.Snapshot()), unsearched) {
		t.Fatal("empty search must equal filter-only projection")
	}
}

func TestSearchMatchesFolderCaseInsensitive(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())

	s.SetSearch("DOCS")
	if got := len(s.Snapshot()); got != 3 {
		t.Fatalf("expected folder match for all rows, got %d", got)
	}
}

func TestSortToggle(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())

	s.SetSort(SortSize)
	first := paths(s.Snapshot())

	s.SetSort(SortSize)
	second := paths(s.Snapshot())

	for i := range first {
		if first[i] != second[len(second)-1-i] {
			t.Fatalf("second sort is not the reverse: %v vs %v", first, second)
		}
	}

	// A new key resets to ascending.
	s.SetSort(SortName)
	got := paths(s.Snapshot())
	want := []string{"docs/a.txt", "docs/b.txt", "docs/c.txt"}
	if !equalPaths(got, want) {
		t.Fatalf("new key did not reset to ascending: %v", got)
	}
}

func TestStatusSortUsesLifecycleRank(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())
	s.Update("docs/a.txt", model.RowPatch{Status: statusPtr(model.StatusFailed)})
	s.Update("docs/b.txt", model.RowPatch{Status: statusPtr(model.StatusInProgress)})

	s.SetSortDirection(SortStatus, true)

	got := paths(s.Snapshot())
	// new < in_progress < failed by rank.
	want := []string{"docs/c.txt", "docs/b.txt", "docs/a.txt"}
	if !equalPaths(got, want) {
		t.Fatalf("unexpected status order: %v", got)
	}
}

func TestSizeSortThenFilterScenario(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())

	s.SetSortDirection(SortSize, true)
	got := paths(s.Snapshot())
	want := []string{"docs/a.txt", "docs/c.txt", "docs/b.txt"}
	if !equalPaths(got, want) {
		t.Fatalf("unexpected size order: %v", got)
	}

	s.Update("docs/b.txt", model.RowPatch{Status: statusPtr(model.StatusCompleted)})
	s.SetFilter(model.StatusCompleted)

	rows := s.Snapshot()
	if len(rows) != 1 || rows[0].Path != "docs/b.txt" {
		t.Fatalf("unexpected filtered projection: %v", paths(rows))
	}
}

func TestMarkSelectedPending(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())

	s.MarkSelectedPending(map[string]bool{"docs/a.txt": true})

	if got := s.Len(); got != 1 {
		t.Fatalf("expected 1 row after selection, got %d", got)
	}

	row, ok := s.Get("docs/a.txt")
	if !ok {
		t.Fatal("selected row missing")
	}
	if row.Status != model.StatusQueued {
		t.Fatalf("expected QUEUED, got %q", row.Status)
	}
}

func TestSnapshotIsCached(t *testing.T) {
	s := New(time.Millisecond)
	s.Hydrate(testBatch())

	a := s.Snapshot()
	b := s.Snapshot()
	if len(a) == 0 || &a[0] != &b[0] {
		t.Fatal("expected cached projection between reads without mutation")
	}

	s.Update("docs/a.txt", model.RowPatch{Progress: floatPtr(5)})
	c := s.Snapshot()
	if &a[0] == &c[0] {
		t.Fatal("expected recomputed projection after mutation")
	}
}

func TestUpdateNotificationsCoalesce(t *testing.T) {
	s := New(20 * time.Millisecond)
	s.Hydrate(testBatch())

	var n atomic.Int32
	unsub := s.Subscribe(func() { n.Add(1) })
	defer unsub()

	for i := 0; i < 10; i++ {
		s.Update("docs/a.txt", model.RowPatch{Progress: floatPtr(float64(i * 10))})
	}

	time.Sleep(60 * time.Millisecond)
	if got := n.Load(); got != 1 {
		t.Fatalf("expected 1 coalesced notification, got %d", got)
	}
}

func TestHydrateNotifiesImmediately(t *testing.T) {
	s := New(time.Hour)

	var n atomic.Int32
	unsub := s.Subscribe(func() { n.Add(1) })
	defer unsub()

	s.Hydrate(testBatch())
	if got := n.Load(); got != 1 {
		t.Fatalf("expected immediate notification, got %d", got)
	}
}

func TestClearDropsPendingNotification(t *testing.T) {
	s := New(30 * time.Millisecond)
	s.Hydrate(testBatch())

	var n atomic.Int32
	unsub := s.Subscribe(func() { n.Add(1) })
	defer unsub()

	s.Update("docs/a.txt", model.RowPatch{Progress: floatPtr(50)})
	s.Clear()

	got := n.Load()
	time.Sleep(80 * time.Millisecond)
	if n.Load() != got {
		t.Fatal("pending coalesced notification fired after Clear")
	}

	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d rows", s.Len())
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	s := New(time.Millisecond)

	var n atomic.Int32
	unsub := s.Subscribe(func() { n.Add(1) })
	unsub()

	s.Hydrate(testBatch())
	if n.Load() != 0 {
		t.Fatal("listener fired after unsubscribe")
	}
}
