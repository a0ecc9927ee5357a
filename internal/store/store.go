package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"batchup/internal/model"
)

type SortKey string

const (
	SortName     SortKey = "name"
	SortFolder   SortKey = "folder"
	SortSize     SortKey = "size"
	SortModTime  SortKey = "mod_time"
	SortStatus   SortKey = "status"
	SortProgress SortKey = "progress"
)

// FilterAll matches every status.
const FilterAll model.RowStatus = ""

const defaultNotifyDelay = 16 * time.Millisecond

// Store is the authoritative collection of per-file rows, keyed by path.
// Updates are copy-on-write so subscribers can rely on pointer identity for
// change detection. Mutators never return errors: unknown paths are no-ops
// and out-of-range values are clamped, since the store must not interrupt a
// live progress stream.
type Store struct {
	mu   sync.Mutex
	rows map[string]*model.Row

	filter  model.RowStatus
	search  string
	sortKey SortKey
	sortAsc bool

	frozen     bool
	frozenRows []*model.Row
	frozenIdx  map[string]int

	cache []*model.Row
	dirty bool

	listeners map[int]func()
	nextSub   int

	notify *coalescer
}

// New returns an empty store. notifyDelay bounds how often coalesced update
// notifications fire; zero selects the default tick.
func New(notifyDelay time.Duration) *Store {
	if notifyDelay <= 0 {
		notifyDelay = defaultNotifyDelay
	}

	s := &Store{
		rows:      make(map[string]*model.Row),
		sortKey:   SortName,
		sortAsc:   true,
		dirty:     true,
		listeners: make(map[int]func()),
	}
	s.notify = newCoalescer(notifyDelay, s.notifyNow)

	return s
}

// Subscribe registers a change listener and returns its unsubscribe func.
// Notifications carry no payload; listeners re-read Snapshot.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Hydrate adds rows for discovered files. A path that already exists keeps
// its current row untouched, so repeated batches never duplicate or reset.
// Notifies immediately.
func (s *Store) Hydrate(batches ...model.DiscoveryBatch) {
	s.mu.Lock()
	for _, batch := range batches {
		for _, f := range batch.Files {
			if _, exists := s.rows[f.Path]; exists {
				continue
			}

			status := model.StatusNew
			if f.Present {
				status = model.StatusAlreadyPresent
			}

			s.rows[f.Path] = &model.Row{
				Path:    f.Path,
				Name:    f.Name,
				Folder:  batch.Folder,
				Size:    f.Size,
				ModTime: f.ModTime,
				Status:  status,
			}
		}
	}
	s.dirty = true
	s.mu.Unlock()

	s.notifyImmediate()
}

// Update merges patch into the row at path via a fresh copy. Unknown paths
// are no-ops. While frozen the row's display slot is replaced in place, so
// content changes without reshuffling. Notification is coalesced.
func (s *Store) Update(path string, patch model.RowPatch) {
	s.mu.Lock()
	row, ok := s.rows[path]
	if !ok {
		s.mu.Unlock()
		return
	}

	cp := *row
	patch.Apply(&cp)
	s.rows[path] = &cp

	if s.frozen {
		if i, ok := s.frozenIdx[path]; ok {
			s.frozenRows[i] = &cp
		}
	}

	s.dirty = true
	s.mu.Unlock()

	s.notify.Schedule()
}

// MergeCompletion bulk-applies terminal patches with a single immediate
// notification, used when a terminal event carries the full result list.
func (s *Store) MergeCompletion(patches map[string]model.RowPatch) {
	s.mu.Lock()
	for path, patch := range patches {
		row, ok := s.rows[path]
		if !ok {
			continue
		}

		cp := *row
		patch.Apply(&cp)
		s.rows[path] = &cp

		if s.frozen {
			if i, ok := s.frozenIdx[path]; ok {
				s.frozenRows[i] = &cp
			}
		}
	}
	s.dirty = true
	s.mu.Unlock()

	s.notifyImmediate()
}

// MarkSelectedPending is the review-to-execution hand-off: rows outside
// selected are dropped, the rest become QUEUED.
func (s *Store) MarkSelectedPending(selected map[string]bool) {
	s.mu.Lock()
	for path, row := range s.rows {
		if !selected[path] {
			delete(s.rows, path)
			continue
		}

		cp := *row
		cp.Status = model.StatusQueued
		cp.Progress = 0
		s.rows[path] = &cp
	}

	if s.frozen {
		s.refreezeLocked()
	}

	s.dirty = true
	s.mu.Unlock()

	s.notifyImmediate()
}

// Freeze captures the current projection as a fixed-position array; until
// Unfreeze, snapshot order no longer responds to content changes.
func (s *Store) Freeze() {
	s.mu.Lock()
	if s.frozen {
		s.mu.Unlock()
		return
	}
	s.frozen = true
	s.refreezeLocked()
	s.dirty = true
	s.mu.Unlock()

	s.notifyImmediate()
}

// Unfreeze returns to the dynamic filter+sort projection.
func (s *Store) Unfreeze() {
	s.mu.Lock()
	if !s.frozen {
		s.mu.Unlock()
		return
	}
	s.frozen = false
	s.frozenRows = nil
	s.frozenIdx = nil
	s.dirty = true
	s.mu.Unlock()

	s.notifyImmediate()
}

// refreezeLocked rebuilds the frozen array from the live projection. Caller
// holds the lock and has set frozen.
func (s *Store) refreezeLocked() {
	rows := s.liveProjectionLocked()
	s.frozenRows = rows
	s.frozenIdx = make(map[string]int, len(rows))
	for i, r := range rows {
		s.frozenIdx[r.Path] = i
	}
}

// SetFilter restricts the projection to one status; FilterAll clears it.
func (s *Store) SetFilter(f model.RowStatus) {
	s.mu.Lock()
	s.filter = f
	s.dirty = true
	s.mu.Unlock()

	s.notifyImmediate()
}

// SetSearch sets the case-insensitive substring query over name and folder.
func (s *Store) SetSearch(q string) {
	s.mu.Lock()
	s.search = q
	s.dirty = true
	s.mu.Unlock()

	s.notifyImmediate()
}

// SetSort selects the sort key, toggling direction on a repeated key and
// resetting to ascending on a new one. A sort while frozen re-captures the
// frozen order once under the new key.
func (s *Store) SetSort(key SortKey) {
	s.mu.Lock()
	if key == s.sortKey {
		s.sortAsc = !s.sortAsc
	} else {
		s.sortKey = key
		s.sortAsc = true
	}
	if s.frozen {
		s.refreezeLocked()
	}
	s.dirty = true
	s.mu.Unlock()

	s.notifyImmediate()
}

// SetSortDirection sets key and direction explicitly.
func (s *Store) SetSortDirection(key SortKey, asc bool) {
	s.mu.Lock()
	s.sortKey = key
	s.sortAsc = asc
	if s.frozen {
		s.refreezeLocked()
	}
	s.dirty = true
	s.mu.Unlock()

	s.notifyImmediate()
}

// Snapshot returns the current projection. The result is recomputed only
// when a mutator has dirtied the cache; callers must treat it as read-only.
func (s *Store) Snapshot() []*model.Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dirty || s.cache == nil {
		s.cache = s.projectionLocked()
		s.dirty = false
	}

	return s.cache
}

// Len reports the number of rows independent of filter and search.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Get returns a copy of the row at path.
func (s *Store) Get(path string) (model.Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[path]
	if !ok {
		return model.Row{}, false
	}
	return *row, true
}

// Clear resets all state and drops any pending coalesced notification.
func (s *Store) Clear() {
	s.notify.Cancel()

	s.mu.Lock()
	s.rows = make(map[string]*model.Row)
	s.filter = FilterAll
	s.search = ""
	s.sortKey = SortName
	s.sortAsc = true
	s.frozen = false
	s.frozenRows = nil
	s.frozenIdx = nil
	s.cache = nil
	s.dirty = true
	s.mu.Unlock()

	s.notifyImmediate()
}

// projectionLocked runs the pipeline: source (frozen array or live map) →
// status filter → search → sort (frozen order is already authoritative).
func (s *Store) projectionLocked() []*model.Row {
	if s.frozen {
		out := make([]*model.Row, 0, len(s.frozenRows))
		for _, r := range s.frozenRows {
			if s.matchLocked(r) {
				out = append(out, r)
			}
		}
		return out
	}

	return s.liveProjectionLocked()
}

func (s *Store) liveProjectionLocked() []*model.Row {
	out := make([]*model.Row, 0, len(s.rows))
	for _, r := range s.rows {
		if s.matchLocked(r) {
			out = append(out, r)
		}
	}

	s.sortRowsLocked(out)
	return out
}

func (s *Store) matchLocked(r *model.Row) bool {
	if s.filter != FilterAll && r.Status != s.filter {
		return false
	}

	if s.search != "" {
		q := strings.ToLower(s.search)
		if !strings.Contains(strings.ToLower(r.Name), q) &&
			!strings.Contains(strings.ToLower(r.Folder), q) {
			return false
		}
	}

	return true
}

func (s *Store) sortRowsLocked(rows []*model.Row) {
	key, asc := s.sortKey, s.sortAsc

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		var less, eq bool

		switch key {
		case SortFolder:
			less, eq = a.Folder < b.Folder, a.Folder == b.Folder
		case SortSize:
			less, eq = a.Size < b.Size, a.Size == b.Size
		case SortModTime:
			less, eq = a.ModTime.Before(b.ModTime), a.ModTime.Equal(b.ModTime)
		case SortStatus:
			ra, rb := a.Status.Rank(), b.Status.Rank()
			less, eq = ra < rb, ra == rb
		case SortProgress:
			less, eq = a.Progress < b.Progress, a.Progress == b.Progress
		default:
			less, eq = a.Name < b.Name, a.Name == b.Name
		}

		if eq {
			// Ties break on path so the order is deterministic in both
			// directions.
			return a.Path < b.Path
		}
		if asc {
			return less
		}
		return !less
	})
}

// notifyImmediate fires listeners now, superseding any pending tick.
func (s *Store) notifyImmediate() {
	s.notify.Cancel()
	s.notifyNow()
}

func (s *Store) notifyNow() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
