package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bassista/go_cast/internal/logger"
	"github.com/bassista/go_cast/internal/metrics"
	"github.com/bassista/go_cast/internal/notify"
	"github.com/bassista/go_cast/internal/pagination"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads one page of a paginated resource for key at cursor.
type Fetcher func(ctx context.Context, key QueryKey, cursor pagination.Cursor) (Page, error)

// RecordFetcher loads the single record held by key.
type RecordFetcher func(ctx context.Context, key QueryKey) (Item, error)

// Store is the process-wide query cache. Entries are created lazily per key and
// are only ever cleared, never removed.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	fetchers map[string]Fetcher
	records  map[string]RecordFetcher
	derived  map[string][]QueryKey

	// flight bookkeeping, guarded by mu
	inflight   map[string]chan struct{}
	superseded map[string]chan struct{}

	pageSize int
	flight   singleflight.Group
	notifier notify.Notifier
	log      *logrus.Entry
}

// NewStore creates an empty store. A nil notifier discards fetch errors.
func NewStore(pageSize int, notifier notify.Notifier) *Store {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Store{
		entries:  map[string]*entry{},
		fetchers: map[string]Fetcher{},
		records:  map[string]RecordFetcher{},
		derived:  map[string][]QueryKey{},

		inflight:   map[string]chan struct{}{},
		superseded: map[string]chan struct{}{},

		pageSize: pagination.ClampPageSize(pageSize),
		notifier: notifier,
		log:      logger.WithComponent("query-cache"),
	}
}

// PageSize returns the page size used for initial cursors.
func (s *Store) PageSize() int {
	return s.pageSize
}

// Register sets the page fetcher for a paginated resource.
func (s *Store) Register(resource string, fetch Fetcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchers[resource] = fetch
}

// RegisterRecord sets the fetcher for a single-record resource.
func (s *Store) RegisterRecord(resource string, fetch RecordFetcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[resource] = fetch
}

// Derive declares that every invalidation of resource also invalidates the given key prefixes.
func (s *Store) Derive(resource string, prefixes ...QueryKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range prefixes {
		s.derived[resource] = append(s.derived[resource], p.clone())
	}
}

// FetchInitial fetches the page at cursor and appends it to the entry for key.
// On failure the entry is marked as errored, its pages are left untouched and
// the error is reported to the notifier once, however many callers were waiting.
func (s *Store) FetchInitial(ctx context.Context, key QueryKey, cursor pagination.Cursor) (Page, error) {
	page, _, err := s.fetchPage(ctx, key, func(*entry) (pagination.Cursor, bool) {
		return cursor, true
	})
	return page, err
}

// FetchNext fetches the page following the last one held for key. It returns
// false without any network call when the last page reports no more data.
// An entry without pages starts from the initial cursor.
func (s *Store) FetchNext(ctx context.Context, key QueryKey) (Page, bool, error) {
	return s.fetchPage(ctx, key, func(e *entry) (pagination.Cursor, bool) {
		if len(e.pages) == 0 {
			return pagination.InitialCursor(s.pageSize), true
		}
		last := e.pages[len(e.pages)-1]
		if !pagination.HasMore(last) {
			return pagination.Cursor{}, false
		}
		return pagination.NextCursor(last), true
	})
}

// Read returns the cached pages for key, fetching the first page on a miss.
func (s *Store) Read(ctx context.Context, key QueryKey) (Snapshot, error) {
	snap, err := s.Peek(key)
	if err == nil {
		metrics.RecordLookup(key.Resource(), true)
		return snap, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return Snapshot{}, err
	}
	metrics.RecordLookup(key.Resource(), false)

	_, _, err = s.fetchPage(ctx, key, func(e *entry) (pagination.Cursor, bool) {
		// another reader filled the entry between the miss and this fetch
		if len(e.pages) > 0 {
			return pagination.Cursor{}, false
		}
		return pagination.InitialCursor(s.pageSize), true
	})
	if err != nil {
		return Snapshot{}, err
	}
	snap, _ = s.Snapshot(key)
	return snap, nil
}

// Record returns the single record held by key, fetching it on a miss.
func (s *Store) Record(ctx context.Context, key QueryKey) (Item, error) {
	if item, ok := s.Data(key); ok {
		metrics.RecordLookup(key.Resource(), true)
		return item, nil
	}
	metrics.RecordLookup(key.Resource(), false)

	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	s.mu.RLock()
	fetch, ok := s.records[key.Resource()]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, key.Resource())
	}

	v, err := s.do(ctx, key, func() (any, error) {
		s.mu.Lock()
		e := s.entryLocked(key)
		if e.hasRecord {
			item := e.record
			s.mu.Unlock()
			return item, nil
		}
		version := e.version
		e.status = StatusLoading
		s.mu.Unlock()

		started := time.Now()
		item, err := fetch(context.WithoutCancel(ctx), key)
		metrics.RecordFetch(key.Resource(), time.Since(started).Seconds(), err)

		s.mu.Lock()
		applied := e.version == version
		if applied {
			if err != nil {
				e.status = StatusError
				e.err = err
			} else {
				e.record = item
				e.hasRecord = true
				e.status = StatusSuccess
				e.err = nil
				e.updatedAt = time.Now()
			}
		}
		s.mu.Unlock()

		if !applied {
			s.log.WithField("query_key", key.String()).Debug("record changed while fetching, result dropped")
		}
		if err != nil {
			err = fmt.Errorf("fetch %s: %w", key, err)
			s.notifier.Notify(err)
			return nil, err
		}
		return item, nil
	})
	if err != nil {
		return nil, err
	}
	item, _ := v.(Item)
	return item, nil
}

type fetchResult struct {
	page    Page
	fetched bool
}

func (s *Store) fetchPage(ctx context.Context, key QueryKey, cursorFor func(*entry) (pagination.Cursor, bool)) (Page, bool, error) {
	if len(key) == 0 {
		return Page{}, false, ErrEmptyKey
	}
	s.mu.RLock()
	fetch, ok := s.fetchers[key.Resource()]
	s.mu.RUnlock()
	if !ok {
		return Page{}, false, fmt.Errorf("%w: %s", ErrUnknownResource, key.Resource())
	}

	log := s.log.WithField("query_key", key.String())

	v, err := s.do(ctx, key, func() (any, error) {
		s.mu.Lock()
		e := s.entryLocked(key)
		cursor, ok := cursorFor(e)
		if !ok {
			s.mu.Unlock()
			return fetchResult{}, nil
		}
		version := e.version
		e.status = StatusLoading
		s.mu.Unlock()

		log.Debugf("fetching start=%d count=%d", cursor.Start, cursor.Count)
		started := time.Now()
		// the fetch outlives callers that stop waiting for it
		page, err := fetch(context.WithoutCancel(ctx), key, cursor)
		if err == nil && !pagination.Valid(page) {
			err = fmt.Errorf("%w: start=%d count=%d totalRecords=%d", ErrInvalidPage, page.Start, page.Count, page.TotalRecords)
		}
		metrics.RecordFetch(key.Resource(), time.Since(started).Seconds(), err)

		s.mu.Lock()
		applied := e.version == version
		if applied {
			if err != nil {
				e.status = StatusError
				e.err = err
			} else {
				stored := clonePages([]Page{page})[0]
				e.pages = append(e.pages, stored)
				e.status = StatusSuccess
				e.err = nil
				e.updatedAt = time.Now()
			}
		}
		s.mu.Unlock()

		if !applied {
			log.Debug("entry invalidated while fetching, page dropped")
		}
		if err != nil {
			err = fmt.Errorf("fetch %s: %w", key, err)
			log.Warnf("fetch failed: %v", err)
			s.notifier.Notify(err)
			return nil, err
		}
		if page.Start != cursor.Start {
			log.Warnf("server returned start=%d for requested start=%d", page.Start, cursor.Start)
		}
		return fetchResult{page: page, fetched: true}, nil
	})
	if err != nil {
		return Page{}, false, err
	}
	res := v.(fetchResult)
	return res.page, res.fetched, nil
}

// do runs fn at most once per key at a time. Callers arriving while fn is in
// flight wait for its result. A caller whose ctx ends stops waiting without
// cancelling the shared work. When the running fn was superseded by an
// invalidation, the next fn for the key starts after it returns.
func (s *Store) do(ctx context.Context, key QueryKey, fn func() (any, error)) (any, error) {
	k := key.String()
	executed := false
	ch := s.flight.DoChan(k, func() (any, error) {
		executed = true
		prev, done := s.enterFlight(k)
		defer done()
		if prev != nil {
			<-prev
		}
		return fn()
	})
	select {
	case res := <-ch:
		if !executed {
			metrics.RecordCoalesced(key.Resource())
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// enterFlight registers the running flight for k. It returns the flight this
// one superseded, if still running, and the func that marks this one finished.
func (s *Store) enterFlight(k string) (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.superseded[k]
	delete(s.superseded, k)
	running := make(chan struct{})
	s.inflight[k] = running
	return prev, func() {
		s.mu.Lock()
		if s.inflight[k] == running {
			delete(s.inflight, k)
		}
		s.mu.Unlock()
		close(running)
	}
}

// supersedeLocked detaches the flight running for k so that new callers start
// a fresh one, queued behind it.
func (s *Store) supersedeLocked(k string) {
	if running, ok := s.inflight[k]; ok {
		s.superseded[k] = running
		delete(s.inflight, k)
	}
	s.flight.Forget(k)
}

// Peek returns the cached data for key or ErrCacheMiss when there is none.
func (s *Store) Peek(key QueryKey) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key.String()]
	if !ok || !e.hasData() {
		return Snapshot{}, ErrCacheMiss
	}
	return e.snapshot(), nil
}

// Snapshot returns a copy of the entry for key, including entries without data.
func (s *Store) Snapshot(key QueryKey) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key.String()]
	if !ok {
		return Snapshot{}, false
	}
	return e.snapshot(), true
}

// Flatten concatenates the data of all pages held for key in fetch order.
func (s *Store) Flatten(key QueryKey) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key.String()]
	if !ok {
		return []Item{}
	}
	return pagination.Flatten(e.pages)
}

// Data returns the single record held by key.
func (s *Store) Data(key QueryKey) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key.String()]
	if !ok || !e.hasRecord {
		return nil, false
	}
	return e.record, true
}

// SetData stores item as the record for key without a network call.
// A record fetch in flight for key is dropped.
func (s *Store) SetData(key QueryKey, item Item) {
	s.mu.Lock()
	e := s.entryLocked(key)
	e.version++
	e.record = item
	e.hasRecord = true
	e.status = StatusSuccess
	e.err = nil
	e.updatedAt = time.Now()
	s.supersedeLocked(key.String())
	s.mu.Unlock()
}

// PatchItem replaces every item with id in the pages and record held for key
// with patch(item). Other items are left untouched. patch runs without the
// store lock; when the entry is invalidated or overwritten meanwhile the
// patched items are dropped. It reports whether a patch was stored.
func (s *Store) PatchItem(key QueryKey, id string, patch func(Item) Item) bool {
	type match struct {
		page, idx int
		item      Item
	}

	s.mu.RLock()
	e, ok := s.entries[key.String()]
	if !ok {
		s.mu.RUnlock()
		return false
	}
	version := e.version
	var matches []match
	for i := range e.pages {
		for j, item := range e.pages[i].Data {
			if item != nil && item.ItemID() == id {
				matches = append(matches, match{page: i, idx: j, item: item})
			}
		}
	}
	var record Item
	if e.hasRecord && e.record != nil && e.record.ItemID() == id {
		record = e.record
	}
	s.mu.RUnlock()

	if len(matches) == 0 && record == nil {
		return false
	}
	for i := range matches {
		matches[i].item = patch(matches[i].item)
	}
	if record != nil {
		record = patch(record)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e.version != version {
		s.log.WithField("query_key", key.String()).Debug("entry changed while patching, patch dropped")
		return false
	}
	for _, m := range matches {
		e.pages[m.page].Data[m.idx] = m.item
	}
	if record != nil {
		e.record = record
	}
	e.updatedAt = time.Now()
	return true
}

// Invalidate clears every entry whose key starts with prefix, plus the prefixes
// derived from its resource. Results of fetches in flight for cleared keys are
// dropped. The next read refetches from the initial cursor once the dropped
// fetch has finished, so a key never has two fetches running. It returns the
// number of entries that held data or a pending fetch.
func (s *Store) Invalidate(prefix QueryKey) int {
	s.mu.Lock()
	cleared := s.invalidateLocked(prefix, map[string]bool{})
	s.mu.Unlock()

	if cleared > 0 {
		s.log.WithField("query_key", prefix.String()).Debugf("invalidated %d entries", cleared)
	}
	return cleared
}

func (s *Store) invalidateLocked(prefix QueryKey, seen map[string]bool) int {
	k := prefix.String()
	if seen[k] {
		return 0
	}
	seen[k] = true

	cleared := 0
	for mapKey, e := range s.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		if e.hasData() || e.status != StatusIdle {
			cleared++
		}
		e.reset()
		s.supersedeLocked(mapKey)
	}
	if cleared > 0 {
		metrics.RecordInvalidation(prefix.Resource(), cleared)
	}
	for _, d := range s.derived[prefix.Resource()] {
		cleared += s.invalidateLocked(d, seen)
	}
	return cleared
}

// Clear resets every entry.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for mapKey, e := range s.entries {
		e.reset()
		s.supersedeLocked(mapKey)
	}
	return len(s.entries)
}

// Keys returns the keys of all entries, sorted.
func (s *Store) Keys() []QueryKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]QueryKey, 0, len(s.entries))
	for _, e := range s.entries {
		keys = append(keys, e.key.clone())
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func (s *Store) entryLocked(key QueryKey) *entry {
	k := key.String()
	e, ok := s.entries[k]
	if !ok {
		e = &entry{key: key.clone()}
		s.entries[k] = e
		metrics.SetCacheEntries(len(s.entries))
	}
	return e
}
