package cache

import (
	"time"

	"github.com/bassista/go_cast/internal/pagination"
)

// Item is a cached record addressable by id.
type Item interface {
	ItemID() string
}

// Page is a fetched batch of cached items.
type Page = pagination.Page[Item]

// Status is the loading state of an entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// MarshalText renders the status by name in JSON views.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// entry is the mutable state for one query key. Guarded by Store.mu.
type entry struct {
	key       QueryKey
	pages     []Page
	record    Item
	hasRecord bool
	status    Status
	err       error
	// version is bumped by every invalidation and SetData so results of
	// fetches started before it are dropped instead of applied.
	version   uint64
	updatedAt time.Time
}

func (e *entry) reset() {
	e.pages = nil
	e.record = nil
	e.hasRecord = false
	e.status = StatusIdle
	e.err = nil
	e.version++
	e.updatedAt = time.Time{}
}

func (e *entry) hasData() bool {
	return len(e.pages) > 0 || e.hasRecord
}

// Snapshot is a read-only copy of an entry. Page slices are copied, items are shared.
type Snapshot struct {
	Key       QueryKey
	Pages     []Page
	Record    Item
	HasRecord bool
	Status    Status
	Err       error
	Version   uint64
	UpdatedAt time.Time
}

// Items concatenates the data of all pages in fetch order.
func (s Snapshot) Items() []Item {
	return pagination.Flatten(s.Pages)
}

// LastPage returns the most recently appended page.
func (s Snapshot) LastPage() (Page, bool) {
	if len(s.Pages) == 0 {
		return Page{}, false
	}
	return s.Pages[len(s.Pages)-1], true
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		Key:       e.key.clone(),
		Pages:     clonePages(e.pages),
		Record:    e.record,
		HasRecord: e.hasRecord,
		Status:    e.status,
		Err:       e.err,
		Version:   e.version,
		UpdatedAt: e.updatedAt,
	}
}

func clonePages(pages []Page) []Page {
	if pages == nil {
		return nil
	}
	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = p
		out[i].Data = append([]Item(nil), p.Data...)
	}
	return out
}
