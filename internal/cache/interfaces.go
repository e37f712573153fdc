package cache

import "context"

// Reader is the read-only view of the cache handed to consumers that only display data.
type Reader interface {
	Snapshot(key QueryKey) (Snapshot, bool)
	Flatten(key QueryKey) []Item
	Data(key QueryKey) (Item, bool)
	Keys() []QueryKey
}

// Writer applies post-mutation side effects.
type Writer interface {
	Keys() []QueryKey
	Invalidate(prefix QueryKey) int
	PatchItem(key QueryKey, id string, patch func(Item) Item) bool
	SetData(key QueryKey, item Item)
}

// QueryStore is what typed queries need from the cache.
type QueryStore interface {
	Reader
	PageSize() int
	Read(ctx context.Context, key QueryKey) (Snapshot, error)
	FetchNext(ctx context.Context, key QueryKey) (Page, bool, error)
	Record(ctx context.Context, key QueryKey) (Item, error)
}

var (
	_ QueryStore = (*Store)(nil)
	_ Writer     = (*Store)(nil)
)
