package cache

import "errors"

var (
	// ErrCacheMiss signals that a key holds no data yet. It is internal to the
	// read path and triggers a fetch; it is never reported to the error sink.
	ErrCacheMiss = errors.New("cache miss")
	// ErrUnknownResource is returned when no fetcher is registered for a key's resource.
	ErrUnknownResource = errors.New("no fetcher registered for resource")
	// ErrEmptyKey is returned for keys without a resource name.
	ErrEmptyKey = errors.New("empty query key")
)

// ErrInvalidPage is returned when the API reports negative pagination metadata.
var ErrInvalidPage = errors.New("invalid page metadata")
