// Package pagination computes the request window for offset-based paginated
// resources of the governance API.
package pagination

const (
	// DefaultPageSize is the page size used when none is configured.
	DefaultPageSize = 10
	// MaxPageSize is the largest page size the API accepts.
	MaxPageSize = 25
	// NoMorePages is the Next value the API reports on the last page.
	NoMorePages = -1
)

// Page is one fetched batch of items plus the pagination metadata reported by the server.
type Page[T any] struct {
	Data         []T `json:"data"`
	Start        int `json:"start"`
	Count        int `json:"count"`
	TotalRecords int `json:"totalRecords"`
	Next         int `json:"next"`
}

// Cursor is the minimal state needed to request the following page.
type Cursor struct {
	Start        int `json:"start"`
	Count        int `json:"count"`
	TotalRecords int `json:"totalRecords"`
	Next         int `json:"next"`
}

// Summary describes the pagination state of a list of fetched pages.
type Summary struct {
	Start        int `json:"start"`
	Count        int `json:"count"`
	TotalRecords int `json:"totalRecords"`
	Next         int `json:"next"`
}

// ClampPageSize bounds size to [1, MaxPageSize], falling back to DefaultPageSize for non-positive values.
func ClampPageSize(size int) int {
	switch {
	case size <= 0:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	default:
		return size
	}
}

// InitialCursor returns the cursor for the first request of a resource.
func InitialCursor(pageSize int) Cursor {
	return Cursor{Start: 0, Count: ClampPageSize(pageSize), TotalRecords: 0, Next: NoMorePages}
}

// NextCursor computes the window that starts right after lastPage, keeping its page
// size and carrying forward the server-reported total and next indicator.
// It does not check Next: callers stop paginating when HasMore reports false.
func NextCursor[T any](lastPage Page[T]) Cursor {
	return Cursor{
		Start:        lastPage.Start + lastPage.Count,
		Count:        lastPage.Count,
		TotalRecords: lastPage.TotalRecords,
		Next:         lastPage.Next,
	}
}

// HasMore reports whether the server announced a page after p.
func HasMore[T any](p Page[T]) bool {
	return p.Next != NoMorePages
}

// Valid reports whether the page metadata is non-negative.
func Valid[T any](p Page[T]) bool {
	return p.Start >= 0 && p.Count >= 0 && p.TotalRecords >= 0
}

// Summarize returns the pagination state of the last page, or the defaults
// (0, defaultCount, 0, NoMorePages) when nothing has been fetched yet.
func Summarize[T any](pages []Page[T], defaultCount int) Summary {
	if len(pages) == 0 {
		return Summary{Start: 0, Count: defaultCount, TotalRecords: 0, Next: NoMorePages}
	}
	last := pages[len(pages)-1]
	return Summary{Start: last.Start, Count: last.Count, TotalRecords: last.TotalRecords, Next: last.Next}
}

// Flatten concatenates the data of all pages in order.
func Flatten[T any](pages []Page[T]) []T {
	n := 0
	for _, p := range pages {
		n += len(p.Data)
	}
	out := make([]T, 0, n)
	for _, p := range pages {
		out = append(out, p.Data...)
	}
	return out
}

// Map converts the items of a page, keeping its metadata.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := Page[U]{
		Data:         make([]U, len(p.Data)),
		Start:        p.Start,
		Count:        p.Count,
		TotalRecords: p.TotalRecords,
		Next:         p.Next,
	}
	for i, item := range p.Data {
		out.Data[i] = fn(item)
	}
	return out
}
