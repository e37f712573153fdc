package repository

import "context"

// ChangeFunc is called when the connected user changes on disk.
type ChangeFunc func(prev, next Session)

// SessionReader exposes the last loaded session.
// Small interface used by request handlers.
type SessionReader interface {
	Current() (Session, error)
}

// Repository abstracts persistence and watching of the session file.
// JSONRepository implements this interface.
type Repository interface {
	SessionReader
	Load() (Session, error)
	Save(s Session) error
	StartWatcher(ctx context.Context, onChange ChangeFunc) error
}
