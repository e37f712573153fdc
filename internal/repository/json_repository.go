package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bassista/go_cast/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// JSONRepository handles disk persistence and watching of the session file.
type JSONRepository struct {
	path      string
	dir       string
	base      string
	validator *validator.Validate
	logger    *logrus.Entry
	mu        sync.Mutex
	current   Session
}

// NewJSONRepository creates a repository for the given JSON file path.
// It returns the repository interface to avoid leaking implementation details.
func NewJSONRepository(path string) (Repository, error) {
	if path == "" {
		return nil, errors.New("session file path is required")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "" || dir == "." {
		dir = "."
	}

	return &JSONRepository{
		path:      path,
		dir:       dir,
		base:      base,
		validator: validator.New(),
		logger:    logger.WithComponent("session-repo"),
	}, nil
}

// Load reads the JSON file, parses and validates it, and remembers it as current.
func (r *JSONRepository) Load() (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.loadUnlocked()
	if err != nil {
		return Session{}, err
	}
	r.current = s
	return s, nil
}

// Current returns the last loaded or saved session, or ErrNoSession when logged out.
func (r *JSONRepository) Current() (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.current.LoggedIn() {
		return Session{}, ErrNoSession
	}
	return r.current, nil
}

// loadUnlocked reads the JSON file without acquiring the lock (caller must hold it).
func (r *JSONRepository) loadUnlocked() (Session, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return Session{}, fmt.Errorf("open session file: %w", err)
	}
	defer file.Close()

	var s Session
	if err := json.NewDecoder(file).Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Session{}, fmt.Errorf("decode session file: %w", err)
	}

	if err := r.validator.Struct(&s); err != nil {
		return Session{}, fmt.Errorf("validate session file: %w", err)
	}
	return s, nil
}

// Save validates and writes the session atomically to disk.
func (r *JSONRepository) Save(s Session) error {
	if err := r.validator.Struct(&s); err != nil {
		return fmt.Errorf("validate before save: %w", err)
	}
	if s.UpdatedAt == 0 {
		s.UpdatedAt = time.Now().UnixMilli()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.saveUnlocked(s); err != nil {
		return err
	}
	r.current = s
	return nil
}

// saveUnlocked writes the session without acquiring the lock (caller must hold it).
func (r *JSONRepository) saveUnlocked(s Session) error {
	payload, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmpFile, err := os.CreateTemp(r.dir, r.base+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	if _, err := tmpFile.Write(payload); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), r.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// StartWatcher listens for changes to the session file and calls onChange
// when the connected user differs from the previous one.
// It watches the parent directory (not the file) so atomic replace sequences (temp+rename)
// are still observed. Events are filtered by basename and debounced.
// Cancel ctx to stop the goroutine and close the watcher.
func (r *JSONRepository) StartWatcher(ctx context.Context, onChange ChangeFunc) error {
	if onChange == nil {
		return errors.New("onChange callback is required")
	}
	reload := r.MakeWatcherCallback(onChange)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir: %w", err)
	}

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		schedule := func() {
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, reload)
		}

		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != r.base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					schedule()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warnf("watcher error: %v", err)
			}
		}
	}()

	return nil
}

// MakeWatcherCallback returns the reload run after a debounced file event.
// A file that fails to load keeps the previous session.
func (r *JSONRepository) MakeWatcherCallback(onChange ChangeFunc) func() {
	return func() {
		r.mu.Lock()
		prev := r.current
		next, err := r.loadUnlocked()
		if err == nil {
			r.current = next
		}
		r.mu.Unlock()

		if err != nil {
			r.logger.Warnf("session reload failed: %v", err)
			return
		}
		if SameUser(prev, next) {
			r.logger.Debug("session file changed, same user")
			return
		}
		r.logger.Infof("connected wallet changed from '%s' to '%s'", prev.Addr, next.Addr)
		onChange(prev, next)
	}
}
