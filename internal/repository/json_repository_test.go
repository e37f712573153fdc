package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeSession(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write session file: %v", err)
	}
}

func TestNewJSONRepository_Success(t *testing.T) {
	repo, err := NewJSONRepository("/tmp/test-session.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo == nil {
		t.Error("expected repository to be created")
	}
}

func TestNewJSONRepository_EmptyPath(t *testing.T) {
	_, err := NewJSONRepository("")
	if err == nil {
		t.Error("expected error for empty path")
	}
}

func TestJSONRepository_LoadEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	writeSession(t, path, "{}")

	repo, _ := NewJSONRepository(path)
	s, err := repo.Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if s.LoggedIn() {
		t.Error("expected logged out session")
	}
	if _, err := repo.Current(); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestJSONRepository_LoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	writeSession(t, path, "")

	repo, _ := NewJSONRepository(path)
	if _, err := repo.Load(); err != nil {
		t.Errorf("expected empty file to load as logged out, got %v", err)
	}
}

func TestJSONRepository_Load_FileNotFound(t *testing.T) {
	repo, _ := NewJSONRepository("/nonexistent/path/session.json")
	if _, err := repo.Load(); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestJSONRepository_Load_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	writeSession(t, path, "not valid json")

	repo, _ := NewJSONRepository(path)
	if _, err := repo.Load(); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestJSONRepository_Load_ValidationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	writeSession(t, path, `{"addr":"not-an-address","serviceUid":"x"}`)

	repo, _ := NewJSONRepository(path)
	if _, err := repo.Load(); err == nil {
		t.Error("expected validation error")
	}
}

func TestJSONRepository_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	repo, _ := NewJSONRepository(path)

	if err := repo.Save(Session{Addr: "0x01cf0e2f2f715450", ServiceUID: "uid"}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	current, err := repo.Current()
	if err != nil {
		t.Fatalf("expected current session after save: %v", err)
	}
	if current.UpdatedAt == 0 {
		t.Error("expected UpdatedAt to be stamped on save")
	}

	other, _ := NewJSONRepository(path)
	loaded, err := other.Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if loaded != current {
		t.Errorf("expected %+v, got %+v", current, loaded)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the session file in dir, got %d entries", len(entries))
	}
}

func TestJSONRepository_Save_ValidationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	repo, _ := NewJSONRepository(path)

	if err := repo.Save(Session{Addr: "0x01"}); err == nil {
		t.Error("expected validation error on save")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected no file written for invalid session")
	}
}

func TestJSONRepository_WatcherCallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	writeSession(t, path, `{"addr":"0x01","serviceUid":"a"}`)
	repo, _ := NewJSONRepository(path)
	if _, err := repo.Load(); err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	var changes [][2]Session
	reload := repo.(*JSONRepository).MakeWatcherCallback(func(prev, next Session) {
		changes = append(changes, [2]Session{prev, next})
	})

	// same user, different service: no change
	writeSession(t, path, `{"addr":"0x01","serviceUid":"b"}`)
	reload()
	if len(changes) != 0 {
		t.Fatalf("expected no change for same user, got %d", len(changes))
	}

	// invalid file keeps the previous session
	writeSession(t, path, `{"addr":`)
	reload()
	if len(changes) != 0 {
		t.Fatalf("expected no change for invalid file, got %d", len(changes))
	}

	writeSession(t, path, `{"addr":"0x02","serviceUid":"b"}`)
	reload()
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	if changes[0][0].Addr != "0x01" || changes[0][1].Addr != "0x02" {
		t.Errorf("unexpected change %+v", changes[0])
	}

	writeSession(t, path, `{}`)
	reload()
	if len(changes) != 2 || changes[1][1].LoggedIn() {
		t.Errorf("expected logout change, got %+v", changes)
	}
}

func TestJSONRepository_StartWatcher_NilCallback(t *testing.T) {
	repo, _ := NewJSONRepository(filepath.Join(t.TempDir(), "session.json"))
	if err := repo.StartWatcher(context.Background(), nil); err == nil {
		t.Error("expected error for nil callback")
	}
}

func TestJSONRepository_StartWatcher_DetectsUserChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	writeSession(t, path, `{}`)
	repo, _ := NewJSONRepository(path)
	if _, err := repo.Load(); err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []Session
	err := repo.StartWatcher(ctx, func(_, next Session) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, next)
	})
	if err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}

	// unrelated files in the same dir are ignored
	writeSession(t, filepath.Join(dir, "other.json"), `{"addr":"0x09","serviceUid":"x"}`)

	other, _ := NewJSONRepository(path)
	if err := other.Save(Session{Addr: "0x0a", ServiceUID: "uid"}); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected exactly one change notification, got %d", len(got))
	}
	if got[0].Addr != "0x0a" {
		t.Errorf("expected new address 0x0a, got %s", got[0].Addr)
	}
	current, err := repo.Current()
	if err != nil || current.Addr != "0x0a" {
		t.Errorf("expected current session to follow the file, got %+v (%v)", current, err)
	}
}
