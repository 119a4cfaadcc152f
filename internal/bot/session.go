package bot

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"maunium.net/go/mautrix/id"
)

// Record is the persisted session: everything needed to rebuild the client
// without logging in again, plus the resynchronization cursor.
type Record struct {
	Homeserver  string      `json:"homeserver"`
	UserID      id.UserID   `json:"user_id"`
	DeviceID    id.DeviceID `json:"device_id"`
	AccessToken string      `json:"access_token"`

	// StorePath and StorePassphrase are generated at login for the client
	// state store. The passphrase is reserved for an encrypted store.
	StorePath       string `json:"store_path"`
	StorePassphrase string `json:"store_passphrase"`

	FilterID string `json:"filter_id,omitempty"`

	// NextBatch is the sync cursor; rewritten after every processed batch.
	NextBatch string `json:"next_batch,omitempty"`
}

// Session owns the session file. The record is created once at login,
// loaded on every later start, and its cursor field is rewritten for the
// whole life of the receive loop; the file is never deleted here. Writes
// are serialized behind the mutex and flushed before returning so that a
// crash after batch N restarts from batch N.
type Session struct {
	path string

	mu     sync.Mutex
	record Record
}

// SessionPath is where the session record lives under the data directory.
func SessionPath(dataDir string) string {
	return filepath.Join(dataDir, "session.json")
}

// SessionExists reports whether a persisted record is present.
func SessionExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadSession restores a previously persisted session record.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Homeserver == "" || rec.AccessToken == "" {
		return nil, errors.New("session file is incomplete")
	}

	return &Session{path: path, record: rec}, nil
}

// NewSession persists a fresh record (cursor empty) and returns its handle.
func NewSession(path string, rec Record) (*Session, error) {
	s := &Session{path: path, record: rec}
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// Record returns a copy of the current record.
func (s *Session) Record() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

func (s *Session) NextBatch() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.NextBatch
}

// SetNextBatch updates the cursor and flushes the record to disk before
// returning. The caller must not issue the next wait-for-batch call until
// this has returned.
func (s *Session) SetNextBatch(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.NextBatch = token
	return s.persistLocked()
}

func (s *Session) FilterID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.FilterID
}

func (s *Session) SetFilterID(filterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.FilterID = filterID
	return s.persistLocked()
}

// persistLocked writes the record atomically (temp file + rename) with
// 0600 permissions. Callers hold s.mu.
func (s *Session) persistLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(&s.record, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calbot-session-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, s.path)
}

const alphanumerics = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomString returns n random alphanumeric characters, used for the
// per-login store subdirectory and passphrase.
func randomString(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = alphanumerics[int(b)%len(alphanumerics)]
	}
	return string(buf)
}
