// Package pending persists the operation journal that lets a new console
// session notice an operation the previous process never finished.
package pending

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Journal states. They match the console's state names.
const (
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
	StateCancelled = "cancelled"
)

// ErrInvalidID indicates a record without an operation ID.
var ErrInvalidID = errors.New("pending: invalid operation ID")

// Record is one line of the journal. The last line for an ID is the
// operation's current state.
type Record struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Target    string    `json:"target"`
	State     string    `json:"state"`
	Message   string    `json:"message,omitempty"`
	LogPath   string    `json:"log_path,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the record closes its operation.
func (r Record) Terminal() bool {
	switch r.State {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Store appends records to a line-delimited JSON file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a Store backed by path. The file is created on first
// append.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the journal file path.
func (s *Store) Path() string {
	return s.path
}

// Append writes r as one line. A zero UpdatedAt is set to now.
func (s *Store) Append(r Record) error {
	if r.ID == "" {
		return ErrInvalidID
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("pending: marshaling: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("pending: creating directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("pending: opening %s: %w", s.path, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("pending: writing %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("pending: closing %s: %w", s.path, err)
	}
	return nil
}

// Interrupted returns the most recently updated operation whose last
// record is not terminal and for which skip returns false. A nil skip
// keeps every operation. Returns (record, true, nil) if found,
// (zero, false, nil) if every operation finished or the journal is absent.
// Malformed lines are skipped.
func (s *Store) Interrupted(skip func(id string) bool) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, order, err := s.scan()
	if err != nil {
		return Record{}, false, err
	}

	var (
		found  Record
		newest = -1
	)
	for id, r := range last {
		if r.Terminal() || (skip != nil && skip(id)) {
			continue
		}
		if order[id] > newest {
			newest = order[id]
			found = r
		}
	}
	return found, newest >= 0, nil
}

// Lookup returns the last record written for id.
func (s *Store) Lookup(id string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, _, err := s.scan()
	if err != nil {
		return Record{}, false, err
	}
	r, ok := last[id]
	return r, ok, nil
}

// Acknowledge closes r with a cancelled record so it is reported once.
func (s *Store) Acknowledge(r Record, message string) error {
	r.State = StateCancelled
	r.Message = message
	r.UpdatedAt = time.Time{}
	return s.Append(r)
}

// scan reads the journal and returns the last record per ID together with
// the line it appeared on. Callers hold s.mu.
func (s *Store) scan() (map[string]Record, map[string]int, error) {
	last := make(map[string]Record)
	order := make(map[string]int)

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return last, order, nil
		}
		return nil, nil, fmt.Errorf("pending: reading %s: %w", s.path, err)
	}
	defer f.Close()

	line := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line++
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil || r.ID == "" {
			continue
		}
		last[r.ID] = r
		order[r.ID] = line
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("pending: scanning %s: %w", s.path, err)
	}
	return last, order, nil
}
