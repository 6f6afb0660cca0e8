// Package oplog writes one detail log per toolchain operation. The file
// path is what the console shows on the error screen.
package oplog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// Sentinel errors for caller-checkable conditions.
var (
	ErrInvalidName = errors.New("oplog: invalid name")
	ErrClosed      = errors.New("oplog: closed")
)

// validateName checks that a name is safe for use inside a file name.
// Rejects empty, path traversal (/ \ . ..), and flag-like names (starting with -).
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: cannot be empty", ErrInvalidName)
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("%w: %q (must not start with -)", ErrInvalidName, name)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Log is an open operation log. It is safe for concurrent writes, so it
// can collect the output of a verify command while progress is logged.
type Log struct {
	path string

	mu     sync.Mutex
	file   *os.File
	closed bool
}

// Create opens a new log under dir named after the operation. An empty
// target is recorded as "default". id keeps names unique.
func Create(dir, id, op, target string) (*Log, error) {
	if target == "" {
		target = "default"
	}
	for _, n := range []string{id, op, target} {
		if err := validateName(n); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("oplog: creating directory %s: %w", dir, err)
	}

	name := fmt.Sprintf("%s-%s-%s-%s.log", time.Now().UTC().Format("20060102-150405"), op, target, id)
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("oplog: creating %s: %w", path, err)
	}

	l := &Log{path: path, file: f}
	l.Printf("%s %s (operation %s)", op, target, id)
	return l, nil
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Printf appends a timestamped line. Writes after Close are dropped.
func (l *Log) Printf(format string, args ...any) {
	line := time.Now().UTC().Format(time.RFC3339) + " " + fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_, _ = l.Write([]byte(line))
}

// Write appends raw bytes, e.g. command output.
func (l *Log) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, ErrClosed
	}
	return l.file.Write(p)
}

// Close flushes and closes the file. Closing twice is a no-op.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("oplog: closing %s: %w", l.path, err)
	}
	return nil
}

var _ io.Writer = (*Log)(nil)

// Prune removes all but the newest keep logs in dir. A missing directory
// is not an error.
func Prune(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("oplog: reading %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".log") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keep {
		return nil
	}
	// Names start with a UTC timestamp, so lexical order is age order.
	slices.Sort(names)
	for _, n := range names[:len(names)-max(keep, 0)] {
		p := filepath.Join(dir, n)
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("oplog: removing %s: %w", p, err)
		}
	}
	return nil
}
