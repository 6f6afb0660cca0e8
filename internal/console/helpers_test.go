package console

import (
	"context"
	"strings"
	"sync"
	"testing"
)

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] < 'A' || s[j] > 'Z') && (s[j] < 'a' || s[j] > 'z') {
				j++
			}
			if j < len(s) {
				j++
			}
			i = j
		} else {
			out = append(out, s[i])
			i++
		}
	}
	return string(out)
}

// containsPlainText checks if s contains sub after stripping ANSI escapes.
func containsPlainText(s, sub string) bool {
	return strings.Contains(stripANSI(s), sub)
}

// rec builds an installed toolchain record.
func rec(id string, active bool) ToolchainRecord {
	return ToolchainRecord{ID: id, Channel: ChannelStable, Installed: true, Active: active}
}

// avail builds a catalog record that is not installed.
func avail(id string, ch Channel) ToolchainRecord {
	return ToolchainRecord{ID: id, Channel: ch}
}

// sampleToolchains is the two-toolchain fixture used across reducer tests.
func sampleToolchains() []ToolchainRecord {
	return []ToolchainRecord{rec("swift-6.0.1", false), rec("swift-6.0.2", true)}
}

// reduceAll folds actions over m and returns the final model and the last
// non-nil command.
func reduceAll(t *testing.T, m Model, actions ...Action) (Model, Command) {
	t.Helper()
	var last Command
	for _, a := range actions {
		var cmd Command
		m, cmd = Reduce(m, a)
		if cmd != nil {
			last = cmd
		}
	}
	return m, last
}

// loadedList returns a model on the installed list holding list.
func loadedList(t *testing.T, list []ToolchainRecord) Model {
	t.Helper()
	m, cmd := Reduce(NewModel(DefaultViewport), Start{Kind: ActionList})
	load, ok := cmd.(LoadInstalled)
	if !ok {
		t.Fatalf("Start(list) command = %T, want LoadInstalled", cmd)
	}
	m, _ = Reduce(m, ListLoaded{Epoch: load.Epoch, Toolchains: list})
	return m
}

// stubCall records one Manager call.
type stubCall struct {
	Op     OpType
	Target string
}

// stubManager is an in-memory Manager for runner and app tests.
type stubManager struct {
	mu         sync.Mutex
	installed  []ToolchainRecord
	available  []ToolchainRecord
	catalogErr string
	result     func(op OpType, id string) OperationSession
	progress   []int
	pending    *OperationSession
	acked      []string
	calls      []stubCall
}

func (s *stubManager) record(op OpType, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, stubCall{Op: op, Target: id})
}

func (s *stubManager) Calls() []stubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stubCall(nil), s.calls...)
}

func (s *stubManager) outcome(op OpType, id string) OperationSession {
	if s.result != nil {
		return s.result(op, id)
	}
	return OperationSession{Type: op, Target: id, State: Succeeded{Message: string(op) + " " + id + " done"}}
}

func (s *stubManager) List(context.Context) []ToolchainRecord {
	return s.installed
}

func (s *stubManager) ListAvailable(context.Context) ([]ToolchainRecord, string) {
	return s.available, s.catalogErr
}

func (s *stubManager) SwitchTo(_ context.Context, id string) OperationSession {
	s.record(OpSwitch, id)
	return s.outcome(OpSwitch, id)
}

func (s *stubManager) Install(_ context.Context, id string, progress ProgressFunc) OperationSession {
	s.record(OpInstall, id)
	for _, p := range s.progress {
		progress(p, "step")
	}
	return s.outcome(OpInstall, id)
}

func (s *stubManager) Uninstall(_ context.Context, id string) OperationSession {
	s.record(OpRemove, id)
	return s.outcome(OpRemove, id)
}

func (s *stubManager) Update(_ context.Context, id string, progress ProgressFunc) OperationSession {
	s.record(OpUpdate, id)
	for _, p := range s.progress {
		progress(p, "step")
	}
	return s.outcome(OpUpdate, id)
}

func (s *stubManager) LoadPendingSession(context.Context) (OperationSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return OperationSession{}, false
	}
	return *s.pending, true
}

func (s *stubManager) AcknowledgePending(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked = append(s.acked, id)
	if s.pending != nil && s.pending.ID == id {
		s.pending = nil
	}
	return nil
}

func (s *stubManager) Acked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.acked...)
}

// fakeClipboard records copied text.
type fakeClipboard struct {
	text string
	err  error
}

func (c *fakeClipboard) WriteAll(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}
