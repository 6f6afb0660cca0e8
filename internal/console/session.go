package console

import (
	"errors"
	"fmt"
)

// OpType identifies the kind of operation a session tracks.
type OpType string

const (
	OpList    OpType = "list"
	OpDetail  OpType = "detail"
	OpSwitch  OpType = "switch"
	OpInstall OpType = "install"
	OpUpdate  OpType = "update"
	OpRemove  OpType = "remove"
)

// NeedsTarget reports whether the operation cannot run without an explicit
// toolchain identifier. Install and update fall back to a default target.
func (t OpType) NeedsTarget() bool {
	switch t {
	case OpSwitch, OpRemove, OpDetail:
		return true
	default:
		return false
	}
}

// State is the lifecycle state of an OperationSession. The concrete
// variants are Pending, Running, Succeeded, Failed and Cancelled.
type State interface {
	// Name is the lowercase state label used in the pending-session log.
	Name() string
	// Describe renders the state for status lines and detail views.
	Describe() string
	// ErrorDescription renders the state for the error screen.
	ErrorDescription() string
	// Terminal reports whether the session can no longer change.
	Terminal() bool

	isState()
}

// Verify at compile time that all variants implement State.
var (
	_ State = Pending{}
	_ State = Running{}
	_ State = Succeeded{}
	_ State = Failed{}
	_ State = Cancelled{}
)

// Pending is the state of a dispatched operation that has not reported yet.
type Pending struct{}

func (Pending) Name() string               { return "pending" }
func (Pending) Describe() string           { return "pending" }
func (p Pending) ErrorDescription() string { return p.Describe() }
func (Pending) Terminal() bool             { return false }
func (Pending) isState()                   {}

// Running carries the latest progress callback for an operation.
type Running struct {
	Percent int
	Detail  string
}

func (Running) Name() string { return "running" }

func (r Running) Describe() string {
	s := fmt.Sprintf("running %d%%", r.Percent)
	if r.Detail != "" {
		s += " - " + r.Detail
	}
	return s
}

func (r Running) ErrorDescription() string { return r.Describe() }
func (Running) Terminal() bool             { return false }
func (Running) isState()                   {}

// Succeeded is the terminal state of a completed operation.
type Succeeded struct {
	Message string
}

func (Succeeded) Name() string               { return "succeeded" }
func (s Succeeded) Describe() string         { return "success: " + s.Message }
func (s Succeeded) ErrorDescription() string { return s.Describe() }
func (Succeeded) Terminal() bool             { return true }
func (Succeeded) isState()                   {}

// Failed is the terminal state of an operation that returned an error.
type Failed struct {
	Message string
	LogPath string
}

func (Failed) Name() string { return "failed" }

func (f Failed) Describe() string {
	return "failed: " + f.Message + logSuffix(f.LogPath)
}

func (f Failed) ErrorDescription() string {
	return "Failed: " + f.Message + logSuffix(f.LogPath)
}

func (Failed) Terminal() bool { return true }
func (Failed) isState()       {}

// Cancelled is the terminal state of an operation that was abandoned,
// interrupted, or could not be replayed. Message may be empty.
type Cancelled struct {
	Message string
	LogPath string
}

func (Cancelled) Name() string { return "cancelled" }

func (c Cancelled) Describe() string {
	msg := c.Message
	if msg == "" {
		msg = "cancelled"
	}
	return msg + logSuffix(c.LogPath)
}

func (c Cancelled) ErrorDescription() string {
	msg := c.Message
	if msg == "" {
		msg = "Cancelled"
	}
	return msg + logSuffix(c.LogPath)
}

func (Cancelled) Terminal() bool { return true }
func (Cancelled) isState()       {}

func logSuffix(path string) string {
	if path == "" {
		return ""
	}
	return " (log: " + path + ")"
}

// OperationSession records one operation and its outcome. Sessions are
// values; a retry produces a new session rather than mutating the old one.
type OperationSession struct {
	ID      string // Manager-assigned operation ID; empty when unknown.
	Type    OpType
	Target  string // Empty means the manager picks the implied target.
	State   State
	LogPath string
}

// NewSession returns a pending session for the given operation.
func NewSession(op OpType, target string) OperationSession {
	return OperationSession{Type: op, Target: target, State: Pending{}}
}

// StateDescription renders the session state for status lines.
func (s OperationSession) StateDescription() string {
	if s.State == nil {
		return Pending{}.Describe()
	}
	return s.State.Describe()
}

// ErrorDescription renders the session state for the error screen.
func (s OperationSession) ErrorDescription() string {
	if s.State == nil {
		return Pending{}.ErrorDescription()
	}
	return s.State.ErrorDescription()
}

// Terminal reports whether the session has finished.
func (s OperationSession) Terminal() bool {
	return s.State != nil && s.State.Terminal()
}

// LogFile returns the most specific log path known for the session:
// the one attached to a failed or cancelled state, else the session's own.
func (s OperationSession) LogFile() string {
	switch st := s.State.(type) {
	case Failed:
		if st.LogPath != "" {
			return st.LogPath
		}
	case Cancelled:
		if st.LogPath != "" {
			return st.LogPath
		}
	}
	return s.LogPath
}

// WithState returns a copy of the session in the given state.
func (s OperationSession) WithState(st State) OperationSession {
	s.State = st
	return s
}

// ErrNoRetryTarget is returned by PlanRetry when a session needs an
// explicit target but none was recorded.
var ErrNoRetryTarget = errors.New("no target to retry")
