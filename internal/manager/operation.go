package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smileynet/tcon/internal/console"
	"github.com/smileynet/tcon/internal/oplog"
	"github.com/smileynet/tcon/internal/pending"
)

// operation is one mutating call in flight. Writes go to its log.
type operation struct {
	*oplog.Log
	record pending.Record
}

type opFunc func(ctx context.Context, op *operation) (string, error)

// run wraps fn with the operation log, the pending journal and the
// configured timeout, and converts the outcome into a terminal session.
func (m *Manager) run(ctx context.Context, kind console.OpType, target string, fn opFunc) console.OperationSession {
	id := uuid.NewString()
	session := console.OperationSession{ID: id, Type: kind, Target: target}

	l, err := oplog.Create(m.opts.LogDir, id, string(kind), displayTarget(target))
	if err != nil {
		m.logger.Printf("%s %s: %v", kind, target, err)
		session.State = console.Failed{Message: err.Error()}
		return session
	}
	defer l.Close()
	session.LogPath = l.Path()

	op := &operation{Log: l, record: pending.Record{
		ID:        id,
		Operation: string(kind),
		Target:    target,
		State:     pending.StateRunning,
		LogPath:   l.Path(),
	}}
	m.track(id)
	defer m.untrack(id)
	if err := m.journal.Append(op.record); err != nil {
		m.logger.Printf("journal: %v", err)
	}

	if m.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.Timeout)
		defer cancel()
	}

	msg, err := fn(ctx, op)
	session.State = outcome(msg, err, l.Path(), m.opts.Timeout)
	m.close(op, session.State)
	m.logger.Printf("%s %s: %s", kind, displayTarget(target), session.StateDescription())
	return session
}

func outcome(msg string, err error, logPath string, timeout time.Duration) console.State {
	switch {
	case err == nil:
		return console.Succeeded{Message: msg}
	case errors.Is(err, context.Canceled):
		return console.Cancelled{Message: "Cancelled", LogPath: logPath}
	case errors.Is(err, context.DeadlineExceeded):
		return console.Failed{Message: fmt.Sprintf("timed out after %s", timeout), LogPath: logPath}
	default:
		return console.Failed{Message: err.Error(), LogPath: logPath}
	}
}

// close writes the terminal journal record and the final log line.
func (m *Manager) close(op *operation, state console.State) {
	op.Printf("result: %s", state.Describe())
	r := op.record
	r.State = state.Name()
	r.Message = state.Describe()
	if err := m.journal.Append(r); err != nil {
		m.logger.Printf("journal: %v", err)
	}
}
