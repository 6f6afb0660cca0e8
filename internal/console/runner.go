package console

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// progressBuffer is the capacity of the progress channel.
const progressBuffer = 16

// Runner executes Commands against a Manager. Each Command runs in its own
// Bubble Tea command goroutine and yields at most one Action. Progress
// callbacks travel on a channel owned by the Runner and re-enter the
// update loop through WaitForProgress.
type Runner struct {
	ctx       context.Context
	manager   Manager
	clipboard Clipboard
	progress  chan OperationProgress
	logger    *log.Logger

	mu       sync.Mutex
	stopped  bool
	inflight sync.WaitGroup
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the debug logger. The default discards output.
func WithLogger(l *log.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClipboard replaces the system clipboard.
func WithClipboard(c Clipboard) RunnerOption {
	return func(r *Runner) {
		if c != nil {
			r.clipboard = c
		}
	}
}

// NewRunner returns a Runner bound to ctx. Cancelling ctx stops progress
// delivery; operations already running see the cancellation through their
// context.
func NewRunner(ctx context.Context, manager Manager, opts ...RunnerOption) *Runner {
	r := &Runner{
		ctx:       ctx,
		manager:   manager,
		clipboard: SystemClipboard{},
		progress:  make(chan OperationProgress, progressBuffer),
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run returns the tea.Cmd that executes cmd, or nil for a nil Command.
func (r *Runner) Run(cmd Command) tea.Cmd {
	switch cmd := cmd.(type) {
	case nil:
		return nil
	case Quit:
		r.logger.Printf("quit")
		return tea.Quit
	case LoadInstalled:
		r.logger.Printf("load installed epoch=%d", cmd.Epoch)
		return func() tea.Msg {
			return ListLoaded{Epoch: cmd.Epoch, Toolchains: r.manager.List(r.ctx)}
		}
	case LoadAvailable:
		r.logger.Printf("load available epoch=%d", cmd.Epoch)
		return func() tea.Msg {
			list, errMsg := r.manager.ListAvailable(r.ctx)
			if errMsg != "" {
				r.logger.Printf("catalog: %s", errMsg)
			}
			return AvailableLoaded{Epoch: cmd.Epoch, Toolchains: list, Err: errMsg}
		}
	case LoadPending:
		return func() tea.Msg {
			s, ok := r.manager.LoadPendingSession(r.ctx)
			if ok {
				r.logger.Printf("pending session %s %q: %s", s.Type, s.Target, s.StateDescription())
			}
			return PendingLoaded{Epoch: cmd.Epoch, Session: s, Found: ok}
		}
	case AckPending:
		return func() tea.Msg {
			if !r.begin() {
				return nil
			}
			defer r.inflight.Done()
			if err := r.manager.AcknowledgePending(r.ctx, cmd.ID); err != nil {
				r.logger.Printf("acknowledge pending %s: %v", cmd.ID, err)
			}
			return nil
		}
	case Operate:
		r.logger.Printf("operate %s %q epoch=%d", cmd.Type, cmd.Target, cmd.Epoch)
		return func() tea.Msg {
			if !r.begin() {
				return OperationResult{Epoch: cmd.Epoch, Session: OperationSession{
					Type: cmd.Type, Target: cmd.Target, State: Cancelled{Message: "Cancelled"},
				}}
			}
			defer r.inflight.Done()
			s := r.operate(cmd)
			r.logger.Printf("operate %s %q done: %s", cmd.Type, cmd.Target, s.StateDescription())
			return OperationResult{Epoch: cmd.Epoch, Session: s}
		}
	case CopyText:
		return func() tea.Msg {
			if err := r.clipboard.WriteAll(cmd.Text); err != nil {
				r.logger.Printf("clipboard: %v", err)
				return Notice{Text: "Clipboard unavailable: " + err.Error()}
			}
			return Notice{Text: "Copied " + cmd.Text}
		}
	}
	r.logger.Printf("unknown command %T", cmd)
	return nil
}

// begin registers a Manager call that writes state. It reports false once
// Wait has been called.
func (r *Runner) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	r.inflight.Add(1)
	return true
}

// Wait blocks until every mutating Manager call started by the Runner has
// returned. Commands run after Wait no longer reach the Manager. Cancel the
// Runner's context first so running operations wind down.
func (r *Runner) Wait() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.inflight.Wait()
}

func (r *Runner) operate(cmd Operate) OperationSession {
	progress := r.progressFunc(cmd.Epoch)
	var s OperationSession
	switch cmd.Type {
	case OpInstall:
		s = r.manager.Install(r.ctx, cmd.Target, progress)
	case OpUpdate:
		s = r.manager.Update(r.ctx, cmd.Target, progress)
	case OpRemove:
		s = r.manager.Uninstall(r.ctx, cmd.Target)
	case OpSwitch:
		s = r.manager.SwitchTo(r.ctx, cmd.Target)
	default:
		s = OperationSession{State: Failed{Message: "unsupported operation " + string(cmd.Type)}}
	}
	if s.Type == "" {
		s.Type = cmd.Type
	}
	if s.Target == "" {
		s.Target = cmd.Target
	}
	if s.State == nil {
		s.State = Failed{Message: "operation returned no result", LogPath: s.LogPath}
	}
	return s
}

// progressFunc returns a callback that forwards progress for one
// dispatch. It blocks while the buffer is full and gives up once the
// Runner's context is done.
func (r *Runner) progressFunc(epoch uint64) ProgressFunc {
	return func(percent int, detail string) {
		select {
		case r.progress <- OperationProgress{Epoch: epoch, Percent: percent, Detail: detail}:
		case <-r.ctx.Done():
		}
	}
}

// WaitForProgress returns a tea.Cmd that delivers the next progress
// callback. The App re-issues it after every delivery.
func (r *Runner) WaitForProgress() tea.Cmd {
	return func() tea.Msg {
		select {
		case p := <-r.progress:
			return p
		case <-r.ctx.Done():
			return nil
		}
	}
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

// WriteAll copies text to the OS clipboard.
func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}
