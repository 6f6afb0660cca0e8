package console

import (
	"io"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// maxBarWidth caps the progress bar on wide terminals.
const maxBarWidth = 50

// App adapts the reducer to Bubble Tea. The tea update loop is the single
// consumer of Actions: key presses, Runner results and progress all pass
// through Update and then Reduce, one at a time.
type App struct {
	model   Model
	runner  *Runner
	keys    *KeyMap
	spinner spinner.Model
	bar     progress.Model
	help    help.Model
	width   int
	height  int
	logger  *log.Logger
	boot    tea.Cmd
}

// NewApp returns an App on the main menu. A nil logger discards output.
func NewApp(runner *Runner, viewport int, logger *log.Logger) App {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = focusedRow

	m, cmd := Reduce(NewModel(viewport), ShowMenu{})
	return App{
		model:   m,
		runner:  runner,
		keys:    DefaultKeyMap(),
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth)),
		help:    help.New(),
		logger:  logger,
		boot:    runner.Run(cmd),
	}
}

// Model returns the current console state.
func (a App) Model() Model {
	return a.model
}

// Init starts the spinner, the progress listener and the pending-session
// lookup issued by the initial menu entry.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.boot, a.spinner.Tick, a.runner.WaitForProgress())
}

// Update routes one message through the key mapper and the reducer.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.bar.Width = min(max(msg.Width-8, 10), maxBarWidth)
		return a, nil

	case tea.KeyMsg:
		act, ok := a.keys.Map(a.model.KeyContext(), KeyEventFromTea(msg))
		if !ok {
			return a, nil
		}
		return a.dispatch(act)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case OperationProgress:
		next, cmd := a.dispatch(msg)
		return next, tea.Batch(cmd, a.runner.WaitForProgress())

	case Action:
		return a.dispatch(msg)
	}
	return a, nil
}

func (a App) dispatch(act Action) (App, tea.Cmd) {
	if t, ok := act.(epochTagged); ok && t.ActionEpoch() != a.model.Epoch {
		a.logger.Printf("drop stale %T epoch=%d current=%d", act, t.ActionEpoch(), a.model.Epoch)
	}
	var cmd Command
	a.model, cmd = Reduce(a.model, act)
	return a, a.runner.Run(cmd)
}

// View renders the console inside a rounded frame once the terminal size
// is known.
func (a App) View() string {
	f := Frame{
		Width:   max(a.width-4, 0),
		Spinner: a.spinner.View(),
		Help:    a.help.View(a.keys.HelpBindings(a.model.KeyContext())),
		Now:     time.Now(),
	}
	if a.model.Active != nil {
		if r, ok := a.model.Active.State.(Running); ok {
			f.Bar = a.bar.ViewAs(float64(r.Percent) / 100)
		}
	}
	body := Render(a.model, f)
	if a.width <= 2 {
		return body
	}
	return FrameBorder().Width(a.width - 2).Render(body)
}
