package console

import "slices"

// Status line texts shared by the reducer and tests.
const (
	menuMessage       = "Use numbers to choose an action."
	loadingInstalled  = "Loading toolchains..."
	loadingAvailable  = "Loading available toolchains..."
	emptyInputMessage = "Input cannot be empty."
	invalidSelection  = "Invalid selection."
	backToListMessage = "Back to list. j/k or arrows move, Enter opens."
	filterMessage     = "Filter: type to narrow, Esc clears."
)

// Model is the console state. Reduce returns a new Model for every
// Action; nothing else writes to it. Slices are never shared between
// Model generations after an append.
type Model struct {
	Screen      Screen
	Toolchains  []ToolchainRecord // Installed, sorted.
	Available   []ToolchainRecord // Catalog, sorted.
	Filter      string
	Filtering   bool
	Focus       int // Index into the filtered view; -1 when nothing is focused.
	NavStack    []Screen
	LastSession *OperationSession
	Active      *OperationSession // In-flight dispatch, nil when idle.
	ListOffset  int
	Input       string
	Message     string
	Suggestions []string
	Epoch       uint64
	Viewport    int
}

// NewModel returns a Model on the menu screen. A viewport below three rows
// falls back to DefaultViewport.
func NewModel(viewport int) Model {
	if viewport < listChrome+1 {
		viewport = DefaultViewport
	}
	return Model{
		Screen:   MenuScreen{},
		Focus:    -1,
		Viewport: viewport,
		Message:  menuMessage,
	}
}

// KeyContext returns what the key mapper needs to know about m.
func (m Model) KeyContext() KeyContext {
	return KeyContext{
		Screen:    m.Screen.Kind(),
		Filtering: m.Filtering,
		HasFilter: m.Filter != "",
	}
}

// collection returns the unfiltered records behind the current list.
func (m Model) collection() []ToolchainRecord {
	if _, ok := m.Screen.(InstallListScreen); ok {
		return m.Available
	}
	return m.Toolchains
}

// Rows returns the filtered view of the current list. Focus and
// SelectIndex indices refer to it.
func (m Model) Rows() []ToolchainRecord {
	return FilterToolchains(m.collection(), m.Filter)
}

// FocusedIndex returns the focus if it is valid for the filtered view.
func (m Model) FocusedIndex() (int, bool) {
	if m.Focus < 0 || m.Focus >= len(m.Rows()) {
		return 0, false
	}
	return m.Focus, true
}

// Focused returns the focused record, if any.
func (m Model) Focused() (ToolchainRecord, bool) {
	i, ok := m.FocusedIndex()
	if !ok {
		return ToolchainRecord{}, false
	}
	return m.Rows()[i], true
}

// VisibleRange returns the half-open range of filtered rows on screen.
func (m Model) VisibleRange() (start, end int) {
	total := len(m.Rows())
	start = min(m.ListOffset, total)
	end = min(start+VisibleRows(m.Viewport), total)
	return start, end
}

// push records the current screen before a transition. Progress screens
// and a screen already on top are not pushed.
func (m Model) push() Model {
	if _, ok := m.Screen.(ProgressScreen); ok {
		return m
	}
	if n := len(m.NavStack); n > 0 && m.NavStack[n-1] == m.Screen {
		return m
	}
	m.NavStack = append(slices.Clip(m.NavStack), m.Screen)
	return m
}

// pop removes and returns the top of the navigation stack.
func (m Model) pop() (Model, Screen, bool) {
	n := len(m.NavStack)
	if n == 0 {
		return m, nil, false
	}
	prev := m.NavStack[n-1]
	m.NavStack = slices.Clip(m.NavStack[:n-1])
	return m, prev, true
}

// refocus resets focus to the first filtered row and recomputes the
// scroll offset.
func (m Model) refocus() Model {
	if len(m.Rows()) == 0 {
		m.Focus = -1
	} else {
		m.Focus = 0
	}
	return m.clampOffset()
}

// clampOffset keeps ListOffset valid for the current focus.
func (m Model) clampOffset() Model {
	m.ListOffset = AdjustListOffset(m.Focus, len(m.Rows()), m.Viewport, m.ListOffset)
	return m
}

func (m Model) clearFilter() Model {
	m.Filter = ""
	m.Filtering = false
	return m
}
