package console

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Reduce applies one Action to the Model. It never blocks or performs I/O;
// side effects are returned as a Command for the Runner. A nil Command
// means nothing to run.
func Reduce(m Model, a Action) (Model, Command) {
	if t, ok := a.(epochTagged); ok && t.ActionEpoch() != m.Epoch {
		return m, nil
	}

	switch a := a.(type) {
	case ShowMenu:
		m.Epoch++
		return m.enterMenu(menuMessage)
	case Start:
		return m.start(a.Kind)
	case Back:
		return m.back()
	case Exit:
		return m, Quit{}
	case Refresh:
		return m.refresh(m.Screen)

	case InputChar:
		if _, ok := m.Screen.(InputScreen); ok {
			m.Input += a.Text
		}
		return m, nil
	case Backspace:
		if _, ok := m.Screen.(InputScreen); ok {
			m.Input = dropLastRune(m.Input)
		}
		return m, nil
	case Submit:
		return m.submit()
	case CancelInput:
		if _, ok := m.Screen.(InputScreen); !ok {
			return m, nil
		}
		m.Input = ""
		m.Suggestions = nil
		return m.clearFilter().back()

	case ListLoaded:
		m.Toolchains = SortToolchains(a.Toolchains)
		m.Screen = ListScreen{}
		m.Active = nil
		m.ListOffset = 0
		m = m.clearFilter().refocus()
		if len(m.Toolchains) == 0 {
			m.Message = "No installed toolchains. Choose Install to add one."
		} else {
			m.Message = "Installed toolchains."
		}
		return m, nil
	case AvailableLoaded:
		m.Available = SortToolchains(a.Toolchains)
		m.Screen = InstallListScreen{}
		m.Active = nil
		m.ListOffset = 0
		m = m.clearFilter().refocus()
		switch {
		case a.Err != "":
			m.Message = "Catalog problem: " + a.Err
		case len(m.Available) == 0:
			m.Message = "No available toolchains. Press m to enter one manually."
		default:
			m.Message = "Available toolchains. Enter installs, m enters manually."
		}
		return m, nil

	case SelectIndex:
		if !isListKind(m.Screen.Kind()) {
			return m, nil
		}
		rows := m.Rows()
		if a.Index < 0 || a.Index >= len(rows) {
			m.Message = invalidSelection
			return m, nil
		}
		m.Focus = a.Index
		return m.clampOffset().openDetail(rows[a.Index]), nil
	case MoveFocus:
		return m.moveFocus(a.Delta), nil
	case OpenFocused:
		rec, ok := m.focusedOnList()
		if !ok {
			return m, nil
		}
		return m.openDetail(rec), nil
	case SwitchFocused:
		if _, ok := m.Screen.(ListScreen); !ok {
			return m, nil
		}
		rec, ok := m.focusedOnList()
		if !ok {
			return m, nil
		}
		return m.push().dispatch(OpSwitch, rec.ID)
	case InstallFocused:
		if _, ok := m.Screen.(InstallListScreen); !ok {
			return m, nil
		}
		rec, ok := m.focusedOnList()
		if !ok {
			return m, nil
		}
		return m.push().dispatch(OpInstall, rec.ID)
	case StartManualInstall:
		if _, ok := m.Screen.(InstallListScreen); !ok {
			return m, nil
		}
		return m.openInput(ActionInstall), nil

	case StartFilter:
		if !isListKind(m.Screen.Kind()) {
			return m, nil
		}
		m.Filtering = true
		m.Message = filterMessage
		return m, nil
	case FilterChar:
		if !m.Filtering || !isListKind(m.Screen.Kind()) {
			return m, nil
		}
		m.Filter += a.Text
		return m.refocus(), nil
	case FilterBackspace:
		if !m.Filtering || !isListKind(m.Screen.Kind()) {
			return m, nil
		}
		m.Filter = dropLastRune(m.Filter)
		return m.refocus(), nil
	case ClearFilter:
		m = m.clearFilter()
		if isListKind(m.Screen.Kind()) {
			m = m.refocus()
		}
		return m, nil

	case ConfirmSwitch:
		return m.fromDetail(OpSwitch)
	case UninstallFromDetail:
		return m.fromDetail(OpRemove)
	case UpdateFromDetail:
		return m.fromDetail(OpUpdate)
	case InstallFromDetail:
		return m.fromDetail(OpInstall)

	case OperationProgress:
		if m.Active == nil {
			return m, nil
		}
		running := m.Active.WithState(Running{Percent: clampPercent(a.Percent), Detail: a.Detail})
		m.Active = &running
		return m, nil
	case OperationResult:
		return m.applySession(a.Session), nil
	case PendingLoaded:
		if !a.Found {
			return m, nil
		}
		if _, ok := m.Screen.(MenuScreen); !ok {
			return m, nil
		}
		if a.Session.ID == "" {
			return m.applySession(a.Session), nil
		}
		if m.LastSession != nil && m.LastSession.ID == a.Session.ID {
			return m, nil
		}
		return m.applySession(a.Session), AckPending{ID: a.Session.ID}

	case RetryLast:
		return m.retry()
	case CancelRecovery:
		m.Epoch++
		return m.enterMenu(menuMessage)
	case CancelOperation:
		return m.cancelOperation()
	case CopyLogPath:
		es, ok := m.Screen.(ErrorScreen)
		if !ok {
			return m, nil
		}
		path := es.Session.LogFile()
		if path == "" {
			m.Message = "No log file for this session."
			return m, nil
		}
		return m, CopyText{Text: path}
	case Notice:
		m.Message = a.Text
		return m, nil
	}

	return m, nil
}

// enterMenu resets navigation to the main menu and asks for any session
// interrupted by a previous run.
func (m Model) enterMenu(message string) (Model, Command) {
	m.Screen = MenuScreen{}
	m.NavStack = nil
	m.Input = ""
	m.Suggestions = nil
	m.Active = nil
	m.Focus = -1
	m.ListOffset = 0
	m = m.clearFilter()
	m.Message = message
	return m, LoadPending{Epoch: m.Epoch}
}

func (m Model) start(kind ActionKind) (Model, Command) {
	switch kind {
	case ActionExit:
		return m, Quit{}
	case ActionList:
		m = m.push()
		m.Epoch++
		m.Active = nil
		m.Screen = ProgressScreen{Message: loadingInstalled}
		m.Message = loadingInstalled
		return m, LoadInstalled{Epoch: m.Epoch}
	case ActionInstall:
		m = m.push()
		m.Epoch++
		m.Active = nil
		m.Screen = ProgressScreen{Message: loadingAvailable}
		m.Message = loadingAvailable
		return m, LoadAvailable{Epoch: m.Epoch}
	case ActionSwitch, ActionUninstall, ActionUpdate:
		m.Epoch++
		m.Active = nil
		return m.openInput(kind), nil
	}
	return m, nil
}

// refresh reloads the collection behind list screen s in place.
func (m Model) refresh(s Screen) (Model, Command) {
	switch s.(type) {
	case ListScreen:
		m.Epoch++
		m.Screen = ProgressScreen{Message: loadingInstalled}
		m.Message = loadingInstalled
		return m, LoadInstalled{Epoch: m.Epoch}
	case InstallListScreen:
		m.Epoch++
		m.Screen = ProgressScreen{Message: loadingAvailable}
		m.Message = loadingAvailable
		return m, LoadAvailable{Epoch: m.Epoch}
	}
	return m, nil
}

func (m Model) openInput(kind ActionKind) Model {
	m = m.push()
	m.Screen = InputScreen{Kind: kind}
	m.Input = ""
	m.Suggestions = nil
	m.Filtering = false
	m.Message = inputPrompt(kind)
	return m
}

func inputPrompt(kind ActionKind) string {
	switch kind {
	case ActionSwitch:
		return "Enter toolchain to switch to:"
	case ActionInstall:
		return "Enter toolchain identifier for install (blank = latest stable):"
	case ActionUpdate:
		return "Enter toolchain identifier for update (blank = in-use):"
	default:
		return fmt.Sprintf("Enter toolchain identifier for %s:", kind)
	}
}

func (m Model) back() (Model, Command) {
	from := m.Screen
	m.Epoch++
	m.Active = nil
	m.Suggestions = nil
	m, prev, ok := m.pop()
	if !ok {
		return m.enterMenu(menuMessage)
	}
	switch prev := prev.(type) {
	case MenuScreen:
		return m.enterMenu(menuMessage)
	case ListScreen, InstallListScreen:
		if afterOperation(from) {
			m.Filtering = false
			return m.refresh(prev)
		}
		m.Screen = prev
		m.Filtering = false
		if _, ok := m.FocusedIndex(); !ok {
			m = m.refocus()
		}
		m = m.clampOffset()
		m.Message = backToListMessage
	case InputScreen:
		m.Screen = prev
		m.Input = ""
		m.Message = inputPrompt(prev.Kind)
	case ResultScreen:
		m.Screen = prev
		m.Message = prev.Message
	case ErrorScreen:
		m.Screen = prev
		m.Message = prev.Session.ErrorDescription()
	default:
		m.Screen = prev
	}
	return m, nil
}

// afterOperation reports whether s shows the outcome of a dispatch, after
// which the lists it came from may be out of date.
func afterOperation(s Screen) bool {
	switch s.(type) {
	case ResultScreen, ErrorScreen:
		return true
	}
	return false
}

func (m Model) submit() (Model, Command) {
	in, ok := m.Screen.(InputScreen)
	if !ok {
		return m, nil
	}
	value := strings.TrimSpace(m.Input)
	if value == "" && (in.Kind == ActionSwitch || in.Kind == ActionUninstall) {
		m.Message = emptyInputMessage
		m.Suggestions = nil
		return m, nil
	}
	if value != "" && !ValidIdentifier(value) {
		m.Suggestions = Suggest(sanitizeIdentifier(value), m.knownIdentifiers(in.Kind))
		m.Message = fmt.Sprintf("Invalid identifier %q.", value)
		if len(m.Suggestions) > 0 {
			m.Message += " Did you mean " + strings.Join(m.Suggestions, ", ") + "?"
		}
		return m, nil
	}
	return m.dispatch(in.Kind.Op(), value)
}

// knownIdentifiers returns the identifiers worth suggesting for kind.
func (m Model) knownIdentifiers(kind ActionKind) []string {
	src := m.Toolchains
	if kind == ActionInstall {
		src = m.Available
	}
	ids := make([]string, 0, len(src))
	for _, r := range src {
		ids = append(ids, r.ID)
	}
	return ids
}

// dispatch moves to the progress screen and issues op against target.
func (m Model) dispatch(op OpType, target string) (Model, Command) {
	m.Epoch++
	session := NewSession(op, target)
	m.Active = &session
	msg := progressMessage(op, target)
	m.Screen = ProgressScreen{Message: msg}
	m.Message = msg
	m.Input = ""
	m.Suggestions = nil
	m.Filtering = false
	return m, Operate{Epoch: m.Epoch, Type: op, Target: target}
}

func (m Model) focusedOnList() (ToolchainRecord, bool) {
	if !isListKind(m.Screen.Kind()) {
		return ToolchainRecord{}, false
	}
	return m.Focused()
}

func (m Model) openDetail(rec ToolchainRecord) Model {
	m.Filtering = false
	m = m.push()
	m.Screen = DetailScreen{Toolchain: rec}
	if rec.Installed {
		m.Message = fmt.Sprintf("Selected %s. Press 's' to switch, 'b' to go back.", rec.ID)
	} else {
		m.Message = fmt.Sprintf("Selected %s. Press 'i' to install, 'b' to go back.", rec.ID)
	}
	return m
}

func (m Model) moveFocus(delta int) Model {
	if !isListKind(m.Screen.Kind()) {
		return m
	}
	rows := m.Rows()
	if len(rows) == 0 {
		m.Focus = -1
		return m.clampOffset()
	}
	cur := m.Focus
	if cur < 0 || cur >= len(rows) {
		cur = 0
	} else {
		cur += delta
	}
	m.Focus = min(max(cur, 0), len(rows)-1)
	m = m.clampOffset()
	m.Message = fmt.Sprintf("Focused %s. Enter to view.", rows[m.Focus].ID)
	return m
}

func (m Model) fromDetail(op OpType) (Model, Command) {
	d, ok := m.Screen.(DetailScreen)
	if !ok {
		return m, nil
	}
	rec := d.Toolchain
	switch {
	case op == OpInstall && rec.Installed:
		m.Message = rec.ID + " is already installed."
		return m, nil
	case op != OpInstall && !rec.Installed:
		m.Message = rec.ID + " is not installed. Press 'i' to install it."
		return m, nil
	case op == OpSwitch && rec.Active:
		m.Message = rec.ID + " is already in use."
		return m, nil
	}
	return m.dispatch(op, rec.ID)
}

// applySession routes a delivered session by its state.
func (m Model) applySession(s OperationSession) Model {
	if s.State == nil {
		s.State = Pending{}
	}
	switch st := s.State.(type) {
	case Succeeded:
		m.LastSession = &s
		m.Active = nil
		m.Screen = ResultScreen{Message: st.Message}
		m.Message = st.Message
	case Failed, Cancelled:
		m.LastSession = &s
		m.Active = nil
		m.Screen = ErrorScreen{Session: s}
		m.Message = s.ErrorDescription()
	default:
		m.Active = &s
		m.Screen = ProgressScreen{Message: progressMessage(s.Type, s.Target)}
		m.Message = s.StateDescription()
	}
	return m
}

func (m Model) retry() (Model, Command) {
	es, ok := m.Screen.(ErrorScreen)
	if !ok {
		return m, nil
	}
	plan, err := PlanRetry(es.Session)
	if errors.Is(err, ErrNoRetryTarget) {
		return m.applySession(noTargetSession(es.Session)), nil
	}
	if plan.Reload() {
		m.Epoch++
		m.Active = nil
		m.Screen = ProgressScreen{Message: loadingInstalled}
		m.Message = loadingInstalled
		return m, LoadInstalled{Epoch: m.Epoch}
	}
	return m.dispatch(plan.Op, plan.Target)
}

// cancelOperation abandons the in-flight dispatch. A load with no session
// simply goes back.
func (m Model) cancelOperation() (Model, Command) {
	if _, ok := m.Screen.(ProgressScreen); !ok {
		return m, nil
	}
	if m.Active == nil {
		return m.back()
	}
	m.Epoch++
	s := m.Active.WithState(Cancelled{Message: "Cancelled by user", LogPath: m.Active.LogPath})
	return m.applySession(s), nil
}

func dropLastRune(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}

func clampPercent(p int) int {
	return min(max(p, 0), 100)
}
