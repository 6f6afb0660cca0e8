package console

// Action is a semantic event consumed by Reduce. Actions come from the key
// mapper or from Command results delivered by the Runner. Every Action is
// also a tea.Msg.
type Action interface {
	isAction()
}

// epochTagged is implemented by result Actions that carry the Epoch of the
// dispatch that produced them.
type epochTagged interface {
	ActionEpoch() uint64
}

// --- Navigation ---

// ShowMenu resets to the main menu.
type ShowMenu struct{}

// Start begins a top-level menu action.
type Start struct {
	Kind ActionKind
}

// Back pops the navigation stack, defaulting to the menu.
type Back struct{}

// Exit quits the program.
type Exit struct{}

// Refresh reloads the collection behind the current list screen.
type Refresh struct{}

// --- Input screen ---

// InputChar appends literal text to the input buffer.
type InputChar struct {
	Text string
}

// Backspace deletes the last rune of the input buffer.
type Backspace struct{}

// Submit validates the input buffer and dispatches the input's action.
type Submit struct{}

// CancelInput leaves the input screen without dispatching.
type CancelInput struct{}

// --- Lists ---

// SelectIndex opens the detail view for a zero-based index into the
// filtered view.
type SelectIndex struct {
	Index int
}

// MoveFocus moves list focus by Delta rows within the filtered view.
type MoveFocus struct {
	Delta int
}

// OpenFocused opens the detail view for the focused row.
type OpenFocused struct{}

// SwitchFocused switches to the focused installed toolchain.
type SwitchFocused struct{}

// InstallFocused installs the focused catalog toolchain.
type InstallFocused struct{}

// StartManualInstall opens free-text entry from the install list.
type StartManualInstall struct{}

// StartFilter enters filter mode on a list screen.
type StartFilter struct{}

// FilterChar appends text to the filter query.
type FilterChar struct {
	Text string
}

// FilterBackspace deletes the last rune of the filter query.
type FilterBackspace struct{}

// ClearFilter empties the query and leaves filter mode.
type ClearFilter struct{}

// --- Detail screen ---

type ConfirmSwitch struct{}

type UninstallFromDetail struct{}

type UpdateFromDetail struct{}

type InstallFromDetail struct{}

// --- Sessions and recovery ---

// RetryLast replays the operation recorded in the error screen's session.
type RetryLast struct{}

// CancelRecovery abandons a failed session and returns to the menu.
type CancelRecovery struct{}

// CancelOperation abandons the in-flight dispatch from the progress screen.
// The background work is not stopped; its result will be ignored.
type CancelOperation struct{}

// CopyLogPath copies the error screen's log path to the clipboard.
type CopyLogPath struct{}

// Notice replaces the status line.
type Notice struct {
	Text string
}

// --- Command results ---

// ListLoaded carries the installed toolchains requested by LoadInstalled.
type ListLoaded struct {
	Epoch      uint64
	Toolchains []ToolchainRecord
}

// AvailableLoaded carries the catalog requested by LoadAvailable. Err is
// non-empty when the manager reported a problem; Toolchains may still hold
// partial results.
type AvailableLoaded struct {
	Epoch      uint64
	Toolchains []ToolchainRecord
	Err        string
}

// OperationProgress carries one progress callback of an Operate command.
type OperationProgress struct {
	Epoch   uint64
	Percent int
	Detail  string
}

// OperationResult carries the session returned by an Operate command.
type OperationResult struct {
	Epoch   uint64
	Session OperationSession
}

// PendingLoaded carries the result of LoadPending. Found is false when no
// interrupted session was recorded.
type PendingLoaded struct {
	Epoch   uint64
	Session OperationSession
	Found   bool
}

func (a ListLoaded) ActionEpoch() uint64        { return a.Epoch }
func (a AvailableLoaded) ActionEpoch() uint64   { return a.Epoch }
func (a OperationProgress) ActionEpoch() uint64 { return a.Epoch }
func (a OperationResult) ActionEpoch() uint64   { return a.Epoch }
func (a PendingLoaded) ActionEpoch() uint64     { return a.Epoch }

func (ShowMenu) isAction()            {}
func (Start) isAction()               {}
func (Back) isAction()                {}
func (Exit) isAction()                {}
func (Refresh) isAction()             {}
func (InputChar) isAction()           {}
func (Backspace) isAction()           {}
func (Submit) isAction()              {}
func (CancelInput) isAction()         {}
func (SelectIndex) isAction()         {}
func (MoveFocus) isAction()           {}
func (OpenFocused) isAction()         {}
func (SwitchFocused) isAction()       {}
func (InstallFocused) isAction()      {}
func (StartManualInstall) isAction()  {}
func (StartFilter) isAction()         {}
func (FilterChar) isAction()          {}
func (FilterBackspace) isAction()     {}
func (ClearFilter) isAction()         {}
func (ConfirmSwitch) isAction()       {}
func (UninstallFromDetail) isAction() {}
func (UpdateFromDetail) isAction()    {}
func (InstallFromDetail) isAction()   {}
func (RetryLast) isAction()           {}
func (CancelRecovery) isAction()      {}
func (CancelOperation) isAction()     {}
func (CopyLogPath) isAction()         {}
func (Notice) isAction()              {}
func (ListLoaded) isAction()          {}
func (AvailableLoaded) isAction()     {}
func (OperationProgress) isAction()   {}
func (OperationResult) isAction()     {}
func (PendingLoaded) isAction()       {}
