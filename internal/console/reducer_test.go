package console

import (
	"reflect"
	"strings"
	"testing"
)

func ids(list []ToolchainRecord) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

func TestReduce_ListLoaded_SortsActiveFirst(t *testing.T) {
	// Given: an inactive and an active toolchain
	// When: the installed list loads
	m := loadedList(t, sampleToolchains())

	// Then: the active toolchain sorts first and gets focus
	if got, want := ids(m.Toolchains), []string{"swift-6.0.2", "swift-6.0.1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Toolchains = %v, want %v", got, want)
	}
	if m.Focus != 0 {
		t.Errorf("Focus = %d, want 0", m.Focus)
	}
	if _, ok := m.Screen.(ListScreen); !ok {
		t.Errorf("Screen = %T, want ListScreen", m.Screen)
	}
	if len(m.NavStack) != 1 {
		t.Errorf("NavStack len = %d, want 1", len(m.NavStack))
	}
}

func TestReduce_ListLoaded_Empty(t *testing.T) {
	m := loadedList(t, nil)

	if m.Focus != -1 {
		t.Errorf("Focus = %d, want -1", m.Focus)
	}
	if !strings.Contains(m.Message, "No installed toolchains") {
		t.Errorf("Message = %q, want empty-list guidance", m.Message)
	}
}

func TestReduce_Filter_NarrowsAndRefocuses(t *testing.T) {
	// Given: the sample list
	m := loadedList(t, sampleToolchains())

	// When: filtering by "6.0.1"
	m, _ = reduceAll(t, m, StartFilter{}, FilterChar{Text: "6.0.1"})

	// Then: exactly the matching toolchain remains, focused
	if got, want := ids(m.Rows()), []string{"swift-6.0.1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Rows = %v, want %v", got, want)
	}
	if m.Focus != 0 {
		t.Errorf("Focus = %d, want 0", m.Focus)
	}
	if !m.Filtering {
		t.Error("Filtering = false, want true")
	}
}

func TestReduce_FilterChar_IgnoredWhenNotFiltering(t *testing.T) {
	m := loadedList(t, sampleToolchains())

	m, _ = Reduce(m, FilterChar{Text: "x"})

	if m.Filter != "" {
		t.Errorf("Filter = %q, want empty", m.Filter)
	}
}

func TestReduce_FilterBackspace_DropsLastRune(t *testing.T) {
	m := loadedList(t, sampleToolchains())

	m, _ = reduceAll(t, m, StartFilter{}, FilterChar{Text: "6.0.1é"}, FilterBackspace{})

	if m.Filter != "6.0.1" {
		t.Errorf("Filter = %q, want %q", m.Filter, "6.0.1")
	}
}

func TestReduce_ClearFilter_Idempotent(t *testing.T) {
	// Given: a filtered list
	m := loadedList(t, sampleToolchains())
	m, _ = reduceAll(t, m, StartFilter{}, FilterChar{Text: "6.0.1"})

	// When: clearing once and twice
	once, _ := Reduce(m, ClearFilter{})
	twice, _ := Reduce(once, ClearFilter{})

	// Then: both results match and show the full list
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("ClearFilter twice = %+v, want %+v", twice, once)
	}
	if once.Filter != "" || once.Filtering {
		t.Errorf("filter = %q filtering = %v, want cleared", once.Filter, once.Filtering)
	}
	if once.Focus != 0 {
		t.Errorf("Focus = %d, want 0", once.Focus)
	}
	if len(once.Rows()) != 2 {
		t.Errorf("Rows len = %d, want 2", len(once.Rows()))
	}
}

func TestReduce_SubmitEmptyInstall_DispatchesLatestStable(t *testing.T) {
	// Given: the manual install input
	m, cmd := Reduce(NewModel(DefaultViewport), Start{Kind: ActionInstall})
	load := cmd.(LoadAvailable)
	m, _ = reduceAll(t, m,
		AvailableLoaded{Epoch: load.Epoch, Toolchains: []ToolchainRecord{avail("swift-6.1", ChannelStable)}},
		StartManualInstall{},
	)
	if in, ok := m.Screen.(InputScreen); !ok || in.Kind != ActionInstall {
		t.Fatalf("Screen = %#v, want install input", m.Screen)
	}

	// When: submitting an empty value
	m, cmd = Reduce(m, Submit{})

	// Then: install is dispatched with an empty target
	op, ok := cmd.(Operate)
	if !ok {
		t.Fatalf("command = %T, want Operate", cmd)
	}
	if op.Type != OpInstall || op.Target != "" {
		t.Errorf("Operate = %+v, want install with empty target", op)
	}
	if op.Epoch != m.Epoch {
		t.Errorf("Operate.Epoch = %d, want %d", op.Epoch, m.Epoch)
	}
	ps, ok := m.Screen.(ProgressScreen)
	if !ok {
		t.Fatalf("Screen = %T, want ProgressScreen", m.Screen)
	}
	if ps.Message != "Installing latest stable..." {
		t.Errorf("progress message = %q", ps.Message)
	}
}

func TestReduce_FailedInstall_ShowsErrorAndRetries(t *testing.T) {
	// Given: an install in flight
	m := NewModel(DefaultViewport).openInput(ActionInstall)
	m, cmd := Reduce(m, Submit{})
	op := cmd.(Operate)

	// When: the install fails
	failed := OperationSession{Type: OpInstall, State: Failed{Message: "boom", LogPath: "/tmp/boom.log"}}
	m, _ = Reduce(m, OperationResult{Epoch: op.Epoch, Session: failed})

	// Then: the error screen shows the failure with its log path
	if _, ok := m.Screen.(ErrorScreen); !ok {
		t.Fatalf("Screen = %T, want ErrorScreen", m.Screen)
	}
	if !strings.Contains(m.Message, "boom") || !strings.Contains(m.Message, "/tmp/boom.log") {
		t.Errorf("Message = %q, want failure text with log path", m.Message)
	}
	if m.LastSession == nil || m.LastSession.Type != OpInstall {
		t.Errorf("LastSession = %+v, want install session", m.LastSession)
	}

	// When: retrying
	prev := m.Epoch
	m, cmd = Reduce(m, RetryLast{})

	// Then: install is re-dispatched with the same empty target
	retry, ok := cmd.(Operate)
	if !ok {
		t.Fatalf("retry command = %T, want Operate", cmd)
	}
	if retry.Type != OpInstall || retry.Target != "" {
		t.Errorf("retry = %+v, want install with empty target", retry)
	}
	if m.Epoch <= prev {
		t.Errorf("Epoch = %d, want > %d", m.Epoch, prev)
	}
}

func TestReduce_CancelRecovery_AlwaysReturnsToMenu(t *testing.T) {
	// Given: an error reached through list and detail
	m := loadedList(t, sampleToolchains())
	m, _ = Reduce(m, SelectIndex{Index: 1})
	m, cmd := Reduce(m, ConfirmSwitch{})
	op := cmd.(Operate)
	m, _ = Reduce(m, OperationResult{Epoch: op.Epoch, Session: OperationSession{
		Type: OpSwitch, Target: "swift-6.0.1", State: Failed{Message: "denied"},
	}})
	if len(m.NavStack) < 2 {
		t.Fatalf("NavStack len = %d, want at least 2", len(m.NavStack))
	}

	// When: cancelling recovery
	m, cmd = Reduce(m, CancelRecovery{})

	// Then: the menu is shown with an empty stack
	if _, ok := m.Screen.(MenuScreen); !ok {
		t.Errorf("Screen = %T, want MenuScreen", m.Screen)
	}
	if len(m.NavStack) != 0 {
		t.Errorf("NavStack len = %d, want 0", len(m.NavStack))
	}
	if _, ok := cmd.(LoadPending); !ok {
		t.Errorf("command = %T, want LoadPending", cmd)
	}
}

func TestReduce_BackUnwindsPushes(t *testing.T) {
	// Given: menu -> list -> detail
	m := loadedList(t, sampleToolchains())
	m, _ = Reduce(m, SelectIndex{Index: 0})
	if _, ok := m.Screen.(DetailScreen); !ok {
		t.Fatalf("Screen = %T, want DetailScreen", m.Screen)
	}

	// When: going back twice
	m, _ = Reduce(m, Back{})
	if _, ok := m.Screen.(ListScreen); !ok {
		t.Fatalf("after first back Screen = %T, want ListScreen", m.Screen)
	}
	if m.Message != backToListMessage {
		t.Errorf("Message = %q, want %q", m.Message, backToListMessage)
	}
	m, _ = Reduce(m, Back{})

	// Then: the menu is back and the stack is empty
	if _, ok := m.Screen.(MenuScreen); !ok {
		t.Errorf("Screen = %T, want MenuScreen", m.Screen)
	}
	if len(m.NavStack) != 0 {
		t.Errorf("NavStack len = %d, want 0", len(m.NavStack))
	}
}

func TestReduce_BackFromInputReturnsToMenu(t *testing.T) {
	m, _ := Reduce(NewModel(DefaultViewport), Start{Kind: ActionSwitch})
	m, _ = Reduce(m, InputChar{Text: "abc"})

	m, _ = Reduce(m, CancelInput{})

	if _, ok := m.Screen.(MenuScreen); !ok {
		t.Errorf("Screen = %T, want MenuScreen", m.Screen)
	}
	if m.Input != "" {
		t.Errorf("Input = %q, want empty", m.Input)
	}
}

func TestReduce_StaleResultIgnored(t *testing.T) {
	// Given: a list load issued and then abandoned
	m, cmd := Reduce(NewModel(DefaultViewport), Start{Kind: ActionList})
	load := cmd.(LoadInstalled)
	m, _ = Reduce(m, Back{})

	// When: the old load arrives
	after, cmd := Reduce(m, ListLoaded{Epoch: load.Epoch, Toolchains: sampleToolchains()})

	// Then: nothing changes
	if !reflect.DeepEqual(after, m) {
		t.Errorf("stale result changed the model: %+v", after)
	}
	if cmd != nil {
		t.Errorf("command = %T, want nil", cmd)
	}
}

func TestReduce_Progress_ClampsPercent(t *testing.T) {
	m := NewModel(DefaultViewport).openInput(ActionUpdate)
	m, cmd := Reduce(m, Submit{})
	op := cmd.(Operate)

	m, _ = Reduce(m, OperationProgress{Epoch: op.Epoch, Percent: 150, Detail: "linking"})

	r, ok := m.Active.State.(Running)
	if !ok {
		t.Fatalf("Active state = %T, want Running", m.Active.State)
	}
	if r.Percent != 100 || r.Detail != "linking" {
		t.Errorf("Running = %+v, want 100%% linking", r)
	}
}

func TestReduce_CancelOperation_DropsLateResult(t *testing.T) {
	// Given: an update in flight
	m := NewModel(DefaultViewport).openInput(ActionUpdate)
	m, cmd := Reduce(m, Submit{})
	op := cmd.(Operate)

	// When: the user abandons it
	m, _ = Reduce(m, CancelOperation{})

	// Then: the error screen offers recovery
	es, ok := m.Screen.(ErrorScreen)
	if !ok {
		t.Fatalf("Screen = %T, want ErrorScreen", m.Screen)
	}
	if es.Session.ErrorDescription() != "Cancelled by user" {
		t.Errorf("ErrorDescription = %q", es.Session.ErrorDescription())
	}

	// When: the operation finishes anyway
	after, _ := Reduce(m, OperationResult{Epoch: op.Epoch, Session: OperationSession{Type: OpUpdate, State: Succeeded{Message: "ok"}}})

	// Then: the late result is ignored
	if _, ok := after.Screen.(ErrorScreen); !ok {
		t.Errorf("Screen = %T, want ErrorScreen", after.Screen)
	}
}

func TestReduce_CancelOperation_DuringLoadGoesBack(t *testing.T) {
	m, _ := Reduce(NewModel(DefaultViewport), Start{Kind: ActionList})

	m, _ = Reduce(m, CancelOperation{})

	if _, ok := m.Screen.(MenuScreen); !ok {
		t.Errorf("Screen = %T, want MenuScreen", m.Screen)
	}
}

func TestReduce_Submit_Validation(t *testing.T) {
	m := loadedList(t, sampleToolchains())
	m, _ = Reduce(m, Back{})

	tests := []struct {
		name        string
		kind        ActionKind
		input       string
		wantMessage string
		wantCmd     bool
	}{
		{"empty switch", ActionSwitch, "   ", emptyInputMessage, false},
		{"empty uninstall", ActionUninstall, "", emptyInputMessage, false},
		{"invalid switch", ActionSwitch, "swift 6.0.1", `Invalid identifier "swift 6.0.1". Did you mean swift-6.0.1`, false},
		{"valid uninstall", ActionUninstall, "swift-6.0.1", "Removing swift-6.0.1...", true},
		{"empty update", ActionUpdate, "", "Updating in-use toolchain...", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Reduce(m, Start{Kind: tt.kind})
			got, _ = Reduce(got, InputChar{Text: tt.input})
			got, cmd := Reduce(got, Submit{})

			if !strings.HasPrefix(got.Message, tt.wantMessage) {
				t.Errorf("Message = %q, want prefix %q", got.Message, tt.wantMessage)
			}
			if (cmd != nil) != tt.wantCmd {
				t.Errorf("command = %T, want command %v", cmd, tt.wantCmd)
			}
		})
	}
}

func TestReduce_InvalidIdentifier_Suggests(t *testing.T) {
	m := loadedList(t, sampleToolchains())
	m, _ = reduceAll(t, m, Back{}, Start{Kind: ActionSwitch}, InputChar{Text: "swift 6.0.1"}, Submit{})

	if len(m.Suggestions) == 0 || m.Suggestions[0] != "swift-6.0.1" {
		t.Errorf("Suggestions = %v, want swift-6.0.1 first", m.Suggestions)
	}
	if _, ok := m.Screen.(InputScreen); !ok {
		t.Errorf("Screen = %T, want InputScreen", m.Screen)
	}
}

func TestReduce_Detail_Guards(t *testing.T) {
	active := rec("swift-6.0.2", true)
	catalog := avail("swift-6.1", ChannelStable)

	tests := []struct {
		name   string
		record ToolchainRecord
		action Action
		want   string
	}{
		{"switch to active", active, ConfirmSwitch{}, "swift-6.0.2 is already in use."},
		{"install installed", active, InstallFromDetail{}, "swift-6.0.2 is already installed."},
		{"uninstall catalog entry", catalog, UninstallFromDetail{}, "swift-6.1 is not installed. Press 'i' to install it."},
		{"update catalog entry", catalog, UpdateFromDetail{}, "swift-6.1 is not installed. Press 'i' to install it."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(DefaultViewport).openDetail(tt.record)

			got, cmd := Reduce(m, tt.action)

			if got.Message != tt.want {
				t.Errorf("Message = %q, want %q", got.Message, tt.want)
			}
			if cmd != nil {
				t.Errorf("command = %T, want nil", cmd)
			}
		})
	}
}

func TestReduce_Detail_InstallDispatches(t *testing.T) {
	m := NewModel(DefaultViewport).openDetail(avail("swift-6.1", ChannelStable))

	_, cmd := Reduce(m, InstallFromDetail{})

	op, ok := cmd.(Operate)
	if !ok || op.Type != OpInstall || op.Target != "swift-6.1" {
		t.Errorf("command = %#v, want install swift-6.1", cmd)
	}
}

func TestReduce_SelectIndex_OutOfRange(t *testing.T) {
	m := loadedList(t, sampleToolchains())

	m, _ = Reduce(m, SelectIndex{Index: 5})

	if m.Message != invalidSelection {
		t.Errorf("Message = %q, want %q", m.Message, invalidSelection)
	}
	if _, ok := m.Screen.(ListScreen); !ok {
		t.Errorf("Screen = %T, want ListScreen", m.Screen)
	}
}

func TestReduce_MoveFocus_KeepsFocusVisible(t *testing.T) {
	// Given: more toolchains than fit on screen
	var list []ToolchainRecord
	for i := range 20 {
		list = append(list, rec("tc-"+string(rune('a'+i)), false))
	}
	m := loadedList(t, list)
	visible := VisibleRows(m.Viewport)

	// When/Then: focus stays inside the visible window while moving
	for step := range 25 {
		m, _ = Reduce(m, MoveFocus{Delta: 1})
		if m.Focus < m.ListOffset || m.Focus >= m.ListOffset+visible {
			t.Fatalf("step %d: focus %d outside [%d, %d)", step, m.Focus, m.ListOffset, m.ListOffset+visible)
		}
	}
	if m.Focus != 19 {
		t.Errorf("Focus = %d, want 19", m.Focus)
	}
	for range 25 {
		m, _ = Reduce(m, MoveFocus{Delta: -1})
		if m.Focus < m.ListOffset || m.Focus >= m.ListOffset+visible {
			t.Fatalf("focus %d outside [%d, %d)", m.Focus, m.ListOffset, m.ListOffset+visible)
		}
	}
	if m.Focus != 0 || m.ListOffset != 0 {
		t.Errorf("Focus = %d offset = %d, want 0 0", m.Focus, m.ListOffset)
	}
}

func TestReduce_Refresh_ReloadsInPlace(t *testing.T) {
	m := loadedList(t, sampleToolchains())
	depth := len(m.NavStack)

	m, cmd := Reduce(m, Refresh{})

	if _, ok := cmd.(LoadInstalled); !ok {
		t.Fatalf("command = %T, want LoadInstalled", cmd)
	}
	if len(m.NavStack) != depth {
		t.Errorf("NavStack len = %d, want %d", len(m.NavStack), depth)
	}
}

func TestReduce_SwitchFocused(t *testing.T) {
	m := loadedList(t, sampleToolchains())
	m, _ = Reduce(m, MoveFocus{Delta: 1})

	m, cmd := Reduce(m, SwitchFocused{})

	op, ok := cmd.(Operate)
	if !ok || op.Type != OpSwitch || op.Target != "swift-6.0.1" {
		t.Errorf("command = %#v, want switch swift-6.0.1", cmd)
	}
	if m.Active == nil {
		t.Error("Active = nil, want in-flight session")
	}
}

func TestReduce_AvailableLoaded_CatalogError(t *testing.T) {
	m, cmd := Reduce(NewModel(DefaultViewport), Start{Kind: ActionInstall})
	load := cmd.(LoadAvailable)

	m, _ = Reduce(m, AvailableLoaded{Epoch: load.Epoch, Err: "catalog unreachable"})

	if m.Message != "Catalog problem: catalog unreachable" {
		t.Errorf("Message = %q", m.Message)
	}
	if _, ok := m.Screen.(InstallListScreen); !ok {
		t.Errorf("Screen = %T, want InstallListScreen", m.Screen)
	}
}

func TestReduce_PendingLoaded(t *testing.T) {
	interrupted := OperationSession{
		Type:   OpInstall,
		Target: "swift-6.1",
		State:  Cancelled{Message: "Interrupted: install swift-6.1 did not finish"},
	}

	t.Run("on menu", func(t *testing.T) {
		m, cmd := Reduce(NewModel(DefaultViewport), ShowMenu{})
		lp := cmd.(LoadPending)

		m, _ = Reduce(m, PendingLoaded{Epoch: lp.Epoch, Session: interrupted, Found: true})

		if _, ok := m.Screen.(ErrorScreen); !ok {
			t.Errorf("Screen = %T, want ErrorScreen", m.Screen)
		}
	})

	t.Run("not found", func(t *testing.T) {
		m, cmd := Reduce(NewModel(DefaultViewport), ShowMenu{})
		lp := cmd.(LoadPending)

		m, _ = Reduce(m, PendingLoaded{Epoch: lp.Epoch})

		if _, ok := m.Screen.(MenuScreen); !ok {
			t.Errorf("Screen = %T, want MenuScreen", m.Screen)
		}
	})
}

func TestReduce_Retry_NoTarget(t *testing.T) {
	m := NewModel(DefaultViewport)
	m = m.applySession(OperationSession{Type: OpSwitch, State: Failed{Message: "x"}})
	epoch := m.Epoch

	m, cmd := Reduce(m, RetryLast{})

	if cmd != nil {
		t.Errorf("command = %T, want nil", cmd)
	}
	if m.Message != "No target to retry" {
		t.Errorf("Message = %q, want %q", m.Message, "No target to retry")
	}
	if m.Epoch != epoch {
		t.Errorf("Epoch = %d, want %d", m.Epoch, epoch)
	}
}

func TestReduce_Retry_ListReloads(t *testing.T) {
	m := NewModel(DefaultViewport).applySession(OperationSession{Type: OpList, State: Failed{Message: "x"}})

	_, cmd := Reduce(m, RetryLast{})

	if _, ok := cmd.(LoadInstalled); !ok {
		t.Errorf("command = %T, want LoadInstalled", cmd)
	}
}

func TestReduce_CopyLogPath(t *testing.T) {
	withLog := NewModel(DefaultViewport).applySession(OperationSession{
		Type: OpInstall, State: Failed{Message: "x", LogPath: "/tmp/x.log"},
	})
	_, cmd := Reduce(withLog, CopyLogPath{})
	if ct, ok := cmd.(CopyText); !ok || ct.Text != "/tmp/x.log" {
		t.Errorf("command = %#v, want CopyText /tmp/x.log", cmd)
	}

	noLog := NewModel(DefaultViewport).applySession(OperationSession{Type: OpInstall, State: Failed{Message: "x"}})
	got, cmd := Reduce(noLog, CopyLogPath{})
	if cmd != nil {
		t.Errorf("command = %T, want nil", cmd)
	}
	if got.Message != "No log file for this session." {
		t.Errorf("Message = %q", got.Message)
	}
}

func TestReduce_Exit(t *testing.T) {
	_, cmd := Reduce(NewModel(DefaultViewport), Exit{})
	if _, ok := cmd.(Quit); !ok {
		t.Errorf("command = %T, want Quit", cmd)
	}
}

func TestReduce_Succeeded_ShowsResult(t *testing.T) {
	m := NewModel(DefaultViewport).openInput(ActionSwitch)
	m, _ = Reduce(m, InputChar{Text: "swift-6.0.1"})
	m, cmd := Reduce(m, Submit{})
	op := cmd.(Operate)

	m, _ = Reduce(m, OperationResult{Epoch: op.Epoch, Session: OperationSession{
		Type: OpSwitch, Target: "swift-6.0.1", State: Succeeded{Message: "Now using swift-6.0.1"},
	}})

	rs, ok := m.Screen.(ResultScreen)
	if !ok {
		t.Fatalf("Screen = %T, want ResultScreen", m.Screen)
	}
	if rs.Message != "Now using swift-6.0.1" {
		t.Errorf("result message = %q", rs.Message)
	}
	if m.Active != nil {
		t.Error("Active should be cleared")
	}
}

// installList returns a model on the install list holding list.
func installList(t *testing.T, list []ToolchainRecord) Model {
	t.Helper()
	m, cmd := Reduce(NewModel(DefaultViewport), Start{Kind: ActionInstall})
	m, _ = Reduce(m, AvailableLoaded{Epoch: cmd.(LoadAvailable).Epoch, Toolchains: list})
	return m
}

func TestReduce_FocusedActionsWithoutFocus(t *testing.T) {
	installed := loadedList(t, sampleToolchains())
	catalog := installList(t, []ToolchainRecord{avail("swift-6.1", ChannelStable), avail("swift-6.2", ChannelStable)})

	tests := []struct {
		name   string
		model  Model
		action Action
	}{
		{"open", installed, OpenFocused{}},
		{"switch", installed, SwitchFocused{}},
		{"install", catalog, InstallFocused{}},
	}
	focuses := []struct {
		name   string
		focus  func(m Model) int
		filter string
	}{
		{"absent", func(Model) int { return -1 }, ""},
		{"past end", func(m Model) int { return len(m.Rows()) + 3 }, ""},
		{"filtered away", func(Model) int { return 1 }, "6.1"},
	}
	for _, tt := range tests {
		for _, f := range focuses {
			t.Run(tt.name+" "+f.name, func(t *testing.T) {
				// Given: a list whose focus does not point at a visible row
				m := tt.model
				m.Filter = f.filter
				m.Focus = f.focus(m)

				// When: acting on the focused row
				after, cmd := Reduce(m, tt.action)

				// Then: nothing happens
				if cmd != nil {
					t.Errorf("command = %#v, want nil", cmd)
				}
				if !reflect.DeepEqual(after, m) {
					t.Errorf("model changed: Screen %T Message %q NavStack %d", after.Screen, after.Message, len(after.NavStack))
				}
			})
		}
	}
}

func TestReduce_PendingLoaded_AcknowledgesShownSession(t *testing.T) {
	// Given: the menu waiting on a pending lookup
	m, cmd := Reduce(NewModel(DefaultViewport), ShowMenu{})
	lp := cmd.(LoadPending)
	interrupted := OperationSession{ID: "op-1", Type: OpInstall, Target: "swift-6.1", State: Cancelled{Message: "Interrupted"}}

	// When: the session arrives
	m, cmd = Reduce(m, PendingLoaded{Epoch: lp.Epoch, Session: interrupted, Found: true})

	// Then: it is shown and acknowledged
	if _, ok := m.Screen.(ErrorScreen); !ok {
		t.Errorf("Screen = %T, want ErrorScreen", m.Screen)
	}
	if ack, ok := cmd.(AckPending); !ok || ack.ID != "op-1" {
		t.Errorf("command = %#v, want AckPending op-1", cmd)
	}

	// When: the menu asks again before the acknowledgement lands
	m, cmd = Reduce(m, CancelRecovery{})
	m, again := Reduce(m, PendingLoaded{Epoch: cmd.(LoadPending).Epoch, Session: interrupted, Found: true})

	// Then: the same session is not shown twice
	if _, ok := m.Screen.(MenuScreen); !ok {
		t.Errorf("Screen = %T, want MenuScreen", m.Screen)
	}
	if again != nil {
		t.Errorf("command = %#v, want nil", again)
	}
}

func TestReduce_PendingLoaded_StaleResultShownLater(t *testing.T) {
	// Given: a pending lookup overtaken by the user opening the list
	m, cmd := Reduce(NewModel(DefaultViewport), ShowMenu{})
	lp := cmd.(LoadPending)
	m, _ = Reduce(m, Start{Kind: ActionList})
	interrupted := OperationSession{ID: "op-1", Type: OpUpdate, State: Cancelled{Message: "Interrupted"}}

	// When: the lookup arrives late
	m, cmd = Reduce(m, PendingLoaded{Epoch: lp.Epoch, Session: interrupted, Found: true})

	// Then: it is dropped without acknowledgement
	if cmd != nil {
		t.Errorf("command = %#v, want nil", cmd)
	}
	if _, ok := m.Screen.(ProgressScreen); !ok {
		t.Errorf("Screen = %T, want ProgressScreen", m.Screen)
	}

	// When: the user returns to the menu and the lookup repeats
	m, cmd = Reduce(m, Back{})
	retry, ok := cmd.(LoadPending)
	if !ok {
		t.Fatalf("command = %T, want LoadPending", cmd)
	}
	m, cmd = Reduce(m, PendingLoaded{Epoch: retry.Epoch, Session: interrupted, Found: true})

	// Then: the session is finally shown and acknowledged
	if _, ok := m.Screen.(ErrorScreen); !ok {
		t.Errorf("Screen = %T, want ErrorScreen", m.Screen)
	}
	if ack, ok := cmd.(AckPending); !ok || ack.ID != "op-1" {
		t.Errorf("command = %#v, want AckPending op-1", cmd)
	}
}

func TestReduce_BackAfterOperationReloadsList(t *testing.T) {
	tests := []struct {
		name    string
		outcome State
	}{
		{"succeeded", Succeeded{Message: "Removed swift-6.0.1"}},
		{"failed", Failed{Message: "boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: an uninstall dispatched from the detail screen
			m := loadedList(t, sampleToolchains())
			m, _ = reduceAll(t, m, MoveFocus{Delta: 1}, OpenFocused{})
			m, cmd := Reduce(m, UninstallFromDetail{})
			op := cmd.(Operate)
			m, _ = Reduce(m, OperationResult{Epoch: op.Epoch, Session: OperationSession{Type: OpRemove, Target: op.Target, State: tt.outcome}})

			// When: going back
			m, cmd = Reduce(m, Back{})

			// Then: the installed list is reloaded
			load, ok := cmd.(LoadInstalled)
			if !ok {
				t.Fatalf("command = %T, want LoadInstalled", cmd)
			}
			m, _ = Reduce(m, ListLoaded{Epoch: load.Epoch, Toolchains: []ToolchainRecord{rec("swift-6.0.2", true)}})
			if _, ok := m.Screen.(ListScreen); !ok {
				t.Errorf("Screen = %T, want ListScreen", m.Screen)
			}
			if got := ids(m.Toolchains); len(got) != 1 || got[0] != "swift-6.0.2" {
				t.Errorf("Toolchains = %v, want [swift-6.0.2]", got)
			}
		})
	}
}

func TestReduce_FocusedDispatchReturnsToList(t *testing.T) {
	tests := []struct {
		name   string
		model  func(t *testing.T) Model
		action Action
		reload func(Command) bool
	}{
		{
			"switch", func(t *testing.T) Model { return loadedList(t, sampleToolchains()) }, SwitchFocused{},
			func(c Command) bool {
				_, ok := c.(LoadInstalled)
				return ok
			},
		},
		{
			"install", func(t *testing.T) Model { return installList(t, []ToolchainRecord{avail("swift-6.1", ChannelStable)}) }, InstallFocused{},
			func(c Command) bool {
				_, ok := c.(LoadAvailable)
				return ok
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: an operation dispatched straight from a list
			m, cmd := Reduce(tt.model(t), tt.action)
			op := cmd.(Operate)
			m, _ = Reduce(m, OperationResult{Epoch: op.Epoch, Session: OperationSession{Type: op.Type, Target: op.Target, State: Succeeded{Message: "ok"}}})

			// When: going back from the result
			m, cmd = Reduce(m, Back{})

			// Then: the list it came from is reloaded, not the menu
			if !tt.reload(cmd) {
				t.Errorf("command = %T, want list reload", cmd)
			}
			if _, ok := m.Screen.(ProgressScreen); !ok {
				t.Errorf("Screen = %T, want ProgressScreen", m.Screen)
			}
		})
	}
}
