package console

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyEvent is a normalized terminal key. Key names a single key press
// ("enter", "esc", "up", "ctrl+c", "space", "s"); Text holds the literal
// text the key produces, if any. Pasted text has an empty Key.
type KeyEvent struct {
	Key  string
	Text string
}

// KeyEventFromTea normalizes a Bubble Tea key message.
func KeyEventFromTea(msg tea.KeyMsg) KeyEvent {
	switch msg.Type {
	case tea.KeyRunes:
		text := string(msg.Runes)
		if msg.Alt {
			return KeyEvent{Key: "alt+" + text}
		}
		if msg.Paste || len(msg.Runes) != 1 {
			return KeyEvent{Text: text}
		}
		return KeyEvent{Key: text, Text: text}
	case tea.KeySpace:
		return KeyEvent{Key: "space", Text: " "}
	default:
		return KeyEvent{Key: msg.String()}
	}
}

// KeyContext is the part of the Model the key mapper depends on.
type KeyContext struct {
	Screen    ScreenKind
	Filtering bool
	HasFilter bool
}

// Scope selects a binding table: one per screen kind, plus the filter
// mode of each list screen.
type Scope struct {
	Screen    ScreenKind
	Filtering bool
}

func (c KeyContext) scope() Scope {
	return Scope{Screen: c.Screen, Filtering: c.Filtering && isListKind(c.Screen)}
}

func isListKind(k ScreenKind) bool {
	return k == KindList || k == KindInstallList
}

// globalScope holds bindings that apply on every screen after the
// screen's own table.
var globalScope = Scope{Screen: -1}

// Binding ties keys to an Action within one scope. A binding with a nil
// Action is shown in the help bar but never matches.
type Binding struct {
	Action  Action
	Keys    []string
	Display string // Help bar key label; defaults to the first key.
	Help    string // Empty hides the binding from the help bar.
}

type bindingKey struct {
	scope Scope
	key   string
}

// KeyMap is an immutable table from (scope, key) to Action.
type KeyMap struct {
	bindings map[Scope][]Binding
	index    map[bindingKey]Action
}

// DefaultKeyMap returns the console's key bindings.
func DefaultKeyMap() *KeyMap {
	return defaultKeys
}

var defaultKeys = newKeyMap()

func newKeyMap() *KeyMap {
	km := &KeyMap{
		bindings: make(map[Scope][]Binding),
		index:    make(map[bindingKey]Action),
	}
	reg := func(sc Scope, a Action, keys []string, display, desc string) {
		km.register(sc, Binding{Action: a, Keys: keys, Display: display, Help: desc})
	}
	screen := func(k ScreenKind) Scope { return Scope{Screen: k} }
	filter := func(k ScreenKind) Scope { return Scope{Screen: k, Filtering: true} }

	reg(globalScope, Exit{}, []string{"ctrl+c"}, "", "")

	// Numbered actions shared by menu, progress and result.
	for _, k := range []ScreenKind{KindMenu, KindProgress, KindResult} {
		reg(screen(k), Start{Kind: ActionList}, []string{"1"}, "", "list")
		reg(screen(k), Start{Kind: ActionInstall}, []string{"2"}, "", "install")
		reg(screen(k), Start{Kind: ActionUninstall}, []string{"3"}, "", "uninstall")
		reg(screen(k), Start{Kind: ActionUpdate}, []string{"4"}, "", "update")
		reg(screen(k), Start{Kind: ActionSwitch}, []string{"5"}, "", "switch")
	}
	reg(screen(KindMenu), Exit{}, []string{"0", "q", "Q"}, "0/q", "exit")

	reg(screen(KindProgress), CancelOperation{}, []string{"esc"}, "", "cancel")
	reg(screen(KindProgress), Exit{}, []string{"0", "q", "Q"}, "0/q", "exit")

	reg(screen(KindResult), ShowMenu{}, []string{"enter"}, "", "menu")
	reg(screen(KindResult), Back{}, []string{"b", "esc"}, "b", "back")
	reg(screen(KindResult), Exit{}, []string{"0", "q", "Q"}, "0/q", "exit")

	// Installed list.
	reg(screen(KindList), MoveFocus{Delta: -1}, []string{"up", "k"}, "↑/k", "up")
	reg(screen(KindList), MoveFocus{Delta: 1}, []string{"down", "j"}, "↓/j", "down")
	reg(screen(KindList), OpenFocused{}, []string{"enter", "space"}, "", "open")
	reg(screen(KindList), SwitchFocused{}, []string{"s"}, "", "switch")
	reg(screen(KindList), StartFilter{}, []string{"/"}, "", "filter")
	reg(screen(KindList), ClearFilter{}, []string{"esc"}, "", "")
	reg(screen(KindList), Refresh{}, []string{"r"}, "", "refresh")
	registerJump(km, screen(KindList))
	reg(screen(KindList), Back{}, []string{"b"}, "", "back")
	reg(screen(KindList), Exit{}, []string{"0", "q"}, "0/q", "exit")

	// Install list.
	reg(screen(KindInstallList), MoveFocus{Delta: -1}, []string{"up", "k"}, "↑/k", "up")
	reg(screen(KindInstallList), MoveFocus{Delta: 1}, []string{"down", "j"}, "↓/j", "down")
	reg(screen(KindInstallList), InstallFocused{}, []string{"enter", "space"}, "", "install")
	reg(screen(KindInstallList), OpenFocused{}, []string{"v"}, "", "details")
	reg(screen(KindInstallList), StartManualInstall{}, []string{"m"}, "", "manual")
	reg(screen(KindInstallList), StartFilter{}, []string{"/"}, "", "filter")
	reg(screen(KindInstallList), ClearFilter{}, []string{"esc"}, "", "")
	reg(screen(KindInstallList), Refresh{}, []string{"r"}, "", "refresh")
	registerJump(km, screen(KindInstallList))
	reg(screen(KindInstallList), Back{}, []string{"b"}, "", "back")
	reg(screen(KindInstallList), Exit{}, []string{"0", "q"}, "0/q", "exit")

	// Filter mode: every other printable key feeds the query.
	reg(filter(KindList), MoveFocus{Delta: -1}, []string{"up"}, "↑", "up")
	reg(filter(KindList), MoveFocus{Delta: 1}, []string{"down"}, "↓", "down")
	reg(filter(KindList), OpenFocused{}, []string{"enter"}, "", "open")
	reg(filter(KindInstallList), MoveFocus{Delta: -1}, []string{"up"}, "↑", "up")
	reg(filter(KindInstallList), MoveFocus{Delta: 1}, []string{"down"}, "↓", "down")
	reg(filter(KindInstallList), InstallFocused{}, []string{"enter"}, "", "install")
	for _, k := range []ScreenKind{KindList, KindInstallList} {
		reg(filter(k), FilterBackspace{}, []string{"backspace"}, "", "delete")
		reg(filter(k), ClearFilter{}, []string{"esc"}, "", "clear filter")
	}

	reg(screen(KindDetail), ConfirmSwitch{}, []string{"s"}, "", "switch")
	reg(screen(KindDetail), UninstallFromDetail{}, []string{"u"}, "", "uninstall")
	reg(screen(KindDetail), UpdateFromDetail{}, []string{"p"}, "", "update")
	reg(screen(KindDetail), InstallFromDetail{}, []string{"i"}, "", "install")
	reg(screen(KindDetail), Back{}, []string{"b", "esc"}, "b", "back")
	reg(screen(KindDetail), Exit{}, []string{"q", "0"}, "q", "exit")

	reg(screen(KindInput), Submit{}, []string{"enter"}, "", "submit")
	reg(screen(KindInput), Backspace{}, []string{"backspace"}, "", "")
	reg(screen(KindInput), CancelInput{}, []string{"esc"}, "", "cancel")

	reg(screen(KindError), RetryLast{}, []string{"r"}, "", "retry")
	reg(screen(KindError), CancelRecovery{}, []string{"c"}, "", "cancel")
	reg(screen(KindError), Back{}, []string{"b", "esc"}, "b", "back")
	reg(screen(KindError), CopyLogPath{}, []string{"y"}, "", "copy log path")
	reg(screen(KindError), Exit{}, []string{"q", "0"}, "q", "exit")

	return km
}

// registerJump binds digits 1-9 to SelectIndex with a single help entry.
func registerJump(km *KeyMap, sc Scope) {
	for d := 1; d <= 9; d++ {
		km.register(sc, Binding{Action: SelectIndex{Index: d - 1}, Keys: []string{strconv.Itoa(d)}})
	}
	km.register(sc, Binding{Keys: []string{"1-9"}, Help: "jump"})
}

// register adds a binding. Keys already bound in the scope keep their
// first binding.
func (km *KeyMap) register(sc Scope, b Binding) {
	var keys []string
	for _, k := range b.Keys {
		k = normalizeKeyName(k)
		if k == "" {
			continue
		}
		if _, taken := km.index[bindingKey{sc, k}]; taken {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return
	}
	b.Keys = keys
	km.bindings[sc] = append(km.bindings[sc], b)
	if b.Action == nil {
		return
	}
	for _, k := range keys {
		km.index[bindingKey{sc, k}] = b.Action
	}
}

func (km *KeyMap) lookup(sc Scope, k string) (Action, bool) {
	a, ok := km.index[bindingKey{sc, normalizeKeyName(k)}]
	return a, ok
}

// Map returns the Action for a key in the given context. Unbound keys
// report false.
func (km *KeyMap) Map(ctx KeyContext, ev KeyEvent) (Action, bool) {
	sc := ctx.scope()
	if ev.Key != "" {
		if a, ok := km.lookup(sc, ev.Key); ok {
			// Esc on a list only clears when there is something to clear.
			if _, isClear := a.(ClearFilter); isClear && !ctx.Filtering && !ctx.HasFilter {
				return nil, false
			}
			return a, true
		}
		if a, ok := km.lookup(globalScope, ev.Key); ok {
			return a, true
		}
	}
	switch {
	case ctx.Screen == KindInput && ev.Text != "":
		return InputChar{Text: ev.Text}, true
	case sc.Filtering && ev.Text != "":
		return FilterChar{Text: ev.Text}, true
	}
	return nil, false
}

// MapKey maps a key event to an Action using the default bindings.
func MapKey(ctx KeyContext, ev KeyEvent) (Action, bool) {
	return defaultKeys.Map(ctx, ev)
}

// BindingsFor returns the bindings registered for a scope in
// registration order.
func (km *KeyMap) BindingsFor(sc Scope) []Binding {
	return append([]Binding(nil), km.bindings[sc]...)
}

// helpKeys adapts a binding list to help.KeyMap.
type helpKeys []key.Binding

// ShortHelp returns the bindings for the help bar.
func (k helpKeys) ShortHelp() []key.Binding {
	return k
}

// FullHelp returns the bindings grouped in columns of four.
func (k helpKeys) FullHelp() [][]key.Binding {
	var groups [][]key.Binding
	for i := 0; i < len(k); i += 4 {
		groups = append(groups, k[i:min(i+4, len(k))])
	}
	return groups
}

// HelpBindings returns the help.KeyMap for the given context.
func (km *KeyMap) HelpBindings(ctx KeyContext) help.KeyMap {
	var out helpKeys
	for _, b := range km.bindings[ctx.scope()] {
		if b.Help == "" {
			continue
		}
		display := b.Display
		if display == "" {
			display = b.Keys[0]
		}
		out = append(out, key.NewBinding(key.WithKeys(b.Keys...), key.WithHelp(display, b.Help)))
	}
	if ctx.scope().Filtering {
		out = append(out, key.NewBinding(key.WithKeys("any"), key.WithHelp("type", "narrow")))
	}
	return out
}

// HelpBindings returns the default help.KeyMap for the given context.
func HelpBindings(ctx KeyContext) help.KeyMap {
	return defaultKeys.HelpBindings(ctx)
}

func normalizeKeyName(k string) string {
	if k == " " {
		return "space"
	}
	trimmed := strings.TrimSpace(k)
	if len(trimmed) == 1 {
		// Single runes stay case-sensitive so "q" and "Q" can differ.
		return trimmed
	}
	return strings.ToLower(trimmed)
}
