package console

import (
	"fmt"
	"strings"
)

// ScreenKind identifies a Screen variant without its payload. The key
// mapper is keyed by it.
type ScreenKind int

const (
	KindMenu        ScreenKind = iota // Main menu.
	KindList                          // Installed toolchains.
	KindInstallList                   // Installable toolchains from the catalog.
	KindDetail                        // One toolchain.
	KindInput                         // Free-text entry for an action.
	KindProgress                      // An operation or load is in flight.
	KindResult                        // Last operation succeeded.
	KindError                         // Last operation failed or was cancelled.
)

var screenKindNames = [...]string{
	KindMenu:        "menu",
	KindList:        "list",
	KindInstallList: "installList",
	KindDetail:      "detail",
	KindInput:       "input",
	KindProgress:    "progress",
	KindResult:      "result",
	KindError:       "error",
}

func (k ScreenKind) String() string {
	if k < 0 || int(k) >= len(screenKindNames) {
		return fmt.Sprintf("ScreenKind(%d)", int(k))
	}
	return screenKindNames[k]
}

// AllScreenKinds lists every ScreenKind in declaration order.
func AllScreenKinds() []ScreenKind {
	return []ScreenKind{KindMenu, KindList, KindInstallList, KindDetail, KindInput, KindProgress, KindResult, KindError}
}

// ActionKind is a top-level menu action.
type ActionKind string

const (
	ActionList      ActionKind = "list"
	ActionSwitch    ActionKind = "switch"
	ActionInstall   ActionKind = "install"
	ActionUninstall ActionKind = "uninstall"
	ActionUpdate    ActionKind = "update"
	ActionExit      ActionKind = "exit"
)

// Op returns the session type an action kind dispatches.
func (k ActionKind) Op() OpType {
	switch k {
	case ActionSwitch:
		return OpSwitch
	case ActionInstall:
		return OpInstall
	case ActionUninstall:
		return OpRemove
	case ActionUpdate:
		return OpUpdate
	default:
		return OpList
	}
}

// Title returns the capitalized label used in breadcrumbs and headers.
func (k ActionKind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Screen is the console's primary state machine. The concrete variants are
// MenuScreen, ListScreen, InstallListScreen, DetailScreen, InputScreen,
// ProgressScreen, ResultScreen and ErrorScreen.
type Screen interface {
	Kind() ScreenKind
	isScreen()
}

// Verify at compile time that all variants implement Screen.
var (
	_ Screen = MenuScreen{}
	_ Screen = ListScreen{}
	_ Screen = InstallListScreen{}
	_ Screen = DetailScreen{}
	_ Screen = InputScreen{}
	_ Screen = ProgressScreen{}
	_ Screen = ResultScreen{}
	_ Screen = ErrorScreen{}
)

type MenuScreen struct{}

type ListScreen struct{}

type InstallListScreen struct{}

type DetailScreen struct {
	Toolchain ToolchainRecord
}

type InputScreen struct {
	Kind ActionKind
}

// ProgressScreen is transient and is never pushed onto the navigation stack.
type ProgressScreen struct {
	Message string
}

type ResultScreen struct {
	Message string
}

type ErrorScreen struct {
	Session OperationSession
}

func (MenuScreen) Kind() ScreenKind        { return KindMenu }
func (ListScreen) Kind() ScreenKind        { return KindList }
func (InstallListScreen) Kind() ScreenKind { return KindInstallList }
func (DetailScreen) Kind() ScreenKind      { return KindDetail }
func (InputScreen) Kind() ScreenKind       { return KindInput }
func (ProgressScreen) Kind() ScreenKind    { return KindProgress }
func (ResultScreen) Kind() ScreenKind      { return KindResult }
func (ErrorScreen) Kind() ScreenKind       { return KindError }

func (MenuScreen) isScreen()        {}
func (ListScreen) isScreen()        {}
func (InstallListScreen) isScreen() {}
func (DetailScreen) isScreen()      {}
func (InputScreen) isScreen()       {}
func (ProgressScreen) isScreen()    {}
func (ResultScreen) isScreen()      {}
func (ErrorScreen) isScreen()       {}

// Header returns the title line for a screen.
func Header(s Screen) string {
	switch s := s.(type) {
	case MenuScreen:
		return "Main menu"
	case ListScreen:
		return "Installed toolchains"
	case InstallListScreen:
		return "Install toolchains"
	case DetailScreen:
		return "Toolchain details"
	case InputScreen:
		return s.Kind.Title() + " input"
	case ProgressScreen:
		return "Working"
	case ResultScreen:
		return "Result"
	case ErrorScreen:
		return "Action error"
	default:
		return ""
	}
}

// Breadcrumb returns the navigation path shown in the status bar.
func Breadcrumb(s Screen) string {
	switch s := s.(type) {
	case MenuScreen:
		return "Home"
	case ListScreen:
		return "Home > Toolchains"
	case InstallListScreen:
		return "Home > Install"
	case DetailScreen:
		return "Home > Toolchains > " + s.Toolchain.ID
	case InputScreen:
		return "Home > " + s.Kind.Title()
	case ProgressScreen:
		return "Home > Working"
	case ResultScreen:
		return "Home > Result"
	case ErrorScreen:
		return "Home > Error"
	default:
		return "Home"
	}
}
