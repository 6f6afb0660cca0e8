// Package console implements the interactive toolchain console: a single
// Model advanced by a pure reducer, a key mapper that turns terminal keys
// into Actions, and a runner that executes reducer-issued Commands against
// a Manager and feeds the results back as Actions.
package console

import (
	"context"
	"time"
)

// Channel is the release channel of a toolchain.
type Channel string

const (
	ChannelStable   Channel = "stable"
	ChannelSnapshot Channel = "snapshot"
)

// Metadata holds optional install details for a toolchain.
type Metadata struct {
	InstalledAt      time.Time // Zero when unknown.
	ChecksumVerified *bool     // Nil when the manager never checked.
	Size             string    // Human-readable, e.g. "512 MB".
}

// ToolchainRecord describes one installed or installable toolchain.
// Records are values; a changed toolchain arrives as a new record with the
// same ID.
type ToolchainRecord struct {
	ID        string
	Version   string
	Channel   Channel
	Location  string // Empty when not installed or unknown.
	Active    bool
	Installed bool
	Metadata  *Metadata
}

// StatusLabel returns the short status column text for the record.
func (r ToolchainRecord) StatusLabel() string {
	switch {
	case r.Active:
		return "active"
	case r.Installed:
		return "installed"
	default:
		return "available"
	}
}

// --- Consumer-side interfaces ---

// ProgressFunc receives progress callbacks from a running operation.
// Percent is 0-100; detail may be empty.
type ProgressFunc func(percent int, detail string)

// Manager performs toolchain operations on behalf of the console.
// Mutating calls always return a terminal OperationSession; failures are
// reported through the session state, never as a separate error.
type Manager interface {
	// List returns installed toolchains, or an empty slice on error.
	List(ctx context.Context) []ToolchainRecord
	// ListAvailable returns installable toolchains. A non-empty message
	// reports a problem; records may still hold partial results.
	ListAvailable(ctx context.Context) ([]ToolchainRecord, string)
	SwitchTo(ctx context.Context, id string) OperationSession
	// Install installs id, or the latest stable toolchain when id is empty.
	Install(ctx context.Context, id string, progress ProgressFunc) OperationSession
	Uninstall(ctx context.Context, id string) OperationSession
	// Update updates id, or the active toolchain when id is empty.
	Update(ctx context.Context, id string, progress ProgressFunc) OperationSession
	// LoadPendingSession surfaces an operation interrupted by a previous
	// process, if any. It keeps reporting the same session until it is
	// acknowledged.
	LoadPendingSession(ctx context.Context) (OperationSession, bool)
	// AcknowledgePending marks the pending session id as shown.
	AcknowledgePending(ctx context.Context, id string) error
}

// Clipboard copies text for the user.
type Clipboard interface {
	WriteAll(text string) error
}
