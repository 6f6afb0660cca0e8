// Package manager installs, switches and removes toolchains under a data
// directory. It implements console.Manager: every mutating call returns a
// terminal session and records its progress in an operation log and the
// pending journal.
package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/smileynet/tcon/internal/console"
	"github.com/smileynet/tcon/internal/oplog"
	"github.com/smileynet/tcon/internal/pending"
)

// Sentinel errors. Callers see them wrapped inside failed sessions.
var (
	ErrNotInstalled     = errors.New("toolchain not installed")
	ErrActiveToolchain  = errors.New("toolchain is in use; switch to another toolchain first")
	ErrUnknownToolchain = errors.New("toolchain not in catalog")
	ErrNoCandidate      = errors.New("no stable toolchain in catalog")
	ErrNoActive         = errors.New("no toolchain in use")
	ErrInvalidEntry     = errors.New("invalid catalog entry")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrUnsafeArchive    = errors.New("archive entry escapes install directory")
	ErrVerifyFailed     = errors.New("verification failed")
)

var _ console.Manager = (*Manager)(nil)

// keepLogs is how many operation logs survive pruning at startup.
const keepLogs = 50

// Options configures a Manager.
type Options struct {
	DataDir       string
	LogDir        string // Empty means <DataDir>/logs.
	Catalog       fs.FS
	CatalogName   string
	VerifyCommand string
	Timeout       time.Duration // Zero disables the per-operation limit.
	Fetcher       Fetcher
	Logger        *log.Logger
}

// Manager manages toolchains on disk.
type Manager struct {
	opts     Options
	registry *Registry
	journal  *pending.Store
	verifier Verifier
	logger   *log.Logger

	mu   sync.Mutex
	live map[string]struct{} // Operation IDs started by this process and not yet closed.
}

// New opens the registry under opts.DataDir and prunes old operation logs.
func New(opts Options) (*Manager, error) {
	if opts.DataDir == "" {
		return nil, errors.New("manager: data directory is required")
	}
	if opts.LogDir == "" {
		opts.LogDir = filepath.Join(opts.DataDir, "logs")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if err := os.MkdirAll(filepath.Join(opts.DataDir, "toolchains"), 0o755); err != nil {
		return nil, fmt.Errorf("manager: creating data directory: %w", err)
	}

	reg, err := OpenRegistry(filepath.Join(opts.DataDir, "registry.db"))
	if err != nil {
		return nil, err
	}
	if err := oplog.Prune(opts.LogDir, keepLogs); err != nil {
		opts.Logger.Printf("prune logs: %v", err)
	}
	return &Manager{
		opts:     opts,
		registry: reg,
		journal:  pending.NewStore(filepath.Join(opts.DataDir, "pending.jsonl")),
		verifier: Verifier{Command: opts.VerifyCommand},
		logger:   opts.Logger,
		live:     make(map[string]struct{}),
	}, nil
}

// Close releases the registry.
func (m *Manager) Close() error {
	return m.registry.Close()
}

func (m *Manager) toolchainsDir() string { return filepath.Join(m.opts.DataDir, "toolchains") }
func (m *Manager) currentLink() string   { return filepath.Join(m.toolchainsDir(), "current") }

func (m *Manager) catalog() (Catalog, error) {
	if m.opts.Catalog == nil {
		return Catalog{}, errors.New("no catalog configured")
	}
	return LoadCatalog(m.opts.Catalog, m.opts.CatalogName)
}

// --- Queries ---

// List returns installed toolchains. Errors are logged and yield an empty
// slice.
func (m *Manager) List(ctx context.Context) []console.ToolchainRecord {
	installed, err := m.registry.List(ctx)
	if err != nil {
		m.logger.Printf("list: %v", err)
		return []console.ToolchainRecord{}
	}
	out := make([]console.ToolchainRecord, 0, len(installed))
	for _, in := range installed {
		out = append(out, installedRecord(in))
	}
	return out
}

// ListAvailable returns catalog entries marked with their install state.
// The message reports skipped entries or an unreadable catalog.
func (m *Manager) ListAvailable(ctx context.Context) ([]console.ToolchainRecord, string) {
	cat, err := m.catalog()
	if err != nil {
		m.logger.Printf("catalog: %v", err)
		return nil, fmt.Sprintf("Catalog unavailable: %v", err)
	}
	installed := make(map[string]Installed)
	if list, err := m.registry.List(ctx); err == nil {
		for _, in := range list {
			installed[in.ID] = in
		}
	} else {
		m.logger.Printf("list: %v", err)
	}

	out := make([]console.ToolchainRecord, 0, len(cat.Entries))
	for _, e := range cat.Entries {
		if in, ok := installed[e.ID]; ok {
			out = append(out, installedRecord(in))
			continue
		}
		r := console.ToolchainRecord{ID: e.ID, Version: e.Version, Channel: console.Channel(e.Channel)}
		if e.Size > 0 {
			r.Metadata = &console.Metadata{Size: humanize.Bytes(uint64(e.Size))}
		}
		out = append(out, r)
	}
	return out, cat.Problem()
}

func installedRecord(in Installed) console.ToolchainRecord {
	md := &console.Metadata{InstalledAt: in.InstalledAt, ChecksumVerified: in.ChecksumVerified}
	if in.SizeBytes > 0 {
		md.Size = humanize.Bytes(uint64(in.SizeBytes))
	}
	return console.ToolchainRecord{
		ID:        in.ID,
		Version:   in.Version,
		Channel:   console.Channel(in.Channel),
		Location:  in.Location,
		Active:    in.Active,
		Installed: true,
		Metadata:  md,
	}
}

// LoadPendingSession reports the newest operation a previous process left
// running. Operations still running in this process are not reported. The
// same session is returned until AcknowledgePending closes it.
func (m *Manager) LoadPendingSession(ctx context.Context) (console.OperationSession, bool) {
	r, ok, err := m.journal.Interrupted(m.isLive)
	if err != nil {
		m.logger.Printf("pending: %v", err)
		return console.OperationSession{}, false
	}
	if !ok {
		return console.OperationSession{}, false
	}
	msg := interruptedMessage(r)
	return console.OperationSession{
		ID:      r.ID,
		Type:    console.OpType(r.Operation),
		Target:  r.Target,
		State:   console.Cancelled{Message: msg, LogPath: r.LogPath},
		LogPath: r.LogPath,
	}, true
}

// AcknowledgePending closes the interrupted operation id in the journal.
// Unknown, finished and live operations are left alone.
func (m *Manager) AcknowledgePending(ctx context.Context, id string) error {
	if m.isLive(id) {
		return nil
	}
	r, ok, err := m.journal.Lookup(id)
	if err != nil {
		return err
	}
	if !ok || r.Terminal() {
		return nil
	}
	return m.journal.Acknowledge(r, interruptedMessage(r))
}

func interruptedMessage(r pending.Record) string {
	return fmt.Sprintf("Interrupted: %s %s did not finish", r.Operation, displayTarget(r.Target))
}

func (m *Manager) track(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live[id] = struct{}{}
}

func (m *Manager) untrack(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, id)
}

func (m *Manager) isLive(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[id]
	return ok
}

func displayTarget(target string) string {
	if target == "" {
		return "default"
	}
	return target
}

// --- Operations ---

// SwitchTo makes id the active toolchain.
func (m *Manager) SwitchTo(ctx context.Context, id string) console.OperationSession {
	return m.run(ctx, console.OpSwitch, id, func(ctx context.Context, op *operation) (string, error) {
		in, err := m.registry.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if in.Active {
			return fmt.Sprintf("Already using %s", id), nil
		}
		if err := m.activate(ctx, op, in); err != nil {
			return "", err
		}
		return fmt.Sprintf("Now using %s", id), nil
	})
}

// Install installs id from the catalog, or the latest stable entry when id
// is empty.
func (m *Manager) Install(ctx context.Context, id string, progress console.ProgressFunc) console.OperationSession {
	return m.run(ctx, console.OpInstall, id, func(ctx context.Context, op *operation) (string, error) {
		cat, err := m.catalog()
		if err != nil {
			return "", err
		}
		entry, err := resolveInstall(cat, id)
		if err != nil {
			return "", err
		}
		op.Printf("resolved %s (version %s, channel %s)", entry.ID, entry.Version, entry.Channel)
		if _, err := m.registry.Get(ctx, entry.ID); err == nil {
			return fmt.Sprintf("%s is already installed", entry.ID), nil
		} else if !errors.Is(err, ErrNotInstalled) {
			return "", err
		}
		in, err := m.install(ctx, op, entry, progress)
		if err != nil {
			return "", err
		}
		if in.Active {
			if err := m.relink(in.Location); err != nil {
				return "", err
			}
			return fmt.Sprintf("Installed %s (now in use)", in.ID), nil
		}
		return fmt.Sprintf("Installed %s", in.ID), nil
	})
}

func resolveInstall(cat Catalog, id string) (Entry, error) {
	if id == "" {
		e, ok := LatestStable(cat.Entries)
		if !ok {
			return Entry{}, ErrNoCandidate
		}
		return e, nil
	}
	e, ok := cat.Lookup(id)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownToolchain, id)
	}
	return e, nil
}

// Uninstall removes an inactive toolchain from the registry and disk.
func (m *Manager) Uninstall(ctx context.Context, id string) console.OperationSession {
	return m.run(ctx, console.OpRemove, id, func(ctx context.Context, op *operation) (string, error) {
		in, err := m.registry.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if err := m.registry.Remove(ctx, id); err != nil {
			return "", err
		}
		op.Printf("removing %s", in.Location)
		if err := os.RemoveAll(in.Location); err != nil {
			return "", fmt.Errorf("removing %s: %w", in.Location, err)
		}
		return fmt.Sprintf("Removed %s", id), nil
	})
}

// Update installs the newest same-channel, same-major release of id (or of
// the active toolchain when id is empty). An updated active toolchain stays
// active under its new ID.
func (m *Manager) Update(ctx context.Context, id string, progress console.ProgressFunc) console.OperationSession {
	return m.run(ctx, console.OpUpdate, id, func(ctx context.Context, op *operation) (string, error) {
		current, err := m.updateBase(ctx, id)
		if err != nil {
			return "", err
		}
		cat, err := m.catalog()
		if err != nil {
			return "", err
		}
		entry, ok := UpdateCandidate(cat.Entries, current)
		if !ok {
			return fmt.Sprintf("%s is up to date", current.ID), nil
		}
		op.Printf("updating %s to %s", current.ID, entry.ID)

		next, err := m.registry.Get(ctx, entry.ID)
		if err != nil {
			if !errors.Is(err, ErrNotInstalled) {
				return "", err
			}
			if next, err = m.install(ctx, op, entry, progress); err != nil {
				return "", err
			}
		}
		if current.Active && !next.Active {
			if err := m.activate(ctx, op, next); err != nil {
				return "", err
			}
		}
		return fmt.Sprintf("Updated %s to %s", current.ID, entry.ID), nil
	})
}

func (m *Manager) updateBase(ctx context.Context, id string) (Installed, error) {
	if id != "" {
		return m.registry.Get(ctx, id)
	}
	in, ok, err := m.registry.Active(ctx)
	if err != nil {
		return Installed{}, err
	}
	if !ok {
		return Installed{}, ErrNoActive
	}
	return in, nil
}

// --- Internals ---

func (m *Manager) activate(ctx context.Context, op *operation, in Installed) error {
	if err := m.registry.SetActive(ctx, in.ID); err != nil {
		return err
	}
	op.Printf("activated %s", in.ID)
	return m.relink(in.Location)
}

// relink points <data>/toolchains/current at location.
func (m *Manager) relink(location string) error {
	link := m.currentLink()
	if err := os.Remove(link); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("updating current link: %w", err)
	}
	if err := os.Symlink(location, link); err != nil {
		return fmt.Errorf("updating current link: %w", err)
	}
	return nil
}

// Progress bands for an install.
const (
	downloadDone = 80
	extractDone  = 95
)

// install downloads, checks, extracts and verifies entry, then records it.
func (m *Manager) install(ctx context.Context, op *operation, entry Entry, progress console.ProgressFunc) (Installed, error) {
	report := throttle(progress)
	report(0, "Downloading "+entry.ID)

	downloads := filepath.Join(m.opts.DataDir, "downloads")
	if err := os.MkdirAll(downloads, 0o755); err != nil {
		return Installed{}, fmt.Errorf("creating %s: %w", downloads, err)
	}
	archive, err := os.CreateTemp(downloads, entry.ID+"-*.tar.gz")
	if err != nil {
		return Installed{}, fmt.Errorf("creating download file: %w", err)
	}
	defer func() {
		_ = archive.Close()
		_ = os.Remove(archive.Name())
	}()

	op.Printf("downloading %s", entry.URL)
	sum, n, err := m.opts.Fetcher.Fetch(ctx, entry.URL, archive, entry.Size, func(done, total int64) {
		if total <= 0 {
			report(0, fmt.Sprintf("Downloading %s (%s)", entry.ID, humanize.Bytes(uint64(done))))
			return
		}
		pct := int(done * downloadDone / total)
		report(min(pct, downloadDone), fmt.Sprintf("Downloading %s (%s / %s)", entry.ID, humanize.Bytes(uint64(done)), humanize.Bytes(uint64(total))))
	})
	if err != nil {
		return Installed{}, err
	}
	op.Printf("downloaded %s, sha256 %s", humanize.Bytes(uint64(n)), sum)

	verified, err := VerifyChecksum(entry.SHA256, sum)
	if err != nil {
		return Installed{}, err
	}

	report(downloadDone, "Extracting "+entry.ID)
	if _, err := archive.Seek(0, io.SeekStart); err != nil {
		return Installed{}, fmt.Errorf("rewinding download: %w", err)
	}
	staging := filepath.Join(m.toolchainsDir(), "."+entry.ID+".partial")
	if err := os.RemoveAll(staging); err != nil {
		return Installed{}, fmt.Errorf("clearing %s: %w", staging, err)
	}
	size, err := Extract(archive, staging)
	if err != nil {
		_ = os.RemoveAll(staging)
		return Installed{}, err
	}

	report(extractDone, "Verifying "+entry.ID)
	if err := m.verifier.Run(ctx, staging, op); err != nil {
		_ = os.RemoveAll(staging)
		return Installed{}, err
	}

	location := filepath.Join(m.toolchainsDir(), entry.ID)
	if err := os.RemoveAll(location); err != nil {
		return Installed{}, fmt.Errorf("clearing %s: %w", location, err)
	}
	if err := os.Rename(staging, location); err != nil {
		_ = os.RemoveAll(staging)
		return Installed{}, fmt.Errorf("moving into place: %w", err)
	}

	in, err := m.registry.Put(ctx, Installed{
		ID:               entry.ID,
		Version:          entry.Version,
		Channel:          entry.Channel,
		Location:         location,
		InstalledAt:      time.Now(),
		ChecksumVerified: &verified,
		SizeBytes:        size,
	})
	if err != nil {
		return Installed{}, err
	}
	report(100, "Installed "+entry.ID)
	op.Printf("installed %s at %s", entry.ID, location)
	return in, nil
}

// throttle drops progress reports that repeat the previous percentage.
func throttle(progress console.ProgressFunc) console.ProgressFunc {
	last := -1
	return func(percent int, detail string) {
		if progress == nil || percent == last {
			return
		}
		last = percent
		progress(percent, detail)
	}
}
