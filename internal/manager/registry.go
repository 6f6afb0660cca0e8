package manager

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Installed is one row of the registry.
type Installed struct {
	ID               string
	Version          string
	Channel          string
	Location         string
	Active           bool
	InstalledAt      time.Time
	ChecksumVerified *bool
	SizeBytes        int64
}

// Registry records installed toolchains in SQLite. At most one row is
// active.
type Registry struct {
	db *sql.DB
}

// OpenRegistry opens (creating if needed) the registry database at path
// and applies pending schema migrations.
func OpenRegistry(path string) (*Registry, error) {
	if err := migrateRegistry(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("registry: opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: opening %s: %w", path, err)
	}
	return &Registry{db: db}, nil
}

// migrateRegistry runs the embedded migrations on a dedicated connection;
// closing the migrator closes that connection.
func migrateRegistry(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("registry: opening %s: %w", path, err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("registry: migration driver: %w", err)
	}
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("registry: migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("registry: migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("registry: migrating %s: %w", path, err)
	}
	return nil
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.db.Close()
}

const selectInstalled = `SELECT id, version, channel, location, active, installed_at, checksum_verified, size_bytes FROM toolchains`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstalled(s rowScanner) (Installed, error) {
	var (
		in       Installed
		active   int
		unix     int64
		verified sql.NullBool
	)
	if err := s.Scan(&in.ID, &in.Version, &in.Channel, &in.Location, &active, &unix, &verified, &in.SizeBytes); err != nil {
		return Installed{}, err
	}
	in.Active = active != 0
	in.InstalledAt = time.Unix(unix, 0).UTC()
	if verified.Valid {
		v := verified.Bool
		in.ChecksumVerified = &v
	}
	return in, nil
}

// List returns every installed toolchain ordered by ID.
func (r *Registry) List(ctx context.Context) ([]Installed, error) {
	rows, err := r.db.QueryContext(ctx, selectInstalled+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("registry: listing: %w", err)
	}
	defer rows.Close()

	var out []Installed
	for rows.Next() {
		in, err := scanInstalled(rows)
		if err != nil {
			return nil, fmt.Errorf("registry: scanning: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry: listing: %w", err)
	}
	return out, nil
}

// Get returns the toolchain with the given ID or ErrNotInstalled.
func (r *Registry) Get(ctx context.Context, id string) (Installed, error) {
	in, err := scanInstalled(r.db.QueryRowContext(ctx, selectInstalled+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Installed{}, fmt.Errorf("%w: %s", ErrNotInstalled, id)
	}
	if err != nil {
		return Installed{}, fmt.Errorf("registry: reading %s: %w", id, err)
	}
	return in, nil
}

// Active returns the active toolchain, if any.
func (r *Registry) Active(ctx context.Context) (Installed, bool, error) {
	in, err := scanInstalled(r.db.QueryRowContext(ctx, selectInstalled+` WHERE active = 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return Installed{}, false, nil
	}
	if err != nil {
		return Installed{}, false, fmt.Errorf("registry: reading active: %w", err)
	}
	return in, true, nil
}

// Put inserts or replaces a toolchain, keeping its active flag when it
// already exists. The first toolchain installed becomes active.
func (r *Registry) Put(ctx context.Context, in Installed) (Installed, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var count, wasActive int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(MAX(CASE WHEN id = ? THEN active END), 0) FROM toolchains`, in.ID).
			Scan(&count, &wasActive); err != nil {
			return err
		}
		in.Active = wasActive != 0 || count == 0

		var verified sql.NullBool
		if in.ChecksumVerified != nil {
			verified = sql.NullBool{Bool: *in.ChecksumVerified, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO toolchains (id, version, channel, location, active, installed_at, checksum_verified, size_bytes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET version = excluded.version, channel = excluded.channel, location = excluded.location,
				active = excluded.active, installed_at = excluded.installed_at, checksum_verified = excluded.checksum_verified,
				size_bytes = excluded.size_bytes`,
			in.ID, in.Version, in.Channel, in.Location, boolInt(in.Active), in.InstalledAt.Unix(), verified, in.SizeBytes)
		return err
	})
	if err != nil {
		return Installed{}, fmt.Errorf("registry: saving %s: %w", in.ID, err)
	}
	return in, nil
}

// Remove deletes a toolchain. Removing the active toolchain is refused
// with ErrActiveToolchain.
func (r *Registry) Remove(ctx context.Context, id string) error {
	in, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if in.Active {
		return fmt.Errorf("%w: %s", ErrActiveToolchain, id)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM toolchains WHERE id = ?`, id); err != nil {
		return fmt.Errorf("registry: removing %s: %w", id, err)
	}
	return nil
}

// SetActive makes id the only active toolchain.
func (r *Registry) SetActive(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE toolchains SET active = 0 WHERE active = 1`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE toolchains SET active = 1 WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("registry: activating %s: %w", id, err)
	}
	return nil
}

// withTx runs fn in a transaction.
func (r *Registry) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
