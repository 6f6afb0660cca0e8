package manager

import (
	"bytes"
	"fmt"
	"io/fs"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"

	"github.com/smileynet/tcon/internal/console"
)

// Entry is one installable toolchain from the catalog.
type Entry struct {
	ID      string `toml:"id"`
	Version string `toml:"version"`
	Channel string `toml:"channel"`
	URL     string `toml:"url"`
	SHA256  string `toml:"sha256"`
	Size    int64  `toml:"size"`
}

type catalogFile struct {
	Toolchain []Entry `toml:"toolchain"`
}

// Catalog is the parsed set of installable toolchains. Problems lists
// entries that were skipped and keys that were not understood.
type Catalog struct {
	Entries  []Entry
	Problems []string
}

// ParseCatalog decodes a TOML catalog. A syntax error fails the whole
// catalog; a bad entry is skipped and reported in Problems.
func ParseCatalog(data []byte) (Catalog, error) {
	var raw catalogFile
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog: parsing: %w", err)
	}

	var c Catalog
	for _, key := range md.Undecoded() {
		c.Problems = append(c.Problems, fmt.Sprintf("unknown key %s", key))
	}

	seen := make(map[string]bool)
	for i, e := range raw.Toolchain {
		e.ID = strings.TrimSpace(e.ID)
		if e.Channel == "" {
			e.Channel = string(console.ChannelStable)
		}
		if err := validateEntry(e); err != nil {
			c.Problems = append(c.Problems, fmt.Sprintf("entry %d (%s): %v", i+1, e.ID, err))
			continue
		}
		if seen[e.ID] {
			c.Problems = append(c.Problems, fmt.Sprintf("entry %d (%s): duplicate id", i+1, e.ID))
			continue
		}
		seen[e.ID] = true
		c.Entries = append(c.Entries, e)
	}
	return c, nil
}

func validateEntry(e Entry) error {
	if !console.ValidIdentifier(e.ID) {
		return fmt.Errorf("%w: invalid id", ErrInvalidEntry)
	}
	if _, err := semver.NewVersion(e.Version); err != nil {
		return fmt.Errorf("%w: version %q: %v", ErrInvalidEntry, e.Version, err)
	}
	switch console.Channel(e.Channel) {
	case console.ChannelStable, console.ChannelSnapshot:
	default:
		return fmt.Errorf("%w: channel %q", ErrInvalidEntry, e.Channel)
	}
	if e.URL == "" {
		return fmt.Errorf("%w: missing url", ErrInvalidEntry)
	}
	if e.SHA256 != "" && len(e.SHA256) != 64 {
		return fmt.Errorf("%w: sha256 must be 64 hex characters", ErrInvalidEntry)
	}
	return nil
}

// LoadCatalog reads and parses name from fsys.
func LoadCatalog(fsys fs.FS, name string) (Catalog, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog: reading %s: %w", name, err)
	}
	return ParseCatalog(data)
}

// Lookup returns the entry with the given ID.
func (c Catalog) Lookup(id string) (Entry, bool) {
	for _, e := range c.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Problem summarizes Problems for the console status line. Empty when the
// catalog is clean.
func (c Catalog) Problem() string {
	switch len(c.Problems) {
	case 0:
		return ""
	case 1:
		return c.Problems[0]
	default:
		return fmt.Sprintf("%s (and %d more)", c.Problems[0], len(c.Problems)-1)
	}
}
