// Package tcon provides the embedded default toolchain catalog and an
// overlay filesystem that checks local disk first, falling back to embedded.
package tcon

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
)

// CatalogName is the file name of the default catalog inside Catalog.
const CatalogName = "default.toml"

//go:embed catalog/default.toml
var rawCatalog embed.FS

// Catalog is the embedded catalog filesystem with the "catalog/" prefix stripped.
var Catalog = mustSub(rawCatalog, "catalog")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// OverlayFS returns a filesystem that checks localDir on disk first,
// falling back to the embedded filesystem for files not found locally.
func OverlayFS(localDir string, embedded fs.FS) fs.FS {
	return overlayFS{localDir: localDir, embedded: embedded}
}

type overlayFS struct {
	localDir string
	embedded fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	f, err := os.Open(filepath.Join(o.localDir, filepath.FromSlash(name)))
	if err == nil {
		return f, nil
	}
	return o.embedded.Open(name)
}

// CatalogSource resolves the configured catalog path to a filesystem and
// file name. An empty path selects the embedded default; a configured file
// that is missing on disk falls back to an embedded file of the same name.
func CatalogSource(path string) (fs.FS, string) {
	if path == "" {
		return Catalog, CatalogName
	}
	return OverlayFS(filepath.Dir(path), Catalog), filepath.Base(path)
}
