package manager

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

// tarball builds a gzip-compressed tar archive from name -> content. A
// trailing slash in the name marks a directory.
func tarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		hdr := &tar.Header{Name: name, Mode: 0o755, Size: int64(len(body)), Typeflag: tar.TypeReg}
		if strings.HasSuffix(name, "/") {
			hdr.Typeflag, hdr.Size = tar.TypeDir, 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %s: %v", name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(body)); err != nil {
				t.Fatalf("tar body %s: %v", name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip: %v", err)
	}
	return buf.Bytes()
}

func sha(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// archiveFixture writes a toolchain archive to dir and returns its path
// and checksum.
func archiveFixture(t *testing.T, dir, id string) (string, string) {
	t.Helper()
	data := tarball(t, map[string]string{
		"bin/":      "",
		"bin/swift": "#!/bin/sh\necho " + id + "\n",
		"VERSION":   id + "\n",
	})
	path := filepath.Join(dir, id+".tar.gz")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	return path, sha(data)
}

type fixtureEntry struct {
	id, version, channel string
}

// catalogFixture builds archives for entries and returns a catalog FS
// naming them.
func catalogFixture(t *testing.T, entries ...fixtureEntry) fstest.MapFS {
	t.Helper()
	dir := t.TempDir()
	var b strings.Builder
	for _, e := range entries {
		path, sum := archiveFixture(t, dir, e.id)
		fmt.Fprintf(&b, "[[toolchain]]\nid = %q\nversion = %q\nchannel = %q\nurl = %q\nsha256 = %q\n\n",
			e.id, e.version, e.channel, "file://"+path, sum)
	}
	return fstest.MapFS{"catalog.toml": {Data: []byte(b.String())}}
}

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	if opts.DataDir == "" {
		opts.DataDir = t.TempDir()
	}
	if opts.CatalogName == "" {
		opts.CatalogName = "catalog.toml"
	}
	m, err := New(opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}
