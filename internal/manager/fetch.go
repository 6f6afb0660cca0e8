package manager

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ByteProgress receives the bytes copied so far and the expected total
// (0 when unknown).
type ByteProgress func(done, total int64)

// Fetcher downloads toolchain archives. Remote sources use HTTP(S); file
// URLs and plain paths are read from disk.
type Fetcher struct {
	Client *http.Client
}

// Fetch copies src into dst and returns the SHA-256 of the bytes copied.
// size is the expected length used for progress when the source does not
// report one.
func (f Fetcher) Fetch(ctx context.Context, src string, dst io.Writer, size int64, progress ByteProgress) (string, int64, error) {
	rc, total, err := f.open(ctx, src)
	if err != nil {
		return "", 0, err
	}
	defer rc.Close()
	if total <= 0 {
		total = size
	}

	h := sha256.New()
	cw := &countingWriter{total: total, progress: progress}
	n, err := io.Copy(io.MultiWriter(dst, h, cw), ctxReader{ctx: ctx, r: rc})
	if err != nil {
		return "", n, fmt.Errorf("fetch: copying %s: %w", src, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func (f Fetcher) open(ctx context.Context, src string) (io.ReadCloser, int64, error) {
	u, err := url.Parse(src)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		client := f.Client
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("fetch: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, 0, fmt.Errorf("fetch: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, 0, fmt.Errorf("fetch: %s: %s", src, resp.Status)
		}
		return resp.Body, resp.ContentLength, nil
	}

	path := src
	if err == nil && u.Scheme == "file" {
		path = u.Path
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch: opening %s: %w", path, err)
	}
	var size int64
	if st, err := file.Stat(); err == nil {
		size = st.Size()
	}
	return file, size, nil
}

type countingWriter struct {
	done, total int64
	progress    ByteProgress
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.done += int64(len(p))
	if w.progress != nil {
		w.progress(w.done, w.total)
	}
	return len(p), nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// VerifyChecksum compares a computed digest against the catalog value. An
// empty expected value skips the check and reports false.
func VerifyChecksum(expected, actual string) (bool, error) {
	if expected == "" {
		return false, nil
	}
	if !strings.EqualFold(expected, actual) {
		return false, fmt.Errorf("%w: want %s, got %s", ErrChecksumMismatch, strings.ToLower(expected), actual)
	}
	return true, nil
}

// Extract unpacks a gzip-compressed tar archive into dest and returns the
// number of bytes written. Entries that would land outside dest are
// rejected.
func Extract(archive io.Reader, dest string) (int64, error) {
	gz, err := gzip.NewReader(archive)
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, fmt.Errorf("extract: creating %s: %w", dest, err)
	}
	root, err := filepath.Abs(dest)
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}

	var written int64
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		// Insecure names are confined below, so they are not fatal.
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return written, fmt.Errorf("extract: reading archive: %w", err)
		}

		target := filepath.Join(root, filepath.Clean("/"+hdr.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return written, fmt.Errorf("%w: %s", ErrUnsafeArchive, hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return written, fmt.Errorf("extract: %w", err)
			}
		case tar.TypeReg:
			n, err := writeFile(target, tr, hdr.FileInfo().Mode().Perm())
			written += n
			if err != nil {
				return written, err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) || strings.HasPrefix(filepath.Clean(filepath.Join(filepath.Dir(hdr.Name), hdr.Linkname)), "..") {
				return written, fmt.Errorf("%w: link %s -> %s", ErrUnsafeArchive, hdr.Name, hdr.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return written, fmt.Errorf("extract: %w", err)
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return written, fmt.Errorf("extract: %w", err)
			}
		}
	}
}

func writeFile(path string, r io.Reader, perm os.FileMode) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return 0, fmt.Errorf("extract: creating %s: %w", path, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("extract: writing %s: %w", path, err)
	}
	return n, nil
}
