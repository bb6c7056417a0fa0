package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

// resolve maps a URL or path to a source.
func (l *GLTFLoader) resolve(ctx context.Context, raw string) (*source, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain path; a one-letter scheme is a Windows drive.
		return l.fileSource(raw), nil
	}
	switch u.Scheme {
	case "file":
		return l.fileSource(filepath.FromSlash(u.Path)), nil
	case "http", "https":
		dir := *u
		dir.Path = path.Dir(u.Path) + "/"
		dir.RawQuery, dir.Fragment = "", ""
		return &source{
			fetch: func(ctx context.Context, progress ProgressFunc) ([]byte, error) {
				return l.get(ctx, raw, progress)
			},
			fsys: &httpFS{ctx: ctx, loader: l, base: &dir},
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, u.Scheme)
}

func (l *GLTFLoader) fileSource(name string) *source {
	return &source{
		fetch: func(ctx context.Context, progress ProgressFunc) ([]byte, error) {
			f, err := os.Open(name)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			var size int64
			if info, err := f.Stat(); err == nil {
				size = info.Size()
			}
			return l.readAll(ctx, f, size, progress)
		},
		fsys: os.DirFS(filepath.Dir(name)),
	}
}

// get performs a GET bound to ctx.
func (l *GLTFLoader) get(ctx context.Context, rawURL string, progress ProgressFunc) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status)
	}
	return l.readAll(ctx, resp.Body, resp.ContentLength, progress)
}

// readAll reads r, reporting progress against size when known and
// enforcing MaxBytes.
func (l *GLTFLoader) readAll(ctx context.Context, r io.Reader, size int64, progress ProgressFunc) ([]byte, error) {
	if l.MaxBytes > 0 && size > l.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	if progress == nil {
		progress = func(float64) {}
	}

	limit := l.MaxBytes
	if limit <= 0 {
		limit = 1<<63 - 1
	}
	var out []byte
	if size > 0 {
		out = make([]byte, 0, size)
	}
	buf := make([]byte, 32<<10)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if int64(len(out)) > limit {
			return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
		}
		if size > 0 {
			progress(float64(len(out)) / float64(size))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	progress(1)
	return out, nil
}

// httpFS resolves a model's relative resources against its base URL.
type httpFS struct {
	ctx    context.Context
	loader *GLTFLoader
	base   *url.URL
}

func (h *httpFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	ref, err := url.Parse(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	data, err := h.loader.get(h.ctx, h.base.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &memFile{name: path.Base(name), Reader: bytes.NewReader(data), size: int64(len(data))}, nil
}

// memFile is a fetched resource exposed as an fs.File.
type memFile struct {
	*bytes.Reader
	name string
	size int64
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f, nil }
func (f *memFile) Close() error               { return nil }
func (f *memFile) Name() string               { return f.name }
func (f *memFile) Size() int64                { return f.size }
func (f *memFile) Mode() fs.FileMode          { return 0o444 }
func (f *memFile) ModTime() time.Time         { return time.Time{} }
func (f *memFile) IsDir() bool                { return false }
func (f *memFile) Sys() any                   { return nil }
