// Package loader fetches glTF and GLB models and builds the engine object
// graph from them, keeping the correlation between document indices and
// engine objects.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
)

// Sentinel errors.
var (
	ErrUnsupportedSource = errors.New("unsupported model source")
	ErrTooLarge          = errors.New("model exceeds size limit")
	ErrHTTPStatus        = errors.New("unexpected HTTP status")
	ErrDecode            = errors.New("invalid glTF document")
)

// ProgressFunc receives load progress in [0, 1].
type ProgressFunc func(fraction float64)

// Loader loads a model. Implementations must return ctx.Err() when the
// context is cancelled and report progress monotonically.
type Loader interface {
	Load(ctx context.Context, url string, progress ProgressFunc) (*CorrelatedSceneGraph, error)
}

// GLTFLoader loads .gltf and .glb files from local paths, file:// URLs
// and http(s) URLs. Relative resources resolve against the model's location.
type GLTFLoader struct {
	Client   *http.Client
	MaxBytes int64 // 0 means unlimited
	Log      *zap.Logger
}

// DefaultMaxBytes bounds the size of a single fetched resource.
const DefaultMaxBytes = 256 << 20

// NewGLTFLoader returns a loader with an HTTP client using the given timeout.
func NewGLTFLoader(timeout time.Duration, maxBytes int64, log *zap.Logger) *GLTFLoader {
	if log == nil {
		log = zap.NewNop()
	}
	return &GLTFLoader{
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: maxBytes,
		Log:      log,
	}
}

var _ Loader = (*GLTFLoader)(nil)

// Load fetches url, decodes it and correlates it with a fresh object graph.
// Fetching the main file accounts for the first 90% of progress.
func (l *GLTFLoader) Load(ctx context.Context, url string, progress ProgressFunc) (*CorrelatedSceneGraph, error) {
	if progress == nil {
		progress = func(float64) {}
	}
	log := l.logger().With(zap.String("url", url))

	src, err := l.resolve(ctx, url)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	progress(0)
	data, err := src.fetch(ctx, func(f float64) { progress(0.9 * f) })
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := new(gltf.Document)
	if err := gltf.NewDecoderFS(bytes.NewReader(data), src.fsys).Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, url, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	graph, err := Correlate(ctx, doc, src.fsys, log)
	if err != nil {
		return nil, err
	}
	graph.URL = url
	progress(1)

	log.Debug("model loaded",
		zap.Int("bytes", len(data)),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("materials", len(doc.Materials)),
		zap.Duration("took", time.Since(start)))
	return graph, nil
}

func (l *GLTFLoader) logger() *zap.Logger {
	if l.Log == nil {
		return zap.NewNop()
	}
	return l.Log
}

func (l *GLTFLoader) client() *http.Client {
	if l.Client == nil {
		return http.DefaultClient
	}
	return l.Client
}

// IsModelPath reports whether name has a glTF extension.
func IsModelPath(name string) bool {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".gltf", ".glb":
		return true
	}
	return false
}

// source is a fetchable model plus the filesystem its relative URIs resolve in.
type source struct {
	fetch func(ctx context.Context, progress ProgressFunc) ([]byte, error)
	fsys  fs.FS
}
