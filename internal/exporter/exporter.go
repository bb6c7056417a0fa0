// Package exporter serializes an engine object graph to glTF or GLB.
package exporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/modelstage/internal/engine/animation"
	"github.com/Faultbox/modelstage/internal/engine/model"
)

// ErrEmptyScene is returned when nothing is left to export.
var ErrEmptyScene = errors.New("nothing to export")

// MIME types of the two output forms.
const (
	MimeGLTF = "model/gltf+json"
	MimeGLB  = "model/gltf-binary"
)

// VariantsExtension is the glTF extension carrying material variants.
const VariantsExtension = "KHR_materials_variants"

// VariantSource supplies material variants for export.
type VariantSource interface {
	AvailableVariants() []string
	// VariantMaterials maps variant index to material for a primitive.
	VariantMaterials(prim *model.Primitive) map[int]*model.Material
}

// Options controls an export.
type Options struct {
	Binary         bool // GLB instead of glTF JSON with embedded buffers
	OnlyVisible    bool // Skip invisible objects and their subtrees
	MaxTextureSize int  // Downscale larger textures; 0 keeps them as is
	Animations     []*animation.Clip
	Variants       VariantSource
	// Skip, if set, drops the objects it returns true for, with their subtrees.
	Skip func(*model.Object) bool
}

// MimeType returns the MIME type of the export's output.
func (o Options) MimeType() string {
	if o.Binary {
		return MimeGLB
	}
	return MimeGLTF
}

// Exporter serializes the children of root as a single-scene document.
type Exporter interface {
	Export(ctx context.Context, root *model.Object, opts Options) ([]byte, error)
}

// GLTFExporter writes documents with qmuntal/gltf.
type GLTFExporter struct {
	Log *zap.Logger
}

var _ Exporter = (*GLTFExporter)(nil)

// Export serializes root's children. root itself is the container the model
// is mounted in and is not written.
func (e *GLTFExporter) Export(ctx context.Context, root *model.Object, opts Options) ([]byte, error) {
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}
	w := newWriter(opts, log)

	var top []int
	for _, child := range root.Children() {
		if idx, ok := w.node(child); ok {
			top = append(top, idx)
		}
	}
	if len(top) == 0 {
		return nil, ErrEmptyScene
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := w.doc
	doc.Scenes = []*gltf.Scene{{Name: root.Name, Nodes: top}}
	doc.Scene = gltf.Index(0)

	if err := w.writeMaterials(ctx); err != nil {
		return nil, err
	}
	w.variants()
	for _, clip := range opts.Animations {
		w.animation(clip)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !opts.Binary {
		for _, b := range doc.Buffers {
			if b.URI == "" {
				b.EmbeddedResource()
			}
		}
	}
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = opts.Binary
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	log.Debug("scene exported",
		zap.Bool("binary", opts.Binary),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("materials", len(doc.Materials)),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// sortedKeys returns map keys in ascending order.
func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
