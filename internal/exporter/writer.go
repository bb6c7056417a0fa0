package exporter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/Faultbox/modelstage/internal/engine/animation"
	"github.com/Faultbox/modelstage/internal/engine/model"
)

// writer accumulates one document. Meshes, materials and images shared by
// several objects are written once.
type writer struct {
	doc  *gltf.Document
	opts Options
	log  *zap.Logger

	nodes     map[*model.Object]int
	meshes    map[*model.Mesh]int
	materials map[*model.Material]int
	matOrder  []*model.Material
	images    map[image.Image]int
	prims     []writtenPrimitive // in write order
}

type writtenPrimitive struct {
	out *gltf.Primitive
	src *model.Primitive
}

func newWriter(opts Options, log *zap.Logger) *writer {
	doc := gltf.NewDocument()
	doc.Scenes = nil
	doc.Scene = nil
	return &writer{
		doc:       doc,
		opts:      opts,
		log:       log,
		nodes:     make(map[*model.Object]int),
		meshes:    make(map[*model.Mesh]int),
		materials: make(map[*model.Material]int),
		images:    make(map[image.Image]int),
	}
}

// node writes obj and its subtree, returning false if it was skipped.
func (w *writer) node(obj *model.Object) (int, bool) {
	if w.opts.OnlyVisible && !obj.Visible {
		return 0, false
	}
	if w.opts.Skip != nil && w.opts.Skip(obj) {
		return 0, false
	}
	n := &gltf.Node{
		Name:        obj.Name,
		Translation: [3]float64(obj.Position),
		Rotation:    [4]float64{obj.Rotation.V[0], obj.Rotation.V[1], obj.Rotation.V[2], obj.Rotation.W},
		Scale:       [3]float64(obj.Scale),
	}
	idx := len(w.doc.Nodes)
	w.doc.Nodes = append(w.doc.Nodes, n)
	w.nodes[obj] = idx

	if obj.Mesh != nil && len(obj.Mesh.Primitives) > 0 {
		n.Mesh = gltf.Index(w.mesh(obj.Mesh))
	}
	for _, child := range obj.Children() {
		if ci, ok := w.node(child); ok {
			n.Children = append(n.Children, ci)
		}
	}
	return idx, true
}

func (w *writer) mesh(m *model.Mesh) int {
	if idx, ok := w.meshes[m]; ok {
		return idx
	}
	out := &gltf.Mesh{Name: m.Name}
	for _, p := range m.Primitives {
		if len(p.Positions) == 0 {
			continue
		}
		prim := &gltf.Primitive{
			Attributes: map[string]int{gltf.POSITION: modeler.WritePosition(w.doc, vec3s(p.Positions))},
			Mode:       primitiveMode(p.Mode),
		}
		if len(p.Normals) == len(p.Positions) {
			prim.Attributes[gltf.NORMAL] = modeler.WriteNormal(w.doc, vec3s(p.Normals))
		}
		if len(p.UVs) == len(p.Positions) {
			uvs := make([][2]float32, len(p.UVs))
			for i, uv := range p.UVs {
				uvs[i] = [2]float32{float32(uv[0]), float32(uv[1])}
			}
			prim.Attributes[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(w.doc, uvs)
		}
		if len(p.Indices) > 0 {
			prim.Indices = gltf.Index(modeler.WriteIndices(w.doc, p.Indices))
		}
		if p.Material != nil {
			prim.Material = gltf.Index(w.material(p.Material))
		}
		w.prims = append(w.prims, writtenPrimitive{out: prim, src: p})
		out.Primitives = append(out.Primitives, prim)
	}
	idx := len(w.doc.Meshes)
	w.doc.Meshes = append(w.doc.Meshes, out)
	w.meshes[m] = idx
	return idx
}

func primitiveMode(m model.DrawMode) gltf.PrimitiveMode {
	switch m {
	case model.ModeLines:
		return gltf.PrimitiveLines
	case model.ModePoints:
		return gltf.PrimitivePoints
	default:
		return gltf.PrimitiveTriangles
	}
}

func vec3s[V ~[3]float64](in []V) [][3]float32 {
	out := make([][3]float32, len(in))
	for i, v := range in {
		out[i] = [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
	}
	return out
}

// material reserves an index; contents are written by writeMaterials once
// all references are known.
func (w *writer) material(m *model.Material) int {
	if idx, ok := w.materials[m]; ok {
		return idx
	}
	idx := len(w.matOrder)
	w.materials[m] = idx
	w.matOrder = append(w.matOrder, m)
	return idx
}

func (w *writer) writeMaterials(ctx context.Context) error {
	// Variant materials must be reserved before writing.
	if w.opts.Variants != nil {
		for _, p := range w.prims {
			vm := w.opts.Variants.VariantMaterials(p.src)
			for _, vi := range sortedKeys(vm) {
				w.material(vm[vi])
			}
		}
	}
	for _, m := range w.matOrder {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.doc.Materials = append(w.doc.Materials, w.writeMaterial(m))
	}
	return nil
}

func (w *writer) writeMaterial(m *model.Material) *gltf.Material {
	base := m.BaseColorFactor
	metal, rough := m.MetallicFactor, m.RoughnessFactor
	out := &gltf.Material{
		Name:           m.Name,
		EmissiveFactor: m.EmissiveFactor,
		DoubleSided:    m.DoubleSided,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &base,
			MetallicFactor:  &metal,
			RoughnessFactor: &rough,
		},
	}
	switch m.AlphaMode {
	case model.AlphaMask:
		out.AlphaMode = gltf.AlphaMask
		cutoff := m.AlphaCutoff
		out.AlphaCutoff = &cutoff
	case model.AlphaBlend:
		out.AlphaMode = gltf.AlphaBlend
	}

	pbr := out.PBRMetallicRoughness
	if idx, ok := w.texture(m.BaseColorTexture); ok {
		pbr.BaseColorTexture = &gltf.TextureInfo{Index: idx, TexCoord: m.BaseColorTexture.TexCoord}
	}
	if idx, ok := w.texture(m.MetallicRoughnessTexture); ok {
		pbr.MetallicRoughnessTexture = &gltf.TextureInfo{Index: idx, TexCoord: m.MetallicRoughnessTexture.TexCoord}
	}
	if idx, ok := w.texture(m.NormalTexture); ok {
		out.NormalTexture = &gltf.NormalTexture{Index: gltf.Index(idx), TexCoord: m.NormalTexture.TexCoord}
	}
	if idx, ok := w.texture(m.OcclusionTexture); ok {
		out.OcclusionTexture = &gltf.OcclusionTexture{Index: gltf.Index(idx), TexCoord: m.OcclusionTexture.TexCoord}
	}
	if idx, ok := w.texture(m.EmissiveTexture); ok {
		out.EmissiveTexture = &gltf.TextureInfo{Index: idx, TexCoord: m.EmissiveTexture.TexCoord}
	}
	return out
}

// texture writes a resolved texture. Unresolved textures are dropped.
func (w *writer) texture(t *model.Texture) (int, bool) {
	if t == nil {
		return 0, false
	}
	if !t.Resolved() {
		w.log.Warn("dropping unresolved texture", zap.Int("texture", t.Index))
		return 0, false
	}
	img, ok := w.images[t.Image]
	if !ok {
		var err error
		img, err = w.writeImage(t)
		if err != nil {
			w.log.Warn("dropping texture", zap.Int("texture", t.Index), zap.Error(err))
			return 0, false
		}
		w.images[t.Image] = img
	}
	idx := len(w.doc.Textures)
	w.doc.Textures = append(w.doc.Textures, &gltf.Texture{Name: t.Name, Source: gltf.Index(img)})
	return idx, true
}

func (w *writer) writeImage(t *model.Texture) (int, error) {
	data, mime := t.Data, t.MimeType
	src := t.Image
	limit := w.opts.MaxTextureSize
	if b := src.Bounds(); limit > 0 && (b.Dx() > limit || b.Dy() > limit) {
		src = downscale(src, limit)
		data = nil
	}
	if len(data) == 0 || mime == "" {
		var buf bytes.Buffer
		if err := png.Encode(&buf, src); err != nil {
			return 0, fmt.Errorf("encode png: %w", err)
		}
		data, mime = buf.Bytes(), "image/png"
	}
	return modeler.WriteImage(w.doc, t.Name, mime, bytes.NewReader(data))
}

// downscale fits img within limit x limit, keeping its aspect ratio.
func downscale(img image.Image, limit int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = limit * h / w
		w = limit
	} else {
		w = limit * w / h
		h = limit
	}
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// variants writes the variants extension on the root and every primitive
// that has mappings.
func (w *writer) variants() {
	src := w.opts.Variants
	if src == nil {
		return
	}
	names := src.AvailableVariants()
	if len(names) == 0 {
		return
	}
	list := make([]map[string]any, len(names))
	for i, n := range names {
		list[i] = map[string]any{"name": n}
	}
	if w.doc.Extensions == nil {
		w.doc.Extensions = gltf.Extensions{}
	}
	w.doc.Extensions[VariantsExtension] = map[string]any{"variants": list}
	w.doc.ExtensionsUsed = append(w.doc.ExtensionsUsed, VariantsExtension)

	for _, p := range w.prims {
		byMaterial := make(map[int][]int)
		vm := src.VariantMaterials(p.src)
		for _, vi := range sortedKeys(vm) {
			mi := w.material(vm[vi])
			byMaterial[mi] = append(byMaterial[mi], vi)
		}
		if len(byMaterial) == 0 {
			continue
		}
		var mappings []map[string]any
		for _, mi := range sortedKeys(byMaterial) {
			mappings = append(mappings, map[string]any{"material": mi, "variants": byMaterial[mi]})
		}
		prim := p.out
		if prim.Extensions == nil {
			prim.Extensions = gltf.Extensions{}
		}
		prim.Extensions[VariantsExtension] = map[string]any{"mappings": mappings}
	}
}

// animation writes the tracks of clip whose targets were exported.
func (w *writer) animation(clip *animation.Clip) {
	out := &gltf.Animation{Name: clip.Name}
	for _, t := range clip.Tracks {
		node, ok := w.nodes[t.Target]
		if !ok {
			continue
		}
		times := make([]float32, len(t.Times))
		for i, s := range t.Times {
			times[i] = float32(s)
		}
		var values any
		var path gltf.TRSProperty
		switch t.Path {
		case animation.PathRotation:
			path = gltf.TRSRotation
			v := make([][4]float32, len(t.Values)/4)
			for i := range v {
				v[i] = [4]float32{float32(t.Values[4*i]), float32(t.Values[4*i+1]), float32(t.Values[4*i+2]), float32(t.Values[4*i+3])}
			}
			values = v
		default:
			path = gltf.TRSTranslation
			if t.Path == animation.PathScale {
				path = gltf.TRSScale
			}
			v := make([][3]float32, len(t.Values)/3)
			for i := range v {
				v[i] = [3]float32{float32(t.Values[3*i]), float32(t.Values[3*i+1]), float32(t.Values[3*i+2])}
			}
			values = v
		}

		sampler := &gltf.AnimationSampler{
			Input:         modeler.WriteAccessor(w.doc, gltf.TargetNone, times),
			Output:        modeler.WriteAccessor(w.doc, gltf.TargetNone, values),
			Interpolation: interpolation(t.Interpolation),
		}
		out.Samplers = append(out.Samplers, sampler)
		out.Channels = append(out.Channels, &gltf.AnimationChannel{
			Sampler: len(out.Samplers) - 1,
			Target:  gltf.AnimationChannelTarget{Node: gltf.Index(node), Path: path},
		})
	}
	if len(out.Channels) > 0 {
		w.doc.Animations = append(w.doc.Animations, out)
	}
}

func interpolation(i animation.Interpolation) gltf.Interpolation {
	switch i {
	case animation.InterpolationStep:
		return gltf.InterpolationStep
	case animation.InterpolationCubicSpline:
		return gltf.InterpolationCubicSpline
	default:
		return gltf.InterpolationLinear
	}
}
