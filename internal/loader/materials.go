package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io/fs"
	"net/url"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	_ "golang.org/x/image/webp" // register decoder

	"github.com/Faultbox/modelstage/internal/engine/model"
)

// ErrNoImage is returned when a texture has no usable image source.
var ErrNoImage = errors.New("texture has no image")

type decodedImage struct {
	data     []byte
	mimeType string
	img      image.Image
}

// MaterialFor returns the engine material for a document material index,
// creating it on first use. Textures are bound but not resolved; see
// ResolveTextures. It returns nil for an out-of-range index.
func (g *CorrelatedSceneGraph) MaterialFor(index int) *model.Material {
	if m, ok := g.materials[index]; ok {
		return m
	}
	doc := g.Document
	if index < 0 || index >= len(doc.Materials) || doc.Materials[index] == nil {
		return nil
	}
	m := g.convertMaterial(doc.Materials[index], index)
	g.materials[index] = m
	return m
}

// MaterialIndex returns the document index of an engine material, or -1 for
// materials not created by MaterialFor.
func (g *CorrelatedSceneGraph) MaterialIndex(m *model.Material) int {
	for i, mat := range g.materials {
		if mat == m {
			return i
		}
	}
	return -1
}

// DefaultMaterial is used by primitives without a material.
func (g *CorrelatedSceneGraph) DefaultMaterial() *model.Material {
	if g.defaultMat == nil {
		g.defaultMat = model.NewMaterial("default")
	}
	return g.defaultMat
}

func (g *CorrelatedSceneGraph) convertMaterial(src *gltf.Material, index int) *model.Material {
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("material_%d", index)
	}
	m := model.NewMaterial(name)
	m.EmissiveFactor = src.EmissiveFactor
	m.AlphaMode = alphaMode(src.AlphaMode)
	m.AlphaCutoff = src.AlphaCutoffOrDefault()
	m.DoubleSided = src.DoubleSided

	if pbr := src.PBRMetallicRoughness; pbr != nil {
		m.BaseColorFactor = pbr.BaseColorFactorOrDefault()
		m.MetallicFactor = pbr.MetallicFactorOrDefault()
		m.RoughnessFactor = pbr.RoughnessFactorOrDefault()
		if t := pbr.BaseColorTexture; t != nil {
			m.BaseColorTexture = g.texture(t.Index, t.TexCoord)
		}
		if t := pbr.MetallicRoughnessTexture; t != nil {
			m.MetallicRoughnessTexture = g.texture(t.Index, t.TexCoord)
		}
	}
	if t := src.NormalTexture; t != nil && t.Index != nil {
		m.NormalTexture = g.texture(*t.Index, t.TexCoord)
	}
	if t := src.OcclusionTexture; t != nil && t.Index != nil {
		m.OcclusionTexture = g.texture(*t.Index, t.TexCoord)
	}
	if t := src.EmissiveTexture; t != nil {
		m.EmissiveTexture = g.texture(t.Index, t.TexCoord)
	}
	return m
}

func alphaMode(mode gltf.AlphaMode) model.AlphaMode {
	switch mode {
	case gltf.AlphaMask:
		return model.AlphaMask
	case gltf.AlphaBlend:
		return model.AlphaBlend
	default:
		return model.AlphaOpaque
	}
}

func (g *CorrelatedSceneGraph) texture(index, texCoord int) *model.Texture {
	if index < 0 || index >= len(g.Document.Textures) || g.Document.Textures[index] == nil {
		return nil
	}
	return &model.Texture{
		Index:    index,
		TexCoord: texCoord,
		Name:     g.Document.Textures[index].Name,
	}
}

// ResolveTextures decodes every unresolved texture of m. Images shared
// between textures are decoded once.
func (g *CorrelatedSceneGraph) ResolveTextures(ctx context.Context, m *model.Material) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, t := range m.Textures() {
		if t.Resolved() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := g.image(t.Index)
		if err != nil {
			errs = append(errs, fmt.Errorf("texture %d: %w", t.Index, err))
			continue
		}
		t.Data = img.data
		t.MimeType = img.mimeType
		t.Image = img.img
	}
	return errors.Join(errs...)
}

func (g *CorrelatedSceneGraph) image(texture int) (*decodedImage, error) {
	doc := g.Document
	tex := doc.Textures[texture]
	if tex.Source == nil || *tex.Source < 0 || *tex.Source >= len(doc.Images) || doc.Images[*tex.Source] == nil {
		return nil, ErrNoImage
	}
	index := *tex.Source
	if img, ok := g.images[index]; ok {
		return img, nil
	}

	src := doc.Images[index]
	data, err := g.imageBytes(src)
	if err != nil {
		return nil, err
	}
	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image %d: %w", index, err)
	}
	mime := src.MimeType
	if mime == "" {
		mime = "image/" + format
	}
	img := &decodedImage{data: data, mimeType: mime, img: decoded}
	g.images[index] = img
	return img, nil
}

func (g *CorrelatedSceneGraph) imageBytes(img *gltf.Image) ([]byte, error) {
	doc := g.Document
	switch {
	case img.BufferView != nil:
		if *img.BufferView < 0 || *img.BufferView >= len(doc.BufferViews) {
			return nil, fmt.Errorf("buffer view %d out of range", *img.BufferView)
		}
		return modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
	case img.IsEmbeddedResource():
		return img.MarshalData()
	case img.URI != "":
		if g.fsys == nil {
			return nil, fmt.Errorf("no filesystem for %q", img.URI)
		}
		name, err := url.PathUnescape(img.URI)
		if err != nil {
			name = img.URI
		}
		return fs.ReadFile(g.fsys, name)
	}
	return nil, ErrNoImage
}
