package loader

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/modelstage/internal/engine/animation"
)

// buildClips converts the document's animations. Channels that target
// morph weights, unknown nodes or unreadable accessors are skipped.
func (g *CorrelatedSceneGraph) buildClips() []*animation.Clip {
	doc := g.Document
	var clips []*animation.Clip
	for ai, anim := range doc.Animations {
		if anim == nil {
			continue
		}
		name := anim.Name
		if name == "" {
			name = fmt.Sprintf("animation_%d", ai)
		}

		var tracks []*animation.Track
		for _, ch := range anim.Channels {
			if ch == nil || ch.Target.Node == nil {
				continue
			}
			path, ok := trackPath(ch.Target.Path)
			if !ok {
				continue
			}
			if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
				continue
			}
			sampler := anim.Samplers[ch.Sampler]
			times, values, err := g.samplerData(sampler)
			if err != nil {
				g.log.Warn("skipping animation channel", zap.String("animation", name), zap.Error(err))
				continue
			}
			for _, obj := range g.nodeObjects[*ch.Target.Node] {
				tracks = append(tracks, &animation.Track{
					Target:        obj,
					Path:          path,
					Interpolation: interpolation(sampler.Interpolation),
					Times:         times,
					Values:        values,
				})
			}
		}
		clips = append(clips, animation.NewClip(name, tracks))
	}
	return clips
}

func trackPath(p gltf.TRSProperty) (animation.Path, bool) {
	switch p {
	case gltf.TRSTranslation:
		return animation.PathTranslation, true
	case gltf.TRSRotation:
		return animation.PathRotation, true
	case gltf.TRSScale:
		return animation.PathScale, true
	}
	return 0, false
}

func interpolation(i gltf.Interpolation) animation.Interpolation {
	switch i {
	case gltf.InterpolationStep:
		return animation.InterpolationStep
	case gltf.InterpolationCubicSpline:
		return animation.InterpolationCubicSpline
	default:
		return animation.InterpolationLinear
	}
}

func (g *CorrelatedSceneGraph) samplerData(s *gltf.AnimationSampler) ([]float64, []float64, error) {
	in, err := g.accessor(s.Input)
	if err != nil {
		return nil, nil, err
	}
	out, err := g.accessor(s.Output)
	if err != nil {
		return nil, nil, err
	}
	rawIn, err := modeler.ReadAccessor(g.Document, in, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("read input: %w", err)
	}
	rawOut, err := modeler.ReadAccessor(g.Document, out, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("read output: %w", err)
	}
	times, err := flatten(rawIn)
	if err != nil {
		return nil, nil, err
	}
	values, err := flatten(rawOut)
	if err != nil {
		return nil, nil, err
	}
	return times, values, nil
}

// flatten converts accessor data to float64s, mapping normalized integer
// rotations back to [-1, 1].
func flatten(data any) ([]float64, error) {
	var out []float64
	switch v := data.(type) {
	case []float32:
		for _, f := range v {
			out = append(out, float64(f))
		}
	case [][3]float32:
		for _, e := range v {
			out = append(out, float64(e[0]), float64(e[1]), float64(e[2]))
		}
	case [][4]float32:
		for _, e := range v {
			out = append(out, float64(e[0]), float64(e[1]), float64(e[2]), float64(e[3]))
		}
	case [][4]int8:
		for _, e := range v {
			for _, c := range e {
				out = append(out, max(float64(c)/127, -1))
			}
		}
	case [][4]uint8:
		for _, e := range v {
			for _, c := range e {
				out = append(out, float64(c)/255)
			}
		}
	case [][4]int16:
		for _, e := range v {
			for _, c := range e {
				out = append(out, max(float64(c)/32767, -1))
			}
		}
	case [][4]uint16:
		for _, e := range v {
			for _, c := range e {
				out = append(out, float64(c)/65535)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported accessor data %T", data)
	}
	return out, nil
}
