package viewer

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Faultbox/modelstage/internal/engine/model"
	"github.com/Faultbox/modelstage/internal/exporter"
	"github.com/Faultbox/modelstage/internal/observability"
	"github.com/Faultbox/modelstage/internal/scenegraph"
)

// AvailableVariants returns the current model's variant names.
func (s *ModelScene) AvailableVariants() []string {
	if s.model == nil {
		return nil
	}
	return s.model.AvailableVariants()
}

// SwitchVariant applies the named variant, or restores the default
// materials for nil. Unknown names are logged and ignored. It only fails
// when ctx is cancelled while textures are being resolved.
func (s *ModelScene) SwitchVariant(ctx context.Context, name *string) error {
	if s.model == nil {
		return nil
	}
	if err := s.model.SwitchVariant(ctx, name); err != nil {
		return err
	}
	if name == nil || slices.Contains(s.model.AvailableVariants(), *name) {
		s.metrics.IncVariantSwitch()
	}
	return nil
}

// MaterialFromPoint returns the material under pixel (x, y), origin top
// left, or nil.
func (s *ModelScene) MaterialFromPoint(x, y float64) *scenegraph.Material {
	if s.model == nil {
		return nil
	}
	return s.model.MaterialFromPoint(s.camera.RayFromPixel(x, y, s.width, s.height))
}

// PositionAndNormalFromPoint returns the nearest model surface point under
// pixel (x, y) and its normal, both in the space targets are set in.
func (s *ModelScene) PositionAndNormalFromPoint(x, y float64) (position, normal mgl64.Vec3, ok bool) {
	ray := s.camera.RayFromPixel(x, y, s.width, s.height)
	ray = ray.Transform(s.target.WorldMatrix().Inv())
	hits := model.Raycast(s.container, ray)
	if len(hits) == 0 {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	return hits[0].Point, hits[0].Normal, true
}

// ExportScene serializes the mounted model with its animations and
// variants. The shadow proxy is hidden while the exporter runs and its
// visibility is restored on every exit path.
func (s *ModelScene) ExportScene(ctx context.Context, opts exporter.Options) (data []byte, err error) {
	ctx, span := observability.Tracer().Start(ctx, "ModelScene.ExportScene",
		trace.WithAttributes(attribute.Bool("binary", opts.Binary)))
	defer span.End()
	defer func() {
		result := observability.ResultOK
		if err != nil {
			result = observability.ResultFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, "export failed")
			s.log.Error("scene export failed", zap.Error(err))
		}
		s.metrics.ObserveExport(opts.Binary, result)
	}()

	if s.shadow != nil {
		visible := s.shadow.Visible()
		s.shadow.SetVisible(false)
		defer s.shadow.SetVisible(visible)
	}

	if s.model != nil {
		if err := s.model.PrepareForExport(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
		}
		opts.Variants = s.model
	}
	if opts.Animations == nil {
		opts.Animations = s.anim.clips
	}
	helpers := opts.Skip
	opts.Skip = func(o *model.Object) bool {
		if s.shadow != nil && o == s.shadow.Object() {
			return true
		}
		return helpers != nil && helpers(o)
	}

	data, err = s.exporter.Export(ctx, s.target, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return data, nil
}
