package viewer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Faultbox/modelstage/internal/engine/animation"
	"github.com/Faultbox/modelstage/internal/engine/model"
	"github.com/Faultbox/modelstage/internal/loader"
	"github.com/Faultbox/modelstage/internal/observability"
	"github.com/Faultbox/modelstage/internal/scenegraph"
)

// begin cancels any pending load and registers a new one.
func (s *ModelScene) begin(ctx context.Context) (context.Context, uint64, context.CancelCauseFunc) {
	ctx, cancel := context.WithCancelCause(ctx)
	s.mu.Lock()
	if s.pending != nil {
		s.pending(ErrLoadCancelled)
	}
	s.seq++
	seq := s.seq
	s.pending = cancel
	s.mu.Unlock()
	return ctx, seq, cancel
}

// end releases the pending token if it still belongs to seq.
func (s *ModelScene) end(seq uint64, cancel context.CancelCauseFunc) {
	s.mu.Lock()
	if s.seq == seq {
		s.pending = nil
	}
	s.mu.Unlock()
	cancel(nil)
}

// SetSource loads url and mounts it in place of the current model.
//
// A call made while another load is pending cancels that load; the
// superseded call returns nil without touching the scene. A failed load
// returns an error wrapping ErrLoadFailed and leaves the previous model in
// place. Setting the URL already shown reports full progress and does
// nothing else. An empty url clears the scene.
func (s *ModelScene) SetSource(ctx context.Context, url string) error {
	s.mu.Lock()
	same := url == s.url && (url == "" || s.graph != nil) && s.pending == nil
	s.mu.Unlock()
	if same {
		s.emit(Event{Type: EventProgress, URL: url, Progress: 1})
		return nil
	}

	ctx, span := observability.Tracer().Start(ctx, "ModelScene.SetSource",
		trace.WithAttributes(attribute.String("url", url)))
	defer span.End()

	ctx, seq, cancel := s.begin(ctx)
	defer s.end(seq, cancel)

	if url == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.seq == seq {
			s.reset()
			s.url = ""
		}
		return nil
	}

	start := time.Now()
	log := s.log.With(zap.String("url", url))
	log.Debug("loading model")

	graph, err := s.loader.Load(ctx, url, func(fraction float64) {
		if s.current(seq) {
			s.emit(Event{Type: EventProgress, URL: url, Progress: fraction})
		}
	})
	if ctx.Err() != nil {
		if graph != nil {
			graph.Dispose()
		}
		cause := context.Cause(ctx)
		log.Debug("model load cancelled", zap.NamedError("cause", cause))
		span.SetAttributes(attribute.Bool("cancelled", true))
		s.metrics.ObserveLoad(observability.ResultCancelled, time.Since(start))
		return nil
	}
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrLoadFailed, url, err)
		log.Error("model load failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		s.metrics.ObserveLoad(observability.ResultFailed, time.Since(start))
		s.emit(Event{Type: EventError, URL: url, Err: err})
		return err
	}

	s.mu.Lock()
	if s.seq != seq {
		s.mu.Unlock()
		graph.Dispose()
		s.metrics.ObserveLoad(observability.ResultCancelled, time.Since(start))
		return nil
	}
	s.swap(url, graph, graph.Scene)
	fields := []zap.Field{
		zap.Duration("elapsed", time.Since(start)),
		zap.Float64("bounding_radius", s.boundingRadius),
		zap.Int("animations", len(s.anim.names)),
		zap.Strings("variants", s.model.AvailableVariants()),
	}
	s.mu.Unlock()

	s.metrics.ObserveLoad(observability.ResultOK, time.Since(start))
	log.Info("model loaded", fields...)
	s.emit(Event{Type: EventLoad, URL: url})
	s.emit(Event{Type: EventSceneGraphReady, URL: url})
	return nil
}

func (s *ModelScene) current(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq == seq
}

// SetObject mounts an already built object graph, superseding any pending
// load. The object has no document, so variants and material lookups are
// unavailable.
func (s *ModelScene) SetObject(obj *model.Object) {
	_, seq, cancel := s.begin(context.Background())
	defer s.end(seq, cancel)

	s.mu.Lock()
	s.swap("", nil, obj)
	s.mu.Unlock()
	s.emit(Event{Type: EventLoad})
}

// swap replaces the mounted model. The previous model is released only
// after the new one is in place.
func (s *ModelScene) swap(url string, graph *loader.CorrelatedSceneGraph, obj *model.Object) {
	oldGraph := s.graph
	s.anim.dispose()
	s.container.Clear()

	s.url = url
	s.graph = graph
	s.model = nil
	var clips []*animation.Clip
	if graph != nil {
		s.model = scenegraph.NewModel(graph, s.log.Named("scenegraph"), s.onModelUpdate)
		clips = graph.Clips
	}
	s.anim = newAnimationSession(clips)
	if obj != nil {
		s.container.Add(obj)
	}

	s.UpdateBoundingBox()
	if !s.boundingBox.IsEmpty() {
		c := s.boundingBox.Center()
		s.targeting.SetGoal(c.X(), c.Y(), c.Z())
		s.targeting.SnapToGoal()
		s.UpdateFraming()
	}
	s.ensureShadow()

	if oldGraph != nil && oldGraph != graph {
		oldGraph.Dispose()
	}
	s.QueueRender()
}

// reset unmounts and releases the current model.
func (s *ModelScene) reset() {
	s.anim.dispose()
	s.anim = newAnimationSession(nil)
	s.container.Clear()
	if s.graph != nil {
		s.graph.Dispose()
	}
	s.graph = nil
	s.model = nil
	s.UpdateBoundingBox()
	if s.shadow != nil {
		s.shadow.SetVisible(false)
	}
	s.QueueRender()
}

func (s *ModelScene) onModelUpdate() {
	if s.shadow != nil {
		s.shadow.NeedsUpdate = true
	}
	s.QueueRender()
}
