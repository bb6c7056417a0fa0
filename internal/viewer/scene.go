// Package viewer ties a loaded model, its framing, pivot easing, shadow
// and animation into one per-viewport session.
//
// A ModelScene is driven by a single goroutine: the render loop calls Tick
// once per frame and renders while ShouldRender reports true. Only
// SetSource may be called concurrently, to supersede a pending load.
package viewer

import (
	"context"
	"errors"
	gomath "math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/modelstage/internal/config"
	"github.com/Faultbox/modelstage/internal/engine/camera"
	"github.com/Faultbox/modelstage/internal/engine/framing"
	"github.com/Faultbox/modelstage/internal/engine/model"
	"github.com/Faultbox/modelstage/internal/engine/shadow"
	"github.com/Faultbox/modelstage/internal/engine/target"
	"github.com/Faultbox/modelstage/internal/exporter"
	"github.com/Faultbox/modelstage/internal/loader"
	"github.com/Faultbox/modelstage/internal/observability"
	"github.com/Faultbox/modelstage/internal/scenegraph"
	"github.com/Faultbox/modelstage/pkg/math"
)

// Sentinel errors.
var (
	ErrLoadFailed       = errors.New("model load failed")
	ErrLoadCancelled    = errors.New("model load superseded")
	ErrExportFailed     = errors.New("scene export failed")
	ErrNoAnimations     = errors.New("model has no animations")
	ErrMissingAnimation = errors.New("animation not found")
)

// Options configures a ModelScene. Zero values fall back to defaults.
type Options struct {
	Loader   loader.Loader
	Exporter exporter.Exporter
	Log      *zap.Logger
	Metrics  *observability.Collector

	Width, Height   int
	FoVDeg          float64
	TargetDecay     time.Duration // 0 uses the default; negative jumps
	TightBounds     bool
	ShadowIntensity float64
	ShadowSoftness  float64
	ShadowSide      shadow.Side

	// OnEvent receives load and scene graph events.
	OnEvent func(Event)
}

// OptionsFromConfig builds scene options from the stage configuration.
func OptionsFromConfig(cfg *config.Config, log *zap.Logger, metrics *observability.Collector) Options {
	return Options{
		Loader:          loader.NewGLTFLoader(cfg.Loader.HTTPTimeout, cfg.Loader.MaxBytes, log.Named("loader")),
		Exporter:        &exporter.GLTFExporter{Log: log.Named("exporter")},
		Log:             log,
		Metrics:         metrics,
		Width:           cfg.Viewer.Width,
		Height:          cfg.Viewer.Height,
		FoVDeg:          cfg.Viewer.FoVDeg,
		TargetDecay:     targetDecay(cfg.Viewer.TargetDecay),
		TightBounds:     cfg.Viewer.TightBounds,
		ShadowIntensity: cfg.Viewer.ShadowIntensity,
		ShadowSoftness:  cfg.Viewer.ShadowSoftness,
	}
}

// targetDecay maps the configured decay, where zero means jump, to Options.
func targetDecay(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}

// ExportOptionsFromConfig returns the configured default export options.
func ExportOptionsFromConfig(cfg config.ExportConfig) exporter.Options {
	return exporter.Options{
		Binary:         cfg.Binary,
		OnlyVisible:    cfg.OnlyVisible,
		MaxTextureSize: cfg.MaxTextureSize,
	}
}

// ModelScene is the stage for one model in one viewport.
//
// The object graph is stage → pivot (yaw) → target (negated goal) →
// container (orientation and scale) → model. The shadow proxy hangs off
// the target so it follows the model but not its container transform.
type ModelScene struct {
	log      *zap.Logger
	metrics  *observability.Collector
	loader   loader.Loader
	exporter exporter.Exporter
	onEvent  func(Event)

	stage     *model.Object
	pivot     *model.Object
	target    *model.Object
	container *model.Object
	camera    *camera.OrbitCamera
	targeting *target.Controller

	width, height int
	fovDeg        float64
	tightBounds   bool

	// Model state, replaced atomically by swap.
	url   string
	graph *loader.CorrelatedSceneGraph
	model *scenegraph.Model
	anim  *animationSession

	// Bounding envelope, refreshed only by UpdateBoundingBox and UpdateFraming.
	boundingBox    math.Box3
	boundingRadius float64
	idealAspect    float64

	shadow          *shadow.Proxy
	shadowIntensity float64
	shadowSoftness  float64
	shadowSide      shadow.Side

	dirty       bool
	shadowDirty bool

	mu      sync.Mutex
	pending context.CancelCauseFunc
	seq     uint64
}

// New returns an empty scene.
func New(opts Options) *ModelScene {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &ModelScene{
		log:            log,
		metrics:        opts.Metrics,
		loader:         opts.Loader,
		exporter:       opts.Exporter,
		onEvent:        opts.OnEvent,
		stage:          model.NewObject("stage"),
		pivot:          model.NewObject("pivot"),
		target:         model.NewObject("target"),
		container:      model.NewObject("model"),
		camera:         camera.NewOrbitCamera(),
		fovDeg:         opts.FoVDeg,
		tightBounds:    opts.TightBounds,
		shadowSoftness: opts.ShadowSoftness,
		shadowSide:     opts.ShadowSide,
		boundingBox:    math.EmptyBox(),
		anim:           newAnimationSession(nil),
	}
	if s.loader == nil {
		s.loader = loader.NewGLTFLoader(30*time.Second, loader.DefaultMaxBytes, log.Named("loader"))
	}
	if s.exporter == nil {
		s.exporter = &exporter.GLTFExporter{Log: log.Named("exporter")}
	}
	if s.fovDeg <= 0 || s.fovDeg >= 180 {
		s.fovDeg = framing.DefaultFoVDeg
	}
	s.stage.Add(s.pivot)
	s.pivot.Add(s.target)
	s.target.Add(s.container)

	s.targeting = target.New(s.target, s.pivot)
	s.targeting.OnYaw = func(radians float64) {
		if s.shadow != nil {
			s.shadow.SetRotation(radians)
		}
	}
	switch {
	case opts.TargetDecay > 0:
		s.targeting.SetDecayTime(opts.TargetDecay)
	case opts.TargetDecay < 0:
		s.targeting.SetDecayTime(0)
	}

	s.camera.FoVDeg = s.fovDeg
	width, height := opts.Width, opts.Height
	if width <= 0 || height <= 0 {
		width, height = 300, 150
	}
	s.SetSize(width, height)
	s.SetShadowIntensity(opts.ShadowIntensity)
	return s
}

// Stage returns the root of the object graph.
func (s *ModelScene) Stage() *model.Object {
	return s.stage
}

// Container returns the object the model is mounted in.
func (s *ModelScene) Container() *model.Object {
	return s.container
}

// Camera returns the scene camera.
func (s *ModelScene) Camera() *camera.OrbitCamera {
	return s.camera
}

// URL returns the source of the current model, or "" if none.
func (s *ModelScene) URL() string {
	return s.url
}

// Model returns the scene graph facade of the current model, or nil.
func (s *ModelScene) Model() *scenegraph.Model {
	return s.model
}

// HasModel reports whether anything is mounted in the container.
func (s *ModelScene) HasModel() bool {
	return len(s.container.Children()) > 0
}

// SetSize updates the viewport size and the camera's field of view.
func (s *ModelScene) SetSize(width, height int) {
	if width <= 0 || height <= 0 || (width == s.width && height == s.height) {
		return
	}
	s.width, s.height = width, height
	s.camera.SetViewport(width, height)
	s.updateCameraFoV()
	s.QueueRender()
}

// Size returns the viewport size.
func (s *ModelScene) Size() (width, height int) {
	return s.width, s.height
}

// Aspect returns width over height.
func (s *ModelScene) Aspect() float64 {
	return float64(s.width) / float64(s.height)
}

// SetTarget sets the model point the view pivots about, eased by Tick.
func (s *ModelScene) SetTarget(x, y, z float64) {
	s.targeting.SetGoal(x, y, z)
	s.QueueRender()
}

// Target returns the pivot point goal.
func (s *ModelScene) Target() mgl64.Vec3 {
	return s.targeting.Goal()
}

// SetTargetDecay sets how quickly the pivot eases; zero jumps.
func (s *ModelScene) SetTargetDecay(decay time.Duration) {
	s.targeting.SetDecayTime(decay)
}

// JumpToGoal moves the pivot straight to its goal.
func (s *ModelScene) JumpToGoal() {
	if s.targeting.SnapToGoal() {
		s.QueueRender()
	}
}

// SetYaw turns the model about the vertical axis through the pivot.
func (s *ModelScene) SetYaw(radians float64) {
	s.targeting.SetYaw(radians)
	s.QueueRender()
}

// Yaw returns the current yaw in radians.
func (s *ModelScene) Yaw() float64 {
	return s.targeting.Yaw()
}

// PointTowards yaws the model to face the world point (x, z).
func (s *ModelScene) PointTowards(x, z float64) {
	s.targeting.PointTowards(x, z)
	s.QueueRender()
}

// SetOrientation rotates the model container by roll, pitch and yaw in
// radians and refreshes the bounds.
func (s *ModelScene) SetOrientation(roll, pitch, yaw float64) {
	s.container.Rotation = mgl64.AnglesToQuat(yaw, pitch, roll, mgl64.YXZ)
	s.UpdateBoundingBox()
}

// SetScale scales the model container and refreshes the bounds.
func (s *ModelScene) SetScale(x, y, z float64) {
	s.container.Scale = mgl64.Vec3{x, y, z}
	s.UpdateBoundingBox()
}

// SetTightBounds switches between vertex-exact and per-primitive bounds.
func (s *ModelScene) SetTightBounds(tight bool) {
	if tight == s.tightBounds {
		return
	}
	s.tightBounds = tight
	s.UpdateBoundingBox()
}

// BoundingBox returns the model bounds in target space.
func (s *ModelScene) BoundingBox() math.Box3 {
	return s.boundingBox
}

// BoundingRadius returns the framing radius about the framing center.
func (s *ModelScene) BoundingRadius() float64 {
	return s.boundingRadius
}

// IdealAspect returns the narrowest aspect that fits the model horizontally.
func (s *ModelScene) IdealAspect() float64 {
	return s.idealAspect
}

// UpdateBoundingBox recomputes the model bounds, moves the shadow to them
// and reframes.
func (s *ModelScene) UpdateBoundingBox() {
	if s.tightBounds {
		s.boundingBox = model.VertexBox(s.container)
	} else {
		s.boundingBox = model.BoundingBox(s.container)
	}
	if s.shadow != nil {
		s.shadow.SetBounds(s.boundingBox, s.shadowSide)
	}
	s.UpdateFraming()
}

// UpdateFraming recomputes the bounding radius and ideal aspect and fits
// the camera to them. The framing center is the bounds center, or the
// target with tight bounds.
func (s *ModelScene) UpdateFraming() {
	if s.boundingBox.IsEmpty() {
		s.boundingRadius, s.idealAspect = 0, 0
		s.updateCameraFoV()
		s.QueueRender()
		return
	}
	center := s.boundingBox.Center()
	if s.tightBounds {
		center = s.Target()
	}
	res := framing.Compute(s.container, s.fovDeg, center)
	s.boundingRadius = res.BoundingRadius
	s.idealAspect = res.IdealAspect
	if gomath.IsNaN(s.idealAspect) || gomath.IsInf(s.idealAspect, 0) {
		s.idealAspect = 0
	}
	s.metrics.SetBoundingRadius(s.boundingRadius)
	s.updateCameraFoV()
	s.camera.FitToRadius(s.boundingRadius, s.camera.FoVDeg)
	s.QueueRender()
}

// AdjustedFoV returns the vertical field of view that keeps the model in
// view at the current aspect.
func (s *ModelScene) AdjustedFoV() float64 {
	if s.idealAspect <= 0 {
		return s.fovDeg
	}
	return framing.AdjustedFoV(s.fovDeg, s.idealAspect, s.Aspect())
}

func (s *ModelScene) updateCameraFoV() {
	s.camera.FoVDeg = s.AdjustedFoV()
}

// QueueRender requests a redraw.
func (s *ModelScene) QueueRender() {
	s.dirty = true
}

// ShouldRender reports whether a redraw is pending.
func (s *ModelScene) ShouldRender() bool {
	return s.dirty
}

// HasRendered clears the redraw and shadow flags after a frame is drawn.
func (s *ModelScene) HasRendered() {
	s.dirty = false
	s.shadowDirty = false
	s.metrics.IncRender()
}

// IsShadowDirty reports whether the shadow map must be re-rendered this frame.
func (s *ModelScene) IsShadowDirty() bool {
	return s.shadowDirty
}

// Tick advances the scene by delta: pivot easing, then shadow state, then
// animation. It reports whether a redraw is pending.
func (s *ModelScene) Tick(delta time.Duration) bool {
	if delta < 0 {
		delta = 0
	}
	if s.targeting.Tick(delta, s.boundingRadius) {
		s.QueueRender()
	}
	if s.shadow != nil && s.shadow.TakeDirty() {
		s.shadowDirty = true
		s.QueueRender()
	}
	if s.anim.advance(delta) {
		if s.shadow != nil && s.shadow.Visible() {
			s.shadowDirty = true
		}
		s.QueueRender()
	}
	return s.dirty
}

func (s *ModelScene) emit(e Event) {
	if s.onEvent != nil {
		s.onEvent(e)
	}
}
