package viewer

import (
	"github.com/Faultbox/modelstage/internal/engine/shadow"
)

// SetShadowIntensity sets the contact shadow opacity. The shadow proxy is
// created on the first positive intensity once a model is mounted.
func (s *ModelScene) SetShadowIntensity(intensity float64) {
	s.shadowIntensity = intensity
	s.ensureShadow()
	s.QueueRender()
}

// ShadowIntensity returns the configured shadow opacity.
func (s *ModelScene) ShadowIntensity() float64 {
	return s.shadowIntensity
}

// SetShadowSoftness sets the shadow softness in [0, 1].
func (s *ModelScene) SetShadowSoftness(softness float64) {
	s.shadowSoftness = softness
	if s.shadow != nil {
		s.shadow.SetSoftness(softness)
	}
	s.QueueRender()
}

// ShadowSoftness returns the configured shadow softness.
func (s *ModelScene) ShadowSoftness() float64 {
	return s.shadowSoftness
}

// Shadow returns the shadow proxy, or nil if none was needed yet.
func (s *ModelScene) Shadow() *shadow.Proxy {
	return s.shadow
}

func (s *ModelScene) ensureShadow() {
	if s.shadow == nil {
		if s.shadowIntensity <= 0 || !s.HasModel() {
			return
		}
		s.shadow = shadow.New(s.boundingBox, s.shadowSoftness, s.shadowSide)
		s.shadow.SetRotation(s.targeting.Yaw())
		s.target.Add(s.shadow.Object())
	} else {
		s.shadow.SetBounds(s.boundingBox, s.shadowSide)
	}
	s.shadow.SetIntensity(s.shadowIntensity)
	s.shadow.SetVisible(s.shadowIntensity > 0 && s.HasModel())
	s.shadow.NeedsUpdate = true
}

func (s *ModelScene) markShadowDirty() {
	if s.shadow != nil {
		s.shadow.NeedsUpdate = true
	}
}
