package figures

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
)

// Animator advances an object's transform once per frame. angle is the rotation
// for the frame in radians and fract is the fraction of the animation period
// elapsed since the last frame, so angle == 2π·fract.
type Animator interface {
	Animate(m *mgl32.Mat4, angle float32, fract float64)
}

// SimpleRotator rotates around a fixed axis every frame.
type SimpleRotator struct {
	Axis ms3.Vec
}

func (r *SimpleRotator) Animate(m *mgl32.Mat4, angle float32, fract float64) {
	*m = Rotate(*m, angle, r.Axis)
}

// Oscillation is the state of an [OscillatingRotator].
type Oscillation uint8

const (
	Descending Oscillation = iota
	Ascending
)

func (o Oscillation) String() string {
	if o == Ascending {
		return "ascending"
	}
	return "descending"
}

// OscillatingRotator rotates around Axis and moves up and down along world Y.
// While descending the transform moves down by Speed·fract each frame until its
// Y translation drops below -Limit, then it ascends until above Limit.
type OscillatingRotator struct {
	Axis  ms3.Vec
	State Oscillation
	// Speed is the distance travelled in one animation period.
	Speed float32
	Limit float32
}

// NewOscillatingRotator returns a descending rotator that travels 6 units per period between ±2.
func NewOscillatingRotator(axis ms3.Vec) *OscillatingRotator {
	return &OscillatingRotator{Axis: axis, State: Descending, Speed: 6, Limit: 2}
}

func (r *OscillatingRotator) Animate(m *mgl32.Mat4, angle float32, fract float64) {
	*m = Rotate(*m, angle, r.Axis)
	step := r.Speed * float32(fract)
	switch r.State {
	case Descending:
		m[13] -= step
		if m[13] < -r.Limit {
			r.State = Ascending
		}
	case Ascending:
		m[13] += step
		if m[13] > r.Limit {
			r.State = Descending
		}
	}
}

// AxisPhase is the state of an [AxisSwitcher].
type AxisPhase uint8

const (
	UsingAxisA AxisPhase = iota
	UsingAxisB
)

func (p AxisPhase) String() string {
	if p == UsingAxisB {
		return "axisB"
	}
	return "axisA"
}

// AxisSwitcher rotates around one of two axes, switching to the other each time
// the accumulated period fraction exceeds Period. The accumulator resets on each switch.
type AxisSwitcher struct {
	AxisA, AxisB ms3.Vec
	Phase        AxisPhase
	Elapsed      float64
	Period       float64
}

// NewAxisSwitcher returns a switcher that switches every 1.5 animation periods.
// It rotates around axisB first.
func NewAxisSwitcher(axisA, axisB ms3.Vec) *AxisSwitcher {
	return &AxisSwitcher{AxisA: axisA, AxisB: axisB, Phase: UsingAxisB, Period: 1.5}
}

// Axis returns the axis currently rotated around.
func (s *AxisSwitcher) Axis() ms3.Vec {
	if s.Phase == UsingAxisB {
		return s.AxisB
	}
	return s.AxisA
}

func (s *AxisSwitcher) Animate(m *mgl32.Mat4, angle float32, fract float64) {
	s.Elapsed += fract
	*m = Rotate(*m, angle, s.Axis())
	if s.Elapsed > s.Period {
		s.Elapsed = 0
		if s.Phase == UsingAxisA {
			s.Phase = UsingAxisB
		} else {
			s.Phase = UsingAxisA
		}
	}
}
