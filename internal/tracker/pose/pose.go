// Package pose maintains per-device 6-DOF pose state synthesised from the
// incoming telemetry stream, and routes decoded frames to the correct
// device.
//
// Each logical device owns one PoseState guarded by its own mutex, so
// independent devices never contend. The receiver goroutine mutates state
// through ApplyFrame; the host-driven tick reads it through Snapshot and
// CheckLiveness. Lock scope is limited to the field mutation or the
// snapshot copy, never held across I/O.
package pose

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/meridian-labs/posebridge/internal/tracker/frame"
)

// DeviceClass selects how ChannelA is interpreted for a device. It is
// fixed at registration and never inferred from packet contents.
type DeviceClass int

const (
	// ClassInertial integrates ChannelA as linear acceleration into
	// velocity and position.
	ClassInertial DeviceClass = iota

	// ClassAbsolute overwrites position with ChannelA directly and forces
	// velocity to zero. Used for hub-tracked devices such as the headset.
	ClassAbsolute
)

// Integration constants. These reproduce the sensor firmware contract and
// must not be silently "corrected".
const (
	// DefaultDamping is multiplied into velocity once per accepted frame,
	// not per unit time. The decay strength therefore varies with packet
	// rate; that is the observed behaviour and is preserved exactly.
	DefaultDamping = 0.95

	// DefaultMaxIntegrationDt caps the integration step after a stall so a
	// single late frame cannot produce a runaway position jump.
	DefaultMaxIntegrationDt = 100 * time.Millisecond
)

// ButtonState is the decoded button/trigger output handed to the host's
// input-publishing layer. The bit-to-control mapping is fixed.
type ButtonState struct {
	Primary bool    `json:"primary"`
	Grip    bool    `json:"grip"`
	Menu    bool    `json:"menu"`
	System  bool    `json:"system"`
	Trigger float64 `json:"trigger"` // analog, 0.0-1.0
}

// Snapshot is an immutable copy of a device's pose, safe to hand across
// goroutines.
type Snapshot struct {
	Orientation     quat.Number
	Position        r3.Vec
	Velocity        r3.Vec
	AngularVelocity r3.Vec
	Buttons         ButtonState
	Connected       bool
	LastUpdate      time.Time
	LastSequence    uint32
}

// Config fixes a device's behaviour at registration time.
type Config struct {
	Class            DeviceClass
	InitialPosition  r3.Vec
	Damping          float64       // defaults to DefaultDamping when zero
	MaxIntegrationDt time.Duration // defaults to DefaultMaxIntegrationDt when zero

	// Renormalize re-unitises the orientation quaternion on every update.
	// The sensor firmware never renormalises, so this defaults off for
	// compatibility; long sessions may accumulate unit-length drift.
	Renormalize bool
}

// PoseState holds the live pose of one logical device. All fields are
// guarded by mu; a reader always observes a consistent snapshot, never a
// torn write of position versus velocity versus orientation.
type PoseState struct {
	mu sync.Mutex

	class       DeviceClass
	damping     float64
	maxDt       time.Duration
	renormalize bool

	orientation     quat.Number
	position        r3.Vec
	velocity        r3.Vec
	angularVelocity r3.Vec
	buttons         ButtonState
	connected       bool
	lastUpdate      time.Time
	lastSequence    uint32
}

// NewPoseState creates the pose state for one device. It is called once at
// registration, before any frames arrive, and the returned state lives for
// the process lifetime; staleness only flips the connected flag, it never
// destroys the state.
func NewPoseState(cfg Config) *PoseState {
	damping := cfg.Damping
	if damping == 0 {
		damping = DefaultDamping
	}
	maxDt := cfg.MaxIntegrationDt
	if maxDt == 0 {
		maxDt = DefaultMaxIntegrationDt
	}

	return &PoseState{
		class:       cfg.Class,
		damping:     damping,
		maxDt:       maxDt,
		renormalize: cfg.Renormalize,
		orientation: quat.Number{Real: 1}, // identity
		position:    cfg.InitialPosition,
	}
}

// ApplyFrame folds one accepted frame into the device state. now is the
// arrival time as observed by the receiver.
func (p *PoseState) ApplyFrame(f frame.SensorFrame, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	q := quat.Number{
		Real: float64(f.QuatW),
		Imag: float64(f.QuatX),
		Jmag: float64(f.QuatY),
		Kmag: float64(f.QuatZ),
	}
	if p.renormalize {
		if abs := quat.Abs(q); abs > 0 {
			q = quat.Scale(1/abs, q)
		}
	}
	p.orientation = q

	switch p.class {
	case ClassInertial:
		// Semi-implicit integration: velocity first, then position from the
		// updated velocity. dt is the gap since the previous accepted frame,
		// clamped so a stall cannot produce a runaway step. The first frame
		// integrates with dt=0.
		var dt float64
		if !p.lastUpdate.IsZero() {
			dt = now.Sub(p.lastUpdate).Seconds()
			if dt < 0 {
				dt = 0
			}
			if limit := p.maxDt.Seconds(); dt > limit {
				dt = limit
			}
		}

		accel := vecFrom(f.ChannelA)
		p.velocity = r3.Add(p.velocity, r3.Scale(dt, accel))
		// Per-frame decay, applied once per accepted frame regardless of dt.
		p.velocity = r3.Scale(p.damping, p.velocity)
		p.position = r3.Add(p.position, r3.Scale(dt, p.velocity))

	case ClassAbsolute:
		p.position = vecFrom(f.ChannelA)
		p.velocity = r3.Vec{}
	}

	p.angularVelocity = vecFrom(f.AngularRate)
	p.buttons = decodeButtons(f)
	p.connected = true
	p.lastUpdate = now
	p.lastSequence = f.Sequence
}

// Snapshot returns a consistent copy of the device's current pose.
func (p *PoseState) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Snapshot{
		Orientation:     p.orientation,
		Position:        p.position,
		Velocity:        p.velocity,
		AngularVelocity: p.angularVelocity,
		Buttons:         p.buttons,
		Connected:       p.connected,
		LastUpdate:      p.lastUpdate,
		LastSequence:    p.lastSequence,
	}
}

// Buttons returns the most recent decoded button state.
func (p *PoseState) Buttons() ButtonState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buttons
}

// CheckLiveness marks the device disconnected when no frame has arrived
// within timeout. It is idempotent and safe to call every tick; a device
// recovers the moment the next valid frame is applied.
func (p *PoseState) CheckLiveness(now time.Time, timeout time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastUpdate.IsZero() || now.Sub(p.lastUpdate) > timeout {
		p.connected = false
	}
}

func decodeButtons(f frame.SensorFrame) ButtonState {
	bs := ButtonState{
		Primary: f.Buttons&frame.ButtonPrimary != 0,
		Grip:    f.Buttons&frame.ButtonGrip != 0,
		Menu:    f.Buttons&frame.ButtonMenu != 0,
		System:  f.Buttons&frame.ButtonSystem != 0,
	}
	if f.HasTrigger {
		bs.Trigger = float64(f.Trigger) / 255.0
	}
	return bs
}

func vecFrom(v [3]float32) r3.Vec {
	return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}
