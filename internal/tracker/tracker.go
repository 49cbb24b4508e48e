// Package tracker wires the telemetry pipeline together and exposes the
// narrow surface the host runtime consumes: push a decoded frame in, pull
// the current pose per tick.
//
// A Tracker is an explicit context object constructed once at startup and
// passed to the receiver and the ticking collaborator; there is no ambient
// process-wide state.
package tracker

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/meridian-labs/posebridge/internal/config"
	"github.com/meridian-labs/posebridge/internal/timeutil"
	"github.com/meridian-labs/posebridge/internal/tracker/frame"
	"github.com/meridian-labs/posebridge/internal/tracker/pose"
)

// PosePublisher receives per-device snapshots on every tick. It is the
// boundary to the host-facing layer (device registration, property
// metadata and input components live on the far side of it).
type PosePublisher interface {
	PublishPose(deviceID uint8, snap pose.Snapshot)
}

// Tracker owns the device registry and the liveness policy. Its Route
// method serves the receiver goroutine; Tick, GetPose and ButtonState
// serve the host's periodic callback. The two sides race by design: a
// tick always observes the latest fully-applied frame.
type Tracker struct {
	clock    timeutil.Clock
	registry *pose.Registry
	timeout  time.Duration
}

// New builds a Tracker from the tuning configuration. The device table is
// resolved once here; devices cannot be added after construction.
func New(cfg *config.TrackerTuning, clock timeutil.Clock) (*Tracker, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	registry := pose.NewRegistry()
	for _, d := range cfg.GetDevices() {
		var class pose.DeviceClass
		switch d.Class {
		case "inertial":
			class = pose.ClassInertial
		case "absolute":
			class = pose.ClassAbsolute
		default:
			return nil, fmt.Errorf("device %d: unknown class %q", d.ID, d.Class)
		}

		ps := pose.NewPoseState(pose.Config{
			Class: class,
			InitialPosition: r3.Vec{
				X: d.InitialPosition[0],
				Y: d.InitialPosition[1],
				Z: d.InitialPosition[2],
			},
			Damping:          cfg.GetDamping(),
			MaxIntegrationDt: cfg.GetMaxIntegrationDt(),
			Renormalize:      cfg.GetRenormalize(),
		})
		if err := registry.Register(d.ID, ps); err != nil {
			return nil, err
		}
	}

	return &Tracker{
		clock:    clock,
		registry: registry,
		timeout:  cfg.GetLivenessTimeout(),
	}, nil
}

// Route applies one decoded frame to its device, stamped with the arrival
// time the receiver observed. Frames for unknown devices are dropped; the
// return value reports delivery.
func (t *Tracker) Route(f frame.SensorFrame, now time.Time) bool {
	return t.registry.Route(f, now)
}

// Tick runs one consumer cycle: staleness check first, then a snapshot of
// every device handed to the publisher. Safe to call at any cadence; it
// never blocks on the network.
func (t *Tracker) Tick(pub PosePublisher) {
	now := t.clock.Now()
	t.registry.CheckLiveness(now, t.timeout)

	for _, id := range t.registry.IDs() {
		ps, _ := t.registry.Device(id)
		pub.PublishPose(id, ps.Snapshot())
	}
}

// GetPose returns the current snapshot for one device.
func (t *Tracker) GetPose(deviceID uint8) (pose.Snapshot, bool) {
	ps, ok := t.registry.Device(deviceID)
	if !ok {
		return pose.Snapshot{}, false
	}
	return ps.Snapshot(), true
}

// ButtonState returns the decoded button and trigger outputs for one
// device, for the host's input-component layer.
func (t *Tracker) ButtonState(deviceID uint8) (pose.ButtonState, bool) {
	ps, ok := t.registry.Device(deviceID)
	if !ok {
		return pose.ButtonState{}, false
	}
	return ps.Buttons(), true
}

// DeviceIDs returns the registered device identifiers in ascending order.
func (t *Tracker) DeviceIDs() []uint8 {
	return t.registry.IDs()
}

// LivenessTimeout returns the configured staleness threshold.
func (t *Tracker) LivenessTimeout() time.Duration {
	return t.timeout
}
