package pose

import (
	"fmt"
	"sort"
	"time"

	"github.com/meridian-labs/posebridge/internal/tracker/frame"
)

// Registry maps frame device identifiers to their PoseState. The device
// set is fixed at startup: Register is called during construction, before
// any receiver goroutine starts, so routing reads need no lock of their
// own. Frames for unknown identifiers are expected noise (several logical
// devices multiplexed over fewer links) and are dropped without error.
type Registry struct {
	devices map[uint8]*PoseState
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[uint8]*PoseState)}
}

// Register adds a device to the registry. It must only be called during
// startup, before frames begin to arrive. Registering the same identifier
// twice is a configuration mistake and returns an error.
func (r *Registry) Register(id uint8, ps *PoseState) error {
	if _, exists := r.devices[id]; exists {
		return fmt.Errorf("device %d already registered", id)
	}
	r.devices[id] = ps
	return nil
}

// Route dispatches a decoded frame to its device's ApplyFrame. It reports
// whether the frame was delivered; false means the identifier is unknown
// and the frame was dropped. A frame is never delivered to more than one
// device.
func (r *Registry) Route(f frame.SensorFrame, now time.Time) bool {
	ps, ok := r.devices[f.DeviceID]
	if !ok {
		return false
	}
	ps.ApplyFrame(f, now)
	return true
}

// Device returns the pose state for id.
func (r *Registry) Device(id uint8) (*PoseState, bool) {
	ps, ok := r.devices[id]
	return ps, ok
}

// IDs returns the registered device identifiers in ascending order.
func (r *Registry) IDs() []uint8 {
	ids := make([]uint8, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CheckLiveness runs the staleness check on every registered device.
func (r *Registry) CheckLiveness(now time.Time, timeout time.Duration) {
	for _, ps := range r.devices {
		ps.CheckLiveness(now, timeout)
	}
}
