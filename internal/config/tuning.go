// Package config loads and validates tracker tuning parameters.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Default tuning values. The two listen ports match the observed
// deployments: 5555 carries raw sensor telemetry, 5556 the processed hub
// relay hop.
const (
	DefaultListenAddr      = ":5555"
	DefaultHubPort         = 5556
	DefaultLivenessTimeout = time.Second
	DefaultTickRate        = 90 // host frames per second
)

// DeviceConfig declares one logical device known at startup. Class selects
// how the overloaded wire field is interpreted for this device; it is
// fixed here, never inferred from packets.
type DeviceConfig struct {
	ID              uint8      `json:"id"`
	Class           string     `json:"class"` // "inertial" or "absolute"
	InitialPosition [3]float64 `json:"initial_position,omitempty"`
}

// TrackerTuning represents the root tuning configuration. Fields are
// pointers so partial JSON configs are safe: anything omitted falls back
// to the Get* defaults.
type TrackerTuning struct {
	// Receiver params
	ListenAddr   *string `json:"listen_addr,omitempty"`
	RcvBuf       *int    `json:"rcv_buf,omitempty"`
	PollInterval *string `json:"poll_interval,omitempty"` // duration string like "1ms"
	ForwardAddr  *string `json:"forward_addr,omitempty"`  // hub relay hop, empty disables

	// Pose params
	Damping          *float64 `json:"damping,omitempty"`
	MaxIntegrationDt *string  `json:"max_integration_dt,omitempty"` // duration string like "100ms"
	Renormalize      *bool    `json:"renormalize,omitempty"`

	// Liveness params
	LivenessTimeout *string `json:"liveness_timeout,omitempty"` // duration string like "1s"
	TickRate        *int    `json:"tick_rate,omitempty"`

	// Device table; empty falls back to DefaultDevices.
	Devices []DeviceConfig `json:"devices,omitempty"`
}

// EmptyTrackerTuning returns a TrackerTuning with all fields unset.
func EmptyTrackerTuning() *TrackerTuning {
	return &TrackerTuning{}
}

// DefaultDevices is the standard three-device table: two inertial
// controllers and a hub-tracked headset seated at standing height.
func DefaultDevices() []DeviceConfig {
	return []DeviceConfig{
		{ID: 0, Class: "inertial"},
		{ID: 1, Class: "inertial"},
		{ID: 2, Class: "absolute", InitialPosition: [3]float64{0, 1.6, 0}},
	}
}

// GetListenAddr returns the UDP listen address.
func (c *TrackerTuning) GetListenAddr() string {
	if c.ListenAddr != nil {
		return *c.ListenAddr
	}
	return DefaultListenAddr
}

// GetRcvBuf returns the socket receive buffer size in bytes.
func (c *TrackerTuning) GetRcvBuf() int {
	if c.RcvBuf != nil {
		return *c.RcvBuf
	}
	return 1 << 20
}

// GetPollInterval returns the receive poll floor.
func (c *TrackerTuning) GetPollInterval() time.Duration {
	return c.duration(c.PollInterval, time.Millisecond)
}

// GetForwardAddr returns the relay hop address, empty when disabled.
func (c *TrackerTuning) GetForwardAddr() string {
	if c.ForwardAddr != nil {
		return *c.ForwardAddr
	}
	return ""
}

// GetDamping returns the per-frame velocity decay factor.
func (c *TrackerTuning) GetDamping() float64 {
	if c.Damping != nil {
		return *c.Damping
	}
	return 0.95
}

// GetMaxIntegrationDt returns the integration step clamp.
func (c *TrackerTuning) GetMaxIntegrationDt() time.Duration {
	return c.duration(c.MaxIntegrationDt, 100*time.Millisecond)
}

// GetRenormalize reports whether orientation quaternions are re-unitised
// on every update. Defaults off: the firmware contract takes them
// verbatim.
func (c *TrackerTuning) GetRenormalize() bool {
	if c.Renormalize != nil {
		return *c.Renormalize
	}
	return false
}

// GetLivenessTimeout returns the staleness threshold.
func (c *TrackerTuning) GetLivenessTimeout() time.Duration {
	return c.duration(c.LivenessTimeout, DefaultLivenessTimeout)
}

// GetTickRate returns the consumer tick cadence in Hz.
func (c *TrackerTuning) GetTickRate() int {
	if c.TickRate != nil {
		return *c.TickRate
	}
	return DefaultTickRate
}

// GetDevices returns the device table, falling back to DefaultDevices.
func (c *TrackerTuning) GetDevices() []DeviceConfig {
	if len(c.Devices) > 0 {
		return c.Devices
	}
	return DefaultDevices()
}

func (c *TrackerTuning) duration(s *string, fallback time.Duration) time.Duration {
	if s == nil {
		return fallback
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return fallback
	}
	return d
}

// Validate checks the configuration for values that would misbehave at
// runtime.
func (c *TrackerTuning) Validate() error {
	if c.Damping != nil && (*c.Damping <= 0 || *c.Damping > 1) {
		return fmt.Errorf("damping must be in (0, 1], got %v", *c.Damping)
	}
	if c.PollInterval != nil {
		if _, err := time.ParseDuration(*c.PollInterval); err != nil {
			return fmt.Errorf("invalid poll_interval: %w", err)
		}
	}
	if c.MaxIntegrationDt != nil {
		if _, err := time.ParseDuration(*c.MaxIntegrationDt); err != nil {
			return fmt.Errorf("invalid max_integration_dt: %w", err)
		}
	}
	if c.LivenessTimeout != nil {
		if _, err := time.ParseDuration(*c.LivenessTimeout); err != nil {
			return fmt.Errorf("invalid liveness_timeout: %w", err)
		}
	}
	if c.TickRate != nil && *c.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive, got %d", *c.TickRate)
	}

	seen := make(map[uint8]bool)
	for _, d := range c.Devices {
		if d.Class != "inertial" && d.Class != "absolute" {
			return fmt.Errorf("device %d: unknown class %q", d.ID, d.Class)
		}
		if seen[d.ID] {
			return fmt.Errorf("device %d declared twice", d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}

// LoadTrackerTuning loads tuning from a JSON file. The path must carry a
// .json extension and stay under the size cap; fields omitted from the
// file retain their defaults, so partial configs are safe.
func LoadTrackerTuning(path string) (*TrackerTuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTrackerTuning()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
