// Package monitor collects ingestion statistics for the telemetry stream.
package monitor

import (
	"sync"
	"time"

	"github.com/meridian-labs/posebridge/internal/monitoring"
)

// StatsSnapshot is a point-in-time view of stream statistics.
type StatsSnapshot struct {
	FramesPerSec    float64   `json:"frames_per_sec"`
	KBPerSec        float64   `json:"kb_per_sec"`
	SizeRejects     int64     `json:"size_rejects"`
	ChecksumRejects int64     `json:"checksum_rejects"`
	UnknownDevice   int64     `json:"unknown_device"`
	ForwardDrops    int64     `json:"forward_drops"`
	TotalFrames     int64     `json:"total_frames"`
	Timestamp       time.Time `json:"timestamp"`
}

// FrameStats tracks telemetry stream statistics with thread-safe
// operations. Counters cover the silent-drop paths (wrong size, bad
// checksum, unknown device) so the stream stays observable even though the
// receive loop surfaces no errors.
type FrameStats struct {
	mu              sync.Mutex
	frameCount      int64
	byteCount       int64
	sizeRejects     int64
	checksumRejects int64
	unknownDevice   int64
	forwardDrops    int64
	totalFrames     int64
	lastReset       time.Time
	latestSnapshot  *StatsSnapshot
}

// NewFrameStats creates a new FrameStats instance.
func NewFrameStats() *FrameStats {
	return &FrameStats{lastReset: time.Now()}
}

// AddFrame records one accepted datagram of the given size.
func (s *FrameStats) AddFrame(bytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameCount++
	s.totalFrames++
	s.byteCount += int64(bytes)
}

// AddSizeReject records a datagram discarded for a wrong length.
func (s *FrameStats) AddSizeReject() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sizeRejects++
}

// AddChecksumReject records a correctly-sized datagram whose checksum
// failed to verify.
func (s *FrameStats) AddChecksumReject() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checksumRejects++
}

// AddUnknownDevice records a valid frame dropped because no device is
// registered under its identifier.
func (s *FrameStats) AddUnknownDevice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unknownDevice++
}

// AddForwardDrop records a datagram the relay forwarder had to drop
// because its buffer was full.
func (s *FrameStats) AddForwardDrop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forwardDrops++
}

// GetAndReset returns the interval counters and resets them. Cumulative
// reject totals are preserved separately.
func (s *FrameStats) GetAndReset() (frames, bytes int64, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	duration = now.Sub(s.lastReset)
	frames = s.frameCount
	bytes = s.byteCount

	s.frameCount = 0
	s.byteCount = 0
	s.lastReset = now
	return frames, bytes, duration
}

// Snapshot returns the current statistics without resetting interval
// counters.
func (s *FrameStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		SizeRejects:     s.sizeRejects,
		ChecksumRejects: s.checksumRejects,
		UnknownDevice:   s.unknownDevice,
		ForwardDrops:    s.forwardDrops,
		TotalFrames:     s.totalFrames,
		Timestamp:       time.Now(),
	}
	if s.latestSnapshot != nil {
		snap.FramesPerSec = s.latestSnapshot.FramesPerSec
		snap.KBPerSec = s.latestSnapshot.KBPerSec
	}
	return snap
}

// LogStats logs the current interval rates and reject counters through the
// package logger, then starts a fresh interval.
func (s *FrameStats) LogStats() {
	frames, bytes, duration := s.GetAndReset()
	if duration <= 0 {
		return
	}

	secs := duration.Seconds()
	framesPerSec := float64(frames) / secs
	kbPerSec := float64(bytes) / 1024.0 / secs

	s.mu.Lock()
	s.latestSnapshot = &StatsSnapshot{
		FramesPerSec: framesPerSec,
		KBPerSec:     kbPerSec,
		Timestamp:    time.Now(),
	}
	sizeRejects := s.sizeRejects
	checksumRejects := s.checksumRejects
	unknown := s.unknownDevice
	forwardDrops := s.forwardDrops
	s.mu.Unlock()

	monitoring.Logf("telemetry: %.1f frames/s (%.1f KB/s), rejects: %d size, %d checksum, %d unknown device, %d forward drops",
		framesPerSec, kbPerSec, sizeRejects, checksumRejects, unknown, forwardDrops)
}
