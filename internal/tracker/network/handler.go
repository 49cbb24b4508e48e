package network

import (
	"errors"
	"time"

	"github.com/meridian-labs/posebridge/internal/tracker/frame"
)

// FrameRouter dispatches decoded frames to device state. It reports false
// when the frame's device identifier is unknown.
type FrameRouter interface {
	Route(f frame.SensorFrame, now time.Time) bool
}

// FrameStatsInterface provides stream statistics management.
type FrameStatsInterface interface {
	AddFrame(bytes int)
	AddSizeReject()
	AddChecksumReject()
	AddUnknownDevice()
	AddForwardDrop()
	LogStats()
}

// noopStats is a FrameStatsInterface implementation that does nothing. It
// is used as a safe default when no stats collector is provided.
type noopStats struct{}

func (noopStats) AddFrame(bytes int)  {}
func (noopStats) AddSizeReject()      {}
func (noopStats) AddChecksumReject()  {}
func (noopStats) AddUnknownDevice()   {}
func (noopStats) AddForwardDrop()     {}
func (noopStats) LogStats()           {}

// FrameHandler is the shared per-datagram processing path: decode,
// validate, optionally relay, then route. Both the UDP listener and the
// serial transport feed raw payloads through the same handler so every
// backend gets identical validation and statistics behaviour.
//
// Every failure is a silent drop by design: the stream is lossy-tolerant
// and the next frame supersedes a corrupt one. Drops are only counted.
type FrameHandler struct {
	stats     FrameStatsInterface
	forwarder *PacketForwarder
	router    FrameRouter
	now       func() time.Time
}

// NewFrameHandler builds a handler. stats may be nil; forwarder may be nil
// when no relay hop is configured. nowFn may be nil, defaulting to
// time.Now.
func NewFrameHandler(router FrameRouter, stats FrameStatsInterface, forwarder *PacketForwarder, nowFn func() time.Time) *FrameHandler {
	if stats == nil {
		stats = noopStats{}
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &FrameHandler{
		stats:     stats,
		forwarder: forwarder,
		router:    router,
		now:       nowFn,
	}
}

// HandleDatagram processes one raw payload. It never returns an error:
// malformed input is dropped and counted.
func (h *FrameHandler) HandleDatagram(b []byte) {
	// Relay the raw bytes before validation: the downstream hop performs
	// its own checks, matching the hub's pass-through behaviour.
	if h.forwarder != nil {
		h.forwarder.ForwardAsync(b)
	}

	f, err := frame.Decode(b)
	if err != nil {
		switch {
		case errors.Is(err, frame.ErrSizeMismatch):
			h.stats.AddSizeReject()
		case errors.Is(err, frame.ErrChecksum):
			h.stats.AddChecksumReject()
		}
		return
	}

	h.stats.AddFrame(len(b))
	if !h.router.Route(f, h.now()) {
		h.stats.AddUnknownDevice()
	}
}
