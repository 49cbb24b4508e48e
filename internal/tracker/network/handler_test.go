package network

import (
	"testing"
	"time"

	"github.com/meridian-labs/posebridge/internal/tracker/frame"
)

// mockRouter implements FrameRouter for testing.
type mockRouter struct {
	frames  []frame.SensorFrame
	unknown bool
}

func (m *mockRouter) Route(f frame.SensorFrame, now time.Time) bool {
	if m.unknown {
		return false
	}
	m.frames = append(m.frames, f)
	return true
}

// mockStats implements FrameStatsInterface for testing.
type mockStats struct {
	frames          int
	bytes           int
	sizeRejects     int
	checksumRejects int
	unknownDevice   int
	forwardDrops    int
	logCalls        int
}

func (m *mockStats) AddFrame(bytes int) { m.frames++; m.bytes += bytes }
func (m *mockStats) AddSizeReject()     { m.sizeRejects++ }
func (m *mockStats) AddChecksumReject() { m.checksumRejects++ }
func (m *mockStats) AddUnknownDevice()  { m.unknownDevice++ }
func (m *mockStats) AddForwardDrop()    { m.forwardDrops++ }
func (m *mockStats) LogStats()          { m.logCalls++ }

func validFrameBytes(id uint8) []byte {
	return frame.Encode(frame.SensorFrame{
		DeviceID:   id,
		Sequence:   1,
		QuatW:      1.0,
		HasTrigger: true,
	})
}

func TestHandleDatagramRoutesValidFrame(t *testing.T) {
	router := &mockRouter{}
	stats := &mockStats{}
	h := NewFrameHandler(router, stats, nil, nil)

	h.HandleDatagram(validFrameBytes(0))

	if len(router.frames) != 1 {
		t.Fatalf("routed %d frames, want 1", len(router.frames))
	}
	if router.frames[0].DeviceID != 0 || router.frames[0].QuatW != 1.0 {
		t.Errorf("routed frame = %+v, want device 0 identity", router.frames[0])
	}
	if stats.frames != 1 || stats.bytes != frame.FRAME_SIZE_TRIGGER {
		t.Errorf("stats = %d frames / %d bytes, want 1 / %d", stats.frames, stats.bytes, frame.FRAME_SIZE_TRIGGER)
	}
}

func TestHandleDatagramDropsWrongSize(t *testing.T) {
	router := &mockRouter{}
	stats := &mockStats{}
	h := NewFrameHandler(router, stats, nil, nil)

	short := validFrameBytes(0)[:frame.FRAME_SIZE_STANDARD-1]
	long := append(validFrameBytes(0), 0x00)

	h.HandleDatagram(short)
	h.HandleDatagram(long)
	h.HandleDatagram(nil)

	if len(router.frames) != 0 {
		t.Errorf("wrong-size datagrams reached the router: %d", len(router.frames))
	}
	if stats.sizeRejects != 3 {
		t.Errorf("sizeRejects = %d, want 3", stats.sizeRejects)
	}
}

// A trigger frame truncated by exactly one byte lands on the standard
// variant's length, so it clears the size gate and is screened by the
// checksum instead: the byte now in the checksum slot is the stale
// trigger value.
func TestHandleDatagramTruncatedTriggerFrame(t *testing.T) {
	router := &mockRouter{}
	stats := &mockStats{}
	h := NewFrameHandler(router, stats, nil, nil)

	h.HandleDatagram(validFrameBytes(0)[:frame.FRAME_SIZE_STANDARD])

	if len(router.frames) != 0 {
		t.Error("truncated datagram reached the router")
	}
	if stats.sizeRejects != 0 || stats.checksumRejects != 1 {
		t.Errorf("rejects = %d size / %d checksum, want 0 / 1",
			stats.sizeRejects, stats.checksumRejects)
	}
}

func TestHandleDatagramDropsBadChecksum(t *testing.T) {
	router := &mockRouter{}
	stats := &mockStats{}
	h := NewFrameHandler(router, stats, nil, nil)

	corrupted := validFrameBytes(0)
	corrupted[10]++

	h.HandleDatagram(corrupted)

	if len(router.frames) != 0 {
		t.Error("corrupt datagram reached the router")
	}
	if stats.checksumRejects != 1 {
		t.Errorf("checksumRejects = %d, want 1", stats.checksumRejects)
	}
}

func TestHandleDatagramCountsUnknownDevice(t *testing.T) {
	router := &mockRouter{unknown: true}
	stats := &mockStats{}
	h := NewFrameHandler(router, stats, nil, nil)

	h.HandleDatagram(validFrameBytes(9))

	if stats.unknownDevice != 1 {
		t.Errorf("unknownDevice = %d, want 1", stats.unknownDevice)
	}
	// Still counted as an accepted datagram: it decoded cleanly.
	if stats.frames != 1 {
		t.Errorf("frames = %d, want 1", stats.frames)
	}
}

func TestHandleDatagramUsesInjectedClock(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var routed time.Time
	router := routerFunc(func(f frame.SensorFrame, now time.Time) bool {
		routed = now
		return true
	})
	h := NewFrameHandler(router, nil, nil, func() time.Time { return fixed })

	h.HandleDatagram(validFrameBytes(0))

	if !routed.Equal(fixed) {
		t.Errorf("router saw time %v, want injected %v", routed, fixed)
	}
}

type routerFunc func(f frame.SensorFrame, now time.Time) bool

func (fn routerFunc) Route(f frame.SensorFrame, now time.Time) bool { return fn(f, now) }
