package monitor

import (
	"testing"

	"github.com/meridian-labs/posebridge/internal/monitoring"
)

func TestFrameStatsCounters(t *testing.T) {
	s := NewFrameStats()

	s.AddFrame(49)
	s.AddFrame(48)
	s.AddSizeReject()
	s.AddChecksumReject()
	s.AddChecksumReject()
	s.AddUnknownDevice()
	s.AddForwardDrop()

	snap := s.Snapshot()
	if snap.TotalFrames != 2 {
		t.Errorf("TotalFrames = %d, want 2", snap.TotalFrames)
	}
	if snap.SizeRejects != 1 {
		t.Errorf("SizeRejects = %d, want 1", snap.SizeRejects)
	}
	if snap.ChecksumRejects != 2 {
		t.Errorf("ChecksumRejects = %d, want 2", snap.ChecksumRejects)
	}
	if snap.UnknownDevice != 1 {
		t.Errorf("UnknownDevice = %d, want 1", snap.UnknownDevice)
	}
	if snap.ForwardDrops != 1 {
		t.Errorf("ForwardDrops = %d, want 1", snap.ForwardDrops)
	}
}

func TestGetAndResetClearsIntervalOnly(t *testing.T) {
	s := NewFrameStats()

	s.AddFrame(49)
	s.AddSizeReject()

	frames, bytes, _ := s.GetAndReset()
	if frames != 1 || bytes != 49 {
		t.Errorf("GetAndReset = (%d, %d), want (1, 49)", frames, bytes)
	}

	frames, bytes, _ = s.GetAndReset()
	if frames != 0 || bytes != 0 {
		t.Errorf("second GetAndReset = (%d, %d), want zeros", frames, bytes)
	}

	// Reject counters are cumulative and survive the reset.
	if snap := s.Snapshot(); snap.SizeRejects != 1 || snap.TotalFrames != 1 {
		t.Errorf("cumulative counters lost: %+v", snap)
	}
}

func TestLogStatsDoesNotPanicAndRecords(t *testing.T) {
	monitoring.SetLogger(func(string, ...interface{}) {})
	defer monitoring.SetLogger(nil)

	s := NewFrameStats()
	s.AddFrame(49)
	s.LogStats()

	snap := s.Snapshot()
	if snap.FramesPerSec < 0 {
		t.Errorf("FramesPerSec = %v, want non-negative", snap.FramesPerSec)
	}
}

func TestConcurrentCounterUpdates(t *testing.T) {
	s := NewFrameStats()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			s.AddFrame(49)
		}
	}()
	for i := 0; i < 1000; i++ {
		s.AddChecksumReject()
	}
	<-done

	snap := s.Snapshot()
	if snap.TotalFrames != 1000 || snap.ChecksumRejects != 1000 {
		t.Errorf("counters = %d frames, %d checksum rejects, want 1000 each",
			snap.TotalFrames, snap.ChecksumRejects)
	}
}
