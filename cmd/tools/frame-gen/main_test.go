package main

import (
	"testing"
	"time"

	"github.com/meridian-labs/posebridge/internal/tracker/frame"
)

func TestTickInterval(t *testing.T) {
	tests := []struct {
		rate    int
		want    time.Duration
		wantErr bool
	}{
		{rate: 120, want: time.Second / 120},
		{rate: 1, want: time.Second},
		{rate: 0, wantErr: true},
		{rate: -5, wantErr: true},
	}

	for _, tt := range tests {
		got, err := tickInterval(tt.rate)
		if tt.wantErr {
			if err == nil {
				t.Errorf("tickInterval(%d) accepted an unusable rate", tt.rate)
			}
			continue
		}
		if err != nil {
			t.Errorf("tickInterval(%d) returned %v", tt.rate, err)
			continue
		}
		if got != tt.want {
			t.Errorf("tickInterval(%d) = %v, want %v", tt.rate, got, tt.want)
		}
	}
}

func TestSynthesiseProducesDecodableFrames(t *testing.T) {
	frames := synthesise(1.5, 42)
	if len(frames) != 3 {
		t.Fatalf("synthesised %d frames, want 3", len(frames))
	}

	for _, f := range frames {
		decoded, err := frame.Decode(frame.Encode(f))
		if err != nil {
			t.Errorf("device %d frame does not decode: %v", f.DeviceID, err)
			continue
		}
		if decoded.Sequence != 42 {
			t.Errorf("device %d sequence = %d, want 42", f.DeviceID, decoded.Sequence)
		}
	}
}
