// Command frame-gen sends synthetic telemetry frames over UDP, for
// exercising a running trackerd without physical sensors.
//
// It drives three devices: two inertial controllers sweeping circular
// acceleration and one absolute-position device bobbing around head
// height. Button and trigger state on device 0 toggles once a second.
//
// Usage:
//
//	go run ./cmd/tools/frame-gen [flags]
//
// Flags:
//
//	-addr   Destination address (default: 127.0.0.1:5555)
//	-rate   Frames per second per device (default: 120)
//	-n      Total frames per device, 0 for unlimited (default: 0)
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gonum.org/v1/gonum/num/quat"

	"github.com/meridian-labs/posebridge/internal/tracker/frame"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5555", "Destination address")
	rate := flag.Int("rate", 120, "Frames per second per device")
	count := flag.Int("n", 0, "Total frames per device, 0 for unlimited")
	flag.Parse()

	interval, err := tickInterval(*rate)
	if err != nil {
		log.Fatalf("Invalid -rate: %v", err)
	}

	conn, err := net.Dial("udp", *addr)
	if err != nil {
		log.Fatalf("Failed to dial %s: %v", *addr, err)
	}
	defer conn.Close()

	log.Printf("Sending synthetic frames to %s at %d Hz per device", *addr, *rate)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint32
	start := time.Now()
	for sent := 0; *count == 0 || sent < *count; sent++ {
		select {
		case <-sigCh:
			log.Printf("Stopped after %d frames per device", sent)
			return
		case <-ticker.C:
		}

		t := time.Since(start).Seconds()
		seq++

		for _, f := range synthesise(t, seq) {
			if _, err := conn.Write(frame.Encode(f)); err != nil {
				log.Fatalf("Failed to send frame: %v", err)
			}
		}
	}
	log.Printf("Done: sent %d frames per device", *count)
}

// tickInterval converts a per-device frame rate in Hz to a ticker
// period. Non-positive rates are rejected rather than feeding a zero
// divisor into the period.
func tickInterval(rate int) (time.Duration, error) {
	if rate <= 0 {
		return 0, fmt.Errorf("rate must be positive, got %d", rate)
	}
	return time.Second / time.Duration(rate), nil
}

// synthesise produces one frame per device for elapsed time t. The
// controllers report circular acceleration in the horizontal plane, a
// quarter turn apart; the headset reports an absolute position bobbing
// gently at head height. All devices yaw slowly about the vertical axis.
func synthesise(t float64, seq uint32) []frame.SensorFrame {
	yaw := quaternionFromYaw(0.2 * t)

	frames := make([]frame.SensorFrame, 0, 3)
	for _, id := range []uint8{frame.DeviceLeftController, frame.DeviceRightController} {
		phase := t
		if id == frame.DeviceRightController {
			phase += math.Pi / 2
		}
		f := frame.SensorFrame{
			DeviceID:    id,
			Sequence:    seq,
			QuatW:       float32(yaw.Real),
			QuatY:       float32(yaw.Jmag),
			ChannelA:    [3]float32{float32(2 * math.Cos(phase)), 0, float32(2 * math.Sin(phase))},
			AngularRate: [3]float32{0, 0.2, 0},
		}

		// Pulse the primary button and trigger on the left controller.
		if id == frame.DeviceLeftController && int(t)%2 == 0 {
			f.Buttons = frame.ButtonPrimary
			f.HasTrigger = true
			f.Trigger = 255
		}
		frames = append(frames, f)
	}

	frames = append(frames, frame.SensorFrame{
		DeviceID:    frame.DeviceHeadset,
		Sequence:    seq,
		QuatW:       float32(yaw.Real),
		QuatY:       float32(yaw.Jmag),
		ChannelA:    [3]float32{0, float32(1.6 + 0.05*math.Sin(2*t)), 0},
		AngularRate: [3]float32{0, 0.2, 0},
	})

	return frames
}

// quaternionFromYaw builds a unit rotation of angle radians about +Y.
func quaternionFromYaw(angle float64) quat.Number {
	return quat.Number{Real: math.Cos(angle / 2), Jmag: math.Sin(angle / 2)}
}
