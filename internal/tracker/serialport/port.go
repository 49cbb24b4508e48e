// Package serialport feeds telemetry frames from sensors attached over a
// serial link into the same handler path as the UDP receiver. Frames on
// the wire are COBS-encoded and 0x00-delimited; decoded payloads are the
// standard 48/49-byte telemetry frames.
package serialport

import (
	"bufio"
	"context"
	"io"

	"go.bug.st/serial"

	"github.com/meridian-labs/posebridge/internal/monitoring"
)

// SensorPortInterface abstracts a framed sensor byte stream so tests can
// substitute canned data for real hardware.
type SensorPortInterface interface {
	// Frames returns the channel of decoded frame payloads.
	Frames() <-chan []byte

	// Monitor reads the stream until ctx is cancelled or the stream ends,
	// emitting decoded payloads on Frames.
	Monitor(ctx context.Context) error

	Close() error
}

// MockSensorPort replays a canned byte stream, for tests and dev mode.
type MockSensorPort struct {
	Data   io.Reader
	frames chan []byte
}

// NewMockSensorPort wraps a reader containing COBS-framed telemetry.
func NewMockSensorPort(data io.Reader) *MockSensorPort {
	return &MockSensorPort{
		Data:   data,
		frames: make(chan []byte, 64),
	}
}

func (m *MockSensorPort) Frames() <-chan []byte {
	return m.frames
}

func (m *MockSensorPort) Monitor(ctx context.Context) error {
	defer close(m.frames)
	return monitorStream(ctx, m.Data, m.frames)
}

func (m *MockSensorPort) Close() error {
	return nil
}

// SensorPort reads telemetry from a real serial device.
type SensorPort struct {
	port   serial.Port
	frames chan []byte
}

// NewSensorPort opens the named serial device. The sensors ship at
// 115200 8N1.
func NewSensorPort(portName string) (*SensorPort, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}

	return &SensorPort{
		port:   port,
		frames: make(chan []byte, 64),
	}, nil
}

func (p *SensorPort) Frames() <-chan []byte {
	return p.frames
}

func (p *SensorPort) Monitor(ctx context.Context) error {
	defer close(p.frames)
	return monitorStream(ctx, p.port, p.frames)
}

func (p *SensorPort) Close() error {
	return p.port.Close()
}

// monitorStream splits the byte stream on 0x00 delimiters, COBS-decodes
// each chunk and emits the payload. Malformed chunks are dropped silently,
// consistent with the datagram path: the next frame supersedes them.
func monitorStream(ctx context.Context, r io.Reader, out chan<- []byte) error {
	reader := bufio.NewReader(r)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		chunk, err := reader.ReadBytes(0x00)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		// Strip the delimiter. An empty chunk is stream idle noise.
		chunk = chunk[:len(chunk)-1]
		if len(chunk) == 0 {
			continue
		}

		payload, err := CobsDecode(chunk)
		if err != nil {
			monitoring.Logf("serial: dropping malformed frame: %v", err)
			continue
		}

		select {
		case out <- payload:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Feed drains a port's frames into a datagram handler until the stream
// ends or ctx is cancelled. It is the glue between the serial backend and
// the shared validation path.
func Feed(ctx context.Context, port SensorPortInterface, handle func([]byte)) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-port.Frames():
			if !ok {
				return
			}
			handle(payload)
		}
	}
}
