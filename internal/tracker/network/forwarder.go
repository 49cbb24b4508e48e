package network

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/meridian-labs/posebridge/internal/monitoring"
)

// DropCounter records datagrams the forwarder could not relay.
type DropCounter interface {
	AddForwardDrop()
}

// PacketForwarder relays raw telemetry datagrams to a second hop, the
// hub topology where a process on the raw sensor port re-emits traffic to
// the processed port. Forwarding is asynchronous and lossy: when the
// buffer is full the datagram is dropped and counted, never blocking the
// receive loop.
type PacketForwarder struct {
	conn        *net.UDPConn
	channel     chan []byte
	drops       DropCounter
	logInterval time.Duration
	address     string
}

// NewPacketForwarder creates a forwarder that relays datagrams to addr.
// drops may be nil.
func NewPacketForwarder(addr string, drops DropCounter, logInterval time.Duration) (*PacketForwarder, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve forward address: %w", err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create forward connection: %w", err)
	}

	if drops == nil {
		drops = noopStats{}
	}
	if logInterval == 0 {
		logInterval = DefaultLogInterval
	}

	return &PacketForwarder{
		conn:        conn,
		channel:     make(chan []byte, 1000),
		drops:       drops,
		logInterval: logInterval,
		address:     addr,
	}, nil
}

// Start launches the forwarding goroutine. Send errors are aggregated and
// logged on the configured interval rather than per datagram.
func (f *PacketForwarder) Start(ctx context.Context) {
	go func() {
		errCount := 0
		var lastErr error
		ticker := time.NewTicker(f.logInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case packet := <-f.channel:
				if _, err := f.conn.Write(packet); err != nil {
					errCount++
					lastErr = err
				}
			case <-ticker.C:
				if errCount > 0 {
					monitoring.Logf("forwarder: %d failed sends to %s (latest: %v)", errCount, f.address, lastErr)
					errCount = 0
					lastErr = nil
				}
			}
		}
	}()

	monitoring.Logf("forwarding telemetry to %s", f.address)
}

// ForwardAsync queues a datagram for relay without blocking. The payload
// is copied because the receive loop reuses its buffer.
func (f *PacketForwarder) ForwardAsync(packet []byte) {
	packetCopy := make([]byte, len(packet))
	copy(packetCopy, packet)

	select {
	case f.channel <- packetCopy:
	default:
		f.drops.AddForwardDrop()
	}
}

// Close closes the relay connection.
func (f *PacketForwarder) Close() error {
	return f.conn.Close()
}
