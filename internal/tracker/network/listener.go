package network

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/meridian-labs/posebridge/internal/monitoring"
	"github.com/meridian-labs/posebridge/internal/tracker/frame"
)

// Default listener parameters. The sensor cadence is sub-millisecond, so
// the poll interval is kept short: this is a deliberate busy-poll with a
// sleep floor rather than an event-driven wait, trading CPU for latency.
const (
	DefaultPollInterval = time.Millisecond
	DefaultRcvBuf       = 1 << 20
	DefaultLogInterval  = time.Minute
)

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address      string        // listen address, e.g. ":5555"
	RcvBuf       int           // socket receive buffer size in bytes
	PollInterval time.Duration // read-deadline poll floor
	LogInterval  time.Duration // stats logging cadence
	Stats        FrameStatsInterface
	Forwarder    *PacketForwarder
	Router       FrameRouter
}

// UDPListener receives telemetry datagrams on a single UDP socket and
// pushes each payload through the shared FrameHandler path. One instance
// serves one deployment port (5555 for raw sensor telemetry, 5556 for the
// hub relay hop in the observed topologies).
type UDPListener struct {
	address      string
	rcvBuf       int
	pollInterval time.Duration
	logInterval  time.Duration
	handler      *FrameHandler
	stats        FrameStatsInterface

	mu   sync.Mutex
	conn *net.UDPConn
}

// NewUDPListener creates a new UDP listener with the provided
// configuration, filling defaults for zero-valued fields.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	var stats FrameStatsInterface
	if config.Stats != nil {
		stats = config.Stats
	} else {
		stats = noopStats{}
	}

	pollInterval := config.PollInterval
	if pollInterval == 0 {
		pollInterval = DefaultPollInterval
	}
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = DefaultLogInterval
	}
	rcvBuf := config.RcvBuf
	if rcvBuf == 0 {
		rcvBuf = DefaultRcvBuf
	}

	return &UDPListener{
		address:      config.Address,
		rcvBuf:       rcvBuf,
		pollInterval: pollInterval,
		logInterval:  logInterval,
		handler:      NewFrameHandler(config.Router, stats, config.Forwarder, nil),
		stats:        stats,
	}
}

// Start binds the socket and runs the receive loop until ctx is cancelled
// or the socket fails. Resolve or bind failures are returned immediately;
// the caller decides whether to retry. Start blocks; run it in its own
// goroutine.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	defer l.Close()

	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		monitoring.Logf("warning: failed to set UDP receive buffer to %d: %v", l.rcvBuf, err)
	}

	monitoring.Logf("telemetry listener started on %s (poll %v, rcvbuf %d)",
		conn.LocalAddr(), l.pollInterval, l.rcvBuf)

	go l.runStatsLogging(ctx)

	// A frame never exceeds the trigger-variant size, but keep margin for
	// oversize garbage so it can be counted rather than truncated into a
	// plausible length.
	buffer := make([]byte, 4*frame.FRAME_SIZE_TRIGGER)

	deadlineWarned := false
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("telemetry listener stopping: %v", ctx.Err())
			return ctx.Err()
		default:
			// Short read deadlines give a poll floor so the loop observes
			// cancellation between datagrams without blocking forever. A
			// failure here would leave the read unbounded, so it must not
			// pass silently; one warning avoids flooding the log.
			if err := conn.SetReadDeadline(time.Now().Add(l.pollInterval)); err != nil && !deadlineWarned {
				monitoring.Logf("warning: failed to set read deadline: %v", err)
				deadlineWarned = true
			}

			n, _, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				monitoring.Logf("UDP read error: %v", err)
				continue
			}

			l.handler.HandleDatagram(buffer[:n])
		}
	}
}

// LocalAddr returns the bound socket address, or nil before Start has
// bound the socket.
func (l *UDPListener) LocalAddr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Close releases the socket. It is idempotent and safe to call whether or
// not Start ever ran.
func (l *UDPListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	return err
}

func (l *UDPListener) runStatsLogging(ctx context.Context) {
	// An initial report shortly after startup avoids a long first-run
	// silence; subsequent reports follow the configured interval.
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
		l.stats.LogStats()
	}

	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.LogStats()
		}
	}
}
