// Command trackerd runs the telemetry ingestion and pose-synthesis
// daemon: it receives sensor frames over UDP (or a serial link, or a pcap
// replay), maintains per-device pose state, and publishes snapshots on a
// fixed tick cadence.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/meridian-labs/posebridge/internal/config"
	"github.com/meridian-labs/posebridge/internal/monitoring"
	"github.com/meridian-labs/posebridge/internal/timeutil"
	"github.com/meridian-labs/posebridge/internal/tracker"
	"github.com/meridian-labs/posebridge/internal/tracker/api"
	"github.com/meridian-labs/posebridge/internal/tracker/monitor"
	"github.com/meridian-labs/posebridge/internal/tracker/network"
	"github.com/meridian-labs/posebridge/internal/tracker/pose"
	"github.com/meridian-labs/posebridge/internal/tracker/recorder"
	"github.com/meridian-labs/posebridge/internal/tracker/serialport"
)

var (
	configPath = flag.String("config", "", "Path to tuning JSON (defaults apply when empty)")
	listen     = flag.String("listen", ":8080", "Debug HTTP listen address")
	serialDev  = flag.String("serial", "", "Read frames from this serial device instead of UDP")
	pcapFile   = flag.String("pcap", "", "Replay frames from this pcap capture instead of UDP")
	recordPath = flag.String("record", "", "Record session samples to this sqlite database")
	recordTag  = flag.String("record-label", "", "Label for the recorded session")
)

// multiPublisher fans one tick out to several publishers.
type multiPublisher []tracker.PosePublisher

func (m multiPublisher) PublishPose(deviceID uint8, snap pose.Snapshot) {
	for _, p := range m {
		p.PublishPose(deviceID, snap)
	}
}

// logPublisher reports device connect/disconnect transitions.
type logPublisher struct {
	connected map[uint8]bool
}

func newLogPublisher() *logPublisher {
	return &logPublisher{connected: make(map[uint8]bool)}
}

func (p *logPublisher) PublishPose(deviceID uint8, snap pose.Snapshot) {
	if p.connected[deviceID] != snap.Connected {
		p.connected[deviceID] = snap.Connected
		if snap.Connected {
			monitoring.Logf("device %d connected", deviceID)
		} else {
			monitoring.Logf("device %d disconnected (stale)", deviceID)
		}
	}
}

func main() {
	flag.Parse()

	cfg := config.EmptyTrackerTuning()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTrackerTuning(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	tr, err := tracker.New(cfg, timeutil.RealClock{})
	if err != nil {
		log.Fatalf("failed to build tracker: %v", err)
	}

	stats := monitor.NewFrameStats()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var forwarder *network.PacketForwarder
	if addr := cfg.GetForwardAddr(); addr != "" {
		forwarder, err = network.NewPacketForwarder(addr, stats, time.Minute)
		if err != nil {
			log.Fatalf("failed to create forwarder: %v", err)
		}
		defer forwarder.Close()
		forwarder.Start(ctx)
	}

	var wg sync.WaitGroup

	// Ingestion backend: exactly one of UDP (default), serial, or pcap
	// replay.
	switch {
	case *pcapFile != "":
		handler := network.NewFrameHandler(tr, stats, forwarder, nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := network.ReplayPCAPFile(ctx, *pcapFile, 5555, handler); err != nil && err != context.Canceled {
				monitoring.Logf("pcap replay failed: %v", err)
			}
			stop()
		}()

	case *serialDev != "":
		port, err := serialport.NewSensorPort(*serialDev)
		if err != nil {
			log.Fatalf("failed to open serial device: %v", err)
		}
		defer port.Close()

		handler := network.NewFrameHandler(tr, stats, forwarder, nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := port.Monitor(ctx); err != nil && err != context.Canceled {
				monitoring.Logf("serial monitor failed: %v", err)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			serialport.Feed(ctx, port, handler.HandleDatagram)
		}()

	default:
		listener := network.NewUDPListener(network.UDPListenerConfig{
			Address:      cfg.GetListenAddr(),
			RcvBuf:       cfg.GetRcvBuf(),
			PollInterval: cfg.GetPollInterval(),
			Stats:        stats,
			Forwarder:    forwarder,
			Router:       tr,
		})
		defer listener.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("listener stopped: %v", err)
				stop()
			}
		}()
	}

	// Tick publishers: connection logging, optional session recording.
	publishers := multiPublisher{newLogPublisher()}
	if *recordPath != "" {
		store, err := recorder.Open(*recordPath)
		if err != nil {
			log.Fatalf("failed to open recording store: %v", err)
		}
		defer store.Close()

		rec, err := recorder.NewSessionRecorder(store, *recordTag)
		if err != nil {
			log.Fatalf("failed to begin recording session: %v", err)
		}
		monitoring.Logf("recording session %s to %s", rec.SessionID(), *recordPath)
		publishers = append(publishers, rec)
	}

	// Consumer tick loop: one cycle per host frame.
	wg.Add(1)
	go func() {
		defer wg.Done()
		interval := time.Second / time.Duration(cfg.GetTickRate())
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tr.Tick(publishers)
			}
		}
	}()

	// Debug HTTP server.
	server := &http.Server{
		Addr:    *listen,
		Handler: api.NewServer(tr, stats).ServeMux(),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("debug server listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("debug server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Print("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("debug server shutdown: %v", err)
	}

	wg.Wait()
}
