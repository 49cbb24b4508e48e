//go:build pcap
// +build pcap

package network

import (
	"context"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/meridian-labs/posebridge/internal/monitoring"
)

// ReplayPCAPFile feeds captured sensor traffic through a FrameHandler,
// letting a recorded session exercise the full decode/route path offline.
// Only UDP payloads on udpPort are replayed. Available when building with
// the 'pcap' tag.
func ReplayPCAPFile(ctx context.Context, pcapFile string, udpPort int, handler *FrameHandler) error {
	h, err := pcap.OpenOffline(pcapFile)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", pcapFile, err)
	}
	defer h.Close()

	filter := fmt.Sprintf("udp port %d", udpPort)
	if err := h.SetBPFFilter(filter); err != nil {
		return fmt.Errorf("failed to set BPF filter %q: %w", filter, err)
	}

	source := gopacket.NewPacketSource(h, h.LinkType())
	count := 0

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("pcap replay stopped after %d packets: %v", count, ctx.Err())
			return ctx.Err()
		case packet := <-source.Packets():
			if packet == nil {
				monitoring.Logf("pcap replay complete: %d packets", count)
				return nil
			}

			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok {
				continue
			}

			count++
			handler.HandleDatagram(udp.Payload)
		}
	}
}
