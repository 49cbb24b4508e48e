//go:build !pcap
// +build !pcap

package network

import (
	"context"
	"fmt"
)

// ReplayPCAPFile is unavailable without the 'pcap' build tag, which pulls
// in the libpcap cgo dependency.
func ReplayPCAPFile(ctx context.Context, pcapFile string, udpPort int, handler *FrameHandler) error {
	return fmt.Errorf("pcap replay not available: rebuild with -tags pcap")
}
