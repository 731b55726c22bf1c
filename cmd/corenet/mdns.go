package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/grandcat/zeroconf"
)

// mdnsServiceType is the mDNS service type CoreNet peers advertise
// themselves under and browse for.
const mdnsServiceType = "_corenet._tcp"

// startMDNS registers the local primary via mDNS and returns a cleanup
// function. It is safe to call even when disabled (no-op cleanup).
func startMDNS(ctx context.Context, cfg *appConfig, port int) (func(), error) {
	if !cfg.mdnsEnable {
		return func() {}, nil
	}
	meta := []string{
		"host_id=" + cfg.hostID,
		"host_name=" + cfg.hostName,
	}
	svc, err := zeroconf.Register(cfg.mdnsName, mdnsServiceType, "local.", port, meta, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		svc.Shutdown()
	}()
	return func() { close(done); svc.Shutdown(); time.Sleep(50 * time.Millisecond) }, nil
}

// discoverPeers browses for other CoreNet instances on the local network
// for the given duration and logs every instance it finds.
func discoverPeers(ctx context.Context, timeout time.Duration, logger *slog.Logger) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	go func() {
		for e := range entries {
			addr := ""
			if len(e.AddrIPv4) > 0 {
				addr = e.AddrIPv4[0].String()
			} else if len(e.AddrIPv6) > 0 {
				addr = e.AddrIPv6[0].String()
			}
			logger.Info("discovered_peer", "instance", e.Instance, "addr", addr, "port", e.Port, "text", e.Text)
		}
	}()

	if err := resolver.Browse(browseCtx, mdnsServiceType, "local.", entries); err != nil {
		return fmt.Errorf("mdns browse: %w", err)
	}
	<-browseCtx.Done()
	return nil
}
