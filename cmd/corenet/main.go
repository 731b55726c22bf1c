package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/kstaniek/go-corenet/internal/control"
	"github.com/kstaniek/go-corenet/internal/input"
	"github.com/kstaniek/go-corenet/internal/metrics"
	"github.com/kstaniek/go-corenet/internal/netclient"
	"github.com/kstaniek/go-corenet/internal/netserver"
	"github.com/kstaniek/go-corenet/internal/protocol"
	"github.com/kstaniek/go-corenet/internal/screen"
)

// version/commit/date are overridden at link time via -ldflags; corenet
// carries no embedded version control metadata beyond that.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	l := setupLogger(cfg.logFormat, cfg.logLevel)
	metrics.InitBuildInfo(version, commit, date)

	var runErr error
	switch cfg.subcommand {
	case "primary":
		runErr = runPrimary(cfg, l)
	case "secondary":
		runErr = runSecondary(cfg, l)
	case "discover":
		runErr = runDiscover(cfg, l)
	case "info":
		runErr = runInfo(cfg)
	case "config":
		runErr = runConfig(cfg)
	}
	if runErr != nil {
		l.Error("exit_error", "error", runErr)
		os.Exit(1)
	}
}

func localScreenInfo(cfg *appConfig) protocol.ScreenInfo {
	return protocol.NewScreenInfo(cfg.hostID, cfg.hostName, uint32(cfg.width), uint32(cfg.height))
}

func runInfo(cfg *appConfig) error {
	info := localScreenInfo(cfg)
	fmt.Printf("host_id=%s host_name=%s width=%d height=%d\n", info.HostID, info.HostName, info.Width, info.Height)
	return nil
}

func runConfig(cfg *appConfig) error {
	fmt.Printf("subcommand=%s\n", cfg.subcommand)
	fmt.Printf("listen=%s\n", cfg.listenAddr)
	fmt.Printf("connect=%s\n", cfg.connectAddr)
	fmt.Printf("host_id=%s\n", cfg.hostID)
	fmt.Printf("host_name=%s\n", cfg.hostName)
	fmt.Printf("width=%d height=%d\n", cfg.width, cfg.height)
	fmt.Printf("log_format=%s log_level=%s\n", cfg.logFormat, cfg.logLevel)
	fmt.Printf("metrics_addr=%s\n", cfg.metricsAddr)
	fmt.Printf("max_clients=%d\n", cfg.maxClients)
	fmt.Printf("handshake_timeout=%s heartbeat_period=%s connect_timeout=%s\n", cfg.handshakeTO, cfg.heartbeatPer, cfg.connectTO)
	fmt.Printf("mdns_enable=%t mdns_name=%s\n", cfg.mdnsEnable, cfg.mdnsName)
	return nil
}

func runDiscover(cfg *appConfig, l *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.Info("discover_starting", "timeout", "5s")
	return discoverPeers(ctx, 5*time.Second, l)
}

func runPrimary(cfg *appConfig, l *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := localScreenInfo(cfg)
	srv := netserver.New(local,
		netserver.WithListenAddr(cfg.listenAddr),
		netserver.WithHandshakeTimeout(cfg.handshakeTO),
		netserver.WithMaxClients(cfg.maxClients),
		netserver.WithLogger(l),
	)

	go func() {
		if err := srv.Start(ctx); err != nil {
			l.Error("tcp_server_error", "error", err)
			cancel()
		}
	}()

	select {
	case <-srv.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	capture := input.NewPlatformCapture()
	injector := input.NewPlatformInjector()
	if err := capture.Init(); err != nil {
		return fmt.Errorf("capture init: %w", err)
	}
	defer capture.Shutdown()
	if err := injector.Init(); err != nil {
		return fmt.Errorf("injector init: %w", err)
	}
	defer injector.Shutdown()

	events, err := capture.Start(ctx)
	if err != nil {
		return fmt.Errorf("capture start: %w", err)
	}

	layout := screen.NewBuilder().LocalHost(local).Build()
	ctrl := control.New(capture, injector, srv, layout, local.Width, local.Height)

	go startMDNSForServer(ctx, cfg, srv, l)

	metrics.SetReadinessFunc(func() bool {
		select {
		case <-srv.Ready():
		default:
			return false
		}
		return ctx.Err() == nil
	})
	if cfg.metricsAddr != "" {
		metricsSrv := metrics.StartHTTP(cfg.metricsAddr)
		defer metricsSrv.Shutdown(context.Background())
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			ctrl.HandleCaptureEvent(ev)
		case ev, ok := <-srv.Events():
			if !ok {
				continue
			}
			ctrl.HandleServerEvent(ev)
		case s := <-sigCh:
			l.Info("shutdown_signal", "signal", s.String())
			cancel()
			_ = capture.Stop()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func runSecondary(cfg *appConfig, l *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := localScreenInfo(cfg)
	cli := netclient.New(local,
		netclient.WithConnectTimeout(cfg.connectTO),
		netclient.WithHeartbeatPeriod(cfg.heartbeatPer),
		netclient.WithLogger(l),
	)

	connectAddr := cfg.connectAddr
	if connectAddr == "" {
		return fmt.Errorf("secondary requires --connect (mDNS-only discovery is not auto-wired)")
	}
	if !strings.Contains(connectAddr, ":") {
		connectAddr = net.JoinHostPort(connectAddr, strconv.Itoa(protocol.DefaultPort))
	}

	connectCtx, connectCancel := context.WithTimeout(ctx, cfg.connectTO)
	err := cli.Connect(connectCtx, connectAddr)
	connectCancel()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer cli.Disconnect()

	injector := input.NewPlatformInjector()
	if err := injector.Init(); err != nil {
		return fmt.Errorf("injector init: %w", err)
	}
	defer injector.Shutdown()

	follower := control.NewFollower(injector, cli, local.Width, local.Height)
	defer follower.Close()

	if cfg.metricsAddr != "" {
		metricsSrv := metrics.StartHTTP(cfg.metricsAddr)
		defer metricsSrv.Shutdown(context.Background())
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case ev, ok := <-cli.Events():
			if !ok {
				return nil
			}
			follower.HandleClientEvent(ev)
		case s := <-sigCh:
			l.Info("shutdown_signal", "signal", s.String())
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// startMDNSForServer waits for the server to bind before registering the
// mDNS service, mirroring the listen-then-advertise sequencing a bound
// ephemeral port requires.
func startMDNSForServer(ctx context.Context, cfg *appConfig, srv *netserver.Server, l *slog.Logger) {
	if !cfg.mdnsEnable {
		return
	}
	select {
	case <-srv.Ready():
	case <-ctx.Done():
		return
	}
	port := 0
	if _, p, err := net.SplitHostPort(srv.Addr()); err == nil {
		if pn, perr := strconv.Atoi(p); perr == nil {
			port = pn
		}
	}
	cleanup, err := startMDNS(ctx, cfg, port)
	if err != nil {
		l.Warn("mdns_start_failed", "error", err)
		return
	}
	l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName, "port", port)
	go func() { <-ctx.Done(); cleanup() }()
}
