package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kstaniek/go-corenet/internal/protocol"
)

type appConfig struct {
	subcommand string

	listenAddr   string
	connectAddr  string
	hostID       string
	hostName     string
	width        uint
	height       uint
	logFormat    string
	logLevel     string
	metricsAddr  string
	maxClients   int
	handshakeTO  time.Duration
	heartbeatPer time.Duration
	connectTO    time.Duration
	mdnsEnable   bool
	mdnsName     string
}

func defaultConfig() *appConfig {
	return &appConfig{
		listenAddr:   fmt.Sprintf(":%d", protocol.DefaultPort),
		width:        1920,
		height:       1080,
		logFormat:    "text",
		logLevel:     "info",
		handshakeTO:  3 * time.Second,
		heartbeatPer: 1 * time.Second,
		connectTO:    5 * time.Second,
	}
}

// parseFlags parses the subcommand and its flags. The subcommand is
// consumed from os.Args[1] the way the original CLI's subcommand-first
// shape works: corenet <primary|secondary|discover|info|config> [flags].
func parseFlags(args []string) (*appConfig, error) {
	if len(args) == 0 {
		return nil, errors.New("usage: corenet <primary|secondary|discover|info|config> [flags]")
	}
	cfg := defaultConfig()
	cfg.subcommand = args[0]

	fs := flag.NewFlagSet(cfg.subcommand, flag.ContinueOnError)
	listen := fs.String("listen", cfg.listenAddr, "TCP listen address (primary)")
	connect := fs.String("connect", "", "Primary address or hostname to connect to (secondary)")
	hostID := fs.String("host-id", "", "Stable identifier for this host (default: hostname)")
	hostName := fs.String("host-name", "", "Display name for this host (default: host-id)")
	width := fs.Uint("width", cfg.width, "Local screen width in pixels")
	height := fs.Uint("height", cfg.height, "Local screen height in pixels")
	logFormat := fs.String("log-format", cfg.logFormat, "Log format: text|json")
	logLevel := fs.String("log-level", cfg.logLevel, "Log level: debug|info|warn|error")
	metricsAddr := fs.String("metrics-addr", "", "Metrics HTTP listen address (e.g. :9100); empty disables")
	maxClients := fs.Int("max-clients", 0, "Maximum simultaneous peers (primary, 0 = unlimited)")
	handshakeTO := fs.Duration("handshake-timeout", cfg.handshakeTO, "Handshake timeout")
	heartbeatPer := fs.Duration("heartbeat-period", cfg.heartbeatPer, "Heartbeat period (secondary)")
	connectTO := fs.Duration("connect-timeout", cfg.connectTO, "Connect timeout (secondary)")
	mdnsEnable := fs.Bool("mdns-enable", false, "Advertise/browse via mDNS")
	mdnsName := fs.String("mdns-name", "", "mDNS instance name (default corenet-<host-id>)")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	setFlags := map[string]struct{}{}
	fs.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.listenAddr = *listen
	cfg.connectAddr = *connect
	cfg.hostID = *hostID
	cfg.hostName = *hostName
	cfg.width = *width
	cfg.height = *height
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.maxClients = *maxClients
	cfg.handshakeTO = *handshakeTO
	cfg.heartbeatPer = *heartbeatPer
	cfg.connectTO = *connectTO
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	applyEnvOverrides(cfg, setFlags)

	if cfg.hostID == "" {
		cfg.hostID, _ = os.Hostname()
	}
	if cfg.hostName == "" {
		cfg.hostName = cfg.hostID
	}
	if cfg.mdnsName == "" {
		cfg.mdnsName = "corenet-" + cfg.hostID
	}

	return cfg, cfg.validate()
}

func (c *appConfig) validate() error {
	switch c.subcommand {
	case "primary", "secondary", "discover", "info", "config":
	default:
		return fmt.Errorf("unknown subcommand %q", c.subcommand)
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.subcommand == "secondary" && c.connectAddr == "" && !c.mdnsEnable {
		return errors.New("secondary requires --connect or --mdns-enable")
	}
	if c.maxClients < 0 {
		return errors.New("max-clients must be >= 0")
	}
	if c.handshakeTO <= 0 || c.heartbeatPer <= 0 || c.connectTO <= 0 {
		return errors.New("timeouts and heartbeat period must be > 0")
	}
	if c.width == 0 || c.height == 0 {
		return errors.New("width and height must be > 0")
	}
	return nil
}

// applyEnvOverrides maps CORENET_* environment variables onto cfg, for
// every flag the caller did not explicitly set (flag wins over env, env
// wins over default).
func applyEnvOverrides(c *appConfig, set map[string]struct{}) {
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["listen"]; !ok {
		if v, ok := get("CORENET_LISTEN"); ok && v != "" {
			c.listenAddr = v
		}
	}
	if _, ok := set["connect"]; !ok {
		if v, ok := get("CORENET_CONNECT"); ok && v != "" {
			c.connectAddr = v
		}
	}
	if _, ok := set["host-id"]; !ok {
		if v, ok := get("CORENET_HOST_ID"); ok && v != "" {
			c.hostID = v
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("CORENET_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("CORENET_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("CORENET_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["max-clients"]; !ok {
		if v, ok := get("CORENET_MAX_CLIENTS"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.maxClients = n
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("CORENET_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
}
