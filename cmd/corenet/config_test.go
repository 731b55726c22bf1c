package main

import (
	"testing"
	"time"
)

func validConfig() *appConfig {
	return &appConfig{
		subcommand:   "primary",
		listenAddr:   ":24800",
		width:        1920,
		height:       1080,
		logFormat:    "text",
		logLevel:     "info",
		handshakeTO:  time.Second,
		heartbeatPer: time.Second,
		connectTO:    time.Second,
	}
}

func TestConfigValidate_OK(t *testing.T) {
	if err := validConfig().validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*appConfig)
	}{
		{"unknownSubcommand", func(c *appConfig) { c.subcommand = "bogus" }},
		{"badLogFormat", func(c *appConfig) { c.logFormat = "xml" }},
		{"badLogLevel", func(c *appConfig) { c.logLevel = "verbose" }},
		{"secondaryNoConnect", func(c *appConfig) { c.subcommand = "secondary" }},
		{"negativeMaxClients", func(c *appConfig) { c.maxClients = -1 }},
		{"zeroHandshakeTO", func(c *appConfig) { c.handshakeTO = 0 }},
		{"zeroHeartbeatPeriod", func(c *appConfig) { c.heartbeatPer = 0 }},
		{"zeroConnectTO", func(c *appConfig) { c.connectTO = 0 }},
		{"zeroWidth", func(c *appConfig) { c.width = 0 }},
		{"zeroHeight", func(c *appConfig) { c.height = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mod(c)
			if err := c.validate(); err == nil {
				t.Fatalf("%s: expected error", tc.name)
			}
		})
	}
}

func TestConfigValidate_SecondaryWithConnectOK(t *testing.T) {
	c := validConfig()
	c.subcommand = "secondary"
	c.connectAddr = "10.0.0.5"
	if err := c.validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestConfigValidate_SecondaryWithMDNSOK(t *testing.T) {
	c := validConfig()
	c.subcommand = "secondary"
	c.mdnsEnable = true
	if err := c.validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestParseFlags_DefaultsAndSubcommand(t *testing.T) {
	cfg, err := parseFlags([]string{"primary", "--width", "2560", "--height", "1440"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.subcommand != "primary" {
		t.Fatalf("expected subcommand primary, got %s", cfg.subcommand)
	}
	if cfg.width != 2560 || cfg.height != 1440 {
		t.Fatalf("expected overridden dimensions, got %dx%d", cfg.width, cfg.height)
	}
	if cfg.hostID == "" {
		t.Fatalf("expected hostID to default to hostname")
	}
}

func TestParseFlags_NoArgsErrors(t *testing.T) {
	if _, err := parseFlags(nil); err == nil {
		t.Fatalf("expected error with no arguments")
	}
}

func TestApplyEnvOverrides_SkipsExplicitlySetFlags(t *testing.T) {
	t.Setenv("CORENET_LISTEN", ":9999")
	c := defaultConfig()
	c.listenAddr = ":1234"
	applyEnvOverrides(c, map[string]struct{}{"listen": {}})
	if c.listenAddr != ":1234" {
		t.Fatalf("expected explicit flag to win over env, got %s", c.listenAddr)
	}
}

func TestApplyEnvOverrides_AppliesWhenFlagUnset(t *testing.T) {
	t.Setenv("CORENET_LISTEN", ":9999")
	c := defaultConfig()
	applyEnvOverrides(c, map[string]struct{}{})
	if c.listenAddr != ":9999" {
		t.Fatalf("expected env override, got %s", c.listenAddr)
	}
}
