package mqtt

import (
	"testing"

	"github.com/thomascantrellsea/companion-module-christie-dhd800/internal/infrastructure/config"
)

func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name  string
		build func(string) string
		want  string
	}{
		{"command", topics.Command, "dhd800/command/projector-main"},
		{"state", topics.State, "dhd800/state/projector-main"},
		{"status", topics.Status, "dhd800/status/projector-main"},
		{"feedback", topics.Feedback, "dhd800/feedback/projector-main"},
		{"schema", topics.Schema, "dhd800/schema/projector-main"},
		{"health", topics.Health, "dhd800/health/projector-main"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build("projector-main"); got != tt.want {
				t.Errorf("topic = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{}
	cfg.Broker.Host = "broker.local"
	cfg.Broker.Port = 1883
	cfg.Broker.ClientID = "dhd800-test"
	cfg.Reconnect.InitialDelay = 1
	cfg.Reconnect.MaxDelay = 60

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("got %d brokers, want 1", len(opts.Servers))
	}
	if got := opts.Servers[0].String(); got != "tcp://broker.local:1883" {
		t.Errorf("broker URL = %q, want tcp://broker.local:1883", got)
	}
	if opts.ClientID != "dhd800-test" {
		t.Errorf("client ID = %q, want dhd800-test", opts.ClientID)
	}
	if !opts.AutoReconnect {
		t.Error("auto-reconnect should be enabled")
	}
}

func TestBuildClientOptionsTLS(t *testing.T) {
	cfg := config.MQTTConfig{}
	cfg.Broker.Host = "broker.local"
	cfg.Broker.Port = 8883
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].Scheme; got != "ssl" {
		t.Errorf("scheme = %q, want ssl", got)
	}
	if opts.TLSConfig == nil {
		t.Fatal("TLS config not set")
	}
	if opts.TLSConfig.MinVersion < tlsMinVersion {
		t.Errorf("TLS min version = %d, want >= %d", opts.TLSConfig.MinVersion, tlsMinVersion)
	}
}
