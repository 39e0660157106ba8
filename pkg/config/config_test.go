package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
environment: test
kafka:
  brokers: ["localhost:9092"]
  scores_topic: scores
  alerts_topic: alerts
confluence:
  weights:
    technical: 1
    volume: 1
  buy_threshold: 60
  sell_threshold: 40
  amplification:
    confidence_threshold: 0.7
    consensus_threshold: 0.7
    factor: 1.2
  dampening:
    confidence_threshold: 0.3
    consensus_threshold: 0.3
    factor: 0.8
governor:
  signal_types:
    BUY:
      cooldown: 30m
      improvement_threshold: 3.0
      minimum_score: 60
    SELL:
      cooldown: 30m
      improvement_threshold: 3.0
      minimum_score: 0
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	c, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Governor.FailurePolicy != FailClosed {
		t.Fatalf("expected fail_closed default, got %s", c.Governor.FailurePolicy)
	}
	buy, ok := c.Governor.SignalTypeFor("BUY")
	if !ok {
		t.Fatalf("expected BUY profile")
	}
	if buy.Cooldown != 30*time.Minute {
		t.Fatalf("unexpected cooldown %v", buy.Cooldown)
	}
	if c.Confluence.Amplification.Mode != ModeMultiplicative {
		t.Fatalf("expected multiplicative default, got %s", c.Confluence.Amplification.Mode)
	}
}

func TestValidateThresholdOrdering(t *testing.T) {
	c, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Confluence.BuyThreshold = 40
	c.Confluence.SellThreshold = 60
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for buy <= sell")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative weight", func(c *Config) { c.Confluence.Weights["volume"] = -1 }},
		{"unknown failure policy", func(c *Config) { c.Governor.FailurePolicy = "shrug" }},
		{"zero cooldown", func(c *Config) {
			sc := c.Governor.SignalTypes["BUY"]
			sc.Cooldown = 0
			c.Governor.SignalTypes["BUY"] = sc
		}},
		{"minimum score out of range", func(c *Config) {
			sc := c.Governor.SignalTypes["SELL"]
			sc.MinimumScore = 150
			c.Governor.SignalTypes["SELL"] = sc
		}},
		{"dampening factor above one", func(c *Config) { c.Confluence.Dampening.Factor = 1.5 }},
		{"amplification factor below one", func(c *Config) { c.Confluence.Amplification.Factor = 0.5 }},
		{"notifier without url", func(c *Config) { c.Notifier.Enabled = true }},
		{"missing SELL profile", func(c *Config) { delete(c.Governor.SignalTypes, "SELL") }},
		{"missing BUY profile", func(c *Config) { delete(c.Governor.SignalTypes, "BUY") }},
		{"no governor profiles", func(c *Config) { c.Governor.SignalTypes = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(writeTemp(t, validYAML))
			if err != nil {
				t.Fatalf("unexpected load error: %v", err)
			}
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("ALERTS_TOPIC", "alerts-override")

	c, err := LoadWithEnv(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Kafka.Brokers) != 2 {
		t.Fatalf("expected 2 brokers, got %v", c.Kafka.Brokers)
	}
	if c.Kafka.AlertsTopic != "alerts-override" {
		t.Fatalf("expected override, got %s", c.Kafka.AlertsTopic)
	}
}
