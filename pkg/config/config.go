package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Governor failure policies when the state store is unreachable.
const (
	FailClosed = "fail_closed"
	FailOpen   = "fail_open"
)

// Adjustment curve modes.
const (
	ModeMultiplicative = "multiplicative"
	ModeAdditive       = "additive"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		ScoresTopic  string   `yaml:"scores_topic"`
		AlertsTopic  string   `yaml:"alerts_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		AuditTable       string        `yaml:"audit_table"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Notifier struct {
		Enabled    bool          `yaml:"enabled"`
		WebhookURL string        `yaml:"webhook_url"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"notifier"`
	Confluence ConfluenceConfig `yaml:"confluence"`
	Governor   GovernorConfig   `yaml:"governor"`
}

// ConfluenceConfig holds aggregation and classification thresholds.
// Weights need not sum to 1; the intake renormalizes over the valid subset.
type ConfluenceConfig struct {
	Weights       map[string]float64 `yaml:"weights"`
	BuyThreshold  float64            `yaml:"buy_threshold"`
	SellThreshold float64            `yaml:"sell_threshold"`
	Amplification AdjustmentConfig   `yaml:"amplification"`
	Dampening     AdjustmentConfig   `yaml:"dampening"`
}

// AdjustmentConfig parametrizes one side of the amplify/dampen curve.
type AdjustmentConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	ConsensusThreshold  float64 `yaml:"consensus_threshold"`
	Factor              float64 `yaml:"factor"`
	Mode                string  `yaml:"mode"`
}

// GovernorConfig holds per-signal-type throttling parameters.
type GovernorConfig struct {
	FailurePolicy string                      `yaml:"failure_policy"`
	SignalTypes   map[string]SignalTypeConfig `yaml:"signal_types"`
}

// SignalTypeConfig is the cooldown profile for one signal type.
type SignalTypeConfig struct {
	Cooldown             time.Duration `yaml:"cooldown"`
	ImprovementThreshold float64       `yaml:"improvement_threshold"`
	MinimumScore         float64       `yaml:"minimum_score"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate once at load; the core never re-validates per call.
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SCORES_TOPIC"); v != "" {
		c.Kafka.ScoresTopic = v
	}
	if v := os.Getenv("ALERTS_TOPIC"); v != "" {
		c.Kafka.AlertsTopic = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		c.Notifier.WebhookURL = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Governor.FailurePolicy == "" {
		c.Governor.FailurePolicy = FailClosed
	}
	if c.Confluence.Amplification.Mode == "" {
		c.Confluence.Amplification.Mode = ModeMultiplicative
	}
	if c.Confluence.Dampening.Mode == "" {
		c.Confluence.Dampening.Mode = ModeMultiplicative
	}
	if c.ClickHouse.AuditTable == "" {
		c.ClickHouse.AuditTable = "alert_envelopes"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	if c.Kafka.ScoresTopic == "" {
		return fmt.Errorf("kafka.scores_topic is required")
	}
	if len(c.Confluence.Weights) == 0 {
		return fmt.Errorf("confluence.weights cannot be empty")
	}
	for name, w := range c.Confluence.Weights {
		if w < 0 {
			return fmt.Errorf("confluence.weights.%s must be non-negative, got %v", name, w)
		}
	}
	if c.Confluence.BuyThreshold <= c.Confluence.SellThreshold {
		return fmt.Errorf("confluence.buy_threshold (%v) must be greater than sell_threshold (%v)",
			c.Confluence.BuyThreshold, c.Confluence.SellThreshold)
	}
	if err := validateAdjustment("amplification", c.Confluence.Amplification, true); err != nil {
		return err
	}
	if err := validateAdjustment("dampening", c.Confluence.Dampening, false); err != nil {
		return err
	}
	if c.Governor.FailurePolicy != FailClosed && c.Governor.FailurePolicy != FailOpen {
		return fmt.Errorf("governor.failure_policy must be '%s' or '%s', got '%s'",
			FailClosed, FailOpen, c.Governor.FailurePolicy)
	}
	// Both directions need a profile: a missing one would silently disable
	// throttling for every signal of that type.
	for _, st := range []string{"BUY", "SELL"} {
		if _, ok := c.Governor.SignalTypes[st]; !ok {
			return fmt.Errorf("governor.signal_types.%s is required", st)
		}
	}
	for st, sc := range c.Governor.SignalTypes {
		if st != "BUY" && st != "SELL" {
			return fmt.Errorf("governor.signal_types: unknown signal type '%s'", st)
		}
		if sc.Cooldown <= 0 {
			return fmt.Errorf("governor.signal_types.%s.cooldown must be positive", st)
		}
		if sc.ImprovementThreshold < 0 {
			return fmt.Errorf("governor.signal_types.%s.improvement_threshold must be non-negative", st)
		}
		if sc.MinimumScore < 0 || sc.MinimumScore > 100 {
			return fmt.Errorf("governor.signal_types.%s.minimum_score must be within [0,100]", st)
		}
	}
	if c.Notifier.Enabled && c.Notifier.WebhookURL == "" {
		return fmt.Errorf("notifier.webhook_url is required when notifier is enabled")
	}
	return nil
}

func validateAdjustment(name string, a AdjustmentConfig, amplify bool) error {
	if a.Mode != ModeMultiplicative && a.Mode != ModeAdditive {
		return fmt.Errorf("confluence.%s.mode must be '%s' or '%s', got '%s'",
			name, ModeMultiplicative, ModeAdditive, a.Mode)
	}
	if a.ConfidenceThreshold < 0 || a.ConfidenceThreshold > 1 {
		return fmt.Errorf("confluence.%s.confidence_threshold must be within [0,1]", name)
	}
	if a.ConsensusThreshold < 0 || a.ConsensusThreshold > 1 {
		return fmt.Errorf("confluence.%s.consensus_threshold must be within [0,1]", name)
	}
	if a.Factor < 0 {
		return fmt.Errorf("confluence.%s.factor must be non-negative", name)
	}
	if a.Mode == ModeMultiplicative {
		if amplify && a.Factor != 0 && a.Factor < 1 {
			return fmt.Errorf("confluence.%s.factor must be >= 1 for multiplicative amplification", name)
		}
		if !amplify && a.Factor > 1 {
			return fmt.Errorf("confluence.%s.factor must be <= 1 for multiplicative dampening", name)
		}
	}
	return nil
}

// SignalTypeFor returns the cooldown profile for a signal type, and whether
// one is configured.
func (g *GovernorConfig) SignalTypeFor(st string) (SignalTypeConfig, bool) {
	sc, ok := g.SignalTypes[st]
	return sc, ok
}
