package application

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuleConfig holds the alert rule thresholds and rolling windows.
type RuleConfig struct {
	HighFatigueThreshold float64 `yaml:"high_fatigue_threshold"`
	ClosureWindowMinutes int     `yaml:"closure_window_minutes"`
	ClosureMinCount      int     `yaml:"closure_min_count"`
	ClosureCriticalCount int     `yaml:"closure_critical_count"`
	YawnWindowMinutes    int     `yaml:"yawn_window_minutes"`
	YawnMinCount         int     `yaml:"yawn_min_count"`
}

// NotifyConfig configures outbound alert notifications.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Template   string `yaml:"template"`
}

// Config is the alerting subsystem configuration.
type Config struct {
	Rules  RuleConfig   `yaml:"rules"`
	Notify NotifyConfig `yaml:"notify"`
}

// DefaultRules returns the production rule thresholds.
func DefaultRules() RuleConfig {
	return RuleConfig{
		HighFatigueThreshold: 0.8,
		ClosureWindowMinutes: 5,
		ClosureMinCount:      3,
		ClosureCriticalCount: 5,
		YawnWindowMinutes:    10,
		YawnMinCount:         5,
	}
}

// LoadConfig loads alerting config from yaml or env.
func LoadConfig() (Config, error) {
	// Env values seed the config; a yaml file named by ALERTING_CONFIG
	// overrides whatever keys it sets.
	cfg := Config{
		Rules: DefaultRules(),
		Notify: NotifyConfig{
			WebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
			Template:   os.Getenv("ALERT_NOTIFY_TEMPLATE"),
		},
	}

	if path := os.Getenv("ALERTING_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := cfg.Rules.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks rule config invariants.
func (c RuleConfig) Validate() error {
	if c.HighFatigueThreshold <= 0 || c.HighFatigueThreshold > 1 {
		return fmt.Errorf("alerting: high fatigue threshold %v out of (0,1]", c.HighFatigueThreshold)
	}
	if c.ClosureWindowMinutes <= 0 || c.YawnWindowMinutes <= 0 {
		return errors.New("alerting: rolling windows must be positive")
	}
	if c.ClosureMinCount <= 0 || c.YawnMinCount <= 0 {
		return errors.New("alerting: rule counts must be positive")
	}
	if c.ClosureCriticalCount < c.ClosureMinCount {
		return errors.New("alerting: critical count below trigger count")
	}
	return nil
}
