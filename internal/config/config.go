package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models docketline.yml.
type Config struct {
	Court struct {
		Name string `yaml:"name"`
	} `yaml:"court"`
	Scheduling struct {
		Slots       []string `yaml:"slots"`
		SkipWeekday string   `yaml:"skip_weekday"`
		MaxBatch    int      `yaml:"max_batch"`
	} `yaml:"scheduling"`
	ADR struct {
		EligibleTypes     []string           `yaml:"eligible_types"`
		ClaimThreshold    float64            `yaml:"claim_threshold"`
		SuccessRates      map[string]float64 `yaml:"success_rates"`
		CourtTimelineDays map[string]int     `yaml:"court_timeline_days"`
		ADRTimelineDays   map[string]int     `yaml:"adr_timeline_days"`
	} `yaml:"adr"`
	Prediction struct {
		ResolutionBaselineDays map[string]int `yaml:"resolution_baseline_days"`
		DefaultBaselineDays    int            `yaml:"default_baseline_days"`
	} `yaml:"prediction"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Enabled        *bool    `yaml:"enabled,omitempty"`
	Events         []string `yaml:"events,omitempty"`
	Secret         string   `yaml:"secret,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.Scheduling.Slots) == 0 {
		return fmt.Errorf("config.scheduling.slots is required")
	}
	for i, s := range c.Scheduling.Slots {
		if s == "" {
			return fmt.Errorf("config.scheduling.slots[%d] is empty", i)
		}
	}
	if c.Scheduling.MaxBatch <= 0 {
		return fmt.Errorf("config.scheduling.max_batch must be positive")
	}
	if c.Scheduling.SkipWeekday != "" {
		if _, err := ParseWeekday(c.Scheduling.SkipWeekday); err != nil {
			return err
		}
	}
	if len(c.ADR.EligibleTypes) == 0 {
		return fmt.Errorf("config.adr.eligible_types is required")
	}
	if c.ADR.ClaimThreshold <= 0 {
		return fmt.Errorf("config.adr.claim_threshold must be positive")
	}
	for track, days := range c.ADR.ADRTimelineDays {
		if days <= 0 {
			return fmt.Errorf("config.adr.adr_timeline_days.%s must be positive", track)
		}
	}
	for caseType, days := range c.ADR.CourtTimelineDays {
		if days <= 0 {
			return fmt.Errorf("config.adr.court_timeline_days.%s must be positive", caseType)
		}
	}
	for caseType, rate := range c.ADR.SuccessRates {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("config.adr.success_rates.%s must be in [0,1]", caseType)
		}
	}
	if c.Prediction.DefaultBaselineDays <= 0 {
		return fmt.Errorf("config.prediction.default_baseline_days must be positive")
	}
	return nil
}

// SkipWeekday returns the configured non-business weekday, Sunday by default.
func (c *Config) SkipWeekday() time.Weekday {
	if c.Scheduling.SkipWeekday == "" {
		return time.Sunday
	}
	d, err := ParseWeekday(c.Scheduling.SkipWeekday)
	if err != nil {
		return time.Sunday
	}
	return d
}

// ParseWeekday maps an English weekday name to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == name {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("config.scheduling.skip_weekday: unknown weekday %q", name)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "docketline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(courtName string) string {
	return fmt.Sprintf(defaultTemplate, courtName)
}

// Default returns the default Config struct for a court.
func Default(courtName string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, courtName))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `court:
  name: %s

scheduling:
  slots:
    - "10:00 AM"
    - "11:00 AM"
    - "12:00 PM"
    - "02:00 PM"
    - "03:00 PM"
    - "04:00 PM"
  skip_weekday: Sunday
  max_batch: 50

adr:
  eligible_types:
    - Civil
    - Family
    - Property
    - Contract
    - Consumer
    - Motor Accident
  claim_threshold: 500000
  success_rates:
    Civil: 0.72
    Property: 0.68
    Contract: 0.75
    Family: 0.65
    Consumer: 0.81
    Motor Accident: 0.85
  court_timeline_days:
    Civil: 730
    Property: 1095
    Contract: 545
    Family: 545
    Consumer: 365
    Motor Accident: 455
  adr_timeline_days:
    mediation: 45
    arbitration: 90
    lok_adalat: 30
    family_court_mediation: 60

prediction:
  resolution_baseline_days:
    Criminal: 730
    Civil: 365
    Family: 365
    Property: 545
    Bail: 30
  default_baseline_days: 365
`
