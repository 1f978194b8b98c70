package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models hireline.yml.
type Config struct {
	Org struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"org"`
	Scheduling struct {
		DefaultDurationMinutes int `yaml:"default_duration_minutes"`
	} `yaml:"scheduling"`
	Templates map[string][]StageTemplate `yaml:"templates"`
	Webhooks  []WebhookConfig            `yaml:"webhooks"`
}

// StageTemplate is one entry in a named stage-chain template. Templates are
// a convenience for the CLI and API; the interviewer is still assigned per
// candidate when the chain is materialized.
type StageTemplate struct {
	StageName     string `yaml:"stage_name"`
	InterviewerID string `yaml:"interviewer_id,omitempty"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret"`
	Events         []string `yaml:"events"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with hl config init", path)
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
	if c.Org.ID == "" {
		return fmt.Errorf("config.org.id is required")
	}
	if c.Scheduling.DefaultDurationMinutes < 0 {
		return fmt.Errorf("config.scheduling.default_duration_minutes must not be negative")
	}
	for name, chain := range c.Templates {
		if name == "" {
			return fmt.Errorf("config.templates contains empty template name")
		}
		if len(chain) == 0 {
			return fmt.Errorf("template %s has no stages", name)
		}
		for i, ref := range chain {
			if ref.StageName == "" {
				return fmt.Errorf("template %s stage %d has empty stage_name", name, i)
			}
		}
	}
	for i, wh := range c.Webhooks {
		if wh.URL == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
		if wh.TimeoutSeconds < 0 {
			return fmt.Errorf("webhook %d has negative timeout_seconds", i)
		}
		for _, evt := range wh.Events {
			if evt == "" {
				return fmt.Errorf("webhook %d has empty event filter", i)
			}
		}
	}
	return nil
}

// DefaultDuration returns the configured interview duration in minutes,
// falling back to 30.
func (c *Config) DefaultDuration() int {
	if c != nil && c.Scheduling.DefaultDurationMinutes > 0 {
		return c.Scheduling.DefaultDurationMinutes
	}
	return 30
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "hireline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(orgID string) string {
	return fmt.Sprintf(defaultTemplate, orgID)
}

// Default returns the default Config struct for an org.
func Default(orgID string) *Config {
	var cfg Config
	cfg.Org.ID = orgID
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, orgID))).Decode(&cfg)
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

const defaultTemplate = `org:
  id: %s
  name: ""

scheduling:
  default_duration_minutes: 30

templates:
  engineering:
    - stage_name: "HR Screen"
    - stage_name: "Technical Interview"
    - stage_name: "System Design"
    - stage_name: "Final Interview"
  general:
    - stage_name: "HR Screen"
    - stage_name: "Hiring Manager Interview"

webhooks: []
`
