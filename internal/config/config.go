package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type IMAP struct {
	Server   string        `yaml:"server"`
	Port     int           `yaml:"port"` // default 993 (implicit TLS)
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Mailbox  string        `yaml:"mailbox"`
	Timeout  time.Duration `yaml:"timeout"`
}

type SMTP struct {
	Server    string `yaml:"server"`
	Port      int    `yaml:"port"` // default 587 (STARTTLS)
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	From      string `yaml:"from"` // defaults to username
	Recipient string `yaml:"recipient"`
}

type Lookup struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type Metrics struct {
	PushgatewayURL string        `yaml:"pushgateway_url"` // empty = log snapshot instead
	PushTimeout    time.Duration `yaml:"push_timeout"`
}

type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // empty = stdout only
}

type Config struct {
	StatePath string  `yaml:"state_path"`
	IMAP      IMAP    `yaml:"imap"`
	SMTP      SMTP    `yaml:"smtp"`
	Lookup    Lookup  `yaml:"lookup"`
	Metrics   Metrics `yaml:"metrics"`
	Logging   Logging `yaml:"logging"`
}

// Load reads the YAML config, layers environment overrides for credentials
// on top, applies defaults and validates. The result is built once at
// process start and handed to each collaborator constructor; nothing else
// in the program reads the environment.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	c.applyEnv()
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	overlay(&c.IMAP.Username, "HYTRACK_IMAP_USERNAME")
	overlay(&c.IMAP.Password, "HYTRACK_IMAP_PASSWORD")
	overlay(&c.SMTP.Username, "HYTRACK_SMTP_USERNAME")
	overlay(&c.SMTP.Password, "HYTRACK_SMTP_PASSWORD")
	overlay(&c.SMTP.Recipient, "HYTRACK_RECIPIENT")
}

func overlay(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.StatePath == "" {
		c.StatePath = "active_ids.json"
	}
	if c.IMAP.Port == 0 {
		c.IMAP.Port = 993
	}
	if c.IMAP.Mailbox == "" {
		c.IMAP.Mailbox = "INBOX"
	}
	if c.IMAP.Timeout == 0 {
		c.IMAP.Timeout = 30 * time.Second
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}
	if c.Lookup.BaseURL == "" {
		c.Lookup.BaseURL = "https://www.bluedart.com"
	}
	if c.Lookup.Timeout == 0 {
		c.Lookup.Timeout = 10 * time.Second
	}
	if c.Lookup.UserAgent == "" {
		c.Lookup.UserAgent = "Mozilla/5.0"
	}
	if c.Metrics.PushTimeout == 0 {
		c.Metrics.PushTimeout = 5 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.HasSMTP() && c.SMTP.Recipient == "" {
		return errors.New("smtp.recipient is required when smtp.server is set")
	}
	if c.HasIMAP() && c.IMAP.Username == "" {
		return errors.New("imap.username is required when imap.server is set")
	}
	return nil
}

// HasIMAP reports whether inbound discovery is configured. Without it the
// tracker still polls the waybills it already knows.
func (c *Config) HasIMAP() bool { return c.IMAP.Server != "" }

// HasSMTP reports whether outbound notification is configured.
func (c *Config) HasSMTP() bool { return c.SMTP.Server != "" }
