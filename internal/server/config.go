package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mejooo/fb_messenger/pkg/messenger"
)

type TLSCfg struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}
type ServerCfg struct {
	Listen         string `yaml:"listen"`
	WebhookPath    string `yaml:"webhook_path"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms"`
	MaxBodyBytes   int    `yaml:"max_body_bytes"`
	TLS            TLSCfg `yaml:"tls"`
}
type LoggingCfg struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}
type MetricsCfg struct {
	PrometheusListen string `yaml:"prometheus_listen"`
}
type TracingCfg struct {
	ServiceName  string  `yaml:"service_name"`
	SampleRatio  float64 `yaml:"sample_ratio"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
}
type GraphCfg struct {
	BaseURL       string   `yaml:"base_url"`
	Version       string   `yaml:"version"`
	TimeoutMS     int      `yaml:"timeout_ms"`
	ProfileFields []string `yaml:"profile_fields"`
}
// MessengerCfg names the env vars holding the secrets; the secrets themselves
// never live in YAML.
type MessengerCfg struct {
	PageTokenEnv   string   `yaml:"page_token_env"`
	VerifyTokenEnv string   `yaml:"verify_token_env"`
	Graph          GraphCfg `yaml:"graph"`
}
type RootConfig struct {
	Server    ServerCfg    `yaml:"server"`
	Logging   LoggingCfg   `yaml:"logging"`
	Metrics   MetricsCfg   `yaml:"metrics"`
	Tracing   TracingCfg   `yaml:"tracing"`
	Messenger MessengerCfg `yaml:"messenger"`
}

func LoadConfig(path string) (RootConfig, error) {
	var root RootConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return root, err
	}
	if err := yaml.Unmarshal(b, &root); err != nil {
		return root, fmt.Errorf("parse %s: %w", path, err)
	}
	root.applyDefaults()
	return root, nil
}

func (c *RootConfig) applyDefaults() {
	if c.Server.Listen == "" { c.Server.Listen = ":8080" }
	if c.Server.WebhookPath == "" { c.Server.WebhookPath = "/webhook" }
	if c.Server.ReadTimeoutMS <= 0 { c.Server.ReadTimeoutMS = 5000 }
	if c.Server.WriteTimeoutMS <= 0 { c.Server.WriteTimeoutMS = 5000 }
	if c.Server.MaxBodyBytes <= 0 { c.Server.MaxBodyBytes = 1 << 20 }
	if c.Logging.Level == "" { c.Logging.Level = "info" }
	if c.Tracing.ServiceName == "" { c.Tracing.ServiceName = "fb-messenger" }
	if c.Messenger.PageTokenEnv == "" { c.Messenger.PageTokenEnv = "FB_PAGE_TOKEN" }
	if c.Messenger.VerifyTokenEnv == "" { c.Messenger.VerifyTokenEnv = "FB_VERIFY_TOKEN" }
}

// GraphConfig converts the YAML section for messenger.NewGraphClient. Zero
// values fall back to the client defaults.
func (c MessengerCfg) GraphConfig() messenger.GraphConfig {
	return messenger.GraphConfig{
		BaseURL:       c.Graph.BaseURL,
		Version:       c.Graph.Version,
		Timeout:       time.Duration(c.Graph.TimeoutMS) * time.Millisecond,
		ProfileFields: c.Graph.ProfileFields,
	}
}
