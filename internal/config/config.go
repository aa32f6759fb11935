// Package config loads plugraph settings from a config file and PLUGRAPH_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete plugraph configuration.
//
// Values come from, in increasing precedence, built-in defaults, the config
// file and environment variables prefixed with PLUGRAPH_ (for example
// PLUGRAPH_SERVER_ADDR overrides server.addr).
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Relay      RelayConfig      `mapstructure:"relay"`
	Federation FederationConfig `mapstructure:"federation"`
	Output     OutputConfig     `mapstructure:"output"`
	Server     ServerConfig     `mapstructure:"server"`
	Otel       OtelConfig       `mapstructure:"otel"`
}

// LogConfig selects the zap configuration.
type LogConfig struct {
	// Env is "development", "test" or "production".
	Env   string `mapstructure:"env"`
	Level string `mapstructure:"level"`
}

// RelayConfig mirrors the relay plugin options.
type RelayConfig struct {
	// ClientMutationID is "omit", "optional" or "required".
	ClientMutationID string `mapstructure:"client_mutation_id"`
	// CursorType is "String" or "ID".
	CursorType      string `mapstructure:"cursor_type"`
	NodeQueryFields bool   `mapstructure:"node_query_fields"`
}

// FederationConfig controls subgraph rendering.
type FederationConfig struct {
	LinkURL           string   `mapstructure:"link_url"`
	ComposeDirectives []string `mapstructure:"compose_directives"`
}

// OutputConfig names the files print-schema and print-subgraph write to.
// Empty paths mean stdout.
type OutputConfig struct {
	Schema   string `mapstructure:"schema"`
	SubGraph string `mapstructure:"subgraph"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Pretty          bool          `mapstructure:"pretty"`
	CORS            bool          `mapstructure:"cors"`
}

// OtelConfig configures trace export. An empty endpoint disables tracing.
type OtelConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// Load reads configuration from path, or from plugraph.yaml in the working
// directory when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("plugraph")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PLUGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.env", "production")
	v.SetDefault("log.level", "info")

	v.SetDefault("relay.client_mutation_id", "required")
	v.SetDefault("relay.cursor_type", "String")
	v.SetDefault("relay.node_query_fields", true)

	v.SetDefault("federation.link_url", "https://specs.apollo.dev/federation/v2.3")
	v.SetDefault("federation.compose_directives", []string{})

	v.SetDefault("output.schema", "")
	v.SetDefault("output.subgraph", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.pretty", false)
	v.SetDefault("server.cors", false)

	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.service_name", "plugraph")
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"development", "test", "production"}, c.Log.Env) {
		return fmt.Errorf("invalid log.env %q", c.Log.Env)
	}
	if !slices.Contains([]string{"omit", "optional", "required"}, c.Relay.ClientMutationID) {
		return fmt.Errorf("invalid relay.client_mutation_id %q", c.Relay.ClientMutationID)
	}
	if c.Relay.CursorType != "String" && c.Relay.CursorType != "ID" {
		return fmt.Errorf("invalid relay.cursor_type %q", c.Relay.CursorType)
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must not be negative")
	}
	return nil
}
