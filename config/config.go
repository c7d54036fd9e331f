// Package config holds the settings of the relay binary. Settings come from
// defaults, an optional YAML file and command line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/anthdm/relay/log"
	"github.com/anthdm/relay/relay"
	"github.com/anthdm/relay/tracing"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr     string   `yaml:"listen_addr"`
	MetricsAddr    string   `yaml:"metrics_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// MaxBodyBytes limits the size of a delivered payload. Zero means no limit.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	Log     LogConfig     `yaml:"log"`
	Relay   RelayConfig   `yaml:"relay"`
	Tracing TracingConfig `yaml:"tracing"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// TracingConfig mirrors tracing.Config. An empty endpoint disables tracing.
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// RelayConfig mirrors relay.Config. Durations are written like "30s".
type RelayConfig struct {
	InboxSize      int           `yaml:"inbox_size"`
	FanoutLimit    int           `yaml:"fanout_limit"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	PongWait       time.Duration `yaml:"pong_wait"`
	WriteWait      time.Duration `yaml:"write_wait"`
}

func Default() Config {
	rc := relay.DefaultConfig()
	return Config{
		ListenAddr:  ":3000",
		MetricsAddr: ":9090",
		Log: LogConfig{
			Level: "info",
		},
		Relay: RelayConfig{
			InboxSize:      rc.InboxSize,
			FanoutLimit:    rc.FanoutLimit,
			RequestTimeout: rc.RequestTimeout,
			PingInterval:   rc.PingInterval,
			PongWait:       rc.PongWait,
			WriteWait:      rc.WriteWait,
		},
		Tracing: TracingConfig{
			Insecure:    true,
			ServiceName: "relay",
			SampleRatio: 1,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr must not be empty"))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("max_body_bytes must not be negative, got %d", c.MaxBodyBytes))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if err := c.RelayConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.TracingConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c Config) LogLevel() log.Level {
	level, _ := log.ParseLevel(c.Log.Level)
	return level
}

// RelayConfig converts the relay section. Middleware is left to the caller.
func (c Config) RelayConfig() relay.Config {
	return relay.Config{
		InboxSize:      c.Relay.InboxSize,
		FanoutLimit:    c.Relay.FanoutLimit,
		RequestTimeout: c.Relay.RequestTimeout,
		PingInterval:   c.Relay.PingInterval,
		PongWait:       c.Relay.PongWait,
		WriteWait:      c.Relay.WriteWait,
	}
}

func (c Config) TracingConfig() tracing.Config {
	return tracing.Config{
		Endpoint:    c.Tracing.Endpoint,
		Insecure:    c.Tracing.Insecure,
		ServiceName: c.Tracing.ServiceName,
		SampleRatio: c.Tracing.SampleRatio,
	}
}
