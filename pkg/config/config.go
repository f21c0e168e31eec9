// Package config loads a Runner's bind address and tunable exchange knobs
// from a YAML file, for embedding applications that prefer file-based
// configuration over constructing prodigy.RunnerConfig by hand in code.
// The tag style (lowerCamelCase yaml keys on exported struct fields)
// follows the convention used throughout the Chartly connector configs.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/backkem/prodigy/pkg/dispatch"
	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a Runner configuration file.
type File struct {
	// BindAddr is the local address the Runner's transport binds to, e.g.
	// ":5540" for UDP.
	BindAddr string `yaml:"bindAddr"`

	// Exchange holds the tunable knobs from spec §6.
	Exchange ExchangeConfig `yaml:"exchange"`
}

// ExchangeConfig is the YAML-friendly mirror of dispatch.ExchangeOptions.
type ExchangeConfig struct {
	TimeoutMs             int64 `yaml:"timeoutMs"`
	RetransmitTimeoutMs   int64 `yaml:"retransmitTimeoutMs"`
	FlowControlIntervalMs int64 `yaml:"flowControlIntervalMs"`
	WindowSizeBytes       int   `yaml:"windowSizeBytes"`
}

// ToExchangeOptions converts the YAML knobs to dispatch.ExchangeOptions,
// filling in spec defaults for any field left at zero.
func (e ExchangeConfig) ToExchangeOptions() dispatch.ExchangeOptions {
	opts := dispatch.DefaultExchangeOptions()
	if e.TimeoutMs > 0 {
		opts.Timeout = time.Duration(e.TimeoutMs) * time.Millisecond
	}
	if e.RetransmitTimeoutMs > 0 {
		opts.RetransmitTimeout = time.Duration(e.RetransmitTimeoutMs) * time.Millisecond
	}
	if e.FlowControlIntervalMs > 0 {
		opts.FlowControlInterval = time.Duration(e.FlowControlIntervalMs) * time.Millisecond
	}
	if e.WindowSizeBytes > 0 {
		opts.WindowSize = e.WindowSizeBytes
	}
	return opts
}

// Load reads and parses a Runner configuration file from path.
func Load(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return f, nil
}
