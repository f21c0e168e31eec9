package prodigy

import (
	"github.com/backkem/prodigy/pkg/codec"
	"github.com/backkem/prodigy/pkg/codec/binary"
	"github.com/backkem/prodigy/pkg/netio"
	"github.com/pion/logging"
)

// RunnerConfig holds all configuration for a Runner.
type RunnerConfig struct {
	// Provider is the transport a Runner binds and dispatches over.
	// Required.
	Provider netio.Provider

	// Codec encodes and decodes packets and payloads on the wire. Defaults
	// to binary.New() (the little-endian framed codec) if nil.
	Codec codec.Codec

	// LoggerFactory builds the structured loggers a Runner and its
	// dispatch loop log through. Optional; logging is a no-op if nil.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration for errors.
func (c *RunnerConfig) Validate() error {
	if c.Provider == nil {
		return ErrProviderRequired
	}
	return nil
}

// applyDefaults fills in default values for unset fields.
func (c *RunnerConfig) applyDefaults() {
	if c.Codec == nil {
		c.Codec = binary.New()
	}
}
