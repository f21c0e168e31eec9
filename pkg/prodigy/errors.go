package prodigy

import (
	"errors"

	"github.com/backkem/prodigy/pkg/dispatch"
	"github.com/backkem/prodigy/pkg/pending"
)

// Package-level errors (spec §6 error taxonomy).
var (
	// ErrInvalidState is returned when a Runner method is called out of
	// order (e.g. Run before Bind, or Bind twice).
	ErrInvalidState = errors.New("prodigy: invalid runner state for this operation")

	// ErrProviderRequired is returned by NewRunner when RunnerConfig.Provider
	// is nil.
	ErrProviderRequired = errors.New("prodigy: runner config requires a provider")

	// ErrAlreadyResponded is returned by Request.Respond when the request
	// has already been answered once (spec §4.7, scenario S5).
	ErrAlreadyResponded = dispatch.ErrAlreadyResponded

	// ErrTimeout is returned by Exchange when no response arrives before
	// the deadline (spec §4.5, scenario S2).
	ErrTimeout = pending.ErrTimeout
)

// TransportError wraps a failure reported by the underlying NetworkProvider.
type TransportError = dispatch.TransportError
