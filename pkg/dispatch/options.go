package dispatch

import (
	"context"
	"time"
)

// Default tunable knobs (spec §6). Implementations MAY expose these on
// Sender.Send/Exchange signatures; where they do, defaults must fall inside
// the ranges the spec documents.
const (
	// DefaultExchangeTimeout is the default time Exchange waits for a
	// response. The source material disagreed between 10s and 30s across
	// revisions (spec §9); this implementation picks 10s.
	DefaultExchangeTimeout = 10 * time.Second

	// DefaultRetransmitTimeout is the default transport-level
	// retransmission timeout a NetworkProvider may honor.
	DefaultRetransmitTimeout = 15 * time.Second

	// DefaultFlowControlInterval is the default flow-control interval a
	// NetworkProvider may honor.
	DefaultFlowControlInterval = 100 * time.Millisecond

	// DefaultWindowSize is the default flow-control window size in bytes a
	// NetworkProvider may honor.
	DefaultWindowSize = 1400
)

// ExchangeOptions carries the tunable knobs from spec §4.5/§6. Timeout
// governs how long Exchange waits for a response; the remaining fields are
// transport-level hints forwarded to the NetworkProvider (via context, see
// WithOptionsContext) for providers sophisticated enough to act on them —
// the bundled udp.Provider and pipe.Provider do not, since retransmission
// and congestion control are explicitly out of scope for the dispatch core
// (spec §1 Non-goals) and are the transport's responsibility.
type ExchangeOptions struct {
	Timeout             time.Duration
	RetransmitTimeout   time.Duration
	FlowControlInterval time.Duration
	WindowSize          int
}

// DefaultExchangeOptions returns the spec-compliant default knobs.
func DefaultExchangeOptions() ExchangeOptions {
	return ExchangeOptions{
		Timeout:             DefaultExchangeTimeout,
		RetransmitTimeout:   DefaultRetransmitTimeout,
		FlowControlInterval: DefaultFlowControlInterval,
		WindowSize:          DefaultWindowSize,
	}
}

// ExchangeOption mutates ExchangeOptions. Use with Exchange.
type ExchangeOption func(*ExchangeOptions)

// WithTimeout overrides the response timeout.
func WithTimeout(d time.Duration) ExchangeOption {
	return func(o *ExchangeOptions) { o.Timeout = d }
}

// WithRetransmitTimeout overrides the forwarded retransmission timeout hint.
func WithRetransmitTimeout(d time.Duration) ExchangeOption {
	return func(o *ExchangeOptions) { o.RetransmitTimeout = d }
}

// WithFlowControlInterval overrides the forwarded flow-control interval hint.
func WithFlowControlInterval(d time.Duration) ExchangeOption {
	return func(o *ExchangeOptions) { o.FlowControlInterval = d }
}

// WithWindowSize overrides the forwarded flow-control window size hint.
func WithWindowSize(bytes int) ExchangeOption {
	return func(o *ExchangeOptions) { o.WindowSize = bytes }
}

type optionsCtxKey struct{}

// WithOptionsContext attaches opts to ctx so a NetworkProvider.Send
// implementation can recover them with OptionsFromContext.
func WithOptionsContext(ctx context.Context, opts ExchangeOptions) context.Context {
	return context.WithValue(ctx, optionsCtxKey{}, opts)
}

// OptionsFromContext recovers ExchangeOptions attached by WithOptionsContext.
func OptionsFromContext(ctx context.Context) (ExchangeOptions, bool) {
	opts, ok := ctx.Value(optionsCtxKey{}).(ExchangeOptions)
	return opts, ok
}
