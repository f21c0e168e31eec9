package prodigy

import (
	"context"
	"net"

	"github.com/backkem/prodigy/pkg/dispatch"
	"github.com/backkem/prodigy/pkg/registry"
)

// Request is the inbound view a handler receives for one Request packet.
// It is the concrete type dispatch.Loop constructs; Runner simply exposes
// it under the root package so callers never need to import pkg/dispatch
// directly.
type Request = dispatch.Request

// Sender is the send/exchange capability shared by a Runner and every
// Request it dispatches.
type Sender = dispatch.Sender

// HandlerFunc processes one inbound Request (spec §4.6).
type HandlerFunc = dispatch.HandlerFunc

// ExchangeOption tunes a single Exchange call (spec §4.5/§6).
type ExchangeOption = dispatch.ExchangeOption

// Re-exported exchange option constructors, so callers never need to import
// pkg/dispatch directly.
var (
	WithTimeout             = dispatch.WithTimeout
	WithRetransmitTimeout   = dispatch.WithRetransmitTimeout
	WithFlowControlInterval = dispatch.WithFlowControlInterval
	WithWindowSize          = dispatch.WithWindowSize
)

// Exchange sends body as a Request over s and waits for the correlated
// Response, decoding its payload into T (spec §4.4-4.5).
//
// Exchange must be a free function rather than a Sender method because Go
// methods cannot carry their own type parameters.
func Exchange[T any](ctx context.Context, s *Sender, protocolName, messageType string, to net.Addr, body any, opts ...ExchangeOption) (T, error) {
	return dispatch.Exchange[T](ctx, s, protocolName, messageType, to, body, opts...)
}

// Protocol is a named bundle of message-type handlers, built with
// ProtocolBuilder and installed on a Runner with RegisterProtocol.
type Protocol struct {
	name     string
	handlers map[string]HandlerFunc
}

// Name returns the protocol's name.
func (p Protocol) Name() string { return p.name }

func (p Protocol) toRegistry() registry.Protocol {
	handlers := make(map[string]registry.Handler, len(p.handlers))
	for messageType, h := range p.handlers {
		handlers[messageType] = registry.Handler(h)
	}
	return registry.Protocol{Name: p.name, Handlers: handlers}
}

// ProtocolBuilder assembles a Protocol one message type at a time (spec
// §4.8 protocol builder DSL), mirroring the fluent construction style the
// teacher uses for its cluster/endpoint builders.
type ProtocolBuilder struct {
	name     string
	handlers map[string]HandlerFunc
}

// NewProtocol starts building a protocol named name.
func NewProtocol(name string) *ProtocolBuilder {
	return &ProtocolBuilder{
		name:     name,
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers handler for messageType and returns the builder for
// chaining. A later call for the same messageType overwrites an earlier one.
func (b *ProtocolBuilder) Handle(messageType string, handler HandlerFunc) *ProtocolBuilder {
	b.handlers[messageType] = handler
	return b
}

// Build finalizes the protocol.
func (b *ProtocolBuilder) Build() Protocol {
	handlers := make(map[string]HandlerFunc, len(b.handlers))
	for k, v := range b.handlers {
		handlers[k] = v
	}
	return Protocol{name: b.name, handlers: handlers}
}
