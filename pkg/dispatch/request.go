package dispatch

import (
	"context"
	"net"
	"sync"

	"github.com/backkem/prodigy/pkg/packet"
)

// Request is the inbound view a handler receives for one Request packet
// (spec §4.6). It carries everything the handler needs to read the message
// and answer it at most once.
type Request struct {
	sender *Sender
	from   net.Addr

	exchangeID   uint64
	protocolName string
	messageType  string
	payload      []byte

	mu        sync.Mutex
	responded bool
}

func newRequest(sender *Sender, from net.Addr, p packet.Packet) *Request {
	return &Request{
		sender:       sender,
		from:         from,
		exchangeID:   p.ExchangeID,
		protocolName: p.ProtocolName,
		messageType:  p.MessageType,
		payload:      p.Payload,
	}
}

// From returns the address the request arrived from.
func (r *Request) From() net.Addr { return r.from }

// ExchangeID returns the exchange ID the response must echo back. Handlers
// calling Respond never need this directly; it is exposed for logging and
// diagnostics.
func (r *Request) ExchangeID() uint64 { return r.exchangeID }

// ProtocolName returns the protocol the request was routed under.
func (r *Request) ProtocolName() string { return r.protocolName }

// MessageType returns the message type within the protocol.
func (r *Request) MessageType() string { return r.messageType }

// Payload returns the raw, still-encoded request body.
func (r *Request) Payload() []byte { return r.payload }

// PayloadAs decodes the request body into v using the same codec the
// dispatch loop was configured with.
func (r *Request) PayloadAs(v any) error {
	return r.sender.cfg.Codec.DecodePayload(r.payload, v)
}

// Sender returns the send/exchange capability shared by the whole Runner,
// letting a handler originate unrelated outbound traffic while servicing
// this request (spec §4.6: a Request carries "a sender capability").
func (r *Request) Sender() *Sender { return r.sender }

// Respond answers the request exactly once (spec §4.7). A second call
// returns ErrAlreadyResponded without touching the network, matching
// scenario S5.
func (r *Request) Respond(ctx context.Context, body any) error {
	r.mu.Lock()
	if r.responded {
		r.mu.Unlock()
		return ErrAlreadyResponded
	}
	r.responded = true
	r.mu.Unlock()

	payload, err := r.sender.cfg.Codec.EncodePayload(body)
	if err != nil {
		return err
	}

	p := packet.New(packet.KindResponse, r.exchangeID, r.protocolName, r.messageType, payload)
	data, err := r.sender.cfg.Codec.EncodePacket(p)
	if err != nil {
		return err
	}

	if err := r.sender.cfg.Provider.Send(ctx, data, r.from); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// HandlerFunc processes one inbound Request. A non-nil error is logged by
// the dispatch loop and otherwise has no effect: the loop does not retry or
// synthesize an error response, matching the teacher's fire-and-log
// treatment of handler failures in exchange.Manager.dispatch.
type HandlerFunc func(ctx context.Context, req *Request) error
