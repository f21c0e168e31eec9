package dispatch

import (
	"context"
	"net"

	"github.com/backkem/prodigy/pkg/codec"
	"github.com/backkem/prodigy/pkg/idgen"
	"github.com/backkem/prodigy/pkg/netio"
	"github.com/backkem/prodigy/pkg/packet"
	"github.com/backkem/prodigy/pkg/pending"
	"github.com/pion/logging"
)

// SenderConfig collects the collaborators a Sender needs to build, encode,
// transmit, and correlate packets. All fields except LoggerFactory are
// required; a nil LoggerFactory disables logging.
type SenderConfig struct {
	Provider      netio.Provider
	Codec         codec.Codec
	Pending       *pending.Table
	IDs           *idgen.Generator
	LoggerFactory logging.LoggerFactory
}

// Sender is the outbound half of the dispatch engine: it is the concrete
// type behind both the public send/exchange capability handed to
// application code and the capability every inbound Request carries to
// answer through. It mirrors the teacher's exchange.Manager in its role as
// the single owner of outbound encode+transmit, simplified to drop
// acknowledgement/retransmission bookkeeping (spec Non-goals).
type Sender struct {
	cfg SenderConfig
	log logging.LeveledLogger
}

// NewSender builds a Sender from cfg.
func NewSender(cfg SenderConfig) *Sender {
	var log logging.LeveledLogger
	if cfg.LoggerFactory != nil {
		log = cfg.LoggerFactory.NewLogger("prodigy.sender")
	}
	return &Sender{cfg: cfg, log: log}
}

// Send transmits body as a fire-and-forget Request packet (spec §4.2): no
// exchange is reserved and no response is awaited.
func (s *Sender) Send(ctx context.Context, protocolName, messageType string, to net.Addr, body any) error {
	payload, err := s.cfg.Codec.EncodePayload(body)
	if err != nil {
		return err
	}

	p := packet.New(packet.KindRequest, s.cfg.IDs.Next(), protocolName, messageType, payload)
	data, err := s.cfg.Codec.EncodePacket(p)
	if err != nil {
		return err
	}

	if err := s.cfg.Provider.Send(ctx, data, to); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// Exchange sends body as a Request and waits for the correlated Response,
// decoding its payload into T (spec §4.4-4.5). The exchange ID is reserved
// in the pending table before the packet is transmitted, so a response that
// races the send can never be lost (spec §4.5 ordering invariant). The wait
// ends after the option Timeout (DefaultExchangeTimeout unless WithTimeout
// overrides it) or at ctx's own deadline, whichever comes first.
//
// Exchange cannot be a method of Sender because Go methods may not carry
// their own type parameters; it takes the Sender explicitly instead,
// following the same free-function-over-generic-payload shape as the rest
// of the codec layer.
func Exchange[T any](ctx context.Context, s *Sender, protocolName, messageType string, to net.Addr, body any, opts ...ExchangeOption) (T, error) {
	var zero T

	options := DefaultExchangeOptions()
	for _, opt := range opts {
		opt(&options)
	}

	ctx, cancel := context.WithTimeout(ctx, options.Timeout)
	defer cancel()
	ctx = WithOptionsContext(ctx, options)

	payload, err := s.cfg.Codec.EncodePayload(body)
	if err != nil {
		return zero, err
	}

	id := s.cfg.IDs.Next()
	if err := s.cfg.Pending.Reserve(id); err != nil {
		return zero, err
	}

	p := packet.New(packet.KindRequest, id, protocolName, messageType, payload)
	data, err := s.cfg.Codec.EncodePacket(p)
	if err != nil {
		s.cfg.Pending.Cancel(id)
		return zero, err
	}

	if err := s.cfg.Provider.Send(ctx, data, to); err != nil {
		s.cfg.Pending.Cancel(id)
		return zero, &TransportError{Err: err}
	}

	resp, err := s.cfg.Pending.Await(ctx, id)
	if err != nil {
		return zero, err
	}

	if err := s.cfg.Codec.DecodePayload(resp.Payload, &zero); err != nil {
		return zero, err
	}
	return zero, nil
}
