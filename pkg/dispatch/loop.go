// Package dispatch is the protocol dispatch engine (spec §4): it owns the
// read loop that pumps a netio.Provider, decodes packets with a codec.Codec,
// and routes each one to either the pending.Table (Response) or a
// registry.Registry handler (Request). It plays the role the teacher's
// pkg/exchange.Manager plays for Matter — the core engine a thin facade
// wraps — simplified by dropping MRP acknowledgement/retransmission, which
// is this spec's explicit Non-goal for the dispatch layer.
package dispatch

import (
	"context"
	"errors"

	"github.com/backkem/prodigy/pkg/codec"
	"github.com/backkem/prodigy/pkg/netio"
	"github.com/backkem/prodigy/pkg/packet"
	"github.com/backkem/prodigy/pkg/pending"
	"github.com/backkem/prodigy/pkg/registry"
	"github.com/pion/logging"
)

// LoopConfig collects the collaborators the dispatch loop wires together.
// All fields except LoggerFactory are required; a nil LoggerFactory
// disables logging.
type LoopConfig struct {
	Provider      netio.Provider
	Codec         codec.Codec
	Registry      *registry.Registry
	Pending       *pending.Table
	Sender        *Sender
	LoggerFactory logging.LoggerFactory
}

// Loop is the running dispatch engine for one Runner.
type Loop struct {
	cfg LoopConfig
	log logging.LeveledLogger
}

// NewLoop builds a Loop from cfg.
func NewLoop(cfg LoopConfig) *Loop {
	var log logging.LeveledLogger
	if cfg.LoggerFactory != nil {
		log = cfg.LoggerFactory.NewLogger("prodigy.dispatch")
	}
	return &Loop{cfg: cfg, log: log}
}

// Run pumps Provider.Receive until ctx is canceled or the provider reports
// it is closed. It returns nil on either orderly condition; any other
// receive error is logged and the loop continues, so one bad datagram never
// brings the whole Runner down.
func (l *Loop) Run(ctx context.Context) error {
	for {
		dg, err := l.cfg.Provider.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, netio.ErrClosed) {
				return nil
			}
			if l.log != nil {
				l.log.Warnf("receive error: %v", err)
			}
			continue
		}
		l.handleDatagram(dg)
	}
}

// handleDatagram decodes one datagram and routes it. Malformed frames and
// requests with no registered handler are dropped and logged, never
// propagated as errors (spec §4.9).
func (l *Loop) handleDatagram(dg netio.Datagram) {
	p, err := l.cfg.Codec.DecodePacket(dg.Data)
	if err != nil {
		if l.log != nil {
			l.log.Debugf("dropping malformed packet from %v: %v", dg.From, err)
		}
		return
	}

	switch p.Kind {
	case packet.KindResponse:
		if !l.cfg.Pending.Deliver(p.ExchangeID, p) {
			if l.log != nil {
				l.log.Debugf("dropping unsolicited or late response: exchange=%d", p.ExchangeID)
			}
		}

	case packet.KindRequest:
		h, ok := l.cfg.Registry.Lookup(p.ProtocolName, p.MessageType)
		if !ok {
			if l.log != nil {
				l.log.Debugf("dropping request: no handler for protocol=%q type=%q", p.ProtocolName, p.MessageType)
			}
			return
		}
		handler, ok := h.(HandlerFunc)
		if !ok {
			if l.log != nil {
				l.log.Errorf("registry entry for protocol=%q type=%q is not a HandlerFunc", p.ProtocolName, p.MessageType)
			}
			return
		}
		req := newRequest(l.cfg.Sender, dg.From, p)
		go l.invokeHandler(handler, req)

	default:
		if l.log != nil {
			l.log.Debugf("dropping packet with unknown kind %v from %v", p.Kind, dg.From)
		}
	}
}

// invokeHandler runs handler for req in its own goroutine, isolating panics
// and errors so one misbehaving handler never affects concurrent exchanges
// (spec §4.6: "each inbound request is dispatched to its own concurrent
// handler").
func (l *Loop) invokeHandler(handler HandlerFunc, req *Request) {
	defer func() {
		if r := recover(); r != nil && l.log != nil {
			l.log.Errorf("handler panic: protocol=%q type=%q: %v", req.ProtocolName(), req.MessageType(), r)
		}
	}()

	if err := handler(context.Background(), req); err != nil && l.log != nil {
		l.log.Warnf("handler error: protocol=%q type=%q: %v", req.ProtocolName(), req.MessageType(), err)
	}
}
