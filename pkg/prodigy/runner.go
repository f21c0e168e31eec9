// Package prodigy is the public facade of the dispatch engine: Runner ties
// a netio.Provider, a codec.Codec, a protocol registry, and a pending-
// response table into one object with a simple lifecycle, the way the
// teacher's pkg/matter.Node is the facade in front of pkg/exchange,
// pkg/session, and pkg/transport. Prodigy has no sessions, fabrics, or
// commissioning, so the facade is much thinner: bind a transport, register
// protocols, run the dispatch loop, send and exchange messages.
package prodigy

import (
	"context"
	"net"
	"sync"

	"github.com/backkem/prodigy/pkg/dispatch"
	"github.com/backkem/prodigy/pkg/idgen"
	"github.com/backkem/prodigy/pkg/pending"
	"github.com/backkem/prodigy/pkg/registry"
	"github.com/google/uuid"
	"github.com/pion/logging"
)

// Runner coordinates one participant in the Prodigy network: it owns the
// transport, the protocol registry, and the dispatch loop, and is the
// entry point application code uses to send, exchange, and receive
// messages.
type Runner struct {
	id     string
	config RunnerConfig
	log    logging.LeveledLogger

	registry *registry.Registry
	pending  *pending.Table
	sender   *dispatch.Sender
	loop     *dispatch.Loop

	mu       sync.RWMutex
	state    RunnerState
	stopOnce sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewRunner creates a Runner from config. The Runner is created but not
// bound; call Bind then Run to start operating.
func NewRunner(config RunnerConfig) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	ids, err := idgen.New()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		id:       uuid.NewString(),
		config:   config,
		registry: registry.New(),
		pending:  pending.New(),
		state:    RunnerNew,
	}

	if config.LoggerFactory != nil {
		r.log = config.LoggerFactory.NewLogger("prodigy.runner")
	}

	r.sender = dispatch.NewSender(dispatch.SenderConfig{
		Provider:      config.Provider,
		Codec:         config.Codec,
		Pending:       r.pending,
		IDs:           ids,
		LoggerFactory: config.LoggerFactory,
	})

	r.loop = dispatch.NewLoop(dispatch.LoopConfig{
		Provider:      config.Provider,
		Codec:         config.Codec,
		Registry:      r.registry,
		Pending:       r.pending,
		Sender:        r.sender,
		LoggerFactory: config.LoggerFactory,
	})

	return r, nil
}

// ID returns a unique identifier generated for this Runner instance, useful
// for correlating log lines across multiple runners in one process.
func (r *Runner) ID() string { return r.id }

// State returns the Runner's current lifecycle state.
func (r *Runner) State() RunnerState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// RegisterProtocol installs p on the Runner. Safe to call at any point
// before Close; the dispatch loop may already be running. Registering the
// same protocol name twice is not an error: per spec §4.3, the later
// registration simply replaces the earlier one (last writer wins).
func (r *Runner) RegisterProtocol(p Protocol) error {
	r.mu.RLock()
	closed := r.state == RunnerClosed
	r.mu.RUnlock()
	if closed {
		return ErrInvalidState
	}
	r.registry.Register(p.toRegistry())
	return nil
}

// Bind claims the Runner's local address on its transport (spec §5).
func (r *Runner) Bind(addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.state.CanBind() {
		return ErrInvalidState
	}
	if err := r.config.Provider.Bind(addr); err != nil {
		return err
	}
	r.state = RunnerBound
	if r.log != nil {
		r.log.Infof("runner %s bound to %v", r.id, r.config.Provider.LocalAddr())
	}
	return nil
}

// Run starts the dispatch loop against a background goroutine and returns
// immediately; it does not block for the Runner's lifetime, matching the
// teacher's Node.Start. ctx bounds the dispatch loop and transport's
// background work — canceling it is equivalent to calling Close.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.state.CanRun() {
		return ErrInvalidState
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		if err := r.config.Provider.Run(runCtx); err != nil && r.log != nil {
			r.log.Warnf("transport run loop exited: %v", err)
		}
	}()
	go func() {
		defer r.wg.Done()
		if err := r.loop.Run(runCtx); err != nil && r.log != nil {
			r.log.Warnf("dispatch loop exited: %v", err)
		}
	}()
	go func() {
		<-runCtx.Done()
		r.Close()
	}()

	r.state = RunnerRunning
	if r.log != nil {
		r.log.Infof("runner %s running", r.id)
	}
	return nil
}

// Close gracefully shuts down the Runner. Idempotent: calling it more than
// once, or on a Runner that was never bound or run, is safe.
func (r *Runner) Close() error {
	r.mu.Lock()
	if !r.state.CanClose() {
		r.mu.Unlock()
		return nil
	}
	r.state = RunnerClosed
	cancel := r.cancel
	r.mu.Unlock()

	r.stopOnce.Do(func() {
		if cancel != nil {
			cancel()
		}
		r.config.Provider.Close()
		r.wg.Wait()
	})

	if r.log != nil {
		r.log.Infof("runner %s closed", r.id)
	}
	return nil
}

// LocalAddr returns the Runner's bound transport address.
func (r *Runner) LocalAddr() net.Addr {
	return r.config.Provider.LocalAddr()
}

// Sender returns the Runner's send/exchange capability.
func (r *Runner) Sender() *Sender { return r.sender }

// Send transmits body as a fire-and-forget Request (spec §4.2), a
// convenience wrapper over Runner.Sender().Send.
func (r *Runner) Send(ctx context.Context, protocolName, messageType string, to net.Addr, body any) error {
	return r.sender.Send(ctx, protocolName, messageType, to, body)
}
