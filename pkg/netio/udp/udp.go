// Package udp implements netio.Provider over a real UDP socket, following
// the teacher's pkg/transport/udp.go read-loop shape: a background goroutine
// reads datagrams off a net.PacketConn and hands them to whoever is pumping
// Receive.
package udp

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/backkem/prodigy/pkg/netio"
	"github.com/pion/logging"
)

// MaxDatagramSize bounds a single read. 64 KiB is the practical ceiling for
// a UDP payload; Prodigy's codec additionally bounds packet field lengths.
const MaxDatagramSize = 65535

// Config configures a Provider.
type Config struct {
	// LoggerFactory creates the provider's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// Provider is a netio.Provider backed by a real UDP socket.
type Provider struct {
	conn net.PacketConn
	log  logging.LeveledLogger

	recvCh  chan netio.Datagram
	closeCh chan struct{}
	wg      sync.WaitGroup

	mu     sync.RWMutex
	bound  bool
	closed bool
}

// New creates an unbound Provider.
func New(config Config) *Provider {
	p := &Provider{
		recvCh:  make(chan netio.Datagram, 64),
		closeCh: make(chan struct{}),
	}
	if config.LoggerFactory != nil {
		p.log = config.LoggerFactory.NewLogger("netio-udp")
	}
	return p
}

// Bind implements netio.Provider.
func (p *Provider) Bind(addr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return netio.ErrClosed
	}
	if p.bound {
		return netio.ErrAlreadyBound
	}

	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return &bindError{addr: addr, err: err}
	}

	p.conn = conn
	p.bound = true
	return nil
}

// LocalAddr implements netio.Provider.
func (p *Provider) LocalAddr() net.Addr {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.conn == nil {
		return nil
	}
	return p.conn.LocalAddr()
}

// Run implements netio.Provider: it drives the read loop until ctx is done
// or the provider is closed.
func (p *Provider) Run(ctx context.Context) error {
	p.mu.RLock()
	conn := p.conn
	bound := p.bound
	p.mu.RUnlock()

	if !bound {
		return netio.ErrNotBound
	}

	if p.log != nil {
		p.log.Infof("starting UDP provider on %s", conn.LocalAddr())
	}

	p.wg.Add(1)
	defer p.wg.Done()

	buf := make([]byte, MaxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.closeCh:
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-p.closeCh:
				return nil
			case <-ctx.Done():
				return nil
			default:
				if p.log != nil {
					p.log.Warnf("UDP read error: %v", err)
				}
				continue
			}
		}
		if n == 0 {
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case p.recvCh <- netio.Datagram{Data: data, From: addr}:
		case <-ctx.Done():
			return nil
		case <-p.closeCh:
			return nil
		}
	}
}

// Receive implements netio.Provider.
func (p *Provider) Receive(ctx context.Context) (netio.Datagram, error) {
	select {
	case d := <-p.recvCh:
		return d, nil
	case <-ctx.Done():
		return netio.Datagram{}, ctx.Err()
	case <-p.closeCh:
		return netio.Datagram{}, netio.ErrClosed
	}
}

// Send implements netio.Provider.
func (p *Provider) Send(ctx context.Context, data []byte, to net.Addr) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return netio.ErrClosed
	}
	conn := p.conn
	p.mu.RUnlock()

	if conn == nil {
		return netio.ErrNotBound
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if p.log != nil {
		p.log.Debugf("sending %d bytes to %v", len(data), to)
	}

	_, err := conn.WriteTo(data, to)
	if err != nil && p.log != nil {
		p.log.Warnf("send failed: %v", err)
	}
	return err
}

// Close implements netio.Provider. Idempotent.
func (p *Provider) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conn := p.conn
	p.mu.Unlock()

	if p.log != nil {
		p.log.Info("closing UDP provider")
	}

	close(p.closeCh)
	if conn != nil {
		conn.SetReadDeadline(time.Now())
		conn.Close()
	}
	p.wg.Wait()
	return nil
}

type bindError struct {
	addr string
	err  error
}

func (e *bindError) Error() string {
	return "netio: bind " + e.addr + ": " + e.err.Error()
}

func (e *bindError) Unwrap() error {
	return netio.ErrBindConflict
}

// Verify Provider implements netio.Provider.
var _ netio.Provider = (*Provider)(nil)
