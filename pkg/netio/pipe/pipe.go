// Package pipe implements netio.Provider over an in-memory, back-to-back
// pair of connections, following the teacher's pkg/transport/pipe.go
// approach of wrapping pion/transport/v3/test.Bridge instead of hand-rolling
// channel plumbing. Use NewProviderPair for deterministic, flake-free
// two-peer tests without real sockets.
package pipe

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/backkem/prodigy/pkg/netio"
	"github.com/pion/transport/v3/test"
)

// Addr implements net.Addr for a pipe endpoint.
type Addr struct {
	ID int
}

// Network returns "pipe".
func (a Addr) Network() string { return "pipe" }

// String returns a human-readable representation.
func (a Addr) String() string { return fmt.Sprintf("pipe:%d", a.ID) }

// Provider is a netio.Provider backed by one side of a test.Bridge.
type Provider struct {
	id       int
	conn     net.Conn
	peerAddr net.Addr

	recvCh  chan netio.Datagram
	closeCh chan struct{}
	wg      sync.WaitGroup

	mu     sync.Mutex
	bound  bool
	closed bool
}

// NewProviderPair creates two Providers connected to each other through an
// in-memory bridge. Bind must still be called on each before Run/Send/Receive
// — the address passed to Bind is cosmetic for a pipe and only used for
// LocalAddr().
func NewProviderPair() (*Provider, *Provider) {
	bridge := test.NewBridge()

	p0 := &Provider{
		id:      0,
		conn:    bridge.GetConn0(),
		recvCh:  make(chan netio.Datagram, 64),
		closeCh: make(chan struct{}),
	}
	p1 := &Provider{
		id:      1,
		conn:    bridge.GetConn1(),
		recvCh:  make(chan netio.Datagram, 64),
		closeCh: make(chan struct{}),
	}
	p0.peerAddr = Addr{ID: 1}
	p1.peerAddr = Addr{ID: 0}

	return p0, p1
}

// Bind implements netio.Provider. For a pipe, binding only records that the
// endpoint is ready to Run; the address string is ignored.
func (p *Provider) Bind(addr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return netio.ErrClosed
	}
	if p.bound {
		return netio.ErrAlreadyBound
	}
	p.bound = true
	return nil
}

// LocalAddr implements netio.Provider.
func (p *Provider) LocalAddr() net.Addr {
	return Addr{ID: p.id}
}

// Run implements netio.Provider: it reads frames off the bridge connection
// and forwards them to Receive until ctx is done or the pipe is closed.
func (p *Provider) Run(ctx context.Context) error {
	p.mu.Lock()
	bound := p.bound
	conn := p.conn
	p.mu.Unlock()

	if !bound {
		return netio.ErrNotBound
	}

	p.wg.Add(1)
	defer p.wg.Done()

	buf := make([]byte, 65535)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			select {
			case <-p.closeCh:
				return nil
			case <-ctx.Done():
				return nil
			default:
				return nil
			}
		}
		if n == 0 {
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case p.recvCh <- netio.Datagram{Data: data, From: p.peerAddr}:
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

// Send implements netio.Provider. The destination address is ignored since
// a pipe has exactly one peer.
func (p *Provider) Send(ctx context.Context, data []byte, to net.Addr) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return netio.ErrClosed
	}
	conn := p.conn
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := conn.Write(data)
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

	close(p.closeCh)
	conn.Close()
	p.wg.Wait()
	return nil
}

// Verify Provider implements netio.Provider.
var _ netio.Provider = (*Provider)(nil)
