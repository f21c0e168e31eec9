// Package netio defines the NetworkProvider capability the dispatch engine
// depends on: bind a local endpoint, send and receive datagrams, and drive
// internal I/O progress. The core makes no assumption about reliability or
// ordering beyond what a concrete Provider documents — see pkg/netio/udp for
// a real implementation and pkg/netio/pipe for an in-memory test double.
package netio

import (
	"context"
	"errors"
	"net"
)

// Datagram is one inbound unit of data together with the address it arrived
// from.
type Datagram struct {
	Data []byte
	From net.Addr
}

// Provider is the transport-abstraction boundary the dispatch loop pumps.
// Implementations must be safe for Send to be called concurrently from many
// goroutines while Run and Receive are driven by the dispatch loop.
type Provider interface {
	// Bind claims a local endpoint. Returns ErrBindConflict if the address
	// is unusable.
	Bind(addr string) error

	// Send hands a datagram to the transport. It may suspend until the
	// transport accepts the datagram, not until the peer acknowledges it.
	Send(ctx context.Context, data []byte, to net.Addr) error

	// Receive produces the next inbound datagram. It suspends until one
	// arrives, ctx is cancelled, or the provider is closed.
	Receive(ctx context.Context) (Datagram, error)

	// Run drives internal I/O progress. It is cooperative: it runs until
	// ctx is cancelled or the provider is closed, and must be invoked
	// exactly once per bound provider.
	Run(ctx context.Context) error

	// LocalAddr returns the address Bind claimed.
	LocalAddr() net.Addr

	// Close releases resources. Idempotent: a second Close is a no-op that
	// returns nil.
	Close() error
}

// Provider errors.
var (
	// ErrBindConflict is returned by Bind when the requested address is
	// already in use or otherwise unusable.
	ErrBindConflict = errors.New("netio: bind conflict")

	// ErrNotBound is returned by Run when it is called before Bind
	// completes; udp.Provider's Send returns it too. Receive does not check
	// binding: before Bind it waits until ctx is cancelled or the provider
	// is closed.
	ErrNotBound = errors.New("netio: not bound")

	// ErrAlreadyBound is returned when Bind is called more than once.
	ErrAlreadyBound = errors.New("netio: already bound")

	// ErrClosed is returned by operations attempted after Close.
	ErrClosed = errors.New("netio: closed")
)
