// Package pending implements the correlation table that lets a caller
// suspended in Sender.Exchange be woken by the dispatch loop when the
// matching Response packet arrives (spec §4.4). It is modeled on the
// teacher's AckTable/RetransmitTable (map + mutex, one entry per key) but
// fulfillment is a buffered channel rather than a timer callback, following
// pkg/im/client.go's resultCh idiom for delivering exactly one result to a
// waiting goroutine.
package pending

import (
	"context"
	"errors"
	"sync"

	"github.com/backkem/prodigy/pkg/packet"
)

// Table errors.
var (
	// ErrExchangeExists is returned by Reserve when the exchange ID is
	// already in use. Per spec §4.4, a collision here is treated as a
	// programming error of the ID generator, not a routine condition.
	ErrExchangeExists = errors.New("pending: exchange ID already reserved")

	// ErrTimeout is returned by Await when the deadline elapses before a
	// response is delivered.
	ErrTimeout = errors.New("pending: exchange timed out")
)

// Table is the exchange-ID -> delivery-slot correlation map. Safe for
// concurrent use: the dispatch loop calls Deliver while caller goroutines
// call Reserve, Await, and Cancel concurrently.
type Table struct {
	mu    sync.Mutex
	slots map[uint64]chan packet.Packet
}

// New creates an empty Table.
func New() *Table {
	return &Table{
		slots: make(map[uint64]chan packet.Packet),
	}
}

// Reserve creates a one-shot delivery slot for exchangeID. It must be called
// before the corresponding request is transmitted, so that a response racing
// the send cannot be lost (spec §4.5).
func (t *Table) Reserve(exchangeID uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.slots[exchangeID]; exists {
		return ErrExchangeExists
	}
	t.slots[exchangeID] = make(chan packet.Packet, 1)
	return nil
}

// Deliver fulfills the slot for exchangeID if one is reserved. It reports
// whether a waiting caller received the packet; a false return means the
// response arrived late (after timeout/cancellation) and was dropped, which
// callers should log at debug level rather than treat as an error.
func (t *Table) Deliver(exchangeID uint64, p packet.Packet) bool {
	t.mu.Lock()
	ch, exists := t.slots[exchangeID]
	if exists {
		delete(t.slots, exchangeID)
	}
	t.mu.Unlock()

	if !exists {
		return false
	}

	// Buffered with capacity 1 and only ever written once, so this never
	// blocks.
	ch <- p
	return true
}

// Cancel removes the slot for exchangeID without delivering a value. A
// Deliver that races a Cancel and arrives first still wins; one that arrives
// after is silently dropped, since the entry is already gone.
func (t *Table) Cancel(exchangeID uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.slots, exchangeID)
}

// Await suspends until the slot for exchangeID is fulfilled or ctx is done.
// On timeout or cancellation it removes the slot itself, so callers never
// need a separate Cancel call after Await returns an error.
func (t *Table) Await(ctx context.Context, exchangeID uint64) (packet.Packet, error) {
	t.mu.Lock()
	ch, exists := t.slots[exchangeID]
	t.mu.Unlock()

	if !exists {
		return packet.Packet{}, errors.New("pending: exchange ID not reserved")
	}

	select {
	case p := <-ch:
		return p, nil
	case <-ctx.Done():
		t.Cancel(exchangeID)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return packet.Packet{}, ErrTimeout
		}
		return packet.Packet{}, ctx.Err()
	}
}

// Len returns the number of slots currently reserved. Used by tests to
// assert the no-leak property (spec §8, property 3).
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}
