// Package registry implements the protocol_name -> protocol ->
// message_type -> handler lookup table the dispatch loop consults for every
// inbound Request (spec §4.3). It mirrors the teacher's
// exchange.Manager.handlers map: a plain map guarded by sync.RWMutex, built
// mostly at setup time but safe to mutate while the dispatch loop is
// running.
package registry

import "sync"

// Handler processes one inbound message for a single (protocol, message
// type) pair. The concrete signature lives in pkg/dispatch (HandlerFunc,
// re-exported by pkg/prodigy) — Registry only needs to store and retrieve an
// opaque value, so it is generic over it to avoid an import cycle between
// registry and dispatch.
type Handler any

// Protocol is a named, read-only-after-construction bundle of handlers.
type Protocol struct {
	Name     string
	Handlers map[string]Handler
}

// Registry maps protocol names to their descriptors.
type Registry struct {
	mu        sync.RWMutex
	protocols map[string]Protocol
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{protocols: make(map[string]Protocol)}
}

// Register installs protocol under its Name. Per spec §4.3, at most one
// protocol is kept per name: registering the same name twice overwrites the
// previous descriptor (last writer wins), which keeps re-registration
// idempotent for callers that rebuild the same protocol at startup.
func (r *Registry) Register(p Protocol) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.protocols[p.Name] = p
}

// Lookup returns the handler registered for (protocolName, messageType), if
// any exists.
func (r *Registry) Lookup(protocolName, messageType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	proto, ok := r.protocols[protocolName]
	if !ok {
		return nil, false
	}
	h, ok := proto.Handlers[messageType]
	return h, ok
}

// HasProtocol returns true if a protocol is registered under name.
func (r *Registry) HasProtocol(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.protocols[name]
	return ok
}
