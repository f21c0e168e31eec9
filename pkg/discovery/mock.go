package discovery

import (
	"context"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
)

// MockResolver simulates mDNS browse results without touching a real
// network interface, grounded directly on the teacher's MockMDNSResolver.
type MockResolver struct {
	mu      sync.Mutex
	entries []*zeroconf.ServiceEntry
}

// NewMockResolver creates a MockResolver that returns entries on every
// Browse call.
func NewMockResolver(entries ...*zeroconf.ServiceEntry) *MockResolver {
	return &MockResolver{entries: entries}
}

// Browse implements Resolver.
func (m *MockResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	m.mu.Lock()
	snapshot := append([]*zeroconf.ServiceEntry(nil), m.entries...)
	m.mu.Unlock()

	for _, e := range snapshot {
		select {
		case entries <- e:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// MockPeerEntry builds a fake service entry for a peer advertising
// instanceName at ip:port.
func MockPeerEntry(instanceName string, ip net.IP, port int) *zeroconf.ServiceEntry {
	return &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: instanceName,
			Service:  ServiceType,
			Domain:   Domain,
		},
		HostName: instanceName + ".local.",
		Port:     port,
		AddrIPv4: []net.IP{ip},
	}
}
