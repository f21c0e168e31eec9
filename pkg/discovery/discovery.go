// Package discovery lets Prodigy runners find each other on the local
// network over mDNS/DNS-SD instead of requiring a peer address to be typed
// in by hand. It is grounded on the teacher's pkg/discovery package
// (Advertiser/Resolver wrapping github.com/grandcat/zeroconf), trimmed to
// Prodigy's single flat service type: Prodigy has no commissioning mode,
// fabric, or vendor/discriminator TXT records to encode as DNS-SD subtypes,
// so advertising and browsing collapse to one service name with no filter.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"
)

// ServiceType is the DNS-SD service type Prodigy runners advertise and
// browse under.
const ServiceType = "_prodigy._udp"

// Domain is the mDNS domain used for all lookups.
const Domain = "local."

// DefaultBrowseTimeout bounds how long Discover waits for responses when
// ctx carries no deadline of its own.
const DefaultBrowseTimeout = 3 * time.Second

// Peer is one other Prodigy runner found on the network.
type Peer struct {
	// Name is the advertising runner's instance name (spec §5: Runner has
	// no identity beyond its transport address, so Name is whatever the
	// advertiser chose to call itself, e.g. a chatroom display name).
	Name string

	// Addr is host:port, ready to pass to net.ResolveUDPAddr.
	Addr string
}

// Registrar stops an active service advertisement.
type Registrar interface {
	Shutdown()
}

// RegistrarFactory creates Registrars. Production code registers through
// the real zeroconf responder; tests inject a fake so they never touch a
// real network interface.
type RegistrarFactory interface {
	Register(instance, service, domain string, port int, text []string, ifaces []net.Interface) (Registrar, error)
}

type zeroconfFactory struct{}

func (zeroconfFactory) Register(instance, service, domain string, port int, text []string, ifaces []net.Interface) (Registrar, error) {
	return zeroconf.Register(instance, service, domain, port, text, ifaces)
}

// AdvertiserConfig configures Advertise.
type AdvertiserConfig struct {
	// Factory creates the underlying mDNS registration. Defaults to the
	// real zeroconf responder if nil.
	Factory RegistrarFactory

	// LoggerFactory builds the Advertiser's logger. Optional.
	LoggerFactory logging.LoggerFactory
}

// Advertiser publishes one Runner's presence so peers can find it without a
// manually supplied address.
type Advertiser struct {
	svc Registrar
	log logging.LeveledLogger
}

// Advertise registers instanceName at port under ServiceType. Call Close
// when the advertising Runner shuts down.
func Advertise(instanceName string, port int, config AdvertiserConfig) (*Advertiser, error) {
	factory := config.Factory
	if factory == nil {
		factory = zeroconfFactory{}
	}

	svc, err := factory.Register(instanceName, ServiceType, Domain, port, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: advertise %s: %w", instanceName, err)
	}

	a := &Advertiser{svc: svc}
	if config.LoggerFactory != nil {
		a.log = config.LoggerFactory.NewLogger("prodigy.discovery")
		a.log.Infof("advertising %q on %s:%d", instanceName, ServiceType, port)
	}
	return a, nil
}

// Close stops advertising. Safe to call once; a second call would panic on
// the underlying zeroconf server, so callers must not call it twice (unlike
// most of Prodigy's Close methods, this one mirrors zeroconf.Server's own,
// non-idempotent Shutdown).
func (a *Advertiser) Close() { a.svc.Shutdown() }

// Resolver browses for peer advertisements. Production code browses
// through the real zeroconf resolver; tests inject a fake.
type Resolver interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

type zeroconfResolver struct {
	r *zeroconf.Resolver
}

func (z zeroconfResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	return z.r.Browse(ctx, service, domain, entries)
}

// Discover browses the network for other Prodigy runners for up to
// DefaultBrowseTimeout, or until ctx's own deadline/cancellation, whichever
// governs. excludeName filters out the caller's own advertisement, if any.
func Discover(ctx context.Context, excludeName string) ([]Peer, error) {
	r, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: create resolver: %w", err)
	}
	return discover(ctx, zeroconfResolver{r: r}, excludeName)
}

func discover(ctx context.Context, resolver Resolver, excludeName string) ([]Peer, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultBrowseTimeout)
		defer cancel()
	}

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		defer close(entries)
		resolver.Browse(ctx, ServiceType, Domain, entries)
	}()

	var peers []Peer
	for entry := range entries {
		if entry.Instance == excludeName {
			continue
		}
		if addr := entryAddr(entry); addr != "" {
			peers = append(peers, Peer{Name: entry.Instance, Addr: addr})
		}
	}
	return peers, nil
}

func entryAddr(entry *zeroconf.ServiceEntry) string {
	for _, ip := range entry.AddrIPv4 {
		return net.JoinHostPort(ip.String(), strconv.Itoa(entry.Port))
	}
	for _, ip := range entry.AddrIPv6 {
		return net.JoinHostPort(ip.String(), strconv.Itoa(entry.Port))
	}
	return ""
}
