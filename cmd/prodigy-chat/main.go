// prodigy-chat is a terminal chat client built on the chatroom example
// protocol. Each line typed on stdin is broadcast to every known member;
// incoming messages are printed as they arrive.
//
// Every instance advertises itself over mDNS so peers on the same network
// segment can be found without typing an address in by hand. If -peer is
// omitted, prodigy-chat browses for other advertised instances and joins
// the first one it finds.
//
// Usage:
//
//	prodigy-chat -port 9100 -name alice
//	prodigy-chat -port 9101 -name bob
//	prodigy-chat -port 9102 -name carol -peer 127.0.0.1:9100
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/backkem/prodigy/examples/chatroom"
	"github.com/backkem/prodigy/examples/common"
	"github.com/backkem/prodigy/pkg/discovery"
)

func main() {
	opts := common.ParseFlags()

	runner, err := common.NewUDPRunner(opts, nil)
	if err != nil {
		log.Fatalf("create runner: %v", err)
	}

	room := chatroom.NewRoom(runner, opts.Name, func(from chatroom.Member, text string) {
		fmt.Printf("%s: %s\n", from.Name, text)
	})
	if err := runner.RegisterProtocol(room.Protocol()); err != nil {
		log.Fatalf("register protocol: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := runner.Run(ctx); err != nil {
		log.Fatalf("start runner: %v", err)
	}
	defer runner.Close()

	localPort := runner.LocalAddr().(*net.UDPAddr).Port
	advertiser, err := discovery.Advertise(opts.Name, localPort, discovery.AdvertiserConfig{})
	if err != nil {
		log.Printf("advertise over mDNS: %v (continuing without it)", err)
	} else {
		defer advertiser.Close()
	}

	seedAddr, err := seedPeerAddr(ctx, opts)
	if err != nil {
		log.Fatalf("find peer: %v", err)
	}
	if seedAddr != nil {
		joinCtx, joinCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = room.Join(joinCtx, seedAddr)
		joinCancel()
		if err != nil {
			log.Fatalf("join room: %v", err)
		}
	}

	fmt.Printf("joined as %s on %v; type a message and press enter\n", opts.Name, runner.LocalAddr())

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}
		for addr, err := range room.Broadcast(text) {
			if err != nil {
				log.Printf("failed to deliver to %s: %v", addr, err)
			}
		}
	}

	room.Leave(context.Background())
}

func resolveSeed(addr string) (net.Addr, error) {
	return net.ResolveUDPAddr("udp", addr)
}

// seedPeerAddr resolves the peer this runner should join on startup. An
// explicit -peer flag always wins; otherwise it browses for other
// advertised instances and picks the first one found. A nil, nil return
// means this runner found no one to join and simply waits to be joined.
func seedPeerAddr(ctx context.Context, opts common.Options) (net.Addr, error) {
	if opts.PeerAddr != "" {
		return resolveSeed(opts.PeerAddr)
	}

	discoverCtx, cancel := context.WithTimeout(ctx, discovery.DefaultBrowseTimeout)
	defer cancel()
	peers, err := discovery.Discover(discoverCtx, opts.Name)
	if err != nil {
		log.Printf("mDNS discovery: %v (continuing without it)", err)
		return nil, nil
	}
	if len(peers) == 0 {
		return nil, nil
	}

	fmt.Printf("found peer %s at %s\n", peers[0].Name, peers[0].Addr)
	return resolveSeed(peers[0].Addr)
}
