// prodigy-echo is a minimal Prodigy runner that answers every "echo"/"ping"
// exchange with the text it was sent, and, if -peer is given, sends one
// such exchange to a remote runner on startup.
//
// Usage:
//
//	prodigy-echo [options]
//
// Options:
//
//	-port  Local UDP port (default: 9000)
//	-peer  host:port of a remote peer to exchange with
//	-name  Label for this runner in log output
//
// Example, in two terminals:
//
//	prodigy-echo -port 9000
//	prodigy-echo -port 9001 -peer 127.0.0.1:9000
package main

import (
	"context"
	"log"
	"net"
	"time"

	"github.com/backkem/prodigy/examples/common"
	"github.com/backkem/prodigy/pkg/prodigy"
	"github.com/pion/logging"
)

type pingMessage struct{ Text string }
type pongMessage struct{ Text string }

func main() {
	opts := common.ParseFlags()
	loggerFactory := logging.NewDefaultLoggerFactory()

	runner, err := common.NewUDPRunner(opts, loggerFactory)
	if err != nil {
		log.Fatalf("create runner: %v", err)
	}

	echo := prodigy.NewProtocol("echo").
		Handle("ping", prodigy.HandlerFunc(func(ctx context.Context, req *prodigy.Request) error {
			var body pingMessage
			if err := req.PayloadAs(&body); err != nil {
				return err
			}
			log.Printf("%s: received ping %q from %v", opts.Name, body.Text, req.From())
			return req.Respond(ctx, pongMessage{Text: body.Text})
		})).
		Build()

	if err := runner.RegisterProtocol(echo); err != nil {
		log.Fatalf("register protocol: %v", err)
	}

	if opts.PeerAddr != "" {
		go sendGreeting(runner, opts)
	}

	if err := common.RunUntilSignal(runner); err != nil {
		log.Fatalf("runner: %v", err)
	}
}

func sendGreeting(runner *prodigy.Runner, opts common.Options) {
	time.Sleep(200 * time.Millisecond) // give both sides time to start their dispatch loops

	peerAddr, err := net.ResolveUDPAddr("udp", opts.PeerAddr)
	if err != nil {
		log.Printf("resolve peer %s: %v", opts.PeerAddr, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := prodigy.Exchange[pongMessage](ctx, runner.Sender(), "echo", "ping", peerAddr, pingMessage{Text: "hello from " + opts.Name})
	if err != nil {
		log.Printf("exchange with %s failed: %v", opts.PeerAddr, err)
		return
	}
	log.Printf("%s: got pong %q from %s", opts.Name, resp.Text, opts.PeerAddr)
}
