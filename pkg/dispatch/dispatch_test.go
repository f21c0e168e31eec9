package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/backkem/prodigy/pkg/codec/binary"
	"github.com/backkem/prodigy/pkg/dispatch"
	"github.com/backkem/prodigy/pkg/idgen"
	"github.com/backkem/prodigy/pkg/netio/pipe"
	"github.com/backkem/prodigy/pkg/pending"
	"github.com/backkem/prodigy/pkg/registry"
	"github.com/stretchr/testify/require"
)

// harness wires one full dispatch stack over one side of an in-memory pipe
// pair: codec, registry, pending table, sender, and loop, matching the way a
// Runner will assemble the same pieces.
type harness struct {
	provider *pipe.Provider
	sender   *dispatch.Sender
	registry *registry.Registry
	loop     *dispatch.Loop
}

func newHarness(t *testing.T, p *pipe.Provider) *harness {
	t.Helper()
	require.NoError(t, p.Bind("pipe"))

	ids, err := idgen.New()
	require.NoError(t, err)

	reg := registry.New()
	pendingTable := pending.New()
	codec := binary.New()

	sender := dispatch.NewSender(dispatch.SenderConfig{
		Provider: p,
		Codec:    codec,
		Pending:  pendingTable,
		IDs:      ids,
	})

	loop := dispatch.NewLoop(dispatch.LoopConfig{
		Provider: p,
		Codec:    codec,
		Registry: reg,
		Pending:  pendingTable,
		Sender:   sender,
	})

	return &harness{provider: p, sender: sender, registry: reg, loop: loop}
}

func newHarnessPair(t *testing.T) (a, b *harness) {
	t.Helper()
	p0, p1 := pipe.NewProviderPair()
	return newHarness(t, p0), newHarness(t, p1)
}

func runLoops(ctx context.Context, hs ...*harness) {
	for _, h := range hs {
		go h.loop.Run(ctx)
	}
}

type echoRequest struct{ Text string }
type echoResponse struct{ Text string }

func TestExchangeRequestResponseRoundtrip(t *testing.T) {
	client, server := newHarnessPair(t)

	server.registry.Register(registry.Protocol{
		Name: "echo",
		Handlers: map[string]registry.Handler{
			"ping": dispatch.HandlerFunc(func(ctx context.Context, req *dispatch.Request) error {
				var body echoRequest
				if err := req.PayloadAs(&body); err != nil {
					return err
				}
				return req.Respond(ctx, echoResponse{Text: body.Text})
			}),
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runLoops(ctx, client, server)

	reqCtx, reqCancel := context.WithTimeout(context.Background(), time.Second)
	defer reqCancel()

	resp, err := dispatch.Exchange[echoResponse](reqCtx, client.sender, "echo", "ping", server.provider.LocalAddr(), echoRequest{Text: "hi"})
	require.NoError(t, err)
	require.Equal(t, "hi", resp.Text)
}

func TestExchangeTimesOutWhenNoHandler(t *testing.T) {
	client, server := newHarnessPair(t)
	_ = server // no protocol registered: request is dropped

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runLoops(ctx, client, server)

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer reqCancel()

	_, err := dispatch.Exchange[echoResponse](reqCtx, client.sender, "echo", "ping", server.provider.LocalAddr(), echoRequest{Text: "hi"})
	require.ErrorIs(t, err, pending.ErrTimeout)
}

func TestRespondTwiceReturnsErrAlreadyResponded(t *testing.T) {
	client, server := newHarnessPair(t)

	handlerDone := make(chan error, 1)
	server.registry.Register(registry.Protocol{
		Name: "echo",
		Handlers: map[string]registry.Handler{
			"ping": dispatch.HandlerFunc(func(ctx context.Context, req *dispatch.Request) error {
				if err := req.Respond(ctx, echoResponse{Text: "first"}); err != nil {
					handlerDone <- err
					return err
				}
				handlerDone <- req.Respond(ctx, echoResponse{Text: "second"})
				return nil
			}),
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runLoops(ctx, client, server)

	reqCtx, reqCancel := context.WithTimeout(context.Background(), time.Second)
	defer reqCancel()

	resp, err := dispatch.Exchange[echoResponse](reqCtx, client.sender, "echo", "ping", server.provider.LocalAddr(), echoRequest{Text: "hi"})
	require.NoError(t, err)
	require.Equal(t, "first", resp.Text)

	select {
	case err := <-handlerDone:
		require.ErrorIs(t, err, dispatch.ErrAlreadyResponded)
	case <-time.After(time.Second):
		t.Fatal("handler never reported its second Respond call")
	}
}

func TestSendIsFireAndForget(t *testing.T) {
	client, server := newHarnessPair(t)

	received := make(chan echoRequest, 1)
	server.registry.Register(registry.Protocol{
		Name: "chat",
		Handlers: map[string]registry.Handler{
			"shout": dispatch.HandlerFunc(func(ctx context.Context, req *dispatch.Request) error {
				var body echoRequest
				if err := req.PayloadAs(&body); err != nil {
					return err
				}
				received <- body
				return nil
			}),
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runLoops(ctx, client, server)

	require.NoError(t, client.sender.Send(context.Background(), "chat", "shout", server.provider.LocalAddr(), echoRequest{Text: "hello room"}))

	select {
	case body := <-received:
		require.Equal(t, "hello room", body.Text)
	case <-time.After(time.Second):
		t.Fatal("server never received the fire-and-forget message")
	}
}
