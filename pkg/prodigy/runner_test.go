package prodigy_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/backkem/prodigy/pkg/netio/pipe"
	"github.com/backkem/prodigy/pkg/prodigy"
	"github.com/stretchr/testify/require"
)

type pingRequest struct{ N int }
type pongResponse struct{ N int }

func newRunnerPair(t *testing.T) (client, server *prodigy.Runner) {
	t.Helper()
	p0, p1 := pipe.NewProviderPair()

	client, err := prodigy.NewRunner(prodigy.RunnerConfig{Provider: p0})
	require.NoError(t, err)
	server, err = prodigy.NewRunner(prodigy.RunnerConfig{Provider: p1})
	require.NoError(t, err)

	require.NoError(t, client.Bind("client"))
	require.NoError(t, server.Bind("server"))

	return client, server
}

func TestRunnerLifecycleRejectsOutOfOrderTransitions(t *testing.T) {
	p0, _ := pipe.NewProviderPair()
	r, err := prodigy.NewRunner(prodigy.RunnerConfig{Provider: p0})
	require.NoError(t, err)

	require.Equal(t, prodigy.RunnerNew, r.State())
	require.ErrorIs(t, r.Run(context.Background()), prodigy.ErrInvalidState)

	require.NoError(t, r.Bind("x"))
	require.Equal(t, prodigy.RunnerBound, r.State())
	require.ErrorIs(t, r.Bind("x"), prodigy.ErrInvalidState)

	require.NoError(t, r.Run(context.Background()))
	require.Equal(t, prodigy.RunnerRunning, r.State())
	require.ErrorIs(t, r.Run(context.Background()), prodigy.ErrInvalidState)

	require.NoError(t, r.Close())
	require.Equal(t, prodigy.RunnerClosed, r.State())
	require.NoError(t, r.Close(), "Close must be idempotent")
}

// TestRequestResponseRoundtrip covers spec §8 scenario S1.
func TestRequestResponseRoundtrip(t *testing.T) {
	client, server := newRunnerPair(t)
	defer client.Close()
	defer server.Close()

	server.RegisterProtocol(prodigy.NewProtocol("ping").
		Handle("ping", prodigy.HandlerFunc(func(ctx context.Context, req *prodigy.Request) error {
			var body pingRequest
			require.NoError(t, req.PayloadAs(&body))
			return req.Respond(ctx, pongResponse{N: body.N + 1})
		})).
		Build())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, client.Run(ctx))
	require.NoError(t, server.Run(ctx))

	reqCtx, reqCancel := context.WithTimeout(context.Background(), time.Second)
	defer reqCancel()
	resp, err := prodigy.Exchange[pongResponse](reqCtx, client.Sender(), "ping", "ping", server.LocalAddr(), pingRequest{N: 41})
	require.NoError(t, err)
	require.Equal(t, 42, resp.N)
}

// TestExchangeTimeout covers spec §8 scenario S2: no handler ever responds.
func TestExchangeTimeout(t *testing.T) {
	client, server := newRunnerPair(t)
	defer client.Close()
	defer server.Close()

	server.RegisterProtocol(prodigy.NewProtocol("ping").
		Handle("ping", prodigy.HandlerFunc(func(ctx context.Context, req *prodigy.Request) error {
			return nil // deliberately never responds
		})).
		Build())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, client.Run(ctx))
	require.NoError(t, server.Run(ctx))

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer reqCancel()
	_, err := prodigy.Exchange[pongResponse](reqCtx, client.Sender(), "ping", "ping", server.LocalAddr(), pingRequest{N: 1})
	require.ErrorIs(t, err, prodigy.ErrTimeout)
}

// TestFanOutConcurrentExchanges covers spec §8 scenario S3: many concurrent
// exchanges on one Runner must all resolve to their own response.
func TestFanOutConcurrentExchanges(t *testing.T) {
	client, server := newRunnerPair(t)
	defer client.Close()
	defer server.Close()

	server.RegisterProtocol(prodigy.NewProtocol("ping").
		Handle("ping", prodigy.HandlerFunc(func(ctx context.Context, req *prodigy.Request) error {
			var body pingRequest
			require.NoError(t, req.PayloadAs(&body))
			return req.Respond(ctx, pongResponse{N: body.N * 2})
		})).
		Build())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, client.Run(ctx))
	require.NoError(t, server.Run(ctx))

	const n = 100
	var wg sync.WaitGroup
	errs := make([]error, n)
	results := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reqCtx, reqCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer reqCancel()
			resp, err := prodigy.Exchange[pongResponse](reqCtx, client.Sender(), "ping", "ping", server.LocalAddr(), pingRequest{N: i})
			errs[i] = err
			results[i] = resp.N
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, i*2, results[i])
	}
}

// TestUnknownRouteIsDropped covers spec §8 scenario S4.
func TestUnknownRouteIsDropped(t *testing.T) {
	client, server := newRunnerPair(t)
	defer client.Close()
	defer server.Close()
	// server registers no protocols at all.

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, client.Run(ctx))
	require.NoError(t, server.Run(ctx))

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer reqCancel()
	_, err := prodigy.Exchange[pongResponse](reqCtx, client.Sender(), "ping", "ping", server.LocalAddr(), pingRequest{N: 1})
	require.ErrorIs(t, err, prodigy.ErrTimeout)
}

// TestDoubleRespondIsRejected covers spec §8 scenario S5.
func TestDoubleRespondIsRejected(t *testing.T) {
	client, server := newRunnerPair(t)
	defer client.Close()
	defer server.Close()

	secondAttempt := make(chan error, 1)
	server.RegisterProtocol(prodigy.NewProtocol("ping").
		Handle("ping", prodigy.HandlerFunc(func(ctx context.Context, req *prodigy.Request) error {
			require.NoError(t, req.Respond(ctx, pongResponse{N: 1}))
			secondAttempt <- req.Respond(ctx, pongResponse{N: 2})
			return nil
		})).
		Build())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, client.Run(ctx))
	require.NoError(t, server.Run(ctx))

	reqCtx, reqCancel := context.WithTimeout(context.Background(), time.Second)
	defer reqCancel()
	resp, err := prodigy.Exchange[pongResponse](reqCtx, client.Sender(), "ping", "ping", server.LocalAddr(), pingRequest{N: 0})
	require.NoError(t, err)
	require.Equal(t, 1, resp.N)

	select {
	case err := <-secondAttempt:
		require.ErrorIs(t, err, prodigy.ErrAlreadyResponded)
	case <-time.After(time.Second):
		t.Fatal("handler never attempted its second respond")
	}
}

// TestRegisterProtocolOverwritesLastWriterWins covers spec §4.3: duplicate
// protocol names are permitted, and the later registration's handlers are
// the ones subsequently invoked.
func TestRegisterProtocolOverwritesLastWriterWins(t *testing.T) {
	client, server := newRunnerPair(t)
	defer client.Close()
	defer server.Close()

	require.NoError(t, server.RegisterProtocol(prodigy.NewProtocol("dup").
		Handle("ping", prodigy.HandlerFunc(func(ctx context.Context, req *prodigy.Request) error {
			return req.Respond(ctx, pongResponse{N: 1})
		})).
		Build()))

	require.NoError(t, server.RegisterProtocol(prodigy.NewProtocol("dup").
		Handle("ping", prodigy.HandlerFunc(func(ctx context.Context, req *prodigy.Request) error {
			return req.Respond(ctx, pongResponse{N: 2})
		})).
		Build()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, client.Run(ctx))
	require.NoError(t, server.Run(ctx))

	reqCtx, reqCancel := context.WithTimeout(context.Background(), time.Second)
	defer reqCancel()
	resp, err := prodigy.Exchange[pongResponse](reqCtx, client.Sender(), "dup", "ping", server.LocalAddr(), pingRequest{N: 0})
	require.NoError(t, err)
	require.Equal(t, 2, resp.N, "the second registration's handler must be the one invoked")
}
