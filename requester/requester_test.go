package requester

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/beaconwatch/indexer/config/params"
	"github.com/beaconwatch/indexer/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newTestClient(rps int, retries uint64) *Client {
	return New(Options{
		FullNodeURL:       "http://full",
		ArchiveNodeURL:    "http://archive",
		FullNodeLimit:     2,
		ArchiveNodeLimit:  4,
		RequestsPerSecond: rps,
		Retries:           retries,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
	})
}

func TestDo_Success(t *testing.T) {
	c := newTestClient(100, 3)
	var gotURL string
	missed, err := c.Do(context.Background(), ArchiveNode, PropagateErrors, func(_ context.Context, baseURL string) error {
		gotURL = baseURL
		return nil
	})
	require.NoError(t, err)
	require.False(t, missed)
	require.Equal(t, "http://archive", gotURL)
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	c := newTestClient(100, 4)
	var calls int32
	missed, err := c.Do(context.Background(), FullNode, PropagateErrors, func(context.Context, string) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("upstream hiccup")
		}
		return nil
	})
	require.NoError(t, err)
	require.False(t, missed)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDo_ExhaustsRetries(t *testing.T) {
	c := newTestClient(100, 3)
	var calls int32
	_, err := c.Do(context.Background(), FullNode, PropagateErrors, func(context.Context, string) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("still down")
	})
	require.Error(t, err)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDo_NotFoundIsTerminal(t *testing.T) {
	c := newTestClient(100, 5)
	var calls int32
	// Under PropagateErrors the 404 surfaces without burning retries.
	_, err := c.Do(context.Background(), FullNode, PropagateErrors, func(context.Context, string) error {
		atomic.AddInt32(&calls, 1)
		return ErrNotFound
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_MissedOn404(t *testing.T) {
	c := newTestClient(100, 5)
	missed, err := c.Do(context.Background(), ArchiveNode, MissedOn404, func(context.Context, string) error {
		return ErrNotFound
	})
	require.NoError(t, err)
	require.True(t, missed)
}

func TestDo_PoolGateCapsConcurrency(t *testing.T) {
	c := newTestClient(1000, 1)
	var inFlight, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Do(context.Background(), FullNode, PropagateErrors, func(context.Context, string) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2), "full pool admits at most its configured limit")
}

func TestDo_RateLimiterSpacesCalls(t *testing.T) {
	// With a single-token bucket, call N through an idle client waits
	// (N-1)/rps: 10 calls at 2 per second cannot finish before 4.5s.
	c := newTestClient(2, 1)
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Do(context.Background(), ArchiveNode, PropagateErrors, func(context.Context, string) error {
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.GreaterOrEqual(t, time.Since(start), 4500*time.Millisecond)
}

func TestNew_FloorsRetryBudget(t *testing.T) {
	// A zero retry budget must mean one attempt, not an unbounded loop.
	c := New(Options{
		FullNodeURL:       "http://full",
		ArchiveNodeURL:    "http://archive",
		FullNodeLimit:     1,
		ArchiveNodeLimit:  1,
		RequestsPerSecond: 100,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
	})
	var calls int32
	_, err := c.Do(context.Background(), FullNode, PropagateErrors, func(context.Context, string) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("still down")
	})
	require.Error(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSelectPool_FarBehindForcesArchive(t *testing.T) {
	prev := params.ChainProfile()
	params.OverrideChainProfile(params.MainnetConfig())
	defer params.OverrideChainProfile(prev)

	head := types.Slot(10000)
	require.Equal(t, ArchiveNode, SelectPool(FullNode, head-251, head))
	require.Equal(t, FullNode, SelectPool(FullNode, head-250, head))
	require.Equal(t, ArchiveNode, SelectPool(ArchiveNode, head-1, head))
}

func TestSelectAttestationPool_HeadProximity(t *testing.T) {
	prev := params.ChainProfile()
	params.OverrideChainProfile(params.MainnetConfig())
	defer params.OverrideChainProfile(prev)

	head := types.Slot(10000)
	require.Equal(t, ArchiveNode, SelectAttestationPool(head-3, head))
	require.Equal(t, ArchiveNode, SelectAttestationPool(head-5, head))
	require.Equal(t, FullNode, SelectAttestationPool(head-6, head))
	require.Equal(t, ArchiveNode, SelectAttestationPool(head-300, head))
}
