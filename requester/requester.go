// Package requester implements the reliable beacon-request client. Every
// outgoing call is funneled through one of two concurrency-gated node pools
// (full and archive), a process-global token bucket, and an exponential
// retry loop. A 404 on a slot-addressed endpoint is not an error here; under
// the MissedOn404 policy it surfaces as a first-class "missed" result.
package requester

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

var log = logrus.WithField("prefix", "requester")

// Pool identifies which beacon node a request should go to.
type Pool int

const (
	// FullNode is the small pool protecting the real-time node.
	FullNode Pool = iota
	// ArchiveNode is the larger pool protecting the archive node.
	ArchiveNode
)

func (p Pool) String() string {
	if p == FullNode {
		return "full"
	}
	return "archive"
}

// Policy selects how terminal errors are handled after retries.
type Policy int

const (
	// PropagateErrors surfaces every terminal error to the caller.
	PropagateErrors Policy = iota
	// MissedOn404 converts ErrNotFound into a missed-slot result.
	MissedOn404
)

// ErrNotFound is returned by call functions when the upstream answered 404.
// It is terminal: a missing block will not appear on retry.
var ErrNotFound = errors.New("not found")

// CallFn performs a single attempt against the given base URL.
type CallFn func(ctx context.Context, baseURL string) error

// Options configures a Client.
type Options struct {
	FullNodeURL      string
	ArchiveNodeURL   string
	FullNodeLimit    int64
	ArchiveNodeLimit int64
	// RequestsPerSecond refills the global token bucket. The bucket holds a
	// single token, so concurrent calls are spaced one refill apart.
	RequestsPerSecond int
	// Retries is the total attempt budget per call.
	Retries uint64
	// InitialBackoff is the delay before the second attempt; it doubles
	// per attempt with jitter, capped at MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client multiplexes requests between the full and archive nodes.
type Client struct {
	fullURL     string
	archiveURL  string
	fullGate    *semaphore.Weighted
	archiveGate *semaphore.Weighted
	limiter     *rate.Limiter
	retries     uint64
	initialWait time.Duration
	maxWait     time.Duration
}

// New builds a Client from options, applying defaults for zero backoff
// settings and flooring the attempt budget at one.
func New(o Options) *Client {
	initial := o.InitialBackoff
	if initial == 0 {
		initial = 500 * time.Millisecond
	}
	maxWait := o.MaxBackoff
	if maxWait == 0 {
		maxWait = 30 * time.Second
	}
	retries := o.Retries
	if retries == 0 {
		retries = 1
	}
	return &Client{
		fullURL:     o.FullNodeURL,
		archiveURL:  o.ArchiveNodeURL,
		fullGate:    semaphore.NewWeighted(o.FullNodeLimit),
		archiveGate: semaphore.NewWeighted(o.ArchiveNodeLimit),
		// Burst of 1 keeps the bucket at "sleep until the next refill"
		// pacing: call N through an idle client waits (N-1)/rps.
		limiter:     rate.NewLimiter(rate.Limit(o.RequestsPerSecond), 1),
		retries:     retries,
		initialWait: initial,
		maxWait:     maxWait,
	}
}

// Do runs fn against the selected pool's node. Each attempt holds one pool
// slot and one rate-limiter token. Transient failures are retried with
// exponential backoff; ErrNotFound short-circuits the retry loop and, under
// MissedOn404, is reported as missed=true instead of an error.
func (c *Client) Do(ctx context.Context, pool Pool, policy Policy, fn CallFn) (missed bool, err error) {
	gate, baseURL := c.fullGate, c.fullURL
	if pool == ArchiveNode {
		gate, baseURL = c.archiveGate, c.archiveURL
	}

	attempt := func() error {
		if err := gate.Acquire(ctx, 1); err != nil {
			return backoff.Permanent(err)
		}
		defer gate.Release(1)
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		requestsTotal.WithLabelValues(pool.String()).Inc()
		err := fn(ctx, baseURL)
		if errors.Is(err, ErrNotFound) {
			// Terminal: retrying a 404 cannot help.
			return backoff.Permanent(err)
		}
		if err != nil {
			retriesTotal.WithLabelValues(pool.String()).Inc()
			log.WithError(err).WithField("pool", pool.String()).Debug("Request attempt failed")
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialWait
	bo.MaxInterval = c.maxWait
	bo.MaxElapsedTime = 0 // bounded by the retry count, not wall time

	err = backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, c.retries-1), ctx))
	if errors.Is(err, ErrNotFound) && policy == MissedOn404 {
		return true, nil
	}
	if err != nil {
		requestFailuresTotal.WithLabelValues(pool.String()).Inc()
		return false, errors.Wrapf(err, "request failed on %s pool", pool)
	}
	return false, nil
}
