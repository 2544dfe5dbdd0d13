// Package authsync orchestrates authentication across connectivity loss.
// The coordinator is a two-state machine (online/offline) seeded by an
// immediate probe: online authentication runs through the retry executor
// and writes through the credential cache; connectivity failures fall back
// to offline authentication; reconnection makes a background resync
// eligible.
package authsync

import (
	"context"
	"fmt"
	"sync"

	"github.com/sciqlabs/tutorlink/internal/credcache"
	"github.com/sciqlabs/tutorlink/internal/logging"
	"github.com/sciqlabs/tutorlink/internal/metrics"
	"github.com/sciqlabs/tutorlink/internal/models"
	"github.com/sciqlabs/tutorlink/internal/neterr"
	"github.com/sciqlabs/tutorlink/internal/netwatch"
	"github.com/sciqlabs/tutorlink/internal/retry"
	"golang.org/x/sync/singleflight"
)

// State is the coordinator's connectivity mode. It never implies credential
// validity; that is the cache's grace-window check.
type State string

const (
	StateOnline  State = "online"
	StateOffline State = "offline"
)

// ConnectivitySource is the slice of the monitor the coordinator needs.
// *netwatch.Monitor satisfies it.
type ConnectivitySource interface {
	Current() netwatch.Status
	Subscribe() (<-chan netwatch.Status, context.CancelFunc)
	ProbeNow(ctx context.Context) netwatch.Status
}

// OnlineAuthFunc performs online authentication, returning the identity and
// access token on success.
type OnlineAuthFunc func(ctx context.Context) (models.Identity, string, error)

// Coordinator is the single authenticate() entry point for the application.
type Coordinator struct {
	monitor ConnectivitySource
	cache   *credcache.Cache
	policy  retry.Policy
	resync  OnlineAuthFunc
	log     logging.Logger
	sf      singleflight.Group

	mu      sync.Mutex
	state   State
	subs    map[uint64]chan State
	nextSub uint64
	closed  bool
}

type Option func(*Coordinator)

func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Coordinator) { c.policy = p }
}

// WithResync installs the operation run opportunistically after
// reconnection when the cached credential is stale.
func WithResync(fn OnlineAuthFunc) Option {
	return func(c *Coordinator) { c.resync = fn }
}

func WithLogger(log logging.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// New builds a coordinator and seeds its state with an immediate probe.
func New(ctx context.Context, monitor ConnectivitySource, cache *credcache.Cache, opts ...Option) *Coordinator {
	c := &Coordinator{
		monitor: monitor,
		cache:   cache,
		policy:  retry.DefaultPolicy(),
		log:     logging.NewNopLogger(),
		subs:    make(map[uint64]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}

	if monitor.ProbeNow(ctx).Connected {
		c.state = StateOnline
	} else {
		c.state = StateOffline
	}
	c.log.Info(ctx, "coordinator initialized", "state", string(c.state))

	return c
}

// State returns the current mode.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// States returns a feed of state transitions plus an unsubscribe handle.
// Subscriber failures are isolated; a slow subscriber is skipped.
func (c *Coordinator) States() (<-chan State, context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 4)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if ch, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
	}
}

// Close terminates the transition feed for all subscribers.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Coordinator) setState(ctx context.Context, s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
		}
	}
	c.mu.Unlock()

	c.log.Info(ctx, "switched mode", "state", string(s))
}

type authCall struct {
	onTokenExpired func(ctx context.Context) error
}

type AuthOption func(*authCall)

// WithOnTokenExpired supplies the credential-refresh hook handed to the
// retry executor for this call.
func WithOnTokenExpired(fn func(ctx context.Context) error) AuthOption {
	return func(a *authCall) { a.onTokenExpired = fn }
}

type authPayload struct {
	identity models.Identity
	token    string
}

// Authenticate is the application's single entry point.
//
// Online: the operation runs through the retry executor; success writes
// through the credential cache. An online attempt that exhausts retries
// with a connectivity classification flips the coordinator offline and
// falls through to the offline path. Offline: the cached credential is
// returned if inside the grace window; cache-miss and expiry failures
// surface verbatim, never masked as success.
//
// Concurrent calls are collapsed into one in-flight authentication.
func (c *Coordinator) Authenticate(ctx context.Context, online OnlineAuthFunc, opts ...AuthOption) (*models.AuthResult, error) {
	call := authCall{}
	for _, opt := range opts {
		opt(&call)
	}

	v, err, _ := c.sf.Do("authenticate", func() (any, error) {
		return c.authenticate(ctx, online, call)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.AuthResult), nil
}

func (c *Coordinator) authenticate(ctx context.Context, online OnlineAuthFunc, call authCall) (*models.AuthResult, error) {
	if c.State() == StateOnline {
		payload, err := c.runOnline(ctx, online, call)
		if err == nil {
			if err := c.writeThrough(ctx, payload); err != nil {
				return nil, err
			}
			return &models.AuthResult{
				Identity:    payload.identity,
				AccessToken: payload.token,
			}, nil
		}

		ne := neterr.Classify(err)
		if ne.Kind != neterr.KindNoConnection && ne.Kind != neterr.KindTimeout {
			return nil, err
		}

		// connectivity gone mid-call: flip offline and try the cache
		c.setState(ctx, StateOffline)
		c.log.Warn(ctx, "online authentication unreachable, falling back to offline",
			"kind", string(ne.Kind))
	}

	return c.authenticateOffline(ctx)
}

func (c *Coordinator) runOnline(ctx context.Context, online OnlineAuthFunc, call authCall) (authPayload, error) {
	retryOpts := []retry.Option{
		retry.WithLogger(c.log),
		retry.WithOnRefreshFailed(func(ctx context.Context) {
			if err := c.cache.Clear(ctx); err != nil {
				c.log.Error(ctx, "failed to clear credentials after refresh failure", "error", err)
			}
		}),
	}
	if call.onTokenExpired != nil {
		retryOpts = append(retryOpts, retry.WithOnTokenExpired(call.onTokenExpired))
	}

	return retry.Do(ctx, c.policy, func(ctx context.Context) (authPayload, error) {
		identity, token, err := online(ctx)
		if err != nil {
			return authPayload{}, err
		}
		return authPayload{identity: identity, token: token}, nil
	}, retryOpts...)
}

func (c *Coordinator) writeThrough(ctx context.Context, payload authPayload) error {
	if err := c.cache.Store(ctx, payload.identity, payload.token); err != nil {
		return fmt.Errorf("offline data saving error: %w", err)
	}
	if err := c.cache.SetOfflineMode(ctx, false); err != nil {
		c.log.Warn(ctx, "failed to persist offline flag", "error", err)
	}
	return nil
}

func (c *Coordinator) authenticateOffline(ctx context.Context) (*models.AuthResult, error) {
	cred, err := c.cache.AuthenticateOffline(ctx)
	if err != nil {
		return nil, err
	}

	metrics.OfflineFallbacks.Inc()
	if err := c.cache.SetOfflineMode(ctx, true); err != nil {
		c.log.Warn(ctx, "failed to persist offline flag", "error", err)
	}

	ttl, _ := c.cache.TimeUntilExpiry(ctx)
	c.log.Info(ctx, "authenticated from offline cache",
		"user", cred.Identity.Username, "expires_in", ttl)

	return &models.AuthResult{
		Identity:        cred.Identity,
		AccessToken:     cred.AccessToken,
		Offline:         true,
		TimeUntilExpiry: ttl,
	}, nil
}

// Run watches connectivity flips until ctx is done: disconnection flips the
// state machine offline, reconnection flips it online and, when a resync
// operation is configured and the credential is stale, attempts an
// opportunistic resync. Reconnection alone never forces one.
func (c *Coordinator) Run(ctx context.Context) {
	ch, cancel := c.monitor.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-ch:
			if !ok {
				return
			}
			if !status.Connected {
				c.setState(ctx, StateOffline)
				continue
			}
			c.setState(ctx, StateOnline)
			if c.resync != nil && c.cache.SyncDue(ctx) {
				if err := c.Resync(ctx); err != nil {
					c.log.Warn(ctx, "background resync failed", "error", err)
				}
			}
		}
	}
}

// Resync re-runs online authentication to refresh the cached credential's
// sync timestamp. The CLI's sync command calls it directly; Run calls it
// opportunistically.
func (c *Coordinator) Resync(ctx context.Context) error {
	if c.resync == nil {
		return fmt.Errorf("no resync operation configured")
	}

	payload, err := c.runOnline(ctx, c.resync, authCall{})
	if err != nil {
		metrics.Resyncs.WithLabelValues("failure").Inc()
		return err
	}
	if err := c.writeThrough(ctx, payload); err != nil {
		metrics.Resyncs.WithLabelValues("failure").Inc()
		return err
	}

	metrics.Resyncs.WithLabelValues("success").Inc()
	c.log.Info(ctx, "resync completed", "user", payload.identity.Username)
	return nil
}
