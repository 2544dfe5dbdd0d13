// Package credcache persists the last successfully authenticated identity
// and access token and answers offline authentication while the network is
// down. The grace window is measured from the last successful online sync:
// every successful Store resets the clock.
package credcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sciqlabs/tutorlink/internal/logging"
	"github.com/sciqlabs/tutorlink/internal/models"
	"github.com/sciqlabs/tutorlink/internal/securestore"
)

var (
	// ErrNoCachedCredential means there was never a successful online
	// authentication on this install.
	ErrNoCachedCredential = errors.New("no cached credential")

	// ErrOfflineUnavailable means a cached credential exists but is
	// expired or the underlying store is inconsistent.
	ErrOfflineUnavailable = errors.New("offline authentication unavailable")
)

const (
	// DefaultMaxOfflineWindow bounds how long a cached credential stays
	// usable after its last online sync.
	DefaultMaxOfflineWindow = 7 * 24 * time.Hour

	// DefaultSyncInterval is how stale a credential may get before a
	// background resync becomes due. A hint, not an enforcement.
	DefaultSyncInterval = time.Hour
)

// Persisted layout: two string entries plus one boolean. Key names are an
// implementation detail; nothing external parses them.
const (
	credentialKey  = "auth.credential"
	lastSyncKey    = "auth.last_sync"
	offlineModeKey = "auth.offline_mode"
)

// storedCredential is the identity blob written to the secure store.
type storedCredential struct {
	Identity    models.Identity `json:"identity"`
	AccessToken string          `json:"access_token"`
}

// Cache is the offline credential cache. All time math goes through the
// injected clock so tests can pin the boundary cases.
type Cache struct {
	store        securestore.Store
	window       time.Duration
	syncInterval time.Duration
	now          func() time.Time
	log          logging.Logger
}

type Option func(*Cache)

func WithMaxOfflineWindow(d time.Duration) Option {
	return func(c *Cache) { c.window = d }
}

func WithSyncInterval(d time.Duration) Option {
	return func(c *Cache) { c.syncInterval = d }
}

// WithClock overrides the time source, a test seam.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(log logging.Logger) Option {
	return func(c *Cache) { c.log = log }
}

func New(store securestore.Store, opts ...Option) *Cache {
	c := &Cache{
		store:        store,
		window:       DefaultMaxOfflineWindow,
		syncInterval: DefaultSyncInterval,
		now:          time.Now,
		log:          logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store overwrites the cached credential and resets the sync clock. The
// blob and timestamp are written in one transaction when the store supports
// it, so no partially written state is observable.
func (c *Cache) Store(ctx context.Context, identity models.Identity, accessToken string) error {
	blob, err := json.Marshal(storedCredential{Identity: identity, AccessToken: accessToken})
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	cachedAt := c.now().UTC().Format(time.RFC3339Nano)

	write := func(ctx context.Context, s securestore.Store) error {
		if err := s.SetString(ctx, credentialKey, string(blob)); err != nil {
			return err
		}
		return s.SetString(ctx, lastSyncKey, cachedAt)
	}

	if tx, ok := c.store.(securestore.TxStore); ok {
		err = tx.WithTx(ctx, write)
	} else {
		err = write(ctx, c.store)
	}
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	c.log.Debug(ctx, "credential cached", "user", identity.Username)
	return nil
}

// load re-reads the store on every call: the store is shared with other
// subsystems and may have been cleared externally since the last read.
func (c *Cache) load(ctx context.Context) (*models.Credential, error) {
	blob, ok, err := c.store.GetString(ctx, credentialKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOfflineUnavailable, err)
	}
	if !ok {
		return nil, ErrNoCachedCredential
	}

	var sc storedCredential
	if err := json.Unmarshal([]byte(blob), &sc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOfflineUnavailable, err)
	}

	ts, ok, err := c.store.GetString(ctx, lastSyncKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOfflineUnavailable, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: missing sync timestamp", ErrOfflineUnavailable)
	}
	cachedAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOfflineUnavailable, err)
	}

	return &models.Credential{
		Identity:    sc.Identity,
		AccessToken: sc.AccessToken,
		CachedAt:    cachedAt,
	}, nil
}

// Available reports whether offline authentication would currently succeed:
// a credential exists, its token is still present in the store, and the
// grace window has not elapsed. Exactly at the window boundary the
// credential is still usable.
func (c *Cache) Available(ctx context.Context) bool {
	cred, err := c.load(ctx)
	if err != nil {
		return false
	}
	if cred.AccessToken == "" {
		return false
	}
	return c.now().Sub(cred.CachedAt) <= c.window
}

// AuthenticateOffline returns the cached credential for offline use.
// It fails with ErrNoCachedCredential when nothing was ever stored and
// ErrOfflineUnavailable when the credential is expired or the store is
// inconsistent.
func (c *Cache) AuthenticateOffline(ctx context.Context) (*models.Credential, error) {
	cred, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if cred.AccessToken == "" {
		return nil, fmt.Errorf("%w: access token cleared", ErrOfflineUnavailable)
	}
	if c.now().Sub(cred.CachedAt) > c.window {
		return nil, fmt.Errorf("%w: grace window elapsed", ErrOfflineUnavailable)
	}
	return cred, nil
}

// Clear deletes the cached credential, sync timestamp, and offline flag.
// Idempotent.
func (c *Cache) Clear(ctx context.Context) error {
	wipe := func(ctx context.Context, s securestore.Store) error {
		for _, key := range []string{credentialKey, lastSyncKey, offlineModeKey} {
			if err := s.Delete(ctx, key); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	if tx, ok := c.store.(securestore.TxStore); ok {
		err = tx.WithTx(ctx, wipe)
	} else {
		err = wipe(ctx, c.store)
	}
	if err != nil {
		return fmt.Errorf("failed to clear credential cache: %w", err)
	}
	return nil
}

// SyncDue reports whether the credential is stale enough for an
// opportunistic background resync. False when nothing is cached.
func (c *Cache) SyncDue(ctx context.Context) bool {
	cred, err := c.load(ctx)
	if err != nil {
		return false
	}
	return c.now().Sub(cred.CachedAt) > c.syncInterval
}

// TimeUntilExpiry returns how long the cached credential remains usable,
// floored at zero. ok is false when no cache exists.
func (c *Cache) TimeUntilExpiry(ctx context.Context) (time.Duration, bool) {
	cred, err := c.load(ctx)
	if err != nil {
		return 0, false
	}
	remaining := cred.CachedAt.Add(c.window).Sub(c.now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// LastSyncAt returns the time of the last successful online sync.
func (c *Cache) LastSyncAt(ctx context.Context) (time.Time, bool) {
	cred, err := c.load(ctx)
	if err != nil {
		return time.Time{}, false
	}
	return cred.CachedAt, true
}

// SetOfflineMode persists the offline-mode flag so diagnostics survive a
// restart.
func (c *Cache) SetOfflineMode(ctx context.Context, offline bool) error {
	return c.store.SetBool(ctx, offlineModeKey, offline)
}

// OfflineMode reads the persisted offline-mode flag, false when unset.
func (c *Cache) OfflineMode(ctx context.Context) bool {
	v, err := c.store.GetBool(ctx, offlineModeKey)
	if err != nil {
		return false
	}
	return v
}

// TokenExpiresAt introspects the cached access token's exp claim without
// verifying the signature. Advisory only, for expiry warnings; the server
// remains the authority on token validity.
func (c *Cache) TokenExpiresAt(ctx context.Context) (time.Time, bool) {
	cred, err := c.load(ctx)
	if err != nil || cred.AccessToken == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(cred.AccessToken, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
