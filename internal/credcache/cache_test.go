package credcache

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sciqlabs/tutorlink/internal/models"
	"github.com/stretchr/testify/require"
)

// fakeStore is a map-backed securestore.Store.
type fakeStore struct {
	strings map[string]string
	bools   map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{strings: map[string]string{}, bools: map[string]bool{}}
}

func (f *fakeStore) GetString(ctx context.Context, key string) (string, bool, error) {
	v, ok := f.strings[key]
	return v, ok, nil
}

func (f *fakeStore) SetString(ctx context.Context, key, value string) error {
	f.strings[key] = value
	return nil
}

func (f *fakeStore) GetBool(ctx context.Context, key string) (bool, error) {
	return f.bools[key], nil
}

func (f *fakeStore) SetBool(ctx context.Context, key string, value bool) error {
	f.bools[key] = value
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	delete(f.strings, key)
	delete(f.bools, key)
	return nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func setupCache(t *testing.T, opts ...Option) (*Cache, *fakeStore, *fakeClock) {
	t.Helper()
	store := newFakeStore()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.now)}, opts...)
	return New(store, opts...), store, clock
}

var testIdentity = models.Identity{UserID: "u-1", Username: "ada", DisplayName: "Ada"}

func TestStore_ThenAuthenticateOffline_RoundTrip(t *testing.T) {
	c, _, _ := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, testIdentity, "tok-1"))
	require.True(t, c.Available(ctx))

	cred, err := c.AuthenticateOffline(ctx)
	require.NoError(t, err)
	require.Equal(t, testIdentity, cred.Identity)
	require.Equal(t, "tok-1", cred.AccessToken)
}

func TestAuthenticateOffline_NeverStored(t *testing.T) {
	c, _, _ := setupCache(t)

	_, err := c.AuthenticateOffline(context.Background())
	require.ErrorIs(t, err, ErrNoCachedCredential)
	require.False(t, c.Available(context.Background()))
}

func TestAvailable_GraceWindowBoundary(t *testing.T) {
	c, _, clock := setupCache(t)
	ctx := context.Background()
	require.NoError(t, c.Store(ctx, testIdentity, "tok"))

	// exactly at the window the credential is still usable
	clock.advance(DefaultMaxOfflineWindow)
	require.True(t, c.Available(ctx))

	// one nanosecond past, it is not
	clock.advance(time.Nanosecond)
	require.False(t, c.Available(ctx))

	_, err := c.AuthenticateOffline(ctx)
	require.ErrorIs(t, err, ErrOfflineUnavailable)
}

func TestStore_ResetsGraceWindow(t *testing.T) {
	c, _, clock := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, testIdentity, "tok"))
	clock.advance(6 * 24 * time.Hour)
	require.True(t, c.Available(ctx))

	// a fresh online sync restarts the clock
	require.NoError(t, c.Store(ctx, testIdentity, "tok2"))
	clock.advance(6 * 24 * time.Hour)
	require.True(t, c.Available(ctx))
}

func TestAvailable_DefensiveRecheck_ExternalClear(t *testing.T) {
	c, store, _ := setupCache(t)
	ctx := context.Background()
	require.NoError(t, c.Store(ctx, testIdentity, "tok"))

	// another subsystem wiped the store behind our back
	store.strings = map[string]string{}

	require.False(t, c.Available(ctx))
	_, err := c.AuthenticateOffline(ctx)
	require.ErrorIs(t, err, ErrNoCachedCredential)
}

func TestAuthenticateOffline_InconsistentStore(t *testing.T) {
	c, store, _ := setupCache(t)
	ctx := context.Background()
	require.NoError(t, c.Store(ctx, testIdentity, "tok"))

	// credential blob survives but the timestamp is gone
	delete(store.strings, lastSyncKey)

	_, err := c.AuthenticateOffline(ctx)
	require.ErrorIs(t, err, ErrOfflineUnavailable)
}

func TestClear_Idempotent(t *testing.T) {
	c, _, _ := setupCache(t)
	ctx := context.Background()
	require.NoError(t, c.Store(ctx, testIdentity, "tok"))

	require.NoError(t, c.Clear(ctx))
	require.NoError(t, c.Clear(ctx))

	_, err := c.AuthenticateOffline(ctx)
	require.ErrorIs(t, err, ErrNoCachedCredential)
}

func TestSyncDue(t *testing.T) {
	c, _, clock := setupCache(t)
	ctx := context.Background()

	require.False(t, c.SyncDue(ctx), "nothing cached, nothing to resync")

	require.NoError(t, c.Store(ctx, testIdentity, "tok"))
	require.False(t, c.SyncDue(ctx))

	clock.advance(DefaultSyncInterval + time.Minute)
	require.True(t, c.SyncDue(ctx))
}

func TestTimeUntilExpiry(t *testing.T) {
	c, _, clock := setupCache(t)
	ctx := context.Background()

	_, ok := c.TimeUntilExpiry(ctx)
	require.False(t, ok)

	require.NoError(t, c.Store(ctx, testIdentity, "tok"))
	clock.advance(2 * 24 * time.Hour)

	d, ok := c.TimeUntilExpiry(ctx)
	require.True(t, ok)
	require.Equal(t, 5*24*time.Hour, d)

	// floored at zero once expired
	clock.advance(10 * 24 * time.Hour)
	d, ok = c.TimeUntilExpiry(ctx)
	require.True(t, ok)
	require.Equal(t, time.Duration(0), d)
}

func TestOfflineModeFlag(t *testing.T) {
	c, _, _ := setupCache(t)
	ctx := context.Background()

	require.False(t, c.OfflineMode(ctx))
	require.NoError(t, c.SetOfflineMode(ctx, true))
	require.True(t, c.OfflineMode(ctx))
}

func TestTokenExpiresAt(t *testing.T) {
	c, _, clock := setupCache(t)
	ctx := context.Background()

	exp := clock.now().Add(30 * time.Minute).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	require.NoError(t, c.Store(ctx, testIdentity, signed))

	got, ok := c.TokenExpiresAt(ctx)
	require.True(t, ok)
	require.True(t, got.Equal(exp))
}

func TestTokenExpiresAt_NotAJWT(t *testing.T) {
	c, _, _ := setupCache(t)
	ctx := context.Background()
	require.NoError(t, c.Store(ctx, testIdentity, "opaque-token"))

	_, ok := c.TokenExpiresAt(ctx)
	require.False(t, ok)
}

func TestLastSyncAt(t *testing.T) {
	c, _, clock := setupCache(t)
	ctx := context.Background()

	_, ok := c.LastSyncAt(ctx)
	require.False(t, ok)

	require.NoError(t, c.Store(ctx, testIdentity, "tok"))
	ts, ok := c.LastSyncAt(ctx)
	require.True(t, ok)
	require.True(t, ts.Equal(clock.now()))
}
