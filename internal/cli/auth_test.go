package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sciqlabs/tutorlink/internal/api"
	"github.com/sciqlabs/tutorlink/internal/authsync"
	"github.com/sciqlabs/tutorlink/internal/config"
	"github.com/sciqlabs/tutorlink/internal/credcache"
	"github.com/sciqlabs/tutorlink/internal/models"
	"github.com/sciqlabs/tutorlink/internal/netwatch"
	"github.com/sciqlabs/tutorlink/internal/netx"
	"github.com/sciqlabs/tutorlink/internal/retry"
)

func stubInputs(t *testing.T, username string, password []byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return username, nil }
	getPassword = func(_ io.Writer) ([]byte, error) { return password, nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

func silencePrintln(t *testing.T) {
	t.Helper()
	orig := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = orig })
}

// memStore is an in-memory securestore.Store for wiring a real cache into
// the App without sqlite.
type memStore struct {
	strings map[string]string
	bools   map[string]bool
}

func newMemStore() *memStore {
	return &memStore{strings: map[string]string{}, bools: map[string]bool{}}
}

func (s *memStore) GetString(_ context.Context, key string) (string, bool, error) {
	v, ok := s.strings[key]
	return v, ok, nil
}
func (s *memStore) SetString(_ context.Context, key, value string) error {
	s.strings[key] = value
	return nil
}
func (s *memStore) GetBool(_ context.Context, key string) (bool, error) {
	return s.bools[key], nil
}
func (s *memStore) SetBool(_ context.Context, key string, value bool) error {
	s.bools[key] = value
	return nil
}
func (s *memStore) Delete(_ context.Context, key string) error {
	delete(s.strings, key)
	delete(s.bools, key)
	return nil
}

// newTestApp builds an App around a real cache, monitor, and coordinator.
// reachable controls how the connectivity probe answers.
func newTestApp(t *testing.T, baseURL string, reachable bool) (*App, *memStore) {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()

	store := newMemStore()
	cache := credcache.New(store)
	apiClient := api.New(baseURL)

	prober := netx.ProberFunc(func(context.Context) error {
		if reachable {
			return nil
		}
		return errors.New("unreachable")
	})
	monitor := netwatch.New(prober, netwatch.WithInterval(time.Hour))
	t.Cleanup(monitor.Stop)

	a := &App{
		config:  cfg,
		api:     apiClient,
		cache:   cache,
		monitor: monitor,
		reader:  bufio.NewReader(strings.NewReader("")),
	}
	a.coordinator = authsync.New(context.Background(), monitor, cache,
		authsync.WithRetryPolicy(retry.Policy{MaxAttempts: 1}),
		authsync.WithResync(a.resyncOperation),
	)
	t.Cleanup(a.coordinator.Close)

	return a, store
}

func TestLogin_Online(t *testing.T) {
	silencePrintln(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"user_id":      "u-1",
			"username":     "alice",
			"access_token": "tok-1",
		})
	}))
	defer srv.Close()

	a, _ := newTestApp(t, srv.URL, true)
	stubInputs(t, "alice", []byte("secret"))

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, "alice", a.userName)
	assert.True(t, a.isLoggedIn())

	// successful online login must seed the offline cache
	assert.True(t, a.cache.Available(context.Background()))
}

func TestLogin_OfflineFallback(t *testing.T) {
	silencePrintln(t)

	a, _ := newTestApp(t, "http://127.0.0.1:1", false)

	// a previous online session left a cached credential behind
	require.NoError(t, a.cache.Store(context.Background(),
		models.Identity{UserID: "u-1", Username: "alice"}, "cached-token"))

	stubInputs(t, "alice", []byte("secret"))

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, "alice", a.userName)
	assert.Equal(t, "cached-token", a.api.AccessToken())
	assert.Equal(t, authsync.StateOffline, a.coordinator.State())
}

func TestLogin_OfflineNoCache(t *testing.T) {
	silencePrintln(t)

	a, _ := newTestApp(t, "http://127.0.0.1:1", false)
	stubInputs(t, "alice", []byte("secret"))

	err := a.Login(context.Background())
	require.ErrorIs(t, err, credcache.ErrNoCachedCredential)
	assert.False(t, a.isLoggedIn())
}

func TestLogout_ClearsSession(t *testing.T) {
	silencePrintln(t)

	a, store := newTestApp(t, "http://127.0.0.1:1", true)
	a.userName = "alice"
	a.api.SetTokens("tok", "ref")
	require.NoError(t, a.cache.Store(context.Background(),
		models.Identity{UserID: "u-1", Username: "alice"}, "tok"))

	require.NoError(t, a.Logout(context.Background()))

	assert.False(t, a.isLoggedIn())
	assert.Empty(t, a.api.AccessToken())
	assert.Empty(t, store.strings)
}

func TestStatus_NotLoggedIn(t *testing.T) {
	var lines []string
	orig := printlnFn
	printlnFn = func(args ...any) (int, error) {
		lines = append(lines, strings.TrimSpace(fmt.Sprintln(args...)))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })

	a, _ := newTestApp(t, "http://127.0.0.1:1", false)
	require.NoError(t, a.Status(context.Background()))

	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "Mode: offline")
	assert.Contains(t, joined, "Not logged in.")
}
