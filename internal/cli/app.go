package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/sciqlabs/tutorlink/internal/api"
	"github.com/sciqlabs/tutorlink/internal/authsync"
	"github.com/sciqlabs/tutorlink/internal/config"
	"github.com/sciqlabs/tutorlink/internal/credcache"
	"github.com/sciqlabs/tutorlink/internal/cryptox"
	"github.com/sciqlabs/tutorlink/internal/logging"
	"github.com/sciqlabs/tutorlink/internal/models"
	"github.com/sciqlabs/tutorlink/internal/netwatch"
	"github.com/sciqlabs/tutorlink/internal/netx"
	"github.com/sciqlabs/tutorlink/internal/securestore"

	_ "modernc.org/sqlite"
)

// clientIDKey is where the per-install identifier lives in the secure store.
const clientIDKey = "client.id"

// App wires the client subsystems together and carries the interactive
// session state (current user, input reader).
type App struct {
	config      *config.Config
	api         *api.Client
	db          *sql.DB
	cache       *credcache.Cache
	monitor     *netwatch.Monitor
	coordinator *authsync.Coordinator
	log         logging.Logger
	reader      *bufio.Reader
	userName    string
}

// NewApp builds the full client stack from configuration: encryption key,
// secure store over sqlite, API client with a stable per-install ID,
// connectivity monitor probing the backend health endpoint, credential
// cache, and the auth coordinator seeded with an immediate probe.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	key, err := cryptox.LoadOrCreateKey(c.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("error loading encryption key: %w", err)
	}

	db, err := securestore.Open(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	store := securestore.NewSQLiteStore(db, key)

	clientID, err := ensureClientID(ctx, store)
	if err != nil {
		db.Close()
		return nil, err
	}

	apiClient := api.New(c.ServerEndpointURL,
		api.WithClientID(clientID),
		api.WithLogger(log),
	)

	prober := netx.NewHTTPProber(apiClient.HealthURL())
	prober.Timeout = c.ProbeTimeout
	monitor := netwatch.New(prober,
		netwatch.WithInterval(c.OnlineCheckInterval),
		netwatch.WithProbeTimeout(c.ProbeTimeout),
		netwatch.WithLogger(log),
	)

	cache := credcache.New(store,
		credcache.WithMaxOfflineWindow(c.MaxOfflineWindow),
		credcache.WithSyncInterval(c.SyncInterval),
		credcache.WithLogger(log),
	)

	a := &App{
		config:  c,
		api:     apiClient,
		db:      db,
		cache:   cache,
		monitor: monitor,
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
	}
	a.coordinator = authsync.New(ctx, monitor, cache,
		authsync.WithResync(a.resyncOperation),
		authsync.WithLogger(log),
	)

	return a, nil
}

// ensureClientID loads the per-install identifier, generating and persisting
// one on first run.
func ensureClientID(ctx context.Context, store securestore.Store) (string, error) {
	id, ok, err := store.GetString(ctx, clientIDKey)
	if err != nil {
		return "", fmt.Errorf("error reading client id: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}

	id = uuid.NewString()
	if err := store.SetString(ctx, clientIDKey, id); err != nil {
		return "", fmt.Errorf("error saving client id: %w", err)
	}
	return id, nil
}

// resyncOperation revalidates the session against the backend without user
// interaction: it rotates the token pair and re-verifies reachability, then
// re-caches the current identity under a fresh sync timestamp.
func (a *App) resyncOperation(ctx context.Context) (models.Identity, string, error) {
	cred, err := a.cache.AuthenticateOffline(ctx)
	if err != nil {
		return models.Identity{}, "", err
	}

	if err := a.api.Refresh(ctx); err != nil {
		return models.Identity{}, "", err
	}

	return cred.Identity, a.api.AccessToken(), nil
}

// Run starts the connectivity watcher and the interactive loop, blocking
// until the user exits or ctx is canceled.
func (a *App) Run(ctx context.Context) {
	defer a.db.Close()
	defer a.coordinator.Close()

	a.monitor.Start(ctx)
	defer a.monitor.Stop()

	go a.coordinator.Run(ctx)

	printlnFn("TutorLink — your study companion. Type 'help' for commands.")
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

// status renders the short prompt suffix, e.g. "alice online" or
// "not logged in".
func (a *App) status() string {
	if !a.isLoggedIn() {
		return "not logged in"
	}
	return fmt.Sprintf("%s %s", a.userName, a.coordinator.State())
}
