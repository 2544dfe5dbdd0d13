package cli

import (
	"context"
	"fmt"
	"time"
)

// Status prints a connectivity and session summary: current mode, time of
// the last reachability probe, last successful sync, remaining offline
// validity, and whether a resync is due.
func (a *App) Status(ctx context.Context) error {
	printlnFn("Mode:", string(a.coordinator.State()))

	current := a.monitor.Current()
	if !current.ProbedAt.IsZero() {
		printlnFn("Last probe:", current.ProbedAt.Format(time.RFC1123),
			fmt.Sprintf("(connected: %t)", current.Connected))
	}

	if !a.isLoggedIn() {
		printlnFn("Not logged in.")
		return nil
	}
	printlnFn("User:", a.userName)

	if last, ok := a.cache.LastSyncAt(ctx); ok {
		printlnFn("Last sync:", last.Format(time.RFC1123))
	} else {
		printlnFn("Last sync: never")
		return nil
	}

	remaining, ok := a.cache.TimeUntilExpiry(ctx)
	if ok {
		printlnFn("Offline access valid for:", remaining.Round(time.Minute).String())
		a.warnIfExpiringSoon(remaining)
	}

	if exp, ok := a.cache.TokenExpiresAt(ctx); ok {
		printlnFn("Access token expires:", exp.Format(time.RFC1123))
	}

	if a.cache.SyncDue(ctx) {
		printlnFn("A sync with the server is due; run 'sync' when online.")
	}
	return nil
}

// Sync forces a resync with the backend, refreshing the token pair and
// resetting the offline grace window.
func (a *App) Sync(ctx context.Context) error {
	if err := a.coordinator.Resync(ctx); err != nil {
		printlnFn("Sync failed:", err.Error())
		return err
	}
	printlnFn("Sync completed.")
	return nil
}
