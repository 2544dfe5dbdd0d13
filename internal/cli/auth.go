package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sciqlabs/tutorlink/internal/authsync"
	"github.com/sciqlabs/tutorlink/internal/common"
	"github.com/sciqlabs/tutorlink/internal/credcache"
	"github.com/sciqlabs/tutorlink/internal/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials and authenticates through the coordinator:
// online when the backend is reachable (with retries and token refresh),
// falling back to the offline credential cache when it is not.
//
// The password byte slice is wiped before returning. Cache-related failures
// are translated into user-facing messages; other errors are returned
// unchanged.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.coordinator.Authenticate(ctx,
		func(ctx context.Context) (models.Identity, string, error) {
			return a.api.Login(ctx, userName, string(password))
		},
		authsync.WithOnTokenExpired(a.api.Refresh),
	)
	if err != nil {
		switch {
		case errors.Is(err, credcache.ErrNoCachedCredential):
			printlnFn("Server is unreachable and no cached session exists on this device.")
		case errors.Is(err, credcache.ErrOfflineUnavailable):
			printlnFn("Server is unreachable and the cached session can no longer be used offline.")
		default:
			printlnFn("Login unsuccessful:", err.Error())
		}
		return err
	}

	a.userName = res.Identity.Username
	if a.userName == "" {
		a.userName = userName
	}

	if res.Offline {
		// restore the cached token so API calls carry it once we reconnect
		a.api.SetTokens(res.AccessToken, "")
		printlnFn(fmt.Sprintf("Logged in offline. Cached session valid for %s.",
			res.TimeUntilExpiry.Round(time.Minute)))
		a.warnIfExpiringSoon(res.TimeUntilExpiry)
	} else {
		printlnFn("Login successful!")
	}
	return nil
}

// Logout clears the cached credential and forgets the in-memory session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.cache.Clear(ctx); err != nil {
		printlnFn("Logout failed:", err.Error())
		return err
	}
	a.api.SetTokens("", "")
	a.userName = ""
	printlnFn("Logged out.")
	return nil
}

func (a *App) warnIfExpiringSoon(remaining time.Duration) {
	if remaining <= a.config.ExpiryWarnThreshold {
		printlnFn(fmt.Sprintf("Warning: offline access expires in %s. Connect to the internet to extend it.",
			remaining.Round(time.Minute)))
	}
}
