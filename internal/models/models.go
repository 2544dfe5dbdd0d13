// Package models holds the value types shared by the auth/connectivity core:
// the authenticated identity, the locally cached credential, and the result
// returned to callers of the coordinator.
package models

import "time"

// Identity is the authenticated user as validated at the API boundary.
// It is always a typed struct, never a loose map.
type Identity struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// Credential is the last successfully authenticated identity together with
// its access token and the time of the last successful online sync.
// It is owned by the credential cache and persisted in the secure store.
type Credential struct {
	Identity    Identity  `json:"identity"`
	AccessToken string    `json:"access_token"`
	CachedAt    time.Time `json:"cached_at"`
}

// AuthResult is what Coordinator.Authenticate returns to the application.
//
// Offline is true when the result came from the offline credential cache
// rather than a live server round trip. TimeUntilExpiry is how long the
// cached credential remains usable for offline work; it is zero for online
// results.
type AuthResult struct {
	Identity        Identity
	AccessToken     string
	Offline         bool
	TimeUntilExpiry time.Duration
}
