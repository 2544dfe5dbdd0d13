// Package cli provides the interactive TutorLink command-line client.
//
// It wires configuration, the secure local store, the backend API client,
// the connectivity monitor, and the auth coordinator into an interactive
// REPL that supports online and offline operation. Typical flow: prompt
// for credentials, start the background connectivity watcher, and execute
// user commands.
//
// Key commands:
//   - login / logout (online with offline fallback)
//   - status (mode, credential expiry, sync state)
//   - ask (retrieve study context)
//   - quiz (generate and answer a quiz, get feedback)
//   - sync (force a resync with the backend)
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
