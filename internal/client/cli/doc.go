// Package cli provides the interactive console of the checkpost device.
//
// It wires configuration, the local store, the device services and a REPL
// the ranger uses at the barrier. Typical flow: resume the saved session,
// start the connectivity watcher and the sync engine in the background,
// then record passages until the ranger exits.
//
// Key features:
//   - Login / Logout of the ranger (PIN read without echo)
//   - Record passages with immediate advisory speeding/overstay alerts
//   - Sync on demand, status of the outbound queue and the cache
//   - List violations and passages, attach photos
//
// The REPL is started via App.Run(ctx), which blocks until the ranger exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
