// Package manager is the parent-side control channel manager for one child
// process. It is structured into small files by concern:
//
//   - manager.go: Manager type, constructor, Listen/Close lifecycle.
//   - config.go: Options and package defaults.
//   - messaging.go: Send, Request, Reply and handler registration.
//   - extensions.go: Register (extension registry) and Inject/Eject.
//   - fatal.go: the fatal channel for protocol corruption and liveness failure.
//   - types.go: State and Snapshot.
//   - errors.go: error values and helpers.
//   - events.go, eventpub_memory.go: lifecycle event publishing.
//
// A Manager is single-use: it accepts one child, and once that child
// disconnects no other child may attach. Close is the single cancellation
// point and is safe to call any number of times.
//
// Nothing in this package exits the process. Fatal conditions are logged,
// published on Fatal() and handed to Options.OnFatal, which defaults to
// process.Terminate.
package manager
