// Package registry is the extension registry: a process-scoped mapping from
// a manager id to the URL of a custom module loader.
//
// A resolution hook cannot hold a reference to the manager that registered
// it; it may even run in the child process. The registry therefore maps ids
// to URLs, never to callbacks, and can be written to a snapshot file the
// child reads back.
//
// Lifecycle of the process-wide store: Default initialises it on first use;
// binaries clear it on exit with Default().Clear().
package registry
