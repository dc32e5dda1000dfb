// Package inject computes and applies the runtime-instrumentation hooks a
// child process loads before its own code runs.
//
// The hooks travel in one environment variable (NODE_OPTIONS by default) as
// space-separated "--require <hook>" flags. Inject captures the previous
// value and returns an *Injection whose Release restores it exactly,
// including unsetting a variable that was unset before.
//
// The variable is process-global. Callers must not overlap two
// inject/release cycles in the same process, and injecting twice without a
// release snapshots the already-injected value: releasing the second
// Injection then restores the first injection, not the original value.
package inject
