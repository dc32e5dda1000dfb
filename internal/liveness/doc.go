// Package liveness supervises the attached child with periodic probes.
//
// One tick probes the child once, and retries once on a miss. Two misses in
// the same tick mean the child is unreachable; the supervisor reports that
// through OnUnreachable and stops. With no child attached a tick is a silent
// no-op, so the supervisor can run before the child connects.
//
// The ticker is bound to the owner's lifetime: Stop cancels it and waits for
// the goroutine to exit.
package liveness
