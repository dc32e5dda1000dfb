// Package router parses control frames into envelopes, correlates replies to
// pending requests and dispatches everything else to named handlers.
//
// The same Router serves both ends of the channel: the manager in the parent
// and the bootstrap client in the child. It never terminates the process; a
// frame that cannot be parsed is returned as a *ProtocolError and the owner
// decides what to do with it.
package router
