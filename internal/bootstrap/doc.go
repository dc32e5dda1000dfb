// Package bootstrap is the child half of the control channel: it dials the
// address the parent passed in the environment and speaks the same
// envelope protocol through a router.Router.
package bootstrap
