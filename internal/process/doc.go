// Package process is the single termination point for childctl binaries.
//
// Components never call os.Exit themselves. Fatal conditions surface as
// errors (protocol corruption from the router, an unreachable child from the
// liveness supervisor) and are mapped to a documented exit code here:
//
//   - 0  ExitOK
//   - 1  ExitFailure                 generic failure
//   - 70 ExitMessageHandlingFailed   MANAGER_MESSAGE_HANDLING_FAILED
//   - 71 ExitChildUnreachable        MANAGER_CHILD_UNREACHABLE
package process
