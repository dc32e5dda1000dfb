package process

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes. The fatal categories are distinct from each other and from a
// generic failure so a supervisor of this process can tell them apart.
const (
	ExitOK                    = 0
	ExitFailure               = 1
	ExitMessageHandlingFailed = 70
	ExitChildUnreachable      = 71
)

// Sentinel errors recognised by Code. Packages that raise fatal conditions
// wrap these so the mapping stays in one place.
var (
	ErrMessageHandlingFailed = errors.New("MANAGER_MESSAGE_HANDLING_FAILED")
	ErrChildUnreachable      = errors.New("MANAGER_CHILD_UNREACHABLE")
)

// ExitCodeError carries an explicit exit code, typically the status of a
// supervised child that should be passed through.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error { return e.Err }

// Exit is the process exit function. Tests replace it.
var Exit = os.Exit

// Code maps err to an exit code.
func Code(err error) int {
	var codeErr *ExitCodeError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &codeErr):
		return codeErr.Code
	case errors.Is(err, ErrMessageHandlingFailed):
		return ExitMessageHandlingFailed
	case errors.Is(err, ErrChildUnreachable):
		return ExitChildUnreachable
	default:
		return ExitFailure
	}
}

// Terminate exits with the code mapped from err. The caller is expected to
// have logged err already.
func Terminate(err error) {
	Exit(Code(err))
}

// Fatal writes "error: err" to stderr and exits with Code(err). Use it in
// main() where the structured logger may not be initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	Exit(Code(err))
}
