package cli

import (
	"errors"
	"fmt"

	"github.com/sam-mfb/graft/pkg/engine"
	"github.com/sam-mfb/graft/pkg/manifest"
)

// ErrInvalidArgument reports a malformed command invocation: wrong arg
// count, an unparseable flag value.
type ErrInvalidArgument struct {
	Message string
}

func (e *ErrInvalidArgument) Error() string { return e.Message }

func invalidArgumentf(format string, args ...interface{}) *ErrInvalidArgument {
	return &ErrInvalidArgument{Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error surfaced by a command to the process exit status,
// matching the taxonomy documented for the engine: a more specific code per
// error kind so scripts invoking the CLI can distinguish failure classes
// without parsing messages.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var (
		invalidArg     *ErrInvalidArgument
		manifestErr    *manifest.Error
		validationErr  *engine.ValidationFailedError
		backupErr      *engine.BackupFailedError
		applyErr       *engine.ApplyFailedError
		verificationErr *engine.VerificationFailedError
		rollbackErr    *engine.RollbackFailedError
	)

	switch {
	case errors.As(err, &invalidArg):
		return 2
	case errors.As(err, &manifestErr):
		return 10
	case errors.As(err, &validationErr):
		return 20
	case errors.As(err, &backupErr):
		return 21
	case errors.As(err, &applyErr):
		return 22
	case errors.As(err, &verificationErr):
		return 23
	case errors.As(err, &rollbackErr):
		return 24
	default:
		return 1
	}
}
