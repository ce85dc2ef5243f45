package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/exec"

	"github.com/openclaw/membench/internal/adapter"
	"github.com/openclaw/membench/internal/models"
	"github.com/openclaw/membench/internal/validation"
)

// ClassifyFailure maps an error from a provider phase onto the stable failure
// taxonomy. The mapping is independent of provider identity.
func ClassifyFailure(questionID string, phase models.Phase, err error) models.Failure {
	f := models.Failure{
		QuestionID: questionID,
		Phase:      phase,
		ErrorType:  fmt.Sprintf("%T", rootError(err)),
		Error:      err.Error(),
	}

	var (
		netErr    net.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		valErr    *validation.Error
		cmdErr    *adapter.CommandError
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) ||
		(errors.As(err, &netErr) && netErr.Timeout()):
		f.ErrorCode = models.ErrTimeout
		f.ErrorCategory = models.CategoryTimeout
		f.Retryable = true

	case errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist):
		f.ErrorCode = models.ErrCommandNotFound
		f.ErrorCategory = models.CategoryEnvironment

	case errors.As(err, &syntaxErr) || errors.As(err, &typeErr):
		f.ErrorCode = models.ErrParse
		f.ErrorCategory = models.CategoryParse

	case errors.As(err, &valErr):
		f.ErrorCode = models.ErrDataValidation
		f.ErrorCategory = models.CategoryValidation

	case errors.As(err, &cmdErr):
		f.ErrorCode = models.ErrAdapterCommandFailed
		f.ErrorCategory = models.CategoryAdapterRuntime
		f.Retryable = true

	default:
		f.ErrorCode = models.ErrUnexpected
		f.ErrorCategory = models.CategoryUnknown
	}

	return f
}

// rootError unwraps to the innermost error so the recorded type names the
// actual cause rather than a wrapping layer.
func rootError(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
