package log

import (
	"context"
	"errors"

	"screentime/internal/core"
)

// ErrorType maps an error onto one of the ErrorType* categories.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrParse):
		return ErrorTypeParse
	case errors.Is(err, core.ErrIO):
		return ErrorTypeIO
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrorTypeNetwork
	default:
		return ErrorTypeInternal
	}
}
