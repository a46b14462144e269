package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmptyName         = errors.New("empty filename")
	ErrInvalidIdentity   = errors.New("invalid document identity")
	ErrValidation        = errors.New("file validation failed")
	ErrBufferUnavailable = errors.New("batch buffer unavailable")
	ErrFolderResolution  = errors.New("folder resolution failed")
	ErrWorkflowViolation = errors.New("correction workflow violation")
	ErrBatchNotFound     = errors.New("batch not found")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
