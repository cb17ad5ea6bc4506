package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRunNotFound      = errors.New("run not found")
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrMissingColumn    = errors.New("missing required column")
	ErrTemporary        = errors.New("temporary failure")
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

// MissingColumnError is the structural failure raised before any computation
// when a required semantic field has no matching header.
type MissingColumnError struct {
	Table   string
	Field   string
	Aliases []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: missing required column %s (accepted headers: %s)",
		e.Table, e.Field, strings.Join(e.Aliases, ", "))
}

func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}
