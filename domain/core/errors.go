package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - centralized error definitions
var (
	// Request-fatal errors
	ErrNotConverged      = errors.New("fit not converged")
	ErrUnsupportedMethod = errors.New("unsupported interval method")
	ErrUnsupportedKind   = errors.New("unsupported residual kind")
	ErrDatasetNotFound   = errors.New("dataset not found")

	// Validation errors
	ErrBadConfidenceLevel = errors.New("confidence level out of range")
	ErrEmptyEnsemble      = errors.New("ensemble has no valid replicates")
)

// UnknownParameterError reports every offending name at once, not just the
// first one encountered.
type UnknownParameterError struct {
	Names []string
}

func (e *UnknownParameterError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("unknown parameter: %s", e.Names[0])
	}
	return fmt.Sprintf("unknown parameters: %s", strings.Join(e.Names, ", "))
}

// Error constructors with context
func NewUnsupportedMethodError(method string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
}

func NewUnsupportedKindError(kind string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
}

func NewMissingDatasetError(name string) error {
	return fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
}

// Error checking helpers
func IsUnknownParameterError(err error) bool {
	var target *UnknownParameterError
	return errors.As(err, &target)
}

func IsFatalRequestError(err error) bool {
	return errors.Is(err, ErrNotConverged) ||
		errors.Is(err, ErrUnsupportedMethod) ||
		errors.Is(err, ErrUnsupportedKind) ||
		IsUnknownParameterError(err)
}
