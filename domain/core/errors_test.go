package core

import (
	"errors"
	"testing"
)

func TestConstructorsWrapSentinels(t *testing.T) {
	if err := NewUnsupportedMethodError("posterior"); !errors.Is(err, ErrUnsupportedMethod) {
		t.Errorf("NewUnsupportedMethodError does not wrap sentinel: %v", err)
	}
	if err := NewUnsupportedKindError("huber"); !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("NewUnsupportedKindError does not wrap sentinel: %v", err)
	}
	if err := NewMissingDatasetError("det0"); !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("NewMissingDatasetError does not wrap sentinel: %v", err)
	}
}

func TestUnknownParameterError(t *testing.T) {
	one := &UnknownParameterError{Names: []string{"alpha"}}
	if one.Error() != "unknown parameter: alpha" {
		t.Errorf("singular message wrong: %q", one.Error())
	}

	many := &UnknownParameterError{Names: []string{"alpha", "beta"}}
	if many.Error() != "unknown parameters: alpha, beta" {
		t.Errorf("plural message wrong: %q", many.Error())
	}

	if !IsUnknownParameterError(many) {
		t.Error("IsUnknownParameterError missed a direct instance")
	}
	if IsUnknownParameterError(ErrNotConverged) {
		t.Error("IsUnknownParameterError matched an unrelated error")
	}
}

func TestIsFatalRequestError(t *testing.T) {
	fatal := []error{
		ErrNotConverged,
		NewUnsupportedMethodError("x"),
		NewUnsupportedKindError("x"),
		&UnknownParameterError{Names: []string{"x"}},
	}
	for _, err := range fatal {
		if !IsFatalRequestError(err) {
			t.Errorf("expected fatal: %v", err)
		}
	}
	if IsFatalRequestError(ErrEmptyEnsemble) {
		t.Errorf("ErrEmptyEnsemble should not be request-fatal")
	}
}
