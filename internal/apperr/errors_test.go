package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindPredicates(t *testing.T) {
	if !IsValidation(Validationf("bad input")) {
		t.Error("IsValidation should match a validation error")
	}
	if !IsNotFound(NotFoundf("missing")) {
		t.Error("IsNotFound should match a not-found error")
	}
	if !IsConflict(Conflictf("taken")) {
		t.Error("IsConflict should match a conflict error")
	}
	if IsConflict(Validationf("bad input")) {
		t.Error("IsConflict should not match a validation error")
	}
}

func TestWrappedErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := Storage("load ucp", cause)

	if !errors.Is(err, cause) {
		t.Error("Storage error should unwrap to its cause")
	}
	if KindOf(err) != KindStorage {
		t.Errorf("KindOf = %v, want KindStorage", KindOf(err))
	}

	// Classification survives further wrapping
	wrapped := fmt.Errorf("handler: %w", Conflictf("pallet claimed"))
	if !IsConflict(wrapped) {
		t.Error("IsConflict should see through fmt.Errorf wrapping")
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if KindOf(errors.New("plain")) != KindStorage {
		t.Error("unclassified errors default to KindStorage")
	}
}
