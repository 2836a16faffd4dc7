package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestSiteError_Error(t *testing.T) {
	err := &SiteError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "submission not found",
	}

	expected := "NOT_FOUND: submission not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("unknown status")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "unknown status" {
		t.Errorf("Message = %q, want %q", err.Message, "unknown status")
	}
}

func TestNewValidation(t *testing.T) {
	err := NewValidation("name", "email")

	if err.Code != ErrValidation {
		t.Errorf("Code = %q, want %q", err.Code, ErrValidation)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if !strings.Contains(err.Message, "name, email") {
		t.Errorf("Message = %q, want it to list the missing fields", err.Message)
	}
	missing, ok := err.Details["missing_fields"].([]string)
	if !ok || len(missing) != 2 {
		t.Errorf("Details[missing_fields] = %v, want [name email]", err.Details["missing_fields"])
	}
}

func TestNewVerificationFailed(t *testing.T) {
	err := NewVerificationFailed("timeout-or-duplicate")

	if err.Code != ErrVerificationFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrVerificationFailed)
	}
	if err.Status != 403 {
		t.Errorf("Status = %d, want 403", err.Status)
	}
	if err.Details["reason"] != "timeout-or-duplicate" {
		t.Errorf("Details[reason] = %v", err.Details["reason"])
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("01HZX")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["id"] != "01HZX" {
		t.Errorf("Details[id] = %v, want %q", err.Details["id"], "01HZX")
	}
}

func TestNewStorage_HidesCause(t *testing.T) {
	cause := fmt.Errorf("open /srv/data/database.csv: permission denied")
	err := NewStorage("append", cause)

	if err.Code != ErrStorage {
		t.Errorf("Code = %q, want %q", err.Code, ErrStorage)
	}
	if err.Status != 500 {
		t.Errorf("Status = %d, want 500", err.Status)
	}
	if strings.Contains(err.Message, "/srv/data") {
		t.Errorf("Message leaks file path: %q", err.Message)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
	if err.Public() {
		t.Error("storage errors should not be public")
	}
}

func TestNewServiceUnavailable(t *testing.T) {
	err := NewServiceUnavailable("admin is not configured")

	if err.Code != ErrServiceUnavailable {
		t.Errorf("Code = %q, want %q", err.Code, ErrServiceUnavailable)
	}
	if err.Status != 503 {
		t.Errorf("Status = %d, want 503", err.Status)
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("boom"))
		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Message != "boom" {
			t.Errorf("Message = %q, want %q", err.Message, "boom")
		}
	})

	t.Run("nil error", func(t *testing.T) {
		err := NewInternal(nil)
		if err.Message != "internal error" {
			t.Errorf("Message = %q, want %q", err.Message, "internal error")
		}
	})
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewNotFound("x"), ErrNotFound, true},
		{"different code", NewNotFound("x"), ErrStorage, false},
		{"wrapped", fmt.Errorf("set status: %w", NewNotFound("x")), ErrNotFound, true},
		{"plain error", fmt.Errorf("plain"), ErrNotFound, false},
		{"nil", nil, ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAs(t *testing.T) {
	nf := NewNotFound("x")
	if got := As(fmt.Errorf("wrap: %w", nf)); got != nf {
		t.Errorf("As() = %v, want the wrapped SiteError", got)
	}

	got := As(fmt.Errorf("plain"))
	if got.Code != ErrInternal {
		t.Errorf("As(plain).Code = %q, want %q", got.Code, ErrInternal)
	}
}
