package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("pipe closed")
	err := Wrap(cause, CodeNotConnected, "connection lost")

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped error to match cause via errors.Is")
	}
	if !IsCode(err, CodeNotConnected) {
		t.Fatalf("expected NOT_CONNECTED, got %v", CodeOf(err))
	}
}

func TestAddContextOnPlainError(t *testing.T) {
	err := AddContext(fmt.Errorf("boom"), CtxLine, 12)

	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("expected a DomainError")
	}
	if de.Code != CodeInternal {
		t.Fatalf("plain errors should map to INTERNAL_ERROR, got %v", de.Code)
	}
	if de.Context[CtxLine] != 12 {
		t.Fatalf("expected line context, got %v", de.Context)
	}
}

func TestRetriable(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want bool
	}{
		{CodeTimeout, true},
		{CodeProcessExited, true},
		{CodeNotConnected, true},
		{CodeWriteError, true},
		{CodeNotAvailable, true},
		{CodeInitFailed, false},
		{CodeParseError, false},
	}
	for _, tc := range cases {
		if got := Retriable(New(tc.code, "x")); got != tc.want {
			t.Errorf("Retriable(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
