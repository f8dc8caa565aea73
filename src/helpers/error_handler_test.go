package helpers

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ConnectionError{DashboardError{Message: "dial backend", Cause: cause}}

	if !errors.Is(err, cause) {
		t.Error("Unwrap chain broken")
	}
	if err.Error() != "dial backend: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}

	bare := &NetworkError{DashboardError{Message: "timeout"}}
	if bare.Error() != "timeout" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

// -----------------------------------------------------------------------------

func TestRetryWithBackoff(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff("flaky op", 3, time.Millisecond, func() error {
		attempts++
		if attempts < 2 {
			return fmt.Errorf("transient")
		}
		return nil
	})
	if err != nil || attempts != 2 {
		t.Errorf("err = %v, attempts = %d", err, attempts)
	}

	attempts = 0
	err = RetryWithBackoff("broken op", 2, time.Millisecond, func() error {
		attempts++
		return fmt.Errorf("permanent")
	})
	if err == nil || attempts != 2 {
		t.Errorf("err = %v, attempts = %d", err, attempts)
	}
}
