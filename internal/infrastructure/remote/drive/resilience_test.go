package drive

import (
	"context"
	"fmt"
	"net/http"
	"testing"
)

func TestClassifyErrorRetryableStatuses(t *testing.T) {
	retryable := []int{
		http.StatusRequestTimeout,
		http.StatusForbidden,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	}
	for _, code := range retryable {
		err := &HTTPStatusError{Operation: "upload_file", StatusCode: code, Status: fmt.Sprintf("%d", code)}
		class := ClassifyError(err)
		if !class.Retryable || !class.RecordFailure {
			t.Errorf("status %d: expected retryable recorded failure, got %+v", code, class)
		}
	}
}

func TestClassifyErrorPermanentStatuses(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusConflict} {
		err := &HTTPStatusError{Operation: "upload_file", StatusCode: code, Status: fmt.Sprintf("%d", code)}
		if class := ClassifyError(err); class.Retryable {
			t.Errorf("status %d must not be retried", code)
		}
	}
}

func TestClassifyErrorContextCancellation(t *testing.T) {
	for _, err := range []error{context.Canceled, context.DeadlineExceeded} {
		class := ClassifyError(fmt.Errorf("wrapped: %w", err))
		if class.Retryable || class.RecordFailure {
			t.Errorf("%v: cancellation is neither retried nor recorded, got %+v", err, class)
		}
	}
}

func TestClassifyErrorNil(t *testing.T) {
	if class := ClassifyError(nil); class.Retryable || class.RecordFailure {
		t.Fatalf("nil error must classify as clean, got %+v", class)
	}
}
