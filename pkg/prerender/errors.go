package prerender

import (
	"fmt"

	"github.com/prerender-tools/cachectl/pkg/models"
)

// VariantError is a failed recache request for one (url, variant) pair.
// StatusCode is zero when the request never produced a response.
type VariantError struct {
	URL        string
	Variant    models.Variant
	StatusCode int
	Cause      error
}

func (e *VariantError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Variant, e.URL, e.Detail())
}

// Detail is the short cause shown to users: the status code when one was
// received, otherwise the transport error.
func (e *VariantError) Detail() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%d", e.StatusCode)
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unknown error"
}

func (e *VariantError) Unwrap() error { return e.Cause }

// Failure converts the error into report data.
func (e *VariantError) Failure() models.VariantFailure {
	return models.VariantFailure{Variant: e.Variant, StatusCode: e.StatusCode, Detail: e.Detail()}
}

// StoreError is a listing or delete call that failed in transport or was
// answered with success=false.
type StoreError struct {
	Op         string
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *StoreError) Error() string {
	target := e.Op
	if e.URL != "" {
		target += " " + e.URL
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	return fmt.Sprintf("store %s: %s", target, msg)
}

func (e *StoreError) Unwrap() error { return e.Cause }

// MalformedResponseError is a store response that could not be decoded
// against the expected schema. Body holds the raw response text verbatim.
type MalformedResponseError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	Cause      error
}

func (e *MalformedResponseError) Error() string {
	target := e.Op
	if e.URL != "" {
		target += " " + e.URL
	}
	return fmt.Sprintf("store %s: malformed response (status %d): %v: %s", target, e.StatusCode, e.Cause, e.Body)
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }
