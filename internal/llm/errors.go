package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// ErrFatalAPI marks provider errors that will not go away on a new
// submission (bad credentials, exhausted quota or billing problems).
var ErrFatalAPI = errors.New("fatal API error")

// APIError is a failed call to the model provider.
type APIError struct {
	category string
	Err      error
}

func (e *APIError) Error() string {
	return e.Err.Error()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Category classifies the failure: auth, quota, timeout, canceled or transport.
func (e *APIError) Category() string {
	return e.category
}

// newAPIError wraps a provider failure with its category.
func newAPIError(err error) *APIError {
	return &APIError{category: categorize(err), Err: wrapFatalError(err)}
}

var fatalPatterns = []struct {
	category string
	needles  []string
}{
	{"quota", []string{"credit balance", "rate limit", "quota", "billing", "resource_exhausted", "429"}},
	{"auth", []string{"invalid api key", "api key not valid", "authentication", "unauthorized", "permission_denied", "401", "403"}},
}

func categorize(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	var lerr *llms.Error
	if errors.As(err, &lerr) {
		switch lerr.Code {
		case llms.ErrCodeTimeout:
			return "timeout"
		case llms.ErrCodeCanceled:
			return "canceled"
		}
	}
	if c := fatalCategory(err); c != "" {
		return c
	}
	return "transport"
}

func fatalCategory(err error) string {
	if err == nil {
		return ""
	}
	// Standardized langchaingo errors carry their class.
	var lerr *llms.Error
	if errors.As(err, &lerr) {
		switch lerr.Code {
		case llms.ErrCodeAuthentication:
			return "auth"
		case llms.ErrCodeRateLimit, llms.ErrCodeQuotaExceeded:
			return "quota"
		}
	}
	msg := strings.ToLower(err.Error())
	for _, p := range fatalPatterns {
		for _, n := range p.needles {
			if strings.Contains(msg, n) {
				return p.category
			}
		}
	}
	return ""
}

func isFatalAPIError(err error) bool {
	return fatalCategory(err) != ""
}

// wrapFatalError tags fatal errors with ErrFatalAPI and returns others unchanged.
func wrapFatalError(err error) error {
	if !isFatalAPIError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFatalAPI, err)
}
