package mediawiki

import (
	"errors"
	"fmt"
)

var (
	// ErrPageMissing indicates the requested page does not exist or has no content.
	ErrPageMissing = errors.New("mediawiki page missing")
	// ErrEditRejected indicates the edit call returned a non-Success result.
	ErrEditRejected = errors.New("mediawiki edit rejected")
	// ErrLogin indicates a failed bot-password login.
	ErrLogin = errors.New("mediawiki login failed")
	// ErrParse indicates a failure to parse the response.
	ErrParse = errors.New("mediawiki parse error")
)

// APIError is the error object of an action API response.
type APIError struct {
	Code string  `json:"code"`
	Info string  `json:"info"`
	Lag  float64 `json:"lag,omitempty"` // seconds, on maxlag refusals
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mediawiki api error %s: %s", e.Code, e.Info)
}
