package models

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrChallenge       = errors.New("bot challenge not solved")
	ErrTransient       = errors.New("transient fetch failure")
	ErrNotProductPage  = errors.New("page is not a product page")
)

// StatusError is a non-retryable HTTP status that is not a plain not-found.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// Kind maps an error from the fetch/extract/store path to the failure kind
// stored with it.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrProductNotFound):
		return KindNotFound
	case errors.Is(err, ErrChallenge):
		return KindChallenge
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrNotProductPage):
		return KindNotProductPage
	default:
		return KindFetch
	}
}
