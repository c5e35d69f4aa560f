package domain

import (
	"fmt"

	apperrors "github.com/Armandase/seconde-main/pkg/errors"
)

var (
	// ErrProductNotFound is returned by point lookups for an absent id.
	ErrProductNotFound = fmt.Errorf("product: %w", apperrors.ErrNotFound)

	// ErrStoreUnavailable marks any connectivity or backend failure of the
	// document store. An empty result is never reported with it.
	ErrStoreUnavailable = fmt.Errorf("document store: %w", apperrors.ErrServiceUnavail)

	// ErrQueryRejected marks a request the store refused as malformed. The
	// store itself is healthy.
	ErrQueryRejected = fmt.Errorf("query rejected: %w", apperrors.ErrInvalidInput)
)

// StoreFailure wraps a backend failure of operation op so that it matches
// ErrStoreUnavailable and renders as STORE_UNAVAILABLE.
func StoreFailure(op string, err error) error {
	return apperrors.StoreUnavailable("document store", fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err))
}

// QueryRejected wraps a 4xx answer of the store to operation op. It renders
// as a 400 and never matches ErrStoreUnavailable.
func QueryRejected(op string, err error) error {
	rejected := apperrors.InvalidInput("search request rejected by the document store")
	rejected.Err = fmt.Errorf("%s: %w: %w", op, ErrQueryRejected, err)
	return rejected
}
