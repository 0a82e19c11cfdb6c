package domain

import "errors"

// Sentinel errors for the retrieval pipeline. The transport layer maps these
// to the HTTP error envelope; everything else is an internal error.
var (
	// ErrValidation signals malformed caller input, rejected before any remote call.
	ErrValidation = errors.New("validation failed")
	// ErrMovieNotFound signals a well-formed identifier with no matching document.
	ErrMovieNotFound = errors.New("movie not found")
	// ErrMalformedID signals an identifier that is not a valid ObjectID hex string.
	ErrMalformedID = errors.New("malformed movie id")
	// ErrSearchFailed signals a failed vector search invocation (e.g. missing index).
	ErrSearchFailed = errors.New("vector search failed")
	// ErrStoreUnavailable signals a connectivity or auth fault to the document store.
	ErrStoreUnavailable = errors.New("document store unavailable")
)
