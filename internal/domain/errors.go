package domain

import "errors"

// Sentinel errors shared across packages.
var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a nil or malformed argument.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyURL indicates a document left a retriever without its
	// primary identity set.
	ErrEmptyURL = errors.New("document has empty url")
)
