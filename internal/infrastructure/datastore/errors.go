package datastore

import "errors"

// Domain errors for the datastore package.
var (
	// ErrNotLoaded is returned when a dataset is used before Load succeeded.
	ErrNotLoaded = errors.New("datastore: dataset not loaded")

	// ErrCorrupt is returned when a dataset file exists but cannot be
	// decoded or breaks the dataset's invariants.
	// The file is left untouched so an operator can inspect it.
	ErrCorrupt = errors.New("datastore: corrupt document")

	// ErrWriteFailed is returned when a document could not be persisted.
	ErrWriteFailed = errors.New("datastore: write failed")
)
