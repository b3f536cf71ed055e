package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a model store is not provided.
	ErrStoreRequired = errors.New("model store required")

	// ErrNoDestination is returned when no free destination name was found.
	ErrNoDestination = errors.New("no free destination name")

	// ErrPanic is reported through the completion callback when the pipeline panicked.
	ErrPanic = errors.New("ingest panicked")
)
