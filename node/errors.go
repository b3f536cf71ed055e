package node

import "errors"

var (
	// ErrBusy is returned by Calculate while a previous ingest is still running.
	ErrBusy = errors.New("node: ingest already in progress")

	// ErrIngesterRequired is returned when no ingester is provided.
	ErrIngesterRequired = errors.New("node: ingester required")
)
