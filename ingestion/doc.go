// Package ingestion turns a source IFC file into a normalized private copy.
//
// The Pipeline type runs the ingest workflow for one source file:
//   - Opening the source and detecting its schema variant
//   - Copying the variant's product entities, and everything they reference,
//     into a fresh container through a property transform
//   - Saving the container under a generated, collision-free name
//   - Registering the saved copy in the model store
//   - Extracting the identifier manifest of the registered copy
//
// Ingest runs on the caller's goroutine. IngestAsync validates the source
// synchronously, runs the pipeline on a worker pool and reports the outcome
// through a completion callback that fires exactly once.
package ingestion
