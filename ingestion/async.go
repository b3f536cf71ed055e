package ingestion

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/poiesic/ifcingest/core"
)

// Result is the outcome of an asynchronous ingest. Manifest is set when Err is nil.
type Result struct {
	Manifest core.Manifest
	Err      error
}

// IngestAsync runs Ingest for sourcePath on the worker pool.
//
// The source path is validated before anything is scheduled: invalid input
// returns core.ErrInvalidInput and done is never called. A submission failure
// is returned likewise. Otherwise done is called exactly once, on a worker
// goroutine, after the ingest finished. A panic inside the pipeline is
// reported as ErrPanic. Running ingests cannot be cancelled.
func (p *Pipeline) IngestAsync(sourcePath string, done func(Result)) error {
	if err := core.ValidateSourcePath(sourcePath); err != nil {
		return err
	}
	if done == nil {
		done = func(Result) {}
	}

	p.inFlight.Add(1)
	err := p.pool.Submit(func() {
		defer p.inFlight.Done()
		done(p.runRecovered(sourcePath))
	})
	if err != nil {
		p.inFlight.Done()
		return fmt.Errorf("submit ingest of %s: %w", sourcePath, err)
	}
	return nil
}

func (p *Pipeline) runRecovered(sourcePath string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("ingest panicked", "source", sourcePath, "panic", r, "stack", string(debug.Stack()))
			res = Result{Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
	}()

	manifest, err := p.Ingest(context.Background(), sourcePath)
	return Result{Manifest: manifest, Err: err}
}

// Wait blocks until every submitted asynchronous ingest has called its
// completion callback.
func (p *Pipeline) Wait() {
	p.inFlight.Wait()
}
