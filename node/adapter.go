package node

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/ifcingest/core"
	"github.com/poiesic/ifcingest/ingestion"
)

// Status is the state shown on the node.
type Status int

const (
	// StatusIdle is the initial state, and the state after a failed ingest.
	StatusIdle Status = iota
	// StatusInvalidInput means the input slot does not name a readable file.
	StatusInvalidInput
	// StatusSuccess means the output slot holds the manifest of the current input.
	StatusSuccess
)

// Status messages shown to the user.
const (
	MessageInvalidInput = "Please select a valid file"
	MessageSuccess      = "File is valid"
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusInvalidInput:
		return "invalid input"
	case StatusSuccess:
		return "success"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Ingester runs ingests off the caller's goroutine.
type Ingester interface {
	IngestAsync(sourcePath string, done func(ingestion.Result)) error
}

// Retainer trims a model store down to its newest entry.
type Retainer interface {
	RetainNewestOnly() error
}

// Adapter connects one node instance to the ingest pipeline.
// Ingests are serialized per adapter.
type Adapter struct {
	mu        sync.Mutex
	ingester  Ingester
	models    Retainer
	input     string
	output    core.Manifest
	hasOutput bool
	status    Status
	message   string
	running   bool
	lastInput core.Fingerprint
	onOutput  func(core.Manifest)
	onStatus  func(Status, string)
	logger    *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithOutputListener registers fn to be called whenever the output slot changes.
func WithOutputListener(fn func(core.Manifest)) Option {
	return func(a *Adapter) {
		a.onOutput = fn
	}
}

// WithStatusListener registers fn to be called whenever the status changes.
func WithStatusListener(fn func(Status, string)) Option {
	return func(a *Adapter) {
		a.onStatus = fn
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an adapter running ingests through ingester. models is trimmed
// by Cleanup and may be nil when cleanup is not wanted.
func New(ingester Ingester, models Retainer, opts ...Option) (*Adapter, error) {
	if ingester == nil {
		return nil, ErrIngesterRequired
	}
	a := &Adapter{
		ingester: ingester,
		models:   models,
		status:   StatusIdle,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// SetInput sets the source path of the next Calculate.
func (a *Adapter) SetInput(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.input = path
}

// Input returns the current source path.
func (a *Adapter) Input() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.input
}

// Calculate starts an ingest of the current input.
//
// An invalid input sets StatusInvalidInput and returns core.ErrInvalidInput.
// A call while an ingest is running returns ErrBusy. When the input file is
// unchanged since the last successful ingest nothing is started, the output
// is kept and the status reports success again.
func (a *Adapter) Calculate() error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrBusy
	}
	path := a.input

	if err := core.ValidateSourcePath(path); err != nil {
		notify := a.setStatusLocked(StatusInvalidInput, MessageInvalidInput)
		a.mu.Unlock()
		notify()
		return err
	}

	fingerprint, err := core.FingerprintFile(path)
	if err != nil {
		a.logger.Warn("failed to fingerprint input", "path", path, "err", err)
	}
	if err == nil && a.hasOutput && fingerprint == a.lastInput {
		notify := a.setStatusLocked(StatusSuccess, MessageSuccess)
		a.mu.Unlock()
		notify()
		a.logger.Debug("input unchanged, skipping ingest", "path", path)
		return nil
	}

	a.running = true
	a.mu.Unlock()

	err = a.ingester.IngestAsync(path, func(res ingestion.Result) {
		a.complete(path, fingerprint, res)
	})
	if err != nil {
		a.mu.Lock()
		a.running = false
		notify := func() {}
		if errors.Is(err, core.ErrInvalidInput) {
			notify = a.setStatusLocked(StatusInvalidInput, MessageInvalidInput)
		}
		a.mu.Unlock()
		notify()
		return err
	}
	return nil
}

// complete publishes the outcome of an ingest. A failure leaves the output
// slot unchanged.
func (a *Adapter) complete(path string, fingerprint core.Fingerprint, res ingestion.Result) {
	a.mu.Lock()
	a.running = false

	if res.Err != nil {
		notify := a.setStatusLocked(StatusIdle, "Ingest failed: "+res.Err.Error())
		a.mu.Unlock()
		a.logger.Error("ingest failed", "path", path, "err", res.Err)
		notify()
		return
	}

	a.output = res.Manifest
	a.hasOutput = true
	a.lastInput = fingerprint
	onOutput := a.onOutput
	notify := a.setStatusLocked(StatusSuccess, MessageSuccess)
	a.mu.Unlock()

	if onOutput != nil {
		onOutput(res.Manifest)
	}
	notify()
}

// setStatusLocked records the status and returns the listener call to make
// once the lock is released.
func (a *Adapter) setStatusLocked(status Status, message string) func() {
	a.status = status
	a.message = message
	onStatus := a.onStatus
	if onStatus == nil {
		return func() {}
	}
	return func() { onStatus(status, message) }
}

// Output returns the manifest of the last successful ingest.
func (a *Adapter) Output() (core.Manifest, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.output, a.hasOutput
}

// Status returns the current status and its message.
func (a *Adapter) Status() (Status, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status, a.message
}

// Busy reports whether an ingest is running.
func (a *Adapter) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Cleanup drops every registered model except the newest one.
// Failures are logged.
func (a *Adapter) Cleanup() {
	if a.models == nil {
		return
	}
	if err := a.models.RetainNewestOnly(); err != nil {
		a.logger.Warn("model cleanup failed", "err", err)
	}
}
