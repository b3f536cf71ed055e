package model

import "errors"

var (
	// ErrClosed is returned by operations on a closed model.
	ErrClosed = errors.New("model: closed")

	// ErrTransactionActive is returned by BeginTransaction while another
	// transaction is still open.
	ErrTransactionActive = errors.New("model: transaction already active")

	// ErrTransactionDone is returned by operations on a committed or rolled back transaction.
	ErrTransactionDone = errors.New("model: transaction already finished")

	// ErrInvalidLabel is returned when inserting an entity with label 0.
	ErrInvalidLabel = errors.New("model: invalid entity label")

	// ErrDanglingReference is returned when a copied entity references a
	// label the source model does not contain.
	ErrDanglingReference = errors.New("model: dangling reference")
)
