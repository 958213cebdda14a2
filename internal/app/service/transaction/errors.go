package transaction

import "errors"

var (
	// ErrNotFound is returned when no transaction matches the given reference.
	ErrNotFound = errors.New("transaction not found")

	// ErrStateConflict is returned when an operation is not valid for the
	// transaction's current status, e.g. cancelling after dispatch.
	ErrStateConflict = errors.New("transaction state conflict")

	// ErrDispatchInProgress is returned when another dispatcher currently
	// owns the transaction. The caller should simply poll the status; the
	// owning dispatcher will drive the transaction to a terminal state.
	ErrDispatchInProgress = errors.New("dispatch already in progress")
)
