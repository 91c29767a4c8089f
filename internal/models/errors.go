package models

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when a vector's length does not match the
// memory's fixed dimensionality. It is fatal to the call that produced it.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// TransportError wraps a network or protocol failure from a remote
// collaborator (ledger store, encoder, or chat model). It is distinguishable
// from ErrDimensionMismatch and from empty-result conditions via errors.As.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err as a transport failure for the given operation.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}
