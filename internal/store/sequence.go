package store

import (
	"context"
	"sync/atomic"
)

// Sequence hands out receipt numbers. Next must be safe for concurrent use and never
// return the same number twice between resets.
type Sequence interface {
	Next(ctx context.Context) (int64, error)
	Reset(ctx context.Context) error
}

// AtomicSequence is the in-process sequence. Numbers start at 1.
type AtomicSequence struct {
	n atomic.Int64
}

func (a *AtomicSequence) Next(context.Context) (int64, error) {
	return a.n.Add(1), nil
}

func (a *AtomicSequence) Reset(context.Context) error {
	a.n.Store(0)
	return nil
}
