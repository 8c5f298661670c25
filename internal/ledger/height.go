// Package ledger supplies the monotonic block height used for all timestamps
// and expiry arithmetic. The registries never advance the clock themselves.
package ledger

import (
	"context"
	"sync/atomic"

	id "trustledger/pkg/domain"
)

// HeightSource reports the current ledger height. Implementations must be
// monotonically non-decreasing across calls.
type HeightSource interface {
	CurrentHeight(ctx context.Context) (id.Height, error)
}

// Manual is an in-process height counter for standalone deployments and
// tests. It only moves forward.
type Manual struct {
	height atomic.Uint64
}

// NewManual creates a manual height source starting at the given height.
func NewManual(start id.Height) *Manual {
	m := &Manual{}
	m.height.Store(uint64(start))
	return m
}

func (m *Manual) CurrentHeight(_ context.Context) (id.Height, error) {
	return id.Height(m.height.Load()), nil
}

// Advance moves the height forward by n blocks and returns the new height.
func (m *Manual) Advance(n uint64) id.Height {
	return id.Height(m.height.Add(n))
}

// Set moves the height to h. Attempts to move backwards are ignored so the
// monotonicity contract holds even with a misbehaving caller.
func (m *Manual) Set(h id.Height) {
	for {
		cur := m.height.Load()
		if uint64(h) <= cur {
			return
		}
		if m.height.CompareAndSwap(cur, uint64(h)) {
			return
		}
	}
}
