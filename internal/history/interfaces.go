package history

import (
	"context"
	"io"
)

// Store persists settled swaps.
type Store interface {
	InsertSwap(ctx context.Context, rec *SwapRecord) error

	// RecentSwaps returns the newest swaps first. An empty taker matches all.
	RecentSwaps(ctx context.Context, taker string, limit int) ([]*SwapRecord, error)

	Ping(ctx context.Context) error
	io.Closer
}

// Publisher fans settled swaps out to live subscribers.
type Publisher interface {
	PublishSwap(ctx context.Context, rec *SwapRecord) error
	io.Closer
}

// SwapHandler processes one swap event.
type SwapHandler func(*SwapRecord)
