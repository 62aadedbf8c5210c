package server

import (
	"context"
	"sync"
	"time"

	"github.com/aman-zulfiqar/solswap/internal/history"
	"github.com/aman-zulfiqar/solswap/internal/jupiter"
	"github.com/aman-zulfiqar/solswap/internal/pricing"
	"github.com/aman-zulfiqar/solswap/internal/tokens"
	"github.com/sirupsen/logrus"
)

const (
	// Ultra orders expire well within this.
	orderRetention = 2 * time.Minute
	maxOrders      = 10000
)

// SwapRecorder receives swaps executed through the proxy.
type SwapRecorder interface {
	RecordSwap(ctx context.Context, rec *history.SwapRecord) error
}

// TokenResolver supplies decimals for mints outside the built-in registry.
type TokenResolver interface {
	Resolve(ctx context.Context, address string) (tokens.Token, error)
}

type pendingOrder struct {
	order *jupiter.OrderResponse
	taker string
	at    time.Time
}

// orderBook remembers orders handed out by the proxy so a successful execute
// can be recorded with its amounts.
type orderBook struct {
	mu    sync.Mutex
	items map[string]pendingOrder
	now   func() time.Time
}

func newOrderBook() *orderBook {
	return &orderBook{items: make(map[string]pendingOrder), now: time.Now}
}

func (b *orderBook) put(order *jupiter.OrderResponse, taker string) {
	if order == nil || order.RequestID == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if len(b.items) >= maxOrders {
		for id, p := range b.items {
			if now.Sub(p.at) > orderRetention {
				delete(b.items, id)
			}
		}
		if len(b.items) >= maxOrders {
			return
		}
	}
	b.items[order.RequestID] = pendingOrder{order: order, taker: taker, at: now}
}

// take removes and returns the order for requestID if it is still retained.
func (b *orderBook) take(requestID string) (pendingOrder, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.items[requestID]
	if !ok {
		return pendingOrder{}, false
	}
	delete(b.items, requestID)
	if b.now().Sub(p.at) > orderRetention {
		return pendingOrder{}, false
	}
	return p, true
}

// recordExecuted writes a settled swap in the background. Swaps whose order
// was not seen by this process are skipped.
func (h *Handlers) recordExecuted(requestID string, res *jupiter.ExecuteResponse) {
	if h.Recorder == nil || h.orders == nil {
		return
	}
	p, ok := h.orders.take(requestID)
	if !ok {
		h.Logger.WithField("request_id", requestID).Debug("executed order not tracked, not recording")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		in, inErr := h.resolveToken(ctx, p.order.InputMint)
		out, outErr := h.resolveToken(ctx, p.order.OutputMint)
		var display *pricing.Display
		if inErr == nil && outErr == nil {
			if d, err := pricing.Derive(p.order, in, out, 0); err == nil {
				display = d
			}
		}
		if inErr != nil {
			in = tokens.Token{Address: p.order.InputMint, Symbol: tokens.ShortAddress(p.order.InputMint)}
		}
		if outErr != nil {
			out = tokens.Token{Address: p.order.OutputMint, Symbol: tokens.ShortAddress(p.order.OutputMint)}
		}

		rec := history.NewSwapRecord(res.Signature, p.taker, in, out, p.order, display)
		if err := h.Recorder.RecordSwap(ctx, rec); err != nil {
			h.Logger.WithError(err).WithFields(logrus.Fields{
				"request_id": requestID,
				"signature":  res.Signature,
			}).Warn("failed to record swap")
		}
	}()
}

func (h *Handlers) resolveToken(ctx context.Context, mint string) (tokens.Token, error) {
	if t, ok := tokens.Lookup(mint); ok {
		return t, nil
	}
	if h.Tokens == nil {
		return tokens.Token{}, errUnknownToken
	}
	return h.Tokens.Resolve(ctx, mint)
}
