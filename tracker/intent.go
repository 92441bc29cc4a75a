package tracker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/banky/hyperliquid-exchange/exchange"
	"github.com/banky/hyperliquid-exchange/types"
	"github.com/samber/mo"
)

// Intent is an order a caller has submitted but the exchange has not yet
// answered for. BatchID is zero until the intent's window is flushed.
type Intent struct {
	Cloid   types.Cloid
	Coin    string
	Created time.Time
	BatchID uint64
}

// Outcome is how an intent resolved. Err is set when the order was refused
// (a *exchange.RejectedError), no longer passed the local checks at flush
// (a *exchange.InvalidRequestError) or its batch failed; Oid is set
// otherwise.
type Outcome struct {
	Cloid   types.Cloid
	BatchID uint64
	Oid     int64
	Status  exchange.OrderStatus
	Err     error
}

type pending struct {
	intent  Intent
	order   exchange.OrderRequest
	batchID atomic.Uint64

	done    chan struct{}
	outcome Outcome
}

func newPending(order exchange.OrderRequest, cloid types.Cloid, now time.Time) *pending {
	order.Cloid = mo.Some(cloid)
	return &pending{
		intent: Intent{Cloid: cloid, Coin: order.Coin, Created: now},
		order:  order,
		done:   make(chan struct{}),
	}
}

// stamp records the batch the intent was flushed with.
func (p *pending) stamp(id uint64) {
	p.batchID.Store(id)
}

// resolve is called exactly once, from the flush goroutine.
func (p *pending) resolve(out Outcome) {
	out.Cloid = p.intent.Cloid
	p.outcome = out
	close(p.done)
}

// Handle is the caller's side of a submitted intent.
type Handle struct {
	p *pending
}

func (h *Handle) Intent() Intent {
	in := h.p.intent
	in.BatchID = h.p.batchID.Load()
	return in
}

// Done is closed once the intent is resolved.
func (h *Handle) Done() <-chan struct{} {
	return h.p.done
}

// Wait blocks until the intent resolves or ctx is done. Giving up on the
// wait does not withdraw the intent: it is still dispatched with its batch.
func (h *Handle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-h.p.done:
		return h.p.outcome, h.p.outcome.Err
	case <-ctx.Done():
		return Outcome{Cloid: h.p.intent.Cloid}, ctx.Err()
	}
}
