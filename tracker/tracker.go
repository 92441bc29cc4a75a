// Package tracker coalesces orders submitted by independent callers into
// batched order actions and hands each caller the exchange order id of its
// own order.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banky/hyperliquid-exchange/exchange"
	"github.com/banky/hyperliquid-exchange/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	DefaultMaxBatchSize   = 20
	DefaultMaxWait        = 50 * time.Millisecond
	DefaultQueueSize      = 256
	DefaultResolveTimeout = 10 * time.Second
	DefaultRegistryTTL    = 10 * time.Minute
)

// Placer posts one order action and returns a status per order, in order.
// *exchange.Exchange implements it.
type Placer interface {
	PlaceOrders(ctx context.Context, orders []exchange.OrderRequest) ([]exchange.OrderStatus, error)
}

// Checker runs the local checks a Placer would fail a whole batch on, for
// one order. When the Placer is also a Checker, orders failing them are
// refused at Submit and never join a window.
type Checker interface {
	CheckOrder(order exchange.OrderRequest) error
}

var (
	_ Placer  = (*exchange.Exchange)(nil)
	_ Checker = (*exchange.Exchange)(nil)
)

type Config struct {
	// MaxBatchSize flushes the window as soon as it holds this many intents.
	MaxBatchSize int
	// MaxWait flushes the window this long after its first intent.
	MaxWait time.Duration
	// QueueSize bounds intents submitted but not yet in a window.
	QueueSize int
	// ResolveTimeout bounds each batch round trip.
	ResolveTimeout time.Duration
	RegistryTTL    time.Duration

	Logger     *zap.Logger
	Registerer prometheus.Registerer
}

func (c *Config) setDefaults() {
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = DefaultMaxBatchSize
	}
	if c.MaxWait <= 0 {
		c.MaxWait = DefaultMaxWait
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = DefaultResolveTimeout
	}
	if c.RegistryTTL <= 0 {
		c.RegistryTTL = DefaultRegistryTTL
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Option is a functional option for the Batcher
type Option func(*Batcher)

// WithRegistry shares a cloid registry between batchers.
func WithRegistry(r *Registry) Option {
	return func(b *Batcher) {
		b.registry = r
	}
}

// WithCloidSource sets how cloids are generated for orders submitted
// without one.
func WithCloidSource(next func() types.Cloid) Option {
	return func(b *Batcher) {
		b.newCloid = next
	}
}

// Batcher owns a single flush goroutine. Windows are dispatched one at a
// time, so batches from one Batcher never race each other for nonces.
type Batcher struct {
	placer   Placer
	cfg      Config
	registry *Registry
	newCloid func() types.Cloid
	now      func() time.Time
	logger   *zap.Logger
	metrics  *metrics

	queue   chan *pending
	batches atomic.Uint64

	// mu orders Submit against Close: no send on queue starts after closed
	// is set.
	mu     sync.RWMutex
	closed bool

	startOnce sync.Once
	closing   chan struct{}
	stopped   chan struct{}
	inflight  sync.WaitGroup
}

func New(placer Placer, cfg Config, opts ...Option) *Batcher {
	cfg.setDefaults()

	b := &Batcher{
		placer:   placer,
		cfg:      cfg,
		newCloid: types.NewCloid,
		now:      time.Now,
		logger:   cfg.Logger.Named("tracker"),
		metrics:  newMetrics(cfg.Registerer),
		queue:    make(chan *pending, cfg.QueueSize),
		closing:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = NewRegistry(cfg.RegistryTTL)
	}
	return b
}

// Start launches the flush goroutine. Calling it more than once is a no-op.
func (b *Batcher) Start() {
	b.startOnce.Do(func() {
		go b.run()
	})
}

func (b *Batcher) Registry() *Registry {
	return b.registry
}

// Submit queues order for the next batch. Orders without a cloid get one.
// An order failing the local checks is refused here with its
// *exchange.InvalidRequestError. Submit blocks only while the queue is full.
func (b *Batcher) Submit(ctx context.Context, order exchange.OrderRequest) (*Handle, error) {
	if err := b.check(order); err != nil {
		return nil, err
	}

	cloid, ok := order.Cloid.Get()
	if !ok {
		cloid = b.newCloid()
	}
	p := newPending(order, cloid, b.now())

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrClosed
	}

	select {
	case b.queue <- p:
		return &Handle{p: p}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Batcher) check(order exchange.OrderRequest) error {
	if c, ok := b.placer.(Checker); ok {
		return c.CheckOrder(order)
	}
	return order.Validate()
}

// Close stops accepting intents, flushes everything already submitted and
// waits for the last batch to resolve or ctx to end.
func (b *Batcher) Close(ctx context.Context) error {
	// The flush goroutine must be draining the queue before we take the
	// write lock, or a Submit blocked on a full queue would hold it off.
	b.Start()

	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.closing)
	}
	b.mu.Unlock()

	select {
	case <-b.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	idle := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Batcher) run() {
	defer close(b.stopped)

	var (
		window   []*pending
		timer    *time.Timer
		deadline <-chan time.Time
	)

	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, deadline = nil, nil
		}
		if len(window) > 0 {
			b.flush(window)
			window = nil
		}
	}

	add := func(p *pending) {
		window = append(window, p)
		if len(window) == 1 {
			timer = time.NewTimer(b.cfg.MaxWait)
			deadline = timer.C
		}
		if len(window) >= b.cfg.MaxBatchSize {
			flush()
		}
	}

	for {
		select {
		case p := <-b.queue:
			add(p)

		case <-deadline:
			flush()

		case <-b.closing:
			for {
				select {
				case p := <-b.queue:
					add(p)
				default:
					flush()
					b.logger.Debug("flush loop stopped")
					return
				}
			}
		}
	}
}

type placeResult struct {
	statuses []exchange.OrderStatus
	err      error
}

func (b *Batcher) flush(window []*pending) {
	id := b.batches.Add(1)
	logger := b.logger.With(zap.Uint64("batch", id))

	// The asset table may have changed since Submit. An order that no
	// longer converts resolves alone; the rest of the window is sent.
	batch := window[:0]
	for _, p := range window {
		p.stamp(id)
		if err := b.check(p.order); err != nil {
			logger.Debug("intent refused", zap.Stringer("cloid", p.intent.Cloid), zap.Error(err))
			b.metrics.resolved("invalid", 1)
			p.resolve(Outcome{BatchID: id, Err: err})
			continue
		}
		batch = append(batch, p)
	}
	if len(batch) == 0 {
		return
	}

	logger = logger.With(zap.Int("size", len(batch)))
	b.metrics.batch(len(batch))

	orders := make([]exchange.OrderRequest, len(batch))
	for i, p := range batch {
		orders[i] = p.order
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.ResolveTimeout)
	defer cancel()

	done := make(chan placeResult, 1)
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		statuses, err := b.placer.PlaceOrders(ctx, orders)
		done <- placeResult{statuses: statuses, err: err}
	}()

	logger.Debug("batch dispatched")

	select {
	case res := <-done:
		if res.err != nil && ctx.Err() != nil {
			b.unresolved(id, batch, logger)
			break
		}
		b.demux(id, batch, res, logger)
	case <-ctx.Done():
		b.unresolved(id, batch, logger)
	}

	if n := b.registry.Prune(); n > 0 {
		logger.Debug("pruned registry", zap.Int("expired", n))
	}
}

func (b *Batcher) unresolved(id uint64, batch []*pending, logger *zap.Logger) {
	err := fmt.Errorf("%w after %s", ErrUnresolved, b.cfg.ResolveTimeout)
	logger.Warn("batch unresolved", zap.Error(err))
	b.fail(id, batch, err, "unresolved")
}

// demux resolves intent i from status i. Any sign that statuses and intents
// are misaligned fails the whole batch.
func (b *Batcher) demux(id uint64, batch []*pending, res placeResult, logger *zap.Logger) {
	if res.err != nil {
		logger.Warn("batch failed", zap.Error(res.err))
		b.fail(id, batch, res.err, "failed")
		return
	}

	if len(res.statuses) != len(batch) {
		err := fmt.Errorf("%w: %d statuses for %d orders", ErrOutOfOrder, len(res.statuses), len(batch))
		logger.Error("batch misaligned", zap.Error(err))
		b.fail(id, batch, err, "out_of_order")
		return
	}

	for i, status := range res.statuses {
		cloid, ok := status.Cloid()
		if ok && cloid != batch[i].intent.Cloid {
			err := fmt.Errorf("%w: status %d echoes %s, want %s", ErrOutOfOrder, i, cloid, batch[i].intent.Cloid)
			logger.Error("batch misaligned", zap.Error(err))
			b.fail(id, batch, err, "out_of_order")
			return
		}
	}

	outs := make([]Outcome, len(batch))
	rejected := 0
	for i, status := range res.statuses {
		outs[i] = Outcome{BatchID: id, Status: status}
		if err := status.Err(); err != nil {
			outs[i].Err = err
			rejected++
			continue
		}
		outs[i].Oid, _ = status.Oid()
		b.registry.Put(batch[i].intent.Cloid, outs[i].Oid)
	}

	b.metrics.resolved("resolved", len(batch)-rejected)
	b.metrics.resolved("rejected", rejected)
	logger.Debug("batch resolved", zap.Int("rejected", rejected))

	for i, p := range batch {
		p.resolve(outs[i])
	}
}

func (b *Batcher) fail(id uint64, batch []*pending, err error, label string) {
	b.metrics.resolved(label, len(batch))
	for _, p := range batch {
		p.resolve(Outcome{BatchID: id, Err: err})
	}
}
