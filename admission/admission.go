// Package admission decides whether an action may be sent now and issues
// the nonce it is signed with. State is owned per instance: create one
// Controller per signing identity.
package admission

import (
	"github.com/banky/hyperliquid-exchange/constants"
	"github.com/banky/hyperliquid-exchange/internal/promutil"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	Capacity   int
	RefillRate float64
	// Registerer receives the admission counters. Nil disables them.
	Registerer prometheus.Registerer
}

// Controller composes nonce issuance and weighted rate limiting.
type Controller struct {
	nonces  *NonceManager
	limiter *RateLimiter
	weight  *prometheus.CounterVec
}

func New(cfg Config) *Controller {
	if cfg.Capacity <= 0 {
		cfg.Capacity = constants.RATE_LIMIT_MAX_TOKENS
	}
	if cfg.RefillRate <= 0 {
		cfg.RefillRate = constants.RATE_LIMIT_REFILL_RATE
	}

	c := &Controller{
		nonces:  NewNonceManager(),
		limiter: NewRateLimiter(cfg.Capacity, cfg.RefillRate),
	}

	if cfg.Registerer != nil {
		c.weight = promutil.Register(cfg.Registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_weight_total",
			Help: "Rate limit weight requested, by result.",
		}, []string{"result"}))
	}

	return c
}

// Admit reserves weight and then issues a nonce. A denied request does not
// consume a nonce.
func (c *Controller) Admit(weight int) (uint64, error) {
	if err := c.limiter.Admit(weight); err != nil {
		c.observe("denied", weight)
		return 0, err
	}
	c.observe("admitted", weight)
	return c.nonces.Next(), nil
}

// NextNonce issues a nonce without touching the rate limit.
func (c *Controller) NextNonce() uint64 {
	return c.nonces.Next()
}

func (c *Controller) Nonces() *NonceManager {
	return c.nonces
}

func (c *Controller) Limiter() *RateLimiter {
	return c.limiter
}

func (c *Controller) observe(result string, weight int) {
	if c.weight == nil {
		return
	}
	c.weight.WithLabelValues(result).Add(float64(weight))
}
