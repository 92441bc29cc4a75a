package admission

import (
	"sync/atomic"
	"time"
)

// NonceManager issues nonces for one signing identity. Values are wall-clock
// milliseconds when the clock moves forward and last+1 otherwise, so no value
// is ever issued twice by the same manager.
type NonceManager struct {
	last atomic.Uint64
	now  func() time.Time
}

func NewNonceManager() *NonceManager {
	return &NonceManager{now: time.Now}
}

// Next returns a nonce strictly greater than every nonce issued before it.
func (n *NonceManager) Next() uint64 {
	for {
		last := n.last.Load()
		next := uint64(n.now().UnixMilli())
		if next <= last {
			next = last + 1
		}
		if n.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

// Last is the most recently issued nonce, or 0.
func (n *NonceManager) Last() uint64 {
	return n.last.Load()
}
