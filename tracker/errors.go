package tracker

import "errors"

var (
	// ErrClosed is returned by Submit once Close has been called.
	ErrClosed = errors.New("tracker closed")
	// ErrOutOfOrder means the statuses of a batch could not be matched to
	// its intents. Nothing in the batch is trusted.
	ErrOutOfOrder = errors.New("batch statuses out of order")
	// ErrUnresolved means no answer arrived within the resolve timeout. The
	// orders may or may not rest on the exchange.
	ErrUnresolved = errors.New("batch unresolved")
)
