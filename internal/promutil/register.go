// Package promutil registers collectors that several client instances may
// share a registry for.
package promutil

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Register registers c on reg and returns the collector to observe into.
// When an identical collector is already registered, e.g. by a second
// client on the same registry, the existing one is returned so both feed
// the same series. Any other registration error panics, as MustRegister
// does.
func Register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}
