package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	pending      []prometheus.Collector
)

// register queues a collector from a package init. Nothing touches the
// default registry until MustRegister runs, which keeps tests that
// import this package from colliding on duplicate registration.
func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister flushes every queued collector into the default
// Prometheus registry. Safe to call from multiple binaries; only the
// first call does anything.
func MustRegister() {
	registerOnce.Do(func() {
		if len(pending) > 0 {
			prometheus.MustRegister(pending...)
		}
		pending = nil
	})
}
