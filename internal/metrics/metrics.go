// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes the dispatcher's hot-path observability
// (spec §4.6: "observable (counters, structured log)") as Prometheus
// metrics, grounded on the teacher's own use of prometheus/client_golang
// (internal/metricdata/prometheus.go uses the same module, there as a
// scrape client; here as the exporter side of that same dependency).
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iiot-fusion/host/internal/reporter"
)

// Collector implements dispatcher.Metrics with Prometheus counters. It also
// keeps its own atomic tallies so a reporter.Reporter can log a periodic
// summary without scraping the Prometheus registry.
type Collector struct {
	pipelineName string

	drops        *prometheus.CounterVec
	pluginErrors *prometheus.CounterVec
	dispatched   prometheus.Counter
	registrySize prometheus.GaugeFunc

	dropCount        atomic.Uint64
	pluginErrorCount atomic.Uint64
	dispatchedCount  atomic.Uint64
}

// New registers a fresh set of pipeline metrics under reg. registrySize is
// a callback so the registry's current tag count can be scraped on demand
// rather than pushed on every mutation.
func New(reg prometheus.Registerer, pipelineName string, registrySize func() float64) *Collector {
	labels := prometheus.Labels{"pipeline": pipelineName}

	c := &Collector{
		pipelineName: pipelineName,
		drops: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace:   "iiot_fusion",
			Name:        "dropped_messages_total",
			Help:        "Messages dropped per pipeline stage.",
			ConstLabels: labels,
		}, []string{"stage"}),
		pluginErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace:   "iiot_fusion",
			Name:        "plugin_call_errors_total",
			Help:        "Plugin invocation failures per node.",
			ConstLabels: labels,
		}, []string{"stage"}),
		dispatched: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace:   "iiot_fusion",
			Name:        "dispatched_messages_total",
			Help:        "Messages that reached the sink successfully.",
			ConstLabels: labels,
		}),
	}

	c.registrySize = promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "iiot_fusion",
		Name:        "tag_registry_size",
		Help:        "Number of tags currently known to the Tag Registry.",
		ConstLabels: labels,
	}, registrySize)

	return c
}

func (c *Collector) ObserveDrop(stage string) {
	c.drops.WithLabelValues(stage).Inc()
	c.dropCount.Add(1)
}

func (c *Collector) ObservePluginError(stage string) {
	c.pluginErrors.WithLabelValues(stage).Inc()
	c.pluginErrorCount.Add(1)
}

func (c *Collector) ObserveDispatched() {
	c.dispatched.Inc()
	c.dispatchedCount.Add(1)
}

// Snapshot reads the collector's running tallies for reporter.Reporter.
func (c *Collector) Snapshot() reporter.Snapshot {
	return reporter.Snapshot{
		PipelineName: c.pipelineName,
		Dispatched:   c.dispatchedCount.Load(),
		Dropped:      c.dropCount.Load(),
		PluginErrors: c.pluginErrorCount.Load(),
	}
}

// Handler returns the /metrics HTTP handler for the given registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
