// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveDropIncrementsCounterAndSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, "temp-pipeline", func() float64 { return 3 })

	c.ObserveDrop("node-b:quality-filter")
	c.ObserveDrop("node-b:quality-filter")
	c.ObserveDrop("source")

	if got := testutil.ToFloat64(c.drops.WithLabelValues("node-b:quality-filter")); got != 2 {
		t.Fatalf("drops{node-b} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.drops.WithLabelValues("source")); got != 1 {
		t.Fatalf("drops{source} = %v, want 1", got)
	}

	snap := c.Snapshot()
	if snap.Dropped != 3 {
		t.Fatalf("Snapshot().Dropped = %d, want 3", snap.Dropped)
	}
	if snap.PipelineName != "temp-pipeline" {
		t.Fatalf("Snapshot().PipelineName = %q, want temp-pipeline", snap.PipelineName)
	}
}

func TestObservePluginErrorAndDispatched(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, "p", func() float64 { return 0 })

	c.ObservePluginError("node-a:unit-converter")
	c.ObserveDispatched()
	c.ObserveDispatched()

	if got := testutil.ToFloat64(c.pluginErrors.WithLabelValues("node-a:unit-converter")); got != 1 {
		t.Fatalf("pluginErrors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.dispatched); got != 2 {
		t.Fatalf("dispatched = %v, want 2", got)
	}

	snap := c.Snapshot()
	if snap.PluginErrors != 1 || snap.Dispatched != 2 {
		t.Fatalf("Snapshot = %+v, want PluginErrors=1 Dispatched=2", snap)
	}
}

func TestRegistrySizeGaugeReflectsCallback(t *testing.T) {
	reg := prometheus.NewRegistry()
	size := 0.0
	c := New(reg, "p", func() float64 { return size })

	size = 7
	if got := testutil.ToFloat64(c.registrySize); got != 7 {
		t.Fatalf("registrySize gauge = %v, want 7", got)
	}
}
