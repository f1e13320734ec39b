// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package reporter runs a periodic summary of dispatcher throughput and
// drops, in the same spirit as the teacher's checkpointing ticker
// (internal/memorystore/checkpoint.go logs a "start.../done" pair on every
// tick) but scheduled through go-co-op/gocron/v2 instead of a hand-rolled
// time.Ticker loop.
package reporter

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	log "github.com/iiot-fusion/host/pkg/log"
)

// Snapshot is a point-in-time read of one pipeline's counters. Producing it
// is the caller's job (e.g. scraping the Prometheus registry) so this
// package stays free of any particular metrics backend.
type Snapshot struct {
	PipelineName string
	Dispatched   uint64
	Dropped      uint64
	PluginErrors uint64
}

// Reporter schedules a recurring job that logs a Snapshot.
type Reporter struct {
	scheduler gocron.Scheduler
	snapshot  func() Snapshot
}

// New creates a Reporter backed by a fresh gocron scheduler. snapshot is
// called once per tick to obtain the counters to log.
func New(snapshot func() Snapshot) (*Reporter, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Reporter{scheduler: s, snapshot: snapshot}, nil
}

// Start registers the periodic job at the given interval and begins
// running it in the background. Call Stop to shut it down.
func (r *Reporter) Start(interval time.Duration) error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.report),
	)
	if err != nil {
		return err
	}
	r.scheduler.Start()
	return nil
}

func (r *Reporter) report() {
	s := r.snapshot()
	log.Infof("pipeline %s: dispatched=%d dropped=%d plugin_errors=%d",
		s.PipelineName, s.Dispatched, s.Dropped, s.PluginErrors)
}

// Stop drains the scheduler, waiting up to ctx's deadline for the current
// job run (if any) to finish.
func (r *Reporter) Stop(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- r.scheduler.Shutdown() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
