// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reporter

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartInvokesSnapshotPeriodically(t *testing.T) {
	var calls atomic.Int32
	r, err := New(func() Snapshot {
		calls.Add(1)
		return Snapshot{PipelineName: "p"}
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := r.Start(5 * time.Millisecond); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := r.Stop(ctx); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	}()

	deadline := time.Now().Add(time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if calls.Load() == 0 {
		t.Fatal("snapshot callback was never invoked within the deadline")
	}
}

func TestStopShutsDownCleanly(t *testing.T) {
	r, err := New(func() Snapshot { return Snapshot{} })
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := r.Start(time.Hour); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}
