// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fused

import (
	"bytes"
	"testing"

	"github.com/iiot-fusion/host/internal/dispatcher"
	"github.com/iiot-fusion/host/internal/hostsvc"
	"github.com/iiot-fusion/host/internal/msgid"
	"github.com/iiot-fusion/host/internal/plugin"
	"github.com/iiot-fusion/host/internal/plugin/native"
	"github.com/iiot-fusion/host/internal/registry"
	"github.com/iiot-fusion/host/internal/wire"
)

func celsiusUpdate(tagID string, celsius float64) []byte {
	return wire.EncodeTagUpdate(wire.TagUpdate{TagIDStr: tagID, HasF64: true, F64Val: celsius, Timestamp: 5000})
}

// TestRunEquivalentToDispatcher exercises the observational-equivalence
// invariant directly: the same input, through the fused pipeline and
// through the unfused dispatcher driving the same reference nodes, must
// produce the same sink bytes.
func TestRunEquivalentToDispatcher(t *testing.T) {
	reg := registry.New()
	svc := hostsvc.New(reg)

	d := &dispatcher.Dispatcher{
		Registry:  reg,
		Allocator: msgid.New(),
		Source:    native.NewSource(),
		Intermediate: []plugin.Handle{
			native.NewNodeA(),
			native.NewNodeB(),
			native.NewNodeC(),
		},
		Sink: native.NewSink(svc),
	}

	raw := celsiusUpdate("plant/line1/temp", 20)
	wantOutcome, err := d.Dispatch("plant/line1/temp", raw, dispatcher.DefaultTagMeta{})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	p := &Pipeline{
		Source: native.NewSource(),
		Intermediate: []plugin.Handle{
			native.NewNodeA(),
			native.NewNodeB(),
			native.NewNodeC(),
		},
		Sink: native.NewSink(svc),
	}

	got, err := p.Run(wantOutcome.TagID, wantOutcome.MsgID, raw)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !bytes.Equal(got, wantOutcome.Output) {
		t.Fatalf("fused Run output diverged from dispatcher output:\n got  %x\n want %x", got, wantOutcome.Output)
	}
}

func TestRunDropsLikeDispatcher(t *testing.T) {
	svc := hostsvc.New(registry.New())
	p := &Pipeline{
		Source: native.NewSource(),
		Intermediate: []plugin.Handle{
			native.NewNodeA(),
			native.NewNodeB(),
			native.NewNodeC(),
		},
		Sink: native.NewSink(svc),
	}

	// Quality 2 trips node-b's drop rule.
	raw := wire.EncodeTagUpdate(wire.TagUpdate{TagIDStr: "t", HasF64: true, F64Val: 20, Quality: 2})
	out, err := p.Run(1, 1, raw)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != nil {
		t.Fatalf("expected a nil (dropped) result, got %x", out)
	}
}

func TestSaveStatesLoadStatesRoundTrip(t *testing.T) {
	svc := hostsvc.New(registry.New())
	original := &Pipeline{
		Source:       native.NewSource(),
		Intermediate: []plugin.Handle{native.NewNodeA(), native.NewNodeB(), native.NewNodeC()},
		Sink:         native.NewSink(svc),
	}

	for i := 0; i < 5; i++ {
		raw := celsiusUpdate("t", float64(10+i))
		if _, err := original.Run(1, uint32(i+1), raw); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	}

	blob, err := original.SaveStates()
	if err != nil {
		t.Fatalf("SaveStates failed: %v", err)
	}

	restored := &Pipeline{
		Source:       native.NewSource(),
		Intermediate: []plugin.Handle{native.NewNodeA(), native.NewNodeB(), native.NewNodeC()},
		Sink:         native.NewSink(svc),
	}
	if err := restored.LoadStates(blob); err != nil {
		t.Fatalf("LoadStates failed: %v", err)
	}

	raw := celsiusUpdate("t", 99)
	want, err := original.Run(1, 100, raw)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	got, err := restored.Run(1, 100, raw)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("restored pipeline diverged after LoadStates:\n got  %x\n want %x", got, want)
	}
}
