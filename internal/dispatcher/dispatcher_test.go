// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatcher

import (
	"testing"

	"github.com/iiot-fusion/host/internal/hostsvc"
	"github.com/iiot-fusion/host/internal/msgid"
	"github.com/iiot-fusion/host/internal/plugin"
	"github.com/iiot-fusion/host/internal/plugin/native"
	"github.com/iiot-fusion/host/internal/registry"
	"github.com/iiot-fusion/host/internal/wire"
)

func newReferenceDispatcher() (*Dispatcher, *registry.Registry) {
	reg := registry.New()
	svc := hostsvc.New(reg)
	d := &Dispatcher{
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
	return d, reg
}

func celsiusUpdate(tagID string, celsius float64, quality uint32) []byte {
	return wire.EncodeTagUpdate(wire.TagUpdate{
		TagIDStr:  tagID,
		Timestamp: 1000,
		Quality:   quality,
		HasF64:    true,
		F64Val:    celsius,
	})
}

func TestDispatchReferencePipelineSuccess(t *testing.T) {
	d, _ := newReferenceDispatcher()

	outcome, err := d.Dispatch("plant/line1/temp", celsiusUpdate("plant/line1/temp", 20, 0), DefaultTagMeta{})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if outcome.Dropped {
		t.Fatalf("message unexpectedly dropped at stage %s", outcome.Stage)
	}
	if outcome.TagID != 1 {
		t.Fatalf("TagID = %d, want 1 (first tag seen)", outcome.TagID)
	}
	if outcome.MsgID != 1 {
		t.Fatalf("MsgID = %d, want 1 (first message)", outcome.MsgID)
	}

	res, err := wire.DecodeFlowResult(outcome.Output)
	if err != nil {
		t.Fatalf("sink output did not decode as FlowResult: %v", err)
	}
	// 20 degC -> 68 degF, exactly the first (and only) windowed sample.
	if res.Value != 68 {
		t.Fatalf("FlowResult.Value = %v, want 68", res.Value)
	}
	if res.FlowID != "flow-temp-pipeline-v1" {
		t.Fatalf("FlowResult.FlowID = %q, want flow-temp-pipeline-v1", res.FlowID)
	}
}

func TestDispatchSameTagNameReusesID(t *testing.T) {
	d, reg := newReferenceDispatcher()

	o1, err := d.Dispatch("plant/line1/temp", celsiusUpdate("plant/line1/temp", 20, 0), DefaultTagMeta{})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	o2, err := d.Dispatch("plant/line1/temp", celsiusUpdate("plant/line1/temp", 21, 0), DefaultTagMeta{})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if o1.TagID != o2.TagID {
		t.Fatalf("same tag name produced different ids: %d != %d", o1.TagID, o2.TagID)
	}
	if o2.MsgID <= o1.MsgID {
		t.Fatalf("message ids did not increase: %d -> %d", o1.MsgID, o2.MsgID)
	}
	if reg.Size() != 1 {
		t.Fatalf("registry size = %d, want 1", reg.Size())
	}
}

func TestDispatchDropsAtSourceOnEmptyUpdate(t *testing.T) {
	d, _ := newReferenceDispatcher()

	raw := wire.EncodeTagUpdate(wire.TagUpdate{TagIDStr: "plant/line1/temp"})
	outcome, err := d.Dispatch("plant/line1/temp", raw, DefaultTagMeta{})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !outcome.Dropped || outcome.Stage != "source" {
		t.Fatalf("expected a source-stage drop, got %+v", outcome)
	}
	if outcome.Output != nil {
		t.Fatal("a dropped message must not carry sink output")
	}
}

func TestDispatchDropsAtNodeBOnBadQuality(t *testing.T) {
	d, _ := newReferenceDispatcher()

	outcome, err := d.Dispatch("plant/line1/temp", celsiusUpdate("plant/line1/temp", 20, 2), DefaultTagMeta{})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !outcome.Dropped || outcome.Stage != "node-b:quality-filter" {
		t.Fatalf("expected a node-b drop, got %+v", outcome)
	}
}

func TestDispatchOutOfRangeDemotesButDoesNotDrop(t *testing.T) {
	d, _ := newReferenceDispatcher()

	// 200 degC -> 392 degF, far above node B's high alarm; this demotes
	// quality to uncertain but must still reach the sink (invariant I4).
	outcome, err := d.Dispatch("plant/line1/temp", celsiusUpdate("plant/line1/temp", 200, 0), DefaultTagMeta{})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if outcome.Dropped {
		t.Fatal("an out-of-range reading must be demoted, not dropped")
	}

	res, err := wire.DecodeFlowResult(outcome.Output)
	if err != nil {
		t.Fatalf("sink output did not decode: %v", err)
	}
	if res.Quality != 1 {
		t.Fatalf("Quality = %d, want 1 (uncertain)", res.Quality)
	}
}
