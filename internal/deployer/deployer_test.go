// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package deployer

import (
	"testing"

	"github.com/iiot-fusion/host/internal/flow"
	"github.com/iiot-fusion/host/internal/hostsvc"
	"github.com/iiot-fusion/host/internal/plugin"
	"github.com/iiot-fusion/host/internal/plugin/native"
	"github.com/iiot-fusion/host/internal/registry"
)

func TestValidateAcceptsReferencePipeline(t *testing.T) {
	svc := hostsvc.New(registry.New())
	chain := []plugin.Handle{
		native.NewSource(),
		native.NewNodeA(),
		native.NewNodeB(),
		native.NewNodeC(),
		native.NewSink(svc),
	}

	if err := Validate(chain); err != nil {
		t.Fatalf("Validate rejected a compatible chain: %v", err)
	}
}

// stubHandle is a minimal plugin.Handle used only to exercise a deliberately
// incompatible edge; it never runs a message.
type stubHandle struct {
	name     string
	accepted []flow.ValueKind
	output   flow.ValueKind
}

func (s *stubHandle) Name() string                               { return s.name }
func (s *stubHandle) Version() string                             { return "0.0.0" }
func (s *stubHandle) AcceptedInputTypes() []flow.ValueKind         { return s.accepted }
func (s *stubHandle) OutputType() flow.ValueKind                   { return s.output }
func (s *stubHandle) Process(flow.FlowMsg) ([]flow.FlowMsg, error) { return nil, nil }
func (s *stubHandle) ProcessRaw(uint32, uint32, []byte) ([]flow.FlowMsg, error) {
	return nil, nil
}
func (s *stubHandle) SaveState() ([]byte, error) { return nil, nil }
func (s *stubHandle) LoadState([]byte) error     { return nil }
func (s *stubHandle) Close() error               { return nil }

func TestValidateRejectsTypeMismatch(t *testing.T) {
	emitsI32 := &stubHandle{name: "emits-i32", output: flow.KindI32}
	acceptsBoolOnly := &stubHandle{name: "accepts-bool", accepted: []flow.ValueKind{flow.KindBool}, output: flow.KindBool}

	err := Validate([]plugin.Handle{emitsI32, acceptsBoolOnly})
	if err == nil {
		t.Fatal("Validate should reject an i32 -> bool-only edge")
	}

	mismatch, ok := err.(*TypeMismatchError)
	if !ok {
		t.Fatalf("expected *TypeMismatchError, got %T", err)
	}
	if mismatch.FromName != "emits-i32" || mismatch.ToName != "accepts-bool" {
		t.Fatalf("unexpected mismatch endpoints: %+v", mismatch)
	}
}

func TestValidateAcceptsAnyOnEitherSide(t *testing.T) {
	anyOut := &stubHandle{name: "any-out", output: flow.KindAny}
	specific := &stubHandle{name: "specific", accepted: []flow.ValueKind{flow.KindF64}, output: flow.KindF64}
	acceptsAny := &stubHandle{name: "accepts-any", accepted: []flow.ValueKind{flow.KindAny}, output: flow.KindAny}

	if err := Validate([]plugin.Handle{anyOut, specific}); err != nil {
		t.Fatalf("any output should satisfy any accepted set: %v", err)
	}
	if err := Validate([]plugin.Handle{specific, acceptsAny}); err != nil {
		t.Fatalf("accepting any should satisfy any output: %v", err)
	}
}
