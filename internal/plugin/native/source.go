// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package native hosts the five illustrative sample nodes (spec §4.8) as
// in-process Go values implementing plugin.Handle directly, rather than as
// WASM artifacts loaded through internal/plugin/wasmrt. This is what makes
// the deployer and dispatcher deterministically testable without a WASM
// toolchain in the test runner; it is not a redefinition of the plugin
// contract, merely a second backend for it (see SPEC_FULL.md §6).
package native

import (
	"github.com/iiot-fusion/host/internal/flow"
	"github.com/iiot-fusion/host/internal/wire"
)

// SourceNode decodes a TagUpdate record and emits exactly one FlowMsg
// carrying the first present typed value, in priority
// bool -> i32 -> u32 -> f32 -> f64 -> short-str -> blob. A missing value
// drops the message.
type SourceNode struct{}

func NewSource() *SourceNode { return &SourceNode{} }

func (s *SourceNode) Name() string    { return "source-node" }
func (s *SourceNode) Version() string { return "0.1.0" }

func (s *SourceNode) AcceptedInputTypes() []flow.ValueKind { return nil }
func (s *SourceNode) OutputType() flow.ValueKind           { return flow.KindAny }

func (s *SourceNode) Process(flow.FlowMsg) ([]flow.FlowMsg, error) {
	return nil, nil
}

func (s *SourceNode) ProcessRaw(tagID, msgID uint32, raw []byte) ([]flow.FlowMsg, error) {
	tu, err := wire.DecodeTagUpdate(raw)
	if err != nil {
		return nil, err
	}

	var value flow.TagValue
	switch {
	case tu.HasBool:
		value = flow.Bool(tu.BoolVal)
	case tu.HasI32:
		value = flow.I32(tu.I32Val)
	case tu.HasU32:
		value = flow.U32(tu.U32Val)
	case tu.HasF32:
		value = flow.F32(tu.F32Val)
	case tu.HasF64:
		value = flow.F64(tu.F64Val)
	case tu.HasStr:
		value = flow.ShortStr(tu.StrVal)
	case tu.HasBlob:
		value = flow.Blob(tu.BlobVal)
	default:
		return nil, nil
	}

	return []flow.FlowMsg{{
		TagID:     tagID,
		MsgID:     msgID,
		Value:     value,
		Timestamp: tu.Timestamp,
		Quality:   flow.Quality(tu.Quality),
	}}, nil
}

func (s *SourceNode) SaveState() ([]byte, error)   { return nil, nil }
func (s *SourceNode) LoadState([]byte) error       { return nil }
func (s *SourceNode) Close() error                 { return nil }
