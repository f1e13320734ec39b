// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package native

import "github.com/iiot-fusion/host/internal/flow"

const (
	lowAlarmF  = 32.0
	highAlarmF = 104.0
)

// NodeB drops bad-quality (>=2) readings and demotes readings outside the
// fixed 32..104 degF alarm band to uncertain quality, otherwise passing the incoming quality
// through unchanged. The value itself is never modified.
type NodeB struct{}

func NewNodeB() *NodeB { return &NodeB{} }

func (n *NodeB) Name() string    { return "node-b:quality-filter" }
func (n *NodeB) Version() string { return "0.1.0" }

func (n *NodeB) AcceptedInputTypes() []flow.ValueKind { return []flow.ValueKind{flow.KindF64} }
func (n *NodeB) OutputType() flow.ValueKind           { return flow.KindF64 }

func (n *NodeB) Process(msg flow.FlowMsg) ([]flow.FlowMsg, error) {
	if msg.Quality >= 2 {
		return nil, nil
	}
	if msg.Value.Kind != flow.KindF64 {
		return nil, nil
	}

	val := msg.Value.F64Val
	quality := msg.Quality
	if val > highAlarmF || val < lowAlarmF {
		quality = flow.QualityUncertain
	}

	return []flow.FlowMsg{{
		TagID:     msg.TagID,
		MsgID:     msg.MsgID,
		Value:     flow.F64(val),
		Timestamp: msg.Timestamp,
		Quality:   quality,
	}}, nil
}

func (n *NodeB) ProcessRaw(uint32, uint32, []byte) ([]flow.FlowMsg, error) { return nil, nil }
func (n *NodeB) SaveState() ([]byte, error)                                { return nil, nil }
func (n *NodeB) LoadState([]byte) error                                    { return nil }
func (n *NodeB) Close() error                                              { return nil }
