// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package native

import "github.com/iiot-fusion/host/internal/flow"

// NodeA converts a Celsius reading (f32 or f64) to Fahrenheit, emitting f64.
// Non-numeric input is dropped.
type NodeA struct{}

func NewNodeA() *NodeA { return &NodeA{} }

func (n *NodeA) Name() string    { return "node-a:unit-converter" }
func (n *NodeA) Version() string { return "0.1.0" }

func (n *NodeA) AcceptedInputTypes() []flow.ValueKind {
	return []flow.ValueKind{flow.KindF32, flow.KindF64}
}
func (n *NodeA) OutputType() flow.ValueKind { return flow.KindF64 }

func (n *NodeA) Process(msg flow.FlowMsg) ([]flow.FlowMsg, error) {
	var celsius float64
	switch msg.Value.Kind {
	case flow.KindF32:
		celsius = float64(msg.Value.F32Val)
	case flow.KindF64:
		celsius = msg.Value.F64Val
	default:
		return nil, nil
	}

	fahrenheit := celsius*9.0/5.0 + 32.0

	return []flow.FlowMsg{{
		TagID:     msg.TagID,
		MsgID:     msg.MsgID,
		Value:     flow.F64(fahrenheit),
		Timestamp: msg.Timestamp,
		Quality:   msg.Quality,
	}}, nil
}

func (n *NodeA) ProcessRaw(uint32, uint32, []byte) ([]flow.FlowMsg, error) { return nil, nil }
func (n *NodeA) SaveState() ([]byte, error)                                { return nil, nil }
func (n *NodeA) LoadState([]byte) error                                    { return nil }
func (n *NodeA) Close() error                                              { return nil }
