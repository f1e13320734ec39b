// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package native

import (
	"fmt"

	"github.com/iiot-fusion/host/internal/flow"
	"github.com/iiot-fusion/host/internal/hostsvc"
	"github.com/iiot-fusion/host/internal/wire"
)

// flowID identifies the pipeline revision in every FlowResult this sink
// emits; it mirrors the constant the reference sink node carries.
const flowID = "flow-temp-pipeline-v1"

// SinkNode accepts every non-blob scalar and short-str, coerces bool/int/float
// values to f64, and encodes a FlowResult into its out-buffer. A short-str
// value cannot be coerced, so it leaves the out-buffer empty. It is the only
// sample node that imports the Host Service Surface.
type SinkNode struct {
	svc    *hostsvc.Surface
	outBuf []byte
}

func NewSink(svc *hostsvc.Surface) *SinkNode {
	return &SinkNode{svc: svc}
}

func (s *SinkNode) Name() string    { return "sink-node" }
func (s *SinkNode) Version() string { return "0.1.0" }

func (s *SinkNode) AcceptedInputTypes() []flow.ValueKind {
	return []flow.ValueKind{
		flow.KindBool, flow.KindI32, flow.KindU32, flow.KindF32, flow.KindF64, flow.KindShortStr,
	}
}
func (s *SinkNode) OutputType() flow.ValueKind { return flow.KindAny }

func (s *SinkNode) Process(msg flow.FlowMsg) ([]flow.FlowMsg, error) {
	value, ok := msg.Value.AsF64()
	if !ok {
		return nil, nil
	}

	tagName, ok := s.svc.GetTagAttr(msg.TagID, "name")
	if !ok {
		tagName = fmt.Sprintf("tag_%d", msg.TagID)
	}
	mqttTopic, ok := s.svc.GetTagAttr(msg.TagID, "mqtt_topic")
	if !ok {
		mqttTopic = fmt.Sprintf("iiot/tag/%d", msg.TagID)
	}

	s.outBuf = wire.EncodeFlowResult(wire.FlowResult{
		TagID:     msg.TagID,
		TagName:   tagName,
		MqttTopic: mqttTopic,
		MsgID:     msg.MsgID,
		Value:     value,
		Timestamp: msg.Timestamp,
		Quality:   uint32(msg.Quality),
		FlowID:    flowID,
	})

	return nil, nil
}

func (s *SinkNode) ProcessRaw(uint32, uint32, []byte) ([]flow.FlowMsg, error) { return nil, nil }
func (s *SinkNode) SaveState() ([]byte, error)                                { return nil, nil }
func (s *SinkNode) LoadState([]byte) error                                    { return nil }
func (s *SinkNode) Close() error                                              { return nil }

// TakeOutput implements plugin.SinkHandle: it drains and clears the
// out-buffer produced by the most recent Process call.
func (s *SinkNode) TakeOutput() ([]byte, error) {
	out := s.outBuf
	s.outBuf = nil
	return out, nil
}
