// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fused implements the Fused Pipeline Handle (spec §4.7): an
// optional packaging of source, intermediates and sink into a single
// handle exposing Run and an aggregated save/load-states pair. Its Run
// must be observationally equivalent to the dispatcher driving the
// equivalent unfused chain — this package is built directly on top of
// plugin.Handle so that equivalence holds by construction rather than by
// a second, hand-duplicated hot path.
package fused

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/iiot-fusion/host/internal/flow"
	"github.com/iiot-fusion/host/internal/plugin"
)

// Pipeline composes a source, zero or more intermediate nodes and a sink
// into one plugin.FusedHandle.
type Pipeline struct {
	Source       plugin.Handle
	Intermediate []plugin.Handle
	Sink         plugin.SinkHandle
}

var _ plugin.FusedHandle = (*Pipeline)(nil)

// Run drives tagID/msgID/raw through source, every intermediate node, then
// the sink, returning the sink's encoded output bytes (or nil if the
// message was dropped anywhere along the chain).
func (p *Pipeline) Run(tagID, msgID uint32, raw []byte) ([]byte, error) {
	msgs, err := p.Source.ProcessRaw(tagID, msgID, raw)
	if err != nil {
		return nil, fmt.Errorf("fused: source: %w", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	for _, node := range p.Intermediate {
		var next []flow.FlowMsg
		for _, m := range msgs {
			out, err := node.Process(m)
			if err != nil {
				return nil, fmt.Errorf("fused: %s: %w", node.Name(), err)
			}
			next = append(next, out...)
		}
		msgs = next
		if len(msgs) == 0 {
			return nil, nil
		}
	}

	if _, err := p.Sink.Process(msgs[0]); err != nil {
		return nil, fmt.Errorf("fused: %s: %w", p.Sink.Name(), err)
	}
	return p.Sink.TakeOutput()
}

// nodes returns every handle whose state participates in the concatenated
// blob, in a fixed order: source, then intermediates, then sink.
func (p *Pipeline) nodes() []plugin.Handle {
	all := make([]plugin.Handle, 0, len(p.Intermediate)+2)
	all = append(all, p.Source)
	all = append(all, p.Intermediate...)
	all = append(all, p.Sink)
	return all
}

// SaveStates concatenates every node's opaque state blob, each prefixed
// with its length so LoadStates can split them back apart without the
// individual node formats needing to be self-delimiting.
func (p *Pipeline) SaveStates() ([]byte, error) {
	var buf bytes.Buffer
	for _, n := range p.nodes() {
		blob, err := n.SaveState()
		if err != nil {
			return nil, fmt.Errorf("fused: save-state %s: %w", n.Name(), err)
		}
		var lenPrefix [4]byte
		binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(blob)))
		buf.Write(lenPrefix[:])
		buf.Write(blob)
	}
	return buf.Bytes(), nil
}

// LoadStates splits blob back into per-node slices (in the same fixed
// order SaveStates produced them) and loads each into its node.
func (p *Pipeline) LoadStates(blob []byte) error {
	nodes := p.nodes()
	for _, n := range nodes {
		if len(blob) < 4 {
			return fmt.Errorf("fused: load-states: truncated blob before %s", n.Name())
		}
		l := binary.LittleEndian.Uint32(blob[:4])
		blob = blob[4:]
		if uint32(len(blob)) < l {
			return fmt.Errorf("fused: load-states: truncated segment for %s", n.Name())
		}
		segment := blob[:l]
		blob = blob[l:]
		if err := n.LoadState(segment); err != nil {
			return fmt.Errorf("fused: load-state %s: %w", n.Name(), err)
		}
	}
	return nil
}

// Close releases every composed handle, continuing on error so a failure
// in one node's teardown does not leak the rest.
func (p *Pipeline) Close() error {
	var firstErr error
	for _, n := range p.nodes() {
		if err := n.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
