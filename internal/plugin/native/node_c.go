// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package native

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/iiot-fusion/host/internal/flow"
)

const window = 8

// stateLen is the fixed byte length of NodeC's snapshot: 8 little-endian
// f64 samples, then pos:u64, count:u64, total:u64.
const stateLen = window*8 + 24

// NodeC maintains a circular buffer of up to `window` samples and emits the
// arithmetic mean over the currently filled slots. State is exclusively
// owned by the handle (design note §9) rather than a process-wide global.
type NodeC struct {
	buf   [window]float64
	pos   int
	count int
	total uint64
}

func NewNodeC() *NodeC { return &NodeC{} }

func (n *NodeC) Name() string    { return "node-c:sliding-avg" }
func (n *NodeC) Version() string { return "0.1.0" }

func (n *NodeC) AcceptedInputTypes() []flow.ValueKind { return []flow.ValueKind{flow.KindF64} }
func (n *NodeC) OutputType() flow.ValueKind           { return flow.KindF64 }

func (n *NodeC) Process(msg flow.FlowMsg) ([]flow.FlowMsg, error) {
	if msg.Value.Kind != flow.KindF64 {
		return nil, nil
	}

	n.buf[n.pos] = msg.Value.F64Val
	n.pos = (n.pos + 1) % window
	if n.count < window {
		n.count++
	}
	n.total++

	var sum float64
	for i := 0; i < n.count; i++ {
		sum += n.buf[i]
	}
	avg := sum / float64(n.count)

	return []flow.FlowMsg{{
		TagID:     msg.TagID,
		MsgID:     msg.MsgID,
		Value:     flow.F64(avg),
		Timestamp: msg.Timestamp,
		Quality:   msg.Quality,
	}}, nil
}

func (n *NodeC) ProcessRaw(uint32, uint32, []byte) ([]flow.FlowMsg, error) { return nil, nil }

// SaveState serialises the sample buffer and counters into the fixed
// stateLen layout mandated by spec §4.8.
func (n *NodeC) SaveState() ([]byte, error) {
	b := make([]byte, stateLen)
	for i, v := range n.buf {
		binary.LittleEndian.PutUint64(b[i*8:i*8+8], math.Float64bits(v))
	}
	off := window * 8
	binary.LittleEndian.PutUint64(b[off:off+8], uint64(n.pos))
	binary.LittleEndian.PutUint64(b[off+8:off+16], uint64(n.count))
	binary.LittleEndian.PutUint64(b[off+16:off+24], n.total)
	return b, nil
}

// LoadState restores the sample buffer and counters from a blob produced by
// SaveState. A short or malformed blob is rejected rather than silently
// leaving the node half-restored.
func (n *NodeC) LoadState(blob []byte) error {
	if len(blob) != stateLen {
		return fmt.Errorf("node-c: load-state: want %d bytes, got %d", stateLen, len(blob))
	}
	for i := 0; i < window; i++ {
		n.buf[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8 : i*8+8]))
	}
	off := window * 8
	n.pos = int(binary.LittleEndian.Uint64(blob[off : off+8]))
	n.count = int(binary.LittleEndian.Uint64(blob[off+8 : off+16]))
	n.total = binary.LittleEndian.Uint64(blob[off+16 : off+24])
	return nil
}

func (n *NodeC) Close() error { return nil }
