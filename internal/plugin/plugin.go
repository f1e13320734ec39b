// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package plugin defines the plugin contract shared by every pipeline node
// and the handle types the host uses to drive it. The contract is a
// capability set {meta, process, process-raw, save-state, load-state}, not
// a class hierarchy: any value implementing Handle can be linked into a
// pipeline regardless of which sandbox backend produced it.
package plugin

import "github.com/iiot-fusion/host/internal/flow"

// Handle is one loaded node: meta queries plus the per-message contract.
// A Handle is owned exclusively by one thread of execution at a time; it
// is not concurrently callable from multiple goroutines.
type Handle interface {
	// Name and Version identify the node for diagnostics and logging.
	Name() string
	Version() string

	// AcceptedInputTypes is non-empty for intermediate/sink nodes; a source
	// returns an empty list, signalling "not message-typed; raw-only entry".
	AcceptedInputTypes() []flow.ValueKind

	// OutputType is a scalar kind or KindAny.
	OutputType() flow.ValueKind

	// Process may return 0..K messages; returning none means drop. Process
	// must be pure with respect to state the node does not own.
	Process(msg flow.FlowMsg) ([]flow.FlowMsg, error)

	// ProcessRaw is used only by a source entry point. A node that does not
	// accept raw input returns (nil, nil).
	ProcessRaw(tagID, msgID uint32, raw []byte) ([]flow.FlowMsg, error)

	// SaveState/LoadState are opaque to the host; round-tripping through
	// them must restore behavioural equivalence.
	SaveState() ([]byte, error)
	LoadState(blob []byte) error

	// Close releases the sandbox store and any linear memory owned by the
	// handle. Safe to call once, on pipeline teardown.
	Close() error
}

// SinkHandle is the Handle variant whose sandbox additionally imports the
// Host Service Surface. Process always returns no messages; its side
// effect is retrievable through TakeOutput.
type SinkHandle interface {
	Handle

	// TakeOutput drains and clears the sink's out-buffer, returning the
	// encoded bytes produced by the most recent Process call (or nil if
	// Process produced nothing).
	TakeOutput() ([]byte, error)
}

// FusedHandle packages an entire pipeline as a single sandbox.
type FusedHandle interface {
	// Run is observationally equivalent to the dispatcher driving the
	// equivalent unfused chain, ending at the sink's encoded output.
	Run(tagID, msgID uint32, raw []byte) ([]byte, error)

	// SaveStates/LoadStates operate on one concatenated opaque blob
	// covering every internal node's state.
	SaveStates() ([]byte, error)
	LoadStates(blob []byte) error

	Close() error
}
