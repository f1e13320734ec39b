// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wasmrt

import "github.com/iiot-fusion/host/internal/flow"

// SinkHandle wraps Handle for the sink node variant, implementing the Sink
// Output Protocol (spec §6): after each Process call, the host reads
// [ptr, ptr+len) from the sandbox's exported linear memory via
// take-output-ptr/take-output-len and then calls clear-output.
type SinkHandle struct {
	*Handle
}

func (h *Loader) LoadSink(path, nodeName string) (*SinkHandle, error) {
	base, err := h.Load(path, nodeName)
	if err != nil {
		return nil, err
	}
	return &SinkHandle{Handle: base}, nil
}

// Process runs the sink's effect; per the plugin contract a sink always
// returns no messages.
func (s *SinkHandle) Process(msg flow.FlowMsg) ([]flow.FlowMsg, error) {
	_, err := s.Handle.Process(msg)
	return nil, err
}

// TakeOutput drains and clears the sink's exported out-buffer.
func (s *SinkHandle) TakeOutput() ([]byte, error) {
	ptrRes, err := s.call("take-output-ptr")
	if err != nil {
		return nil, err
	}
	lenRes, err := s.call("take-output-len")
	if err != nil {
		return nil, err
	}
	ptr, length := uint32(ptrRes[0]), uint32(lenRes[0])

	var out []byte
	if length > 0 {
		out = s.readOut(ptr, length)
	}

	if _, err := s.call("clear-output"); err != nil {
		return nil, err
	}
	return out, nil
}
