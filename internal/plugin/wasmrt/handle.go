// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wasmrt

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/iiot-fusion/host/internal/flow"
)

// Handle drives one instantiated node's flattened ABI:
//
//	alloc(len: u32) -> ptr: u32
//	dealloc(ptr: u32, len: u32)
//	name() -> ptr<<32 | len: u64
//	version() -> ptr<<32 | len: u64
//	accepted-input-types(out_ptr, out_cap: u32) -> count: u32   (one byte per kind)
//	output-type() -> u32
//	process(in_ptr, in_len, out_ptr, out_cap: u32) -> out_len: u32
//	process-raw(tag_id, msg_id, in_ptr, in_len, out_ptr, out_cap: u32) -> out_len: u32
//	save-state(out_ptr, out_cap: u32) -> out_len: u32
//	load-state(in_ptr, in_len: u32)
//
// A FlowMsg (or a []FlowMsg, for process/process-raw results) crossing this
// boundary is encoded with the guest-ABI codec in codec.go: protobuf wire
// format with its own field numbers, separate from the TagUpdate/FlowResult
// records of internal/wire. The in-guest and in-host representations never
// have to agree on Go struct layout — only on the wire bytes.
type Handle struct {
	loader   *Loader
	compiled wazero.CompiledModule
	mod      api.Module
	nodeName string

	outputBufCap uint32
}

const defaultScratchCap = 64 * 1024

// Load compiles and instantiates the artifact at path against l. It does not
// link the Host Service Surface; that is done beforehand with
// LinkHostService (sink nodes only).
func (l *Loader) Load(path, nodeName string) (*Handle, error) {
	compiled, err := l.compile(path)
	if err != nil {
		return nil, err
	}

	cfg := wazero.NewModuleConfig().WithName(nodeName)
	mod, err := l.runtime.InstantiateModule(l.ctx, compiled, cfg)
	if err != nil {
		compiled.Close(l.ctx)
		return nil, fmt.Errorf("wasmrt: instantiate %s: %w", nodeName, err)
	}

	return &Handle{
		loader:       l,
		compiled:     compiled,
		mod:          mod,
		nodeName:     nodeName,
		outputBufCap: defaultScratchCap,
	}, nil
}

func (h *Handle) call(name string, args ...uint64) ([]uint64, error) {
	fn := h.mod.ExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("wasmrt: %s: missing export %q", h.nodeName, name)
	}
	res, err := fn.Call(h.loader.ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("wasmrt: %s: call %s: %w", h.nodeName, name, err)
	}
	return res, nil
}

func (h *Handle) readOut(ptr uint32, length uint32) []byte {
	buf, ok := h.mod.Memory().Read(ptr, length)
	if !ok {
		return nil
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out
}

func (h *Handle) scratchPtr() (uint32, error) {
	res, err := h.call("alloc", uint64(h.outputBufCap))
	if err != nil {
		return 0, err
	}
	return uint32(res[0]), nil
}

func (h *Handle) writeIn(data []byte) (ptr, length uint32, err error) {
	res, err := h.call("alloc", uint64(len(data)))
	if err != nil {
		return 0, 0, err
	}
	ptr = uint32(res[0])
	if !h.mod.Memory().Write(ptr, data) {
		return 0, 0, fmt.Errorf("wasmrt: %s: write %d bytes at %#x out of range", h.nodeName, len(data), ptr)
	}
	return ptr, uint32(len(data)), nil
}

func (h *Handle) Name() string {
	res, err := h.call("name")
	if err != nil {
		return h.nodeName
	}
	ptr, length := splitPtrLen(res[0])
	return string(h.readOut(ptr, length))
}

func (h *Handle) Version() string {
	res, err := h.call("version")
	if err != nil {
		return ""
	}
	ptr, length := splitPtrLen(res[0])
	return string(h.readOut(ptr, length))
}

func (h *Handle) AcceptedInputTypes() []flow.ValueKind {
	outPtr, err := h.scratchPtr()
	if err != nil {
		return nil
	}
	res, err := h.call("accepted-input-types", uint64(outPtr), uint64(h.outputBufCap))
	if err != nil {
		return nil
	}
	count := uint32(res[0])
	raw := h.readOut(outPtr, count)
	kinds := make([]flow.ValueKind, len(raw))
	for i, b := range raw {
		kinds[i] = flow.ValueKind(b)
	}
	return kinds
}

func (h *Handle) OutputType() flow.ValueKind {
	res, err := h.call("output-type")
	if err != nil {
		return flow.KindAny
	}
	return flow.ValueKind(uint8(res[0]))
}

func (h *Handle) Process(msg flow.FlowMsg) ([]flow.FlowMsg, error) {
	in := encodeFlowMsg(msg)
	inPtr, inLen, err := h.writeIn(in)
	if err != nil {
		return nil, err
	}
	outPtr, err := h.scratchPtr()
	if err != nil {
		return nil, err
	}

	res, err := h.call("process", uint64(inPtr), uint64(inLen), uint64(outPtr), uint64(h.outputBufCap))
	if err != nil {
		return nil, err
	}
	outLen := uint32(res[0])
	if outLen == 0 {
		return nil, nil
	}
	return decodeFlowMsgs(h.readOut(outPtr, outLen))
}

func (h *Handle) ProcessRaw(tagID, msgID uint32, raw []byte) ([]flow.FlowMsg, error) {
	inPtr, inLen, err := h.writeIn(raw)
	if err != nil {
		return nil, err
	}
	outPtr, err := h.scratchPtr()
	if err != nil {
		return nil, err
	}

	res, err := h.call("process-raw", uint64(tagID), uint64(msgID), uint64(inPtr), uint64(inLen), uint64(outPtr), uint64(h.outputBufCap))
	if err != nil {
		return nil, err
	}
	outLen := uint32(res[0])
	if outLen == 0 {
		return nil, nil
	}
	return decodeFlowMsgs(h.readOut(outPtr, outLen))
}

func (h *Handle) SaveState() ([]byte, error) {
	outPtr, err := h.scratchPtr()
	if err != nil {
		return nil, err
	}
	res, err := h.call("save-state", uint64(outPtr), uint64(h.outputBufCap))
	if err != nil {
		return nil, err
	}
	return h.readOut(outPtr, uint32(res[0])), nil
}

func (h *Handle) LoadState(blob []byte) error {
	if len(blob) == 0 {
		return nil
	}
	ptr, length, err := h.writeIn(blob)
	if err != nil {
		return err
	}
	_, err = h.call("load-state", uint64(ptr), uint64(length))
	return err
}

func (h *Handle) Close() error {
	ctx := context.Background()
	if h.loader != nil {
		ctx = h.loader.ctx
	}
	err := h.mod.Close(ctx)
	if h.compiled != nil {
		h.compiled.Close(ctx)
	}
	return err
}

// splitPtrLen unpacks a single-u64 (ptr<<32|len) return, the convention
// used by name/version exports to avoid a second scratch round-trip.
func splitPtrLen(v uint64) (ptr, length uint32) {
	return uint32(v >> 32), uint32(v)
}
