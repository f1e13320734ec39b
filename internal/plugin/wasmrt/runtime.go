// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wasmrt is the real plugin sandbox backend: it loads a node's
// artifact into an isolated wazero WebAssembly instance and drives it
// through the plugin contract over a flat numeric/linear-memory ABI.
//
// wazero (github.com/tetratelabs/wazero) is a pure-Go, no-cgo WebAssembly
// runtime, grounded on its appearance as an IIoT-relevant runtime in the
// example corpus (DataDog-datadog-agent depends on it for its own
// WASM-based checks). It only implements the core WebAssembly spec, not
// the component model the original reference host used — so the ABI here
// is a flattened one (numeric params/results, bytes passed through the
// guest's exported linear memory), not the WIT/component ABI. The
// sandboxing substrate is explicitly a swappable capability per the
// design notes: "given an artifact, produce an instance supporting the
// plugin contract and accept the host-service imports."
package wasmrt

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/iiot-fusion/host/internal/hostsvc"
)

// hostModuleName is the import namespace the guest links against for the
// Host Service Surface (spec §4.3).
const hostModuleName = "iiot:host"

// Loader compiles and instantiates node artifacts. One Loader is shared
// across every handle in a pipeline so the compilation cache is shared too.
type Loader struct {
	ctx     context.Context
	runtime wazero.Runtime
	cache   wazero.CompilationCache
}

// NewLoader constructs a Loader backed by an on-disk compilation cache at
// cacheDir.
//
// Spec §6/§4.7 describes a ".cwasm" precompiled-artifact convention carried
// over from the original reference host, where a serialized, already-AOT-
// compiled module is loaded with no JIT pass at all. wazero has no such
// artifact format or deserialization entry point: CompileModule always
// takes the original WebAssembly binary, never a previously serialized
// compiled module. What wazero does provide is a content-addressed
// CompilationCache — cacheDir is keyed by a hash of the wasm bytes plus the
// wazero version, so calling CompileModule again with the same bytes (a
// second process pointed at the same cacheDir, or a second node loaded from
// the same artifact) hits the cache and skips recompilation. That is a real
// but strictly weaker guarantee than the original convention: every load
// still presents the actual .wasm binary to CompileModule, and a cache miss
// (new bytes, cleared cacheDir, or a wazero upgrade) always recompiles. This
// loader therefore treats every artifact uniformly by content and does not
// special-case a ".cwasm" extension, since no such format is ever produced
// or read here.
func NewLoader(ctx context.Context, cacheDir string) (*Loader, error) {
	cache, err := wazero.NewCompilationCacheWithDir(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("wasmrt: create compilation cache: %w", err)
	}

	cfg := wazero.NewRuntimeConfig().WithCompilationCache(cache)
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	return &Loader{ctx: ctx, runtime: rt, cache: cache}, nil
}

// Close releases the runtime and its compilation cache.
func (l *Loader) Close() error {
	err := l.runtime.Close(l.ctx)
	if cerr := l.cache.Close(l.ctx); err == nil {
		err = cerr
	}
	return err
}

// LinkHostService registers the Host Service Surface into the runtime's
// import namespace. Node instances loaded after this call can import its
// three functions: get-tag-attr, get-eng-range, log-debug; the host calls
// it only before loading a WASM sink.
func (l *Loader) LinkHostService(svc *hostsvc.Surface, nodeName string) error {
	builder := l.runtime.NewHostModuleBuilder(hostModuleName)

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, tagID uint32, keyPtr, keyLen, outPtr, outCap uint32) (written uint32) {
			key := readString(mod, keyPtr, keyLen)
			val, ok := svc.GetTagAttr(tagID, key)
			if !ok {
				return 0
			}
			return uint32(writeStringTrunc(mod, outPtr, outCap, val))
		}).
		Export("get-tag-attr")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, tagID uint32) (low, high uint64, ok uint32) {
			l, h, found := svc.GetEngRange(tagID)
			if !found {
				return 0, 0, 0
			}
			return math.Float64bits(l), math.Float64bits(h), 1
		}).
		Export("get-eng-range")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, msgPtr, msgLen uint32) {
			svc.LogDebug(nodeName, readString(mod, msgPtr, msgLen))
		}).
		Export("log-debug")

	if _, err := builder.Instantiate(l.ctx); err != nil {
		return fmt.Errorf("wasmrt: link host service for %s: %w", nodeName, err)
	}
	return nil
}

// compile loads the wasm binary at path and compiles it. A content-cache
// hit in l.cache (same bytes seen before, by this process or a prior one
// sharing cacheDir) skips the JIT pass transparently; see the package and
// Loader doc comments for why this is not the same thing as loading a
// separately serialized precompiled artifact.
func (l *Loader) compile(path string) (wazero.CompiledModule, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wasmrt: read artifact %s: %w", path, err)
	}

	mod, err := l.runtime.CompileModule(l.ctx, bytes)
	if err != nil {
		return nil, fmt.Errorf("wasmrt: compile artifact %s: %w", path, err)
	}
	return mod, nil
}

func readString(mod api.Module, ptr, length uint32) string {
	buf, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return ""
	}
	return string(buf)
}

func writeStringTrunc(mod api.Module, ptr, cap uint32, s string) int {
	b := []byte(s)
	if uint32(len(b)) > cap {
		b = b[:cap]
	}
	mod.Memory().Write(ptr, b)
	return len(b)
}
