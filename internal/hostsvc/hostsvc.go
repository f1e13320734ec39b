// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hostsvc implements the Host Service Surface: the small set of
// operations the host exposes into plugin sandboxes (get-tag-attr,
// get-eng-range, log-debug). Each call borrows the shared Tag Registry for
// the duration of the call and releases it before returning to the
// sandbox; no plugin may hold a registry handle across calls.
package hostsvc

import (
	"fmt"
	"io"
	"os"

	"github.com/iiot-fusion/host/internal/registry"
)

// Surface is the host-side implementation backing every sandbox's imported
// host functions. It holds a shared reference to the Tag Registry.
type Surface struct {
	reg    *registry.Registry
	stderr io.Writer
}

// New returns a Surface bound to reg, writing log-debug output to stderr.
func New(reg *registry.Registry) *Surface {
	return &Surface{reg: reg, stderr: os.Stderr}
}

// NewWithWriter is New with an explicit log-debug destination, mainly for
// tests that need to assert on the emitted line.
func NewWithWriter(reg *registry.Registry, w io.Writer) *Surface {
	return &Surface{reg: reg, stderr: w}
}

// GetTagAttr implements get-tag-attr(tag_id, key) -> optional text.
func (s *Surface) GetTagAttr(tagID uint32, key string) (string, bool) {
	return s.reg.GetAttr(tagID, key)
}

// GetEngRange implements get-eng-range(tag_id) -> optional (low, high).
func (s *Surface) GetEngRange(tagID uint32) (low, high float64, ok bool) {
	return s.reg.GetEngRange(tagID)
}

// LogDebug implements log-debug(node_name, msg) -> unit. The host writes to
// stderr prefixed with "[WASM:<node_name>]".
func (s *Surface) LogDebug(nodeName, msg string) {
	fmt.Fprintf(s.stderr, "[WASM:%s] %s\n", nodeName, msg)
}
