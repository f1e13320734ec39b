// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hostsvc

import (
	"bytes"
	"testing"

	"github.com/iiot-fusion/host/internal/registry"
)

func TestGetTagAttrAndEngRange(t *testing.T) {
	reg := registry.New()
	id := reg.GetOrCreate("tag.a", registry.TagMeta{Name: "tag.a", Unit: "degC", EngLow: -10, EngHigh: 100})

	svc := New(reg)

	if v, ok := svc.GetTagAttr(id, "unit"); !ok || v != "degC" {
		t.Fatalf("GetTagAttr = (%q, %v), want (degC, true)", v, ok)
	}

	low, high, ok := svc.GetEngRange(id)
	if !ok || low != -10 || high != 100 {
		t.Fatalf("GetEngRange = (%v, %v, %v), want (-10, 100, true)", low, high, ok)
	}
}

func TestLogDebugFormatsWithNodeName(t *testing.T) {
	var buf bytes.Buffer
	svc := NewWithWriter(registry.New(), &buf)

	svc.LogDebug("node-a", "converted 20 degC")

	want := "[WASM:node-a] converted 20 degC\n"
	if buf.String() != want {
		t.Fatalf("LogDebug wrote %q, want %q", buf.String(), want)
	}
}
