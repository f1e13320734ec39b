// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wasmrt

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/iiot-fusion/host/internal/flow"
)

// FlowMsg field numbers for the flattened guest ABI. This is a host/guest
// implementation detail, not one of the wire formats spec.md §6 names
// (TagUpdate/FlowResult) — those remain the only externally-specified byte
// shapes; everything crossing the WASM linear-memory boundary is free to
// pick its own encoding as long as host and guest agree.
const (
	fmFieldTagID     = 1
	fmFieldMsgID     = 2
	fmFieldKind      = 3
	fmFieldBool      = 4
	fmFieldI32       = 5
	fmFieldU32       = 6
	fmFieldF32       = 7
	fmFieldF64       = 8
	fmFieldStr       = 9
	fmFieldBlob      = 10
	fmFieldTimestamp = 11
	fmFieldQuality   = 12
)

func encodeFlowMsg(m flow.FlowMsg) []byte {
	var b []byte
	b = protowire.AppendTag(b, fmFieldTagID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.TagID))
	b = protowire.AppendTag(b, fmFieldMsgID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.MsgID))
	b = protowire.AppendTag(b, fmFieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Value.Kind))

	switch m.Value.Kind {
	case flow.KindBool:
		b = protowire.AppendTag(b, fmFieldBool, protowire.VarintType)
		v := uint64(0)
		if m.Value.BoolVal {
			v = 1
		}
		b = protowire.AppendVarint(b, v)
	case flow.KindI32:
		b = protowire.AppendTag(b, fmFieldI32, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(m.Value.I32Val)))
	case flow.KindU32:
		b = protowire.AppendTag(b, fmFieldU32, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Value.U32Val))
	case flow.KindF32:
		b = protowire.AppendTag(b, fmFieldF32, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(m.Value.F32Val))
	case flow.KindF64:
		b = protowire.AppendTag(b, fmFieldF64, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(m.Value.F64Val))
	case flow.KindShortStr:
		b = protowire.AppendTag(b, fmFieldStr, protowire.BytesType)
		b = protowire.AppendString(b, m.Value.StrVal)
	case flow.KindBlob:
		b = protowire.AppendTag(b, fmFieldBlob, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Value.BlobVal)
	}

	b = protowire.AppendTag(b, fmFieldTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, m.Timestamp)
	b = protowire.AppendTag(b, fmFieldQuality, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Quality))
	return b
}

func decodeFlowMsgs(raw []byte) ([]flow.FlowMsg, error) {
	// The result is a sequence of LEN-prefixed envelopes at field 1, one per
	// message, even when there is only one message. Each envelope body is a
	// flat sequence of (tag, value) pairs, exactly what encodeFlowMsg above
	// produces. Top-level fields other than a field-1 envelope are skipped,
	// so a bare, unwrapped FlowMsg decodes to no messages.
	var out []flow.FlowMsg
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		if num != 1 || typ != protowire.BytesType {
			m := protowire.ConsumeFieldValue(num, typ, raw[n:])
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			raw = raw[n+m:]
			continue
		}
		body, m := protowire.ConsumeBytes(raw[n:])
		if m < 0 {
			return nil, protowire.ParseError(m)
		}
		msg, err := decodeOneFlowMsg(body)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
		raw = raw[n+m:]
	}
	return out, nil
}

func decodeOneFlowMsg(raw []byte) (flow.FlowMsg, error) {
	var m flow.FlowMsg
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return flow.FlowMsg{}, protowire.ParseError(n)
		}
		raw = raw[n:]

		switch num {
		case fmFieldTagID:
			v, c := protowire.ConsumeVarint(raw)
			m.TagID, raw = uint32(v), raw[c:]
		case fmFieldMsgID:
			v, c := protowire.ConsumeVarint(raw)
			m.MsgID, raw = uint32(v), raw[c:]
		case fmFieldKind:
			v, c := protowire.ConsumeVarint(raw)
			m.Value.Kind, raw = flow.ValueKind(v), raw[c:]
		case fmFieldBool:
			v, c := protowire.ConsumeVarint(raw)
			m.Value.BoolVal, raw = v != 0, raw[c:]
		case fmFieldI32:
			v, c := protowire.ConsumeVarint(raw)
			m.Value.I32Val, raw = int32(uint32(v)), raw[c:]
		case fmFieldU32:
			v, c := protowire.ConsumeVarint(raw)
			m.Value.U32Val, raw = uint32(v), raw[c:]
		case fmFieldF32:
			v, c := protowire.ConsumeFixed32(raw)
			m.Value.F32Val, raw = math.Float32frombits(v), raw[c:]
		case fmFieldF64:
			v, c := protowire.ConsumeFixed64(raw)
			m.Value.F64Val, raw = math.Float64frombits(v), raw[c:]
		case fmFieldStr:
			v, c := protowire.ConsumeBytes(raw)
			m.Value.StrVal, raw = string(v), raw[c:]
		case fmFieldBlob:
			v, c := protowire.ConsumeBytes(raw)
			m.Value.BlobVal, raw = append([]byte(nil), v...), raw[c:]
		case fmFieldTimestamp:
			v, c := protowire.ConsumeVarint(raw)
			m.Timestamp, raw = v, raw[c:]
		case fmFieldQuality:
			v, c := protowire.ConsumeVarint(raw)
			m.Quality, raw = flow.Quality(v), raw[c:]
		default:
			c := protowire.ConsumeFieldValue(num, typ, raw)
			if c < 0 {
				return flow.FlowMsg{}, protowire.ParseError(c)
			}
			raw = raw[c:]
		}
	}
	return m, nil
}

