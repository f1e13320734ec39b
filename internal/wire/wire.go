// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wire encodes and decodes the ingress TagUpdate and egress
// FlowResult records (spec §6) using the protobuf wire format's low-level
// varint/length-delimited primitives (google.golang.org/protobuf/encoding/protowire).
// Neither record has a generated .proto type; this package speaks the wire
// format directly, field-number by field-number, which is all the spec
// requires ("only the shape of the bytes crossing those boundaries is
// specified").
package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// TagUpdate field numbers, per spec §6.
const (
	fieldTagIDStr = 1
	fieldTimestamp = 2
	fieldQuality   = 3
	fieldUnit      = 4
	fieldBoolVal   = 10
	fieldI32Val    = 11
	fieldU32Val    = 12
	fieldF32Val    = 13
	fieldF64Val    = 14
	fieldStrVal    = 15
	fieldBlobVal   = 16
)

// FlowResult field numbers, per spec §6.
const (
	frFieldTagID     = 1
	frFieldTagName   = 2
	frFieldMqttTopic = 3
	frFieldMsgID     = 4
	frFieldValue     = 5
	frFieldTimestamp = 6
	frFieldQuality   = 7
	frFieldFlowID    = 8
)

// TagUpdate mirrors the ingress record. Exactly one of the Has* fields
// should be set by a producer; a decoder tolerates more than one being
// present and resolves priority at the call site (source node), per the
// open question in spec §9.
type TagUpdate struct {
	TagIDStr  string
	Timestamp uint64
	Quality   uint32
	Unit      string

	HasBool bool
	BoolVal bool

	HasI32 bool
	I32Val int32

	HasU32 bool
	U32Val uint32

	HasF32 bool
	F32Val float32

	HasF64 bool
	F64Val float64

	HasStr bool
	StrVal string

	HasBlob bool
	BlobVal []byte
}

// EncodeTagUpdate serialises u into the wire format described in spec §6.
// Only present optional fields are emitted.
func EncodeTagUpdate(u TagUpdate) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldTagIDStr, protowire.BytesType)
	b = protowire.AppendString(b, u.TagIDStr)
	b = protowire.AppendTag(b, fieldTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, u.Timestamp)
	b = protowire.AppendTag(b, fieldQuality, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(u.Quality))
	if u.Unit != "" {
		b = protowire.AppendTag(b, fieldUnit, protowire.BytesType)
		b = protowire.AppendString(b, u.Unit)
	}
	if u.HasBool {
		b = protowire.AppendTag(b, fieldBoolVal, protowire.VarintType)
		v := uint64(0)
		if u.BoolVal {
			v = 1
		}
		b = protowire.AppendVarint(b, v)
	}
	if u.HasI32 {
		b = protowire.AppendTag(b, fieldI32Val, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(u.I32Val)))
	}
	if u.HasU32 {
		b = protowire.AppendTag(b, fieldU32Val, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(u.U32Val))
	}
	if u.HasF32 {
		b = protowire.AppendTag(b, fieldF32Val, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(u.F32Val))
	}
	if u.HasF64 {
		b = protowire.AppendTag(b, fieldF64Val, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(u.F64Val))
	}
	if u.HasStr {
		b = protowire.AppendTag(b, fieldStrVal, protowire.BytesType)
		b = protowire.AppendString(b, u.StrVal)
	}
	if u.HasBlob {
		b = protowire.AppendTag(b, fieldBlobVal, protowire.BytesType)
		b = protowire.AppendBytes(b, u.BlobVal)
	}
	return b
}

// DecodeTagUpdate parses raw into a TagUpdate. Unknown fields are skipped.
func DecodeTagUpdate(raw []byte) (TagUpdate, error) {
	var u TagUpdate
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return TagUpdate{}, fmt.Errorf("wire: bad tag: %w", protowire.ParseError(n))
		}
		raw = raw[n:]

		switch num {
		case fieldTagIDStr:
			s, m, err := consumeString(raw, typ)
			if err != nil {
				return TagUpdate{}, err
			}
			u.TagIDStr, raw = s, raw[m:]
		case fieldTimestamp:
			v, m, err := consumeVarint(raw, typ)
			if err != nil {
				return TagUpdate{}, err
			}
			u.Timestamp, raw = v, raw[m:]
		case fieldQuality:
			v, m, err := consumeVarint(raw, typ)
			if err != nil {
				return TagUpdate{}, err
			}
			u.Quality, raw = uint32(v), raw[m:]
		case fieldUnit:
			s, m, err := consumeString(raw, typ)
			if err != nil {
				return TagUpdate{}, err
			}
			u.Unit, raw = s, raw[m:]
		case fieldBoolVal:
			v, m, err := consumeVarint(raw, typ)
			if err != nil {
				return TagUpdate{}, err
			}
			u.HasBool, u.BoolVal, raw = true, v != 0, raw[m:]
		case fieldI32Val:
			v, m, err := consumeVarint(raw, typ)
			if err != nil {
				return TagUpdate{}, err
			}
			u.HasI32, u.I32Val, raw = true, int32(uint32(v)), raw[m:]
		case fieldU32Val:
			v, m, err := consumeVarint(raw, typ)
			if err != nil {
				return TagUpdate{}, err
			}
			u.HasU32, u.U32Val, raw = true, uint32(v), raw[m:]
		case fieldF32Val:
			v, m, err := consumeFixed32(raw, typ)
			if err != nil {
				return TagUpdate{}, err
			}
			u.HasF32, u.F32Val, raw = true, math.Float32frombits(v), raw[m:]
		case fieldF64Val:
			v, m, err := consumeFixed64(raw, typ)
			if err != nil {
				return TagUpdate{}, err
			}
			u.HasF64, u.F64Val, raw = true, math.Float64frombits(v), raw[m:]
		case fieldStrVal:
			s, m, err := consumeString(raw, typ)
			if err != nil {
				return TagUpdate{}, err
			}
			u.HasStr, u.StrVal, raw = true, s, raw[m:]
		case fieldBlobVal:
			v, m, err := consumeBytes(raw, typ)
			if err != nil {
				return TagUpdate{}, err
			}
			u.HasBlob, u.BlobVal, raw = true, v, raw[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, raw)
			if m < 0 {
				return TagUpdate{}, fmt.Errorf("wire: bad field %d: %w", num, protowire.ParseError(m))
			}
			raw = raw[m:]
		}
	}
	return u, nil
}

// FlowResult mirrors the egress record.
type FlowResult struct {
	TagID     uint32
	TagName   string
	MqttTopic string
	MsgID     uint32
	Value     float64
	Timestamp uint64
	Quality   uint32
	FlowID    string
}

// EncodeFlowResult serialises r into the wire format described in spec §6.
func EncodeFlowResult(r FlowResult) []byte {
	var b []byte
	b = protowire.AppendTag(b, frFieldTagID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.TagID))
	b = protowire.AppendTag(b, frFieldTagName, protowire.BytesType)
	b = protowire.AppendString(b, r.TagName)
	b = protowire.AppendTag(b, frFieldMqttTopic, protowire.BytesType)
	b = protowire.AppendString(b, r.MqttTopic)
	b = protowire.AppendTag(b, frFieldMsgID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.MsgID))
	b = protowire.AppendTag(b, frFieldValue, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(r.Value))
	b = protowire.AppendTag(b, frFieldTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, r.Timestamp)
	b = protowire.AppendTag(b, frFieldQuality, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Quality))
	b = protowire.AppendTag(b, frFieldFlowID, protowire.BytesType)
	b = protowire.AppendString(b, r.FlowID)
	return b
}

// DecodeFlowResult parses raw into a FlowResult, mainly used by tests that
// assert on a sink's out-buffer contents (invariant I6).
func DecodeFlowResult(raw []byte) (FlowResult, error) {
	var r FlowResult
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return FlowResult{}, fmt.Errorf("wire: bad tag: %w", protowire.ParseError(n))
		}
		raw = raw[n:]

		switch num {
		case frFieldTagID:
			v, m, err := consumeVarint(raw, typ)
			if err != nil {
				return FlowResult{}, err
			}
			r.TagID, raw = uint32(v), raw[m:]
		case frFieldTagName:
			s, m, err := consumeString(raw, typ)
			if err != nil {
				return FlowResult{}, err
			}
			r.TagName, raw = s, raw[m:]
		case frFieldMqttTopic:
			s, m, err := consumeString(raw, typ)
			if err != nil {
				return FlowResult{}, err
			}
			r.MqttTopic, raw = s, raw[m:]
		case frFieldMsgID:
			v, m, err := consumeVarint(raw, typ)
			if err != nil {
				return FlowResult{}, err
			}
			r.MsgID, raw = uint32(v), raw[m:]
		case frFieldValue:
			v, m, err := consumeFixed64(raw, typ)
			if err != nil {
				return FlowResult{}, err
			}
			r.Value, raw = math.Float64frombits(v), raw[m:]
		case frFieldTimestamp:
			v, m, err := consumeVarint(raw, typ)
			if err != nil {
				return FlowResult{}, err
			}
			r.Timestamp, raw = v, raw[m:]
		case frFieldQuality:
			v, m, err := consumeVarint(raw, typ)
			if err != nil {
				return FlowResult{}, err
			}
			r.Quality, raw = uint32(v), raw[m:]
		case frFieldFlowID:
			s, m, err := consumeString(raw, typ)
			if err != nil {
				return FlowResult{}, err
			}
			r.FlowID, raw = s, raw[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, raw)
			if m < 0 {
				return FlowResult{}, fmt.Errorf("wire: bad field %d: %w", num, protowire.ParseError(m))
			}
			raw = raw[m:]
		}
	}
	return r, nil
}

func consumeVarint(b []byte, typ protowire.Type) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("wire: expected varint, got %v", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("wire: bad varint: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeFixed32(b []byte, typ protowire.Type) (uint32, int, error) {
	if typ != protowire.Fixed32Type {
		return 0, 0, fmt.Errorf("wire: expected fixed32, got %v", typ)
	}
	v, n := protowire.ConsumeFixed32(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("wire: bad fixed32: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeFixed64(b []byte, typ protowire.Type) (uint64, int, error) {
	if typ != protowire.Fixed64Type {
		return 0, 0, fmt.Errorf("wire: expected fixed64, got %v", typ)
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("wire: bad fixed64: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeString(b []byte, typ protowire.Type) (string, int, error) {
	v, n, err := consumeBytes(b, typ)
	return string(v), n, err
}

func consumeBytes(b []byte, typ protowire.Type) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("wire: expected bytes, got %v", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("wire: bad bytes: %w", protowire.ParseError(n))
	}
	return v, n, nil
}
