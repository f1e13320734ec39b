// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dispatcher drives the per-message hot path: Source -> intermediate
// nodes -> Sink, honouring drop semantics and never synthesizing or
// reordering messages (spec §4.6).
package dispatcher

import (
	"fmt"

	"github.com/iiot-fusion/host/internal/flow"
	"github.com/iiot-fusion/host/internal/msgid"
	"github.com/iiot-fusion/host/internal/plugin"
	"github.com/iiot-fusion/host/internal/registry"
)

// PluginCallError reports an invocation-level failure from a named node. It
// terminates the current message, never the dispatcher itself.
type PluginCallError struct {
	Stage string
	Err   error
}

func (e *PluginCallError) Error() string {
	return fmt.Sprintf("plugin call error at %s: %s", e.Stage, e.Err)
}

func (e *PluginCallError) Unwrap() error { return e.Err }

// Outcome describes what happened to one ingressed raw record. Exactly one
// of Dropped or Output is meaningful: a dropped message carries no sink
// bytes, and a message that reached the sink is never also recorded as
// dropped (invariant I4).
type Outcome struct {
	TagID   uint32
	MsgID   uint32
	Dropped bool
	Stage   string // drop stage, or "sink" on success
	Output  []byte // FlowResult bytes, only set when !Dropped
}

// Metrics receives hot-path observability events. Implementations must be
// safe for concurrent use; Dispatch calls these inline on its own
// goroutine, never in a background worker.
type Metrics interface {
	ObserveDrop(stage string)
	ObservePluginError(stage string)
	ObserveDispatched()
}

// noopMetrics discards every observation; used when no Metrics is wired.
type noopMetrics struct{}

func (noopMetrics) ObserveDrop(string)        {}
func (noopMetrics) ObservePluginError(string) {}
func (noopMetrics) ObserveDispatched()        {}

// Dispatcher is the hot path for one pipeline: one source, zero or more
// intermediate nodes, one sink. It is not safe for concurrent use by
// multiple goroutines — each pipeline runs on its own goroutine/thread,
// consistent with the single-threaded cooperative scheduling model (spec §5).
type Dispatcher struct {
	Registry     *registry.Registry
	Allocator    *msgid.Allocator
	Source       plugin.Handle
	Intermediate []plugin.Handle
	Sink         plugin.SinkHandle
	Metrics      Metrics
}

// DefaultTagMeta is supplied by the ingress (not invented by the
// dispatcher) and installed only when the tag name is seen for the first
// time; it is ignored when the name is already registered.
type DefaultTagMeta = registry.TagMeta

// Dispatch resolves tagName to a tag id (registering it with defaultMeta if
// new), allocates a message id, and drives the record through the full
// chain described in spec §4.6.
func (d *Dispatcher) Dispatch(tagName string, raw []byte, defaultMeta DefaultTagMeta) (Outcome, error) {
	tagID := d.Registry.GetOrCreate(tagName, defaultMeta)
	msgID := d.Allocator.Next()

	msgs, err := d.Source.ProcessRaw(tagID, msgID, raw)
	if err != nil {
		d.metrics().ObservePluginError(d.Source.Name())
		return Outcome{}, &PluginCallError{Stage: d.Source.Name(), Err: err}
	}
	if len(msgs) == 0 {
		d.metrics().ObserveDrop("source")
		return Outcome{TagID: tagID, MsgID: msgID, Dropped: true, Stage: "source"}, nil
	}

	for _, node := range d.Intermediate {
		var next []flow.FlowMsg
		for _, m := range msgs {
			out, err := node.Process(m)
			if err != nil {
				d.metrics().ObservePluginError(node.Name())
				return Outcome{}, &PluginCallError{Stage: node.Name(), Err: err}
			}
			next = append(next, out...)
		}
		msgs = next
		if len(msgs) == 0 {
			d.metrics().ObserveDrop(node.Name())
			return Outcome{TagID: tagID, MsgID: msgID, Dropped: true, Stage: node.Name()}, nil
		}
	}

	// The dispatcher invokes the sink on only the first element of the
	// accumulated message list (spec §9 open question: "fan-out collapse").
	// This host treats the collapse as the chosen, documented semantics —
	// every intermediate node in the reference pipeline emits at most one
	// message per input, so in practice there is exactly one candidate;
	// a future multi-output node would need this decision revisited.
	head := msgs[0]
	if _, err := d.Sink.Process(head); err != nil {
		d.metrics().ObservePluginError(d.Sink.Name())
		return Outcome{}, &PluginCallError{Stage: d.Sink.Name(), Err: err}
	}

	out, err := d.Sink.TakeOutput()
	if err != nil {
		d.metrics().ObservePluginError(d.Sink.Name())
		return Outcome{}, &PluginCallError{Stage: d.Sink.Name(), Err: err}
	}

	d.metrics().ObserveDispatched()
	return Outcome{TagID: tagID, MsgID: msgID, Dropped: false, Stage: "sink", Output: out}, nil
}

func (d *Dispatcher) metrics() Metrics {
	if d.Metrics == nil {
		return noopMetrics{}
	}
	return d.Metrics
}

// FusedAdapter drives a plugin.FusedHandle through the same tag/message-id
// resolution Dispatcher performs, so a Fused Pipeline Handle (spec §4.7)
// and an unfused Dispatcher chain present the same Dispatch shape to
// callers such as internal/transport.
type FusedAdapter struct {
	Registry  *registry.Registry
	Allocator *msgid.Allocator
	Pipeline  plugin.FusedHandle
	Metrics   Metrics
}

func (a *FusedAdapter) metrics() Metrics {
	if a.Metrics == nil {
		return noopMetrics{}
	}
	return a.Metrics
}

// Dispatch resolves tagName/allocates a message id exactly as Dispatcher
// does, then hands the raw record to the fused sandbox in one call.
func (a *FusedAdapter) Dispatch(tagName string, raw []byte, defaultMeta DefaultTagMeta) (Outcome, error) {
	tagID := a.Registry.GetOrCreate(tagName, defaultMeta)
	msgID := a.Allocator.Next()

	out, err := a.Pipeline.Run(tagID, msgID, raw)
	if err != nil {
		a.metrics().ObservePluginError("fused")
		return Outcome{}, &PluginCallError{Stage: "fused", Err: err}
	}
	if len(out) == 0 {
		a.metrics().ObserveDrop("fused")
		return Outcome{TagID: tagID, MsgID: msgID, Dropped: true, Stage: "fused"}, nil
	}

	a.metrics().ObserveDispatched()
	return Outcome{TagID: tagID, MsgID: msgID, Dropped: false, Stage: "sink", Output: out}, nil
}
