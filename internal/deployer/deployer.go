// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package deployer implements the deploy-time type-compatibility algebra
// between adjacent pipeline nodes (spec §4.5). Deployment is all-or-nothing:
// no node is activated until every edge passes.
package deployer

import (
	"fmt"

	"github.com/iiot-fusion/host/internal/flow"
	"github.com/iiot-fusion/host/internal/plugin"
)

// TypeMismatchError names both endpoints of a rejected edge and their
// declared kinds.
type TypeMismatchError struct {
	FromName, ToName string
	FromOutput       flow.ValueKind
	ToAccepted       []flow.ValueKind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: %s emits %s, %s accepts %v",
		e.FromName, e.FromOutput, e.ToName, e.ToAccepted)
}

// compatible reports whether an edge from `from` to `to` is allowed:
// from.output_type == any, or to.accepted_input_types contains any or
// from.output_type.
func compatible(from flow.ValueKind, to []flow.ValueKind) bool {
	if from == flow.KindAny {
		return true
	}
	for _, k := range to {
		if k == flow.KindAny || k == from {
			return true
		}
	}
	return false
}

// Validate checks every adjacent pair in nodes (source first, sink last)
// and returns a *TypeMismatchError for the first incompatible edge found,
// or nil if the whole chain is deployable.
func Validate(nodes []plugin.Handle) error {
	for i := 0; i+1 < len(nodes); i++ {
		from, to := nodes[i], nodes[i+1]
		if !compatible(from.OutputType(), to.AcceptedInputTypes()) {
			return &TypeMismatchError{
				FromName:   from.Name(),
				ToName:     to.Name(),
				FromOutput: from.OutputType(),
				ToAccepted: to.AcceptedInputTypes(),
			}
		}
	}
	return nil
}
