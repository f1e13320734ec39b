// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate checks instance against schema, returning a descriptive error
// rather than aborting the process — callers (Init, tests) decide what to
// do with a malformed config.
func Validate(schema string, instance json.RawMessage) error {
	sch, err := jsonschema.CompileString("host-config.json", schema)
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(instance, &v); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}
