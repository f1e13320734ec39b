// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// NatsConfig describes the ingress/egress transport (SPEC_FULL.md §2
// expansion): one subject carries raw TagUpdate bytes in, another carries
// FlowResult bytes out.
type NatsConfig struct {
	Address    string `json:"address"`
	InSubject  string `json:"in-subject"`
	OutSubject string `json:"out-subject"`
	CredsFile  string `json:"creds-file,omitempty"`
}

// TagMetaDefaults seeds the Tag Registry's get-or-create path (spec §4.3)
// for tags that arrive without prior provisioning.
type TagMetaDefaults struct {
	Unit    string  `json:"unit,omitempty"`
	EngLow  float64 `json:"eng-low,omitempty"`
	EngHigh float64 `json:"eng-high,omitempty"`
}

// PipelineSpec names the plugin artifacts that make up one linear chain
// (spec §4.1): a source, zero or more intermediate nodes in order, and a
// sink. Fused selects the Fused Pipeline Handle (spec §4.7) over the
// unfused dispatcher chain for this pipeline.
type PipelineSpec struct {
	Name   string   `json:"name"`
	Source string   `json:"source"`
	Nodes  []string `json:"nodes,omitempty"`
	Sink   string   `json:"sink"`
	Fused  bool     `json:"fused,omitempty"`
}

// HostConfig is the complete configuration document for the pipeline host.
type HostConfig struct {
	Nats           NatsConfig      `json:"nats"`
	PluginDir      string          `json:"plugin-dir"`
	LogLevel       string          `json:"log-level,omitempty"`
	MetricsAddr    string          `json:"metrics-addr,omitempty"`
	Pipelines      []PipelineSpec  `json:"pipelines"`
	DefaultTagMeta TagMetaDefaults `json:"default-tag-meta,omitempty"`
}

// Keys holds the process-wide configuration after Init, following the
// same package-global convention the ingested metric store config used.
var Keys = HostConfig{
	LogLevel:    "info",
	MetricsAddr: ":9100",
}

// Init reads, validates and decodes the host configuration file at path
// into Keys. A missing file is not an error — callers may configure the
// host entirely via flags for quick experiments; present-but-malformed
// files are.
func Init(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := Validate(configSchema, raw); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	if len(Keys.Pipelines) < 1 {
		return fmt.Errorf("config %s: at least one pipeline required", path)
	}
	return nil
}
