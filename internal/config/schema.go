// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

// configSchema validates the host's top-level JSON configuration document
// (spec §4.9 expansion: ingress/egress transport, plugin artifact
// directory, default tag metadata, pipeline wiring). Kept as a Go string
// constant rather than an embedded file since it is small and static.
const configSchema = `
{
	"type": "object",
	"properties": {
		"nats": {
			"type": "object",
			"properties": {
				"address":     { "type": "string" },
				"in-subject":  { "type": "string" },
				"out-subject": { "type": "string" },
				"creds-file":  { "type": "string" }
			},
			"required": ["address", "in-subject", "out-subject"]
		},
		"plugin-dir":   { "type": "string" },
		"log-level":    { "type": "string" },
		"metrics-addr": { "type": "string" },
		"pipelines": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name":   { "type": "string" },
					"source": { "type": "string" },
					"nodes":  { "type": "array", "items": { "type": "string" } },
					"sink":   { "type": "string" },
					"fused":  { "type": "boolean" }
				},
				"required": ["name", "source", "sink"]
			}
		},
		"default-tag-meta": {
			"type": "object",
			"properties": {
				"unit":     { "type": "string" },
				"eng-low":  { "type": "number" },
				"eng-high": { "type": "number" }
			}
		}
	},
	"required": ["nats", "plugin-dir", "pipelines"]
}
`
