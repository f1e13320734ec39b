// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitMissingFileIsNotError(t *testing.T) {
	err := Init(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
}

func TestInitValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.json")
	doc := `{
		"nats": {"address": "nats://localhost:4222", "in-subject": "iiot.in", "out-subject": "iiot.out"},
		"plugin-dir": "./plugins",
		"pipelines": [{"name": "temp-pipeline", "source": "source.wasm", "nodes": ["node-a.wasm"], "sink": "sink.wasm"}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	require.NoError(t, Init(path))
	require.Equal(t, "nats://localhost:4222", Keys.Nats.Address)
	require.Len(t, Keys.Pipelines, 1)
	require.Equal(t, "temp-pipeline", Keys.Pipelines[0].Name)
}

func TestInitRejectsMissingPipelines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.json")
	doc := `{
		"nats": {"address": "nats://localhost:4222", "in-subject": "iiot.in", "out-subject": "iiot.out"},
		"plugin-dir": "./plugins",
		"pipelines": []
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	require.Error(t, Init(path))
}

func TestValidateRejectsMalformedDocument(t *testing.T) {
	err := Validate(configSchema, []byte(`{"plugin-dir": "./plugins"}`))
	require.Error(t, err)
}
