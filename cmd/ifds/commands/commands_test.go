// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/awslabs/ar-go-ifds/analysis/report"
	"github.com/awslabs/ar-go-ifds/internal/formatutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	taintData     = filepath.Join("..", "..", "..", "analysis", "taint", "testdata")
	deadStoreData = filepath.Join("..", "..", "..", "analysis", "deadstore", "testdata")
	nullnessData  = filepath.Join("..", "..", "..", "analysis", "nullness", "testdata")
	goData        = filepath.Join("..", "..", "..", "analysis", "ssaflow", "testdata", "basic")
)

// execute runs the root command with args and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	defer formatutil.ResetColors()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestTaintCommand(t *testing.T) {
	out, err := execute(t, "taint", "-c", filepath.Join(taintData, "config.yaml"), filepath.Join(taintData, "flows.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Analysis taint (quiesced)")
	assert.Contains(t, out, "[taint #1] app.Main.main:2:")
	assert.Contains(t, out, "app.Util.id:0 v")
	assert.NotContains(t, out, "[taint #2]")

	_, err = execute(t, "taint", "--fail-on-findings", "-c", filepath.Join(taintData, "config.yaml"),
		filepath.Join(taintData, "flows.yaml"))
	assert.True(t, errors.Is(err, ErrFindings))
}

func TestTaintCommandEntries(t *testing.T) {
	out, err := execute(t, "taint", "-c", filepath.Join(taintData, "config.yaml"),
		"--entry", "app.Main.main,app.Main.handler", filepath.Join(taintData, "dispatch.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "[taint #2]")

	_, err = execute(t, "taint", "--entry", "app.Main.missing", filepath.Join(taintData, "dispatch.yaml"))
	assert.Error(t, err)
}

func TestReportOutput(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "taint.msgpack")
	_, err := execute(t, "taint", "-c", filepath.Join(taintData, "config.yaml"), "--out", filename,
		filepath.Join(taintData, "flows.yaml"))
	require.NoError(t, err)

	r, err := report.Load(filename)
	require.NoError(t, err)
	assert.Equal(t, "taint", r.Analysis)
	assert.Equal(t, "quiesced", r.Status)
	require.Len(t, r.Findings, 1)
	assert.Equal(t, "y", r.Findings[0].Fact)
	assert.NotEmpty(t, r.Findings[0].Traces)
}

func TestDeadStoreCommand(t *testing.T) {
	out, err := execute(t, "deadstore", filepath.Join(deadStoreData, "stores.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Analysis dead-store (quiesced)")
	assert.Contains(t, out, "value assigned to a is never used")
	assert.Contains(t, out, "[dead-store #3] app.Main.twice:1:")
	assert.NotContains(t, out, "[dead-store #4]")
}

func TestNullnessCommand(t *testing.T) {
	out, err := execute(t, "nullness", filepath.Join(nullnessData, "nulls.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Analysis nullness (quiesced)")
	assert.Contains(t, out, "[null-dereference #2] app.Main.main:1: a may be null when calling app.Box.get")
	assert.Contains(t, out, "    app.Box.orNull:2 r")
	assert.NotContains(t, out, "[null-dereference #4]")

	_, err = execute(t, "npe", "--fail-on-findings", filepath.Join(nullnessData, "nulls.yaml"))
	assert.True(t, errors.Is(err, ErrFindings))
}

func TestStatsCommand(t *testing.T) {
	out, err := execute(t, "stats", filepath.Join(deadStoreData, "stores.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "program: 1 classes, 3 methods")
}

func TestGoCommand(t *testing.T) {
	out, err := execute(t, "go", "-c", filepath.Join(goData, "config.yaml"), filepath.Join(goData, "main.go"))
	require.NoError(t, err)
	assert.Contains(t, out, "Analysis go-taint (quiesced)")
	assert.Contains(t, out, "main.go:36")
	assert.Contains(t, out, "[go-taint #1]")
	assert.Contains(t, out, "flows into sink")
}

func TestCommandErrors(t *testing.T) {
	_, err := execute(t, "stats", filepath.Join(deadStoreData, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, HintForErrorMessage(err.Error()), "program file")

	_, err = execute(t, "taint", "-c", filepath.Join(taintData, "missing.yaml"), filepath.Join(taintData, "flows.yaml"))
	assert.Error(t, err)

	_, err = execute(t, "taint")
	assert.Error(t, err, "a program is required")
}
