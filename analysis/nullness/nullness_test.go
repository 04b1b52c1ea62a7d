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

package nullness

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/awslabs/ar-go-ifds/analysis/config"
	"github.com/awslabs/ar-go-ifds/analysis/ifds"
	"github.com/awslabs/ar-go-ifds/analysis/program"
	"github.com/awslabs/ar-go-ifds/internal/funcutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T) (*program.Program, *Result) {
	t.Helper()
	p, err := program.Load(filepath.Join("testdata", "nulls.yaml"))
	require.NoError(t, err)
	main, err := p.Method("app.Main.main")
	require.NoError(t, err)

	cfg := config.NewDefault()
	cfg.Timeout = 0
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(io.Discard)

	res, err := Run(context.Background(), p, cfg, logger, []*program.Method{main})
	require.NoError(t, err)
	assert.Equal(t, ifds.Quiesced, res.Status)
	return p, res
}

func TestNullDereferences(t *testing.T) {
	_, res := run(t)
	// the second call on a only runs when a was not null
	assert.Equal(t,
		[]string{"app.Box.use:0 v", "app.Main.main:1 a", "app.Main.main:4 c"},
		funcutil.Map(res.Findings, func(f Finding) string {
			return fmt.Sprintf("%s %s", f.Vertex.Statement, f.Vertex.Fact)
		}))
	for _, f := range res.Findings {
		assert.Equal(t, Rule, f.Rule)
		assert.Contains(t, f.Message, "may be null when calling app.Box.get")
	}
}

func TestTraceThroughCallee(t *testing.T) {
	_, res := run(t)
	require.Len(t, res.Findings, 3)
	traces := res.Traces(res.Findings[2])
	require.Len(t, traces, 1)
	// the null constant of the callee starts the trace
	assert.Equal(t,
		[]string{"app.Box.orNull:1 ", "app.Box.orNull:2 r", "app.Main.main:4 c"},
		funcutil.Map(traces[0], func(v Vertex) string { return fmt.Sprintf("%s %s", v.Statement, v.Fact) }))
}

func TestFlow(t *testing.T) {
	p, err := program.Load(filepath.Join("testdata", "nulls.yaml"))
	require.NoError(t, err)
	main, _ := p.Method("app.Main.main")
	use, _ := p.Method("app.Box.use")
	orNull, _ := p.Method("app.Box.orNull")
	f := flow{}

	assert.Equal(t, []Fact{Zero, "a"}, f.Sequent(main.Body[0], main.Body[1], Zero))
	assert.Equal(t, []Fact{Zero}, f.Sequent(main.Body[2], main.Body[3], Zero))
	assert.Equal(t, []Fact{"d", "e"}, f.Sequent(main.Body[6], main.Body[7], "d"))
	assert.Empty(t, f.Sequent(main.Body[7], main.Body[8], "d"))
	assert.Equal(t, []Fact{"e"}, f.Sequent(main.Body[7], main.Body[8], "e"))

	assert.Empty(t, f.Call(main.Body[1], main.Body[2], "a"), "a dereferenced receiver is not null afterwards")
	assert.Empty(t, f.Call(main.Body[3], main.Body[4], "c"))
	assert.Equal(t, []ifds.CallAction[Fact]{ifds.Return("e"), ifds.Start("e")},
		f.Call(main.Body[9], main.Body[10], "e"))
	assert.Equal(t, []ifds.CallAction[Fact]{ifds.Return("a")}, f.Call(main.Body[8], main.Body[9], "a"))

	assert.Equal(t, []Fact{"v"}, f.CallToStart(main.Body[9], use.Body[0], "e"))
	assert.Empty(t, f.CallToStart(main.Body[9], use.Body[0], "a"))
	assert.Equal(t, []Fact{"c"}, f.ExitToReturnSite(main.Body[3], main.Body[4], orNull.Body[2], "r"))
	assert.Empty(t, f.ExitToReturnSite(main.Body[3], main.Body[4], orNull.Body[2], "b"))
	assert.Equal(t, []Fact{Zero}, f.ExitToReturnSite(main.Body[3], main.Body[4], orNull.Body[3], Zero))
}
