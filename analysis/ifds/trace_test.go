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

package ifds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTraceGraphThroughSummary builds the data of: f0: zero; f1: x = g(); f2: sink(x), with g0: return tainted.
func TestTraceGraphThroughSummary(t *testing.T) {
	s := NewStore[string, string]("taint")
	add := func(e edge, r Reason[string, string]) {
		_, err := s.Handle(NewEdge[string, string]{RunnerID: "taint", Edge: e, Reason: r})
		require.NoError(t, err)
	}
	start := Loop(v("f0", ""))
	toCall := edge{From: v("f0", ""), To: v("f1", "")}
	gStart := Loop(v("g0", ""))
	summary := edge{From: v("g0", ""), To: v("g1", "ret")}
	atSink := edge{From: v("f0", ""), To: v("f2", "x")}
	add(start, InitialReason[string, string]())
	add(toCall, Reason[string, string]{Kind: Sequent, Edge: start})
	add(gStart, Reason[string, string]{Kind: CallToStart, Edge: toCall})
	add(summary, Reason[string, string]{Kind: Sequent, Edge: gStart})
	add(atSink, Reason[string, string]{Kind: ExitToReturnSite, Edge: toCall, Summary: summary})

	g := BuildTraceGraph(s.Snapshot(), v("f2", "x"), "")
	assert.Equal(t, v("f2", "x"), g.Sink)
	// the zero fact at the call site is the source, and the callee body leads to the return site
	assert.Equal(t, map[vtx]struct{}{v("f1", ""): {}}, g.Sources)
	assert.Contains(t, g.Edges[v("f1", "")], v("g0", ""))
	assert.Contains(t, g.Edges[v("g0", "")], v("g1", "ret"))
	assert.Contains(t, g.Edges[v("g1", "ret")], v("f2", "x"))
	assert.NotContains(t, g.Edges[v("g0", "")], v("f2", "x"))

	traces := g.Traces()
	require.NotEmpty(t, traces)
	for _, trace := range traces {
		assert.Equal(t, v("f2", "x"), trace[len(trace)-1])
	}
	assert.Equal(t, [][]Vertex[string, string]{{v("f1", ""), v("g0", ""), v("g1", "ret"), v("f2", "x")}}, traces)
}
