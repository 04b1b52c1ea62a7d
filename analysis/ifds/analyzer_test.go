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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineGraph is a graph where every method m is the sequence of statements m0, m1, ... and statements listed in
// calls are calls.
type lineGraph struct {
	sizes map[string]int
	calls map[string]string
}

func (g lineGraph) MethodOf(s string) string { return s[:1] }

func (g lineGraph) index(s string) int {
	n := 0
	for _, c := range s[1:] {
		n = n*10 + int(c-'0')
	}
	return n
}

func (g lineGraph) Successors(s string) []string {
	m := g.MethodOf(s)
	i := g.index(s)
	if i+1 >= g.sizes[m] {
		return nil
	}
	return []string{m + string(rune('0'+i+1))}
}

func (g lineGraph) EntryPoints(m string) []string { return []string{m + "0"} }

func (g lineGraph) ExitPoints(m string) []string {
	return []string{m + string(rune('0'+g.sizes[m]-1))}
}

func (g lineGraph) IsCall(s string) bool {
	_, ok := g.calls[s]
	return ok
}

// identityFlow propagates every fact, and passes every fact to callees.
type identityFlow struct{}

func (identityFlow) Sequent(_, _ string, fact string) []string { return []string{fact} }
func (identityFlow) Call(_, _ string, fact string) []CallAction[string] {
	return []CallAction[string]{Return(fact), Start(fact), Start(fact)}
}
func (identityFlow) CallToStart(_, _ string, fact string) []string         { return []string{fact} }
func (identityFlow) ExitToReturnSite(_, _, _ string, fact string) []string { return []string{fact} }

func newTestAnalyzer() *BaseAnalyzer[string, string, string] {
	return &BaseAnalyzer[string, string, string]{
		Runner: "taint",
		Graph:  lineGraph{sizes: map[string]int{"f": 3, "g": 2}, calls: map[string]string{"f1": "g"}},
		Flow:   identityFlow{},
		Start:  func(string) []string { return []string{"0"} },
		OnNewEdge: func(e Edge[string, string]) []Message {
			if strings.HasPrefix(e.To.Fact, "bad") {
				return []Message{NewFinding[string, string]{RunnerID: "taint",
					Finding: Finding[string, string]{Vertex: e.To, Rule: "bad"}}}
			}
			return nil
		},
	}
}

func step(t *testing.T, a Analyzer[string, string], msg Message) []Message {
	t.Helper()
	out, err := a.Step(msg)
	require.NoError(t, err)
	return out
}

func TestBaseAnalyzerSequent(t *testing.T) {
	a := newTestAnalyzer()
	assert.Equal(t, []string{"0"}, a.StartFacts("f0"))
	start := Loop(v("f0", "x"))
	out := step(t, a, EdgeMessage[string, string]{RunnerID: "taint", Edge: start})
	assert.Equal(t, []Message{NewEdge[string, string]{
		RunnerID: "taint",
		Edge:     edge{From: v("f0", "x"), To: v("f1", "x")},
		Reason:   Reason[string, string]{Kind: Sequent, Edge: start},
	}}, out)
}

func TestBaseAnalyzerCall(t *testing.T) {
	a := newTestAnalyzer()
	e := edge{From: v("f0", "x"), To: v("f1", "x")}
	out := step(t, a, EdgeMessage[string, string]{RunnerID: "taint", Edge: e})
	assert.Equal(t, []Message{
		NewEdge[string, string]{
			RunnerID: "taint",
			Edge:     edge{From: v("f0", "x"), To: v("f2", "x")},
			Reason:   Reason[string, string]{Kind: CallToReturn, Edge: e},
		},
		// the duplicate start action gives a single call
		UnresolvedCall[string, string]{RunnerID: "taint", Edge: e},
	}, out)
}

func TestBaseAnalyzerExitProducesSummaryAndFinding(t *testing.T) {
	a := newTestAnalyzer()
	e := edge{From: v("f0", "bad"), To: v("f2", "bad")}
	out := step(t, a, EdgeMessage[string, string]{RunnerID: "taint", Edge: e})
	assert.Equal(t, []Message{
		NewSummaryEdge[string, string]{RunnerID: "taint", Edge: e},
		NewFinding[string, string]{RunnerID: "taint", Finding: Finding[string, string]{Vertex: v("f2", "bad"), Rule: "bad"}},
	}, out)
	assert.True(t, a.IsExit("f2"))
	assert.False(t, a.IsExit("f1"))
}

func TestBaseAnalyzerResolvedCallAndNotification(t *testing.T) {
	a := newTestAnalyzer()
	callEdge := edge{From: v("f0", "x"), To: v("f1", "x")}
	out := step(t, a, ResolvedCall[string, string, string]{RunnerID: "taint", Edge: callEdge, Callee: "g"})
	assert.Equal(t, []Message{
		SubscriptionOnStart[string, string]{RunnerID: "taint", StartVertex: v("g0", "x"), Subscriber: "taint",
			SubscribingEdge: callEdge},
		NewEdge[string, string]{RunnerID: "taint", Edge: Loop(v("g0", "x")),
			Reason: Reason[string, string]{Kind: CallToStart, Edge: callEdge}},
	}, out)

	summary := edge{From: v("g0", "x"), To: v("g1", "y")}
	out = step(t, a, NotificationOnStart[string, string]{RunnerID: "taint", Author: "taint", SummaryEdge: summary,
		SubscribingEdge: callEdge})
	assert.Equal(t, []Message{NewEdge[string, string]{
		RunnerID: "taint",
		Edge:     edge{From: v("f0", "x"), To: v("f2", "y")},
		Reason:   Reason[string, string]{Kind: ExitToReturnSite, Edge: callEdge, Summary: summary},
	}}, out)
}

func TestBaseAnalyzerUnexpectedMessage(t *testing.T) {
	a := newTestAnalyzer()
	_, err := a.Step(NewChunk{Chunk: "c"})
	assert.ErrorContains(t, err, "unexpected message")
	out, err := a.Step(NotificationOnEnd[string, string]{RunnerID: "taint"})
	assert.NoError(t, err)
	assert.Empty(t, out)
}

func TestChunkResolverRoutesByStatement(t *testing.T) {
	r := NewChunkResolver[string, string, string](func(s string) ChunkID { return ChunkID("chunk-" + s[:1]) })
	callEdge := edge{From: v("f0", "x"), To: v("f1", "x")}
	summary := edge{From: v("g0", "x"), To: v("g1", "x")}
	cases := []struct {
		msg  Message
		want ChunkID
	}{
		{NewEdge[string, string]{Edge: callEdge}, "chunk-f"},
		{NewSummaryEdge[string, string]{Edge: summary}, "chunk-g"},
		{NewFinding[string, string]{Finding: Finding[string, string]{Vertex: v("h1", "x")}}, "chunk-h"},
		{SubscriptionOnStart[string, string]{StartVertex: v("g0", "x"), SubscribingEdge: callEdge}, "chunk-g"},
		{SubscriptionOnEnd[string, string]{EndVertex: v("g1", "x"), SubscribingEdge: callEdge}, "chunk-g"},
		{CollectData[string, string]{Chunk: "explicit"}, "explicit"},
		{EdgeMessage[string, string]{Edge: summary}, "chunk-g"},
		{ResolvedCall[string, string, string]{Edge: callEdge, Callee: "g"}, "chunk-f"},
		{NotificationOnStart[string, string]{SummaryEdge: summary, SubscribingEdge: callEdge}, "chunk-f"},
		{NotificationOnEnd[string, string]{SummaryEdge: summary, SubscribingEdge: callEdge}, "chunk-f"},
		{UnresolvedCall[string, string]{Edge: callEdge}, "chunk-f"},
	}
	for _, c := range cases {
		got, ok := r.ChunkOf(c.msg)
		assert.True(t, ok, "%T", c.msg)
		assert.Equal(t, c.want, got, "%T", c.msg)
	}
	_, ok := r.ChunkOf(NewChunk{Chunk: "c"})
	assert.False(t, ok)
	_, ok = r.ChunkOf(CollectAll[string, string]{RunnerID: "taint"})
	assert.False(t, ok)
	assert.True(t, r.Owns("chunk-f", "taint", UnresolvedCall[string, string]{RunnerID: "taint", Edge: callEdge}))
	assert.False(t, r.Owns("chunk-f", "other", UnresolvedCall[string, string]{RunnerID: "taint", Edge: callEdge}))
	assert.Equal(t, RunnerID("taint"), r.RunnerOf(NewEdge[string, string]{RunnerID: "taint"}))
}

func TestForOtherRunner(t *testing.T) {
	e := Loop(v("f0", "x"))
	m := ForOtherRunner[string, string]("backward", "taint", e)
	assert.Equal(t, RunnerID("backward"), m.Runner())
	assert.Equal(t, FromOtherRunner, m.Reason.Kind)
	assert.Equal(t, RunnerID("taint"), m.Reason.Runner)
	assert.Equal(t, StorageCategory, m.Category())
}

func TestContextMemoizesFactories(t *testing.T) {
	created := 0
	analyzer := newTestAnalyzer()
	ctx := NewContext[string, string, string](SingleChunk[string]("all"), nil,
		func(runner RunnerID) (Analyzer[string, string], error) {
			created++
			return Analyzers(map[RunnerID]Analyzer[string, string]{"taint": analyzer})(runner)
		},
		SharedIndirection[string, string](nil))
	a1, err := ctx.Analyzer("taint")
	require.NoError(t, err)
	a2, err := ctx.Analyzer("taint")
	require.NoError(t, err)
	assert.Same(t, a1, a2)
	assert.Equal(t, 1, created)
	_, err = ctx.Analyzer("nullness")
	assert.ErrorIs(t, err, ErrUnknownRunner)
	chunk, ok := ctx.Resolver().ChunkOf(NewEdge[string, string]{Edge: Loop(v("f0", "x"))})
	assert.True(t, ok)
	assert.Equal(t, ChunkID("all"), chunk)
}
