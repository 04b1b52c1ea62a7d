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

package actors_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/awslabs/ar-go-ifds/analysis/config"
	"github.com/awslabs/ar-go-ifds/analysis/ifds"
	"github.com/awslabs/ar-go-ifds/analysis/ifds/actors"
	"github.com/awslabs/ar-go-ifds/internal/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	vertex = ifds.Vertex[string, string]
	edge   = ifds.Edge[string, string]
	data   = ifds.ComputationData[string, string]
)

// toyGraph has statements "method:index". Calls are the statements with declared callees.
type toyGraph struct {
	sizes   map[string]int
	succ    map[string][]string
	callees map[string][]string
}

// newToyGraph returns a program with a loop in main, and recursion between f and itself:
//
//	main:0 -> main:1 (call f) -> main:2 -> main:0 | main:3
//	f:0 -> f:1 (call g, f) -> f:2
//	g:0 -> g:1
func newToyGraph() *toyGraph {
	return &toyGraph{
		sizes: map[string]int{"main": 4, "f": 3, "g": 2},
		succ: map[string][]string{
			"main:0": {"main:1"},
			"main:1": {"main:2"},
			"main:2": {"main:0", "main:3"},
			"f:0":    {"f:1"},
			"f:1":    {"f:2"},
			"g:0":    {"g:1"},
		},
		callees: map[string][]string{"main:1": {"f"}, "f:1": {"g", "f"}},
	}
}

func (g *toyGraph) MethodOf(s string) string         { return s[:strings.Index(s, ":")] }
func (g *toyGraph) Successors(s string) []string     { return g.succ[s] }
func (g *toyGraph) EntryPoints(m string) []string    { return []string{m + ":0"} }
func (g *toyGraph) IsCall(s string) bool             { return len(g.callees[s]) > 0 }
func (g *toyGraph) FindOverrides(string) []string    { return nil }
func (g *toyGraph) DeclaringType(m string) string    { return m }
func (g *toyGraph) IsSubtype(sub, super string) bool { return sub == super }

func (g *toyGraph) ExitPoints(m string) []string {
	var exits []string
	for i := 0; i < g.sizes[m]; i++ {
		s := fmt.Sprintf("%s:%d", m, i)
		if len(g.succ[s]) == 0 {
			exits = append(exits, s)
		}
	}
	return exits
}

func (g *toyGraph) CallSite(s string) (ifds.CallSite[string], bool) {
	c, ok := g.callees[s]
	return ifds.CallSite[string]{Callees: c}, ok
}

// genFlow propagates every fact, and generates x at the entry of f.
type genFlow struct{}

func (genFlow) Sequent(current, _ string, fact string) []string {
	if current == "f:0" && fact == "0" {
		return []string{"0", "x"}
	}
	return []string{fact}
}
func (genFlow) Call(_, _ string, fact string) []ifds.CallAction[string] {
	return []ifds.CallAction[string]{ifds.Return(fact), ifds.Start(fact)}
}
func (genFlow) CallToStart(_, _ string, fact string) []string         { return []string{fact} }
func (genFlow) ExitToReturnSite(_, _, _ string, fact string) []string { return []string{fact} }

// countingFlow generates a new fact at every step, so that the analysis of a loop never terminates.
type countingFlow struct{ genFlow }

func (countingFlow) Sequent(_, _ string, fact string) []string {
	n, _ := strconv.Atoi(fact)
	return []string{strconv.Itoa(n + 1)}
}

func newAnalyzer(runner ifds.RunnerID, g *toyGraph, flow ifds.FlowFunctions[string, string],
	onNewEdge func(edge) []ifds.Message) *ifds.BaseAnalyzer[string, string, string] {
	return &ifds.BaseAnalyzer[string, string, string]{
		Runner: runner,
		Graph:  g,
		Flow:   flow,
		Start:  func(string) []string { return []string{"0"} },
		OnNewEdge: func(e edge) []ifds.Message {
			var out []ifds.Message
			if e.To.Statement == "g:1" && e.To.Fact == "x" {
				out = append(out, ifds.NewFinding[string, string]{RunnerID: runner,
					Finding: ifds.Finding[string, string]{Vertex: e.To, Rule: "reach", Message: "x reaches g"}})
			}
			if onNewEdge != nil {
				out = append(out, onNewEdge(e)...)
			}
			return out
		},
	}
}

func byMethod(s string) ifds.ChunkID {
	return ifds.ChunkID(s[:strings.Index(s, ":")])
}

func newContext(g *toyGraph, analyzers map[ifds.RunnerID]ifds.Analyzer[string, string]) *ifds.Context[string, string, string] {
	resolver := ifds.NewVirtualCallResolver[string, string, string](g, g, nil, quietLogger())
	return ifds.NewContext[string, string, string](byMethod, nil, ifds.Analyzers(analyzers),
		ifds.SharedIndirection[string, string](resolver))
}

func quietLogger() *config.LogGroup {
	logger := config.NewDefaultLogGroup()
	logger.SetAllOutput(io.Discard)
	return logger
}

func newSystem(t *testing.T, g *toyGraph, flow ifds.FlowFunctions[string, string],
	opts actors.Options) *actors.System[string, string, string] {
	ictx := newContext(g, map[ifds.RunnerID]ifds.Analyzer[string, string]{"reach": newAnalyzer("reach", g, flow, nil)})
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	sys := actors.NewSystem[string, string, string](ictx, g, "reach", opts)
	t.Cleanup(sys.Close)
	return sys
}

func run(t *testing.T, sys *actors.System[string, string, string]) *data {
	t.Helper()
	ctx := context.Background()
	status, err := sys.RunAnalysis(ctx, []string{"main"}, 10*time.Second)
	require.NoError(t, err)
	require.Equal(t, ifds.Quiesced, status)
	d, err := sys.CollectComputationData(ctx)
	require.NoError(t, err)
	return d
}

func factSet(d *data, s string) []string {
	var facts []string
	for f := range d.FactsAt(s) {
		facts = append(facts, f)
	}
	sort.Strings(facts)
	return facts
}

func TestReachabilityTerminatesOnLoopsAndRecursion(t *testing.T) {
	g := newToyGraph()
	d := run(t, newSystem(t, g, genFlow{}, actors.Options{}))

	assert.Equal(t, []string{"0", "x"}, factSet(d, "main:0"), "x flows back through the loop")
	assert.Equal(t, []string{"0", "x"}, factSet(d, "main:3"))
	assert.Equal(t, []string{"0", "x"}, factSet(d, "g:1"))
	assert.Contains(t, d.SummaryEdges, edge{From: vertex{Statement: "f:0", Fact: "0"}, To: vertex{Statement: "f:2", Fact: "x"}})
	assert.Contains(t, d.SummaryEdges, edge{From: vertex{Statement: "g:0", Fact: "x"}, To: vertex{Statement: "g:1", Fact: "x"}})

	findings := d.FindingList()
	require.Len(t, findings, 1, "findings are deduplicated")
	assert.Equal(t, vertex{Statement: "g:1", Fact: "x"}, findings[0].Vertex)

	// the seed has an initial reason
	assert.Contains(t, d.Reasons[ifds.Loop(vertex{Statement: "main:0", Fact: "0"})], ifds.InitialReason[string, string]())
}

// sequential runs the engine in a single goroutine, handling the pending messages in a random order.
func sequential(t *testing.T, ictx *ifds.Context[string, string, string], seeds []ifds.Message,
	rng *rand.Rand) *data {
	t.Helper()
	resolver := ictx.Resolver()
	stores := map[string]*ifds.Store[string, string]{}
	queue := append([]ifds.Message(nil), seeds...)
	for len(queue) > 0 {
		i := rng.Intn(len(queue))
		msg := queue[i]
		queue[i] = queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		chunk, ok := resolver.ChunkOf(msg)
		require.True(t, ok, "%T has no chunk", msg)
		var out []ifds.Message
		var err error
		switch msg.Category() {
		case ifds.StorageCategory:
			key := string(chunk) + "/" + string(msg.Runner())
			if stores[key] == nil {
				stores[key] = ifds.NewStore[string, string](msg.Runner())
			}
			out, err = stores[key].Handle(msg)
		case ifds.AnalyzerCategory:
			a, aerr := ictx.Analyzer(msg.Runner())
			require.NoError(t, aerr)
			out, err = a.Step(msg)
		case ifds.IndirectionCategory:
			r, rerr := ictx.Indirection(msg.Runner())
			require.NoError(t, rerr)
			out, err = r.Resolve(msg.(ifds.UnresolvedCall[string, string]))
		}
		require.NoError(t, err)
		queue = append(queue, out...)
	}
	var snapshots []*data
	for _, s := range stores {
		snapshots = append(snapshots, s.Snapshot())
	}
	return ifds.MergeData(snapshots...)
}

func TestOrderIndependence(t *testing.T) {
	g := newToyGraph()
	expected := run(t, newSystem(t, g, genFlow{}, actors.Options{}))
	seed := ifds.NewEdge[string, string]{RunnerID: "reach", Edge: ifds.Loop(vertex{Statement: "main:0", Fact: "0"}),
		Reason: ifds.InitialReason[string, string]()}

	for i := 0; i < 20; i++ {
		ictx := newContext(g, map[ifds.RunnerID]ifds.Analyzer[string, string]{
			"reach": newAnalyzer("reach", g, genFlow{}, nil),
		})
		got := sequential(t, ictx, []ifds.Message{seed}, rand.New(rand.NewSource(int64(i))))
		assert.Equal(t, expected.EdgeSet(), got.EdgeSet(), "seed %d", i)
		assert.Equal(t, expected.SummaryEdges, got.SummaryEdges, "seed %d", i)
		assert.Equal(t, expected.Findings, got.Findings, "seed %d", i)
	}

	// the deployment of the actors does not change the result either
	for _, strategy := range []string{config.RoundRobinStrategy, config.FirstReadyStrategy} {
		for _, size := range []int{1, 3} {
			got := run(t, newSystem(t, g, genFlow{}, actors.Options{WorkerPoolStrategy: strategy, WorkerPoolSize: size}))
			assert.Equal(t, expected.EdgeSet(), got.EdgeSet(), "%s/%d", strategy, size)
		}
	}
}

func TestCollectByChunk(t *testing.T) {
	g := newToyGraph()
	var logs lockedBuffer
	logger := config.NewDefaultLogGroup()
	logger.SetAllOutput(&logs)
	sys := newSystem(t, g, genFlow{}, actors.Options{WorkerPoolSize: 2, Logger: logger})
	ctx := context.Background()
	require.NoError(t, sys.StartAnalysis("main"))

	// collecting while chunks are being created never fails
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sys.CollectByChunk(ctx, "reach")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	status, err := sys.AwaitAnalysis(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, ifds.Quiesced, status)
	byChunk, err := sys.CollectByChunk(ctx, "reach")
	require.NoError(t, err)
	assert.Len(t, byChunk, 3)
	assert.Equal(t, []string{"0", "x"}, factSet(byChunk["g"], "g:1"))
	assert.Empty(t, byChunk["g"].FactsAt("main:0"), "a chunk only stores its own statements")

	// a runner that never ran has empty data in every chunk
	other, err := sys.CollectComputationDataFor(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, other.EdgeSet())
	assert.NotContains(t, logs.String(), ifds.ErrUnknownRunner.Error())
	byChunk, err = sys.CollectByChunk(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, byChunk, 3)
	for chunk, data := range byChunk {
		assert.Empty(t, data.EdgeSet(), "chunk %s", chunk)
	}
}

func TestTimeoutKeepsPartialResults(t *testing.T) {
	g := newToyGraph()
	sys := newSystem(t, g, countingFlow{}, actors.Options{})
	ctx := context.Background()

	status, err := sys.RunAnalysis(ctx, []string{"main"}, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, ifds.TimedOut, status)
	assert.False(t, status.Complete())

	d, err := sys.CollectComputationData(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, d.EdgeSet())
	assert.Contains(t, d.FactsAt("main:0"), "0")
}

func TestCancel(t *testing.T) {
	g := newToyGraph()
	sys := newSystem(t, g, countingFlow{}, actors.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	status, err := sys.RunAnalysis(ctx, []string{"main"}, 0)
	assert.Equal(t, ifds.Cancelled, status)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEdgeForOtherRunner(t *testing.T) {
	g := newToyGraph()
	handOver := func(e edge) []ifds.Message {
		if e.To.Statement == "main:3" {
			return []ifds.Message{ifds.ForOtherRunner("second", "first", ifds.Loop(vertex{Statement: "g:0", Fact: e.To.Fact}))}
		}
		return nil
	}
	ictx := newContext(g, map[ifds.RunnerID]ifds.Analyzer[string, string]{
		"first":  newAnalyzer("first", g, genFlow{}, handOver),
		"second": newAnalyzer("second", g, genFlow{}, nil),
	})
	sys := actors.NewSystem[string, string, string](ictx, g, "first", actors.Options{Logger: quietLogger()})
	defer sys.Close()
	ctx := context.Background()

	status, err := sys.RunAnalysis(ctx, []string{"main"}, 10*time.Second)
	require.NoError(t, err)
	require.Equal(t, ifds.Quiesced, status)

	second, err := sys.CollectComputationDataFor(ctx, "second")
	require.NoError(t, err)
	start := ifds.Loop(vertex{Statement: "g:0", Fact: "x"})
	require.Contains(t, second.EdgeSet(), start)
	assert.Equal(t, []ifds.Reason[string, string]{{Kind: ifds.FromOtherRunner, Runner: "first"}},
		second.Reasons[start])
	assert.Len(t, second.FindingList(), 1)
	assert.Empty(t, second.FactsAt("main:0"), "the second runner only analyzes what it was given")

	// the first runner reaches g on its own, and was given nothing
	first, err := sys.CollectComputationDataFor(ctx, "first")
	require.NoError(t, err)
	for _, reason := range first.Reasons[start] {
		assert.NotEqual(t, ifds.FromOtherRunner, reason.Kind)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type failingAnalyzer struct {
	ifds.Analyzer[string, string]
}

func (a failingAnalyzer) Step(msg ifds.Message) ([]ifds.Message, error) {
	out, err := a.Analyzer.Step(msg)
	if e, ok := msg.(ifds.EdgeMessage[string, string]); ok && e.Edge.To.Statement == "g:0" {
		return out, errors.New("boom")
	}
	return out, err
}

func TestExceptionsDoNotStopTheAnalysis(t *testing.T) {
	g := newToyGraph()
	var buf lockedBuffer
	logger := config.NewDefaultLogGroup()
	logger.SetAllOutput(&buf)
	ictx := newContext(g, map[ifds.RunnerID]ifds.Analyzer[string, string]{
		"reach": failingAnalyzer{newAnalyzer("reach", g, genFlow{}, nil)},
	})
	sys := actors.NewSystem[string, string, string](ictx, g, "reach", actors.Options{Logger: logger})
	ctx := context.Background()
	status, err := sys.RunAnalysis(ctx, []string{"main"}, 10*time.Second)
	require.NoError(t, err)
	require.Equal(t, ifds.Quiesced, status)
	findings, err := sys.CollectFindings(ctx)
	require.NoError(t, err)
	assert.Len(t, findings, 1)
	sys.Close()
	assert.Contains(t, buf.String(), "boom")
}

func TestUnknownRunnerAndClosedSystem(t *testing.T) {
	g := newToyGraph()
	sys := newSystem(t, g, genFlow{}, actors.Options{})
	assert.True(t, errors.Is(sys.StartAnalysisFor("nope", "main"), ifds.ErrUnknownRunner))

	sys.Close()
	assert.True(t, errors.Is(sys.StartAnalysis("main"), actor.ErrSystemClosed))
	_, err := sys.AwaitAnalysis(context.Background(), 0)
	assert.True(t, errors.Is(err, actor.ErrSystemClosed))
	_, err = sys.CollectFindings(context.Background())
	assert.True(t, errors.Is(err, actor.ErrSystemClosed))
}

func TestAsync(t *testing.T) {
	g := newToyGraph()
	sys := newSystem(t, g, genFlow{}, actors.Options{})
	ctx := context.Background()

	_, err := sys.StartAnalysisAsync("main").Get(ctx)
	require.NoError(t, err)
	status, err := sys.AwaitAnalysisAsync(10 * time.Second).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, ifds.Quiesced, status)

	findings, err := sys.CollectFindingsAsync().Get(ctx)
	require.NoError(t, err)
	assert.Len(t, findings, 1)
	d, err := sys.CollectComputationDataAsync().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "x"}, factSet(d, "main:3"))

	status, err = sys.RunAnalysisAsync([]string{"main"}, 10*time.Second).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, ifds.Quiesced, status, "running again on the same system adds nothing")
}
