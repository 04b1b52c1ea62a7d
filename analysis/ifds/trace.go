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

// TraceGraph is the graph of vertices leading from the sources of a finding to its sink.
type TraceGraph[S, F comparable] struct {
	Sink    Vertex[S, F]
	Sources map[Vertex[S, F]]struct{}
	Edges   map[Vertex[S, F]]map[Vertex[S, F]]struct{}
}

type traceVisit[S, F comparable] struct {
	edge Edge[S, F]
	last Vertex[S, F]
}

// BuildTraceGraph rebuilds the derivations of sink by following the reasons of the edges ending at sink. A vertex
// with the zero fact is a source.
func BuildTraceGraph[S, F comparable](data *ComputationData[S, F], sink Vertex[S, F], zero F) *TraceGraph[S, F] {
	g := &TraceGraph[S, F]{
		Sink:    sink,
		Sources: map[Vertex[S, F]]struct{}{},
		Edges:   map[Vertex[S, F]]map[Vertex[S, F]]struct{}{},
	}
	visited := map[traceVisit[S, F]]bool{}

	addEdge := func(from, to Vertex[S, F]) {
		if from == to {
			return
		}
		if g.Edges[from] == nil {
			g.Edges[from] = map[Vertex[S, F]]struct{}{}
		}
		g.Edges[from][to] = struct{}{}
	}

	var dfs func(edge Edge[S, F], last Vertex[S, F], stopAtStart bool)
	dfs = func(edge Edge[S, F], last Vertex[S, F], stopAtStart bool) {
		key := traceVisit[S, F]{edge, last}
		if visited[key] {
			return
		}
		visited[key] = true

		// a loop edge is a method start
		if stopAtStart && edge.From == edge.To {
			addEdge(edge.From, last)
			return
		}
		v := edge.To
		if v.Fact == zero {
			addEdge(v, last)
			g.Sources[v] = struct{}{}
			return
		}
		for _, reason := range data.Reasons[edge] {
			switch reason.Kind {
			case Initial, FromOtherRunner:
				g.Sources[v] = struct{}{}
				addEdge(v, last)
			case Sequent, CallToReturn:
				pred := reason.Edge
				if pred.To.Fact == v.Fact {
					dfs(pred, last, stopAtStart)
				} else {
					addEdge(pred.To, last)
					dfs(pred, pred.To, stopAtStart)
				}
			case CallToStart:
				if !stopAtStart {
					pred := reason.Edge
					addEdge(pred.To, last)
					dfs(pred, pred.To, false)
				}
			case ExitToReturnSite:
				// the callee body sits between the call and the return site
				caller, summary := reason.Edge, reason.Summary
				addEdge(summary.To, last)
				addEdge(caller.To, summary.From)
				dfs(summary, summary.To, true)
				dfs(caller, caller.To, stopAtStart)
			}
		}
	}

	for _, edge := range data.EdgesByEnd[sink] {
		dfs(edge, edge.To, false)
	}
	return g
}

// Traces returns every acyclic path from a source to the sink.
func (g *TraceGraph[S, F]) Traces() [][]Vertex[S, F] {
	var traces [][]Vertex[S, F]
	var walk func(trace []Vertex[S, F], onTrace map[Vertex[S, F]]bool)
	walk = func(trace []Vertex[S, F], onTrace map[Vertex[S, F]]bool) {
		v := trace[len(trace)-1]
		if v == g.Sink {
			traces = append(traces, append([]Vertex[S, F](nil), trace...))
			return
		}
		for u := range g.Edges[v] {
			if !onTrace[u] {
				onTrace[u] = true
				walk(append(trace, u), onTrace)
				delete(onTrace, u)
			}
		}
	}
	for src := range g.Sources {
		walk([]Vertex[S, F]{src}, map[Vertex[S, F]]bool{src: true})
	}
	return traces
}
