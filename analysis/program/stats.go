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

package program

import (
	"sort"

	"github.com/awslabs/ar-go-ifds/internal/funcutil"
	"github.com/awslabs/ar-go-ifds/internal/graphutil"
	"github.com/yourbasic/graph"
)

// Stats are statistics on the shape of a program.
type Stats struct {
	Classes      int
	Methods      int
	Instructions int
	Calls        int
	// CallEdges is the number of edges of the call graph, overrides included
	CallEdges int
	// MethodsWithLoops are the methods whose control-flow graph is cyclic
	MethodsWithLoops []string
	// RecursiveMethods are the methods that can call themselves, directly or not
	RecursiveMethods []string
	// CallCycles are the elementary cycles of the call graph
	CallCycles [][]string
}

// ComputeStats returns the statistics of p.
func ComputeStats(p *Program) Stats {
	methods := p.Methods()
	stats := Stats{Classes: len(p.classes), Methods: len(methods)}
	for _, m := range methods {
		stats.Instructions += len(m.Body)
		for _, inst := range m.Body {
			if inst.Op == Call {
				stats.Calls++
			}
		}
		if len(m.Body) > 0 && !graph.Acyclic(graphutil.NewDigraph(m.Body, p.Successors)) {
			stats.MethodsWithLoops = append(stats.MethodsWithLoops, m.String())
		}
	}

	cg := graphutil.NewDigraph(methods, p.CallGraphSuccessors)
	stats.CallEdges = graph.Check(cg).Size
	for _, cycle := range graphutil.FindAllElementaryCycles(cg) {
		stats.CallCycles = append(stats.CallCycles, funcutil.Map(cycle, func(id int64) string {
			return cg.Value(id).String()
		}))
	}
	sort.Slice(stats.CallCycles, func(i, j int) bool {
		return stats.CallCycles[i][0] < stats.CallCycles[j][0] ||
			(stats.CallCycles[i][0] == stats.CallCycles[j][0] && len(stats.CallCycles[i]) < len(stats.CallCycles[j]))
	})

	for _, scc := range graphutil.StronglyConnectedComponents(methods, p.CallGraphSuccessors) {
		if len(scc) > 1 || funcutil.Contains(p.CallGraphSuccessors(scc[0]), scc[0]) {
			for _, m := range scc {
				stats.RecursiveMethods = append(stats.RecursiveMethods, m.String())
			}
		}
	}
	sort.Strings(stats.RecursiveMethods)
	return stats
}

// CallGraphSuccessors returns the methods m may call: the declared callees and, for virtual calls, their overrides.
func (p *Program) CallGraphSuccessors(m *Method) []*Method {
	var callees []*Method
	seen := map[*Method]bool{}
	for _, inst := range m.Body {
		site, ok := p.CallSite(inst)
		if !ok {
			continue
		}
		for _, callee := range site.Callees {
			candidates := []*Method{callee}
			if site.Virtual {
				candidates = append(candidates, p.FindOverrides(callee)...)
			}
			for _, c := range candidates {
				if !seen[c] {
					seen[c] = true
					callees = append(callees, c)
				}
			}
		}
	}
	return callees
}
