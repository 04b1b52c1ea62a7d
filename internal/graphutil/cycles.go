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

package graphutil

import (
	"sort"

	"github.com/yourbasic/graph"
)

// FindAllElementaryCycles finds all elementary cycles in the graph g.
// This uses Donald B. Johnson's algorithm presented in
// "Finding All The Elementary Circuits of a Directed Graph", 1975
//
// Every cycle starts and ends with its smallest node id. Self loops are cycles of length one.
func FindAllElementaryCycles[T comparable](g *Digraph[T]) [][]int64 {
	s := &state{}
	for start := range g.Keys {
		fg := Subgraph(g, g.Keys[start:])
		component := componentOf(fg, g.Keys[start])
		if len(component) == 1 && !g.Edges[g.Keys[start]][g.Keys[start]] {
			continue
		}
		s.stack = []int64{}
		s.blocked = map[int64]bool{}
		s.blist = map[int64]map[int64]bool{}
		s.circuit(g.Keys[start], g.Keys[start], Subgraph(fg, component).Edges)
	}
	return s.cycles
}

// componentOf returns the strongly connected component of g that contains node, computed with yourbasic's
// StrongComponents.
func componentOf[T comparable](g *Digraph[T], node int64) []int64 {
	for _, component := range graph.StrongComponents(g) {
		for _, n := range component {
			if int64(n) == node {
				ids := make([]int64, len(component))
				for i, m := range component {
					ids[i] = int64(m)
				}
				sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
				return ids
			}
		}
	}
	return []int64{node}
}

type state struct {
	blocked map[int64]bool
	blist   map[int64]map[int64]bool
	stack   []int64
	cycles  [][]int64
}

func (s *state) unblock(u int64) {
	s.blocked[u] = false
	for w := range s.blist[u] {
		delete(s.blist[u], w)
		if s.blocked[w] {
			s.unblock(w)
		}
	}
}

func (s *state) circuit(v int64, start int64, edges map[int64]map[int64]bool) bool {
	f := false
	s.stack = append(s.stack, v)
	s.blocked[v] = true
	succs := sortedIDs(edges[v])
	for _, w := range succs {
		if w == start {
			cycle := make([]int64, len(s.stack), len(s.stack)+1)
			copy(cycle, s.stack)
			s.cycles = append(s.cycles, append(cycle, w))
			f = true
		} else if !s.blocked[w] {
			if s.circuit(w, start, edges) {
				f = true
			}
		}
	}

	if f {
		s.unblock(v)
	} else {
		for _, w := range succs {
			if s.blist[w] == nil {
				s.blist[w] = map[int64]bool{}
			}
			s.blist[w][v] = true
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	return f
}
