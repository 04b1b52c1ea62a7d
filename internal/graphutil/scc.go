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

import "gonum.org/v1/gonum/graph/topo"

// StronglyConnectedComponents returns the strongly connected components of the graph given by nodes and successors.
// The order within a component is arbitrary. Components are in reverse topological order: a component comes after
// every component it reaches.
func StronglyConnectedComponents[T comparable](nodes []T, successors func(T) []T) [][]T {
	g := NewDigraph(nodes, successors)
	var sccs [][]T
	for _, component := range topo.TarjanSCC(g) {
		scc := make([]T, 0, len(component))
		for _, n := range component {
			scc = append(scc, g.Value(n.ID()))
		}
		sccs = append(sccs, scc)
	}
	return sccs
}
