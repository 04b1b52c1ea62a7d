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

// Package hierarchy implements a type hierarchy as a directed graph from every type to its direct subtypes.
package hierarchy

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// Hierarchy is a set of named types with their super types. A Hierarchy can be read concurrently once it is built;
// AddType must not be called concurrently with the queries.
type Hierarchy struct {
	g     *simple.DirectedGraph
	ids   map[string]int64
	names map[int64]string

	mu        sync.Mutex
	subtypes  map[string][]string
	subtypeOf map[[2]string]bool
}

// New returns an empty hierarchy.
func New() *Hierarchy {
	return &Hierarchy{
		g:         simple.NewDirectedGraph(),
		ids:       map[string]int64{},
		names:     map[int64]string{},
		subtypes:  map[string][]string{},
		subtypeOf: map[[2]string]bool{},
	}
}

func (h *Hierarchy) node(name string) graph.Node {
	if id, ok := h.ids[name]; ok {
		return h.g.Node(id)
	}
	n := h.g.NewNode()
	h.g.AddNode(n)
	h.ids[name] = n.ID()
	h.names[n.ID()] = name
	return n
}

// AddType adds name with its direct super types. Super types that are not added themselves are still known to the
// hierarchy.
func (h *Hierarchy) AddType(name string, supers ...string) {
	n := h.node(name)
	for _, super := range supers {
		if super == "" || super == name {
			continue
		}
		s := h.node(super)
		h.g.SetEdge(h.g.NewEdge(s, n))
	}
	h.mu.Lock()
	h.subtypes = map[string][]string{}
	h.subtypeOf = map[[2]string]bool{}
	h.mu.Unlock()
}

// Has returns true if name is in the hierarchy.
func (h *Hierarchy) Has(name string) bool {
	_, ok := h.ids[name]
	return ok
}

// Types returns the names of all the types, sorted.
func (h *Hierarchy) Types() []string {
	names := make([]string, 0, len(h.ids))
	for name := range h.ids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supers returns the direct super types of name, sorted.
func (h *Hierarchy) Supers(name string) []string {
	id, ok := h.ids[name]
	if !ok {
		return nil
	}
	var supers []string
	to := h.g.To(id)
	for to.Next() {
		supers = append(supers, h.names[to.Node().ID()])
	}
	sort.Strings(supers)
	return supers
}

// IsSubtype returns true if sub is super, or a transitive subtype of super.
func (h *Hierarchy) IsSubtype(sub, super string) bool {
	if sub == super {
		return true
	}
	subID, ok1 := h.ids[sub]
	superID, ok2 := h.ids[super]
	if !ok1 || !ok2 {
		return false
	}
	key := [2]string{sub, super}
	h.mu.Lock()
	res, cached := h.subtypeOf[key]
	h.mu.Unlock()
	if cached {
		return res
	}
	res = topo.PathExistsIn(h.g, h.g.Node(superID), h.g.Node(subID))
	h.mu.Lock()
	h.subtypeOf[key] = res
	h.mu.Unlock()
	return res
}

// Subtypes returns the transitive subtypes of name, name excluded, in breadth-first order.
func (h *Hierarchy) Subtypes(name string) []string {
	id, ok := h.ids[name]
	if !ok {
		return nil
	}
	h.mu.Lock()
	if subs, cached := h.subtypes[name]; cached {
		h.mu.Unlock()
		return subs
	}
	h.mu.Unlock()
	var subs []string
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			if n.ID() != id {
				subs = append(subs, h.names[n.ID()])
			}
		},
	}
	bf.Walk(h.g, h.g.Node(id), nil)
	h.mu.Lock()
	h.subtypes[name] = subs
	h.mu.Unlock()
	return subs
}
