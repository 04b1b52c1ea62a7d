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

	"gonum.org/v1/gonum/graph"
)

var _ graph.Directed = (*Digraph[int])(nil)

// Digraph is a directed graph over dense integer ids, built from any graph given by its nodes and a successor
// function. It implements yourbasic's graph.Iterator and Gonum's graph.Directed so that both libraries can run on it.
type Digraph[T comparable] struct {
	// The order of the graph
	order int

	// IDs maps every node to its id
	IDs map[T]int64

	// IDMap maps from node IDs to DNodes
	IDMap map[int64]DNode[T]

	// Keys are all the node IDs
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge between IDMap[x] and IDMap[y]
	Edges map[int64]map[int64]bool
}

// NewDigraph returns the graph of nodes with the successors. Successors that are not in nodes are added to the
// graph. Node ids follow the order of nodes.
func NewDigraph[T comparable](nodes []T, successors func(T) []T) *Digraph[T] {
	g := &Digraph[T]{
		IDs:   map[T]int64{},
		IDMap: map[int64]DNode[T]{},
		Edges: map[int64]map[int64]bool{},
	}
	var add func(T) int64
	add = func(n T) int64 {
		if id, ok := g.IDs[n]; ok {
			return id
		}
		id := int64(len(g.Keys))
		g.IDs[n] = id
		g.IDMap[id] = DNode[T]{id: id, Value: n}
		g.Keys = append(g.Keys, id)
		g.Edges[id] = map[int64]bool{}
		return id
	}
	for _, n := range nodes {
		add(n)
	}
	for i := 0; i < len(g.Keys); i++ {
		from := g.IDMap[g.Keys[i]].Value
		for _, to := range successors(from) {
			g.Edges[g.Keys[i]][add(to)] = true
		}
	}
	g.order = len(g.Keys)
	return g
}

// Subgraph returns a new graph that is the original graph with only the nodes in include. Only the edges that have
// both the origin and destination nodes in the include nodes are kept in the resulting graph.
// The subgraph's order and IDMap are the same as in origin, meaning that node indices will stay consistent
// across subgraphs.
func Subgraph[T comparable](original *Digraph[T], include []int64) *Digraph[T] {
	keep := make(map[int64]bool, len(include))
	keys := make([]int64, len(include))
	for j, i := range include {
		keys[j] = i
		keep[i] = true
	}
	edges := make(map[int64]map[int64]bool, len(include))
	for _, i := range include {
		edges[i] = map[int64]bool{}
		for e := range original.Edges[i] {
			if keep[e] {
				edges[i][e] = true
			}
		}
	}
	return &Digraph[T]{
		order: original.Order(),
		IDs:   original.IDs,
		IDMap: original.IDMap,
		Edges: edges,
		Keys:  keys,
	}
}

// Order implements the order of the graph.Iterator interface for the Digraph
func (c *Digraph[T]) Order() int {
	return c.order
}

// Visit implements the graph.Iterator interface for the Digraph
func (c *Digraph[T]) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	for _, w := range sortedIDs(c.Edges[int64(v)]) {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// Value returns the node of id.
func (c *Digraph[T]) Value(id int64) T {
	return c.IDMap[id].Value
}

// *************** Graph interface implementation **********************

// Node implements the Graph interface
func (c *Digraph[T]) Node(id int64) graph.Node {
	n, ok := c.IDMap[id]
	if !ok {
		return nil
	}
	return n
}

// Nodes returns the set of nodes in the graph
func (c *Digraph[T]) Nodes() graph.Nodes {
	return c.nodeSet(c.Keys)
}

// From returns the set of nodes reachable from the id
func (c *Digraph[T]) From(id int64) graph.Nodes {
	return c.nodeSet(sortedIDs(c.Edges[id]))
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (c *Digraph[T]) HasEdgeBetween(xid, yid int64) bool {
	return c.Edges[xid][yid] || c.Edges[yid][xid]
}

// HasEdgeFromTo returns whether there is a directed edge from uid to vid
func (c *Digraph[T]) HasEdgeFromTo(uid, vid int64) bool {
	return c.Edges[uid][vid]
}

// To returns the nodes that have an edge to id
func (c *Digraph[T]) To(id int64) graph.Nodes {
	var preds []int64
	for _, from := range c.Keys {
		if c.Edges[from][id] {
			preds = append(preds, from)
		}
	}
	return c.nodeSet(preds)
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (c *Digraph[T]) Edge(uid, vid int64) graph.Edge {
	if c.Edges[uid][vid] {
		return DEdge[T]{from: c.IDMap[uid], to: c.IDMap[vid]}
	}
	return nil
}

func (c *Digraph[T]) nodeSet(ids []int64) *NodeSet[T] {
	return &NodeSet[T]{nodes: c.IDMap, ids: ids, cur: -1}
}

func sortedIDs(set map[int64]bool) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// *************** Nodes implementation **********************

// DNode is a node of a Digraph, implementing the graph.Node interface
type DNode[T comparable] struct {
	id    int64
	Value T
}

// ID returns the id of the node
func (n DNode[T]) ID() int64 {
	return n.id
}

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes
type NodeSet[T comparable] struct {
	// nodes is the set of nodes in the iterator
	nodes map[int64]DNode[T]

	// ids is the set of node ids in the iterator
	ids []int64

	// cur is the current index of the iterator, -1 before the first call to Next
	cur int
}

// Next moves the current node to the next, and returns true if such a node exists. Otherwise, returns false
// and the current node has not changed.
func (ns *NodeSet[T]) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the number of nodes remaining in the set
func (ns *NodeSet[T]) Len() int {
	return len(ns.ids) - ns.cur - 1
}

// Reset resets the iterator before its first node
func (ns *NodeSet[T]) Reset() {
	ns.cur = -1
}

// Node return the current node in the set
func (ns *NodeSet[T]) Node() graph.Node {
	if ns.cur < 0 || ns.cur >= len(ns.ids) {
		return nil
	}
	return ns.nodes[ns.ids[ns.cur]]
}

// *************** Edge implementation **********************

// DEdge implements the graph.Edge interface
type DEdge[T comparable] struct {
	from DNode[T]
	to   DNode[T]
}

// From returns the origin of the edge
func (e DEdge[T]) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e DEdge[T]) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e DEdge[T]) ReversedEdge() graph.Edge {
	return DEdge[T]{from: e.to, to: e.from}
}
