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
	"github.com/awslabs/ar-go-ifds/internal/funcutil"
)

// ComputationData is a snapshot of the state of one or several stores. A snapshot is never shared with a store:
// readers do not need any synchronization.
type ComputationData[S, F comparable] struct {
	// EdgesByEnd groups the edges by target vertex
	EdgesByEnd map[Vertex[S, F]][]Edge[S, F]
	// FactsByStatement lists the facts reaching every statement, without duplicates
	FactsByStatement map[S][]F
	// Reasons lists the reasons of every edge
	Reasons map[Edge[S, F]][]Reason[S, F]
	// Findings is the set of findings
	Findings map[Finding[S, F]]struct{}
	// SummaryEdges is the set of summary edges
	SummaryEdges map[Edge[S, F]]struct{}
}

// NewComputationData returns empty data.
func NewComputationData[S, F comparable]() *ComputationData[S, F] {
	return &ComputationData[S, F]{
		EdgesByEnd:       map[Vertex[S, F]][]Edge[S, F]{},
		FactsByStatement: map[S][]F{},
		Reasons:          map[Edge[S, F]][]Reason[S, F]{},
		Findings:         map[Finding[S, F]]struct{}{},
		SummaryEdges:     map[Edge[S, F]]struct{}{},
	}
}

// EdgeSet returns the set of edges of the data.
func (d *ComputationData[S, F]) EdgeSet() map[Edge[S, F]]struct{} {
	edges := make(map[Edge[S, F]]struct{}, len(d.Reasons))
	for _, byEnd := range d.EdgesByEnd {
		for _, e := range byEnd {
			edges[e] = struct{}{}
		}
	}
	return edges
}

// FindingList returns the findings of the data, in no particular order.
func (d *ComputationData[S, F]) FindingList() []Finding[S, F] {
	return funcutil.SetToSlice(d.Findings)
}

// FactsAt returns the set of facts reaching statement s.
func (d *ComputationData[S, F]) FactsAt(s S) map[F]struct{} {
	facts := map[F]struct{}{}
	for _, f := range d.FactsByStatement[s] {
		facts[f] = struct{}{}
	}
	return facts
}

// MergeData merges the data of several stores into a new snapshot. Edges, facts, reasons, findings and summary
// edges are deduplicated by value.
func MergeData[S, F comparable](data ...*ComputationData[S, F]) *ComputationData[S, F] {
	merged := NewComputationData[S, F]()
	edges := map[Edge[S, F]]struct{}{}
	facts := map[S]map[F]struct{}{}
	reasons := map[Edge[S, F]]map[Reason[S, F]]struct{}{}
	for _, d := range data {
		if d == nil {
			continue
		}
		for _, byEnd := range d.EdgesByEnd {
			for _, e := range byEnd {
				edges[e] = struct{}{}
			}
		}
		for s, fs := range d.FactsByStatement {
			for _, f := range fs {
				funcutil.AddToSetMap(facts, s, f)
			}
		}
		for e, rs := range d.Reasons {
			if _, ok := reasons[e]; !ok {
				reasons[e] = map[Reason[S, F]]struct{}{}
			}
			for _, r := range rs {
				reasons[e][r] = struct{}{}
			}
		}
		funcutil.Union(merged.Findings, d.Findings)
		funcutil.Union(merged.SummaryEdges, d.SummaryEdges)
	}
	for e := range edges {
		merged.EdgesByEnd[e.To] = append(merged.EdgesByEnd[e.To], e)
	}
	for s, fs := range facts {
		merged.FactsByStatement[s] = funcutil.SetToSlice(fs)
	}
	for e, rs := range reasons {
		merged.Reasons[e] = funcutil.SetToSlice(rs)
	}
	return merged
}
