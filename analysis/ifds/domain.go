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

// Package ifds contains the domain of the actor-based IFDS engine: vertices, edges and reasons, the messages
// exchanged between the actors, the chunk resolver that decides which actor owns a message, the state machine of the
// fact/summary store, the analyzer contract and the virtual call resolver.
//
// The statement, fact and method types are supplied by a front-end as the type parameters S, F and M. They must be
// comparable since vertices and edges are deduplicated by value.
package ifds

import "fmt"

// RunnerID identifies an analysis kind (taint, dead stores, ...). Several runners can run on the same chunk.
type RunnerID string

// ChunkID identifies a partition of the program whose state is owned by one chunk coordinator.
type ChunkID string

// Vertex is a statement paired with a fact that holds at that statement.
type Vertex[S, F comparable] struct {
	Statement S
	Fact      F
}

func (v Vertex[S, F]) String() string {
	return fmt.Sprintf("(%v, %v)", v.Statement, v.Fact)
}

// Edge represents that To is reachable while exploring from From. Edges are the unit of deduplication of the
// solver.
type Edge[S, F comparable] struct {
	From Vertex[S, F]
	To   Vertex[S, F]
}

// Loop returns the edge from v to itself, which is how the solver represents the start of a method.
func Loop[S, F comparable](v Vertex[S, F]) Edge[S, F] {
	return Edge[S, F]{From: v, To: v}
}

func (e Edge[S, F]) String() string {
	return fmt.Sprintf("%v -> %v", e.From, e.To)
}

// ReasonKind is the kind of derivation that justified an edge.
type ReasonKind int

const (
	// Initial edges are seeded by the facade
	Initial ReasonKind = iota
	// Sequent edges are derived by intra-procedural flow
	Sequent
	// CallToReturn edges bypass a call
	CallToReturn
	// CallToStart edges are method starts reached from a call site
	CallToStart
	// ExitToReturnSite edges are the result of applying a summary edge at a call site
	ExitToReturnSite
	// FromOtherRunner edges are sent by another runner
	FromOtherRunner
)

func (k ReasonKind) String() string {
	switch k {
	case Initial:
		return "initial"
	case Sequent:
		return "sequent"
	case CallToReturn:
		return "call-to-return"
	case CallToStart:
		return "call-to-start"
	case ExitToReturnSite:
		return "exit-to-return-site"
	case FromOtherRunner:
		return "from-other-runner"
	default:
		return fmt.Sprintf("reason(%d)", int(k))
	}
}

// Reason is why an edge was added. Edge is the predecessor edge (the caller edge for ExitToReturnSite), Summary is
// the summary edge applied for ExitToReturnSite and Runner is the author of a FromOtherRunner edge.
type Reason[S, F comparable] struct {
	Kind    ReasonKind
	Edge    Edge[S, F]
	Summary Edge[S, F]
	Runner  RunnerID
}

// InitialReason is the reason of seeded edges.
func InitialReason[S, F comparable]() Reason[S, F] {
	return Reason[S, F]{Kind: Initial}
}

// Finding is a fact reaching a sink. Findings are compared by value, so the same finding reported twice collapses to
// one.
type Finding[S, F comparable] struct {
	Vertex  Vertex[S, F]
	Rule    string
	Message string
}

func (f Finding[S, F]) String() string {
	return fmt.Sprintf("[%s] %s at %v", f.Rule, f.Message, f.Vertex)
}

// Status is how an analysis run terminated.
type Status int

const (
	// Quiesced means every message has been processed: the result is complete.
	Quiesced Status = iota
	// TimedOut means the wall-clock timeout fired first: the result is partial.
	TimedOut
	// Cancelled means the caller's context was done first: the result is partial.
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Quiesced:
		return "quiesced"
	case TimedOut:
		return "timed out"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Complete returns true if the run reached quiescence.
func (s Status) Complete() bool {
	return s == Quiesced
}
