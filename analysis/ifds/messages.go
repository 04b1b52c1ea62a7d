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
	"fmt"

	"github.com/awslabs/ar-go-ifds/internal/actor"
)

// Category determines which component of a unit coordinator handles a message.
type Category int

const (
	// StorageCategory messages are handled by the fact/summary store
	StorageCategory Category = iota
	// AnalyzerCategory messages are handled by the worker pool
	AnalyzerCategory
	// IndirectionCategory messages are handled by the indirection resolver
	IndirectionCategory
	// ProjectCategory messages are handled by the project coordinator
	ProjectCategory
)

func (c Category) String() string {
	switch c {
	case StorageCategory:
		return "storage"
	case AnalyzerCategory:
		return "analyzer"
	case IndirectionCategory:
		return "indirection"
	case ProjectCategory:
		return "project"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Message is the type of every message exchanged by the actors of the engine.
type Message interface {
	Category() Category
	// Runner returns the runner that owns the message
	Runner() RunnerID
}

// NewEdge asks the store to record an edge.
type NewEdge[S, F comparable] struct {
	RunnerID RunnerID
	Edge     Edge[S, F]
	Reason   Reason[S, F]
}

// ForOtherRunner returns a message for another runner, with the reason that the author sent it.
func ForOtherRunner[S, F comparable](runner RunnerID, author RunnerID, edge Edge[S, F]) NewEdge[S, F] {
	return NewEdge[S, F]{
		RunnerID: runner,
		Edge:     edge,
		Reason:   Reason[S, F]{Kind: FromOtherRunner, Runner: author},
	}
}

// NewSummaryEdge asks the store to record a summary edge.
type NewSummaryEdge[S, F comparable] struct {
	RunnerID RunnerID
	Edge     Edge[S, F]
}

// NewFinding asks the store to record a finding.
type NewFinding[S, F comparable] struct {
	RunnerID RunnerID
	Finding  Finding[S, F]
}

// SubscriptionOnStart asks the store owning StartVertex to notify Subscriber of every summary edge starting at
// StartVertex, past and future. SubscribingEdge is returned with every notification.
type SubscriptionOnStart[S, F comparable] struct {
	RunnerID        RunnerID
	StartVertex     Vertex[S, F]
	Subscriber      RunnerID
	SubscribingEdge Edge[S, F]
}

// SubscriptionOnEnd is SubscriptionOnStart for summary edges ending at EndVertex.
type SubscriptionOnEnd[S, F comparable] struct {
	RunnerID        RunnerID
	EndVertex       Vertex[S, F]
	Subscriber      RunnerID
	SubscribingEdge Edge[S, F]
}

// CollectData asks the store of a runner in Chunk for a snapshot of its state.
type CollectData[S, F comparable] struct {
	RunnerID RunnerID
	Chunk    ChunkID
	Reply    *actor.Future[*ComputationData[S, F]]
}

// EdgeMessage notifies the analyzer that an edge has been recorded for the first time.
type EdgeMessage[S, F comparable] struct {
	RunnerID RunnerID
	Edge     Edge[S, F]
}

// ResolvedCall notifies the analyzer of one callee of the call at Edge.To.
type ResolvedCall[S, F, M comparable] struct {
	RunnerID RunnerID
	Edge     Edge[S, F]
	Callee   M
}

// NotificationOnStart notifies the subscriber RunnerID that Author found SummaryEdge, starting at the vertex it
// subscribed to with SubscribingEdge.
type NotificationOnStart[S, F comparable] struct {
	RunnerID        RunnerID
	Author          RunnerID
	SummaryEdge     Edge[S, F]
	SubscribingEdge Edge[S, F]
}

// NotificationOnEnd is NotificationOnStart for end subscriptions.
type NotificationOnEnd[S, F comparable] struct {
	RunnerID        RunnerID
	Author          RunnerID
	SummaryEdge     Edge[S, F]
	SubscribingEdge Edge[S, F]
}

// UnresolvedCall asks the indirection resolver for the callees of the call at Edge.To.
type UnresolvedCall[S, F comparable] struct {
	RunnerID RunnerID
	Edge     Edge[S, F]
}

// NewChunk is sent by a chunk coordinator to its parent when it starts.
type NewChunk struct {
	Chunk ChunkID
}

// CollectAll asks the project coordinator for the data of RunnerID in every chunk created so far.
type CollectAll[S, F comparable] struct {
	RunnerID RunnerID
	Reply    *actor.Future[map[ChunkID]*ComputationData[S, F]]
}

func (NewEdge[S, F]) Category() Category             { return StorageCategory }
func (NewSummaryEdge[S, F]) Category() Category      { return StorageCategory }
func (NewFinding[S, F]) Category() Category          { return StorageCategory }
func (SubscriptionOnStart[S, F]) Category() Category { return StorageCategory }
func (SubscriptionOnEnd[S, F]) Category() Category   { return StorageCategory }
func (CollectData[S, F]) Category() Category         { return StorageCategory }
func (EdgeMessage[S, F]) Category() Category         { return AnalyzerCategory }
func (ResolvedCall[S, F, M]) Category() Category     { return AnalyzerCategory }
func (NotificationOnStart[S, F]) Category() Category { return AnalyzerCategory }
func (NotificationOnEnd[S, F]) Category() Category   { return AnalyzerCategory }
func (UnresolvedCall[S, F]) Category() Category      { return IndirectionCategory }
func (NewChunk) Category() Category                  { return ProjectCategory }
func (CollectAll[S, F]) Category() Category          { return ProjectCategory }

func (m NewEdge[S, F]) Runner() RunnerID             { return m.RunnerID }
func (m NewSummaryEdge[S, F]) Runner() RunnerID      { return m.RunnerID }
func (m NewFinding[S, F]) Runner() RunnerID          { return m.RunnerID }
func (m SubscriptionOnStart[S, F]) Runner() RunnerID { return m.RunnerID }
func (m SubscriptionOnEnd[S, F]) Runner() RunnerID   { return m.RunnerID }
func (m CollectData[S, F]) Runner() RunnerID         { return m.RunnerID }
func (m EdgeMessage[S, F]) Runner() RunnerID         { return m.RunnerID }
func (m ResolvedCall[S, F, M]) Runner() RunnerID     { return m.RunnerID }
func (m NotificationOnStart[S, F]) Runner() RunnerID { return m.RunnerID }
func (m NotificationOnEnd[S, F]) Runner() RunnerID   { return m.RunnerID }
func (m UnresolvedCall[S, F]) Runner() RunnerID      { return m.RunnerID }
func (NewChunk) Runner() RunnerID                    { return "" }
func (m CollectAll[S, F]) Runner() RunnerID          { return m.RunnerID }

// Snapshot queries and chunk announcements are still served after the system is halted.
func (CollectData[S, F]) ControlMessage() {}
func (CollectAll[S, F]) ControlMessage()  {}
func (NewChunk) ControlMessage()          {}
