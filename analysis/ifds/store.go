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

	"github.com/awslabs/ar-go-ifds/internal/funcutil"
)

type subscription[S, F comparable] struct {
	subscriber RunnerID
	edge       Edge[S, F]
}

// Store is the dataflow state of one runner in one chunk. A Store is not safe for concurrent use: it is owned by a
// single actor, which is the only writer of the state.
type Store[S, F comparable] struct {
	runner RunnerID

	reasons map[Edge[S, F]]map[Reason[S, F]]struct{}

	summaries        map[Edge[S, F]]struct{}
	summariesByStart map[Vertex[S, F]]map[Edge[S, F]]struct{}
	summariesByEnd   map[Vertex[S, F]]map[Edge[S, F]]struct{}

	startSubscribers map[Vertex[S, F]]map[subscription[S, F]]struct{}
	endSubscribers   map[Vertex[S, F]]map[subscription[S, F]]struct{}

	findings map[Finding[S, F]]struct{}
}

// NewStore returns an empty store for runner.
func NewStore[S, F comparable](runner RunnerID) *Store[S, F] {
	return &Store[S, F]{
		runner:           runner,
		reasons:          map[Edge[S, F]]map[Reason[S, F]]struct{}{},
		summaries:        map[Edge[S, F]]struct{}{},
		summariesByStart: map[Vertex[S, F]]map[Edge[S, F]]struct{}{},
		summariesByEnd:   map[Vertex[S, F]]map[Edge[S, F]]struct{}{},
		startSubscribers: map[Vertex[S, F]]map[subscription[S, F]]struct{}{},
		endSubscribers:   map[Vertex[S, F]]map[subscription[S, F]]struct{}{},
		findings:         map[Finding[S, F]]struct{}{},
	}
}

// Handle applies a storage message to the store and returns the messages the store emits in response.
// CollectData requests are answered by completing their reply future with a snapshot.
func (s *Store[S, F]) Handle(msg Message) ([]Message, error) {
	switch m := msg.(type) {
	case NewEdge[S, F]:
		return s.addEdge(m.Edge, m.Reason), nil
	case NewSummaryEdge[S, F]:
		return s.addSummary(m.Edge), nil
	case SubscriptionOnStart[S, F]:
		return s.subscribe(s.startSubscribers, s.summariesByStart, m.StartVertex,
			subscription[S, F]{subscriber: m.Subscriber, edge: m.SubscribingEdge}, s.notifyOnStart), nil
	case SubscriptionOnEnd[S, F]:
		return s.subscribe(s.endSubscribers, s.summariesByEnd, m.EndVertex,
			subscription[S, F]{subscriber: m.Subscriber, edge: m.SubscribingEdge}, s.notifyOnEnd), nil
	case NewFinding[S, F]:
		s.findings[m.Finding] = struct{}{}
		return nil, nil
	case CollectData[S, F]:
		if m.Reply != nil {
			m.Reply.Complete(s.Snapshot(), nil)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("store %s: unexpected message %T", s.runner, msg)
	}
}

// addEdge records reason for edge. The edge is announced only the first time it is seen, which bounds the work of
// the solver on a finite domain.
func (s *Store[S, F]) addEdge(edge Edge[S, F], reason Reason[S, F]) []Message {
	_, seen := s.reasons[edge]
	funcutil.AddToSetMap(s.reasons, edge, reason)
	if seen {
		return nil
	}
	return []Message{EdgeMessage[S, F]{RunnerID: s.runner, Edge: edge}}
}

func (s *Store[S, F]) addSummary(edge Edge[S, F]) []Message {
	if _, seen := s.summaries[edge]; seen {
		return nil
	}
	s.summaries[edge] = struct{}{}
	funcutil.AddToSetMap(s.summariesByStart, edge.From, edge)
	funcutil.AddToSetMap(s.summariesByEnd, edge.To, edge)
	var out []Message
	for sub := range s.startSubscribers[edge.From] {
		out = append(out, s.notifyOnStart(sub, edge))
	}
	for sub := range s.endSubscribers[edge.To] {
		out = append(out, s.notifyOnEnd(sub, edge))
	}
	return out
}

// subscribe replays the summaries already indexed at v before saving the subscription, so that a summary is
// notified exactly once whether it is found before or after the subscription.
func (s *Store[S, F]) subscribe(subscribers map[Vertex[S, F]]map[subscription[S, F]]struct{},
	index map[Vertex[S, F]]map[Edge[S, F]]struct{}, v Vertex[S, F], sub subscription[S, F],
	notify func(subscription[S, F], Edge[S, F]) Message) []Message {
	if !funcutil.AddToSetMap(subscribers, v, sub) {
		return nil
	}
	var out []Message
	for summary := range index[v] {
		out = append(out, notify(sub, summary))
	}
	return out
}

func (s *Store[S, F]) notifyOnStart(sub subscription[S, F], summary Edge[S, F]) Message {
	return NotificationOnStart[S, F]{
		RunnerID:        sub.subscriber,
		Author:          s.runner,
		SummaryEdge:     summary,
		SubscribingEdge: sub.edge,
	}
}

func (s *Store[S, F]) notifyOnEnd(sub subscription[S, F], summary Edge[S, F]) Message {
	return NotificationOnEnd[S, F]{
		RunnerID:        sub.subscriber,
		Author:          s.runner,
		SummaryEdge:     summary,
		SubscribingEdge: sub.edge,
	}
}

// Snapshot returns a copy of the state of the store.
func (s *Store[S, F]) Snapshot() *ComputationData[S, F] {
	data := NewComputationData[S, F]()
	facts := map[S]map[F]struct{}{}
	for edge, reasons := range s.reasons {
		data.EdgesByEnd[edge.To] = append(data.EdgesByEnd[edge.To], edge)
		funcutil.AddToSetMap(facts, edge.To.Statement, edge.To.Fact)
		data.Reasons[edge] = funcutil.SetToSlice(reasons)
	}
	for stmt, fs := range facts {
		data.FactsByStatement[stmt] = funcutil.SetToSlice(fs)
	}
	for f := range s.findings {
		data.Findings[f] = struct{}{}
	}
	for e := range s.summaries {
		data.SummaryEdges[e] = struct{}{}
	}
	return data
}

// NumEdges returns the number of distinct edges recorded.
func (s *Store[S, F]) NumEdges() int {
	return len(s.reasons)
}
