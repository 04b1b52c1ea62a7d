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

// ChunkStrategy maps a statement to the chunk that owns its state. A strategy must map every statement of a method
// to the same chunk: summary edges and the start edges of a method are stored in one place.
type ChunkStrategy[S comparable] func(S) ChunkID

// SingleChunk puts the whole program in one chunk.
func SingleChunk[S comparable](id ChunkID) ChunkStrategy[S] {
	return func(S) ChunkID { return id }
}

// ChunkResolver maps every message to the chunk that owns it. It is a pure function of the message, which lets every
// coordinator decide on its own whether a message is its own or must be forwarded.
type ChunkResolver[S, F, M comparable] struct {
	strategy ChunkStrategy[S]
}

// NewChunkResolver returns the resolver for strategy.
func NewChunkResolver[S, F, M comparable](strategy ChunkStrategy[S]) ChunkResolver[S, F, M] {
	return ChunkResolver[S, F, M]{strategy: strategy}
}

// ChunkOf returns the chunk owning msg. The boolean is false for messages that no chunk owns, such as the project
// coordinator's own messages.
func (r ChunkResolver[S, F, M]) ChunkOf(msg Message) (ChunkID, bool) {
	switch m := msg.(type) {
	case NewEdge[S, F]:
		return r.strategy(m.Edge.To.Statement), true
	case NewSummaryEdge[S, F]:
		return r.strategy(m.Edge.From.Statement), true
	case NewFinding[S, F]:
		return r.strategy(m.Finding.Vertex.Statement), true
	case SubscriptionOnStart[S, F]:
		return r.strategy(m.StartVertex.Statement), true
	case SubscriptionOnEnd[S, F]:
		return r.strategy(m.EndVertex.Statement), true
	case CollectData[S, F]:
		return m.Chunk, true
	case EdgeMessage[S, F]:
		return r.strategy(m.Edge.To.Statement), true
	case ResolvedCall[S, F, M]:
		return r.strategy(m.Edge.To.Statement), true
	case NotificationOnStart[S, F]:
		return r.strategy(m.SubscribingEdge.To.Statement), true
	case NotificationOnEnd[S, F]:
		return r.strategy(m.SubscribingEdge.To.Statement), true
	case UnresolvedCall[S, F]:
		return r.strategy(m.Edge.To.Statement), true
	default:
		return "", false
	}
}

// RunnerOf returns the runner owning msg.
func (r ChunkResolver[S, F, M]) RunnerOf(msg Message) RunnerID {
	return msg.Runner()
}

// Owns returns true if the unit (chunk, runner) owns msg.
func (r ChunkResolver[S, F, M]) Owns(chunk ChunkID, runner RunnerID, msg Message) bool {
	c, ok := r.ChunkOf(msg)
	return ok && c == chunk && msg.Runner() == runner
}
