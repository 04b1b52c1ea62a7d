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

package actors

import (
	"fmt"
	"sync"

	"github.com/awslabs/ar-go-ifds/analysis/ifds"
	"github.com/awslabs/ar-go-ifds/internal/actor"
	"golang.org/x/sync/errgroup"
)

// projectManager is the root of the hierarchy. It owns one chunkManager per chunk and answers CollectAll queries.
type projectManager[S, F, M comparable] struct {
	resolver ifds.ChunkResolver[S, F, M]
	chunks   *actor.KeyRouter[ifds.ChunkID, ifds.Message]
	known    []ifds.ChunkID
	isKnown  map[ifds.ChunkID]bool
}

func newProjectManager[S, F, M comparable](ictx *ifds.Context[S, F, M], opts Options) actor.Factory[ifds.Message] {
	return func(ctx *actor.Context[ifds.Message]) actor.Actor[ifds.Message] {
		p := &projectManager[S, F, M]{
			resolver: ictx.Resolver(),
			isKnown:  map[ifds.ChunkID]bool{},
		}
		self := ctx.Self()
		p.chunks = actor.NewKeyRouter[ifds.ChunkID, ifds.Message](ctx,
			func(msg ifds.Message) ifds.ChunkID {
				c, _ := p.resolver.ChunkOf(msg)
				return c
			},
			func(c ifds.ChunkID) string { return "chunk:" + string(c) },
			func(c ifds.ChunkID) actor.Factory[ifds.Message] {
				return newChunkManager(c, self, ictx, opts)
			})
		return p
	}
}

func (p *projectManager[S, F, M]) Receive(ctx *actor.Context[ifds.Message], msg ifds.Message) error {
	switch m := msg.(type) {
	case ifds.NewChunk:
		if !p.isKnown[m.Chunk] {
			p.isKnown[m.Chunk] = true
			p.known = append(p.known, m.Chunk)
			ctx.Logger().Debugf("%s: new chunk %s", ctx.Path(), m.Chunk)
		}
		return nil
	case ifds.CollectAll[S, F]:
		p.collectAll(ctx, m)
		return nil
	}
	chunk, ok := p.resolver.ChunkOf(msg)
	if !ok {
		ctx.Logger().Warnf("%s: dropping %T, no chunk owns it", ctx.Path(), msg)
		return nil
	}
	ctx.Logger().Tracef("%s: %T -> chunk %s", ctx.Path(), msg, chunk)
	p.chunks.Get(chunk).Send(msg)
	return nil
}

// collectAll scatters one CollectData per chunk known at call time and gathers the replies in a goroutine, so that
// the project manager keeps processing messages while chunks answer.
func (p *projectManager[S, F, M]) collectAll(ctx *actor.Context[ifds.Message], m ifds.CollectAll[S, F]) {
	chunks := make([]ifds.ChunkID, len(p.known))
	copy(chunks, p.known)
	replies := make([]*actor.Future[*ifds.ComputationData[S, F]], len(chunks))
	for i, chunk := range chunks {
		replies[i] = actor.NewFuture[*ifds.ComputationData[S, F]]()
		p.chunks.Get(chunk).Send(ifds.CollectData[S, F]{RunnerID: m.RunnerID, Chunk: chunk, Reply: replies[i]})
	}
	ctx.Logger().Debugf("%s: collecting data of %s in %d chunks", ctx.Path(), m.RunnerID, len(chunks))
	go func() {
		var mu sync.Mutex
		result := make(map[ifds.ChunkID]*ifds.ComputationData[S, F], len(chunks))
		g, gctx := errgroup.WithContext(ctx.Context())
		for i := range chunks {
			i := i
			g.Go(func() error {
				data, err := replies[i].Get(gctx)
				if err != nil {
					return fmt.Errorf("collecting chunk %s: %w", chunks[i], err)
				}
				mu.Lock()
				result[chunks[i]] = data
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			m.Reply.Complete(nil, err)
			return
		}
		m.Reply.Complete(result, nil)
	}()
}

// chunkManager owns the runnerManagers of one chunk.
type chunkManager[S, F, M comparable] struct {
	id       ifds.ChunkID
	parent   actor.Ref[ifds.Message]
	resolver ifds.ChunkResolver[S, F, M]
	runners  *actor.KeyRouter[ifds.RunnerID, ifds.Message]
}

func newChunkManager[S, F, M comparable](id ifds.ChunkID, parent actor.Ref[ifds.Message], ictx *ifds.Context[S, F, M],
	opts Options) actor.Factory[ifds.Message] {
	return func(ctx *actor.Context[ifds.Message]) actor.Actor[ifds.Message] {
		c := &chunkManager[S, F, M]{id: id, parent: parent, resolver: ictx.Resolver()}
		self := ctx.Self()
		c.runners = actor.NewKeyRouter[ifds.RunnerID, ifds.Message](ctx,
			ifds.Message.Runner,
			func(r ifds.RunnerID) string { return "runner:" + string(r) },
			func(r ifds.RunnerID) actor.Factory[ifds.Message] {
				return newRunnerManager(id, r, self, ictx, opts)
			})
		return c
	}
}

func (c *chunkManager[S, F, M]) PreStart(*actor.Context[ifds.Message]) error {
	c.parent.Send(ifds.NewChunk{Chunk: c.id})
	return nil
}

func (c *chunkManager[S, F, M]) Receive(ctx *actor.Context[ifds.Message], msg ifds.Message) error {
	if chunk, ok := c.resolver.ChunkOf(msg); ok && chunk == c.id {
		// a runner that never ran in this chunk has no data
		if m, isCollect := msg.(ifds.CollectData[S, F]); isCollect {
			if _, exists := c.runners.Lookup(m.RunnerID); !exists {
				m.Reply.Complete(ifds.NewComputationData[S, F](), nil)
				return nil
			}
		}
		ctx.Logger().Tracef("%s: %T -> runner %s", ctx.Path(), msg, msg.Runner())
		c.runners.Send(msg)
		return nil
	}
	c.parent.Send(msg)
	return nil
}

// runnerManager owns the worker pool, the store and the indirection resolver of one runner in one chunk.
type runnerManager[S, F, M comparable] struct {
	chunk       ifds.ChunkID
	runner      ifds.RunnerID
	parent      actor.Ref[ifds.Message]
	resolver    ifds.ChunkResolver[S, F, M]
	workers     actor.Ref[ifds.Message]
	storage     actor.Ref[ifds.Message]
	indirection actor.Ref[ifds.Message]
}

func newRunnerManager[S, F, M comparable](chunk ifds.ChunkID, runner ifds.RunnerID, parent actor.Ref[ifds.Message],
	ictx *ifds.Context[S, F, M], opts Options) actor.Factory[ifds.Message] {
	return func(ctx *actor.Context[ifds.Message]) actor.Actor[ifds.Message] {
		r := &runnerManager[S, F, M]{chunk: chunk, runner: runner, parent: parent, resolver: ictx.Resolver()}
		self := ctx.Self()
		analyzer, err := ictx.Analyzer(runner)
		if err != nil {
			ctx.Logger().Errorf("%s: %v", ctx.Path(), err)
		}
		indirection, err := ictx.Indirection(runner)
		if err != nil {
			ctx.Logger().Errorf("%s: %v", ctx.Path(), err)
		}
		r.workers = actor.NewPool[ifds.Message](ctx, "worker", opts.WorkerPoolStrategy, opts.WorkerPoolSize,
			newWorker(self, analyzer))
		r.storage = actor.Spawn[ifds.Message](ctx, "storage", newStorage[S, F](self, runner))
		r.indirection = actor.Spawn[ifds.Message](ctx, "indirection", newIndirectionActor[S, F](self, indirection))
		return r
	}
}

func (r *runnerManager[S, F, M]) Receive(ctx *actor.Context[ifds.Message], msg ifds.Message) error {
	if !r.resolver.Owns(r.chunk, r.runner, msg) {
		ctx.Logger().Tracef("%s: %T -> parent", ctx.Path(), msg)
		r.parent.Send(msg)
		return nil
	}
	switch msg.Category() {
	case ifds.StorageCategory:
		r.storage.Send(msg)
	case ifds.AnalyzerCategory:
		r.workers.Send(msg)
	case ifds.IndirectionCategory:
		r.indirection.Send(msg)
	default:
		r.parent.Send(msg)
	}
	return nil
}
