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
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownRunner is returned when no analyzer is registered for a runner.
var ErrUnknownRunner = errors.New("unknown runner")

// Context wires the engine to one program: the chunk strategy and the analyzer and indirection resolver of every
// runner. Analyzers and resolvers are created on first use and shared by every chunk.
type Context[S, F, M comparable] struct {
	Strategy ChunkStrategy[S]
	Banned   []string

	newAnalyzer    func(RunnerID) (Analyzer[S, F], error)
	newIndirection func(RunnerID) (Indirection[S, F], error)

	mu           sync.Mutex
	analyzers    map[RunnerID]Analyzer[S, F]
	indirections map[RunnerID]Indirection[S, F]
}

// NewContext returns a context creating analyzers and indirection resolvers with the factories.
func NewContext[S, F, M comparable](strategy ChunkStrategy[S], banned []string,
	analyzers func(RunnerID) (Analyzer[S, F], error),
	indirections func(RunnerID) (Indirection[S, F], error)) *Context[S, F, M] {
	return &Context[S, F, M]{
		Strategy:       strategy,
		Banned:         banned,
		newAnalyzer:    analyzers,
		newIndirection: indirections,
		analyzers:      map[RunnerID]Analyzer[S, F]{},
		indirections:   map[RunnerID]Indirection[S, F]{},
	}
}

// Resolver returns the chunk resolver of the context.
func (c *Context[S, F, M]) Resolver() ChunkResolver[S, F, M] {
	return NewChunkResolver[S, F, M](c.Strategy)
}

// Analyzer returns the analyzer of runner.
func (c *Context[S, F, M]) Analyzer(runner RunnerID) (Analyzer[S, F], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.analyzers[runner]; ok {
		return a, nil
	}
	a, err := c.newAnalyzer(runner)
	if err != nil {
		return nil, fmt.Errorf("analyzer for runner %q: %w", runner, err)
	}
	c.analyzers[runner] = a
	return a, nil
}

// Indirection returns the indirection resolver of runner.
func (c *Context[S, F, M]) Indirection(runner RunnerID) (Indirection[S, F], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.indirections[runner]; ok {
		return r, nil
	}
	r, err := c.newIndirection(runner)
	if err != nil {
		return nil, fmt.Errorf("indirection resolver for runner %q: %w", runner, err)
	}
	c.indirections[runner] = r
	return r, nil
}

// Analyzers maps runners to analyzers, for contexts with a fixed set of runners.
func Analyzers[S, F comparable](analyzers map[RunnerID]Analyzer[S, F]) func(RunnerID) (Analyzer[S, F], error) {
	return func(runner RunnerID) (Analyzer[S, F], error) {
		if a, ok := analyzers[runner]; ok {
			return a, nil
		}
		return nil, ErrUnknownRunner
	}
}

// SharedIndirection uses the same resolver for every runner.
func SharedIndirection[S, F comparable](r Indirection[S, F]) func(RunnerID) (Indirection[S, F], error) {
	return func(RunnerID) (Indirection[S, F], error) {
		return r, nil
	}
}
