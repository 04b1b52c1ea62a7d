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

// Package actors runs the IFDS engine as a hierarchy of actors:
//
//	project manager -> chunk managers (one per chunk) -> runner managers (one per runner in the chunk)
//
// where every runner manager owns a worker pool, a store and an indirection resolver. Every coordinator uses the
// same chunk resolver to decide whether a message is its own or must be forwarded to its parent.
//
// System is the entry point: it seeds the start edges, waits for quiescence or a timeout and collects the results.
package actors

import (
	"context"
	"fmt"
	"time"

	"github.com/awslabs/ar-go-ifds/analysis/config"
	"github.com/awslabs/ar-go-ifds/analysis/ifds"
	"github.com/awslabs/ar-go-ifds/internal/actor"
	"github.com/awslabs/ar-go-ifds/internal/funcutil"
)

// Options of a System.
type Options struct {
	// Name is the name of the actor system, the root of every actor path
	Name string
	// Timeout is the default timeout of RunAnalysis. Zero means no timeout.
	Timeout time.Duration
	// WorkerPoolSize is the number of workers of every runner manager
	WorkerPoolSize int
	// WorkerPoolStrategy is config.RoundRobinStrategy or config.FirstReadyStrategy
	WorkerPoolStrategy string
	// Logger is shared by every actor. A default logger is used when nil.
	Logger *config.LogGroup
}

// OptionsFromConfig returns the options set in the config.
func OptionsFromConfig(name string, cfg *config.Config) Options {
	return Options{
		Name:               name,
		Timeout:            cfg.Timeout,
		WorkerPoolSize:     cfg.WorkerPoolSize,
		WorkerPoolStrategy: cfg.WorkerPoolStrategy,
		Logger:             config.NewLogGroup(cfg),
	}
}

// System is the facade of the engine for one program. The runner given to NewSystem is the default runner of the
// methods that do not take one.
type System[S, F, M comparable] struct {
	actors *actor.System
	root   actor.Ref[ifds.Message]
	ictx   *ifds.Context[S, F, M]
	graph  ifds.ApplicationGraph[S, M]
	runner ifds.RunnerID
	opts   Options
	logger *config.LogGroup
}

// NewSystem starts the actor hierarchy of the engine.
func NewSystem[S, F, M comparable](ictx *ifds.Context[S, F, M], graph ifds.ApplicationGraph[S, M],
	runner ifds.RunnerID, opts Options) *System[S, F, M] {
	if opts.Name == "" {
		opts.Name = "ifds"
	}
	if opts.WorkerPoolSize <= 0 {
		opts.WorkerPoolSize = config.DefaultWorkerPoolSize
	}
	if opts.WorkerPoolStrategy == "" {
		opts.WorkerPoolStrategy = config.RoundRobinStrategy
	}
	if opts.Logger == nil {
		opts.Logger = config.NewDefaultLogGroup()
	}
	as := actor.NewSystem(opts.Name, opts.Logger)
	return &System[S, F, M]{
		actors: as,
		root:   actor.Spawn[ifds.Message](as, "project", newProjectManager(ictx, opts)),
		ictx:   ictx,
		graph:  graph,
		runner: runner,
		opts:   opts,
		logger: opts.Logger,
	}
}

// Runner returns the default runner of the system.
func (s *System[S, F, M]) Runner() ifds.RunnerID {
	return s.runner
}

// Logger returns the logger of the system.
func (s *System[S, F, M]) Logger() *config.LogGroup {
	return s.logger
}

// Send sends a message to the root of the hierarchy. It is how other runners' results or custom seeds enter the
// system.
func (s *System[S, F, M]) Send(msg ifds.Message) error {
	if s.actors.Closed() {
		return actor.ErrSystemClosed
	}
	s.root.Send(msg)
	return nil
}

// StartAnalysis seeds the start edges of the default runner in method.
func (s *System[S, F, M]) StartAnalysis(method M) error {
	return s.StartAnalysisFor(s.runner, method)
}

// StartAnalysisFor seeds one start edge for every start fact at every entry point of method.
func (s *System[S, F, M]) StartAnalysisFor(runner ifds.RunnerID, method M) error {
	if s.actors.Closed() {
		return actor.ErrSystemClosed
	}
	analyzer, err := s.ictx.Analyzer(runner)
	if err != nil {
		return err
	}
	s.actors.Hold()
	defer s.actors.Release()
	n := 0
	for _, entry := range s.graph.EntryPoints(method) {
		for _, fact := range analyzer.StartFacts(entry) {
			v := ifds.Vertex[S, F]{Statement: entry, Fact: fact}
			s.root.Send(ifds.NewEdge[S, F]{RunnerID: runner, Edge: ifds.Loop(v), Reason: ifds.InitialReason[S, F]()})
			n++
		}
	}
	s.logger.Debugf("%s: seeded %d start edges of %s in %v", s.opts.Name, n, runner, method)
	return nil
}

// AwaitAnalysis waits until no message is in flight, the timeout expires or ctx is done. A timeout of zero waits
// without limit. When the run is cut off, the system is halted: dataflow messages are dropped from then on, and the
// partial results can still be collected.
func (s *System[S, F, M]) AwaitAnalysis(ctx context.Context, timeout time.Duration) (ifds.Status, error) {
	if s.actors.Closed() {
		return ifds.Cancelled, actor.ErrSystemClosed
	}
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	start := time.Now()
	for !s.actors.Idle() {
		select {
		case <-s.actors.Quiescent():
		case <-expired:
			s.logger.Infof("%s: timeout after %s, stopping the analysis with %d messages in flight",
				s.opts.Name, timeout, s.actors.InFlight())
			s.actors.Halt()
			return ifds.TimedOut, nil
		case <-ctx.Done():
			s.actors.Halt()
			return ifds.Cancelled, ctx.Err()
		}
	}
	s.logger.Debugf("%s: quiescent after %s", s.opts.Name, time.Since(start))
	return ifds.Quiesced, nil
}

// Resume lets a halted system process dataflow messages again. Messages dropped while halted are lost.
func (s *System[S, F, M]) Resume() {
	s.actors.Resume()
}

// RunAnalysis starts the default runner in every method and waits for the analysis with the timeout.
func (s *System[S, F, M]) RunAnalysis(ctx context.Context, methods []M, timeout time.Duration) (ifds.Status, error) {
	for _, m := range methods {
		if err := s.StartAnalysis(m); err != nil {
			return ifds.Cancelled, fmt.Errorf("starting analysis of %v: %w", m, err)
		}
	}
	return s.AwaitAnalysis(ctx, timeout)
}

// CollectComputationData returns the data of the default runner, merged across chunks.
func (s *System[S, F, M]) CollectComputationData(ctx context.Context) (*ifds.ComputationData[S, F], error) {
	return s.CollectComputationDataFor(ctx, s.runner)
}

// CollectComputationDataFor returns the data of runner, merged across chunks.
func (s *System[S, F, M]) CollectComputationDataFor(ctx context.Context,
	runner ifds.RunnerID) (*ifds.ComputationData[S, F], error) {
	byChunk, err := s.CollectByChunk(ctx, runner)
	if err != nil {
		return nil, err
	}
	chunks := funcutil.SetToOrderedSlice(funcutil.KeySet(byChunk))
	return ifds.MergeData(funcutil.Map(chunks, func(c ifds.ChunkID) *ifds.ComputationData[S, F] {
		return byChunk[c]
	})...), nil
}

// CollectByChunk returns the data of runner in every chunk.
func (s *System[S, F, M]) CollectByChunk(ctx context.Context,
	runner ifds.RunnerID) (map[ifds.ChunkID]*ifds.ComputationData[S, F], error) {
	if s.actors.Closed() {
		return nil, actor.ErrSystemClosed
	}
	reply := actor.NewFuture[map[ifds.ChunkID]*ifds.ComputationData[S, F]]()
	s.root.Send(ifds.CollectAll[S, F]{RunnerID: runner, Reply: reply})
	return reply.Get(ctx)
}

// CollectFindings returns the findings of the default runner.
func (s *System[S, F, M]) CollectFindings(ctx context.Context) ([]ifds.Finding[S, F], error) {
	data, err := s.CollectComputationData(ctx)
	if err != nil {
		return nil, err
	}
	return data.FindingList(), nil
}

// Close stops every actor of the system.
func (s *System[S, F, M]) Close() {
	s.actors.Close()
}

// StartAnalysisAsync is StartAnalysis in a new goroutine.
func (s *System[S, F, M]) StartAnalysisAsync(method M) *actor.Future[struct{}] {
	return actor.Async(func() (struct{}, error) {
		return struct{}{}, s.StartAnalysis(method)
	})
}

// AwaitAnalysisAsync is AwaitAnalysis in a new goroutine. Closing the system cancels the wait.
func (s *System[S, F, M]) AwaitAnalysisAsync(timeout time.Duration) *actor.Future[ifds.Status] {
	return actor.Async(func() (ifds.Status, error) {
		return s.AwaitAnalysis(s.actors.Context(), timeout)
	})
}

// RunAnalysisAsync is RunAnalysis in a new goroutine. Closing the system cancels the run.
func (s *System[S, F, M]) RunAnalysisAsync(methods []M, timeout time.Duration) *actor.Future[ifds.Status] {
	return actor.Async(func() (ifds.Status, error) {
		return s.RunAnalysis(s.actors.Context(), methods, timeout)
	})
}

// CollectFindingsAsync is CollectFindings in a new goroutine.
func (s *System[S, F, M]) CollectFindingsAsync() *actor.Future[[]ifds.Finding[S, F]] {
	return actor.Async(func() ([]ifds.Finding[S, F], error) {
		return s.CollectFindings(s.actors.Context())
	})
}

// CollectComputationDataAsync is CollectComputationData in a new goroutine.
func (s *System[S, F, M]) CollectComputationDataAsync() *actor.Future[*ifds.ComputationData[S, F]] {
	return actor.Async(func() (*ifds.ComputationData[S, F], error) {
		return s.CollectComputationData(s.actors.Context())
	})
}
