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
	"errors"
	"fmt"

	"github.com/awslabs/ar-go-ifds/analysis/ifds"
	"github.com/awslabs/ar-go-ifds/internal/actor"
)

var errNoAnalyzer = errors.New("no analyzer")

// worker applies the analyzer of its runner to analyzer messages. Workers are stateless.
type worker[S, F comparable] struct {
	parent   actor.Ref[ifds.Message]
	analyzer ifds.Analyzer[S, F]
}

func newWorker[S, F comparable](parent actor.Ref[ifds.Message], analyzer ifds.Analyzer[S, F]) actor.Factory[ifds.Message] {
	return func(*actor.Context[ifds.Message]) actor.Actor[ifds.Message] {
		return &worker[S, F]{parent: parent, analyzer: analyzer}
	}
}

func (w *worker[S, F]) Receive(_ *actor.Context[ifds.Message], msg ifds.Message) error {
	if w.analyzer == nil {
		return errNoAnalyzer
	}
	out, err := w.analyzer.Step(msg)
	// messages produced before a failure are still sent
	for _, m := range out {
		w.parent.Send(m)
	}
	if err != nil {
		return fmt.Errorf("step on %T: %w", msg, err)
	}
	return nil
}

// storage is the only actor that mutates the state of its unit.
type storage[S, F comparable] struct {
	parent actor.Ref[ifds.Message]
	store  *ifds.Store[S, F]
}

func newStorage[S, F comparable](parent actor.Ref[ifds.Message], runner ifds.RunnerID) actor.Factory[ifds.Message] {
	return func(*actor.Context[ifds.Message]) actor.Actor[ifds.Message] {
		return &storage[S, F]{parent: parent, store: ifds.NewStore[S, F](runner)}
	}
}

func (s *storage[S, F]) Receive(_ *actor.Context[ifds.Message], msg ifds.Message) error {
	out, err := s.store.Handle(msg)
	if err != nil {
		return err
	}
	for _, m := range out {
		s.parent.Send(m)
	}
	return nil
}

// indirectionActor resolves unresolved calls.
type indirectionActor[S, F comparable] struct {
	parent   actor.Ref[ifds.Message]
	resolver ifds.Indirection[S, F]
}

func newIndirectionActor[S, F comparable](parent actor.Ref[ifds.Message],
	resolver ifds.Indirection[S, F]) actor.Factory[ifds.Message] {
	return func(*actor.Context[ifds.Message]) actor.Actor[ifds.Message] {
		return &indirectionActor[S, F]{parent: parent, resolver: resolver}
	}
}

func (a *indirectionActor[S, F]) Receive(ctx *actor.Context[ifds.Message], msg ifds.Message) error {
	call, ok := msg.(ifds.UnresolvedCall[S, F])
	if !ok {
		return fmt.Errorf("unexpected message %T", msg)
	}
	if a.resolver == nil {
		ctx.Logger().Tracef("%s: no resolver, dropping call at %v", ctx.Path(), call.Edge.To.Statement)
		return nil
	}
	out, err := a.resolver.Resolve(call)
	if err != nil {
		return fmt.Errorf("resolving call at %v: %w", call.Edge.To.Statement, err)
	}
	for _, m := range out {
		a.parent.Send(m)
	}
	return nil
}
