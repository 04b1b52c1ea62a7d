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

package actor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/awslabs/ar-go-ifds/analysis/config"
)

// An Actor processes the messages of its mailbox, one at a time.
type Actor[T any] interface {
	// Receive handles one message. A returned error is delivered to the actor's exception handler; the actor keeps
	// processing the next messages.
	Receive(ctx *Context[T], msg T) error
}

// Starter is implemented by actors that need to run code in their own goroutine before their first message.
type Starter[T any] interface {
	PreStart(ctx *Context[T]) error
}

// ExceptionHandler is implemented by actors that handle their own failures. Without it, failures are logged.
type ExceptionHandler[T any] interface {
	OnException(ctx *Context[T], msg T, err error)
}

// Ref is a handle on an actor (or a router of actors). Send never blocks.
type Ref[T any] interface {
	Send(msg T)
	Path() string
}

// Factory builds an actor. The factory runs synchronously in Spawn, before the actor's goroutine starts, and may
// spawn the actor's children with ctx.
type Factory[T any] func(ctx *Context[T]) Actor[T]

// Parent is either a *System or a *Context of some actor.
type Parent interface {
	spawnContext() (*System, context.Context, string)
}

// Context is the view an actor has on itself and its system.
type Context[T any] struct {
	cell *cell[T]
}

// Self returns a reference to the actor.
func (c *Context[T]) Self() Ref[T] {
	return c.cell
}

// Path returns the path of the actor.
func (c *Context[T]) Path() string {
	return c.cell.path
}

// System returns the system of the actor.
func (c *Context[T]) System() *System {
	return c.cell.system
}

// Logger returns the system's logger.
func (c *Context[T]) Logger() *config.LogGroup {
	return c.cell.system.logger
}

// Context returns a context that is cancelled when the actor is stopped.
func (c *Context[T]) Context() context.Context {
	return c.cell.ctx
}

// Stop stops the actor and, transitively, all its children.
func (c *Context[T]) Stop() {
	c.cell.cancel()
}

func (c *Context[T]) spawnContext() (*System, context.Context, string) {
	return c.cell.system, c.cell.ctx, c.cell.path
}

// Spawn creates a child actor named name under parent. The child is stopped when the parent is stopped.
func Spawn[T any](parent Parent, name string, factory Factory[T]) Ref[T] {
	return spawnCell(parent, name, factory)
}

func spawnCell[T any](parent Parent, name string, factory Factory[T]) *cell[T] {
	system, parentCtx, parentPath := parent.spawnContext()
	ctx, cancel := context.WithCancel(parentCtx)
	c := &cell[T]{
		system: system,
		path:   parentPath + "/" + name,
		ctx:    ctx,
		cancel: cancel,
		signal: make(chan struct{}, 1),
	}
	c.context = &Context[T]{cell: c}
	c.actor = factory(c.context)
	if ctx.Err() != nil {
		// spawned under a stopped parent: the cell drops every message
		return c
	}
	system.wg.Add(1)
	go c.run()
	return c
}

// cell is the runtime part of an actor: its mailbox and its processing loop.
type cell[T any] struct {
	system  *System
	path    string
	ctx     context.Context
	cancel  context.CancelFunc
	actor   Actor[T]
	context *Context[T]

	mu     sync.Mutex
	queue  []T
	signal chan struct{}
	busy   atomic.Bool
}

// Send enqueues msg in the actor's mailbox. Messages sent to a stopped actor are dropped.
func (c *cell[T]) Send(msg T) {
	if c.ctx.Err() != nil {
		return
	}
	c.system.inflight.Add(1)
	c.mu.Lock()
	c.queue = append(c.queue, msg)
	c.mu.Unlock()
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

func (c *cell[T]) Path() string {
	return c.path
}

// backlog returns the number of messages waiting or being processed.
func (c *cell[T]) backlog() int {
	c.mu.Lock()
	n := len(c.queue)
	c.mu.Unlock()
	if c.busy.Load() {
		n++
	}
	return n
}

func (c *cell[T]) next() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if len(c.queue) == 0 {
		return zero, false
	}
	msg := c.queue[0]
	c.queue[0] = zero
	c.queue = c.queue[1:]
	if len(c.queue) == 0 {
		c.queue = nil
	}
	c.busy.Store(true)
	return msg, true
}

func (c *cell[T]) run() {
	defer c.system.wg.Done()
	defer c.cancel()
	if s, ok := c.actor.(Starter[T]); ok {
		if err := c.guard(func() error { return s.PreStart(c.context) }); err != nil {
			c.system.logger.Errorf("%s: failed to start: %v", c.path, err)
		}
	}
	for {
		msg, ok := c.next()
		if !ok {
			select {
			case <-c.ctx.Done():
				return
			case <-c.signal:
				continue
			}
		}
		c.process(msg)
		if c.ctx.Err() != nil {
			return
		}
	}
}

func (c *cell[T]) process(msg T) {
	defer func() {
		c.busy.Store(false)
		c.system.done()
	}()
	if c.system.halted.Load() {
		if _, ok := any(msg).(Control); !ok {
			return
		}
	}
	if err := c.guard(func() error { return c.actor.Receive(c.context, msg) }); err != nil {
		c.fail(msg, err)
	}
}

// guard runs f and converts a panic into an error.
func (c *cell[T]) guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.system.logger.Debugf("%s: panic stack:\n%s", c.path, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f()
}

func (c *cell[T]) fail(msg T, err error) {
	if h, ok := c.actor.(ExceptionHandler[T]); ok {
		if herr := c.guard(func() error { h.OnException(c.context, msg, err); return nil }); herr != nil {
			c.system.logger.Errorf("%s: exception handler failed: %v", c.path, herr)
		}
		return
	}
	c.system.logger.Warnf("%s: exception while handling %T: %v", c.path, msg, err)
}
