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

// Package actor implements a small in-process actor runtime: one mailbox and one goroutine per actor, non-blocking
// sends, supervised named children, three routers (key, round-robin and first-ready) and global quiescence
// detection.
package actor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/awslabs/ar-go-ifds/analysis/config"
)

// ErrSystemClosed is returned when an operation needs a system that has already been closed.
var ErrSystemClosed = errors.New("actor system closed")

// Control marks messages that are still processed after the system has been halted. Snapshot queries are control
// messages so that partial results can be collected after a timeout.
type Control interface {
	ControlMessage()
}

// System is the root of a tree of actors. It tracks the number of messages in flight across every actor of the tree:
// a message is in flight from the moment it is sent until its receiver has finished processing it. The system is
// quiescent when no message is in flight.
type System struct {
	name   string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *config.LogGroup

	inflight atomic.Int64
	quiet    chan struct{}
	halted   atomic.Bool
	closed   atomic.Bool
}

// NewSystem returns a new actor system. The logger is shared by every actor of the system.
func NewSystem(name string, logger *config.LogGroup) *System {
	if logger == nil {
		logger = config.NewDefaultLogGroup()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &System{
		name:   name,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		quiet:  make(chan struct{}, 1),
	}
}

// Name returns the name of the system, which is the root of every actor path.
func (s *System) Name() string {
	return s.name
}

// Logger returns the logger shared by the actors of the system.
func (s *System) Logger() *config.LogGroup {
	return s.logger
}

// Context returns the context of the system, which is cancelled when the system is closed.
func (s *System) Context() context.Context {
	return s.ctx
}

// Hold marks one unit of work in flight that is not a message. Callers that send several messages from outside the
// system use Hold and Release around the sends so that the system cannot be seen quiescent in between.
func (s *System) Hold() {
	s.inflight.Add(1)
}

// Release ends a unit of work started with Hold.
func (s *System) Release() {
	s.done()
}

func (s *System) done() {
	if s.inflight.Add(-1) == 0 {
		select {
		case s.quiet <- struct{}{}:
		default:
		}
	}
}

// InFlight returns the number of messages (and holds) currently in flight.
func (s *System) InFlight() int64 {
	return s.inflight.Load()
}

// Idle returns true if no message is in flight.
func (s *System) Idle() bool {
	return s.inflight.Load() == 0
}

// Quiescent returns a channel that receives a value every time the number of messages in flight drops to zero.
// Receivers must check Idle after a receive since new messages may have been sent since the signal.
func (s *System) Quiescent() <-chan struct{} {
	return s.quiet
}

// Halt stops the processing of every message that is not a Control message. Messages sent to halted actors are
// dropped when they are dequeued.
func (s *System) Halt() {
	s.halted.Store(true)
}

// Resume undoes Halt.
func (s *System) Resume() {
	s.halted.Store(false)
}

// Halted returns true if the system has been halted.
func (s *System) Halted() bool {
	return s.halted.Load()
}

// Close cancels every actor of the system and waits for their goroutines to return.
func (s *System) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.cancel()
	s.wg.Wait()
}

// Closed returns true if Close has been called.
func (s *System) Closed() bool {
	return s.closed.Load()
}

func (s *System) spawnContext() (*System, context.Context, string) {
	return s, s.ctx, s.name
}
