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
	"fmt"
	"sync"
	"sync/atomic"
)

// KeyRouter routes every message to the child owning the message's key. Children are created on the first message
// carrying their key, and exactly one child is ever created per key.
type KeyRouter[K comparable, T any] struct {
	parent  Parent
	path    string
	key     func(T) K
	name    func(K) string
	factory func(K) Factory[T]

	children sync.Map // K -> Ref[T]
	mu       sync.Mutex
	keys     []K
}

// NewKeyRouter returns a key router spawning its children under parent. The key function extracts the key of a
// message, name returns the child name for a key, and factory returns the factory of the child for a key.
func NewKeyRouter[K comparable, T any](parent Parent, key func(T) K, name func(K) string,
	factory func(K) Factory[T]) *KeyRouter[K, T] {
	_, _, path := parent.spawnContext()
	if name == nil {
		name = func(k K) string { return fmt.Sprintf("%v", k) }
	}
	return &KeyRouter[K, T]{
		parent:  parent,
		path:    path + "/*",
		key:     key,
		name:    name,
		factory: factory,
	}
}

// Send sends msg to the child of its key, creating the child if needed.
func (r *KeyRouter[K, T]) Send(msg T) {
	r.Get(r.key(msg)).Send(msg)
}

// Path returns the path of the router.
func (r *KeyRouter[K, T]) Path() string {
	return r.path
}

// Get returns the child for key k, creating it if needed.
func (r *KeyRouter[K, T]) Get(k K) Ref[T] {
	if c, ok := r.children.Load(k); ok {
		return c.(Ref[T])
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.children.Load(k); ok {
		return c.(Ref[T])
	}
	c := Spawn[T](r.parent, r.name(k), r.factory(k))
	r.children.Store(k, c)
	r.keys = append(r.keys, k)
	return c
}

// Lookup returns the child for key k, if it has been created.
func (r *KeyRouter[K, T]) Lookup(k K) (Ref[T], bool) {
	c, ok := r.children.Load(k)
	if !ok {
		return nil, false
	}
	return c.(Ref[T]), true
}

// Keys returns the keys of the children created so far, in creation order.
func (r *KeyRouter[K, T]) Keys() []K {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]K, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// pool is a fixed set of homogeneous children.
type pool[T any] struct {
	path    string
	workers []*cell[T]
}

func newPool[T any](parent Parent, name string, size int, factory Factory[T]) pool[T] {
	if size < 1 {
		size = 1
	}
	_, _, path := parent.spawnContext()
	p := pool[T]{path: path + "/" + name}
	for i := 0; i < size; i++ {
		p.workers = append(p.workers, spawnCell(parent, fmt.Sprintf("%s-%d", name, i), factory))
	}
	return p
}

func (p *pool[T]) Path() string {
	return p.path
}

// Size returns the number of children of the pool.
func (p *pool[T]) Size() int {
	return len(p.workers)
}

// RoundRobinRouter sends each message to the next child of a fixed pool.
type RoundRobinRouter[T any] struct {
	pool[T]
	next atomic.Uint64
}

// NewRoundRobinRouter spawns size children named name-0 ... name-(size-1) under parent.
func NewRoundRobinRouter[T any](parent Parent, name string, size int, factory Factory[T]) *RoundRobinRouter[T] {
	return &RoundRobinRouter[T]{pool: newPool(parent, name, size, factory)}
}

func (r *RoundRobinRouter[T]) Send(msg T) {
	i := (r.next.Add(1) - 1) % uint64(len(r.workers))
	r.workers[i].Send(msg)
}

// FirstReadyRouter sends each message to an idle child of a fixed pool. When no child is idle, the message goes to
// the child with the smallest backlog.
type FirstReadyRouter[T any] struct {
	pool[T]
}

// NewFirstReadyRouter spawns size children named name-0 ... name-(size-1) under parent.
func NewFirstReadyRouter[T any](parent Parent, name string, size int, factory Factory[T]) *FirstReadyRouter[T] {
	return &FirstReadyRouter[T]{pool: newPool(parent, name, size, factory)}
}

func (r *FirstReadyRouter[T]) Send(msg T) {
	best := r.workers[0]
	bestLoad := -1
	for _, w := range r.workers {
		load := w.backlog()
		if load == 0 {
			w.Send(msg)
			return
		}
		if bestLoad < 0 || load < bestLoad {
			best, bestLoad = w, load
		}
	}
	best.Send(msg)
}

// NewPool returns a round-robin or first-ready router depending on strategy. Any strategy other than "first-ready"
// gives a round-robin router.
func NewPool[T any](parent Parent, name string, strategy string, size int, factory Factory[T]) Ref[T] {
	if strategy == "first-ready" {
		return NewFirstReadyRouter(parent, name, size, factory)
	}
	return NewRoundRobinRouter(parent, name, size, factory)
}
