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
	"strings"
	"sync"

	"github.com/awslabs/ar-go-ifds/analysis/config"
)

// CallSite describes the callees of a call statement as written in the program.
type CallSite[M comparable] struct {
	// Callees are the declared callees, usually one
	Callees []M
	// Virtual is true if the call is dispatched on the dynamic type of its receiver
	Virtual bool
	// ReceiverType is the static type of the receiver of a virtual call
	ReceiverType string
}

// CallGraph returns the call site at a statement. The boolean is false if s is not a call.
type CallGraph[S, M comparable] interface {
	CallSite(s S) (CallSite[M], bool)
}

// Hierarchy answers type hierarchy queries.
type Hierarchy[M comparable] interface {
	// FindOverrides returns the methods overriding m in the subtypes of its declaring type, transitively
	FindOverrides(m M) []M
	// DeclaringType returns the name of the type declaring m
	DeclaringType(m M) string
	// IsSubtype returns true if sub is super or a subtype of super
	IsSubtype(sub string, super string) bool
}

// Indirection resolves the callees of unresolved calls.
type Indirection[S, F comparable] interface {
	Resolve(call UnresolvedCall[S, F]) ([]Message, error)
}

// VirtualCallResolver resolves calls with a call graph and a hierarchy. The overrides of every declared callee are
// computed once. A resolver is safe for concurrent use.
type VirtualCallResolver[S, F, M comparable] struct {
	calls     CallGraph[S, M]
	hierarchy Hierarchy[M]
	banned    []string
	logger    *config.LogGroup

	mu        sync.Mutex
	overrides map[M][]M
}

// NewVirtualCallResolver returns a resolver ignoring every method whose declaring type starts with one of the banned
// prefixes.
func NewVirtualCallResolver[S, F, M comparable](calls CallGraph[S, M], hierarchy Hierarchy[M], banned []string,
	logger *config.LogGroup) *VirtualCallResolver[S, F, M] {
	if logger == nil {
		logger = config.NewDefaultLogGroup()
	}
	return &VirtualCallResolver[S, F, M]{
		calls:     calls,
		hierarchy: hierarchy,
		banned:    banned,
		logger:    logger,
		overrides: map[M][]M{},
	}
}

// Resolve returns one ResolvedCall per callee of the call. A call without any callee resolves to no message.
func (r *VirtualCallResolver[S, F, M]) Resolve(call UnresolvedCall[S, F]) ([]Message, error) {
	site, ok := r.calls.CallSite(call.Edge.To.Statement)
	if !ok {
		r.logger.Tracef("no call site at %v", call.Edge.To.Statement)
		return nil, nil
	}
	var out []Message
	for _, callee := range r.Callees(site) {
		out = append(out, ResolvedCall[S, F, M]{RunnerID: call.RunnerID, Edge: call.Edge, Callee: callee})
	}
	if len(out) == 0 {
		r.logger.Tracef("no callee for call at %v", call.Edge.To.Statement)
	}
	return out, nil
}

// Callees returns the declared callees of site that are not banned and, for virtual calls, the overrides that are
// compatible with the receiver type. An override is compatible if its declaring type is a subtype of the receiver
// type, or if the receiver type is a subtype of its declaring type.
func (r *VirtualCallResolver[S, F, M]) Callees(site CallSite[M]) []M {
	var callees []M
	seen := map[M]bool{}
	add := func(m M) {
		if !seen[m] {
			seen[m] = true
			callees = append(callees, m)
		}
	}
	for _, declared := range site.Callees {
		if r.isBanned(declared) {
			continue
		}
		add(declared)
		if !site.Virtual {
			continue
		}
		for _, override := range r.overridesOf(declared) {
			if r.isBanned(override) {
				continue
			}
			t := r.hierarchy.DeclaringType(override)
			if r.hierarchy.IsSubtype(t, site.ReceiverType) || r.hierarchy.IsSubtype(site.ReceiverType, t) {
				add(override)
			}
		}
	}
	return callees
}

func (r *VirtualCallResolver[S, F, M]) overridesOf(m M) []M {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.overrides[m]; ok {
		return o
	}
	o := r.hierarchy.FindOverrides(m)
	r.overrides[m] = o
	return o
}

func (r *VirtualCallResolver[S, F, M]) isBanned(m M) bool {
	return IsBanned(r.banned, r.hierarchy.DeclaringType(m))
}

// IsBanned returns true if typeName starts with one of the prefixes.
func IsBanned(prefixes []string, typeName string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(typeName, p) {
			return true
		}
	}
	return false
}
