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

package program

import (
	"github.com/awslabs/ar-go-ifds/analysis/ifds"
)

// A Program is the application graph, the call graph and the hierarchy of the engine.
var (
	_ ifds.ApplicationGraph[*Inst, *Method] = (*Program)(nil)
	_ ifds.CallGraph[*Inst, *Method]        = (*Program)(nil)
	_ ifds.Hierarchy[*Method]               = (*Program)(nil)
)

// MethodOf returns the method containing s.
func (p *Program) MethodOf(s *Inst) *Method {
	return s.Method
}

// Successors returns the intra-procedural successors of s.
func (p *Program) Successors(s *Inst) []*Inst {
	body := s.Method.Body
	var next []*Inst
	switch s.Op {
	case Return:
	case Goto:
		for _, t := range s.Targets {
			next = append(next, body[t])
		}
	case If:
		next = append(next, body[s.Index+1])
		for _, t := range s.Targets {
			if t != s.Index+1 {
				next = append(next, body[t])
			}
		}
	default:
		next = append(next, body[s.Index+1])
	}
	return next
}

// EntryPoints returns the first instruction of m. Abstract methods have no entry point.
func (p *Program) EntryPoints(m *Method) []*Inst {
	if len(m.Body) == 0 {
		return nil
	}
	return m.Body[:1]
}

// ExitPoints returns the return instructions of m.
func (p *Program) ExitPoints(m *Method) []*Inst {
	var exits []*Inst
	for _, inst := range m.Body {
		if inst.Op == Return {
			exits = append(exits, inst)
		}
	}
	return exits
}

// IsCall returns true if s is a call, whether or not its callee is defined in the program.
func (p *Program) IsCall(s *Inst) bool {
	return s.Op == Call
}

// CallSite returns the declared callee of the call at s. The declared callee is looked up from the class named in the
// call up to its super classes. A call to a method that is not in the program has no callee.
func (p *Program) CallSite(s *Inst) (ifds.CallSite[*Method], bool) {
	if s.Op != Call {
		return ifds.CallSite[*Method]{}, false
	}
	site := ifds.CallSite[*Method]{Virtual: s.Virtual, ReceiverType: s.ReceiverType}
	if m, ok := p.LookupMethod(s.CalleeClass(), s.CalleeName()); ok {
		site.Callees = []*Method{m}
	}
	return site, true
}

// FindOverrides returns the methods with the same name and arity as m declared in the subtypes of its class.
func (p *Program) FindOverrides(m *Method) []*Method {
	var overrides []*Method
	for _, sub := range p.hierarchy.Subtypes(m.Class.Name) {
		c, ok := p.classes[sub]
		if !ok {
			continue
		}
		if o, found := c.byName[m.Name]; found && len(o.Params) == len(m.Params) {
			overrides = append(overrides, o)
		}
	}
	return overrides
}

// DeclaringType returns the name of the class of m.
func (p *Program) DeclaringType(m *Method) string {
	return m.Class.Name
}

// IsSubtype returns true if the class sub is super or one of its subtypes.
func (p *Program) IsSubtype(sub string, super string) bool {
	return p.hierarchy.IsSubtype(sub, super)
}
