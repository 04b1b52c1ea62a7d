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

package taint

import (
	"github.com/awslabs/ar-go-ifds/analysis/config"
	"github.com/awslabs/ar-go-ifds/analysis/ifds"
	"github.com/awslabs/ar-go-ifds/analysis/program"
	"github.com/awslabs/ar-go-ifds/internal/funcutil"
)

// Fact is a tainted local variable. The Zero fact holds everywhere the method is reachable.
type Fact = string

// Zero is the reachability fact
const Zero Fact = ""

// Flow implements the flow functions of the taint analysis. Variables are values: a callee cannot change the
// variables of its caller, so the taint of the arguments survives every call.
type Flow struct {
	prog *program.Program
	cfg  *config.Config
}

var _ ifds.FlowFunctions[*program.Inst, Fact] = (*Flow)(nil)

// NewFlow returns the taint flow functions of p with the sources, sinks and sanitizers of the config.
func NewFlow(p *program.Program, cfg *config.Config) *Flow {
	return &Flow{prog: p, cfg: cfg}
}

// CalleeID returns the code identifier of the callee of a call instruction.
func CalleeID(call *program.Inst) config.CodeIdentifier {
	pkg, typ := program.SplitClassName(call.CalleeClass())
	return config.CodeIdentifier{Package: pkg, Type: typ, Method: call.CalleeName()}
}

// MethodID returns the code identifier of a method.
func MethodID(m *program.Method) config.CodeIdentifier {
	return config.CodeIdentifier{Package: m.Class.Package(), Type: m.Class.SimpleName(), Method: m.Name}
}

// StartFacts returns the zero fact, and the parameters of methods that are sources.
func (f *Flow) StartFacts(entry *program.Inst) []Fact {
	facts := []Fact{Zero}
	if f.cfg.IsSomeSource(MethodID(entry.Method)) {
		facts = append(facts, entry.Method.Parameters()...)
	}
	return facts
}

// Sequent propagates taint through assignments and kills overwritten variables.
func (f *Flow) Sequent(current *program.Inst, next *program.Inst, fact Fact) []Fact {
	if fact == Zero {
		return []Fact{Zero}
	}
	switch current.Op {
	case program.Assign:
		if fact == current.Rhs {
			return []Fact{fact, current.Lhs}
		}
		if fact == current.Lhs {
			return nil
		}
	case program.Const:
		if fact == current.Lhs {
			return nil
		}
	}
	return []Fact{fact}
}

// Call taints the result of sources, cleans the result of sanitizers and passes the tainted arguments to the
// callees. Calls to methods outside the program propagate the taint of their arguments to their result.
func (f *Flow) Call(call *program.Inst, returnSite *program.Inst, fact Fact) []ifds.CallAction[Fact] {
	cid := CalleeID(call)
	isSanitizer := f.cfg.IsSomeSanitizer(cid)
	if fact == Zero {
		actions := []ifds.CallAction[Fact]{ifds.Return(Zero)}
		if !isSanitizer {
			actions = append(actions, ifds.Start(Zero))
		}
		if call.Lhs != "" && f.cfg.IsSomeSource(cid) {
			actions = append(actions, ifds.Return(call.Lhs))
		}
		return actions
	}
	var actions []ifds.CallAction[Fact]
	used := funcutil.Contains(call.Uses(), fact)
	if fact != call.Lhs {
		actions = append(actions, ifds.Return(fact))
	}
	if !used || isSanitizer {
		return actions
	}
	site, _ := f.prog.CallSite(call)
	if len(site.Callees) == 0 {
		if call.Lhs != "" {
			actions = append(actions, ifds.Return(call.Lhs))
		}
		return actions
	}
	return append(actions, ifds.Start(fact))
}

// CallToStart maps actual arguments to the formal parameters of the callee.
func (f *Flow) CallToStart(call *program.Inst, calleeStart *program.Inst, fact Fact) []Fact {
	if fact == Zero {
		return []Fact{Zero}
	}
	callee := calleeStart.Method
	var facts []Fact
	if call.Receiver == fact && !callee.Static {
		facts = append(facts, program.This)
	}
	for i, arg := range call.Args {
		if arg == fact && i < len(callee.Params) {
			facts = append(facts, callee.Params[i])
		}
	}
	return facts
}

// ExitToReturnSite maps a tainted returned variable to the result of the call.
func (f *Flow) ExitToReturnSite(call *program.Inst, returnSite *program.Inst, exit *program.Inst, fact Fact) []Fact {
	if fact == Zero {
		return []Fact{Zero}
	}
	if exit.Op == program.Return && exit.Rhs != "" && exit.Rhs == fact && call.Lhs != "" {
		return []Fact{call.Lhs}
	}
	return nil
}
