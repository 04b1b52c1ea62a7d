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

// Package nullness finds the calls whose receiver may be null, in the methods reachable from the entry points.
//
// The facts are the variables that may hold null. A variable becomes null when it is assigned the "null" constant, or
// the result of a call returning a null variable. Passing a null variable as an argument makes the parameter null in
// the callee. Dereferencing a null receiver is a finding, after which the receiver is known to be non-null.
package nullness

import (
	"context"
	"fmt"

	"github.com/awslabs/ar-go-ifds/analysis/config"
	"github.com/awslabs/ar-go-ifds/analysis/ifds"
	"github.com/awslabs/ar-go-ifds/analysis/ifds/actors"
	"github.com/awslabs/ar-go-ifds/analysis/program"
	"github.com/awslabs/ar-go-ifds/analysis/taint"
	"github.com/awslabs/ar-go-ifds/internal/funcutil"
)

// RunnerID is the runner of the nullness analysis
const RunnerID ifds.RunnerID = "nullness"

// Rule is the rule of the null dereference findings
const Rule = "null-dereference"

// Null is the value of the constant assigning null to a variable
const Null = "null"

// Zero is the reachability fact
const Zero = ""

type (
	// Fact is a variable that may be null, or Zero
	Fact = string
	// Vertex is a vertex of the nullness analysis
	Vertex = ifds.Vertex[*program.Inst, Fact]
	// Finding is a null receiver
	Finding = ifds.Finding[*program.Inst, Fact]
	// Data is the computation data of the nullness analysis
	Data = ifds.ComputationData[*program.Inst, Fact]
)

type flow struct{}

func isNull(inst *program.Inst) bool {
	return inst.Op == program.Const && inst.Value == Null
}

func (flow) Sequent(current *program.Inst, next *program.Inst, fact Fact) []Fact {
	if fact == Zero {
		if isNull(current) {
			return []Fact{Zero, current.Lhs}
		}
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
		if fact == current.Lhs && !isNull(current) {
			return nil
		}
	}
	return []Fact{fact}
}

func (flow) Call(call *program.Inst, returnSite *program.Inst, fact Fact) []ifds.CallAction[Fact] {
	if fact == Zero {
		return []ifds.CallAction[Fact]{ifds.Return(Zero), ifds.Start(Zero)}
	}
	// the call fails on a null receiver, or leaves it non-null
	if fact == call.Receiver || fact == call.Lhs {
		return nil
	}
	actions := []ifds.CallAction[Fact]{ifds.Return(fact)}
	if funcutil.Contains(call.Args, fact) {
		actions = append(actions, ifds.Start(fact))
	}
	return actions
}

func (flow) CallToStart(call *program.Inst, calleeStart *program.Inst, fact Fact) []Fact {
	if fact == Zero {
		return []Fact{Zero}
	}
	params := calleeStart.Method.Params
	var facts []Fact
	for i, arg := range call.Args {
		if arg == fact && i < len(params) {
			facts = append(facts, params[i])
		}
	}
	return facts
}

func (flow) ExitToReturnSite(call *program.Inst, returnSite *program.Inst, exit *program.Inst, fact Fact) []Fact {
	if fact == Zero {
		return []Fact{Zero}
	}
	if exit.Op == program.Return && exit.Rhs == fact && call.Lhs != "" {
		return []Fact{call.Lhs}
	}
	return nil
}

// dereferences reports the calls on a receiver that may be null.
func dereferences(edge ifds.Edge[*program.Inst, Fact]) []ifds.Message {
	inst, fact := edge.To.Statement, edge.To.Fact
	if fact == Zero || inst.Op != program.Call || inst.Receiver != fact {
		return nil
	}
	finding := Finding{
		Vertex:  edge.To,
		Rule:    Rule,
		Message: fmt.Sprintf("%s may be null when calling %s", fact, inst.Callee),
	}
	return []ifds.Message{ifds.NewFinding[*program.Inst, Fact]{RunnerID: RunnerID, Finding: finding}}
}

// NewAnalyzer returns the analyzer of the nullness analysis.
func NewAnalyzer(p *program.Program) *ifds.BaseAnalyzer[*program.Inst, Fact, *program.Method] {
	return &ifds.BaseAnalyzer[*program.Inst, Fact, *program.Method]{
		Runner:    RunnerID,
		Graph:     p,
		Flow:      flow{},
		Start:     func(*program.Inst) []Fact { return []Fact{Zero} },
		OnNewEdge: dereferences,
	}
}

// NewSystem starts the engine for the nullness analysis of p.
func NewSystem(p *program.Program, cfg *config.Config,
	logger *config.LogGroup) (*actors.System[*program.Inst, Fact, *program.Method], error) {
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	strategy, err := program.Strategy(cfg)
	if err != nil {
		return nil, err
	}
	resolver := ifds.NewVirtualCallResolver[*program.Inst, Fact, *program.Method](p, p, cfg.BannedPackagePrefixes,
		logger)
	ictx := ifds.NewContext[*program.Inst, Fact, *program.Method](strategy, cfg.BannedPackagePrefixes,
		ifds.Analyzers(map[ifds.RunnerID]ifds.Analyzer[*program.Inst, Fact]{RunnerID: NewAnalyzer(p)}),
		ifds.SharedIndirection[*program.Inst, Fact](resolver))
	opts := actors.OptionsFromConfig("nullness", cfg)
	opts.Logger = logger
	return actors.NewSystem[*program.Inst, Fact, *program.Method](ictx, p, RunnerID, opts), nil
}

// Result is the result of a nullness analysis run.
type Result struct {
	Status   ifds.Status
	Findings []Finding
	Data     *Data
}

// Traces returns the paths from the null constants to the dereference of the finding.
func (r *Result) Traces(f Finding) [][]Vertex {
	return ifds.BuildTraceGraph(r.Data, f.Vertex, Zero).Traces()
}

// Run analyzes the entry methods and reports the null receivers of the reachable calls.
func Run(ctx context.Context, p *program.Program, cfg *config.Config, logger *config.LogGroup,
	entries []*program.Method) (*Result, error) {
	sys, err := NewSystem(p, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer sys.Close()
	status, err := sys.RunAnalysis(ctx, entries, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("nullness analysis: %w", err)
	}
	data, err := sys.CollectComputationData(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting nullness results: %w", err)
	}
	return &Result{Status: status, Findings: taint.SortFindings(data.FindingList()), Data: data}, nil
}
