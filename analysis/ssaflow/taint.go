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

package ssaflow

import (
	"context"
	"fmt"
	"go/token"
	"sort"

	"github.com/awslabs/ar-go-ifds/analysis/config"
	"github.com/awslabs/ar-go-ifds/analysis/ifds"
	"github.com/awslabs/ar-go-ifds/analysis/ifds/actors"
	"github.com/awslabs/ar-go-ifds/internal/funcutil"
	"golang.org/x/tools/go/ssa"
)

// RunnerID is the runner of the taint analysis of Go programs
const RunnerID ifds.RunnerID = "go-taint"

// Rule is the rule of the findings of the taint analysis of Go programs
const Rule = "go-taint"

type (
	// Vertex is a vertex of the taint analysis: the fact is a tainted value, or nil for the zero fact
	Vertex = ifds.Vertex[ssa.Instruction, ssa.Value]
	// Finding is a tainted value passed to a sink
	Finding = ifds.Finding[ssa.Instruction, ssa.Value]
	// Data is the computation data of the taint analysis
	Data = ifds.ComputationData[ssa.Instruction, ssa.Value]
	// System is the engine running the taint analysis
	System = actors.System[ssa.Instruction, ssa.Value, *ssa.Function]
)

// TaintFlow are the flow functions of the taint analysis of SSA values. Values are immutable, so a tainted value
// stays tainted until the end of its function. Memory is tracked through the addresses that tainted values are
// stored to, and the values the address is computed from.
type TaintFlow struct {
	prog *Program
	cfg  *config.Config
}

// NewTaintFlow returns the flow functions for the taint problems of cfg.
func NewTaintFlow(p *Program, cfg *config.Config) *TaintFlow {
	return &TaintFlow{prog: p, cfg: cfg}
}

// StartFacts returns the zero fact and, if the function of entry is a source, its parameters.
func (t *TaintFlow) StartFacts(entry ssa.Instruction) []ssa.Value {
	facts := []ssa.Value{nil}
	f := entry.Parent()
	if t.cfg.IsSomeSource(FunctionID(f)) {
		for _, param := range f.Params {
			facts = append(facts, param)
		}
	}
	return facts
}

// Sequent propagates the taint of the operands of an instruction to the value it defines, and the taint of a stored
// value to its address.
func (t *TaintFlow) Sequent(current ssa.Instruction, _ ssa.Instruction, fact ssa.Value) []ssa.Value {
	if fact == nil {
		return []ssa.Value{nil}
	}
	out := []ssa.Value{fact}
	add := func(v ssa.Value) {
		if v != nil && !funcutil.Contains(out, v) {
			out = append(out, v)
		}
	}
	switch instr := current.(type) {
	case *ssa.Store:
		if instr.Val == fact {
			for _, addr := range addressChain(instr.Addr) {
				add(addr)
			}
		}
	case *ssa.MapUpdate:
		if instr.Value == fact || instr.Key == fact {
			add(instr.Map)
		}
	case *ssa.Send:
		if instr.X == fact {
			add(instr.Chan)
		}
	case ssa.Value:
		if usesValue(current, fact) {
			add(instr)
		}
	}
	return out
}

// addressChain returns addr and the values it is an address into.
func addressChain(addr ssa.Value) []ssa.Value {
	chain := []ssa.Value{addr}
	for {
		switch a := addr.(type) {
		case *ssa.FieldAddr:
			addr = a.X
		case *ssa.IndexAddr:
			addr = a.X
		default:
			return chain
		}
		chain = append(chain, addr)
	}
}

// Call is the flow at a call. The result of a call to a source is tainted. Tainted arguments are passed to the
// callees, or taint the result when no callee is analyzed. Sanitizers stop the taint of their arguments.
func (t *TaintFlow) Call(call ssa.Instruction, _ ssa.Instruction, fact ssa.Value) []ifds.CallAction[ssa.Value] {
	c := call.(*ssa.Call)
	id := CalleeID(c.Common())
	if fact == nil {
		actions := []ifds.CallAction[ssa.Value]{ifds.Return[ssa.Value](nil)}
		if !t.cfg.IsSomeSanitizer(id) {
			actions = append(actions, ifds.Start[ssa.Value](nil))
		}
		if t.cfg.IsSomeSource(id) {
			actions = append(actions, ifds.Return[ssa.Value](c))
		}
		return actions
	}
	actions := []ifds.CallAction[ssa.Value]{ifds.Return(fact)}
	if !funcutil.Contains(CallArgs(c.Common()), fact) && !isBinding(c.Common(), fact) {
		return actions
	}
	if t.cfg.IsSomeSanitizer(id) {
		return actions
	}
	if len(t.prog.Callees(c)) == 0 {
		return append(actions, ifds.Return[ssa.Value](c))
	}
	return append(actions, ifds.Start(fact))
}

func isBinding(common *ssa.CallCommon, v ssa.Value) bool {
	closure, ok := common.Value.(*ssa.MakeClosure)
	return ok && funcutil.Contains(closure.Bindings, v)
}

// CallToStart maps the tainted arguments to the parameters of the callee, and the tainted bindings of a closure to
// its free variables.
func (t *TaintFlow) CallToStart(call ssa.Instruction, start ssa.Instruction, fact ssa.Value) []ssa.Value {
	if fact == nil {
		return []ssa.Value{nil}
	}
	common := call.(*ssa.Call).Common()
	callee := start.Parent()
	var out []ssa.Value
	for i, arg := range CallArgs(common) {
		if arg == fact && i < len(callee.Params) {
			out = append(out, callee.Params[i])
		}
	}
	if closure, ok := common.Value.(*ssa.MakeClosure); ok && closure.Fn == callee {
		for i, b := range closure.Bindings {
			if b == fact && i < len(callee.FreeVars) {
				out = append(out, callee.FreeVars[i])
			}
		}
	}
	return out
}

// ExitToReturnSite taints the result of the call when a tainted value is returned.
func (t *TaintFlow) ExitToReturnSite(call ssa.Instruction, _ ssa.Instruction, exit ssa.Instruction,
	fact ssa.Value) []ssa.Value {
	if fact == nil {
		return []ssa.Value{nil}
	}
	ret, ok := exit.(*ssa.Return)
	if ok && funcutil.Contains(ret.Results, fact) {
		return []ssa.Value{call.(*ssa.Call)}
	}
	return nil
}

// NewAnalyzer returns the taint analyzer of runner.
func NewAnalyzer(p *Program, cfg *config.Config,
	runner ifds.RunnerID) *ifds.BaseAnalyzer[ssa.Instruction, ssa.Value, *ssa.Function] {
	flow := NewTaintFlow(p, cfg)
	return &ifds.BaseAnalyzer[ssa.Instruction, ssa.Value, *ssa.Function]{
		Runner:    runner,
		Graph:     p,
		Flow:      flow,
		Start:     flow.StartFacts,
		OnNewEdge: flow.sinkFindings(runner),
	}
}

func (t *TaintFlow) sinkFindings(runner ifds.RunnerID) func(edge ifds.Edge[ssa.Instruction, ssa.Value]) []ifds.Message {
	return func(edge ifds.Edge[ssa.Instruction, ssa.Value]) []ifds.Message {
		c, ok := edge.To.Statement.(*ssa.Call)
		fact := edge.To.Fact
		if !ok || fact == nil || !funcutil.Contains(CallArgs(c.Common()), fact) {
			return nil
		}
		id := CalleeID(c.Common())
		if !t.cfg.IsSomeSink(id) || t.prog.Directives.Ignored(t.prog.Position(c)) {
			return nil
		}
		finding := Finding{
			Vertex:  edge.To,
			Rule:    Rule,
			Message: fmt.Sprintf("tainted %s flows into %s", FactName(fact), id.Method),
		}
		return []ifds.Message{ifds.NewFinding[ssa.Instruction, ssa.Value]{RunnerID: runner, Finding: finding}}
	}
}

// Position returns the position of an instruction in the sources.
func (p *Program) Position(s ssa.Instruction) token.Position {
	return p.SSA.Fset.Position(s.Pos())
}

// NewContext returns the engine context of the taint analysis of p.
func NewContext(p *Program, cfg *config.Config,
	logger *config.LogGroup) (*ifds.Context[ssa.Instruction, ssa.Value, *ssa.Function], error) {
	strategy, err := Strategy(cfg)
	if err != nil {
		return nil, err
	}
	resolver := ifds.NewVirtualCallResolver[ssa.Instruction, ssa.Value, *ssa.Function](p, p,
		cfg.BannedPackagePrefixes, logger)
	analyzers := map[ifds.RunnerID]ifds.Analyzer[ssa.Instruction, ssa.Value]{RunnerID: NewAnalyzer(p, cfg, RunnerID)}
	return ifds.NewContext[ssa.Instruction, ssa.Value, *ssa.Function](strategy, cfg.BannedPackagePrefixes,
		ifds.Analyzers(analyzers), ifds.SharedIndirection[ssa.Instruction, ssa.Value](resolver)), nil
}

// NewSystem starts the engine for the taint analysis of p. The logger of the config is used when logger is nil.
func NewSystem(p *Program, cfg *config.Config, logger *config.LogGroup) (*System, error) {
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	ictx, err := NewContext(p, cfg, logger)
	if err != nil {
		return nil, err
	}
	opts := actors.OptionsFromConfig("go-taint", cfg)
	opts.Logger = logger
	return actors.NewSystem[ssa.Instruction, ssa.Value, *ssa.Function](ictx, p, RunnerID, opts), nil
}

// Result is the result of a taint analysis run on a Go program.
type Result struct {
	Status   ifds.Status
	Findings []Finding
	Data     *Data
	prog     *Program
}

// Position returns the position of the sink call of a finding.
func (r *Result) Position(f Finding) token.Position {
	return r.prog.Position(f.Vertex.Statement)
}

// Traces returns the paths from the sources of the finding to its sink.
func (r *Result) Traces(f Finding) [][]Vertex {
	return ifds.BuildTraceGraph[ssa.Instruction, ssa.Value](r.Data, f.Vertex, nil).Traces()
}

// Run analyzes the entry functions of p until the analysis quiesces or the timeout of the config expires.
func Run(ctx context.Context, p *Program, cfg *config.Config, logger *config.LogGroup,
	entries []*ssa.Function) (*Result, error) {
	sys, err := NewSystem(p, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer sys.Close()
	status, err := sys.RunAnalysis(ctx, entries, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("go taint analysis: %w", err)
	}
	data, err := sys.CollectComputationData(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting go taint results: %w", err)
	}
	res := &Result{Status: status, Data: data, prog: p}
	res.Findings = data.FindingList()
	sort.Slice(res.Findings, func(i, j int) bool {
		a, b := res.Position(res.Findings[i]), res.Position(res.Findings[j])
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return FactName(res.Findings[i].Vertex.Fact) < FactName(res.Findings[j].Vertex.Fact)
	})
	return res, nil
}

// Entries returns the analyzed functions with the qualified names. When names is empty, the entries are the main
// functions and the source functions of the analyzed packages.
func Entries(p *Program, cfg *config.Config, names []string) ([]*ssa.Function, error) {
	if len(names) == 0 {
		return funcutil.Filter(p.Functions(), func(f *ssa.Function) bool {
			isMain := f.Name() == "main" && f.Parent() == nil && f.Signature.Recv() == nil
			return isMain || cfg.IsSomeSource(FunctionID(f))
		}), nil
	}
	var fs []*ssa.Function
	for _, name := range names {
		f, err := p.Function(name)
		if err != nil {
			return nil, err
		}
		fs = append(fs, f)
	}
	return fs, nil
}
