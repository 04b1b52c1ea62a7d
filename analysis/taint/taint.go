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

// Package taint implements a taint analysis of class-based programs on the actor-based IFDS engine.
//
// The sources, sinks and sanitizers are the code identifiers of the taint tracking problems of the config. The result
// of a call to a source is tainted, and so are the parameters of a method that is itself a source. A finding is
// reported whenever a tainted variable is an argument of a call to a sink.
package taint

import (
	"context"
	"fmt"
	"sort"

	"github.com/awslabs/ar-go-ifds/analysis/config"
	"github.com/awslabs/ar-go-ifds/analysis/ifds"
	"github.com/awslabs/ar-go-ifds/analysis/ifds/actors"
	"github.com/awslabs/ar-go-ifds/analysis/program"
	"github.com/awslabs/ar-go-ifds/internal/funcutil"
)

// RunnerID is the runner of the taint analysis
const RunnerID ifds.RunnerID = "taint"

// Rule is the rule of the findings of the taint analysis
const Rule = "taint"

type (
	// Vertex is a vertex of the taint analysis
	Vertex = ifds.Vertex[*program.Inst, Fact]
	// Finding is a tainted variable reaching a sink
	Finding = ifds.Finding[*program.Inst, Fact]
	// Data is the computation data of the taint analysis
	Data = ifds.ComputationData[*program.Inst, Fact]
	// System is the engine running the taint analysis
	System = actors.System[*program.Inst, Fact, *program.Method]
)

// NewAnalyzer returns the analyzer of runner.
func NewAnalyzer(p *program.Program, cfg *config.Config,
	runner ifds.RunnerID) *ifds.BaseAnalyzer[*program.Inst, Fact, *program.Method] {
	flow := NewFlow(p, cfg)
	return &ifds.BaseAnalyzer[*program.Inst, Fact, *program.Method]{
		Runner:    runner,
		Graph:     p,
		Flow:      flow,
		Start:     flow.StartFacts,
		OnNewEdge: flow.sinkFindings(runner),
	}
}

// sinkFindings reports tainted arguments of sinks.
func (f *Flow) sinkFindings(runner ifds.RunnerID) func(edge ifds.Edge[*program.Inst, Fact]) []ifds.Message {
	return func(edge ifds.Edge[*program.Inst, Fact]) []ifds.Message {
		inst, fact := edge.To.Statement, edge.To.Fact
		if fact == Zero || inst.Op != program.Call || !funcutil.Contains(inst.Uses(), fact) {
			return nil
		}
		if !f.cfg.IsSomeSink(CalleeID(inst)) {
			return nil
		}
		finding := Finding{
			Vertex:  edge.To,
			Rule:    Rule,
			Message: fmt.Sprintf("tainted %s flows into %s", fact, inst.Callee),
		}
		return []ifds.Message{ifds.NewFinding[*program.Inst, Fact]{RunnerID: runner, Finding: finding}}
	}
}

// NewContext returns the engine context of the taint analysis of p: the chunk strategy of the config, the taint
// analyzer and a virtual call resolver ignoring the banned packages.
func NewContext(p *program.Program, cfg *config.Config,
	logger *config.LogGroup) (*ifds.Context[*program.Inst, Fact, *program.Method], error) {
	strategy, err := program.Strategy(cfg)
	if err != nil {
		return nil, err
	}
	resolver := ifds.NewVirtualCallResolver[*program.Inst, Fact, *program.Method](p, p, cfg.BannedPackagePrefixes,
		logger)
	analyzers := map[ifds.RunnerID]ifds.Analyzer[*program.Inst, Fact]{RunnerID: NewAnalyzer(p, cfg, RunnerID)}
	return ifds.NewContext[*program.Inst, Fact, *program.Method](strategy, cfg.BannedPackagePrefixes,
		ifds.Analyzers(analyzers), ifds.SharedIndirection[*program.Inst, Fact](resolver)), nil
}

// NewSystem starts the engine for the taint analysis of p. The logger of the config is used when logger is nil.
func NewSystem(p *program.Program, cfg *config.Config, logger *config.LogGroup) (*System, error) {
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	ictx, err := NewContext(p, cfg, logger)
	if err != nil {
		return nil, err
	}
	opts := actors.OptionsFromConfig("taint", cfg)
	opts.Logger = logger
	return actors.NewSystem[*program.Inst, Fact, *program.Method](ictx, p, RunnerID, opts), nil
}

// Result is the result of a taint analysis run.
type Result struct {
	Status   ifds.Status
	Findings []Finding
	Data     *Data
}

// Traces returns the paths from the sources of the finding to its sink.
func (r *Result) Traces(f Finding) [][]Vertex {
	return ifds.BuildTraceGraph(r.Data, f.Vertex, Zero).Traces()
}

// Run analyzes the entry methods of p until the analysis quiesces or the timeout of the config expires.
func Run(ctx context.Context, p *program.Program, cfg *config.Config, logger *config.LogGroup,
	entries []*program.Method) (*Result, error) {
	sys, err := NewSystem(p, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer sys.Close()
	status, err := sys.RunAnalysis(ctx, entries, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("taint analysis: %w", err)
	}
	data, err := sys.CollectComputationData(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting taint results: %w", err)
	}
	return &Result{Status: status, Findings: SortFindings(data.FindingList()), Data: data}, nil
}

// SortFindings sorts findings by statement and fact.
func SortFindings(findings []Finding) []Finding {
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i].Vertex, findings[j].Vertex
		if a.Statement.String() != b.Statement.String() {
			return a.Statement.String() < b.Statement.String()
		}
		return a.Fact < b.Fact
	})
	return findings
}

// Entries returns the methods named by their qualified names, or every method named main when names is empty.
func Entries(p *program.Program, names []string) ([]*program.Method, error) {
	if len(names) == 0 {
		return funcutil.Filter(p.Methods(), func(m *program.Method) bool {
			return m.Name == "main" && !m.Abstract
		}), nil
	}
	var methods []*program.Method
	for _, name := range names {
		m, err := p.Method(name)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, nil
}
