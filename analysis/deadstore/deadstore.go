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

// Package deadstore finds the assignments whose value is never read, in the methods reachable from the entry points.
//
// The facts are the definitions that reach a statement. Once the engine quiesces, a definition is dead if no
// statement it reaches reads its variable.
package deadstore

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

// RunnerID is the runner of the dead-store analysis
const RunnerID ifds.RunnerID = "dead-store"

// Rule is the rule of the dead-store findings
const Rule = "dead-store"

// Def is the definition of Var at Site. The zero Def is the reachability fact.
type Def struct {
	Var  string
	Site *program.Inst
}

func (d Def) String() string {
	if d.Site == nil {
		return "0"
	}
	return fmt.Sprintf("%s@%s", d.Var, d.Site)
}

type (
	// Finding is a dead store
	Finding = ifds.Finding[*program.Inst, Def]
	// Data is the computation data of the dead-store analysis
	Data = ifds.ComputationData[*program.Inst, Def]
)

type flow struct{}

func (flow) Sequent(current *program.Inst, next *program.Inst, fact Def) []Def {
	lhs := current.Defines()
	if fact.Site == nil {
		if lhs != "" {
			return []Def{fact, {Var: lhs, Site: current}}
		}
		return []Def{fact}
	}
	if fact.Var == lhs {
		return nil
	}
	return []Def{fact}
}

func (flow) Call(call *program.Inst, returnSite *program.Inst, fact Def) []ifds.CallAction[Def] {
	if fact.Site == nil {
		actions := []ifds.CallAction[Def]{ifds.Return(fact), ifds.Start(fact)}
		if call.Lhs != "" {
			actions = append(actions, ifds.Return(Def{Var: call.Lhs, Site: call}))
		}
		return actions
	}
	if fact.Var == call.Lhs {
		return nil
	}
	return []ifds.CallAction[Def]{ifds.Return(fact)}
}

// Definitions stay in their method: only the reachability fact enters callees.
func (flow) CallToStart(call *program.Inst, calleeStart *program.Inst, fact Def) []Def {
	if fact.Site == nil {
		return []Def{fact}
	}
	return nil
}

func (flow) ExitToReturnSite(call *program.Inst, returnSite *program.Inst, exit *program.Inst, fact Def) []Def {
	if fact.Site == nil {
		return []Def{fact}
	}
	return nil
}

// NewAnalyzer returns the analyzer of the dead-store analysis.
func NewAnalyzer(p *program.Program) *ifds.BaseAnalyzer[*program.Inst, Def, *program.Method] {
	return &ifds.BaseAnalyzer[*program.Inst, Def, *program.Method]{
		Runner: RunnerID,
		Graph:  p,
		Flow:   flow{},
		Start:  func(*program.Inst) []Def { return []Def{{}} },
	}
}

// NewSystem starts the engine for the dead-store analysis of p.
func NewSystem(p *program.Program, cfg *config.Config,
	logger *config.LogGroup) (*actors.System[*program.Inst, Def, *program.Method], error) {
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	strategy, err := program.Strategy(cfg)
	if err != nil {
		return nil, err
	}
	resolver := ifds.NewVirtualCallResolver[*program.Inst, Def, *program.Method](p, p, cfg.BannedPackagePrefixes,
		logger)
	ictx := ifds.NewContext[*program.Inst, Def, *program.Method](strategy, cfg.BannedPackagePrefixes,
		ifds.Analyzers(map[ifds.RunnerID]ifds.Analyzer[*program.Inst, Def]{RunnerID: NewAnalyzer(p)}),
		ifds.SharedIndirection[*program.Inst, Def](resolver))
	opts := actors.OptionsFromConfig("dead-store", cfg)
	opts.Logger = logger
	return actors.NewSystem[*program.Inst, Def, *program.Method](ictx, p, RunnerID, opts), nil
}

// Result is the result of a dead-store analysis run.
type Result struct {
	Status   ifds.Status
	Findings []Finding
	Data     *Data
}

// Run analyzes the entry methods and reports the dead stores of the reachable methods.
func Run(ctx context.Context, p *program.Program, cfg *config.Config, logger *config.LogGroup,
	entries []*program.Method) (*Result, error) {
	sys, err := NewSystem(p, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer sys.Close()
	status, err := sys.RunAnalysis(ctx, entries, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("dead-store analysis: %w", err)
	}
	data, err := sys.CollectComputationData(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting dead-store results: %w", err)
	}
	return &Result{Status: status, Findings: DeadStores(data), Data: data}, nil
}

// DeadStores returns the definitions of data that reach no statement reading their variable, sorted by site.
func DeadStores(data *Data) []Finding {
	used := map[Def]bool{}
	for s, facts := range data.FactsByStatement {
		uses := s.Uses()
		for _, d := range facts {
			if d.Site == nil {
				continue
			}
			if !used[d] {
				used[d] = funcutil.Contains(uses, d.Var)
			}
		}
	}
	var findings []Finding
	for d, isUsed := range used {
		if !isUsed {
			findings = append(findings, Finding{
				Vertex:  ifds.Vertex[*program.Inst, Def]{Statement: d.Site, Fact: d},
				Rule:    Rule,
				Message: fmt.Sprintf("value assigned to %s is never used", d.Var),
			})
		}
	}
	return sortFindings(findings)
}

func sortFindings(findings []Finding) []Finding {
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i].Vertex.Fact, findings[j].Vertex.Fact
		if a.Site.Method != b.Site.Method {
			return a.Site.Method.String() < b.Site.Method.String()
		}
		if a.Site.Index != b.Site.Index {
			return a.Site.Index < b.Site.Index
		}
		return a.Var < b.Var
	})
	return findings
}
