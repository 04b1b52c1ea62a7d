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
	"fmt"

	"github.com/awslabs/ar-go-ifds/internal/funcutil"
)

// Analyzer is the policy of one runner. Step is called concurrently by the workers of the runner and must not
// depend on any mutable state.
type Analyzer[S, F comparable] interface {
	// StartFacts returns the facts that hold at an entry statement of an analyzed method
	StartFacts(entry S) []F
	// Step applies the flow functions to an analyzer message
	Step(msg Message) ([]Message, error)
}

// ApplicationGraph is the inter-procedural control-flow graph of the analyzed program.
type ApplicationGraph[S, M comparable] interface {
	MethodOf(s S) M
	Successors(s S) []S
	EntryPoints(m M) []S
	ExitPoints(m M) []S
	IsCall(s S) bool
}

// CallActionKind is the kind of a CallAction.
type CallActionKind int

const (
	// ReturnAction propagates a fact to the return site, bypassing the callee
	ReturnAction CallActionKind = iota
	// StartAction passes a fact to the callees
	StartAction
)

// CallAction is the result of the call flow function for one fact.
type CallAction[F comparable] struct {
	Kind CallActionKind
	Fact F
}

// Return returns a ReturnAction for fact.
func Return[F comparable](fact F) CallAction[F] {
	return CallAction[F]{Kind: ReturnAction, Fact: fact}
}

// Start returns a StartAction for fact.
func Start[F comparable](fact F) CallAction[F] {
	return CallAction[F]{Kind: StartAction, Fact: fact}
}

// FlowFunctions are the four IFDS flow functions.
type FlowFunctions[S, F comparable] interface {
	// Sequent is the flow from current to its successor next, when current is not a call
	Sequent(current S, next S, fact F) []F
	// Call is the flow at a call: Return actions bypass the callee, Start actions are passed to the callees
	Call(call S, returnSite S, fact F) []CallAction[F]
	// CallToStart maps a fact passed to a callee to the facts at the callee's entry
	CallToStart(call S, calleeStart S, fact F) []F
	// ExitToReturnSite maps a fact at the callee's exit to the facts at the return site
	ExitToReturnSite(call S, returnSite S, exit S, fact F) []F
}

// BaseAnalyzer implements the IFDS tabulation step on top of flow functions. Analyses implement their rules with
// the flow functions and report findings with the OnNewEdge hook.
type BaseAnalyzer[S, F, M comparable] struct {
	Runner RunnerID
	Graph  ApplicationGraph[S, M]
	Flow   FlowFunctions[S, F]
	// Start returns the start facts of an entry statement
	Start func(entry S) []F
	// OnNewEdge is called once for every new edge, and returns additional messages such as findings
	OnNewEdge func(edge Edge[S, F]) []Message
	// OnEnd is called for end notifications; they are ignored when it is nil
	OnEnd func(n NotificationOnEnd[S, F]) []Message
}

// StartFacts returns the start facts at entry.
func (a *BaseAnalyzer[S, F, M]) StartFacts(entry S) []F {
	if a.Start == nil {
		return nil
	}
	return a.Start(entry)
}

// Step processes one analyzer message.
func (a *BaseAnalyzer[S, F, M]) Step(msg Message) ([]Message, error) {
	switch m := msg.(type) {
	case EdgeMessage[S, F]:
		return a.processEdge(m.Edge), nil
	case ResolvedCall[S, F, M]:
		return a.processResolvedCall(m.Edge, m.Callee), nil
	case NotificationOnStart[S, F]:
		return a.processNotificationOnStart(m.SubscribingEdge, m.SummaryEdge), nil
	case NotificationOnEnd[S, F]:
		if a.OnEnd != nil {
			return a.OnEnd(m), nil
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("analyzer %s: unexpected message %T", a.Runner, msg)
	}
}

// IsExit returns true if s is an exit point of its method.
func (a *BaseAnalyzer[S, F, M]) IsExit(s S) bool {
	return funcutil.Contains(a.Graph.ExitPoints(a.Graph.MethodOf(s)), s)
}

func (a *BaseAnalyzer[S, F, M]) newEdge(edge Edge[S, F], reason Reason[S, F]) Message {
	return NewEdge[S, F]{RunnerID: a.Runner, Edge: edge, Reason: reason}
}

func (a *BaseAnalyzer[S, F, M]) processEdge(edge Edge[S, F]) []Message {
	var out []Message
	stmt := edge.To.Statement
	isExit := a.IsExit(stmt)
	if isExit {
		out = append(out, NewSummaryEdge[S, F]{RunnerID: a.Runner, Edge: edge})
	}
	if a.OnNewEdge != nil {
		out = append(out, a.OnNewEdge(edge)...)
	}
	switch {
	case a.Graph.IsCall(stmt):
		out = append(out, a.processCall(edge)...)
	case !isExit:
		out = append(out, a.processSequent(edge)...)
	}
	return out
}

func (a *BaseAnalyzer[S, F, M]) processCall(edge Edge[S, F]) []Message {
	var out []Message
	reason := Reason[S, F]{Kind: CallToReturn, Edge: edge}
	calls := map[Edge[S, F]]struct{}{}
	for _, returnSite := range a.Graph.Successors(edge.To.Statement) {
		for _, action := range a.Flow.Call(edge.To.Statement, returnSite, edge.To.Fact) {
			switch action.Kind {
			case ReturnAction:
				out = append(out, a.newEdge(Edge[S, F]{From: edge.From, To: Vertex[S, F]{returnSite, action.Fact}},
					reason))
			case StartAction:
				callEdge := Edge[S, F]{From: edge.From, To: Vertex[S, F]{edge.To.Statement, action.Fact}}
				if _, dup := calls[callEdge]; !dup {
					calls[callEdge] = struct{}{}
					out = append(out, UnresolvedCall[S, F]{RunnerID: a.Runner, Edge: callEdge})
				}
			}
		}
	}
	return out
}

func (a *BaseAnalyzer[S, F, M]) processSequent(edge Edge[S, F]) []Message {
	var out []Message
	reason := Reason[S, F]{Kind: Sequent, Edge: edge}
	for _, next := range a.Graph.Successors(edge.To.Statement) {
		for _, fact := range a.Flow.Sequent(edge.To.Statement, next, edge.To.Fact) {
			out = append(out, a.newEdge(Edge[S, F]{From: edge.From, To: Vertex[S, F]{next, fact}}, reason))
		}
	}
	return out
}

// processResolvedCall subscribes the call edge to the summaries of the callee and starts the callee.
func (a *BaseAnalyzer[S, F, M]) processResolvedCall(edge Edge[S, F], callee M) []Message {
	var out []Message
	reason := Reason[S, F]{Kind: CallToStart, Edge: edge}
	for _, entry := range a.Graph.EntryPoints(callee) {
		for _, fact := range a.Flow.CallToStart(edge.To.Statement, entry, edge.To.Fact) {
			v := Vertex[S, F]{entry, fact}
			out = append(out,
				SubscriptionOnStart[S, F]{RunnerID: a.Runner, StartVertex: v, Subscriber: a.Runner, SubscribingEdge: edge},
				a.newEdge(Loop(v), reason))
		}
	}
	return out
}

// processNotificationOnStart applies a summary edge of a callee at the return sites of the subscribing call.
func (a *BaseAnalyzer[S, F, M]) processNotificationOnStart(callerEdge Edge[S, F], summary Edge[S, F]) []Message {
	var out []Message
	reason := Reason[S, F]{Kind: ExitToReturnSite, Edge: callerEdge, Summary: summary}
	call := callerEdge.To.Statement
	for _, returnSite := range a.Graph.Successors(call) {
		for _, fact := range a.Flow.ExitToReturnSite(call, returnSite, summary.To.Statement, summary.To.Fact) {
			out = append(out, a.newEdge(Edge[S, F]{From: callerEdge.From, To: Vertex[S, F]{returnSite, fact}}, reason))
		}
	}
	return out
}
