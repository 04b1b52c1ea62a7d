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

// Package program implements a small class-based intermediate representation that the IFDS engine can analyze.
//
// A program is a set of classes. Every class has at most one super class, any number of interfaces, and methods whose
// bodies are lists of instructions over local variables:
//
//	x = y                 assign
//	x = const             const
//	[x =] C.m(args)       call, static or virtual on a receiver
//	return [x]            return
//	if x goto targets     if
//	goto targets          goto
//
// Programs are written in YAML and loaded with Load, LoadFromBytes or LoadURL.
package program

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/awslabs/ar-go-ifds/analysis/hierarchy"
)

// ErrUnknownMethod is returned when a method name does not resolve to a method of the program.
var ErrUnknownMethod = errors.New("unknown method")

// Op is the operation of an instruction.
type Op string

// The instruction operations
const (
	Assign Op = "assign"
	Const  Op = "const"
	Call   Op = "call"
	Return Op = "return"
	If     Op = "if"
	Goto   Op = "goto"
	Nop    Op = "nop"
)

// This is the name of the implicit receiver parameter of instance methods.
const This = "this"

// Program is a loaded program. A program is immutable once loaded, and safe for concurrent use.
type Program struct {
	// Name is where the program was loaded from
	Name string

	classes   map[string]*Class
	methods   map[string]*Method
	hierarchy *hierarchy.Hierarchy
}

// Class is a class of the program.
type Class struct {
	// Name is the qualified name of the class, e.g. "app.Main"
	Name       string
	Super      string
	Interfaces []string
	Methods    []*Method
	byName     map[string]*Method
}

func (c *Class) String() string {
	return c.Name
}

// Package returns the part of the class name before the last dot.
func (c *Class) Package() string {
	pkg, _ := SplitClassName(c.Name)
	return pkg
}

// SimpleName returns the part of the class name after the last dot.
func (c *Class) SimpleName() string {
	_, name := SplitClassName(c.Name)
	return name
}

// SplitClassName splits a qualified class name at its last dot.
func SplitClassName(class string) (pkg string, name string) {
	if i := strings.LastIndex(class, "."); i >= 0 {
		return class[:i], class[i+1:]
	}
	return "", class
}

// Method returns the method declared in c with name.
func (c *Class) Method(name string) (*Method, bool) {
	m, ok := c.byName[name]
	return m, ok
}

// Method is a method of a class. Abstract methods have no instructions.
type Method struct {
	Class    *Class
	Name     string
	Params   []string
	Static   bool
	Abstract bool
	Body     []*Inst
}

func (m *Method) String() string {
	return m.Class.Name + "." + m.Name
}

// Parameters returns the formal parameters of m, with the receiver first for instance methods.
func (m *Method) Parameters() []string {
	if m.Static {
		return m.Params
	}
	return append([]string{This}, m.Params...)
}

// Inst is an instruction: the statements of the IFDS engine.
type Inst struct {
	Method *Method
	Index  int
	Op     Op
	// Lhs is the variable defined by the instruction, for assign, const and call
	Lhs string
	// Rhs is the variable read by an assign or returned by a return
	Rhs string
	// Value is the literal of a const
	Value string
	// Callee is the qualified name of the declared callee of a call
	Callee string
	Args   []string
	// Virtual calls are dispatched on the dynamic type of Receiver
	Virtual      bool
	Receiver     string
	ReceiverType string
	// Cond is the variable tested by an if
	Cond    string
	Targets []int
}

func (i *Inst) String() string {
	return fmt.Sprintf("%s:%d", i.Method, i.Index)
}

// Uses returns the variables read by the instruction.
func (i *Inst) Uses() []string {
	switch i.Op {
	case Assign, Return:
		if i.Rhs != "" {
			return []string{i.Rhs}
		}
	case Call:
		if i.Receiver != "" {
			return append([]string{i.Receiver}, i.Args...)
		}
		return i.Args
	case If:
		return []string{i.Cond}
	}
	return nil
}

// Defines returns the variable written by the instruction, or "".
func (i *Inst) Defines() string {
	switch i.Op {
	case Assign, Const, Call:
		return i.Lhs
	}
	return ""
}

// CalleeClass returns the class part of the callee name.
func (i *Inst) CalleeClass() string {
	return i.Callee[:max(strings.LastIndex(i.Callee, "."), 0)]
}

// CalleeName returns the method part of the callee name.
func (i *Inst) CalleeName() string {
	return i.Callee[strings.LastIndex(i.Callee, ".")+1:]
}

// Classes returns the classes of the program sorted by name.
func (p *Program) Classes() []*Class {
	classes := make([]*Class, 0, len(p.classes))
	for _, c := range p.classes {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes
}

// Class returns the class with name.
func (p *Program) Class(name string) (*Class, bool) {
	c, ok := p.classes[name]
	return c, ok
}

// Methods returns every method of the program sorted by qualified name.
func (p *Program) Methods() []*Method {
	methods := make([]*Method, 0, len(p.methods))
	for _, m := range p.methods {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].String() < methods[j].String() })
	return methods
}

// Method returns the method with the qualified name "Class.method" declared in the class.
func (p *Program) Method(qualified string) (*Method, error) {
	if m, ok := p.methods[qualified]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("%q: %w", qualified, ErrUnknownMethod)
}

// LookupMethod returns the method name of the class, or the one it inherits from its closest super class.
func (p *Program) LookupMethod(class string, name string) (*Method, bool) {
	seen := map[string]bool{}
	for c, ok := p.classes[class]; ok && !seen[c.Name]; c, ok = p.classes[c.Super] {
		seen[c.Name] = true
		if m, found := c.byName[name]; found {
			return m, true
		}
	}
	// default methods of interfaces
	for _, super := range p.hierarchy.Supers(class) {
		if m, found := p.LookupMethod(super, name); found {
			return m, true
		}
	}
	return nil, false
}

// Hierarchy returns the class hierarchy of the program.
func (p *Program) Hierarchy() *hierarchy.Hierarchy {
	return p.hierarchy
}
