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

// Package ssaflow runs the IFDS engine on Go programs in SSA form.
//
// The statements are the SSA instructions of the functions of the analyzed packages, the facts are SSA values and the
// methods are SSA functions. Calls of interface methods are virtual: they are resolved when the analysis reaches them,
// with the implementations of the interface among the concrete types of the analyzed packages, like a class hierarchy
// analysis. Functions outside the analyzed packages are never entered.
package ssaflow

import (
	"fmt"
	"go/types"
	"sort"
	"sync"

	"github.com/awslabs/ar-go-ifds/analysis/ifds"
	"github.com/awslabs/ar-go-ifds/internal/funcutil"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

var (
	_ ifds.ApplicationGraph[ssa.Instruction, *ssa.Function] = (*Program)(nil)
	_ ifds.CallGraph[ssa.Instruction, *ssa.Function]        = (*Program)(nil)
	_ ifds.Hierarchy[*ssa.Function]                         = (*Program)(nil)
)

// Program is the application graph of the analyzed packages of a SSA program. The control flow indexes are computed
// when the Program is created and the implementations of interface methods on demand. A Program is safe for concurrent
// use.
type Program struct {
	SSA *ssa.Program

	// Directives are the directive comments of the analyzed packages
	Directives Directives

	scope     map[*ssa.Package]bool
	functions []*ssa.Function
	index     map[ssa.Instruction]int
	exits     map[*ssa.Function][]ssa.Instruction
	impls     *Implementations
}

// NewProgram indexes the functions of pkgs in prog. The program must be built.
func NewProgram(prog *ssa.Program, pkgs []*ssa.Package) *Program {
	p := &Program{
		SSA:        prog,
		Directives: Directives{},
		scope:      map[*ssa.Package]bool{},
		index:      map[ssa.Instruction]int{},
		exits:      map[*ssa.Function][]ssa.Instruction{},
	}
	for _, pkg := range pkgs {
		p.scope[pkg] = true
	}
	p.impls = NewImplementations(prog, pkgs)

	for f := range ssautil.AllFunctions(prog) {
		if p.Analyzed(f) {
			p.functions = append(p.functions, f)
		}
	}
	sort.Slice(p.functions, func(i, j int) bool { return p.functions[i].String() < p.functions[j].String() })

	for _, f := range p.functions {
		for _, b := range f.Blocks {
			for i, instr := range b.Instrs {
				p.index[instr] = i
				if ret, ok := instr.(*ssa.Return); ok {
					p.exits[f] = append(p.exits[f], ret)
				}
			}
		}
	}
	return p
}

// FromLoaded returns the program of the packages that were loaded.
func FromLoaded(lp LoadedProgram) *Program {
	p := NewProgram(lp.Program, lp.Packages)
	if lp.Directives != nil {
		p.Directives = lp.Directives
	}
	return p
}

// Analyzed returns true if f has a body and belongs to one of the analyzed packages.
func (p *Program) Analyzed(f *ssa.Function) bool {
	if f == nil || len(f.Blocks) == 0 {
		return false
	}
	pkg := outermost(f).Package()
	if pkg == nil && f.Origin() != nil {
		pkg = f.Origin().Package()
	}
	return pkg != nil && p.scope[pkg]
}

// Functions returns the analyzed functions, sorted by name.
func (p *Program) Functions() []*ssa.Function {
	return p.functions
}

// Function returns the analyzed function with the qualified name, e.g. "example.com/pkg.Run" or
// "(*example.com/pkg.T).Run".
func (p *Program) Function(name string) (*ssa.Function, error) {
	for _, f := range p.functions {
		if f.String() == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("function %q not found in the analyzed packages", name)
}

// Implementations returns the index of the implementations of interface methods.
func (p *Program) Implementations() *Implementations {
	return p.impls
}

func (p *Program) resolve(common *ssa.CallCommon) []*ssa.Function {
	var candidates []*ssa.Function
	if common.IsInvoke() {
		candidates = p.impls.Lookup(common.Value.Type(), common.Method)
	} else if f := common.StaticCallee(); f != nil {
		candidates = []*ssa.Function{f}
	}
	return funcutil.Filter(candidates, p.Analyzed)
}

// Callees returns the analyzed functions that may be called at call, without the overrides of FindOverrides.
func (p *Program) Callees(call *ssa.Call) []*ssa.Function {
	return p.resolve(call.Common())
}

// MethodOf returns the function of s.
func (p *Program) MethodOf(s ssa.Instruction) *ssa.Function {
	return s.Parent()
}

// Successors returns the next instruction in the block of s, or the first instructions of the successor blocks when
// s terminates its block.
func (p *Program) Successors(s ssa.Instruction) []ssa.Instruction {
	b := s.Block()
	if b == nil {
		return nil
	}
	i, ok := p.index[s]
	if !ok {
		i = indexIn(b, s)
	}
	if i+1 < len(b.Instrs) {
		return []ssa.Instruction{b.Instrs[i+1]}
	}
	var next []ssa.Instruction
	for _, succ := range b.Succs {
		if len(succ.Instrs) > 0 && !funcutil.Contains(next, succ.Instrs[0]) {
			next = append(next, succ.Instrs[0])
		}
	}
	return next
}

func indexIn(b *ssa.BasicBlock, s ssa.Instruction) int {
	for i, instr := range b.Instrs {
		if instr == s {
			return i
		}
	}
	return len(b.Instrs)
}

// EntryPoints returns the first instruction of f, or nothing when f has no body.
func (p *Program) EntryPoints(f *ssa.Function) []ssa.Instruction {
	if len(f.Blocks) == 0 || len(f.Blocks[0].Instrs) == 0 {
		return nil
	}
	return f.Blocks[0].Instrs[:1]
}

// ExitPoints returns the return instructions of f.
func (p *Program) ExitPoints(f *ssa.Function) []ssa.Instruction {
	if exits, ok := p.exits[f]; ok {
		return exits
	}
	var exits []ssa.Instruction
	for _, b := range f.Blocks {
		if len(b.Instrs) == 0 {
			continue
		}
		if ret, ok := b.Instrs[len(b.Instrs)-1].(*ssa.Return); ok {
			exits = append(exits, ret)
		}
	}
	return exits
}

// IsCall returns true if s is a call. Go and defer statements are not calls of the analysis.
func (p *Program) IsCall(s ssa.Instruction) bool {
	_, ok := s.(*ssa.Call)
	return ok
}

// CallSite returns the call site of s. The declared callees of an interface method call are the implementations of
// the method, and the call is virtual on the interface type.
func (p *Program) CallSite(s ssa.Instruction) (ifds.CallSite[*ssa.Function], bool) {
	call, ok := s.(*ssa.Call)
	if !ok {
		return ifds.CallSite[*ssa.Function]{}, false
	}
	common := call.Common()
	site := ifds.CallSite[*ssa.Function]{Callees: p.resolve(common)}
	if common.IsInvoke() {
		site.Virtual = true
		site.ReceiverType = common.Value.Type().String()
	}
	return site, true
}

// FindOverrides returns the analyzed methods shadowing f in the types embedding its receiver type.
func (p *Program) FindOverrides(f *ssa.Function) []*ssa.Function {
	return funcutil.Filter(p.impls.Shadowing(f), p.Analyzed)
}

// DeclaringType returns the package path of f followed by its receiver type name, if f is a method.
func (p *Program) DeclaringType(f *ssa.Function) string {
	pkg := PackageNameFromFunction(f)
	if recv := ReceiverTypeName(f); recv != "" {
		return pkg + "." + recv
	}
	return pkg
}

// IsSubtype returns true if the names are the same, if the concrete type sub implements the interface super, or if sub
// embeds super.
func (p *Program) IsSubtype(sub string, super string) bool {
	return sub == super || p.impls.IsSubtype(sub, super)
}

// Implementations indexes the methods of the concrete named types of some packages by the interface methods they
// implement. The index is filled by Lookup, and is safe for concurrent use.
type Implementations struct {
	prog     *ssa.Program
	concrete []types.Type
	named    map[string]*types.Named

	mu        sync.Mutex
	byKey     map[string][]*ssa.Function
	ifaces    map[string]*types.Interface
	shadowing map[*ssa.Function][]*ssa.Function
}

// NewImplementations returns the index of the concrete types of pkgs.
func NewImplementations(prog *ssa.Program, pkgs []*ssa.Package) *Implementations {
	im := &Implementations{
		prog:      prog,
		named:     map[string]*types.Named{},
		byKey:     map[string][]*ssa.Function{},
		ifaces:    map[string]*types.Interface{},
		shadowing: map[*ssa.Function][]*ssa.Function{},
	}
	for _, pkg := range pkgs {
		for _, mem := range pkg.Members {
			t, ok := mem.(*ssa.Type)
			if !ok {
				continue
			}
			named, ok := t.Type().(*types.Named)
			if !ok || named.TypeParams().Len() > 0 || types.IsInterface(named) {
				continue
			}
			im.concrete = append(im.concrete, named, types.NewPointer(named))
			im.named[namedKey(named)] = named
		}
	}
	sort.Slice(im.concrete, func(i, j int) bool { return im.concrete[i].String() < im.concrete[j].String() })
	return im
}

func namedKey(named *types.Named) string {
	if named.Obj().Pkg() == nil {
		return named.Obj().Name()
	}
	return named.Obj().Pkg().Path() + "." + named.Obj().Name()
}

// Lookup returns the implementations of the method of the interface type iface. The result is computed once per
// interface method.
func (im *Implementations) Lookup(iface types.Type, method *types.Func) []*ssa.Function {
	key := iface.String() + "." + method.Name()
	im.mu.Lock()
	defer im.mu.Unlock()
	if fs, ok := im.byKey[key]; ok {
		return fs
	}
	it, ok := iface.Underlying().(*types.Interface)
	if !ok {
		return nil
	}
	im.ifaces[iface.String()] = it
	var fs []*ssa.Function
	for _, t := range im.concrete {
		if !types.Implements(t, it) {
			continue
		}
		sel := im.prog.MethodSets.MethodSet(t).Lookup(method.Pkg(), method.Name())
		if sel == nil {
			continue
		}
		obj, ok := sel.Obj().(*types.Func)
		if !ok {
			continue
		}
		if f := im.prog.FuncValue(obj); f != nil && !funcutil.Contains(fs, f) {
			fs = append(fs, f)
		}
	}
	im.byKey[key] = fs
	return fs
}

// Shadowing returns the methods with the name of f declared by the types embedding the receiver type of f, directly
// or through other embedded types.
func (im *Implementations) Shadowing(f *ssa.Function) []*ssa.Function {
	recv := f.Signature.Recv()
	obj, isMethod := f.Object().(*types.Func)
	if recv == nil || !isMethod {
		return nil
	}
	base, ok := derefNamed(recv.Type())
	if !ok {
		return nil
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	if fs, ok := im.shadowing[f]; ok {
		return fs
	}
	var fs []*ssa.Function
	for _, t := range im.embedders(base) {
		// a selection of depth one is a method declared by t itself
		sel := im.prog.MethodSets.MethodSet(types.NewPointer(t)).Lookup(obj.Pkg(), obj.Name())
		if sel == nil || len(sel.Index()) != 1 {
			continue
		}
		if m, ok := sel.Obj().(*types.Func); ok {
			if g := im.prog.FuncValue(m); g != nil && !funcutil.Contains(fs, g) {
				fs = append(fs, g)
			}
		}
	}
	im.shadowing[f] = fs
	return fs
}

// embedders returns the concrete types embedding base, transitively, sorted by name.
func (im *Implementations) embedders(base *types.Named) []*types.Named {
	var out []*types.Named
	seen := map[*types.Named]bool{base: true}
	queue := []*types.Named{base}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, key := range funcutil.SetToOrderedSlice(funcutil.KeySet(im.named)) {
			t := im.named[key]
			if !seen[t] && embeds(t, cur) {
				seen[t] = true
				out = append(out, t)
				queue = append(queue, t)
			}
		}
	}
	return out
}

func embeds(t *types.Named, base *types.Named) bool {
	st, ok := t.Underlying().(*types.Struct)
	if !ok {
		return false
	}
	for i := 0; i < st.NumFields(); i++ {
		field := st.Field(i)
		if e, ok := derefNamed(field.Type()); field.Embedded() && ok && types.Identical(e, base) {
			return true
		}
	}
	return false
}

func derefNamed(t types.Type) (*types.Named, bool) {
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	named, ok := t.(*types.Named)
	return named, ok
}

// IsSubtype returns true if the concrete type named sub implements the interface super, or embeds the type named
// super. The interface must have been seen by Lookup.
func (im *Implementations) IsSubtype(sub string, super string) bool {
	t, ok := im.named[sub]
	if !ok {
		return false
	}
	if base, ok := im.named[super]; ok {
		return funcutil.Contains(im.embedders(base), t)
	}
	im.mu.Lock()
	it, ok := im.ifaces[super]
	im.mu.Unlock()
	return ok && (types.Implements(t, it) || types.Implements(types.NewPointer(t), it))
}

// Keys returns the interface methods looked up so far, sorted.
func (im *Implementations) Keys() []string {
	im.mu.Lock()
	defer im.mu.Unlock()
	return funcutil.SetToOrderedSlice(funcutil.KeySet(im.byKey))
}
