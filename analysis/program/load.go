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
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/awslabs/ar-go-ifds/analysis/hierarchy"
	"github.com/awslabs/ar-go-ifds/internal/graphutil"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// ErrInvalidProgram is returned (wrapped) when a program file is well-formed YAML but not a valid program.
var ErrInvalidProgram = errors.New("invalid program")

type programFile struct {
	Classes []classFile `yaml:"classes"`
}

type classFile struct {
	Name       string       `yaml:"name"`
	Super      string       `yaml:"super"`
	Interfaces []string     `yaml:"interfaces"`
	Methods    []methodFile `yaml:"methods"`
}

type methodFile struct {
	Name     string     `yaml:"name"`
	Params   []string   `yaml:"params"`
	Static   bool       `yaml:"static"`
	Abstract bool       `yaml:"abstract"`
	Body     []instFile `yaml:"body"`
}

type instFile struct {
	Op           Op       `yaml:"op"`
	Lhs          string   `yaml:"lhs"`
	Rhs          string   `yaml:"rhs"`
	Value        string   `yaml:"value"`
	Callee       string   `yaml:"callee"`
	Args         []string `yaml:"args"`
	Virtual      bool     `yaml:"virtual"`
	Receiver     string   `yaml:"receiver"`
	ReceiverType string   `yaml:"receiver-type"`
	Cond         string   `yaml:"cond"`
	Targets      []int    `yaml:"targets"`
}

// Load reads a program from a file
func Load(filename string) (*Program, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read program file: %w", err)
	}
	return LoadFromBytes(filename, b)
}

// LoadURL reads a program from any location supported by afs (file://, mem://, s3://, ...).
func LoadURL(ctx context.Context, url string) (*Program, error) {
	fs := afs.New()
	b, err := fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("could not download program %s: %w", url, err)
	}
	return LoadFromBytes(url, b)
}

// LoadFromBytes parses and validates the program in b. The name is only used in messages.
func LoadFromBytes(name string, b []byte) (*Program, error) {
	var pf programFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("could not unmarshal program file: %w", err)
	}
	p := &Program{
		Name:      name,
		classes:   map[string]*Class{},
		methods:   map[string]*Method{},
		hierarchy: hierarchy.New(),
	}
	for _, cf := range pf.Classes {
		if err := p.addClass(cf); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := p.checkHierarchy(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidProgram)
}

func (p *Program) addClass(cf classFile) error {
	if cf.Name == "" {
		return invalid("class without a name")
	}
	if _, dup := p.classes[cf.Name]; dup {
		return invalid("class %s is declared twice", cf.Name)
	}
	if cf.Super == cf.Name {
		return invalid("class %s extends itself", cf.Name)
	}
	c := &Class{Name: cf.Name, Super: cf.Super, Interfaces: cf.Interfaces, byName: map[string]*Method{}}
	p.classes[c.Name] = c
	p.hierarchy.AddType(c.Name, append([]string{c.Super}, c.Interfaces...)...)
	for _, mf := range cf.Methods {
		m, err := newMethod(c, mf)
		if err != nil {
			return err
		}
		if _, dup := c.byName[m.Name]; dup {
			return invalid("method %s is declared twice", m)
		}
		c.byName[m.Name] = m
		c.Methods = append(c.Methods, m)
		p.methods[m.String()] = m
	}
	return nil
}

func newMethod(c *Class, mf methodFile) (*Method, error) {
	m := &Method{Class: c, Name: mf.Name, Params: mf.Params, Static: mf.Static, Abstract: mf.Abstract}
	if mf.Name == "" || strings.Contains(mf.Name, ".") {
		return nil, invalid("invalid method name %q in class %s", mf.Name, c.Name)
	}
	if m.Abstract {
		if len(mf.Body) > 0 {
			return nil, invalid("abstract method %s has a body", m)
		}
		return m, nil
	}
	if len(mf.Body) == 0 {
		return nil, invalid("method %s has no instructions", m)
	}
	for idx, f := range mf.Body {
		inst := &Inst{
			Method:       m,
			Index:        idx,
			Op:           f.Op,
			Lhs:          f.Lhs,
			Rhs:          f.Rhs,
			Value:        f.Value,
			Callee:       f.Callee,
			Args:         f.Args,
			Virtual:      f.Virtual,
			Receiver:     f.Receiver,
			ReceiverType: f.ReceiverType,
			Cond:         f.Cond,
			Targets:      f.Targets,
		}
		if err := inst.check(len(mf.Body)); err != nil {
			return nil, err
		}
		m.Body = append(m.Body, inst)
	}
	if last := m.Body[len(m.Body)-1]; last.Op != Return && last.Op != Goto {
		return nil, invalid("%s: the last instruction must be a return or a goto", last)
	}
	return m, nil
}

func (i *Inst) check(size int) error {
	switch i.Op {
	case Assign:
		if i.Lhs == "" || i.Rhs == "" {
			return invalid("%s: assign needs lhs and rhs", i)
		}
	case Const:
		if i.Lhs == "" {
			return invalid("%s: const needs lhs", i)
		}
	case Call:
		if !strings.Contains(i.Callee, ".") {
			return invalid("%s: callee %q is not of the form Class.method", i, i.Callee)
		}
		if i.Virtual && i.Receiver == "" {
			return invalid("%s: virtual call without receiver", i)
		}
		if i.Virtual && i.ReceiverType == "" {
			i.ReceiverType = i.CalleeClass()
		}
	case If:
		if i.Cond == "" || len(i.Targets) == 0 {
			return invalid("%s: if needs cond and targets", i)
		}
	case Goto:
		if len(i.Targets) == 0 {
			return invalid("%s: goto needs targets", i)
		}
	case Return, Nop:
	default:
		return invalid("%s: unknown op %q", i, i.Op)
	}
	if len(i.Targets) > 0 && i.Op != If && i.Op != Goto {
		return invalid("%s: only if and goto have targets", i)
	}
	for _, t := range i.Targets {
		if t < 0 || t >= size {
			return invalid("%s: target %d out of range", i, t)
		}
	}
	return nil
}

// checkHierarchy rejects cyclic class hierarchies.
func (p *Program) checkHierarchy() error {
	sccs := graphutil.StronglyConnectedComponents(p.hierarchy.Types(), p.hierarchy.Supers)
	for _, scc := range sccs {
		if len(scc) > 1 {
			return invalid("cyclic class hierarchy through %s", strings.Join(scc, ", "))
		}
	}
	return nil
}
