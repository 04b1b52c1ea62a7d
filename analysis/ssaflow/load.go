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
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"os"
	"strings"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// ErrLoad is returned (wrapped) when the packages cannot be loaded or built.
var ErrLoad = errors.New("cannot load program")

// PkgLoadMode is the loading mode of the packages: the analysis needs the syntax and the types of every package.
const PkgLoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes |
	packages.NeedModule

// LoadedProgram is a program in SSA form with the packages that were requested.
type LoadedProgram struct {
	// Program is the SSA version of the program.
	Program *ssa.Program
	// Packages are the SSA packages matched by the load patterns. Only their functions are analyzed.
	Packages []*ssa.Package
	// Directives maps source lines to the directive comment on that line.
	Directives Directives
}

// LoadProgram loads the packages matching the patterns on platform (the host platform when empty) and builds their
// SSA form. To understand how to specify the patterns, look at the documentation of packages.Load.
func LoadProgram(cfg *packages.Config, platform string, buildmode ssa.BuilderMode,
	patterns []string) (LoadedProgram, error) {
	if cfg == nil {
		cfg = &packages.Config{
			Mode:  PkgLoadMode,
			Tests: false,
			Fset:  token.NewFileSet(),
		}
	}
	if platform != "" {
		cfg.Env = append(os.Environ(), fmt.Sprintf("GOOS=%s", platform))
	}

	initial, err := packages.Load(cfg, patterns...)
	if err != nil {
		return LoadedProgram{}, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	if len(initial) == 0 {
		return LoadedProgram{}, fmt.Errorf("%w: no packages", ErrLoad)
	}
	if n := packages.PrintErrors(initial); n > 0 {
		return LoadedProgram{}, fmt.Errorf("%w: %d errors in packages", ErrLoad, n)
	}

	prog, ssaPkgs := ssautil.AllPackages(initial, buildmode)
	for i, p := range ssaPkgs {
		if p == nil {
			return LoadedProgram{}, fmt.Errorf("%w: cannot build SSA for package %s", ErrLoad, initial[i])
		}
	}
	prog.Build()

	return LoadedProgram{Program: prog, Packages: ssaPkgs, Directives: findDirectives(initial, prog.Fset)}, nil
}

// Directives represents a map of directive position to directive.
type Directives map[DirectivePos]DirectiveKind

// DirectivePos is the line of a directive.
type DirectivePos struct {
	Filename string
	Line     int
}

// NewDirectivePos creates a DirectivePos from a token.Position.
func NewDirectivePos(pos token.Position) DirectivePos {
	return DirectivePos{Filename: pos.Filename, Line: pos.Line}
}

// DirectiveKind is the kind of a directive comment `//ifds:kind`.
type DirectiveKind string

const (
	// DirectiveIgnore drops the findings on the line of the directive.
	DirectiveIgnore DirectiveKind = "ignore"
)

// Ignored returns true if there is an ignore directive on the line of pos.
func (d Directives) Ignored(pos token.Position) bool {
	return pos.IsValid() && d[NewDirectivePos(pos)] == DirectiveIgnore
}

// ParseDirective returns the kind of the directive in the comment text, if it is one.
func ParseDirective(text string) (DirectiveKind, bool) {
	_, after, found := strings.Cut(text, "ifds:")
	if !found {
		return "", false
	}
	switch k := DirectiveKind(strings.TrimSpace(after)); k {
	case DirectiveIgnore:
		return k, true
	default:
		return "", false
	}
}

func findDirectives(pkgs []*packages.Package, fset *token.FileSet) Directives {
	res := Directives{}
	for _, p := range pkgs {
		for _, f := range p.Syntax {
			mapComments(f, func(c *ast.Comment) {
				pos := fset.Position(c.Pos())
				if !pos.IsValid() {
					return
				}
				if k, ok := ParseDirective(c.Text); ok {
					res[NewDirectivePos(pos)] = k
				}
			})
		}
	}
	return res
}

func mapComments(f *ast.File, fmap func(*ast.Comment)) {
	for _, group := range f.Comments {
		for _, c := range group.List {
			fmap(c)
		}
	}
}
