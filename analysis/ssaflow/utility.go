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
	"go/types"
	"strings"

	"github.com/awslabs/ar-go-ifds/analysis/config"
	"golang.org/x/tools/go/ssa"
)

// packageFromErrorName extracts the package of a synthetic "(pkg.T).Error" function.
func packageFromErrorName(name string) string {
	if !strings.HasSuffix(name, ").Error") {
		return ""
	}
	name = strings.TrimPrefix(name[:len(name)-7], "(")
	name = strings.TrimPrefix(name, "*")
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return name[:i]
}

// PackageNameFromFunction returns the best possible package path for a ssa.Function.
// If the Function has a package, use that. Otherwise, if it is a method, use the package of its object.
func PackageNameFromFunction(f *ssa.Function) string {
	if f == nil {
		return ""
	}
	if pkg := f.Package(); pkg != nil {
		return pkg.Pkg.Path()
	}
	if f.Object() != nil && f.Object().Pkg() != nil {
		return f.Object().Pkg().Path()
	}
	return packageFromErrorName(f.String())
}

// ReceiverTypeName returns the name of the named receiver type of f, or "" if f is not a method.
func ReceiverTypeName(f *ssa.Function) string {
	if f == nil || f.Signature.Recv() == nil {
		return ""
	}
	return namedTypeName(f.Signature.Recv().Type())
}

func namedTypeName(t types.Type) string {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	if n, ok := t.(*types.Named); ok {
		return n.Obj().Name()
	}
	return ""
}

// outermost returns the function in which f is declared, when f is an anonymous function.
func outermost(f *ssa.Function) *ssa.Function {
	for f.Parent() != nil {
		f = f.Parent()
	}
	return f
}

// FindSafeCalleePkg finds the package of the callee in the ssa.CallCommon without panicking.
func FindSafeCalleePkg(n *ssa.CallCommon) (string, bool) {
	if n == nil {
		return "", false
	}
	if n.IsInvoke() && n.Method != nil {
		if pkg := n.Method.Pkg(); pkg != nil {
			return pkg.Path(), true
		}
		return "", false
	}
	if callee := n.StaticCallee(); callee != nil {
		if pkg := PackageNameFromFunction(callee); pkg != "" {
			return pkg, true
		}
	}
	return "", false
}

// FunctionID returns the code identifier of f.
func FunctionID(f *ssa.Function) config.CodeIdentifier {
	return config.CodeIdentifier{
		Package: PackageNameFromFunction(f),
		Type:    ReceiverTypeName(f),
		Method:  f.Name(),
	}
}

// CalleeID returns the code identifier of the callee of a call. For an interface method call, the type is the
// interface. For a call of a function value that is not a static callee, only the package is known, if at all.
func CalleeID(n *ssa.CallCommon) config.CodeIdentifier {
	pkg, _ := FindSafeCalleePkg(n)
	if n.IsInvoke() {
		return config.CodeIdentifier{Package: pkg, Type: namedTypeName(n.Value.Type()), Method: n.Method.Name()}
	}
	if callee := n.StaticCallee(); callee != nil {
		return FunctionID(callee)
	}
	return config.CodeIdentifier{Package: pkg, Method: n.Value.Name()}
}

// CallArgs returns the actual arguments of a call, starting with the receiver of an interface method call.
func CallArgs(n *ssa.CallCommon) []ssa.Value {
	if n.IsInvoke() {
		return append([]ssa.Value{n.Value}, n.Args...)
	}
	return n.Args
}

// FactName is the short name of a fact in reports.
func FactName(v ssa.Value) string {
	if v == nil {
		return "0"
	}
	return v.Name()
}

func usesValue(instr ssa.Instruction, v ssa.Value) bool {
	for _, op := range instr.Operands(nil) {
		if op != nil && *op == v {
			return true
		}
	}
	return false
}
