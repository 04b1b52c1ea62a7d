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

package config

import (
	"fmt"
	"regexp"
)

// A CodeIdentifier identifies a code element that is a source, sink or sanitizer.
// A code identifier can be identified from its package, type and method, or any combination of those.
// For the class-based front-end, the type is the class name; for Go programs it is the receiver type name.
type CodeIdentifier struct {
	Package string
	Type    string
	Method  string
	// This will not be part of the yaml config
	computedRegexs *CodeIdentifierRegex
}

// CodeIdentifierRegex holds the compiled regexes of a code identifier.
type CodeIdentifierRegex struct {
	packageRegex *regexp.Regexp
	typeRegex    *regexp.Regexp
	methodRegex  *regexp.Regexp
}

// CompileRegexes compiles the fields of the code identifier into regexes. If one of the fields is not a valid
// regex, the identifier is returned unchanged with the error, and it will match by string equality.
func CompileRegexes(cid CodeIdentifier) (CodeIdentifier, error) {
	var regexes [3]*regexp.Regexp
	for i, field := range []string{cid.Package, cid.Type, cid.Method} {
		r, err := regexp.Compile(field)
		if err != nil {
			return cid, fmt.Errorf("%w: code identifier %q: %v", ErrInvalidOption, field, err)
		}
		regexes[i] = r
	}
	cid.computedRegexs = &CodeIdentifierRegex{regexes[0], regexes[1], regexes[2]}
	return cid, nil
}

// equalOnNonEmptyFields returns true if each of the receiver's fields are either equal to the corresponding
// argument's field, or the argument's field is empty
func (cid CodeIdentifier) equalOnNonEmptyFields(cidRef CodeIdentifier) bool {
	if cidRef.computedRegexs != nil {
		return ((cidRef.computedRegexs.packageRegex.MatchString(cid.Package)) || (cidRef.Package == "")) &&
			((cidRef.computedRegexs.methodRegex.MatchString(cid.Method)) || (cidRef.Method == "")) &&
			(cidRef.computedRegexs.typeRegex.MatchString(cid.Type) || (cidRef.Type == ""))
	} else {
		return ((cid.Package == cidRef.Package) || (cidRef.Package == "")) &&
			((cid.Method == cidRef.Method) || (cidRef.Method == "")) &&
			((cid.Type == cidRef.Type) || (cidRef.Type == ""))
	}
}
