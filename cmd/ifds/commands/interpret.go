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

package commands

import "regexp"

// Captures errors happening before any analysis starts (program could not load)
var regexCouldNotLoad = regexp.MustCompile("(could not|cannot) load program")

// Captures the kind of error that happen when you put a flag at the end instead of go files
var namedFilesMustBeGoFiles = regexp.MustCompile(`named files must be \.go files: -(\w)`)

// Captures errors in program files
var invalidProgram = regexp.MustCompile("invalid program|could not unmarshal program")

// Captures analyses started without any entry point
var noEntryPoint = regexp.MustCompile("no entry point to analyze")

// HintForErrorMessage looks for specific error message and returns some other message that might help the user
// resolve the problem.
func HintForErrorMessage(errMsg string) string {
	if regexCouldNotLoad.MatchString(errMsg) {
		if namedFilesMustBeGoFiles.MatchString(errMsg) {
			return "all command line flags should be before the packages to analyze"
		}
		if invalidProgram.MatchString(errMsg) {
			return "check the program file: every class, method and instruction must be well formed"
		}
		return "make sure the path or URL leads to a program file, or that the patterns match Go packages"
	}
	if noEntryPoint.MatchString(errMsg) {
		return "name the entry points with --entry, or define a main method or a source in the config"
	}
	return ""
}
