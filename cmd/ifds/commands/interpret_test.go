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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHintForErrorMessage(t *testing.T) {
	for _, tc := range []struct {
		msg  string
		hint string
	}{
		{"could not load program: -: named files must be .go files: -v", "flags should be before the packages"},
		{"could not load program: could not read program file: open x.yaml: no such file",
			"leads to a program file"},
		{"cannot load program: 2 errors in packages", "patterns match Go packages"},
		{"could not load program: method main: bad target 9: invalid program", "check the program file"},
		{"no entry point to analyze", "--entry"},
	} {
		assert.Contains(t, HintForErrorMessage(tc.msg), tc.hint, tc.msg)
	}
	assert.Empty(t, HintForErrorMessage("the analysis reported findings"))
}
