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

package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newDiamond() *Hierarchy {
	h := New()
	h.AddType("B")
	h.AddType("C1", "B")
	h.AddType("C2", "B")
	h.AddType("D", "C2", "I")
	return h
}

func TestIsSubtype(t *testing.T) {
	h := newDiamond()
	assert.True(t, h.IsSubtype("C1", "B"))
	assert.True(t, h.IsSubtype("D", "B"))
	assert.True(t, h.IsSubtype("D", "I"))
	assert.True(t, h.IsSubtype("B", "B"))
	assert.True(t, h.IsSubtype("Unknown", "Unknown"))
	assert.False(t, h.IsSubtype("B", "C1"))
	assert.False(t, h.IsSubtype("C1", "C2"))
	assert.False(t, h.IsSubtype("D", "Unknown"))
	// cached answers are the same
	assert.True(t, h.IsSubtype("D", "B"))
	assert.False(t, h.IsSubtype("B", "C1"))
}

func TestSubtypes(t *testing.T) {
	h := newDiamond()
	assert.ElementsMatch(t, []string{"C1", "C2", "D"}, h.Subtypes("B"))
	assert.Equal(t, []string{"D"}, h.Subtypes("C2"))
	assert.Empty(t, h.Subtypes("C1"))
	assert.Nil(t, h.Subtypes("Unknown"))

	// adding a type invalidates the caches
	h.AddType("C3", "B")
	assert.ElementsMatch(t, []string{"C1", "C2", "C3", "D"}, h.Subtypes("B"))
	assert.True(t, h.IsSubtype("C3", "B"))
}

func TestTypesAndSupers(t *testing.T) {
	h := newDiamond()
	assert.Equal(t, []string{"B", "C1", "C2", "D", "I"}, h.Types())
	assert.Equal(t, []string{"C2", "I"}, h.Supers("D"))
	assert.Empty(t, h.Supers("B"))
	assert.True(t, h.Has("I"))
	assert.False(t, h.Has("J"))
}
