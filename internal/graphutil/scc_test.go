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

package graphutil_test

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/awslabs/ar-go-ifds/internal/graphutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type intGraph map[int][]int

func (m intGraph) nodes() []int {
	var ns []int
	for n := range m {
		ns = append(ns, n)
	}
	sort.Ints(ns)
	return ns
}

func (m intGraph) successors(n int) []int { return m[n] }

func (m intGraph) reaches(x, y int) bool {
	seen := map[int]bool{}
	stack := []int{x}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, m[n]...)
	}
	return seen[y]
}

// checkComponents checks that every node is in exactly one component, that the nodes of a component reach each other
// and that no component reaches a later one.
func checkComponents(t *testing.T, m intGraph) {
	t.Helper()
	sccs := graphutil.StronglyConnectedComponents(m.nodes(), m.successors)
	position := map[int]int{}
	for i, scc := range sccs {
		for _, x := range scc {
			_, dup := position[x]
			require.False(t, dup, "%d in two components of %v", x, m)
			position[x] = i
		}
	}
	require.Len(t, position, len(m), "every node of %v is in a component", m)
	for x, i := range position {
		for y, j := range position {
			switch {
			case i == j:
				assert.True(t, m.reaches(x, y), "%d and %d are in one component of %v", x, y, m)
			case i < j:
				assert.False(t, m.reaches(x, y), "%d comes before %d that it reaches in %v", x, y, m)
			}
		}
	}
}

func randomGraph(size int, seed int64) intGraph {
	m := intGraph{}
	r := rand.New(rand.NewSource(seed))
	for i := 0; i < size; i++ {
		m[i] = []int{}
		for j := 0; j < 3; j++ {
			if r.Float32() < 0.7 {
				m[i] = append(m[i], r.Intn(size))
			}
		}
	}
	return m
}

func TestStronglyConnectedComponents(t *testing.T) {
	for _, m := range []intGraph{
		{0: {0}},
		{0: {}},
		{0: {0, 1}, 1: {}},
		{0: {1, 2}, 1: {3}, 2: {1}, 3: {}},
		{0: {1, 2}, 1: {3}, 2: {1, 0}, 3: {}},
		{0: {3, 1}, 1: {0}, 2: {1}, 3: {3}},
	} {
		checkComponents(t, m)
	}
	for i := 0; i < 50; i++ {
		checkComponents(t, randomGraph(10, 68348438+int64(i)))
	}
	for i := 0; i < 5; i++ {
		checkComponents(t, randomGraph(40, 184618+int64(i)))
	}
}

func TestStronglyConnectedComponentsCycle(t *testing.T) {
	sccs := graphutil.StronglyConnectedComponents([]string{"a"}, func(n string) []string {
		return map[string][]string{"a": {"b"}, "b": {"c"}, "c": {"a", "d"}}[n]
	})
	require.Len(t, sccs, 2)
	assert.Equal(t, []string{"d"}, sccs[0])
	assert.ElementsMatch(t, []string{"a", "b", "c"}, sccs[1])
}
