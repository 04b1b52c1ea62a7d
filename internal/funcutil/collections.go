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

package funcutil

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Union returns the union of map-represented sets a and b. This mutates map a
// @mutates a
func Union[T comparable](a map[T]struct{}, b map[T]struct{}) map[T]struct{} {
	for x := range b {
		a[x] = struct{}{}
	}
	return a
}

// AddToSetMap adds y to the set a[x], creating the set if needed. It returns true if y was not already in the set.
// @mutates a
func AddToSetMap[T comparable, S comparable](a map[T]map[S]struct{}, x T, y S) bool {
	set, ok := a[x]
	if !ok {
		set = map[S]struct{}{}
		a[x] = set
	}
	if _, present := set[y]; present {
		return false
	}
	set[y] = struct{}{}
	return true
}

// Map returns a new slice b such for any i <= len(a), b[i] = f(a[i])
func Map[T any, S any](a []T, f func(T) S) []S {
	var b []S
	for _, x := range a {
		b = append(b, f(x))
	}
	return b
}

// Filter returns a new slice containing the elements x of a such that f(x), in the same order.
func Filter[T any](a []T, f func(T) bool) []T {
	var b []T
	for _, x := range a {
		if f(x) {
			b = append(b, x)
		}
	}
	return b
}

// Exists returns true when there exists some x in slice a such that f(x), otherwise false.
func Exists[T any](a []T, f func(T) bool) bool {
	for _, x := range a {
		if f(x) {
			return true
		}
	}
	return false
}

// Contains returns true when there is some y in slice a such that x == y
func Contains[T comparable](a []T, x T) bool {
	return Exists(a, func(y T) bool { return x == y })
}

// SetToSlice returns the elements of a map-represented set, in no particular order.
func SetToSlice[T comparable](set map[T]struct{}) []T {
	return maps.Keys(set)
}

// KeySet returns the set of keys of m.
func KeySet[K comparable, V any](m map[K]V) map[K]struct{} {
	keys := make(map[K]struct{}, len(m))
	for k := range m {
		keys[k] = struct{}{}
	}
	return keys
}

// SetToOrderedSlice converts a set represented as a map from elements to empty structs into a slice.
// Sorts the result in increasing order
func SetToOrderedSlice[T constraints.Ordered](set map[T]struct{}) []T {
	s := maps.Keys(set)
	slices.Sort(s)
	return s
}
