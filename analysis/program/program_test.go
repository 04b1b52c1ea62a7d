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
	"path/filepath"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-ifds/analysis/config"
	"github.com/awslabs/ar-go-ifds/analysis/ifds"
	"github.com/awslabs/ar-go-ifds/internal/funcutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadShapes(t *testing.T) *Program {
	t.Helper()
	p, err := Load(filepath.Join("testdata", "shapes.yaml"))
	require.NoError(t, err)
	return p
}

func names[T interface{ String() string }](a []T) []string {
	return funcutil.Map(a, func(x T) string { return x.String() })
}

func TestLoad(t *testing.T) {
	p := loadShapes(t)
	assert.Len(t, p.Classes(), 5)
	assert.Equal(t, []string{"app.Circle", "app.Main", "app.Round", "app.Shape", "app.Square"}, names(p.Classes()))

	main, err := p.Method("app.Main.main")
	require.NoError(t, err)
	assert.Equal(t, "app.Main", main.Class.Name)
	assert.Equal(t, "app", main.Class.Package())
	assert.Equal(t, "Main", main.Class.SimpleName())
	assert.Empty(t, main.Parameters())

	area, err := p.Method("app.Square.area")
	require.NoError(t, err)
	assert.Equal(t, []string{This, "x"}, area.Parameters())

	_, err = p.Method("app.Main.nope")
	assert.True(t, errors.Is(err, ErrUnknownMethod))

	call := main.Body[2]
	assert.Equal(t, "app.Main.main:2", call.String())
	assert.Equal(t, "app.Shape", call.CalleeClass())
	assert.Equal(t, "area", call.CalleeName())
	assert.Equal(t, "app.Shape", call.ReceiverType, "receiver type defaults to the callee class")
	assert.Equal(t, []string{"s", "i"}, call.Uses())
	assert.Equal(t, "a", call.Defines())
}

func TestLoadURL(t *testing.T) {
	abs, err := filepath.Abs(filepath.Join("testdata", "shapes.yaml"))
	require.NoError(t, err)
	p, err := LoadURL(context.Background(), "file://"+abs)
	require.NoError(t, err)
	assert.Len(t, p.Methods(), 7)
}

func TestLoadInvalid(t *testing.T) {
	for name, src := range map[string]string{
		"no body":         "classes: [{name: A, methods: [{name: m}]}]",
		"bad target":      "classes: [{name: A, methods: [{name: m, body: [{op: goto, targets: [4]}]}]}]",
		"fall through":    "classes: [{name: A, methods: [{name: m, body: [{op: nop}]}]}]",
		"unknown op":      "classes: [{name: A, methods: [{name: m, body: [{op: jump}, {op: return}]}]}]",
		"bad callee":      "classes: [{name: A, methods: [{name: m, body: [{op: call, callee: f}, {op: return}]}]}]",
		"no receiver":     "classes: [{name: A, methods: [{name: m, body: [{op: call, callee: A.f, virtual: true}, {op: return}]}]}]",
		"duplicate class": "classes: [{name: A}, {name: A}]",
		"cycle":           "classes: [{name: A, super: B}, {name: B, super: A}]",
		"abstract body":   "classes: [{name: A, methods: [{name: m, abstract: true, body: [{op: return}]}]}]",
		"stray targets":   "classes: [{name: A, methods: [{name: m, body: [{op: nop, targets: [0]}, {op: return}]}]}]",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFromBytes(name, []byte(src))
			assert.True(t, errors.Is(err, ErrInvalidProgram), "got %v", err)
		})
	}
	_, err := LoadFromBytes("yaml", []byte("classes: {"))
	assert.Error(t, err)
}

func TestApplicationGraph(t *testing.T) {
	p := loadShapes(t)
	main, _ := p.Method("app.Main.main")
	assert.Equal(t, []string{"app.Main.main:0"}, names(p.EntryPoints(main)))
	assert.Equal(t, []string{"app.Main.main:5"}, names(p.ExitPoints(main)))
	assert.Equal(t, []string{"app.Main.main:4", "app.Main.main:1"}, names(p.Successors(main.Body[3])))
	assert.Empty(t, p.Successors(main.Body[5]))
	assert.True(t, p.IsCall(main.Body[2]))
	assert.False(t, p.IsCall(main.Body[3]))
	assert.Equal(t, main, p.MethodOf(main.Body[4]))

	radius, _ := p.Method("app.Round.radius")
	assert.Empty(t, p.EntryPoints(radius))
}

func TestCallSite(t *testing.T) {
	p := loadShapes(t)
	main, _ := p.Method("app.Main.main")
	site, ok := p.CallSite(main.Body[2])
	require.True(t, ok)
	assert.True(t, site.Virtual)
	assert.Equal(t, []string{"app.Shape.area"}, names(site.Callees))

	square, _ := p.Method("app.Square.area")
	site, ok = p.CallSite(square.Body[0])
	require.True(t, ok)
	assert.Empty(t, site.Callees, "library methods have no callee")

	_, ok = p.CallSite(main.Body[0])
	assert.False(t, ok)

	// inherited methods resolve to the super class
	m, ok := p.LookupMethod("app.Circle", "area")
	require.True(t, ok)
	assert.Equal(t, "app.Shape.area", m.String())
	m, ok = p.LookupMethod("app.Circle", "radius")
	require.True(t, ok)
	assert.Equal(t, "app.Round.radius", m.String())
}

func TestVirtualResolution(t *testing.T) {
	p := loadShapes(t)
	shapeArea, _ := p.Method("app.Shape.area")
	assert.Equal(t, []string{"app.Square.area"}, names(p.FindOverrides(shapeArea)))
	assert.True(t, p.IsSubtype("app.Circle", "app.Round"))
	assert.Equal(t, "app.Shape", p.DeclaringType(shapeArea))

	main, _ := p.Method("app.Main.main")
	r := ifds.NewVirtualCallResolver[*Inst, string, *Method](p, p, nil, nil)
	site, _ := p.CallSite(main.Body[2])
	assert.ElementsMatch(t, []string{"app.Shape.area", "app.Square.area"}, names(r.Callees(site)))
}

func TestChunkStrategies(t *testing.T) {
	p := loadShapes(t)
	main, _ := p.Method("app.Main.main")
	loop, _ := p.Method("app.Main.loop")
	assert.Equal(t, ifds.ChunkID("app.Main"), ClassChunks(main.Body[0]))
	assert.Equal(t, ClassChunks(main.Body[0]), ClassChunks(loop.Body[0]))
	assert.Equal(t, ifds.ChunkID("app.Main.loop"), MethodChunks(loop.Body[2]))
	assert.NotEqual(t, MethodChunks(main.Body[0]), MethodChunks(loop.Body[0]))

	hashed := HashedChunks(4)
	assert.Equal(t, hashed(main.Body[0]), hashed(loop.Body[3]))
	assert.True(t, strings.HasPrefix(string(hashed(main.Body[0])), "bucket-"))
	for _, c := range p.Classes() {
		b := BucketOf(c.Name, 4)
		assert.True(t, b >= 0 && b < 4)
		assert.Equal(t, b, BucketOf(c.Name, 4))
	}

	cfg := config.NewDefault()
	cfg.ChunkStrategy = config.MethodChunkStrategy
	s, err := Strategy(cfg)
	require.NoError(t, err)
	assert.Equal(t, ifds.ChunkID("app.Main.main"), s(main.Body[1]))
	cfg.ChunkStrategy = config.PackageChunkStrategy
	s, err = Strategy(cfg)
	require.NoError(t, err)
	assert.Equal(t, ifds.ChunkID("app"), s(loop.Body[0]))
	cfg.ChunkStrategy = "random"
	_, err = Strategy(cfg)
	assert.True(t, errors.Is(err, config.ErrInvalidOption))
}

func TestComputeStats(t *testing.T) {
	p := loadShapes(t)
	stats := ComputeStats(p)
	assert.Equal(t, 5, stats.Classes)
	assert.Equal(t, 7, stats.Methods)
	assert.Equal(t, 17, stats.Instructions)
	assert.Equal(t, 7, stats.Calls)
	// main -> Shape.area, Square.area, loop; loop -> loop, even; even -> odd; odd -> even
	assert.Equal(t, 7, stats.CallEdges)
	assert.Equal(t, []string{"app.Main.main"}, stats.MethodsWithLoops)
	assert.Equal(t, []string{"app.Main.even", "app.Main.loop", "app.Main.odd"}, stats.RecursiveMethods)
	assert.Len(t, stats.CallCycles, 2)
}
