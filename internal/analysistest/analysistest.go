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

// Package analysistest loads the Go test programs of the analyses and reads the flows they are annotated with.
package analysistest

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-ifds/analysis/config"
	"github.com/awslabs/ar-go-ifds/analysis/ssaflow"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
)

// LoadTest loads the program in the directory dir, looking for a main.go and a config.yaml. If additional files
// are specified as extraFiles, the program will be loaded using those files too.
func LoadTest(t *testing.T, dir string, extraFiles []string) (*ssaflow.Program, *config.Config) {
	t.Helper()
	files := []string{filepath.Join(dir, "main.go")}
	for _, extraFile := range extraFiles {
		files = append(files, filepath.Join(dir, extraFile))
	}
	lp, err := ssaflow.LoadProgram(nil, "", ssa.BuilderMode(0), files)
	require.NoError(t, err, "loading %s", dir)
	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err, "loading config of %s", dir)
	return ssaflow.FromLoaded(lp), cfg
}

// SourceRegex matches annotations of the form "@Source(id1, id2, id3)"
var SourceRegex = regexp.MustCompile(`//.*@Source\(((?:\s*\w\s*,?)+)\)`)

// SinkRegex matches annotations of the form "@Sink(id1, id2, id3)"
var SinkRegex = regexp.MustCompile(`//.*@Sink\(((?:\s*\w\s*,?)+)\)`)

// LPos is a line in a file, identified by its base name.
type LPos struct {
	Filename string
	Line     int
}

func (p LPos) String() string {
	return fmt.Sprintf("%s:%d", p.Filename, p.Line)
}

// RemoveColumn returns the line of pos.
func RemoveColumn(pos token.Position) LPos {
	return LPos{Line: pos.Line, Filename: filepath.Base(pos.Filename)}
}

// GetExpectedSourceToSink analyzes the Go files in dir and looks for comments @Source(id) and @Sink(id) to construct
// expected flows from sources to sink in the form of a map from sink positions to all the source positions that
// reach that sink.
func GetExpectedSourceToSink(t *testing.T, dir string) map[LPos]map[LPos]bool {
	t.Helper()
	fset := token.NewFileSet()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var files []*ast.File
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, e.Name()), nil, parser.ParseComments)
		require.NoError(t, err)
		files = append(files, f)
	}

	sourceIds := map[string]LPos{}
	forEachAnnotation(fset, files, SourceRegex, func(id string, pos LPos) {
		sourceIds[id] = pos
	})
	source2sink := map[LPos]map[LPos]bool{}
	forEachAnnotation(fset, files, SinkRegex, func(id string, pos LPos) {
		sourcePos, ok := sourceIds[id]
		if !ok {
			t.Fatalf("sink annotation at %s refers to unknown source %q", pos, id)
		}
		if _, ok := source2sink[pos]; !ok {
			source2sink[pos] = map[LPos]bool{}
		}
		source2sink[pos][sourcePos] = true
	})
	return source2sink
}

func forEachAnnotation(fset *token.FileSet, files []*ast.File, re *regexp.Regexp, f func(id string, pos LPos)) {
	for _, file := range files {
		for _, group := range file.Comments {
			for _, c := range group.List {
				a := re.FindStringSubmatch(c.Text)
				if len(a) <= 1 {
					continue
				}
				for _, ident := range strings.Split(a[1], ",") {
					f(strings.TrimSpace(ident), RemoveColumn(fset.Position(c.Pos())))
				}
			}
		}
	}
}
