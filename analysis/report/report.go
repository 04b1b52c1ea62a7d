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

// Package report formats the results of the analyses as text, and exports them in the msgpack format.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/awslabs/ar-go-ifds/analysis/ifds"
	"github.com/awslabs/ar-go-ifds/analysis/program"
	"github.com/awslabs/ar-go-ifds/internal/formatutil"
	"github.com/vmihailenco/msgpack/v5"
)

// Finding is a finding with its traces, as strings.
type Finding struct {
	Rule      string     `msgpack:"rule"`
	Message   string     `msgpack:"message"`
	Statement string     `msgpack:"statement"`
	Fact      string     `msgpack:"fact"`
	Position  string     `msgpack:"position,omitempty"`
	Traces    [][]string `msgpack:"traces,omitempty"`
}

// DataStats are the sizes of the computation data of a run.
type DataStats struct {
	Edges      int `msgpack:"edges"`
	Statements int `msgpack:"statements"`
	Facts      int `msgpack:"facts"`
	Summaries  int `msgpack:"summaries"`
	Findings   int `msgpack:"findings"`
}

// Report is the result of one analysis run.
type Report struct {
	Analysis string         `msgpack:"analysis"`
	Status   string         `msgpack:"status"`
	Findings []Finding      `msgpack:"findings"`
	Data     DataStats      `msgpack:"data"`
	Program  *program.Stats `msgpack:"program,omitempty"`
}

// ComputeDataStats returns the sizes of data.
func ComputeDataStats[S, F comparable](data *ifds.ComputationData[S, F]) DataStats {
	stats := DataStats{
		Edges:      len(data.Reasons),
		Statements: len(data.FactsByStatement),
		Summaries:  len(data.SummaryEdges),
		Findings:   len(data.Findings),
	}
	for _, facts := range data.FactsByStatement {
		stats.Facts += len(facts)
	}
	return stats
}

// NewFinding converts a finding with its traces. describe formats a vertex of a trace.
func NewFinding[S, F comparable](f ifds.Finding[S, F], position string, traces [][]ifds.Vertex[S, F],
	describe func(ifds.Vertex[S, F]) string) Finding {
	out := Finding{
		Rule:      f.Rule,
		Message:   f.Message,
		Statement: fmt.Sprint(f.Vertex.Statement),
		Fact:      fmt.Sprint(f.Vertex.Fact),
		Position:  position,
	}
	for _, trace := range traces {
		var steps []string
		for _, v := range trace {
			steps = append(steps, describe(v))
		}
		out.Traces = append(out.Traces, steps)
	}
	return out
}

// WriteText writes the report for a human reader.
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s)\n", formatutil.Bold("Analysis"), r.Analysis, statusColor(r.Status))
	if r.Program != nil {
		writeProgramStats(&b, r.Program)
	}
	fmt.Fprintf(&b, "%s %d edges, %d facts at %d statements, %d summary edges\n", formatutil.Faint("data:"),
		r.Data.Edges, r.Data.Facts, r.Data.Statements, r.Data.Summaries)
	if len(r.Findings) == 0 {
		fmt.Fprintf(&b, "%s\n", formatutil.Green("no findings"))
	}
	for i, f := range r.Findings {
		where := f.Statement
		if f.Position != "" {
			where = f.Position
		}
		fmt.Fprintf(&b, "%s %s: %s\n", formatutil.Red(fmt.Sprintf("[%s #%d]", f.Rule, i+1)), where,
			formatutil.Sanitize(f.Message))
		for j, trace := range f.Traces {
			fmt.Fprintf(&b, "  %s\n", formatutil.Faint(fmt.Sprintf("trace %d:", j+1)))
			for _, step := range trace {
				fmt.Fprintf(&b, "    %s\n", step)
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func statusColor(status string) string {
	if status == ifds.Quiesced.String() {
		return formatutil.Green(status)
	}
	return formatutil.Yellow(status)
}

// WriteProgramStats writes the statistics of a program for a human reader.
func WriteProgramStats(w io.Writer, s *program.Stats) error {
	var b strings.Builder
	writeProgramStats(&b, s)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeProgramStats(b *strings.Builder, s *program.Stats) {
	fmt.Fprintf(b, "%s %d classes, %d methods, %d instructions, %d calls, %d call edges\n",
		formatutil.Faint("program:"), s.Classes, s.Methods, s.Instructions, s.Calls, s.CallEdges)
	if len(s.MethodsWithLoops) > 0 {
		fmt.Fprintf(b, "  methods with loops: %s\n", strings.Join(s.MethodsWithLoops, ", "))
	}
	if len(s.RecursiveMethods) > 0 {
		fmt.Fprintf(b, "  recursive methods: %s\n", strings.Join(s.RecursiveMethods, ", "))
	}
	for _, cycle := range s.CallCycles {
		fmt.Fprintf(b, "  call cycle: %s\n", formatutil.Cyan(strings.Join(cycle, " -> ")))
	}
}

// Encode writes the report in the msgpack format.
func Encode(w io.Writer, r *Report) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// Decode reads a report in the msgpack format.
func Decode(rd io.Reader) (*Report, error) {
	var r Report
	dec := msgpack.NewDecoder(rd)
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

// Save writes the report to the file <dir>/<analysis>.msgpack and returns its name.
func Save(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	filename := filepath.Join(dir, r.Analysis+".msgpack")
	f, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()
	if err := Encode(f, r); err != nil {
		return "", err
	}
	return filename, nil
}

// Load reads the report in filename.
func Load(filename string) (*Report, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
