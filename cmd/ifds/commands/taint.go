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
	"fmt"

	"github.com/awslabs/ar-go-ifds/analysis/program"
	"github.com/awslabs/ar-go-ifds/analysis/report"
	"github.com/awslabs/ar-go-ifds/analysis/taint"
	"github.com/awslabs/ar-go-ifds/internal/funcutil"
	"github.com/spf13/cobra"
)

func newTaintCmd(flags *globalFlags) *cobra.Command {
	var entries []string
	cmd := &cobra.Command{
		Use:   "taint [flags] <program.yaml | url>",
		Short: "Runs the taint analysis on a program file",
		Long: `Runs the taint analysis on a program file, or on a program file downloaded from a URL.
The sources, sinks and sanitizers are the taint tracking problems of the config. Every method named
main is an entry point unless --entry is set.`,
		Example: "  ifds taint -c config.yaml --entry app.Main.main program.yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			if len(cfg.TaintTrackingProblems) == 0 {
				logger.Warnf("no taint tracking problem in the config, the analysis cannot report findings")
			}
			p, err := loadProgram(cmd, logger, args[0])
			if err != nil {
				return err
			}
			methods, err := entryMethods(p, entries)
			if err != nil {
				return err
			}
			logger.Infof("starting taint analysis from %d entry points", len(methods))
			res, err := taint.Run(cmd.Context(), p, cfg, logger, methods)
			if err != nil {
				return err
			}
			r := &report.Report{
				Analysis: string(taint.RunnerID),
				Status:   res.Status.String(),
				Data:     report.ComputeDataStats(res.Data),
				Findings: funcutil.Map(res.Findings, func(f taint.Finding) report.Finding {
					return report.NewFinding(f, "", res.Traces(f), describeVertex)
				}),
			}
			return emit(cmd, flags, cfg, logger, r)
		},
	}
	cmd.Flags().StringSliceVarP(&entries, "entry", "e", nil, "qualified names of the entry methods")
	return cmd
}

// describeVertex describes a vertex of the analyses whose facts are variable names.
func describeVertex(v taint.Vertex) string {
	if v.Fact == taint.Zero {
		return v.Statement.String()
	}
	return fmt.Sprintf("%s %s", v.Statement, v.Fact)
}

// entryMethods returns the methods named by their qualified names, or the main methods.
func entryMethods(p *program.Program, names []string) ([]*program.Method, error) {
	methods, err := taint.Entries(p, names)
	if err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no entry point to analyze")
	}
	return methods, nil
}
