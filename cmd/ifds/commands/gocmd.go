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
	"go/token"

	"github.com/awslabs/ar-go-ifds/analysis/report"
	"github.com/awslabs/ar-go-ifds/analysis/ssaflow"
	"github.com/awslabs/ar-go-ifds/internal/formatutil"
	"github.com/awslabs/ar-go-ifds/internal/funcutil"
	"github.com/spf13/cobra"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
)

func newGoCmd(flags *globalFlags) *cobra.Command {
	var (
		entries  []string
		platform string
		tests    bool
	)
	cmd := &cobra.Command{
		Use:   "go [flags] <packages...>",
		Short: "Runs the taint analysis on Go packages",
		Long: `Loads the Go packages matching the patterns, builds their SSA form and runs the taint analysis on
the functions of those packages. The entry points are the main functions and the source functions,
unless --entry is set. Calls on interfaces are resolved to every implementation in the program.
A line commented with //ifds:ignore reports no finding.`,
		Example: "  ifds go -c config.yaml ./cmd/server",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			pcfg := &packages.Config{
				Mode:    ssaflow.PkgLoadMode,
				Tests:   tests,
				Fset:    token.NewFileSet(),
				Context: cmd.Context(),
			}
			lp, err := ssaflow.LoadProgram(pcfg, platform, ssa.InstantiateGenerics, args)
			if err != nil {
				return err
			}
			p := ssaflow.FromLoaded(lp)
			logger.Debugf("loaded %d packages, %d functions analyzed", len(lp.Packages), len(p.Functions()))
			fs, err := ssaflow.Entries(p, cfg, entries)
			if err != nil {
				return err
			}
			if len(fs) == 0 {
				return fmt.Errorf("no entry point to analyze")
			}
			logger.Infof("starting go taint analysis from %d entry points", len(fs))
			res, err := ssaflow.Run(cmd.Context(), p, cfg, logger, fs)
			if err != nil {
				return err
			}
			describe := func(v ssaflow.Vertex) string {
				return fmt.Sprintf("%s %s %s", formatutil.Faint(p.Position(v.Statement)),
					formatutil.SanitizeRepr(v.Statement), ssaflow.FactName(v.Fact))
			}
			r := &report.Report{
				Analysis: string(ssaflow.RunnerID),
				Status:   res.Status.String(),
				Data:     report.ComputeDataStats(res.Data),
				Findings: funcutil.Map(res.Findings, func(f ssaflow.Finding) report.Finding {
					return report.NewFinding(f, res.Position(f).String(), res.Traces(f), describe)
				}),
			}
			return emit(cmd, flags, cfg, logger, r)
		},
	}
	cmd.Flags().StringSliceVarP(&entries, "entry", "e", nil, "full names of the entry functions, e.g. main.main")
	cmd.Flags().StringVar(&platform, "platform", "", "GOOS of the analyzed program (the host's if empty)")
	cmd.Flags().BoolVar(&tests, "tests", false, "also load the test packages")
	return cmd
}
