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
	"github.com/awslabs/ar-go-ifds/analysis/deadstore"
	"github.com/awslabs/ar-go-ifds/analysis/report"
	"github.com/awslabs/ar-go-ifds/internal/funcutil"
	"github.com/spf13/cobra"
)

func newDeadStoreCmd(flags *globalFlags) *cobra.Command {
	var entries []string
	cmd := &cobra.Command{
		Use:     "deadstore [flags] <program.yaml | url>",
		Aliases: []string{"dead-store"},
		Short:   "Reports the assignments whose value is never read",
		Long: `Runs the reaching-definitions analysis from the entry points, and reports the definitions
that reach no statement reading their variable in the reachable methods.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			p, err := loadProgram(cmd, logger, args[0])
			if err != nil {
				return err
			}
			methods, err := entryMethods(p, entries)
			if err != nil {
				return err
			}
			res, err := deadstore.Run(cmd.Context(), p, cfg, logger, methods)
			if err != nil {
				return err
			}
			r := &report.Report{
				Analysis: string(deadstore.RunnerID),
				Status:   res.Status.String(),
				Data:     report.ComputeDataStats(res.Data),
				Findings: funcutil.Map(res.Findings, func(f deadstore.Finding) report.Finding {
					return report.NewFinding(f, "", nil, nil)
				}),
			}
			return emit(cmd, flags, cfg, logger, r)
		},
	}
	cmd.Flags().StringSliceVarP(&entries, "entry", "e", nil, "qualified names of the entry methods")
	return cmd
}
