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
	"github.com/awslabs/ar-go-ifds/analysis/nullness"
	"github.com/awslabs/ar-go-ifds/analysis/report"
	"github.com/awslabs/ar-go-ifds/internal/funcutil"
	"github.com/spf13/cobra"
)

func newNullnessCmd(flags *globalFlags) *cobra.Command {
	var entries []string
	cmd := &cobra.Command{
		Use:     "nullness [flags] <program.yaml | url>",
		Aliases: []string{"npe"},
		Short:   "Reports the calls whose receiver may be null",
		Long: `Runs the nullness analysis from the entry points. A variable assigned the "null" constant may be
null until it is overwritten; it flows through assignments, arguments and returned values. A call on a
receiver that may be null is reported.`,
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
			res, err := nullness.Run(cmd.Context(), p, cfg, logger, methods)
			if err != nil {
				return err
			}
			r := &report.Report{
				Analysis: string(nullness.RunnerID),
				Status:   res.Status.String(),
				Data:     report.ComputeDataStats(res.Data),
				Findings: funcutil.Map(res.Findings, func(f nullness.Finding) report.Finding {
					return report.NewFinding(f, "", res.Traces(f), describeVertex)
				}),
			}
			return emit(cmd, flags, cfg, logger, r)
		},
	}
	cmd.Flags().StringSliceVarP(&entries, "entry", "e", nil, "qualified names of the entry methods")
	return cmd
}
