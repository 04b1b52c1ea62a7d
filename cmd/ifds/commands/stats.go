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
	"github.com/awslabs/ar-go-ifds/analysis/program"
	"github.com/awslabs/ar-go-ifds/analysis/report"
	"github.com/spf13/cobra"
)

func newStatsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [flags] <program.yaml | url>",
		Short: "Prints statistics about a program file",
		Long: `Prints the sizes of a program file, the methods with loops, the recursive methods and the
cycles of its call graph.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			p, err := loadProgram(cmd, logger, args[0])
			if err != nil {
				return err
			}
			stats := program.ComputeStats(p)
			return report.WriteProgramStats(cmd.OutOrStdout(), &stats)
		},
	}
}
