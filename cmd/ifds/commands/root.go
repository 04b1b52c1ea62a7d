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

// Package commands implements the commands of the ifds tool.
package commands

import (
	"github.com/spf13/cobra"
)

// Version of the ifds tool
const Version = "v0.1.0"

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath     string
	verbose        bool
	noColor        bool
	out            string
	failOnFindings bool
}

// NewRootCmd returns the root command of the ifds tool, with all its subcommands.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "ifds",
		Short: "Interprocedural dataflow analyses on an actor-based IFDS engine",
		Long: `ifds runs interprocedural, finite, distributive, subset (IFDS) dataflow analyses.
The analyses are solved by actors: each chunk of the program is owned by one actor, and the
path edges of the analysis are exchanged as messages between them.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file (default config if empty)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "verbose logging (overrides the log level of the config)")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colors in the output")
	pf.StringVarP(&flags.out, "out", "o", "", "write the report to this file in the msgpack format")
	pf.BoolVar(&flags.failOnFindings, "fail-on-findings", false, "exit with an error if the analysis reports findings")

	root.AddCommand(
		newTaintCmd(flags),
		newDeadStoreCmd(flags),
		newNullnessCmd(flags),
		newGoCmd(flags),
		newStatsCmd(flags),
	)
	return root
}
