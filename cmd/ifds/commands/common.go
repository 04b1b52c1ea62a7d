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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/awslabs/ar-go-ifds/analysis/config"
	"github.com/awslabs/ar-go-ifds/analysis/program"
	"github.com/awslabs/ar-go-ifds/analysis/report"
	"github.com/awslabs/ar-go-ifds/internal/formatutil"
	"github.com/spf13/cobra"
)

// ErrFindings is returned when --fail-on-findings is set and the analysis reported findings.
var ErrFindings = errors.New("the analysis reported findings")

// setup loads the config and builds the logger of a command. The logs go to the error output of the command.
func setup(cmd *cobra.Command, flags *globalFlags) (*config.Config, *config.LogGroup, error) {
	if flags.noColor {
		formatutil.SetColors(false)
	}
	cfg := config.NewDefault()
	if flags.configPath != "" {
		config.SetGlobalConfig(flags.configPath)
		loaded, err := config.LoadGlobal()
		if err != nil {
			return nil, nil, fmt.Errorf("could not load config %q: %w", flags.configPath, err)
		}
		cfg = loaded
	}
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(cmd.ErrOrStderr())
	if flags.verbose && !cfg.Verbose() {
		logger.SetLevel(config.DebugLevel)
	}
	return cfg, logger, nil
}

// loadProgram loads a program file, or downloads it when the argument is a URL.
func loadProgram(cmd *cobra.Command, logger *config.LogGroup, arg string) (*program.Program, error) {
	var (
		p   *program.Program
		err error
	)
	if strings.Contains(arg, "://") {
		p, err = program.LoadURL(cmd.Context(), arg)
	} else {
		p, err = program.Load(arg)
	}
	if err != nil {
		return nil, fmt.Errorf("could not load program: %w", err)
	}
	logger.Debugf("loaded %d classes from %s", len(p.Classes()), arg)
	return p, nil
}

// emit writes the report on the output of the command, and exports it when requested by the flags or the config.
func emit(cmd *cobra.Command, flags *globalFlags, cfg *config.Config, logger *config.LogGroup,
	r *report.Report) error {
	if err := report.WriteText(cmd.OutOrStdout(), r); err != nil {
		return err
	}
	if flags.out != "" {
		if err := writeReport(flags.out, r); err != nil {
			return err
		}
		logger.Infof("report written to %s", flags.out)
	}
	if cfg.ReportData {
		filename, err := report.Save(cfg.ReportsDir, r)
		if err != nil {
			return err
		}
		logger.Infof("report saved in %s", filename)
	}
	if flags.failOnFindings && len(r.Findings) > 0 {
		return fmt.Errorf("%w: %d findings", ErrFindings, len(r.Findings))
	}
	return nil
}

func writeReport(filename string, r *report.Report) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create report file: %w", err)
	}
	defer f.Close()
	return report.Encode(f, r)
}
