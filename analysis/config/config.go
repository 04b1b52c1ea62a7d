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

package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/awslabs/ar-go-ifds/internal/funcutil"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string

	// ErrInvalidOption is returned (wrapped) when a loaded config contains an option value that cannot be used.
	ErrInvalidOption = errors.New("invalid config option")
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config contains the options of the solver and the taint tracking problems.
// To add elements to a config file, add fields to this struct.
// If some field is not defined in the config file, it will be empty/zero in the struct.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:"options"`

	sourceFile string

	// TaintTrackingProblems lists the taint tracking specifications
	TaintTrackingProblems []TaintSpec `yaml:"taint-tracking-problems"`
}

// TaintSpec contains code identifiers that identify a specific taint tracking problem
type TaintSpec struct {
	// Sanitizers is the list of sanitizers for the taint analysis
	Sanitizers []CodeIdentifier

	// Sinks is the list of sinks for the taint analysis
	Sinks []CodeIdentifier

	// Sources is the list of sources for the taint analysis
	Sources []CodeIdentifier
}

// Options holds the settings of the solver runtime.
type Options struct {
	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// Timeout is the wall-clock budget of one analysis run. When the timeout fires before the analysis quiesces, the
	// run stops and the results computed so far are returned. A zero timeout waits for quiescence.
	Timeout time.Duration `yaml:"timeout"`

	// WorkerPoolSize is the number of workers owned by every runner manager.
	WorkerPoolSize int `yaml:"worker-pool-size"`

	// WorkerPoolStrategy is either "round-robin" or "first-ready".
	WorkerPoolStrategy string `yaml:"worker-pool-strategy"`

	// BannedPackagePrefixes lists the prefixes of the declaring types whose methods are never entered.
	BannedPackagePrefixes []string `yaml:"banned-package-prefixes"`

	// ChunkStrategy selects how statements are partitioned: "class", "package", "method" or "hashed".
	ChunkStrategy string `yaml:"chunk-strategy"`

	// ChunkBuckets is the number of chunks used by the "hashed" chunk strategy.
	ChunkBuckets int `yaml:"chunk-buckets"`

	// ReportsDir is the directory where the reports are stored. If ReportData is set but no directory is specified,
	// a directory is created next to the config file.
	ReportsDir string `yaml:"reports-dir"`

	// ReportData specifies whether the computation data should be exported in the reports directory.
	ReportData bool `yaml:"report-data"`

	// Suppress warnings
	SilenceWarn bool `yaml:"silence-warn"`
}

// NewDefault returns an empty default config.
func NewDefault() *Config {
	return &Config{
		sourceFile:            "",
		TaintTrackingProblems: nil,
		Options: Options{
			LogLevel:              int(InfoLevel),
			Timeout:               DefaultTimeout,
			WorkerPoolSize:        DefaultWorkerPoolSize,
			WorkerPoolStrategy:    RoundRobinStrategy,
			BannedPackagePrefixes: append([]string{}, DefaultBannedPackagePrefixes...),
			ChunkStrategy:         ClassChunkStrategy,
			ChunkBuckets:          DefaultChunkBuckets,
			ReportsDir:            "",
			ReportData:            false,
			SilenceWarn:           false,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return LoadFromBytes(filename, b)
}

// LoadFromBytes parses the configuration in b. The filename is used to resolve paths relative to the config file.
func LoadFromBytes(filename string, b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}

	cfg.sourceFile = filename

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = DefaultWorkerPoolSize
	}
	if cfg.WorkerPoolStrategy == "" {
		cfg.WorkerPoolStrategy = RoundRobinStrategy
	}
	if cfg.ChunkStrategy == "" {
		cfg.ChunkStrategy = ClassChunkStrategy
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.ReportData {
		if err := setReportsDir(cfg, filename); err != nil {
			return nil, err
		}
	}

	for _, tSpec := range cfg.TaintTrackingProblems {
		for _, cids := range [][]CodeIdentifier{tSpec.Sanitizers, tSpec.Sinks, tSpec.Sources} {
			if err := compileAll(cids); err != nil {
				return nil, err
			}
		}
	}

	return cfg, nil
}

func compileAll(cids []CodeIdentifier) error {
	for i, cid := range cids {
		compiled, err := CompileRegexes(cid)
		if err != nil {
			return err
		}
		cids[i] = compiled
	}
	return nil
}

func (c *Config) validate() error {
	switch c.WorkerPoolStrategy {
	case RoundRobinStrategy, FirstReadyStrategy:
	default:
		return fmt.Errorf("worker-pool-strategy %q: %w", c.WorkerPoolStrategy, ErrInvalidOption)
	}
	switch c.ChunkStrategy {
	case ClassChunkStrategy, PackageChunkStrategy, MethodChunkStrategy:
	case HashedChunkStrategy:
		if c.ChunkBuckets <= 0 {
			return fmt.Errorf("chunk-buckets must be positive for the hashed strategy, got %d: %w",
				c.ChunkBuckets, ErrInvalidOption)
		}
	default:
		return fmt.Errorf("chunk-strategy %q: %w", c.ChunkStrategy, ErrInvalidOption)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout %s: %w", c.Timeout, ErrInvalidOption)
	}
	if c.LogLevel < int(ErrLevel) || c.LogLevel > int(TraceLevel) {
		return fmt.Errorf("log-level %d: %w", c.LogLevel, ErrInvalidOption)
	}
	return nil
}

func setReportsDir(c *Config, filename string) error {
	if c.ReportsDir == "" {
		tmpdir, err := os.MkdirTemp(path.Dir(filename), "*-report")
		if err != nil {
			return fmt.Errorf("could not create temp dir for reports")
		}
		c.ReportsDir = tmpdir
	} else {
		err := os.Mkdir(c.ReportsDir, 0750)
		if err != nil {
			if !os.IsExist(err) {
				return fmt.Errorf("could not create directory %s", c.ReportsDir)
			}
		}
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// IsBanned returns true if the type name starts with one of the banned package prefixes.
func (c Config) IsBanned(typeName string) bool {
	return funcutil.Exists(c.BannedPackagePrefixes, func(prefix string) bool {
		return prefix != "" && strings.HasPrefix(typeName, prefix)
	})
}

// Below are functions used to query the configuration on specific facts

func (c Config) isSomeTaintSpecCid(cid CodeIdentifier, f func(t TaintSpec, cid CodeIdentifier) bool) bool {
	for _, x := range c.TaintTrackingProblems {
		if f(x, cid) {
			return true
		}
	}
	return false
}

// IsSomeSource returns true if the code identifier matches any source in the config
func (c Config) IsSomeSource(cid CodeIdentifier) bool {
	return c.isSomeTaintSpecCid(cid, func(t TaintSpec, cid2 CodeIdentifier) bool { return t.IsSource(cid2) })
}

// IsSomeSink returns true if the code identifier matches any sink in the config
func (c Config) IsSomeSink(cid CodeIdentifier) bool {
	return c.isSomeTaintSpecCid(cid, func(t TaintSpec, cid2 CodeIdentifier) bool { return t.IsSink(cid2) })
}

// IsSomeSanitizer returns true if the code identifier matches any sanitizer in the config
func (c Config) IsSomeSanitizer(cid CodeIdentifier) bool {
	return c.isSomeTaintSpecCid(cid, func(t TaintSpec, cid2 CodeIdentifier) bool { return t.IsSanitizer(cid2) })
}

// IsSource returns true if the code identifier matches a source specification in the config file
func (ts TaintSpec) IsSource(cid CodeIdentifier) bool {
	return funcutil.Exists(ts.Sources, cid.equalOnNonEmptyFields)
}

// IsSink returns true if the code identifier matches a sink specification in the config file
func (ts TaintSpec) IsSink(cid CodeIdentifier) bool {
	return funcutil.Exists(ts.Sinks, cid.equalOnNonEmptyFields)
}

// IsSanitizer returns true if the code identifier matches a sanitizer specification in the config file
func (ts TaintSpec) IsSanitizer(cid CodeIdentifier) bool {
	return funcutil.Exists(ts.Sanitizers, cid.equalOnNonEmptyFields)
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}
