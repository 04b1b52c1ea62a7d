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

import "time"

const (
	// DefaultTimeout is the default wall-clock budget of an analysis run
	DefaultTimeout = 60 * time.Second
	// DefaultWorkerPoolSize is the default number of workers per runner manager
	DefaultWorkerPoolSize = 4
	// DefaultChunkBuckets is the default number of chunks of the hashed chunk strategy
	DefaultChunkBuckets = 16

	// RoundRobinStrategy dispatches worker messages to the next worker in sequence
	RoundRobinStrategy = "round-robin"
	// FirstReadyStrategy dispatches worker messages to an idle worker
	FirstReadyStrategy = "first-ready"

	// ClassChunkStrategy puts all the statements of a class (or Go receiver type) in one chunk
	ClassChunkStrategy = "class"
	// PackageChunkStrategy puts all the statements of a package in one chunk
	PackageChunkStrategy = "package"
	// MethodChunkStrategy puts all the statements of a method in one chunk
	MethodChunkStrategy = "method"
	// HashedChunkStrategy distributes classes over a fixed number of chunks
	HashedChunkStrategy = "hashed"
)

// DefaultBannedPackagePrefixes are the library prefixes whose methods are never entered by default.
var DefaultBannedPackagePrefixes = []string{
	"java.",
	"javax.",
	"jdk.",
	"sun.",
	"kotlin.",
	"runtime",
	"internal/",
}
