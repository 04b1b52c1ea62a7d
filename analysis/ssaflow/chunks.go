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

package ssaflow

import (
	"fmt"

	"github.com/awslabs/ar-go-ifds/analysis/config"
	"github.com/awslabs/ar-go-ifds/analysis/ifds"
	"github.com/awslabs/ar-go-ifds/analysis/program"
	"golang.org/x/tools/go/ssa"
)

// Anonymous functions are always in the chunk of the function declaring them.

// PackageChunks puts every instruction of a package in the chunk named after the package path.
func PackageChunks(s ssa.Instruction) ifds.ChunkID {
	return ifds.ChunkID(PackageNameFromFunction(outermost(s.Parent())))
}

// ReceiverChunks puts the methods of a type in the chunk of the type, and the other functions in the chunk of their
// package.
func ReceiverChunks(s ssa.Instruction) ifds.ChunkID {
	return ifds.ChunkID(receiverKey(s))
}

func receiverKey(s ssa.Instruction) string {
	f := outermost(s.Parent())
	pkg := PackageNameFromFunction(f)
	if recv := ReceiverTypeName(f); recv != "" {
		return pkg + "." + recv
	}
	return pkg
}

// FunctionChunks puts every instruction of a function in its own chunk.
func FunctionChunks(s ssa.Instruction) ifds.ChunkID {
	return ifds.ChunkID(outermost(s.Parent()).String())
}

// HashedChunks distributes the receiver chunks over a fixed number of chunks.
func HashedChunks(buckets int) ifds.ChunkStrategy[ssa.Instruction] {
	if buckets <= 0 {
		buckets = 1
	}
	return func(s ssa.Instruction) ifds.ChunkID {
		return ifds.ChunkID(fmt.Sprintf("bucket-%d", program.BucketOf(receiverKey(s), buckets)))
	}
}

// Strategy returns the chunk strategy selected in the config. The class strategy groups the methods by receiver type.
func Strategy(cfg *config.Config) (ifds.ChunkStrategy[ssa.Instruction], error) {
	switch cfg.ChunkStrategy {
	case config.ClassChunkStrategy, "":
		return ReceiverChunks, nil
	case config.PackageChunkStrategy:
		return PackageChunks, nil
	case config.MethodChunkStrategy:
		return FunctionChunks, nil
	case config.HashedChunkStrategy:
		return HashedChunks(cfg.ChunkBuckets), nil
	default:
		return nil, fmt.Errorf("chunk-strategy %q: %w", cfg.ChunkStrategy, config.ErrInvalidOption)
	}
}
