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

package program

import (
	"fmt"

	"github.com/awslabs/ar-go-ifds/analysis/config"
	"github.com/awslabs/ar-go-ifds/analysis/ifds"
	"github.com/minio/highwayhash"
)

// The key of the hashed chunk strategy. It only needs to be stable across runs.
var chunkKey = []byte("ifds-chunks-0123456789ABCDEF0123")

// ClassChunks puts every instruction of a class in the chunk named after the class.
func ClassChunks(s *Inst) ifds.ChunkID {
	return ifds.ChunkID(s.Method.Class.Name)
}

// PackageChunks puts every instruction of a package in the chunk named after the package.
func PackageChunks(s *Inst) ifds.ChunkID {
	return ifds.ChunkID(s.Method.Class.Package())
}

// MethodChunks puts every instruction of a method in the chunk named after the method.
func MethodChunks(s *Inst) ifds.ChunkID {
	return ifds.ChunkID(s.Method.String())
}

// HashedChunks distributes the classes over a fixed number of chunks, by hashing their names.
func HashedChunks(buckets int) ifds.ChunkStrategy[*Inst] {
	if buckets <= 0 {
		buckets = 1
	}
	return func(s *Inst) ifds.ChunkID {
		return ifds.ChunkID(fmt.Sprintf("bucket-%d", BucketOf(s.Method.Class.Name, buckets)))
	}
}

// BucketOf returns the bucket of name among buckets.
func BucketOf(name string, buckets int) int {
	return int(highwayhash.Sum64([]byte(name), chunkKey) % uint64(buckets))
}

// Strategy returns the chunk strategy selected in the config.
func Strategy(cfg *config.Config) (ifds.ChunkStrategy[*Inst], error) {
	switch cfg.ChunkStrategy {
	case config.ClassChunkStrategy, "":
		return ClassChunks, nil
	case config.PackageChunkStrategy:
		return PackageChunks, nil
	case config.MethodChunkStrategy:
		return MethodChunks, nil
	case config.HashedChunkStrategy:
		return HashedChunks(cfg.ChunkBuckets), nil
	default:
		return nil, fmt.Errorf("chunk-strategy %q: %w", cfg.ChunkStrategy, config.ErrInvalidOption)
	}
}
