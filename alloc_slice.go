// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

//+build !alloc_qmalloc

package pgoprof

// build type constants
const NodeAllocType = AllocSlice  // build time alloc type
const NodeAllocTypeName = "slice" // alloc type as string

func init() {
	BuildTags = append(BuildTags, NodeAllocTypeName)
}

// allocNodeChunk allocates a GC managed chunk of n value nodes.
// It might return nil if the memory limits are exceeded.
func allocNodeChunk(n int) []ValueNode {
	NodeAllocStats.NewCalls.Inc(1)
	totalSize := uint(n) * uint(valueNodeSize)

	cfg := GetCfg()
	maxMem := cfg.Mem.MaxValueNodesMem
	if NodeAllocStats.TotalSize.Inc(totalSize) > maxMem && maxMem > 0 {
		// limit exceeded
		NodeAllocStats.TotalSize.Dec(totalSize)
		NodeAllocStats.Failures.Inc(1)
		return nil
	}
	return make([]ValueNode, n)
}

// freeNodeChunk releases a chunk allocated with allocNodeChunk.
func freeNodeChunk(ck []ValueNode) {
	NodeAllocStats.FreeCalls.Inc(1)
	NodeAllocStats.TotalSize.Dec(uint(len(ck)) * uint(valueNodeSize))
}
