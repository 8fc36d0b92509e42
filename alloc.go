// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package pgoprof

import (
	"unsafe"
)

// constants for recording the used alloc for testing/versioning
const (
	AllocSlice   = iota // GC managed chunks (make)
	AllocQMalloc        // chunks carved from a qmalloc block, outside go GC
)

// each conditional build variant should define
// const NodeAllocType = ...
// const NodeAllocTypeName = "..."
// func allocNodeChunk(n int) []ValueNode
// func freeNodeChunk(ck []ValueNode)

// node chunk size, in nodes
const nodeChunkSize = 1024

// AllocStats records allocation statistics for one allocation class.
type AllocStats struct {
	TotalSize StatCounter
	NewCalls  StatCounter
	FreeCalls StatCounter
	Failures  StatCounter
}

// NodeAllocStats accounts the value-profile node chunks.
var NodeAllocStats AllocStats

// SnapAllocStats accounts the live snapshot buffers.
var SnapAllocStats AllocStats

const valueNodeSize = unsafe.Sizeof(ValueNode{})

// nodeArena is a grow-only arena of ValueNodes addressed by index.
// Chunk memory comes from the build-tag selected allocator variant.
// Not locked: callers hold the store lock.
type nodeArena struct {
	chunks [][]ValueNode
	n      int // nodes in use
}

// newNode allocates a node initialised to one occurrence of v.
// It returns (index, true) on success and (nilNode, false) if the
// node memory limit was reached.
func (a *nodeArena) newNode(v uint64) (int32, bool) {
	if a.n == len(a.chunks)*nodeChunkSize {
		ck := allocNodeChunk(nodeChunkSize)
		if ck == nil {
			return nilNode, false
		}
		a.chunks = append(a.chunks, ck)
	}
	i := int32(a.n)
	a.n++
	nd := a.node(i)
	nd.Value = v
	nd.Count = 1
	nd.next = nilNode
	return i, true
}

func (a *nodeArena) node(i int32) *ValueNode {
	return &a.chunks[int(i)/nodeChunkSize][int(i)%nodeChunkSize]
}

func (a *nodeArena) destroy() {
	for _, ck := range a.chunks {
		freeNodeChunk(ck)
	}
	a.chunks = nil
	a.n = 0
}
