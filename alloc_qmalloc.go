// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

//+build alloc_qmalloc

package pgoprof

import (
	"reflect"
	"unsafe"

	"github.com/intuitivelabs/mallocs/qmalloc"
)

// build type constants
const NodeAllocType = AllocQMalloc  // build time alloc type
const NodeAllocTypeName = "qmalloc" // alloc type as string

var qm qmalloc.QMalloc

func init() {
	BuildTags = append(BuildTags, NodeAllocTypeName)

	// FIXME: better sized in function of the configured node mem max
	mem := make([]byte, 32*1024*1024)
	if !qm.Init(mem, 14, qmalloc.QMDefaultOptions) {
		Log.PANIC("qmalloc Init failed\n")
	}
}

// allocNodeChunk allocates a chunk of n value nodes in one qmalloc
// block, outside the go GC. Safe here since ValueNode contains no go
// pointers (chains link by arena index).
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

	p := qm.Malloc(uint64(totalSize))
	if p == nil {
		NodeAllocStats.Failures.Inc(1)
		NodeAllocStats.TotalSize.Dec(totalSize)
		return nil
	}
	// make the chunk point to the alloc'ed data:
	var ck []ValueNode
	slice := (*reflect.SliceHeader)(unsafe.Pointer(&ck))
	slice.Data = uintptr(p)
	slice.Len = n
	slice.Cap = n
	for i := range ck {
		ck[i] = ValueNode{}
	}
	return ck
}

// freeNodeChunk releases a chunk allocated with allocNodeChunk.
func freeNodeChunk(ck []ValueNode) {
	NodeAllocStats.FreeCalls.Inc(1)
	if len(ck) == 0 {
		return
	}
	NodeAllocStats.TotalSize.Dec(uint(len(ck)) * uint(valueNodeSize))

	cfg := GetCfg()
	if cfg.Dbg&DbgFAllocs != 0 {
		for i := range ck {
			ck[i] = ValueNode{} // DBG: zero it
		}
	}
	qm.Free(unsafe.Pointer(&ck[0]))
}
