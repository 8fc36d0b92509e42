// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package pgoprof

// ValueKind is the category of a value-profiling site.
// The set of kinds is fixed by the profile format: every function
// descriptor carries one site count per kind, in kind order.
type ValueKind uint32

const (
	// indirect call targets (value == callee address)
	VKIndirectCallTarget ValueKind = iota
	// memory intrinsic sizes (value == copied length)
	VKMemOPSize
	VKBad
)

// VKLast is the highest valid value kind, recorded in the
// snapshot header.
const VKLast = VKMemOPSize

// NumValueKinds is the size of the per-descriptor site count array
// (VKLast + 1, kept untyped for size arithmetic).
const NumValueKinds = 2

var vkName = [VKBad + 1]string{
	VKIndirectCallTarget: "indirect-call-target",
	VKMemOPSize:          "memop-size",
	VKBad:                "invalid",
}

func (k ValueKind) String() string {
	if k >= VKBad {
		k = VKBad
	}
	return vkName[int(k)]
}
