// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

// Package pgoprof exports clang PGO instrumentation state (execution
// counters and per call site value histograms) as raw profile
// ("profraw") snapshots, consumable by the llvm profile tooling.
//
// The instrumented program (or the compiler support glue) registers a
// Store holding the counter array, the function descriptor array and
// the name blob. Snapshots are built under an exclusive window spanning
// both the sizing and the encoding pass, so that concurrently growing
// value chains cannot invalidate the computed layout.
package pgoprof

import (
	"sync/atomic"
	"unsafe"
)

// BuildTags lists the build variants compiled in (e.g. the node
// allocator type).
var BuildTags []string

var crtStore unsafe.Pointer // *Store, accessed atomically

// RegisterStore sets the process-wide instrumentation store used by
// the package level export and reset entry points.
// Typically called once at startup by the instrumentation glue.
func RegisterStore(s *Store) {
	atomic.StorePointer(&crtStore, unsafe.Pointer(s))
}

// CurrentStore returns the registered process-wide store or nil.
func CurrentStore() *Store {
	return (*Store)(atomic.LoadPointer(&crtStore))
}

// OpenSession opens an export session on the registered store.
func OpenSession() (*Session, error) {
	s := CurrentStore()
	if s == nil {
		return nil, ErrNoStore
	}
	return s.OpenSession()
}

// ResetCounters zeroes the registered store's counters, if any.
func ResetCounters() error {
	s := CurrentStore()
	if s == nil {
		return ErrNoStore
	}
	s.ResetCounters()
	return nil
}
