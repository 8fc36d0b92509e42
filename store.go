// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package pgoprof

import (
	"crypto/md5"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"unsafe"
)

// FuncData is the descriptor of one instrumented function, mirroring
// the on-disk descriptor record field for field (it is copied verbatim
// into snapshots). All reference fields keep their build-time values;
// profile consumers translate them using the header relocation anchors.
type FuncData struct {
	NameRef       uint64 // md5 based name hash (see NameRef())
	FuncHash      uint64 // structural hash filled in by the compiler
	CounterRef    uint64 // address of the function's first counter
	FuncRef       uint64 // address of the function
	ValuesRef     uint64 // 1 + value storage index, 0 == no storage
	NumCounters   uint32
	NumValueSites [NumValueKinds]uint16
}

// numSites returns the total number of value sites of d, over all kinds.
func (d *FuncData) numSites() int {
	n := 0
	for k := 0; k < NumValueKinds; k++ {
		n += int(d.NumValueSites[k])
	}
	return n
}

// siteOffs returns the index of (kind, site) in the flattened,
// kind-major site array of d.
func (d *FuncData) siteOffs(kind ValueKind, site int) int {
	offs := site
	for k := ValueKind(0); k < kind; k++ {
		offs += int(d.NumValueSites[k])
	}
	return offs
}

// nilNode marks an empty chain head / chain end.
const nilNode = int32(-1)

// ValueNode is one (observed value, occurrence count) histogram entry.
// Nodes are arena allocated and chained per site via arena indexes.
type ValueNode struct {
	Value uint64
	Count uint64
	next  int32
}

// funcValues holds the per site chain heads of one function,
// flattened kind-major in site declaration order.
type funcValues struct {
	heads []int32
}

// Store is the process-wide instrumentation state: the counter array,
// the function descriptors and the packed name blob, as laid out by
// the compiler, plus the value-profile node storage owned by this
// package.
//
// Counters are written directly by instrumented code, possibly
// non-atomically from many goroutines; rare lost updates are an
// accepted approximation. The descriptor shape and the name blob are
// immutable after NewStore. Value chains are mutated only under the
// store lock, which doubles as the snapshot exclusive window.
type Store struct {
	data  []FuncData
	cnts  []uint64
	names []byte

	// relocation anchors recorded in the snapshot header
	cntsBase  uint64
	namesBase uint64

	// lock spans value chain mutation and the whole
	// sizing + encoding snapshot window
	lock   sync.Mutex
	values []*funcValues
	arena  nodeArena

	// periodic dump state (dump.go)
	dumpLock sync.Mutex
	dump     *dumpState
}

// NewStore wraps the given instrumentation arrays. The slices are
// shared, not copied: counter updates made by the instrumented code
// remain visible to future snapshots.
func NewStore(data []FuncData, cnts []uint64, names []byte) *Store {
	s := &Store{
		data:  data,
		cnts:  cnts,
		names: names,
	}
	if len(cnts) > 0 {
		s.cntsBase = uint64(uintptr(unsafe.Pointer(&cnts[0])))
	}
	if len(names) > 0 {
		s.namesBase = uint64(uintptr(unsafe.Pointer(&names[0])))
	}
	return s
}

// Destroy frees the value node storage. The store must not be used
// afterwards.
func (s *Store) Destroy() {
	s.lock.Lock()
	s.values = nil
	s.arena.destroy()
	s.data = nil
	s.cnts = nil
	s.names = nil
	s.lock.Unlock()
}

// NumFuncs returns the number of function descriptors.
func (s *Store) NumFuncs() int {
	return len(s.data)
}

// Counters returns the shared counter array.
// Instrumented code bumps entries directly; exports tolerate the
// resulting races by design.
func (s *Store) Counters() []uint64 {
	return s.cnts
}

// IncCounter atomically adds v to counter i.
func (s *Store) IncCounter(i int, v uint64) {
	atomic.AddUint64(&s.cnts[i], v)
}

// loadCounter reads one shared counter. Non-atomic concurrent writers
// may race with it; stale or torn values are tolerated.
func loadCounter(p *uint64) uint64 {
	return atomic.LoadUint64(p)
}

// funcVals returns the value storage of d or nil.
func (s *Store) funcVals(d *FuncData) *funcValues {
	if d.ValuesRef == 0 {
		return nil
	}
	return s.values[d.ValuesRef-1]
}

// AddValue records one observation of value at the given function,
// kind and site. It is the runtime half of value profiling: the
// compiler injects calls to it at every instrumented site.
// It returns false if the observation was dropped (bad site or node
// allocation failure).
func (s *Store) AddValue(fn int, kind ValueKind, site int, value uint64) bool {
	if fn < 0 || fn >= len(s.data) || kind >= VKBad {
		BUG("AddValue(%d, %s, %d, 0x%x): no such function or kind\n",
			fn, kind, site, value)
		return false
	}
	d := &s.data[fn]
	if site < 0 || site >= int(d.NumValueSites[kind]) {
		BUG("AddValue(%d, %s, %d, 0x%x): site out of range (max %d)\n",
			fn, kind, site, value, d.NumValueSites[kind])
		return false
	}

	s.lock.Lock()
	fv := s.funcVals(d)
	if fv == nil {
		fv = &funcValues{heads: make([]int32, d.numSites())}
		for i := range fv.heads {
			fv.heads[i] = nilNode
		}
		s.values = append(s.values, fv)
		d.ValuesRef = uint64(len(s.values))
	}
	offs := d.siteOffs(kind, site)
	// walk the chain: bump an existing node for the same value or
	// append a new one at the tail (chains are insertion ordered)
	prev := nilNode
	for i := fv.heads[offs]; i != nilNode; i = s.arena.node(i).next {
		n := s.arena.node(i)
		if n.Value == value {
			n.Count++
			s.lock.Unlock()
			return true
		}
		prev = i
	}
	i, ok := s.arena.newNode(value)
	if !ok {
		s.lock.Unlock()
		pgoCnts.grp.Inc(pgoCnts.hDropVals)
		return false
	}
	if prev == nilNode {
		fv.heads[offs] = i
	} else {
		s.arena.node(prev).next = i
	}
	s.lock.Unlock()
	return true
}

// NumValues returns the current chain length of (fn, kind, site),
// untruncated. Meant for introspection and tests.
func (s *Store) NumValues(fn int, kind ValueKind, site int) int {
	if fn < 0 || fn >= len(s.data) || kind >= VKBad {
		return 0
	}
	d := &s.data[fn]
	if site < 0 || site >= int(d.NumValueSites[kind]) {
		return 0
	}
	n := 0
	s.lock.Lock()
	if fv := s.funcVals(d); fv != nil {
		for i := fv.heads[d.siteOffs(kind, site)]; i != nilNode; {
			n++
			i = s.arena.node(i).next
		}
	}
	s.lock.Unlock()
	return n
}

// NameRef returns the descriptor name reference for a function name:
// the low 8 bytes of its md5 digest, as mandated by the profile
// format.
func NameRef(name string) uint64 {
	d := md5.Sum([]byte(name))
	return binary.LittleEndian.Uint64(d[:8])
}

// AppendFuncName packs name into the name blob and returns the grown
// blob together with the matching descriptor name reference.
func AppendFuncName(names []byte, name string) ([]byte, uint64) {
	return append(names, name...), NameRef(name)
}
