// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package pgoprof

// Snapshot layout planning. All functions here are pure: they are run
// once to size the buffer and re-run per function while encoding, and
// both runs must agree byte for byte. Callers hold the store lock for
// the whole window so the chains cannot change in between.

// chainLen returns the exportable length of the chain starting at
// head: the real length capped at MaxSiteEntries.
func (s *Store) chainLen(head int32) uint32 {
	var n uint32
	for i := head; i != nilNode && n < MaxSiteEntries; i = s.arena.node(i).next {
		n++
	}
	return n
}

// funcValueSize returns the value-profile block size of d in bytes and
// the number of active value kinds. A function with no active kind
// (all site counts 0) has size 0 and emits no block at all.
// A function with sites but no value storage still gets its records
// and (zero) site count bytes, only no node entries.
func (s *Store) funcValueSize(d *FuncData) (uint32, uint32) {
	var size, kinds uint32

	fv := s.funcVals(d)
	offs := 0
	for kind := 0; kind < NumValueKinds; kind++ {
		sites := int(d.NumValueSites[kind])
		if sites == 0 {
			continue
		}
		// record header + site count array
		size += valueRecSize + uint32(sites)
		kinds++

		if fv == nil {
			continue
		}
		for n := 0; n < sites; n++ {
			size += s.chainLen(fv.heads[offs+n]) * nodeEntrySize
		}
		offs += sites
	}

	// block header
	if size != 0 {
		size += valueHdrSize
	}
	return size, kinds
}

// valuesSize returns the total size of the value-profile section.
func (s *Store) valuesSize() uint64 {
	var size uint64
	for i := range s.data {
		sz, _ := s.funcValueSize(&s.data[i])
		size += uint64(sz)
	}
	return size
}

// namesSize returns the name blob length, without padding.
func (s *Store) namesSize() uint64 {
	return uint64(len(s.names))
}

// snapshotSize returns the exact size of a snapshot of the current
// store state.
func (s *Store) snapshotSize() uint64 {
	sz := uint64(hdrSize) +
		uint64(len(s.data))*funcDataSize +
		uint64(len(s.cnts))*counterSize +
		s.namesSize() +
		pad8(s.namesSize())
	return sz + s.valuesSize()
}
