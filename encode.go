// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package pgoprof

import (
	"encoding/binary"
)

// cursor writes fixed-width little endian records sequentially into a
// pre-sized buffer. The buffer is allocated from the planned layout
// size, so running past the end is a planner/encoder drift bug and
// panics via the bounds check.
type cursor struct {
	buf  []byte
	offs int
}

func (c *cursor) u8(v uint8) {
	c.buf[c.offs] = v
	c.offs++
}

func (c *cursor) u16(v uint16) {
	binary.LittleEndian.PutUint16(c.buf[c.offs:], v)
	c.offs += 2
}

func (c *cursor) u32(v uint32) {
	binary.LittleEndian.PutUint32(c.buf[c.offs:], v)
	c.offs += 4
}

func (c *cursor) u64(v uint64) {
	binary.LittleEndian.PutUint64(c.buf[c.offs:], v)
	c.offs += 8
}

func (c *cursor) bytes(b []byte) {
	copy(c.buf[c.offs:], b)
	c.offs += len(b)
}

// skip advances over n already zeroed padding bytes.
func (c *cursor) skip(n int) {
	c.offs += n
}

// fillHeader writes the fixed snapshot header.
func (s *Store) fillHeader(c *cursor) {
	c.u64(RawMagic)
	c.u64(VariantMaskIR | RawVersion)
	c.u64(uint64(len(s.data)))
	c.u64(0) // padding before counters
	c.u64(uint64(len(s.cnts)))
	c.u64(0) // padding after counters
	c.u64(s.namesSize())
	c.u64(s.cntsBase)
	c.u64(s.namesBase)
	c.u64(uint64(VKLast))
}

// copyData writes the descriptor array verbatim, field for field in
// record order. Reference fields keep their build-time values.
func (s *Store) copyData(c *cursor) {
	for i := range s.data {
		d := &s.data[i]
		c.u64(d.NameRef)
		c.u64(d.FuncHash)
		c.u64(d.CounterRef)
		c.u64(d.FuncRef)
		c.u64(d.ValuesRef)
		c.u32(d.NumCounters)
		for k := 0; k < NumValueKinds; k++ {
			c.u16(d.NumValueSites[k])
		}
	}
}

// copyCounters writes the counter array. Instrumented code may still
// be bumping the counters; torn or stale values are tolerated, the
// layout does not depend on them.
func (s *Store) copyCounters(c *cursor) {
	for i := range s.cnts {
		c.u64(loadCounter(&s.cnts[i]))
	}
}

// serializeValue writes the value-profile block of d, if any.
// The block size is recomputed here and must match what the planning
// pass yielded for this descriptor: both run under the same lock
// window over unchanged chains.
func (s *Store) serializeValue(d *FuncData, c *cursor) {
	totalSize, kinds := s.funcValueSize(d)
	if kinds == 0 {
		return // nothing to write
	}
	c.u32(totalSize)
	c.u32(kinds)

	fv := s.funcVals(d)
	offs := 0
	for kind := 0; kind < NumValueKinds; kind++ {
		sites := int(d.NumValueSites[kind])
		if sites == 0 {
			continue
		}
		// record header
		c.u32(uint32(kind))
		c.u32(uint32(sites))

		// site count array; stays zero filled if there is no
		// value storage for this function
		counts := c.offs
		c.skip(sites)

		if fv == nil {
			continue
		}
		for n := 0; n < sites; n++ {
			var cnt uint32
			i := fv.heads[offs+n]
			for ; i != nilNode && cnt < MaxSiteEntries; i = s.arena.node(i).next {
				nd := s.arena.node(i)
				c.u64(nd.Value)
				c.u64(nd.Count)
				cnt++
			}
			if i != nilNode {
				// chain longer than the export cap
				pgoCnts.grp.Inc(pgoCnts.hTruncVals)
			}
			c.buf[counts+n] = uint8(cnt)
		}
		offs += sites
	}
}

// serializeValues writes the whole value-profile section.
func (s *Store) serializeValues(c *cursor) {
	for i := range s.data {
		s.serializeValue(&s.data[i], c)
	}
}
