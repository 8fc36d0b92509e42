// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package pgoprof

import (
	"encoding/binary"
	"testing"
)

// test-only raw profile decoder, used to validate produced snapshots

type rawNode struct {
	value uint64
	count uint64
}

type rawValueRec struct {
	kind     uint32
	numSites uint32
	siteCnts []uint8
	sites    [][]rawNode
}

type rawValueBlock struct {
	totalSize uint32
	numKinds  uint32
	recs      []rawValueRec
}

type rawProfile struct {
	hdr    [10]uint64
	data   []FuncData
	cnts   []uint64
	names  []byte
	values map[int]*rawValueBlock // keyed by descriptor index
}

type rdCursor struct {
	t    *testing.T
	buf  []byte
	offs int
}

func (c *rdCursor) need(n int) {
	if c.offs+n > len(c.buf) {
		c.t.Fatalf("truncated profile: need %d bytes at offset %d of %d\n",
			n, c.offs, len(c.buf))
	}
}

func (c *rdCursor) u8() uint8 {
	c.need(1)
	v := c.buf[c.offs]
	c.offs++
	return v
}

func (c *rdCursor) u16() uint16 {
	c.need(2)
	v := binary.LittleEndian.Uint16(c.buf[c.offs:])
	c.offs += 2
	return v
}

func (c *rdCursor) u32() uint32 {
	c.need(4)
	v := binary.LittleEndian.Uint32(c.buf[c.offs:])
	c.offs += 4
	return v
}

func (c *rdCursor) u64() uint64 {
	c.need(8)
	v := binary.LittleEndian.Uint64(c.buf[c.offs:])
	c.offs += 8
	return v
}

func (c *rdCursor) bytes(n int) []byte {
	c.need(n)
	v := c.buf[c.offs : c.offs+n]
	c.offs += n
	return v
}

// parseProfile decodes a snapshot buffer, failing the test on any
// structural inconsistency, and checks that the buffer has no slack
// bytes at the end.
func parseProfile(t *testing.T, buf []byte) *rawProfile {
	t.Helper()
	c := &rdCursor{t: t, buf: buf}
	p := &rawProfile{values: make(map[int]*rawValueBlock)}

	for i := 0; i < len(p.hdr); i++ {
		p.hdr[i] = c.u64()
	}
	if p.hdr[0] != RawMagic {
		t.Fatalf("bad magic 0x%x\n", p.hdr[0])
	}
	if p.hdr[1] != VariantMaskIR|RawVersion {
		t.Fatalf("bad version 0x%x\n", p.hdr[1])
	}

	nData := int(p.hdr[2])
	nCnts := int(p.hdr[4])
	nNames := int(p.hdr[6])

	p.data = make([]FuncData, nData)
	for i := range p.data {
		d := &p.data[i]
		d.NameRef = c.u64()
		d.FuncHash = c.u64()
		d.CounterRef = c.u64()
		d.FuncRef = c.u64()
		d.ValuesRef = c.u64()
		d.NumCounters = c.u32()
		for k := 0; k < NumValueKinds; k++ {
			d.NumValueSites[k] = c.u16()
		}
	}
	p.cnts = make([]uint64, nCnts)
	for i := range p.cnts {
		p.cnts[i] = c.u64()
	}
	p.names = c.bytes(nNames)
	for _, b := range c.bytes(int(pad8(uint64(nNames)))) {
		if b != 0 {
			t.Fatalf("non zero name padding byte\n")
		}
	}

	for i := range p.data {
		d := &p.data[i]
		active := 0
		for k := 0; k < NumValueKinds; k++ {
			if d.NumValueSites[k] > 0 {
				active++
			}
		}
		if active == 0 {
			continue
		}
		blk := &rawValueBlock{totalSize: c.u32(), numKinds: c.u32()}
		if int(blk.numKinds) != active {
			t.Fatalf("func %d: block kinds %d, descriptor has %d\n",
				i, blk.numKinds, active)
		}
		for k := 0; k < active; k++ {
			rec := rawValueRec{kind: c.u32(), numSites: c.u32()}
			rec.siteCnts = c.bytes(int(rec.numSites))
			rec.sites = make([][]rawNode, rec.numSites)
			for n := 0; n < int(rec.numSites); n++ {
				cnt := int(rec.siteCnts[n])
				for j := 0; j < cnt; j++ {
					rec.sites[n] = append(rec.sites[n],
						rawNode{value: c.u64(), count: c.u64()})
				}
			}
			blk.recs = append(blk.recs, rec)
		}
		p.values[i] = blk
	}

	if c.offs != len(buf) {
		t.Fatalf("%d slack bytes after the value section\n",
			len(buf)-c.offs)
	}
	return p
}
