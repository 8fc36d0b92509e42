// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package pgoprof

// Raw profile ("profraw") format, little endian:
//	- header
//	- function descriptor array
//	- counter array
//	- name blob
//	- zero padding to 8 bytes
//	- for each descriptor with at least one active value kind:
//		- value block header (total size, active kind count)
//		- for each active kind:
//			- value record header (kind, site count)
//			- one site count byte per site
//			- (value, count) node entries, per site in
//			  site order, at most 255 per site

const (
	// RawMagic is the profile magic ("\xfflprofr\x81" as a LE u64).
	RawMagic = uint64(0xff)<<56 | uint64('l')<<48 | uint64('p')<<40 |
		uint64('r')<<32 | uint64('o')<<24 | uint64('f')<<16 |
		uint64('r')<<8 | uint64(0x81)

	// RawVersion is the supported raw profile format version.
	RawVersion = 5

	// VariantMaskIR marks IR-level instrumentation in the header
	// version field.
	VariantMaskIR = uint64(1) << 56
)

// on-disk record sizes (bytes)
const (
	hdrSize       = 10 * 8 // 10 u64 fields
	funcDataSize  = 5*8 + 4 + 2*NumValueKinds
	counterSize   = 8
	valueHdrSize  = 4 + 4 // total size + active kind count
	valueRecSize  = 4 + 4 // kind + site count
	nodeEntrySize = 8 + 8 // value + count
)

// MaxSiteEntries is the per site export cap: at most this many chain
// entries are written per value site; the rest of the chain is dropped.
const MaxSiteEntries = 255

// pad8 returns the number of zero bytes needed after sz to reach the
// next 8 byte boundary.
func pad8(sz uint64) uint64 {
	return (8 - sz%8) % 8
}
