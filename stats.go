// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package pgoprof

import (
	"sync/atomic"

	"github.com/intuitivelabs/counters"
)

// StatCounter is an atomic counter used for internal statistics.
type StatCounter uint64

func (c *StatCounter) Inc(v uint) uint64 {
	return atomic.AddUint64((*uint64)(c), uint64(v))
}

func (c *StatCounter) Dec(v uint) uint64 {
	return atomic.AddUint64((*uint64)(c), ^uint64(v-1))
}

// CompareAndSwap compares the current value with oldv and if
// equal it changes it to newv.
// It returns true if it succeeds (sets newv) and false if not
// (value != oldv).
func (c *StatCounter) CompareAndSwap(oldv, newv uint64) bool {
	return atomic.CompareAndSwapUint64((*uint64)(c), oldv, newv)
}

func (c *StatCounter) Get() uint64 {
	return atomic.LoadUint64((*uint64)(c))
}

// export path counters
type pgoStats struct {
	grp *counters.Group

	hSnapshots counters.Handle // successful snapshot builds
	hSnapFail  counters.Handle // failed snapshot builds (alloc limit)
	hSnapBytes counters.Handle // size of the last built snapshot
	hSessions  counters.Handle // currently open export sessions
	hResets    counters.Handle // counter reset requests
	hTruncVals counters.Handle // sites truncated to the 255 entry cap
	hDropVals  counters.Handle // observed values dropped (node alloc fail)
	hDumps     counters.Handle // periodic dumps written
	hDumpFail  counters.Handle // periodic dumps failed
}

var pgoCnts pgoStats

// activeSessions mirrors the "sessions" counter, needed to Set() the
// gauge value on both open and close.
var activeSessions StatCounter

func init() {
	cntDefs := [...]counters.Def{
		{H: &pgoCnts.hSnapshots, Flags: 0, Name: "snapshots",
			Desc: "profile snapshots built"},
		{H: &pgoCnts.hSnapFail, Flags: 0, Name: "snapshot_fail",
			Desc: "snapshot builds failed due to the memory limit"},
		{H: &pgoCnts.hSnapBytes, Flags: counters.CntMaxF, Name: "snapshot_bytes",
			Desc: "size of the most recent snapshot"},
		{H: &pgoCnts.hSessions, Flags: counters.CntMaxF, Name: "sessions",
			Desc: "currently open export sessions"},
		{H: &pgoCnts.hResets, Flags: 0, Name: "resets",
			Desc: "counter reset requests"},
		{H: &pgoCnts.hTruncVals, Flags: 0, Name: "trunc_sites",
			Desc: "value sites truncated at the chain export cap"},
		{H: &pgoCnts.hDropVals, Flags: 0, Name: "dropped_values",
			Desc: "observed values dropped on node alloc failure"},
		{H: &pgoCnts.hDumps, Flags: 0, Name: "dumps",
			Desc: "periodic profile dumps written"},
		{H: &pgoCnts.hDumpFail, Flags: 0, Name: "dump_fail",
			Desc: "periodic profile dumps failed"},
	}
	entries := 20 // extra space to allow registering more counters
	if entries < len(cntDefs) {
		entries = len(cntDefs)
	}
	pgoCnts.grp = counters.NewGroup("pgo", nil, entries)
	if pgoCnts.grp == nil {
		// TODO: better error fallback
		pgoCnts.grp = &counters.Group{}
		pgoCnts.grp.Init("pgo", nil, entries)
	}
	if !pgoCnts.grp.RegisterDefs(cntDefs[:]) {
		Log.PANIC("pgoprof: failed to register the pgo counters\n")
	}
}
