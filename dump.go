// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package pgoprof

import (
	"errors"
	"sync"
	"time"

	"github.com/intuitivelabs/timestamp"
	"github.com/intuitivelabs/wtimer"
)

// Periodic profile dumps: an optional wheel timer that snapshots the
// store at a fixed interval and hands each snapshot to a sink (e.g.
// a file writer), for setups where nothing polls the export endpoint.

// ErrDumpRunning is returned when a periodic dump is already active
// for the store.
var ErrDumpRunning = errors.New("pgoprof: periodic dump already started")

// DumpSink consumes one snapshot. The snapshot is only valid for the
// duration of the call; the caller frees it afterwards.
type DumpSink func(sn *Snapshot) error

// timer wheel
var dumpTimers wtimer.WTimer
var dumpTimersInit sync.Once

const dumpTimersFlags = 0
const dumpTimerTick = 500 * time.Millisecond // timer tick length

func initDumpTimers() {
	dumpTimersInit.Do(func() {
		if err := dumpTimers.Init(dumpTimerTick); err != nil {
			Log.PANIC("dump timers init failed: %s\n", err)
		}
		dumpTimers.Start()
	})
}

// StopDumpTimers stops the dump timer goroutines and waits for them to
// finish. Per-store dumps should be stopped first (StopPeriodicDump).
func StopDumpTimers() {
	dumpTimers.Shutdown()
}

type dumpState struct {
	timerH wtimer.TimerLnk
	sink   DumpSink
	ival   time.Duration
}

// dumpTimerF is the timeout handler for the periodic dump, of the
// wtimer.TimerHandleF type. The opaque parameter is always the Store
// owning the timer. It returns true and the dump interval to keep the
// timer running.
func dumpTimerF(wt *wtimer.WTimer, h *wtimer.TimerLnk,
	p interface{}) (bool, time.Duration) {
	s := p.(*Store)
	s.dumpLock.Lock()
	st := s.dump
	s.dumpLock.Unlock()
	if st == nil {
		return false, 0
	}

	t0 := timestamp.Now()
	sn, err := s.Snapshot()
	if err != nil {
		ERR("periodic dump: snapshot failed: %s\n", err)
		pgoCnts.grp.Inc(pgoCnts.hDumpFail)
		return true, st.ival
	}
	if err = st.sink(sn); err != nil {
		ERR("periodic dump: sink failed: %s\n", err)
		pgoCnts.grp.Inc(pgoCnts.hDumpFail)
	} else {
		pgoCnts.grp.Inc(pgoCnts.hDumps)
		if GetCfg().Dbg&DbgFDump != 0 {
			DBG("periodic dump: %d bytes in %s\n",
				sn.Size(), timestamp.Now().Sub(t0))
		}
	}
	sn.Free()
	return true, st.ival
}

// StartPeriodicDump arms a periodic dump of the store every ival,
// handing each snapshot to sink. An ival of 0 falls back to the
// configured DumpIntervalS; if that is 0 too nothing is started.
func (s *Store) StartPeriodicDump(ival time.Duration, sink DumpSink) error {
	if ival == 0 {
		ival = time.Duration(GetCfg().DumpIntervalS) * time.Second
	}
	if ival == 0 || sink == nil {
		return nil
	}
	initDumpTimers()

	s.dumpLock.Lock()
	if s.dump != nil {
		s.dumpLock.Unlock()
		return ErrDumpRunning
	}
	st := &dumpState{sink: sink, ival: ival}
	if err := dumpTimers.InitTimer(&st.timerH, dumpTimersFlags); err != nil {
		s.dumpLock.Unlock()
		return err
	}
	s.dump = st
	s.dumpLock.Unlock()

	if err := dumpTimers.Add(&st.timerH, ival, dumpTimerF, s); err != nil {
		s.dumpLock.Lock()
		s.dump = nil
		s.dumpLock.Unlock()
		return err
	}
	return nil
}

// StopPeriodicDump disarms the store's periodic dump, waiting for a
// possibly running handler to finish.
func (s *Store) StopPeriodicDump() {
	s.dumpLock.Lock()
	st := s.dump
	s.dump = nil
	s.dumpLock.Unlock()
	if st != nil {
		dumpTimers.DelWait(&st.timerH)
	}
}
