// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package pgoprof

import (
	"bytes"
	"errors"
	"io"

	"github.com/intuitivelabs/counters"
	"github.com/intuitivelabs/timestamp"
)

// ErrNoMem is returned when a snapshot buffer cannot be allocated
// within the configured memory limit.
var ErrNoMem = errors.New("pgoprof: snapshot memory limit exceeded")

// ErrNoStore is returned by the package level entry points when no
// store was registered.
var ErrNoStore = errors.New("pgoprof: no instrumentation store registered")

// Snapshot is one immutable raw profile image.
type Snapshot struct {
	buf  []byte
	when timestamp.TS
}

// Bytes returns the encoded profile. The returned slice must be
// treated as read-only.
func (sn *Snapshot) Bytes() []byte {
	return sn.buf
}

// Size returns the encoded profile length in bytes.
func (sn *Snapshot) Size() int64 {
	return int64(len(sn.buf))
}

// Time returns the snapshot creation time.
func (sn *Snapshot) Time() timestamp.TS {
	return sn.when
}

// Free returns the snapshot's memory accounting. The snapshot must not
// be used afterwards.
func (sn *Snapshot) Free() {
	if sn.buf != nil {
		freeSnapBuf(sn.buf)
		sn.buf = nil
	}
}

// Snapshot builds a raw profile image of the current store state.
//
// The store lock is held from the sizing pass through buffer
// allocation and encoding: value chains cannot grow between the two
// passes, so the buffer can neither overflow nor end up short.
// It returns ErrNoMem if the buffer would exceed the configured
// MaxSnapshotMem (counting all live snapshots); no partial buffer is
// ever exposed and the lock is released before returning.
func (s *Store) Snapshot() (*Snapshot, error) {
	s.lock.Lock()

	size := s.snapshotSize()
	buf, err := allocSnapBuf(size)
	if err != nil {
		s.lock.Unlock()
		pgoCnts.grp.Inc(pgoCnts.hSnapFail)
		return nil, err
	}

	c := cursor{buf: buf}
	s.fillHeader(&c)
	s.copyData(&c)
	s.copyCounters(&c)
	c.bytes(s.names)
	c.skip(int(pad8(s.namesSize())))
	s.serializeValues(&c)

	s.lock.Unlock()

	if c.offs != len(buf) {
		// planner/encoder drift, the format guarantees are gone
		Log.PANIC("snapshot size drift: wrote %d of %d bytes\n",
			c.offs, len(buf))
	}

	sn := &Snapshot{buf: buf, when: timestamp.Now()}
	pgoCnts.grp.Inc(pgoCnts.hSnapshots)
	pgoCnts.grp.Set(pgoCnts.hSnapBytes, counters.Val(size))
	if GetCfg().Dbg&DbgFSnap != 0 {
		DBG("snapshot: %d bytes, %d funcs, %d counters\n",
			size, len(s.data), len(s.cnts))
	}
	return sn, nil
}

// allocSnapBuf allocates a zeroed snapshot buffer of the given size,
// accounted against Config.Mem.MaxSnapshotMem across all live
// snapshots.
func allocSnapBuf(size uint64) ([]byte, error) {
	SnapAllocStats.NewCalls.Inc(1)

	cfg := GetCfg()
	maxMem := cfg.Mem.MaxSnapshotMem
	if SnapAllocStats.TotalSize.Inc(uint(size)) > maxMem && maxMem > 0 {
		// limit exceeded
		SnapAllocStats.TotalSize.Dec(uint(size))
		SnapAllocStats.Failures.Inc(1)
		return nil, ErrNoMem
	}
	return make([]byte, size), nil
}

// freeSnapBuf returns the snapshot buffer accounting.
func freeSnapBuf(buf []byte) {
	SnapAllocStats.FreeCalls.Inc(1)
	SnapAllocStats.TotalSize.Dec(uint(len(buf)))
}

// Session is one open export session: an immutable snapshot plus a
// read position. Sessions are fully independent of each other and of
// later store mutation. Not safe for concurrent use by multiple
// goroutines (open one session per reader instead).
type Session struct {
	snap *Snapshot
	rd   *bytes.Reader
}

// OpenSession builds a snapshot and binds it to a new session.
func (s *Store) OpenSession() (*Session, error) {
	sn, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	n := activeSessions.Inc(1)
	pgoCnts.grp.Set(pgoCnts.hSessions, counters.Val(n))
	return &Session{snap: sn, rd: bytes.NewReader(sn.buf)}, nil
}

// Size returns the session's snapshot length.
func (ss *Session) Size() int64 {
	return ss.snap.Size()
}

// Read reads sequentially from the snapshot.
func (ss *Session) Read(p []byte) (int, error) {
	return ss.rd.Read(p)
}

// ReadAt reads a byte range from the snapshot, with the usual
// io.ReaderAt semantics.
func (ss *Session) ReadAt(p []byte, offs int64) (int, error) {
	return ss.rd.ReadAt(p, offs)
}

// Seek repositions the sequential read offset.
func (ss *Session) Seek(offs int64, whence int) (int64, error) {
	return ss.rd.Seek(offs, whence)
}

// Close releases the session's snapshot. The session must not be used
// afterwards.
func (ss *Session) Close() error {
	if ss.snap != nil {
		ss.snap.Free()
		ss.snap = nil
		ss.rd = nil
		n := activeSessions.Dec(1)
		pgoCnts.grp.Set(pgoCnts.hSessions, counters.Val(n))
	}
	return nil
}

var (
	_ io.Reader   = (*Session)(nil)
	_ io.ReaderAt = (*Session)(nil)
	_ io.Seeker   = (*Session)(nil)
	_ io.Closer   = (*Session)(nil)
)
