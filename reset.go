// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package pgoprof

import (
	"sync/atomic"
)

// ResetCounters zeroes every execution counter. Descriptor shape and
// value-profile chains are left untouched. It takes the store lock, so
// a reset never interleaves with a running export (an export sees
// either all pre-reset or all post-reset counter values, not a mix).
// Idempotent, never fails.
func (s *Store) ResetCounters() {
	s.lock.Lock()
	for i := range s.cnts {
		atomic.StoreUint64(&s.cnts[i], 0)
	}
	s.lock.Unlock()
	pgoCnts.grp.Inc(pgoCnts.hResets)
}
