// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package pgoprof

import (
	"sync/atomic"
	"unsafe"
)

// DbgFlags holds the package debugging flags.
type DbgFlags uint32

const (
	DbgFAllocs DbgFlags = 1 << iota // extra checks in the node allocators
	DbgFSnap                        // log each snapshot build
	DbgFDump                        // log each periodic dump
)

// MemConfig holds the memory limits. A 0 value means no limit.
type MemConfig struct {
	MaxSnapshotMem   uint64 // max total bytes held by live snapshots
	MaxValueNodesMem uint64 // max bytes used by value-profile nodes
}

// Config holds the package configuration.
// It should not be changed directly after the package started being used.
// Use GetCfg()/SetCfg() instead.
type Config struct {
	Mem           MemConfig
	Dbg           DbgFlags
	DumpIntervalS uint32 // default periodic dump interval in s (0 == off)
}

// DefaultConfig contains the startup configuration.
var DefaultConfig = Config{
	Mem: MemConfig{
		MaxSnapshotMem:   64 * 1024 * 1024,
		MaxValueNodesMem: 16 * 1024 * 1024,
	},
	Dbg:           0,
	DumpIntervalS: 0,
}

var cfgPtr unsafe.Pointer // *Config, accessed atomically

func init() {
	cfg := DefaultConfig
	SetCfg(&cfg)
}

// GetCfg returns the current config.
// The returned value must be treated as read-only.
func GetCfg() *Config {
	return (*Config)(atomic.LoadPointer(&cfgPtr))
}

// SetCfg atomically replaces the current config.
// The passed config must not be written to after SetCfg(), not even by
// the caller.
func SetCfg(cfg *Config) {
	atomic.StorePointer(&cfgPtr, unsafe.Pointer(cfg))
}
