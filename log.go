// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package pgoprof

import (
	"github.com/intuitivelabs/slog"
)

// Log is the package logger.
var Log slog.Log

// DBGon returns true if debug messages are enabled.
func DBGon() bool {
	return Log.DBGon()
}

// DBG logs a debug message.
func DBG(f string, a ...interface{}) {
	Log.DBG(f, a...)
}

// WARN logs a warning message.
func WARN(f string, a ...interface{}) {
	Log.WARN(f, a...)
}

// ERR logs an error message.
func ERR(f string, a ...interface{}) {
	Log.ERR(f, a...)
}

// BUG logs an internal inconsistency.
func BUG(f string, a ...interface{}) {
	Log.BUG(f, a...)
}
