// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package pgoprof

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Diagnostic HTTP endpoints, the debugfs analog of the exporter:
//
//	GET  <prefix>/profraw  - open a new export session and stream the
//	                         snapshot (range requests supported)
//	POST <prefix>/reset    - zero the execution counters (the request
//	                         body is ignored)
//	GET  <prefix>/reset    - 0 bytes, always ok, so that recursive
//	                         copies of the whole prefix do not fail

// RegisterHandlers adds the diagnostic endpoints under prefix
// (e.g. "/debug/pgo") to the given router.
func (s *Store) RegisterHandlers(r *mux.Router, prefix string) {
	r.HandleFunc(prefix+"/profraw", s.profrawHandler).Methods("GET")
	r.HandleFunc(prefix+"/reset", s.resetHandler).
		Methods("POST", "PUT", "GET")
}

// profrawHandler serves one fresh snapshot per request. Concurrent
// requests get independent sessions and never share buffers.
func (s *Store) profrawHandler(w http.ResponseWriter, req *http.Request) {
	sess, err := s.OpenSession()
	if err != nil {
		ERR("profraw endpoint: %s\n", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer sess.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, req, "profraw", time.Time{}, sess)
}

// resetHandler zeroes the counters on any write; reads return no data
// (and no error).
func (s *Store) resetHandler(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		s.ResetCounters()
	}
	w.WriteHeader(http.StatusOK)
}
