// Copyright 2019-2020 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a source-available license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package pgoprof

import (
	"bytes"
	"testing"
)

// buildTestStore returns a store with two instrumented functions:
// f0 "alpha" with 2 counters and no value sites, f1 "beta" with 1
// counter, 1 site of kind 0 and 1 site of kind 1.
func buildTestStore() *Store {
	var names []byte
	var r0, r1 uint64
	names, r0 = AppendFuncName(nil, "alpha")
	names, r1 = AppendFuncName(names, "beta")
	data := []FuncData{
		{NameRef: r0, FuncHash: 0x11, NumCounters: 2},
		{NameRef: r1, FuncHash: 0x22, NumCounters: 1,
			NumValueSites: [NumValueKinds]uint16{1, 1}},
	}
	cnts := []uint64{5, 7, 9}
	return NewStore(data, cnts, names)
}

func TestAddValue(t *testing.T) {
	s := buildTestStore()
	defer s.Destroy()

	if !s.AddValue(1, VKIndirectCallTarget, 0, 10) {
		t.Errorf("AddValue failed for a valid site\n")
	}
	s.AddValue(1, VKIndirectCallTarget, 0, 20)
	s.AddValue(1, VKIndirectCallTarget, 0, 10) // repeat value
	if n := s.NumValues(1, VKIndirectCallTarget, 0); n != 2 {
		t.Errorf("expected 2 distinct values, got %d\n", n)
	}
	// repeated value bumps the count, does not grow the chain
	d := &s.data[1]
	fv := s.funcVals(d)
	nd := s.arena.node(fv.heads[0])
	if nd.Value != 10 || nd.Count != 2 {
		t.Errorf("head node (0x%x, %d), expected (0xa, 2)\n",
			nd.Value, nd.Count)
	}
	if s.NumValues(1, VKMemOPSize, 0) != 0 {
		t.Errorf("untouched site has values\n")
	}
}

func TestAddValueBounds(t *testing.T) {
	s := buildTestStore()
	defer s.Destroy()

	if s.AddValue(5, VKIndirectCallTarget, 0, 1) {
		t.Errorf("AddValue accepted a bad function index\n")
	}
	if s.AddValue(0, VKIndirectCallTarget, 0, 1) {
		t.Errorf("AddValue accepted a site on a function without sites\n")
	}
	if s.AddValue(1, VKIndirectCallTarget, 1, 1) {
		t.Errorf("AddValue accepted an out of range site\n")
	}
	if s.AddValue(1, VKBad, 0, 1) {
		t.Errorf("AddValue accepted a bad value kind\n")
	}
}

func TestAddValueOrder(t *testing.T) {
	s := buildTestStore()
	defer s.Destroy()

	vals := []uint64{42, 7, 99, 3}
	for _, v := range vals {
		s.AddValue(1, VKIndirectCallTarget, 0, v)
	}
	d := &s.data[1]
	fv := s.funcVals(d)
	i := fv.heads[0]
	for _, v := range vals {
		if i == nilNode {
			t.Fatalf("chain shorter than the inserted values\n")
		}
		nd := s.arena.node(i)
		if nd.Value != v {
			t.Errorf("chain out of insertion order: got 0x%x, want 0x%x\n",
				nd.Value, v)
		}
		i = nd.next
	}
	if i != nilNode {
		t.Errorf("chain longer than the inserted values\n")
	}
}

func TestAppendFuncName(t *testing.T) {
	names, ref := AppendFuncName(nil, "foo")
	if !bytes.Equal(names, []byte("foo")) {
		t.Errorf("bad name blob %q\n", names)
	}
	if ref == 0 || ref != NameRef("foo") {
		t.Errorf("inconsistent name ref 0x%x\n", ref)
	}
	if NameRef("foo") == NameRef("bar") {
		t.Errorf("name ref collision\n")
	}
	names, _ = AppendFuncName(names, "bar")
	if !bytes.Equal(names, []byte("foobar")) {
		t.Errorf("bad name blob %q\n", names)
	}
}

func TestRegisterStore(t *testing.T) {
	if _, err := OpenSession(); err != ErrNoStore {
		t.Errorf("expected ErrNoStore, got %v\n", err)
	}
	if err := ResetCounters(); err != ErrNoStore {
		t.Errorf("expected ErrNoStore, got %v\n", err)
	}
	s := buildTestStore()
	defer s.Destroy()
	RegisterStore(s)
	defer RegisterStore(nil)
	if CurrentStore() != s {
		t.Errorf("CurrentStore mismatch\n")
	}
	sess, err := OpenSession()
	if err != nil {
		t.Fatalf("OpenSession: %v\n", err)
	}
	sess.Close()
	if err = ResetCounters(); err != nil {
		t.Errorf("ResetCounters: %v\n", err)
	}
}
