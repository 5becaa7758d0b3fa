// Copyright 2026 The Crimeline Authors
// This file is part of crimeline.
//
// crimeline is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// crimeline is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with crimeline. If not, see <http://www.gnu.org/licenses/>.

// Package timeline implements a lock-free, RCU-updated collection of Cold
// arenas: snapshot/iter never block, Add/Remove are short CAS-loops that
// never block a reader (spec.md §4.5/§5/§9).
package timeline

import (
	"iter"
	"sort"
	"sync/atomic"

	"github.com/erigontech/crimeline/cold"
	"github.com/erigontech/crimeline/common"
)

// Timeline owns a versioned, atomically swappable ordered sequence of Cold
// arena handles. Insertion order is by Window.Epoch; ties are broken by
// insertion order into the Timeline.
type Timeline struct {
	seq atomic.Pointer[[]*cold.Arena]
}

// New creates an empty Timeline.
func New() *Timeline {
	t := &Timeline{}
	empty := make([]*cold.Arena, 0)
	t.seq.Store(&empty)
	return t
}

// Add registers arena with the Timeline via an RCU swap: load the current
// sequence, build a new one with arena inserted in Window.Epoch order, CAS
// it in, retrying on conflicting concurrent swaps. The Timeline becomes the
// owner of arena's initial blob.Store reference; it is released only when
// arena is later Removed (and, if some Snapshot still holds it, only once
// that Snapshot is also released).
func (t *Timeline) Add(arena *cold.Arena) {
	for {
		oldPtr := t.seq.Load()
		old := *oldPtr
		next := make([]*cold.Arena, 0, len(old)+1)
		next = append(next, old...)
		next = append(next, arena)
		sort.SliceStable(next, func(i, j int) bool {
			return next[i].Window().Epoch < next[j].Window().Epoch
		})
		if t.seq.CompareAndSwap(oldPtr, &next) {
			common.Logger().Debugw("timeline add", "cold_id", arena.ID(), "epoch", arena.Window().Epoch)
			return
		}
	}
}

// Remove drops the arena identified by id from the Timeline via an RCU swap.
// Reports whether an arena with that id was present. The arena is released
// (and, if no Snapshot holds it, destroyed) only after this call's own
// reference is dropped -- it is never mutated or destroyed while a snapshot
// is in flight.
func (t *Timeline) Remove(id common.ColdID) bool {
	var removed *cold.Arena
	for {
		oldPtr := t.seq.Load()
		old := *oldPtr
		idx := -1
		for i, a := range old {
			if a.ID() == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			return false
		}
		next := make([]*cold.Arena, 0, len(old)-1)
		next = append(next, old[:idx]...)
		next = append(next, old[idx+1:]...)
		if t.seq.CompareAndSwap(oldPtr, &next) {
			removed = old[idx]
			break
		}
	}
	common.Logger().Debugw("timeline remove", "cold_id", id)
	if err := removed.Release(); err != nil {
		common.Logger().Warnw("releasing removed cold arena", "cold_id", id, "err", err)
	}
	return true
}

// Snapshot is a reference-counted view of the Timeline's arena sequence at a
// point in time. All contained Cold arenas remain alive until the Snapshot
// is released, even if concurrently removed from the Timeline.
type Snapshot struct {
	arenas []*cold.Arena
}

// Snapshot performs a wait-free atomic load of the current sequence and
// acquires an extra reference on every contained arena, so they survive any
// concurrent Remove until this Snapshot is Released.
func (t *Timeline) Snapshot() *Snapshot {
	ptr := t.seq.Load()
	seq := *ptr
	arenas := make([]*cold.Arena, len(seq))
	copy(arenas, seq)
	for _, a := range arenas {
		a.Acquire()
	}
	return &Snapshot{arenas: arenas}
}

// Arenas returns the ordered Cold arenas captured by this Snapshot.
func (s *Snapshot) Arenas() []*cold.Arena { return s.arenas }

// Len returns the number of arenas in the Snapshot.
func (s *Snapshot) Len() int { return len(s.arenas) }

// Release drops this Snapshot's extra reference on every contained arena.
func (s *Snapshot) Release() {
	for _, a := range s.arenas {
		if err := a.Release(); err != nil {
			common.Logger().Warnw("releasing snapshot arena", "cold_id", a.ID(), "err", err)
		}
	}
}

// ScanEntry is one row yielded by Snapshot.Iter.
type ScanEntry struct {
	Arena     *cold.Arena
	Index     int
	Uid       common.Uid
	Timestamp int64
}

// Iter scans the arenas in this Snapshot whose Window may contain entries
// at or after (order=Asc) / at or before (order=Desc) startTs, visiting
// arenas in (or reverse) Window.Epoch order and, within each arena, in the
// requested order. Iter does not filter individual entries against startTs,
// nor against any social-graph predicate -- that composition belongs to
// package scan (spec.md §4.5 "Filtering is not a Timeline concern").
func (s *Snapshot) Iter(startTs int64, order cold.Order) iter.Seq[ScanEntry] {
	return func(yield func(ScanEntry) bool) {
		n := len(s.arenas)
		visit := func(a *cold.Arena) bool {
			for e := range a.Iter(order) {
				if !yield(ScanEntry{Arena: a, Index: e.Index, Uid: e.Uid, Timestamp: e.Timestamp}) {
					return false
				}
			}
			return true
		}
		if order == cold.Asc {
			for i := 0; i < n; i++ {
				a := s.arenas[i]
				if a.Window().End() <= uint64(startTs) && startTs >= 0 {
					continue
				}
				if !visit(a) {
					return
				}
			}
			return
		}
		for i := n - 1; i >= 0; i-- {
			a := s.arenas[i]
			if startTs >= 0 && a.Window().Epoch > uint64(startTs) {
				continue
			}
			if !visit(a) {
				return
			}
		}
	}
}
