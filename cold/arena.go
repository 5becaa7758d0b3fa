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

// Package cold implements the read-only, mmap-backed arena: dense uid and
// relative-timestamp columns plus a blob.Store, with import/export to the
// durable interchange columnar file format (see SPEC_FULL.md §4.4/§6).
package cold

import (
	"fmt"
	"iter"

	"github.com/erigontech/crimeline/blob"
	"github.com/erigontech/crimeline/common"
)

// Order selects ascending or descending iteration.
type Order int

const (
	Asc Order = iota
	Desc
)

// IterEntry is one row yielded by Arena.Iter: a position plus its uid and
// absolute timestamp. Resolving the blob is the caller's choice, per
// spec.md §4.4 ("does not resolve blobs").
type IterEntry struct {
	Index     int
	Uid       common.Uid
	Timestamp int64
}

// Arena is an immutable, reference-counted, mmap-backed arena. Heap
// overhead is 8 bytes/entry (4 for uid, 4 for relative timestamp) plus
// fixed per-arena headers -- blob payload lives entirely in the mmap
// (spec.md §4.4).
type Arena struct {
	id     common.ColdID
	window common.Window
	uids   []common.Uid // boxed slice, len == n
	relTs  []uint32     // boxed slice, len == n
	store  *blob.Store
}

// New constructs a Cold arena from already-sorted, already-permuted
// columns. Both compact.Compact and Import call this; it is not itself
// responsible for sorting or permuting.
func New(window common.Window, uids []common.Uid, relTs []uint32, store *blob.Store) (*Arena, error) {
	if len(uids) != len(relTs) {
		return nil, fmt.Errorf("cold: uid/timestamp column length mismatch: %d vs %d", len(uids), len(relTs))
	}
	if store.Len() != len(uids) {
		return nil, fmt.Errorf("cold: blob store length %d != column length %d", store.Len(), len(uids))
	}
	for _, rt := range relTs {
		if uint64(rt) >= window.Duration {
			return nil, common.ErrOutOfWindow
		}
	}
	return &Arena{
		id:     common.NewColdID(),
		window: window,
		uids:   uids,
		relTs:  relTs,
		store:  store,
	}, nil
}

// ID returns the arena's ColdID, the key used by Timeline.Remove.
func (a *Arena) ID() common.ColdID { return a.id }

// Window returns the arena's bound Window.
func (a *Arena) Window() common.Window { return a.window }

// Len returns the number of entries in the arena.
func (a *Arena) Len() int { return len(a.uids) }

// UidAt returns the uid of entry i.
func (a *Arena) UidAt(i int) common.Uid { return a.uids[i] }

// TimestampAt reconstructs the absolute timestamp of entry i as
// window.Epoch + rel_ts[i].
func (a *Arena) TimestampAt(i int) int64 { return a.window.Absolute(a.relTs[i]) }

// Resolve borrows blob i's bytes from the mmap. Must not be retained past
// the arena's last reference being released.
func (a *Arena) Resolve(i int) ([]byte, error) { return a.store.Resolve(i) }

// Acquire bumps the backing blob.Store's reference count, keeping the
// mapping alive as long as this Arena (or any clone sharing it) is held.
func (a *Arena) Acquire() { a.store.Acquire() }

// Release drops the Arena's reference to its backing blob.Store.
func (a *Arena) Release() error { return a.store.Release() }

// Iter returns a lazy, finite sequence of (index, uid, absolute timestamp)
// in the requested order. It never resolves blobs.
func (a *Arena) Iter(order Order) iter.Seq[IterEntry] {
	return func(yield func(IterEntry) bool) {
		n := a.Len()
		if order == Asc {
			for i := 0; i < n; i++ {
				if !yield(IterEntry{Index: i, Uid: a.uids[i], Timestamp: a.TimestampAt(i)}) {
					return
				}
			}
			return
		}
		for i := n - 1; i >= 0; i-- {
			if !yield(IterEntry{Index: i, Uid: a.uids[i], Timestamp: a.TimestampAt(i)}) {
				return
			}
		}
	}
}
