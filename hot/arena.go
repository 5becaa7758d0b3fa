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

// Package hot implements the write-side accumulator: a single-writer arena
// that dedups incoming content on Cid, buffers per-column arrays, and
// streams blob bytes to a temp file via blob.Builder. Once sealed, an Arena
// is the sole input to package compact.
package hot

import (
	"github.com/erigontech/crimeline/blob"
	"github.com/erigontech/crimeline/common"
)

// Entry is a logical (cid, uid, timestamp, blob) tuple offered to AddBulk.
type Entry struct {
	Cid       common.Cid
	Uid       common.Uid
	Timestamp int64
	Blob      []byte
}

// Arena accumulates content for a single Window. It is owned exclusively by
// one writer goroutine; Add/AddBulk/Seal are not safe for concurrent use
// against each other, matching spec.md §2/§4.2's single-writer contract.
type Arena struct {
	window  common.Window
	builder *blob.Builder

	cids          []common.Cid
	uids          []common.Uid
	timestamps    []int64
	blobPositions []int
	cidSet        map[common.Cid]int

	sealed    bool
	blobStore *blob.Store
	released  bool
}

// NewArena creates an empty Hot arena bound to window, streaming blobs to a
// temp file under dir (os.TempDir() if dir is empty).
func NewArena(window common.Window, dir string) (*Arena, error) {
	b, err := blob.NewBuilder(dir)
	if err != nil {
		return nil, err
	}
	return &Arena{
		window:  window,
		builder: b,
		cidSet:  make(map[common.Cid]int),
	}, nil
}

// Window returns the arena's bound Window.
func (a *Arena) Window() common.Window { return a.window }

// Len returns the number of distinct entries accepted so far.
func (a *Arena) Len() int { return len(a.cids) }

// IsEmpty reports whether no entries have been accepted yet.
func (a *Arena) IsEmpty() bool { return len(a.cids) == 0 }

// Sealed reports whether the arena has been sealed.
func (a *Arena) Sealed() bool { return a.sealed }

// Add inserts one entry. Returns false without writing anything (and without
// consuming a blob position) if cid is already present -- this is the normal
// "duplicate" outcome, never an error (spec.md §7). Returns ErrOutOfWindow if
// timestamp doesn't satisfy the arena's Window, ErrSealed if the arena has
// already been sealed.
func (a *Arena) Add(cid common.Cid, uid common.Uid, timestamp int64, payload []byte) (bool, error) {
	if a.sealed {
		return false, common.ErrSealed
	}
	if !a.window.Contains(timestamp) {
		return false, common.ErrOutOfWindow
	}
	if _, dup := a.cidSet[cid]; dup {
		return false, nil
	}
	pos, err := a.builder.Append(payload)
	if err != nil {
		return false, err
	}
	idx := len(a.cids)
	a.cids = append(a.cids, cid)
	a.uids = append(a.uids, uid)
	a.timestamps = append(a.timestamps, timestamp)
	a.blobPositions = append(a.blobPositions, pos)
	a.cidSet[cid] = idx
	return true, nil
}

// AddBulk inserts a batch, deduping against both the existing set and
// earlier entries within the same batch, preserving first-seen order for
// equal cids. Returns the number of entries actually added and the first
// error encountered (an OutOfWindow entry aborts the remainder of the batch,
// matching Add's per-call contract).
func (a *Arena) AddBulk(entries []Entry) (int, error) {
	seenInBatch := make(map[common.Cid]struct{}, len(entries))
	added := 0
	for _, e := range entries {
		if _, dup := seenInBatch[e.Cid]; dup {
			continue
		}
		seenInBatch[e.Cid] = struct{}{}
		ok, err := a.Add(e.Cid, e.Uid, e.Timestamp, e.Blob)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// Seal transitions the arena to read-only, finalizing the blob builder into
// an mmap-backed blob.Store. Further Add/AddBulk calls fail with ErrSealed.
// compact.Compact is the only intended consumer of a sealed Arena.
func (a *Arena) Seal() error {
	if a.sealed {
		return common.ErrSealed
	}
	store, err := a.builder.Finalize()
	if err != nil {
		return err
	}
	a.blobStore = store
	a.sealed = true
	common.Logger().Infow("hot arena sealed", "entries", len(a.cids), "epoch", a.window.Epoch)
	return nil
}

// CidAt, UidAt, TimestampAt and BlobPositionAt expose the row-th entry's
// columns, for row in [0, Len()). They read the column buffers directly and
// do not check whether the arena is sealed; package compact reads them after
// Seal.
func (a *Arena) CidAt(row int) common.Cid    { return a.cids[row] }
func (a *Arena) UidAt(row int) common.Uid    { return a.uids[row] }
func (a *Arena) TimestampAt(row int) int64   { return a.timestamps[row] }
func (a *Arena) BlobPositionAt(row int) int  { return a.blobPositions[row] }

// BlobStore returns the sealed arena's blob store. Panics if called before Seal.
func (a *Arena) BlobStore() *blob.Store {
	if !a.sealed {
		panic("hot: BlobStore called before Seal")
	}
	return a.blobStore
}

// Release unmaps the arena's runtime blob store and removes its backing temp
// file. Per the Hot arena's lifecycle it is consumed by compaction (spec.md
// §3): compact.Compact calls Release exactly once, on every return path,
// once it is done resolving blobs from this arena. Release on an unsealed or
// already-released arena is a no-op.
func (a *Arena) Release() error {
	if !a.sealed || a.released {
		return nil
	}
	a.released = true
	return a.blobStore.Release()
}
