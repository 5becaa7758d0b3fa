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

// Package compact implements Hot -> Cold compaction: sort the sealed Hot
// arena's rows by (timestamp, cid), re-encode timestamps as Window-relative
// offsets, and re-emit blobs in the new order into a fresh runtime file
// (spec.md §4.3).
package compact

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/erigontech/crimeline/blob"
	"github.com/erigontech/crimeline/cold"
	"github.com/erigontech/crimeline/common"
	"github.com/erigontech/crimeline/hot"
)

// Compact consumes a sealed Hot arena and produces a Cold arena. dir is
// where the Cold arena's fresh runtime blob file is created. Cost is
// O(n log n): the permutation sort dominates; materializing the uid and
// relative-timestamp columns is O(n) and fanned out across goroutines,
// while blob re-emission stays sequential (it streams to one file).
func Compact(ctx context.Context, arena *hot.Arena, dir string) (*cold.Arena, error) {
	if !arena.Sealed() {
		return nil, common.ErrSealed
	}
	defer func() {
		if err := arena.Release(); err != nil {
			common.Logger().Warnw("releasing consumed hot arena", "epoch", arena.Window().Epoch, "err", err)
		}
	}()
	n := arena.Len()
	window := arena.Window()

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.Slice(perm, func(i, j int) bool {
		a, b := perm[i], perm[j]
		ta, tb := arena.TimestampAt(a), arena.TimestampAt(b)
		if ta != tb {
			return ta < tb
		}
		return arena.CidAt(a) < arena.CidAt(b)
	})

	uids := make([]common.Uid, n)
	relTs := make([]uint32, n)

	if n > 0 {
		workers := runtime.GOMAXPROCS(0)
		if workers > n {
			workers = n
		}
		if workers < 1 {
			workers = 1
		}
		chunk := (n + workers - 1) / workers

		g, _ := errgroup.WithContext(ctx)
		for w := 0; w < workers; w++ {
			start := w * chunk
			end := start + chunk
			if end > n {
				end = n
			}
			if start >= end {
				continue
			}
			g.Go(func() error {
				for i := start; i < end; i++ {
					orig := perm[i]
					uids[i] = arena.UidAt(orig)
					relTs[i] = window.Relative(arena.TimestampAt(orig))
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	builder, err := blob.NewBuilder(dir)
	if err != nil {
		return nil, err
	}
	src := arena.BlobStore()
	for i := 0; i < n; i++ {
		payload, err := src.Resolve(arena.BlobPositionAt(perm[i]))
		if err != nil {
			_ = builder.Abort()
			return nil, err
		}
		if _, err := builder.Append(payload); err != nil {
			_ = builder.Abort()
			return nil, err
		}
	}
	store, err := builder.Finalize()
	if err != nil {
		return nil, err
	}

	coldArena, err := cold.New(window, uids, relTs, store)
	if err != nil {
		_ = store.Release()
		return nil, err
	}
	common.Logger().Infow("compaction complete", "entries", n, "epoch", window.Epoch, "cold_id", coldArena.ID())
	return coldArena, nil
}
