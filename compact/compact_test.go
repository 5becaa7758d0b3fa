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

package compact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/crimeline/common"
	"github.com/erigontech/crimeline/hot"
)

// TestCompactionOrder is scenario S2 from spec.md §8.
func TestCompactionOrder(t *testing.T) {
	window := common.Window{Epoch: 0, Duration: 2000}
	arena, err := hot.NewArena(window, t.TempDir())
	require.NoError(t, err)

	type row struct {
		cid common.Cid
		uid common.Uid
		ts  int64
	}
	rows := []row{
		{cid: 5, uid: 1, ts: 1050},
		{cid: 3, uid: 1, ts: 1050},
		{cid: 9, uid: 2, ts: 1010},
	}
	for _, r := range rows {
		ok, err := arena.Add(r.cid, r.uid, r.ts, []byte{byte(r.cid)})
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, arena.Seal())

	coldArena, err := Compact(context.Background(), arena, t.TempDir())
	require.NoError(t, err)
	defer coldArena.Release()

	require.Equal(t, 3, coldArena.Len())
	wantTs := []int64{1010, 1050, 1050}
	wantUid := []common.Uid{2, 1, 1}
	wantBlob := []byte{9, 3, 5}
	for i := 0; i < 3; i++ {
		require.Equal(t, wantTs[i], coldArena.TimestampAt(i))
		require.Equal(t, wantUid[i], coldArena.UidAt(i))
		b, err := coldArena.Resolve(i)
		require.NoError(t, err)
		require.Equal(t, []byte{wantBlob[i]}, b)
	}
}

// TestSortedColdInvariant is invariant 2 from spec.md §8: after compaction,
// (rel_ts, cid) is lexicographically non-decreasing.
func TestSortedColdInvariant(t *testing.T) {
	window := common.Window{Epoch: 10_000, Duration: 5000}
	arena, err := hot.NewArena(window, t.TempDir())
	require.NoError(t, err)

	cids := []common.Cid{50, 10, 30, 10, 20, 40}
	tss := []int64{10100, 10050, 10050, 10010, 10200, 10010}
	for i := range cids {
		_, err := arena.Add(cids[i], common.Uid(i), tss[i], []byte{byte(i)})
		require.NoError(t, err)
	}
	require.NoError(t, arena.Seal())

	coldArena, err := Compact(context.Background(), arena, t.TempDir())
	require.NoError(t, err)
	defer coldArena.Release()

	// each blob is the byte of its original row, which recovers the row's cid.
	cidAt := func(i int) common.Cid {
		b, err := coldArena.Resolve(i)
		require.NoError(t, err)
		return cids[b[0]]
	}
	for i := 1; i < coldArena.Len(); i++ {
		prevTs, curTs := coldArena.TimestampAt(i-1), coldArena.TimestampAt(i)
		require.True(t, prevTs <= curTs, "timestamps must be non-decreasing")
		if prevTs == curTs {
			require.True(t, cidAt(i-1) < cidAt(i), "equal timestamps must be ordered by cid")
		}
	}
}

// TestRelativeTimestampRoundTrip is invariant 3 from spec.md §8.
func TestRelativeTimestampRoundTrip(t *testing.T) {
	window := common.Window{Epoch: 5_000_000, Duration: 1_000_000}
	arena, err := hot.NewArena(window, t.TempDir())
	require.NoError(t, err)

	ts := []int64{5_000_001, 5_500_000, 5_999_999}
	for i, t0 := range ts {
		_, err := arena.Add(common.Cid(i), common.Uid(i), t0, []byte{byte(i)})
		require.NoError(t, err)
	}
	require.NoError(t, arena.Seal())

	coldArena, err := Compact(context.Background(), arena, t.TempDir())
	require.NoError(t, err)
	defer coldArena.Release()

	for i := 0; i < coldArena.Len(); i++ {
		require.Contains(t, ts, coldArena.TimestampAt(i))
	}
}
