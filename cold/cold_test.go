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

package cold

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/crimeline/blob"
	"github.com/erigontech/crimeline/common"
)

func buildArena(t *testing.T, window common.Window, uids []common.Uid, relTs []uint32, payloads [][]byte) *Arena {
	t.Helper()
	b, err := blob.NewBuilder(t.TempDir())
	require.NoError(t, err)
	for _, p := range payloads {
		_, err := b.Append(p)
		require.NoError(t, err)
	}
	store, err := b.Finalize()
	require.NoError(t, err)
	arena, err := New(window, uids, relTs, store)
	require.NoError(t, err)
	return arena
}

func TestArenaBasics(t *testing.T) {
	window := common.Window{Epoch: 1000, Duration: 1000}
	arena := buildArena(t, window,
		[]common.Uid{2, 1, 1},
		[]uint32{10, 50, 50},
		[][]byte{[]byte("nine"), []byte("three"), []byte("five")},
	)
	defer arena.Release()

	require.Equal(t, 3, arena.Len())
	require.Equal(t, int64(1010), arena.TimestampAt(0))
	require.Equal(t, int64(1050), arena.TimestampAt(1))

	var gotAsc []int
	for e := range arena.Iter(Asc) {
		gotAsc = append(gotAsc, e.Index)
	}
	require.Equal(t, []int{0, 1, 2}, gotAsc)

	var gotDesc []int
	for e := range arena.Iter(Desc) {
		gotDesc = append(gotDesc, e.Index)
	}
	require.Equal(t, []int{2, 1, 0}, gotDesc)
}

func TestArenaRejectsOutOfWindowRelativeTimestamp(t *testing.T) {
	b, err := blob.NewBuilder(t.TempDir())
	require.NoError(t, err)
	_, err = b.Append([]byte("x"))
	require.NoError(t, err)
	store, err := b.Finalize()
	require.NoError(t, err)
	defer store.Release()

	_, err = New(common.Window{Epoch: 0, Duration: 100}, []common.Uid{1}, []uint32{100}, store)
	require.ErrorIs(t, err, common.ErrOutOfWindow)
}

// TestExportImportRoundTrip is scenario S3 / invariant 4 from spec.md §8.
func TestExportImportRoundTrip(t *testing.T) {
	window := common.Window{Epoch: 1_700_000_000, Duration: 1000}
	n := 1000
	uids := make([]common.Uid, n)
	relTs := make([]uint32, n)
	payloads := make([][]byte, n)
	cids := make([]common.Cid, n)
	for i := 0; i < n; i++ {
		uids[i] = common.Uid(i % 50)
		relTs[i] = uint32(i % int(window.Duration))
		cids[i] = common.Cid(i)
		payloads[i] = bytes.Repeat([]byte{byte(i)}, (i%5)+1)
	}
	// sort rows by (relTs, cid) so the arena satisfies the sorted invariant.
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 1; i < n; i++ {
		for j := i; j > 0 && (relTs[idx[j]] < relTs[idx[j-1]] || (relTs[idx[j]] == relTs[idx[j-1]] && cids[idx[j]] < cids[idx[j-1]])); j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
	sUids := make([]common.Uid, n)
	sRelTs := make([]uint32, n)
	sPayloads := make([][]byte, n)
	sCids := make([]common.Cid, n)
	for i, o := range idx {
		sUids[i] = uids[o]
		sRelTs[i] = relTs[o]
		sPayloads[i] = payloads[o]
		sCids[i] = cids[o]
	}

	arena := buildArena(t, window, sUids, sRelTs, sPayloads)
	defer arena.Release()

	var buf bytes.Buffer
	require.NoError(t, arena.Export(&buf, func(row int) common.Cid { return sCids[row] }))

	imported, err := Import(&buf, t.TempDir())
	require.NoError(t, err)
	defer imported.Release()

	require.Equal(t, window, imported.Window())
	require.Equal(t, arena.Len(), imported.Len())
	for i := 0; i < n; i++ {
		require.Equal(t, arena.UidAt(i), imported.UidAt(i))
		require.Equal(t, arena.TimestampAt(i), imported.TimestampAt(i))
		want, err := arena.Resolve(i)
		require.NoError(t, err)
		got, err := imported.Resolve(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestImportRejectsCorruptChecksum(t *testing.T) {
	window := common.Window{Epoch: 0, Duration: 100}
	arena := buildArena(t, window, []common.Uid{1}, []uint32{5}, [][]byte{[]byte("x")})
	defer arena.Release()

	var buf bytes.Buffer
	require.NoError(t, arena.Export(&buf, func(row int) common.Cid { return 42 }))

	b := buf.Bytes()
	b[len(b)-1] ^= 0xFF // flip every bit of the footer checksum's last byte

	_, err := Import(bytes.NewReader(b), t.TempDir())
	require.ErrorIs(t, err, common.ErrCorruptSlice)
}
