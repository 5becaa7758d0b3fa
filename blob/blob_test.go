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

package blob

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderStoreRoundTrip(t *testing.T) {
	b, err := NewBuilder(t.TempDir())
	require.NoError(t, err)

	blobs := [][]byte{
		[]byte("hello"),
		[]byte(""),
		[]byte("world, this is a longer blob payload"),
	}

	for i, data := range blobs {
		pos, err := b.Append(data)
		require.NoError(t, err)
		require.Equal(t, i, pos)
	}
	require.Equal(t, len(blobs), b.Len())

	store, err := b.Finalize()
	require.NoError(t, err)
	defer store.Release()

	require.Equal(t, len(blobs), store.Len())
	for i, want := range blobs {
		got, err := store.Resolve(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestStoreResolveOutOfRange(t *testing.T) {
	b, err := NewBuilder(t.TempDir())
	require.NoError(t, err)
	_, err = b.Append([]byte("a"))
	require.NoError(t, err)
	store, err := b.Finalize()
	require.NoError(t, err)
	defer store.Release()

	_, err = store.Resolve(-1)
	require.Error(t, err)
	_, err = store.Resolve(1)
	require.Error(t, err)
}

func TestStoreRefcountReleasesOnLastDrop(t *testing.T) {
	b, err := NewBuilder(t.TempDir())
	require.NoError(t, err)
	_, err = b.Append([]byte("a"))
	require.NoError(t, err)
	store, err := b.Finalize()
	require.NoError(t, err)

	store.Acquire()
	require.NoError(t, store.Release()) // refs: 2 -> 1, still live
	got, err := store.Resolve(0)
	require.NoError(t, err)
	require.Equal(t, []byte("a"), got)

	require.NoError(t, store.Release()) // refs: 1 -> 0, unmaps + removes temp file
}

func TestEmptyBlobsAndZeroLength(t *testing.T) {
	b, err := NewBuilder(t.TempDir())
	require.NoError(t, err)
	store, err := b.Finalize()
	require.NoError(t, err)
	defer store.Release()
	require.Equal(t, 0, store.Len())
}
