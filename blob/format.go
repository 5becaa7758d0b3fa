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

// Package blob implements the runtime columnar file format: an append-only,
// mmap-friendly layout that lets a reader resolve a blob by position without
// allocation, copy, or deserialization. Not a stable interface (see
// SPEC_FULL.md §4.1/§6) -- the temp file backing a Store is deleted once the
// last reference to it drops.
//
// Layout:
//
//	[ blob 0 ][ blob 1 ] ... [ blob n-1 ]
//	[ offsets: (n+1) x u64 LE ]   -- offsets[i], offsets[i+1]) bounds blob i
//	[ footer: u32 count | u64 xxhash64(offsets bytes) | 4-byte magic "CRBF" ]
package blob

import "encoding/binary"

const (
	magic      = "CRBF"
	footerSize = 4 + 8 + 4 // count + checksum + magic
)

func encodeOffsets(offsets []uint64) []byte {
	buf := make([]byte, len(offsets)*8)
	for i, o := range offsets {
		binary.LittleEndian.PutUint64(buf[i*8:], o)
	}
	return buf
}

func decodeOffsets(buf []byte) []uint64 {
	n := len(buf) / 8
	offsets := make([]uint64, n)
	for i := 0; i < n; i++ {
		offsets[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	return offsets
}

func encodeFooter(count uint32, checksum uint64) []byte {
	buf := make([]byte, footerSize)
	binary.LittleEndian.PutUint32(buf[0:4], count)
	binary.LittleEndian.PutUint64(buf[4:12], checksum)
	copy(buf[12:16], magic)
	return buf
}

type footer struct {
	count    uint32
	checksum uint64
}

func decodeFooter(buf []byte) (footer, bool) {
	if len(buf) != footerSize || string(buf[12:16]) != magic {
		return footer{}, false
	}
	return footer{
		count:    binary.LittleEndian.Uint32(buf[0:4]),
		checksum: binary.LittleEndian.Uint64(buf[4:12]),
	}, true
}
