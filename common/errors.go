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

package common

import "errors"

// Sentinel error kinds. DuplicateCid is deliberately absent: a duplicate cid
// is a normal outcome surfaced as a bool return, never an error (spec §7).
var (
	// ErrOutOfWindow is returned when a timestamp falls outside an arena's Window.
	ErrOutOfWindow = errors.New("crimeline: timestamp outside arena window")

	// ErrSealed is returned when a mutation is attempted on a sealed Hot
	// arena or on a Cold arena (which is always read-only).
	ErrSealed = errors.New("crimeline: arena is sealed")

	// ErrCorruptSlice is returned when an interchange file fails its
	// schema, footer-checksum, or Window-monotonicity checks.
	ErrCorruptSlice = errors.New("crimeline: corrupt interchange slice")

	// ErrIoFailure wraps an underlying file or mmap failure.
	ErrIoFailure = errors.New("crimeline: io failure")

	// ErrBadShardCount is returned at UserMap construction time when the
	// requested shard count isn't a power of two in [2, 4096].
	ErrBadShardCount = errors.New("crimeline: shard count must be a power of two in [2, 4096]")
)
