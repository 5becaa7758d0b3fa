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

// Package common holds the scalar types, the Window interval, the sentinel
// error kinds and the shared logger used by every other crimeline package.
package common

import (
	"github.com/google/uuid"
)

// Cid is an opaque content identifier assigned upstream. crimeline never
// interprets it beyond equality and ordering.
type Cid = uint64

// Uid is a dense 32-bit user identifier.
type Uid = uint32

// ColdID names a Cold arena for Timeline.Remove. Minted fresh by compaction
// or by interchange import; never persisted across process restarts.
type ColdID = uuid.UUID

// NewColdID mints a fresh, random ColdID.
func NewColdID() ColdID {
	return uuid.New()
}

// Window is the half-open interval [Epoch, Epoch+Duration) an arena's
// entries must fall within. Duration must fit a uint32 once entries are
// re-encoded as relative offsets in a Cold arena.
type Window struct {
	Epoch    uint64
	Duration uint64
}

// Contains reports whether the absolute timestamp t falls in the window.
func (w Window) Contains(t int64) bool {
	if t < 0 {
		return false
	}
	ts := uint64(t)
	return ts >= w.Epoch && ts < w.Epoch+w.Duration
}

// Relative converts an absolute timestamp to its offset from Epoch. The
// caller must have already checked Contains.
func (w Window) Relative(t int64) uint32 {
	return uint32(uint64(t) - w.Epoch)
}

// Absolute restores an absolute timestamp from a relative offset.
func (w Window) Absolute(rel uint32) int64 {
	return int64(w.Epoch + uint64(rel))
}

// End returns the exclusive upper bound of the window, Epoch+Duration.
func (w Window) End() uint64 {
	return w.Epoch + w.Duration
}
