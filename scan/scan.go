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

// Package scan composes a timeline.Snapshot scan with Relationships
// predicates: this is the fan-out-on-read protocol itself (spec.md §4.8).
package scan

import (
	"iter"

	"github.com/erigontech/crimeline/cold"
	"github.com/erigontech/crimeline/common"
	"github.com/erigontech/crimeline/relationships"
	"github.com/erigontech/crimeline/timeline"
)

// Entry is one filtered, yielded row: a scan match the caller may Resolve
// via Entry.Arena.
type Entry struct {
	Arena     *cold.Arena
	Index     int
	Uid       common.Uid
	Timestamp int64
}

// options holds the caller-side scan knobs.
type options struct {
	limit int
}

// Option configures a Filtered scan.
type Option func(*options)

// WithLimit stops the scan after n entries have been yielded. n <= 0 means
// unbounded. This is not part of the core protocol -- spec.md §4.8 leaves
// "when to stop consuming the lazy sequence" entirely to the caller -- it is
// a convenience for the common paginated-feed case.
func WithLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

// Filtered scans snap starting at startTs in the given order, yielding only
// entries that pass the reader r's social-graph filter: an entry by author
// uid is skipped when r blocks uid, and otherwise yielded only when r
// follows uid (blocks checked first to short-circuit "I follow X but
// blocked them").
func Filtered(snap *timeline.Snapshot, r common.Uid, startTs int64, order cold.Order, rel *relationships.Relationships, opts ...Option) iter.Seq[Entry] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return func(yield func(Entry) bool) {
		count := 0
		for e := range snap.Iter(startTs, order) {
			if order == cold.Asc {
				if e.Timestamp < startTs {
					continue
				}
			} else {
				if startTs >= 0 && e.Timestamp > startTs {
					continue
				}
			}
			// IsBlockedBy(uid, r): is uid blocked by r, i.e. does r block uid.
			if rel.IsBlockedBy(e.Uid, r) {
				continue
			}
			// IsFollowedBy(uid, r): is uid followed by r, i.e. does r follow uid.
			if !rel.IsFollowedBy(e.Uid, r) {
				continue
			}
			if !yield(Entry{Arena: e.Arena, Index: e.Index, Uid: e.Uid, Timestamp: e.Timestamp}) {
				return
			}
			count++
			if o.limit > 0 && count >= o.limit {
				return
			}
		}
	}
}
