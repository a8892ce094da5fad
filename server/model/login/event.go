// Copyright (C) 2024 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package login

import (
	"net/netip"
)

// Event is a single captured successful login. Events are produced by the capture
// subsystem and are read-only for training.
type Event struct {
	// IP is the client address the login came from.
	IP netip.Addr `json:"ip"`

	// AccountID is the user id of the account that logged in.
	AccountID string `json:"uid"`

	// Timestamp is the login time in Unix seconds.
	Timestamp int64 `json:"ts"`
}

// Pair returns the (IP, account) tuple the event belongs to.
func (e Event) Pair() Pair {
	return Pair{IP: e.IP.Unmap(), AccountID: e.AccountID}
}

// Pair is an (IP, account) tuple. A pair may occur many times in the event log.
type Pair struct {
	IP        netip.Addr
	AccountID string
}

// String returns a stable key for the pair.
func (p Pair) String() string {
	return p.IP.String() + "|" + p.AccountID
}

// CorpusStatistics summarizes the event log independently of any model.
type CorpusStatistics struct {
	// Total is the number of captured logins, repeats included.
	Total int64 `json:"total"`

	// DistinctPairs is the number of distinct (IP, account) tuples.
	DistinctPairs int64 `json:"distinct"`
}

// Accumulator counts events into CorpusStatistics.
type Accumulator struct {
	total int64
	pairs map[Pair]struct{}
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{pairs: make(map[Pair]struct{})}
}

// Add counts one event.
func (a *Accumulator) Add(event Event) {
	a.total++
	a.pairs[event.Pair()] = struct{}{}
}

// Statistics returns the counts seen so far.
func (a *Accumulator) Statistics() CorpusStatistics {
	return CorpusStatistics{Total: a.total, DistinctPairs: int64(len(a.pairs))}
}
