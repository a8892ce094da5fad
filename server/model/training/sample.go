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

package training

// Label is the class of a training sample.
type Label uint8

const (
	// Positive marks a real captured login.
	Positive Label = iota

	// Negative marks a synthesized login that never happened.
	Negative
)

func (l Label) String() string {
	if l == Negative {
		return "negative"
	}

	return "positive"
}

// Target returns the value the network is trained towards. The network output is the
// probability that a login is suspicious, so real logins map to 0.
func (l Label) Target() float64 {
	if l == Negative {
		return 1
	}

	return 0
}

// Sample is one labeled feature vector. Samples are built per run and never persisted.
type Sample struct {
	Features []float64
	Label    Label
}
