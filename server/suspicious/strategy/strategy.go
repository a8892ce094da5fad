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

// Package strategy turns login events into fixed width feature vectors. There is one
// strategy per address family; each also knows how to draw random addresses of its family
// and which hyperparameters suit it.
package strategy

import (
	"fmt"
	"math/rand"
	"net/netip"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
	"github.com/cloudcopy/suspicious-login/server/model/login"
	"github.com/cloudcopy/suspicious-login/server/suspicious/mlp"

	"github.com/cespare/xxhash/v2"
)

// AccountBits is the number of account hash bits at the start of every feature vector.
const AccountBits = 16

// Strategy encodes login events of one address family.
type Strategy interface {
	// Family returns the address family this strategy handles.
	Family() definitions.AddressFamily

	// TypeName returns a human readable name such as "IPv4".
	TypeName() string

	// InputSize returns the length of every feature vector.
	InputSize() int

	// DefaultMLPConfig returns the hyperparameters used when nothing is overridden.
	DefaultMLPConfig() mlp.Config

	// ExtractFeatures encodes an event. Equal events always give equal vectors.
	ExtractFeatures(event login.Event) ([]float64, error)

	// RandomAddress draws a uniformly random address of the strategy's family from rng.
	RandomAddress(rng *rand.Rand) netip.Addr
}

// ForFamily returns the strategy for an address family.
func ForFamily(family definitions.AddressFamily) (Strategy, error) {
	switch family {
	case definitions.AddressFamilyV4:
		return IPv4{}, nil
	case definitions.AddressFamilyV6:
		return IPv6{}, nil
	default:
		return nil, &definitions.UnknownAddressFamilyError{Name: family.String()}
	}
}

// FamilyOf returns the address family of addr. IPv4-mapped IPv6 addresses count as IPv4.
func FamilyOf(addr netip.Addr) (definitions.AddressFamily, bool) {
	addr = addr.Unmap()

	switch {
	case addr.Is4():
		return definitions.AddressFamilyV4, true
	case addr.Is6():
		return definitions.AddressFamilyV6, true
	default:
		return 0, false
	}
}

// ForAddress returns the strategy matching the family of addr.
func ForAddress(addr netip.Addr) (Strategy, error) {
	family, ok := FamilyOf(addr)
	if !ok {
		return nil, fmt.Errorf("%w: invalid address", errors.ErrFamilyMismatch)
	}

	return ForFamily(family)
}

// appendAccountBits appends the lowest AccountBits bits of the account id hash, most
// significant first.
func appendAccountBits(features []float64, accountID string) []float64 {
	hash := xxhash.Sum64String(accountID)

	for bit := AccountBits - 1; bit >= 0; bit-- {
		features = append(features, float64((hash>>uint(bit))&1))
	}

	return features
}

// appendAddressBits appends every bit of octets, most significant first.
func appendAddressBits(features []float64, octets []byte) []float64 {
	for _, octet := range octets {
		for bit := 7; bit >= 0; bit-- {
			features = append(features, float64((octet>>uint(bit))&1))
		}
	}

	return features
}

func mustConfig(epochs, layers int, shuffled, random, learningRate float64) mlp.Config {
	cfg, err := mlp.NewConfig(epochs, layers, shuffled, random, learningRate)
	if err != nil {
		panic(err)
	}

	return cfg
}
