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

package strategy

import (
	"fmt"
	"math/rand"
	"net/netip"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
	"github.com/cloudcopy/suspicious-login/server/model/login"
	"github.com/cloudcopy/suspicious-login/server/suspicious/mlp"
)

const ipv4Bits = 32

var defaultIPv4Config = mustConfig(100, 2, 0.5, 0.5, 0.05)

// IPv4 encodes the account hash bits followed by all 32 address bits.
type IPv4 struct{}

var _ Strategy = IPv4{}

func (IPv4) Family() definitions.AddressFamily { return definitions.AddressFamilyV4 }

func (IPv4) TypeName() string { return "IPv4" }

func (IPv4) InputSize() int { return AccountBits + ipv4Bits }

func (IPv4) DefaultMLPConfig() mlp.Config { return defaultIPv4Config }

func (s IPv4) ExtractFeatures(event login.Event) ([]float64, error) {
	addr := event.IP.Unmap()
	if !addr.Is4() {
		return nil, fmt.Errorf("%w: %s is not an IPv4 address", errors.ErrFamilyMismatch, event.IP)
	}

	octets := addr.As4()
	features := make([]float64, 0, s.InputSize())
	features = appendAccountBits(features, event.AccountID)

	return appendAddressBits(features, octets[:]), nil
}

func (IPv4) RandomAddress(rng *rand.Rand) netip.Addr {
	value := rng.Uint32()

	return netip.AddrFrom4([4]byte{byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value)})
}
