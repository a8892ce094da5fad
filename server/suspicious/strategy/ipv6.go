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
	"encoding/binary"
	"fmt"
	"math/rand"
	"net/netip"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
	"github.com/cloudcopy/suspicious-login/server/model/login"
	"github.com/cloudcopy/suspicious-login/server/suspicious/mlp"
)

// ipv6PrefixBits is the routing prefix length that is encoded. Interface identifiers are
// usually random per device and carry no location information.
const ipv6PrefixBits = 64

var defaultIPv6Config = mustConfig(80, 3, 0.6, 0.4, 0.02)

// IPv6 encodes the account hash bits followed by the first 64 address bits.
type IPv6 struct{}

var _ Strategy = IPv6{}

func (IPv6) Family() definitions.AddressFamily { return definitions.AddressFamilyV6 }

func (IPv6) TypeName() string { return "IPv6" }

func (IPv6) InputSize() int { return AccountBits + ipv6PrefixBits }

func (IPv6) DefaultMLPConfig() mlp.Config { return defaultIPv6Config }

func (s IPv6) ExtractFeatures(event login.Event) ([]float64, error) {
	if !event.IP.Is6() || event.IP.Is4In6() {
		return nil, fmt.Errorf("%w: %s is not an IPv6 address", errors.ErrFamilyMismatch, event.IP)
	}

	octets := event.IP.As16()
	features := make([]float64, 0, s.InputSize())
	features = appendAccountBits(features, event.AccountID)

	return appendAddressBits(features, octets[:ipv6PrefixBits/8]), nil
}

// RandomAddress draws a random /64 prefix with a zero interface identifier.
func (IPv6) RandomAddress(rng *rand.Rand) netip.Addr {
	var octets [16]byte

	binary.BigEndian.PutUint64(octets[:8], rng.Uint64())

	return netip.AddrFrom16(octets)
}
