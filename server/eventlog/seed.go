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

package eventlog

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/log"
	"github.com/cloudcopy/suspicious-login/server/model/login"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-kit/log/level"
)

const seedBatchSize = 500

// SeedConfig describes a synthetic login log. Every account logs in from a small set of home
// addresses, which is the pattern the classifier learns.
type SeedConfig struct {
	Accounts            int
	AddressesPerAccount int
	Events              int

	// From and To bound the login timestamps (Unix seconds, inclusive).
	From int64
	To   int64

	// IPv6Share is the fraction of home addresses that are IPv6.
	IPv6Share float64

	// Seed makes the generated log reproducible. Zero picks a random seed.
	Seed uint64
}

// Validate checks that the configuration can produce a log.
func (c SeedConfig) Validate() error {
	switch {
	case c.Accounts < 1:
		return fmt.Errorf("seed: accounts must be at least 1")
	case c.AddressesPerAccount < 1:
		return fmt.Errorf("seed: addresses per account must be at least 1")
	case c.Events < 0:
		return fmt.Errorf("seed: events must not be negative")
	case c.From > c.To:
		return fmt.Errorf("seed: from %d is after to %d", c.From, c.To)
	case c.IPv6Share < 0 || c.IPv6Share > 1:
		return fmt.Errorf("seed: IPv6 share must be in [0, 1]")
	}

	return nil
}

type seedAccount struct {
	id        string
	addresses []netip.Addr
}

// Seed appends cfg.Events synthetic logins in batches and returns the number written.
func Seed(ctx context.Context, appender Appender, cfg SeedConfig) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	faker := gofakeit.New(cfg.Seed)
	accounts := make([]seedAccount, cfg.Accounts)

	for i := range accounts {
		accounts[i].id = fmt.Sprintf("%s%d", faker.Username(), i)

		for j := 0; j < cfg.AddressesPerAccount; j++ {
			raw := faker.IPv4Address()
			if faker.Float64Range(0, 1) < cfg.IPv6Share {
				raw = faker.IPv6Address()
			}

			addr, err := netip.ParseAddr(raw)
			if err != nil {
				return 0, fmt.Errorf("seed: %w", err)
			}

			accounts[i].addresses = append(accounts[i].addresses, addr)
		}
	}

	batch := make([]login.Event, 0, seedBatchSize)
	written := 0
	span := int(cfg.To - cfg.From)

	for written+len(batch) < cfg.Events {
		account := accounts[faker.Number(0, len(accounts)-1)]

		batch = append(batch, login.Event{
			IP:        account.addresses[faker.Number(0, len(account.addresses)-1)],
			AccountID: account.id,
			Timestamp: cfg.From + int64(faker.Number(0, span)),
		})

		if len(batch) == seedBatchSize {
			if err := appender.Append(ctx, batch...); err != nil {
				return written, err
			}

			written += len(batch)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := appender.Append(ctx, batch...); err != nil {
			return written, err
		}

		written += len(batch)
	}

	level.Info(log.Logger).Log(
		definitions.LogKeyMsg, "Seeded synthetic login log",
		"accounts", cfg.Accounts,
		"events", written,
	)

	return written, nil
}
