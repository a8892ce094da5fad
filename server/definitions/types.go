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

package definitions

// DbgModule represents a debug module identifier.
type DbgModule uint8

// String returns the configuration name of a debug module.
func (d DbgModule) String() string {
	switch d {
	case DbgAll:
		return DbgAllName
	case DbgNeural:
		return DbgNeuralName
	case DbgDataset:
		return DbgDatasetName
	case DbgEventLog:
		return DbgEventLogName
	case DbgModelStore:
		return DbgModelStoreName
	case DbgReport:
		return DbgReportName
	default:
		return DbgNoneName
	}
}

// DbgModuleFromName maps a configured debug module name to its identifier.
func DbgModuleFromName(name string) (DbgModule, bool) {
	switch name {
	case DbgNoneName:
		return DbgNone, true
	case DbgAllName:
		return DbgAll, true
	case DbgNeuralName:
		return DbgNeural, true
	case DbgDatasetName:
		return DbgDataset, true
	case DbgEventLogName:
		return DbgEventLog, true
	case DbgModelStoreName:
		return DbgModelStore, true
	case DbgReportName:
		return DbgReport, true
	default:
		return DbgNone, false
	}
}

// AddressFamily selects the IP address space a model is trained for.
type AddressFamily uint8

const (
	// AddressFamilyV4 is the IPv4 address space.
	AddressFamilyV4 AddressFamily = 4

	// AddressFamilyV6 is the IPv6 address space.
	AddressFamilyV6 AddressFamily = 6
)

func (a AddressFamily) String() string {
	switch a {
	case AddressFamilyV4:
		return "v4"
	case AddressFamilyV6:
		return "v6"
	default:
		return "unknown"
	}
}

// Valid reports whether a is one of the supported address families.
func (a AddressFamily) Valid() bool {
	return a == AddressFamilyV4 || a == AddressFamilyV6
}

// MarshalText implements encoding.TextMarshaler.
func (a AddressFamily) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AddressFamily) UnmarshalText(text []byte) error {
	switch string(text) {
	case "v4":
		*a = AddressFamilyV4
	case "v6":
		*a = AddressFamilyV6
	default:
		return &UnknownAddressFamilyError{Name: string(text)}
	}

	return nil
}

// UnknownAddressFamilyError is returned when decoding an unsupported family name.
type UnknownAddressFamilyError struct {
	Name string
}

func (e *UnknownAddressFamilyError) Error() string {
	return "unknown address family: " + e.Name
}
