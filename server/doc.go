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

/*
Suspicious-login trains the classifier that flags logins from unusual (IP address, account)
combinations. Each invocation reads the login event log, synthesizes negative samples, trains a
multilayer perceptron for one address family, evaluates it on the most recent logins and saves
it to the model store.

	suspicious-login --v6 --epochs 50 --stats
*/

package main
