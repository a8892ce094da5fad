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

package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsufficientDataError(t *testing.T) {
	err := NewInsufficientDataError("validation pool has %d positive samples, need %d", 3, 50)

	assert.EqualError(t, err, "validation pool has 3 positive samples, need 50")
	assert.True(t, errors.Is(err, ErrInsufficientData))
	assert.False(t, errors.Is(err, ErrService))

	var target *InsufficientDataError

	assert.True(t, errors.As(err, &target))
}

func TestServiceError(t *testing.T) {
	cause := errors.New("loss is NaN")
	err := NewServiceError("training diverged", cause)

	assert.EqualError(t, err, "training diverged: loss is NaN")
	assert.True(t, errors.Is(err, ErrService))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrInsufficientData))

	assert.EqualError(t, NewServiceError("empty training pool", nil), "empty training pool")
}
