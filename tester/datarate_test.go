// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package tester

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lora-drt/drt/types"
)

func TestDataRateSelectorAuto(t *testing.T) {
	s, err := NewDataRateSelector(DefaultAutoTable, true)
	require.NoError(t, err)
	assert.Equal(t, types.SF7, s.Current())
	assert.Equal(t, -1, s.Index())

	for i, sf := range DefaultAutoTable {
		assert.Equal(t, sf, s.Next(), "index %d", i)
		assert.Equal(t, i, s.Index())
	}
	assert.Equal(t, types.SF7, s.Next())
	assert.Equal(t, 0, s.Index())
}

func TestDataRateSelectorFixed(t *testing.T) {
	s, err := NewDataRateSelector(DefaultAutoTable, false)
	require.NoError(t, err)
	assert.False(t, s.Auto())

	expected := []types.SpreadingFactor{types.SF7, types.SF8, types.SF9, types.SF10, types.SF11, types.SF12, types.SF7}
	for _, sf := range expected {
		assert.Equal(t, sf, s.Next())
	}
}

func TestDataRateSelectorToggleAuto(t *testing.T) {
	s, err := NewDataRateSelector([]types.SpreadingFactor{types.SF12, types.SF9}, true)
	require.NoError(t, err)
	s.Next()
	s.Next()
	assert.Equal(t, types.SF9, s.Current())

	assert.Equal(t, types.SF7, s.ToggleAuto())
	assert.False(t, s.Auto())
	assert.Equal(t, 0, s.Index())

	assert.Equal(t, types.SF12, s.ToggleAuto())
	assert.True(t, s.Auto())
	assert.Equal(t, 0, s.Index())
}

func TestDataRateSelectorInvalidTable(t *testing.T) {
	_, err := NewDataRateSelector(nil, true)
	assert.Error(t, err)
	_, err = NewDataRateSelector([]types.SpreadingFactor{types.SF7, 13}, true)
	assert.Error(t, err)
}

func TestDataRateSelectorIndexInRange(t *testing.T) {
	s, err := NewDataRateSelector([]types.SpreadingFactor{types.SF8, types.SF9, types.SF10}, true)
	require.NoError(t, err)
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		if rnd.Intn(5) == 0 {
			s.ToggleAuto()
		} else {
			s.Next()
		}
		if s.Auto() {
			assert.True(t, s.Index() >= 0 && s.Index() < 3)
		} else {
			assert.True(t, s.Index() >= 0 && s.Index() < 6)
		}
		assert.True(t, s.Current().Valid())
	}
}

func TestDataRateSelectorTableIsCopied(t *testing.T) {
	table := []types.SpreadingFactor{types.SF8}
	s, err := NewDataRateSelector(table, true)
	require.NoError(t, err)
	table[0] = types.SF12
	assert.Equal(t, types.SF8, s.Next())
	s.Table()[0] = types.SF11
	assert.Equal(t, []types.SpreadingFactor{types.SF8}, s.Table())
}
