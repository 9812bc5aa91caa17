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

package radiomodel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lora-drt/drt/types"
)

func TestTimeOnAir(t *testing.T) {
	// 13 bytes of LoRaWAN overhead plus a single byte payload
	assert.Equal(t, types.Tick(46336), TimeOnAir(types.SF7, 14))
	assert.Equal(t, types.Tick(164864), TimeOnAir(types.SF9, 14))
	assert.Equal(t, types.Tick(1155072), TimeOnAir(types.SF12, 14))
}

func TestTimeOnAirGrowsWithSpreadingFactor(t *testing.T) {
	prev := types.Tick(0)
	for sf := types.SF7; sf <= types.SF12; sf++ {
		toa := TimeOnAir(sf, 14)
		assert.True(t, toa > prev, "%s", sf)
		prev = toa
	}
}

func TestLowDataRateOptimize(t *testing.T) {
	ap := DefaultAirtimeParams()
	assert.False(t, ap.lowDataRateOptimize(types.SF10))
	assert.True(t, ap.lowDataRateOptimize(types.SF11))
	assert.True(t, ap.lowDataRateOptimize(types.SF12))
	assert.Equal(t, types.Tick(1024), ap.SymbolTime(types.SF7))
}

func TestPayloadSymbolsImplicitHeader(t *testing.T) {
	ap := DefaultAirtimeParams()
	explicit := ap.PayloadSymbols(types.SF7, 14)
	ap.ExplicitHeader = false
	assert.True(t, ap.PayloadSymbols(types.SF7, 14) < explicit)
	assert.Equal(t, 8, ap.PayloadSymbols(types.SF7, 0))
}
