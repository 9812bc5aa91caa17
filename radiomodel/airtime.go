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
	"math"

	"github.com/lora-drt/drt/types"
)

// AirtimeParams describes the modem settings used to compute the LoRa time on air.
type AirtimeParams struct {
	BandwidthHz     float64
	CodingRate      int // 1..4 for 4/5..4/8
	PreambleSymbols int
	ExplicitHeader  bool
	Crc             bool
}

// DefaultAirtimeParams returns the LoRaWAN uplink settings: 125 kHz, CR 4/5, 8 preamble symbols, explicit header, CRC.
func DefaultAirtimeParams() AirtimeParams {
	return AirtimeParams{
		BandwidthHz:     125000,
		CodingRate:      1,
		PreambleSymbols: 8,
		ExplicitHeader:  true,
		Crc:             true,
	}
}

// SymbolTime returns the duration of one symbol at sf.
func (ap AirtimeParams) SymbolTime(sf types.SpreadingFactor) types.Tick {
	return types.Tick(math.Round(math.Exp2(float64(sf)) / ap.BandwidthHz * float64(types.Second)))
}

// lowDataRateOptimize is mandated for symbol times of 16 ms and longer.
func (ap AirtimeParams) lowDataRateOptimize(sf types.SpreadingFactor) bool {
	return math.Exp2(float64(sf))/ap.BandwidthHz >= 0.016
}

// PayloadSymbols returns the number of symbols needed for a PHY payload of payloadLen bytes, header included.
func (ap AirtimeParams) PayloadSymbols(sf types.SpreadingFactor, payloadLen int) int {
	ih, crc, de := 0, 0, 0
	if !ap.ExplicitHeader {
		ih = 1
	}
	if ap.Crc {
		crc = 1
	}
	if ap.lowDataRateOptimize(sf) {
		de = 1
	}
	num := float64(8*payloadLen - 4*int(sf) + 28 + 16*crc - 20*ih)
	den := float64(4 * (int(sf) - 2*de))
	n := int(math.Ceil(num/den)) * (ap.CodingRate + 4)
	if n < 0 {
		n = 0
	}
	return 8 + n
}

// TimeOnAir returns the transmission duration of a PHY payload of payloadLen bytes at sf.
func (ap AirtimeParams) TimeOnAir(sf types.SpreadingFactor, payloadLen int) types.Tick {
	tsym := math.Exp2(float64(sf)) / ap.BandwidthHz
	preamble := (float64(ap.PreambleSymbols) + 4.25) * tsym
	payload := float64(ap.PayloadSymbols(sf, payloadLen)) * tsym
	return types.Tick(math.Round((preamble + payload) * float64(types.Second)))
}

// TimeOnAir computes the time on air with the default LoRaWAN settings.
func TimeOnAir(sf types.SpreadingFactor, payloadLen int) types.Tick {
	return DefaultAirtimeParams().TimeOnAir(sf, payloadLen)
}
