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

import "math"

// DbValue is a power or power ratio in dB/dBm.
type DbValue = float64

// default link parameters for an EU868 end device in a suburban setting
const (
	defaultFrequencyMHz      float64 = 868.1
	defaultDistanceMeters    float64 = 6000.0
	defaultTxPowerDbm        DbValue = 14.0
	defaultGatewayTxPowerDbm DbValue = 27.0
	defaultNoiseFigureDb     DbValue = 6.0
	defaultBandwidthHz       float64 = 125000.0
	thermalNoiseDbmPerHz     DbValue = -174.0
)

// Params stores the parameters of the simulated link between the end device and its gateway.
type Params struct {
	FrequencyMHz         float64 // carrier frequency used for the fixed pathloss term
	DistanceMeters       float64 // distance between end device and gateway
	TxPowerDbm           DbValue // end device transmit power
	GatewayTxPowerDbm    DbValue // gateway transmit power (downlinks)
	ExponentDb           DbValue // 10 * pathloss exponent
	FixedLossDb          DbValue // fixed loss term at 1 m
	NoiseFloorDbm        DbValue // receiver noise floor over the channel bandwidth
	ShadowFadingSigmaDb  DbValue // sigma of the per-link shadow fading
	TimeFadingSigmaDb    DbValue // sigma of the time-variant fading
	MeanTimeFadingChange float64 // mean time in sec between changes of the time-variant fading
	SuccessSlopeDb       DbValue // width of the transition from lost to received frames around the SNR threshold
}

// NewParams gets a new set of parameters with default values, as a basis to configure further.
func NewParams() *Params {
	p := &Params{
		FrequencyMHz:         defaultFrequencyMHz,
		DistanceMeters:       defaultDistanceMeters,
		TxPowerDbm:           defaultTxPowerDbm,
		GatewayTxPowerDbm:    defaultGatewayTxPowerDbm,
		ExponentDb:           28.0,
		ShadowFadingSigmaDb:  4.0,
		TimeFadingSigmaDb:    2.0,
		MeanTimeFadingChange: 60,
		SuccessSlopeDb:       0.8,
	}
	p.FixedLossDb = fixedLossDb(p.FrequencyMHz)
	p.NoiseFloorDbm = noiseFloorDbm(defaultBandwidthHz, defaultNoiseFigureDb)
	return p
}

// SetFrequency sets the carrier frequency and recomputes the fixed pathloss term.
func (p *Params) SetFrequency(mhz float64) {
	p.FrequencyMHz = mhz
	p.FixedLossDb = fixedLossDb(mhz)
}

// free space loss at 1 m
func fixedLossDb(mhz float64) DbValue {
	return paround(20.0*math.Log10(mhz) - 27.55)
}

func noiseFloorDbm(bandwidthHz float64, noiseFigure DbValue) DbValue {
	return paround(thermalNoiseDbmPerHz + 10.0*math.Log10(bandwidthHz) + noiseFigure)
}
