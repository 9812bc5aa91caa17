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

// Package radiomodel models the radio link between the simulated end device and its gateway: LoRa time on air,
// log-distance pathloss with shadow and time-variant fading, and per spreading factor demodulation limits.
package radiomodel

import (
	"fmt"
	"math"
	"sync"

	"github.com/lora-drt/drt/logger"
	"github.com/lora-drt/drt/prng"
	"github.com/lora-drt/drt/types"
)

// demodulation floor per spreading factor (SX1276 datasheet, 125 kHz)
var snrThresholdDb = map[types.SpreadingFactor]DbValue{
	types.SF7:  -7.5,
	types.SF8:  -10.0,
	types.SF9:  -12.5,
	types.SF10: -15.0,
	types.SF11: -17.5,
	types.SF12: -20.0,
}

// SnrThreshold returns the lowest SNR at which a frame at sf is demodulated with 50 % probability.
func SnrThreshold(sf types.SpreadingFactor) DbValue {
	logger.AssertTrue(sf.Valid())
	return snrThresholdDb[sf]
}

// Direction of a frame on the link.
type Direction int

const (
	Uplink Direction = iota
	Downlink
)

func (d Direction) String() string {
	if d == Downlink {
		return "down"
	}
	return "up"
}

// Reception is the outcome of a single frame on the link.
type Reception struct {
	Rssi     DbValue
	Snr      DbValue
	PSuccess float64
	Ok       bool
}

func (r Reception) String() string {
	return fmt.Sprintf("rssi=%.1f snr=%.1f psuc=%.3f ok=%t", r.Rssi, r.Snr, r.PSuccess, r.Ok)
}

// Link is the radio link between the end device and the gateway.
type Link struct {
	mu     sync.Mutex
	params Params
	fading *fadingModel
}

// NewLink creates a link; the shadow fading of the link is drawn here.
func NewLink(params *Params) *Link {
	if params == nil {
		params = NewParams()
	}
	return &Link{
		params: *params,
		fading: newFadingModel(params),
	}
}

// Params returns a copy of the link parameters.
func (l *Link) Params() Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params
}

// Rssi returns the received power of a frame sent in direction dir at time now.
func (l *Link) Rssi(dir Direction, now types.Tick) DbValue {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rssi(dir, now)
}

func (l *Link) rssi(dir Direction, now types.Tick) DbValue {
	txPower := l.params.TxPowerDbm
	if dir == Downlink {
		txPower = l.params.GatewayTxPowerDbm
	}
	return computeRssi(l.params.DistanceMeters, txPower, &l.params) - l.fading.computeFading(now, &l.params)
}

// Receive decides whether a frame sent at sf in direction dir at time now is received.
func (l *Link) Receive(dir Direction, sf types.SpreadingFactor, now types.Tick) Reception {
	l.mu.Lock()
	defer l.mu.Unlock()

	rssi := l.rssi(dir, now)
	snr := rssi - l.params.NoiseFloorDbm
	psuc := computeFrameSuccessRate(snr, SnrThreshold(sf), l.params.SuccessSlopeDb)
	r := Reception{
		Rssi:     rssi,
		Snr:      snr,
		PSuccess: psuc,
		Ok:       psuc >= 1.0 || (psuc > 0.0 && prng.NewUnitRandom() < psuc),
	}
	logger.Tracef("link %s %s: %s", dir, sf, r)
	return r
}

// computeFrameSuccessRate maps the SNR margin over the demodulation floor to a frame success probability.
func computeFrameSuccessRate(snr, threshold, slope DbValue) float64 {
	margin := snr - threshold
	if slope <= 0 {
		if margin >= 0 {
			return 1.0
		}
		return 0.0
	}
	// saturate well outside the transition
	if margin > 10*slope {
		return 1.0
	}
	if margin < -10*slope {
		return 0.0
	}
	return 1.0 / (1.0 + math.Exp(-margin/slope))
}
