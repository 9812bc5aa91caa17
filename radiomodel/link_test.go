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

	"github.com/lora-drt/drt/prng"
	"github.com/lora-drt/drt/types"
)

func noFadingParams(dist float64) *Params {
	p := NewParams()
	p.DistanceMeters = dist
	p.ShadowFadingSigmaDb = 0
	p.TimeFadingSigmaDb = 0
	return p
}

func TestParamsDefaults(t *testing.T) {
	p := NewParams()
	assert.Equal(t, 31.22, p.FixedLossDb)
	assert.Equal(t, -117.03, p.NoiseFloorDbm)

	p.SetFrequency(869.525)
	assert.Equal(t, 31.24, p.FixedLossDb)
}

func TestPathloss(t *testing.T) {
	p := NewParams()
	assert.Equal(t, p.FixedLossDb, computePathloss(0.5, p))
	assert.InDelta(t, p.FixedLossDb+p.ExponentDb, computePathloss(10, p), 1e-9)
	assert.True(t, computePathloss(1000, p) < computePathloss(2000, p))
}

func TestSnrThreshold(t *testing.T) {
	prev := DbValue(0)
	for sf := types.SF7; sf <= types.SF12; sf++ {
		assert.True(t, SnrThreshold(sf) < prev)
		prev = SnrThreshold(sf)
	}
}

func TestFrameSuccessRate(t *testing.T) {
	assert.Equal(t, 0.5, computeFrameSuccessRate(-7.5, -7.5, 1.0))
	assert.Equal(t, 1.0, computeFrameSuccessRate(20, -7.5, 1.0))
	assert.Equal(t, 0.0, computeFrameSuccessRate(-30, -7.5, 1.0))
	assert.Equal(t, 1.0, computeFrameSuccessRate(-7.5, -7.5, 0))
	assert.Equal(t, 0.0, computeFrameSuccessRate(-7.6, -7.5, 0))
	assert.True(t, computeFrameSuccessRate(-8, -7.5, 1.0) < computeFrameSuccessRate(-7, -7.5, 1.0))
}

func TestLinkReceive(t *testing.T) {
	prng.Init(1)

	near := NewLink(noFadingParams(10))
	for sf := types.SF7; sf <= types.SF12; sf++ {
		r := near.Receive(Uplink, sf, types.Second)
		assert.True(t, r.Ok)
		assert.Equal(t, 1.0, r.PSuccess)
	}

	far := NewLink(noFadingParams(1e7))
	r := far.Receive(Downlink, types.SF12, types.Second)
	assert.False(t, r.Ok)
	assert.Equal(t, 0.0, r.PSuccess)
}

func TestLinkDownlinkStronger(t *testing.T) {
	l := NewLink(noFadingParams(3000))
	up := l.Rssi(Uplink, 0)
	down := l.Rssi(Downlink, 0)
	assert.InDelta(t, l.Params().GatewayTxPowerDbm-l.Params().TxPowerDbm, down-up, 1e-9)
}

func TestFadingChangesOverTime(t *testing.T) {
	prng.Init(7)
	p := NewParams()
	p.ShadowFadingSigmaDb = 0
	p.MeanTimeFadingChange = 1
	fm := newFadingModel(p)

	first := fm.computeFading(0, p)
	assert.Equal(t, first, fm.computeFading(0, p))
	changed := false
	for i := 1; i < 100 && !changed; i++ {
		changed = fm.computeFading(types.Tick(i)*10*types.Second, p) != first
	}
	assert.True(t, changed)
}

func TestClipRssi(t *testing.T) {
	assert.Equal(t, int16(0), ClipRssi(3))
	assert.Equal(t, int16(-150), ClipRssi(-160))
	assert.Equal(t, int16(-120), ClipRssi(-120.2))
}
