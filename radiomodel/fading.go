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

	"github.com/lora-drt/drt/prng"
	"github.com/lora-drt/drt/types"
)

// fadingModel tracks shadow fading (SF) and time-variant fading (TVF) for the single simulated link.
//
// SF models a fixed attenuation (SF>0) or gain (SF<0) due to static obstacles and multipath. It is drawn once,
// from a normal distribution in the dB domain, and is the same in both directions.
// TVF is redrawn at exponentially distributed moments, so consecutive frames see a correlated link.
type fadingModel struct {
	shadow   DbValue
	timeVar  DbValue
	changeAt types.Tick
	started  bool
}

func newFadingModel(params *Params) *fadingModel {
	return &fadingModel{
		shadow: prng.NewNormRandom() * params.ShadowFadingSigmaDb,
	}
}

func (fm *fadingModel) computeFading(now types.Tick, params *Params) DbValue {
	if !fm.started || now.After(fm.changeAt) {
		fm.started = true
		fm.timeVar = prng.NewNormRandom() * params.TimeFadingSigmaDb
		fm.changeAt = now + nextChangeDelta(params.MeanTimeFadingChange)
	}
	return fm.shadow + fm.timeVar
}

func nextChangeDelta(meanSec float64) types.Tick {
	if meanSec <= 0 {
		return 0
	}
	u := prng.NewUnitRandom()
	sec := -math.Log(1.0-u) * meanSec
	return types.Tick(sec * float64(types.Second))
}
