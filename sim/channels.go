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

package sim

import (
	"fmt"
	"math"

	"github.com/lora-drt/drt/prng"
	"github.com/lora-drt/drt/types"
)

// Band is a regulatory sub-band; all its channels share one duty cycle budget.
type Band struct {
	Name      string
	DutyCycle float64 // fraction of time on air, 0.01 for 1 %

	availAt types.Tick
}

// Channel is an uplink channel of the channel plan.
type Channel struct {
	FrequencyHz uint32
	Band        *Band
	LoRa        bool // false for the FSK channel
}

// ChannelPlan holds the channels and their bands.
type ChannelPlan struct {
	Bands    []*Band
	Channels []Channel
}

// NewEU868Plan returns the TTN EU868 plan: eight LoRa channels in the g band (1 %) and the FSK channel in
// g2 (0.1 %).
func NewEU868Plan() *ChannelPlan {
	g := &Band{Name: "g", DutyCycle: 0.01}
	g2 := &Band{Name: "g2", DutyCycle: 0.001}
	plan := &ChannelPlan{Bands: []*Band{g, g2}}
	for _, f := range []uint32{868100000, 868300000, 868500000, 867100000, 867300000, 867500000, 867700000,
		867900000} {
		plan.Channels = append(plan.Channels, Channel{FrequencyHz: f, Band: g, LoRa: true})
	}
	plan.Channels = append(plan.Channels, Channel{FrequencyHz: 868800000, Band: g2})
	return plan
}

// Select picks a random LoRa channel among those whose band is available the earliest. It returns the channel
// and the earliest time it may be used.
func (cp *ChannelPlan) Select(now types.Tick) (Channel, types.Tick) {
	var best []Channel
	var bestAt types.Tick
	for _, ch := range cp.Channels {
		if !ch.LoRa {
			continue
		}
		at := ch.Band.availAt
		if !at.After(now) {
			at = now
		}
		switch {
		case len(best) == 0 || bestAt.After(at):
			best = append(best[:0], ch)
			bestAt = at
		case at == bestAt:
			best = append(best, ch)
		}
	}
	if len(best) == 0 {
		panic("channel plan without LoRa channels")
	}
	return best[prng.NewChannelIndex(len(best))], bestAt
}

// Use accounts a transmission of the given airtime on ch, started at start.
func (cp *ChannelPlan) Use(ch Channel, start types.Tick, airtime types.Tick) {
	off := types.Tick(math.Round(float64(airtime) / ch.Band.DutyCycle))
	ch.Band.availAt = start + off
}

// AvailableAt returns when the band of ch allows the next transmission.
func (cp *ChannelPlan) AvailableAt(ch Channel) types.Tick {
	return ch.Band.availAt
}

func (ch Channel) String() string {
	return fmt.Sprintf("%.1f MHz (%s)", float64(ch.FrequencyHz)/1e6, ch.Band.Name)
}
