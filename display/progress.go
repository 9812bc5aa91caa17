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

// Package display turns the tester's status into what a user sees: a header line, a progress label with a
// 0..100 progress value, and the last downlink. Sinks implementing Display receive every rendered Screen.
package display

import (
	"fmt"

	"github.com/lora-drt/drt/types"
)

// ProgressConfig holds the constants of the progress mapping. RX1 and RX2 share a single bar: the last RxLead
// before the RX1 deadline sweeps from 100 down to RxSplit, the last RxLead before RX2 from RxSplit down to 0.
type ProgressConfig struct {
	RxLead         types.Tick
	RxSplit        int
	TxOverrunAfter types.Tick // how far past the target a transmission shows its overrun
	RxImminent     types.Tick // remaining time below which the label stops saying "awaiting"
	RxElapsedAfter types.Tick // how far past the deadline the label shows the elapsed time
}

func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{
		RxLead:         types.Second,
		RxSplit:        50,
		TxOverrunAfter: 100 * types.Millisecond,
		RxImminent:     100 * types.Millisecond,
		RxElapsedAfter: 500 * types.Millisecond,
	}
}

// Frame is the rendered progress of the current cycle state.
type Frame struct {
	Label   string
	Percent int
}

// Render maps a cycle state and its timing window to a progress frame using the default configuration.
func Render(state types.CycleState, window types.TimingWindow, now types.Tick) Frame {
	return DefaultProgressConfig().Render(state, window, now)
}

func (cfg ProgressConfig) Render(state types.CycleState, window types.TimingWindow, now types.Tick) Frame {
	left := window.Remaining(now)
	var f Frame

	switch state {
	case types.WaitingForTx:
		if left >= 0 {
			f.Label = fmt.Sprintf("tx in %.1f sec", left.Seconds())
			if rng := window.Range(); rng > 0 {
				f.Percent = 100 - int(100*left/rng)
			} else {
				f.Percent = 100
			}
		} else {
			f.Percent = 100
		}
	case types.Transmitting:
		// the MAC may apply a safety margin before it actually transmits
		f.Label = "tx"
		if -left > cfg.TxOverrunAfter {
			f.Label = fmt.Sprintf("tx %.1f sec", -left.Seconds())
		}
		f.Percent = 100
	case types.AwaitingRx1:
		f = cfg.renderRx("rx1", left, cfg.RxSplit, 100)
	case types.AwaitingRx2:
		f = cfg.renderRx("rx2", left, 0, cfg.RxSplit)
	}

	f.Percent = clamp(f.Percent, 0, 100)
	return f
}

// renderRx maps the last RxLead before the deadline onto high..low. Past the deadline the bar stays at low,
// before the lead window it stays at high.
func (cfg ProgressConfig) renderRx(name string, left types.Tick, low, high int) Frame {
	if left > cfg.RxLead {
		return Frame{
			Label:   fmt.Sprintf("unknown %s state %.1f sec", name, left.Seconds()),
			Percent: high,
		}
	}

	var label string
	if left <= cfg.RxImminent {
		label = name
		if left < -cfg.RxElapsedAfter {
			label = fmt.Sprintf("%s %.1f sec", name, left.Seconds())
		}
	} else {
		label = "awaiting " + name
	}

	percent := low
	if cfg.RxLead > 0 {
		percent = low + int(float64(high-low)*float64(left)/float64(cfg.RxLead))
	}
	return Frame{Label: label, Percent: clamp(percent, low, high)}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
