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
	"github.com/lora-drt/drt/radio"
	"github.com/lora-drt/drt/types"
)

// Cycle is the derived position in the TX/RX cycle, with the receive deadlines recorded on the way. It is
// rebuilt from the oracle on every poll, never accumulated.
type Cycle struct {
	State   types.CycleState
	Window  types.TimingWindow
	Rx1Time types.Tick
	Rx2Time types.Tick
}

// Transition records one state change made by Advance.
type Transition struct {
	From   types.CycleState
	To     types.CycleState
	Time   types.Tick
	Window types.TimingWindow
}

// Advance derives the next cycle state from the oracle's timing fields. The rules are evaluated in cycle order
// and each at most once, so a single call catches up through several states when their conditions already
// hold. Observations that do not fit the current state leave it unchanged.
func Advance(prev Cycle, now types.Tick, snap radio.Snapshot) (Cycle, []Transition) {
	c := prev
	var transitions []Transition

	move := func(to types.CycleState, window types.TimingWindow) {
		transitions = append(transitions, Transition{From: c.State, To: to, Time: now, Window: window})
		c.State = to
		c.Window = window
	}

	// txEnd stays set after a canceled transmission, so it doubles as the earliest next send time
	if c.State == types.ReceiveCycleDone && snap.TxEnd.After(now) {
		move(types.WaitingForTx, types.TimingWindow{Start: now, Target: snap.TxEnd})
	}

	// the very first transmission has no waiting time
	if (c.State == types.Idle || c.State == types.WaitingForTx) && now.After(snap.TxEnd) {
		window := c.Window
		if c.State == types.Idle {
			window = types.TimingWindow{Start: now, Target: now}
		}
		move(types.Transmitting, window)
	}

	if c.State == types.Transmitting && snap.RxTime.After(now) {
		c.Rx1Time = snap.RxTime
		move(types.AwaitingRx1, types.TimingWindow{Start: now, Target: snap.RxTime})
	}

	// a later rxTime means RX1 passed without ending the cycle
	if c.State == types.AwaitingRx1 && snap.RxTime.After(c.Rx1Time) {
		c.Rx2Time = snap.RxTime
		move(types.AwaitingRx2, types.TimingWindow{Start: now, Target: snap.RxTime})
	}

	// RX2 is skipped when a downlink arrives in RX1
	if (c.State == types.AwaitingRx1 || c.State == types.AwaitingRx2) && !snap.OpInFlight {
		move(types.ReceiveCycleDone, c.Window)
	}

	return c, transitions
}
