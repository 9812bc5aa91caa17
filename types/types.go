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

package types

import (
	"fmt"
	"time"
)

// Tick is a point on the radio's monotonic clock, in microseconds. Ticks must only be compared through their
// signed difference, so that a wrapped clock causes at most a short inconsistency and never a stuck comparison.
type Tick int64

const (
	Microsecond Tick = 1
	Millisecond      = 1000 * Microsecond
	Second           = 1000 * Millisecond
)

// Sub returns the signed distance t - u.
func (t Tick) Sub(u Tick) Tick {
	return t - u
}

// After reports whether t lies strictly after u.
func (t Tick) After(u Tick) bool {
	return t-u > 0
}

// Add returns t + d.
func (t Tick) Add(d Tick) Tick {
	return t + d
}

func (t Tick) Ms() int64 {
	return int64(t / Millisecond)
}

func (t Tick) Seconds() float64 {
	return float64(t) / float64(Second)
}

func (t Tick) Duration() time.Duration {
	return time.Duration(t) * time.Microsecond
}

func (t Tick) String() string {
	return fmt.Sprintf("%d ticks/%.1f sec", int64(t), t.Seconds())
}

// TicksFromDuration converts a wall clock duration into ticks.
func TicksFromDuration(d time.Duration) Tick {
	return Tick(d / time.Microsecond)
}

// CycleState is the position of the radio in its TX/RX cycle, as derived from the oracle's timing fields.
type CycleState int32

const (
	Idle CycleState = iota
	WaitingForTx
	Transmitting
	AwaitingRx1
	AwaitingRx2
	ReceiveCycleDone
)

func (s CycleState) String() string {
	switch s {
	case Idle:
		return "idle"
	case WaitingForTx:
		return "waiting"
	case Transmitting:
		return "tx"
	case AwaitingRx1:
		return "rx1"
	case AwaitingRx2:
		return "rx2"
	case ReceiveCycleDone:
		return "rxdone"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Valid reports whether s is one of the defined cycle states.
func (s CycleState) Valid() bool {
	return s >= Idle && s <= ReceiveCycleDone
}

// TimingWindow is the interval a progress bar represents. Target may lie before Start for states that did not
// define a new window.
type TimingWindow struct {
	Start  Tick
	Target Tick
}

// Range returns Target - Start, which may be negative.
func (w TimingWindow) Range() Tick {
	return w.Target.Sub(w.Start)
}

// Remaining returns the signed time left until Target.
func (w TimingWindow) Remaining(now Tick) Tick {
	return w.Target.Sub(now)
}
