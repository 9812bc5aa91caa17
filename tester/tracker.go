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
	"sync/atomic"

	"github.com/lora-drt/drt/logger"
	"github.com/lora-drt/drt/radio"
	"github.com/lora-drt/drt/types"
)

// Tracker polls the oracle and publishes the derived Cycle. Poll must only be called from one goroutine; the
// published cycle may be read from any goroutine.
type Tracker struct {
	oracle   radio.Oracle
	observer Observer
	log      *logger.TimelineLogger
	cycle    atomic.Pointer[Cycle]
}

func NewTracker(oracle radio.Oracle, observer Observer, log *logger.TimelineLogger) *Tracker {
	if observer == nil {
		observer = NopObserver{}
	}
	t := &Tracker{
		oracle:   oracle,
		observer: observer,
		log:      log,
	}
	t.cycle.Store(&Cycle{State: types.Idle})
	return t
}

// Poll re-derives the cycle from a fresh oracle snapshot and publishes it.
func (t *Tracker) Poll() Cycle {
	prev := t.Cycle()
	snap := t.oracle.Snapshot()
	next, transitions := Advance(prev, snap.Now, snap)
	if len(transitions) == 0 {
		return prev
	}

	for _, tr := range transitions {
		t.logTransition(tr, next, snap)
		t.observer.OnTransition(tr)
	}
	t.cycle.Store(&next)
	return next
}

func (t *Tracker) logTransition(tr Transition, c Cycle, snap radio.Snapshot) {
	switch tr.To {
	case types.WaitingForTx:
		t.log.Infof("TX at %s", tr.Window.Target)
	case types.Transmitting:
		t.log.Infof("TX")
	case types.AwaitingRx1:
		t.log.Infof("TX done: txend=%s; RX1 at %s", snap.TxEnd, c.Rx1Time)
	case types.AwaitingRx2:
		t.log.Infof("RX1 done: RX2 at %s", c.Rx2Time)
	case types.ReceiveCycleDone:
		t.log.Infof("RX done")
	}
	t.log.Debugf("start progress bar: state=%s; time=%dms", tr.To, tr.Window.Range().Ms())
}

// Cycle returns the last published cycle.
func (t *Tracker) Cycle() Cycle {
	return *t.cycle.Load()
}

func (t *Tracker) State() types.CycleState {
	return t.cycle.Load().State
}
