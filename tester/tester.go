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

// Package tester drives a LoRaWAN data rate test: it keeps sending uplinks at a changing spreading factor and
// reconstructs the TX/RX1/RX2 cycle of the radio by polling the oracle's timing fields.
//
// Work is split over two timelines. The radio timeline runs Start, HandleAction and all oracle callbacks. The
// display timeline runs Poll and reads Status. They only share values through atomics, so neither ever waits
// for the other.
package tester

import (
	"github.com/lora-drt/drt/input"
	"github.com/lora-drt/drt/logger"
	"github.com/lora-drt/drt/radio"
	"github.com/lora-drt/drt/types"
)

// Status is what the display needs to know, read without locking.
type Status struct {
	Now             types.Tick
	Cycle           Cycle
	Attempt         types.UplinkAttempt
	Downlink        *types.DownlinkRecord
	SpreadingFactor types.SpreadingFactor
	FixedDataRate   bool
	Confirmed       bool
}

type Tester struct {
	oracle     radio.Oracle
	rates      *DataRateSelector
	tracker    *Tracker
	scheduler  *Scheduler
	dispatcher *Dispatcher
	countdown  *TxCountdown
	observer   Observer
	radioLog   *logger.TimelineLogger
}

func New(oracle radio.Oracle, cfg Config, observer Observer) (*Tester, error) {
	if observer == nil {
		observer = NopObserver{}
	}
	rates, err := NewDataRateSelector(cfg.AutoTable, cfg.AutoDataRate)
	if err != nil {
		return nil, err
	}

	radioLog := logger.NewTimelineLogger("radio")
	displayLog := logger.NewTimelineLogger("display")

	t := &Tester{
		oracle:   oracle,
		rates:    rates,
		observer: observer,
		radioLog: radioLog,
	}
	t.tracker = NewTracker(oracle, observer, displayLog)
	t.scheduler = NewScheduler(oracle, rates, observer, radioLog)
	t.scheduler.SetConfirmed(cfg.Confirmed)
	t.dispatcher = NewDispatcher(oracle, t.scheduler, cfg.SettleDelay, observer, radioLog)
	if cfg.Countdown {
		t.countdown = NewTxCountdown(func(s string) {
			logger.Printf("%s", s)
		})
	}
	oracle.OnEvent(t.dispatcher.OnEvent)
	return t, nil
}

// Start issues the first uplink. It must be called on the radio timeline.
func (t *Tester) Start() {
	_, _ = t.scheduler.AttemptSend()
}

// HandleAction applies a user action. It must be called on the radio timeline. Changes take effect at the next
// send attempt, including one that is already rescheduled.
func (t *Tester) HandleAction(a input.Action) {
	switch a {
	case input.Click:
		sf := t.rates.Next()
		t.radioLog.Infof("data rate %s", sf)
		t.observer.OnDataRate(sf, t.rates.Auto())
	case input.DoubleClick:
		confirmed := !t.scheduler.Confirmed()
		t.scheduler.SetConfirmed(confirmed)
		t.radioLog.Infof("confirmed uplinks: %v", confirmed)
		t.observer.OnConfirmed(confirmed)
	case input.LongPress:
		// a canceled and delayed uplink may use another channel once its data rate changes
		sf := t.rates.ToggleAuto()
		t.radioLog.Infof("auto data rate: %v; data rate %s", t.rates.Auto(), sf)
		t.observer.OnDataRate(sf, t.rates.Auto())
	default:
		t.radioLog.Warnf("unknown input action: %s", a)
	}
}

// Poll re-derives the cycle state. It must be called on the display timeline.
func (t *Tester) Poll() Cycle {
	c := t.tracker.Poll()
	if t.countdown != nil {
		snap := t.oracle.Snapshot()
		t.countdown.Tick(snap.Now, snap.TxEnd)
	}
	return c
}

func (t *Tester) Status() Status {
	return Status{
		Now:             t.oracle.Now(),
		Cycle:           t.tracker.Cycle(),
		Attempt:         t.scheduler.LastAttempt(),
		Downlink:        t.dispatcher.LastDownlink(),
		SpreadingFactor: t.rates.Current(),
		FixedDataRate:   !t.rates.Auto(),
		Confirmed:       t.scheduler.Confirmed(),
	}
}

func (t *Tester) DataRates() *DataRateSelector {
	return t.rates
}

func (t *Tester) Scheduler() *Scheduler {
	return t.scheduler
}

func (t *Tester) Dispatcher() *Dispatcher {
	return t.dispatcher
}

func (t *Tester) Tracker() *Tracker {
	return t.tracker
}
