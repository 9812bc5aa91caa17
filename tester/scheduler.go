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
	"encoding/hex"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/lora-drt/drt/logger"
	"github.com/lora-drt/drt/radio"
	"github.com/lora-drt/drt/types"
)

// ErrOperationInFlight is returned by AttemptSend when the oracle is still busy with a TX/RX cycle. The attempt
// is dropped.
var ErrOperationInFlight = errors.New("operation in flight, not scheduling new transmission")

// Result describes the outcome of AttemptSend. Wait is set when the send was canceled and rescheduled.
type Result struct {
	Sent    bool
	Wait    types.Tick
	Attempt types.UplinkAttempt
}

// Scheduler issues uplinks. When the oracle cannot transmit right away, the uplink is canceled and the scheduler
// reschedules itself for the moment the oracle allows it, so that user changes made while waiting still apply.
type Scheduler struct {
	oracle    radio.Oracle
	rates     *DataRateSelector
	observer  Observer
	log       *logger.TimelineLogger
	confirmed atomic.Bool
	attempt   atomic.Pointer[types.UplinkAttempt]
	pending   bool // an uplink was canceled and its retry is armed; radio timeline only
}

func NewScheduler(oracle radio.Oracle, rates *DataRateSelector, observer Observer, log *logger.TimelineLogger) *Scheduler {
	if observer == nil {
		observer = NopObserver{}
	}
	s := &Scheduler{
		oracle:   oracle,
		rates:    rates,
		observer: observer,
		log:      log,
	}
	s.attempt.Store(&types.UplinkAttempt{SpreadingFactor: rates.Current()})
	return s
}

// AttemptSend must only be called on the radio timeline.
func (s *Scheduler) AttemptSend() (Result, error) {
	if s.oracle.OpInFlight() {
		s.log.Errorf("%v", ErrOperationInFlight)
		s.pending = false
		s.observer.OnViolation()
		return Result{}, ErrOperationInFlight
	}

	// a pending reschedule keeps the rate it was scheduled with
	if s.rates.Auto() && !s.pending {
		sf := s.rates.Next()
		s.log.Debugf("next auto data rate index=%d", s.rates.Index())
		s.observer.OnDataRate(sf, true)
	}

	sf := s.rates.Current()
	confirmed := s.confirmed.Load()
	attempt := types.UplinkAttempt{
		SeqNo:           s.oracle.SeqNoUp(),
		SpreadingFactor: sf,
		Confirmed:       confirmed,
	}

	s.oracle.SetTxData(sf, uint8(sf), []byte{sf.BCD()}, confirmed)
	if confirmed {
		s.oracle.SuppressConfirmedRetries()
	}

	// the channel for the next uplink is only known once the data is queued
	attempt.FrequencyHz = s.oracle.TxChannelFreq()
	s.attempt.Store(&attempt)

	now := s.oracle.Now()
	wait := s.oracle.TxEnd().Sub(now)
	if wait > 0 {
		s.log.Infof("cannot send yet, rescheduling: seqnoUp=%d; SF=%d; freq=%.1f; wait=%s",
			attempt.SeqNo, uint8(sf), attempt.FrequencyMHz(), wait)
		s.oracle.ClearTxData()
		s.pending = true
		s.oracle.SetTimedCallback(now.Add(wait), s.run)
		s.observer.OnReschedule(attempt, wait)
		return Result{Wait: wait, Attempt: attempt}, nil
	}

	s.pending = false
	frame := s.oracle.LastFrame()
	s.log.Infof("TX: seqnoUp=%d; SF=%d; freq=%.1f; confirmed=%v; length=%d; uplink=0x%s",
		attempt.SeqNo, uint8(sf), attempt.FrequencyMHz(), confirmed, len(frame), hex.EncodeToString(frame))
	s.observer.OnUplink(attempt)
	return Result{Sent: true, Attempt: attempt}, nil
}

// run is the timed callback form of AttemptSend; errors have been logged already.
func (s *Scheduler) run() {
	_, _ = s.AttemptSend()
}

// LastAttempt returns the most recently captured uplink attempt.
func (s *Scheduler) LastAttempt() types.UplinkAttempt {
	return *s.attempt.Load()
}

func (s *Scheduler) Confirmed() bool {
	return s.confirmed.Load()
}

func (s *Scheduler) SetConfirmed(confirmed bool) {
	s.confirmed.Store(confirmed)
}
