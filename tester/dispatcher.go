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

	"github.com/lora-drt/drt/logger"
	"github.com/lora-drt/drt/radio"
	"github.com/lora-drt/drt/types"
)

const DefaultSettleDelay = 500 * types.Millisecond

// Dispatcher handles the oracle's events. A completed TX/RX cycle yields a DownlinkRecord when an ack or payload
// was received, and always arms the next send after the settle delay, which gives the tracker a chance to
// observe the end of the cycle.
type Dispatcher struct {
	oracle      radio.Oracle
	scheduler   *Scheduler
	observer    Observer
	log         *logger.TimelineLogger
	settleDelay types.Tick
	downlink    atomic.Pointer[types.DownlinkRecord]
}

func NewDispatcher(oracle radio.Oracle, scheduler *Scheduler, settleDelay types.Tick, observer Observer,
	log *logger.TimelineLogger) *Dispatcher {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Dispatcher{
		oracle:      oracle,
		scheduler:   scheduler,
		observer:    observer,
		log:         log,
		settleDelay: settleDelay,
	}
}

func (d *Dispatcher) OnEvent(ev radio.Event) {
	switch ev.Kind {
	case radio.EventTxComplete:
		d.log.Infof("> %s (includes waiting for RX windows)", ev.Kind)
		if ev.HasDownlink() {
			d.recordDownlink(ev)
		}
		d.oracle.SetTimedCallback(d.oracle.Now().Add(d.settleDelay), d.scheduler.run)
	case radio.EventRxStart:
		d.log.Tracef("> %s", ev.Kind)
	case radio.EventJoinTxComplete:
		d.log.Infof("> %s: no JoinAccept", ev.Kind)
	default:
		if ev.Kind.Known() {
			d.log.Infof("> %s", ev.Kind)
		} else {
			d.log.Warnf("> unknown event: %d", uint8(ev.Kind))
		}
	}
}

func (d *Dispatcher) recordDownlink(ev radio.Event) {
	// the oracle's counters and the selected data rate may have moved on; use what was sent
	attempt := d.scheduler.LastAttempt()
	rec := types.DownlinkRecord{
		SeqNoDown:       ev.SeqNoDown,
		SeqNoUp:         attempt.SeqNo,
		SpreadingFactor: attempt.SpreadingFactor,
		Window:          ev.Window,
		Acked:           ev.Acked,
		Payload:         append([]byte(nil), ev.Payload...),
	}

	if rec.Acked {
		d.log.Infof("received ACK")
	}
	if len(rec.Payload) > 0 {
		d.log.Infof("received %d bytes: 0x%s", len(rec.Payload), hex.EncodeToString(rec.Payload))
	}

	d.downlink.Store(&rec)
	d.observer.OnDownlink(rec)
}

// LastDownlink returns the most recent downlink, or nil if none was received yet.
func (d *Dispatcher) LastDownlink() *types.DownlinkRecord {
	return d.downlink.Load()
}
