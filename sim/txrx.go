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
	"encoding/hex"
	"math"

	"github.com/lora-drt/drt/energy"
	"github.com/lora-drt/drt/logger"
	"github.com/lora-drt/drt/pcap"
	"github.com/lora-drt/drt/prng"
	"github.com/lora-drt/drt/radio"
	"github.com/lora-drt/drt/radiomodel"
	"github.com/lora-drt/drt/types"
)

// SetTxData queues an uplink. It is transmitted right away if the duty cycle allows, otherwise TxEnd tells when.
func (m *Mac) SetTxData(sf types.SpreadingFactor, port uint8, payload []byte, confirmed bool) {
	logger.AssertTrue(sf.Valid())
	if m.cycle != nil {
		logger.Warnf("sim: uplink #%d still in progress, new data ignored", m.cycle.fcnt)
		return
	}
	m.jobs.Cancel(m.txJob)

	ch, at := m.plan.Select(m.now)
	m.pending = &txRequest{
		sf:        sf,
		port:      port,
		payload:   append([]byte(nil), payload...),
		confirmed: confirmed,
		channel:   ch,
	}
	m.inFlight = true
	m.txEnd = at
	m.pubFreq.Store(ch.FrequencyHz)

	if at.After(m.now) {
		logger.Debugf("sim: %s busy, uplink waits %.3f sec", ch, at.Sub(m.now).Seconds())
		m.txJob = m.jobs.Add("tx", at, m.startTx)
		m.publish()
		return
	}
	m.startTx()
}

// ClearTxData drops a queued uplink that has not started yet. TxEnd keeps the earliest send time.
func (m *Mac) ClearTxData() {
	if m.cycle != nil {
		return
	}
	m.jobs.Cancel(m.txJob)
	m.txJob = nil
	m.pending = nil
	m.inFlight = false
	m.publish()
}

// SuppressConfirmedRetries disables retransmissions of the current confirmed uplink.
func (m *Mac) SuppressConfirmedRetries() {
	if m.cycle != nil {
		m.cycle.req.noRetries = true
	} else if m.pending != nil {
		m.pending.noRetries = true
	}
}

func (m *Mac) startTx() {
	m.txJob = nil
	if m.cycle == nil {
		logger.AssertNotNil(m.pending)
		m.cycle = &txCycle{req: m.pending, fcnt: m.seqNoUp}
		m.seqNoUp++
		m.pubSeqNo.Store(m.seqNoUp)
	}
	c := m.cycle
	req := c.req
	c.trans++

	mtype := UnconfirmedDataUp
	if req.confirmed {
		mtype = ConfirmedDataUp
	}
	phy, err := m.cfg.Session.Encode(DataFrame{
		MType:   mtype,
		DevAddr: m.cfg.Session.DevAddr,
		FCnt:    c.fcnt,
		FPort:   req.port,
		Payload: req.payload,
	})
	logger.PanicIfError(err)

	airtime := m.cfg.Airtime.TimeOnAir(req.sf, len(phy))
	m.plan.Use(req.channel, m.now, airtime)
	m.txEnd = m.now
	m.energy.SetRadioState(energy.RadioTx, m.now)
	m.lastFrame.Store(&phy)
	m.transmissions.Add(1)
	m.publish()
	logger.Debugf("sim: uplink #%d %s on %s, airtime %.3f sec: %s", c.fcnt, req.sf, req.channel,
		airtime.Seconds(), hex.EncodeToString(phy))
	m.emit(radio.Event{Kind: radio.EventTxStart})

	up := m.link.Receive(radiomodel.Uplink, req.sf, m.now)
	if up.Ok {
		m.capture(phy, req.channel.FrequencyHz, req.sf, up)
	} else {
		m.uplinksLost.Add(1)
	}
	c.plan = m.planDownlink(req, up)

	m.jobs.Add("txdone", m.now+airtime, m.txDone)
}

// planDownlink decides what the network sends back for an uplink.
func (m *Mac) planDownlink(req *txRequest, up radiomodel.Reception) downlinkPlan {
	if !up.Ok {
		logger.Debugf("sim: uplink not received by the gateway (%s)", up)
		return downlinkPlan{}
	}
	p := downlinkPlan{ack: req.confirmed}
	if m.cfg.DownlinkProbability > 0 && prng.NewUnitRandom() < m.cfg.DownlinkProbability {
		p.payload = prng.NewPayload(m.cfg.DownlinkPayloadLen)
	}
	if !p.ack && len(p.payload) == 0 {
		return downlinkPlan{}
	}
	p.window = types.RxWindow2
	if prng.NewUnitRandom() < m.cfg.Rx1Preference {
		p.window = types.RxWindow1
	}
	return p
}

func (m *Mac) txDone() {
	m.txEnd = m.now
	m.energy.SetRadioState(energy.RadioSleep, m.now)
	m.openRx(types.RxWindow1)
}

func (m *Mac) rxDelay(w types.RxWindow) types.Tick {
	if w == types.RxWindow2 {
		return m.cfg.Rx2Delay
	}
	return m.cfg.Rx1Delay
}

// rxParams returns spreading factor and frequency of a receive window.
func (m *Mac) rxParams(w types.RxWindow) (types.SpreadingFactor, uint32) {
	if w == types.RxWindow2 {
		return m.cfg.Rx2SpreadFactor, m.cfg.Rx2FrequencyHz
	}
	return m.cycle.req.sf, m.cycle.req.channel.FrequencyHz
}

// openRx arms receive window w, opened early by the configured clock error.
func (m *Mac) openRx(w types.RxWindow) {
	delay := m.rxDelay(w)
	widen := types.Tick(float64(delay) * m.cfg.ClockErrorPercent / 100)
	m.rxTime = m.txEnd + delay - widen
	m.jobs.Add(w.String(), m.rxTime, func() {
		m.rxStart(w, delay, widen)
	})
	m.publish()
}

func (m *Mac) rxStart(w types.RxWindow, delay types.Tick, widen types.Tick) {
	m.emit(radio.Event{Kind: radio.EventRxStart})
	m.energy.SetRadioState(energy.RadioRx, m.now)

	c := m.cycle
	sf, freq := m.rxParams(w)
	symbol := m.cfg.Airtime.SymbolTime(sf)
	timeout := 2*widen + types.Tick(m.cfg.RxSymbols)*symbol

	if c.plan.window == w {
		fcnt := m.seqNoDown
		m.seqNoDown++
		phy := m.encodeDownlink(c, fcnt)
		m.downlinks.Add(1)
		dn := m.link.Receive(radiomodel.Downlink, sf, m.now)
		m.capture(phy, freq, sf, dn)
		switch {
		case m.missesWindow(delay, widen, symbol):
			m.downlinksMissed.Add(1)
			logger.Debugf("sim: %s missed, clock drift %.2f%% exceeds window", w, m.cfg.ClockDriftPercent)
		case !dn.Ok:
			m.downlinksLost.Add(1)
			logger.Debugf("sim: %s downlink lost (%s)", w, dn)
		default:
			airtime := m.cfg.Airtime.TimeOnAir(sf, len(phy))
			m.jobs.Add(w.String()+"done", m.now+widen+airtime, func() {
				m.rxDone(w, phy, fcnt)
			})
			return
		}
	}

	if w == types.RxWindow1 {
		m.jobs.Add("rx1timeout", m.now+timeout, func() {
			m.energy.SetRadioState(energy.RadioSleep, m.now)
			m.openRx(types.RxWindow2)
		})
		return
	}
	m.jobs.Add("rx2timeout", m.now+timeout, func() {
		m.energy.SetRadioState(energy.RadioSleep, m.now)
		m.endCycle(types.RxWindowNone, DataFrame{})
	})
}

// missesWindow reports whether the device clock drift moves the window off the downlink preamble.
func (m *Mac) missesWindow(delay, widen, symbol types.Tick) bool {
	drift := types.Tick(math.Abs(float64(delay) * m.cfg.ClockDriftPercent / 100))
	spare := m.cfg.Airtime.PreambleSymbols - m.cfg.RxSymbols
	if spare < 0 {
		spare = 0
	}
	return drift > widen+types.Tick(spare)*symbol
}

func (m *Mac) encodeDownlink(c *txCycle, fcnt uint32) []byte {
	port := uint8(0)
	if len(c.plan.payload) > 0 {
		port = c.req.port
	}
	phy, err := m.cfg.Session.Encode(DataFrame{
		MType:   UnconfirmedDataDown,
		DevAddr: m.cfg.Session.DevAddr,
		Ack:     c.plan.ack,
		FCnt:    fcnt,
		FPort:   port,
		Payload: c.plan.payload,
	})
	logger.PanicIfError(err)
	return phy
}

func (m *Mac) rxDone(w types.RxWindow, phy []byte, fcnt uint32) {
	m.energy.SetRadioState(energy.RadioSleep, m.now)
	f, err := m.cfg.Session.Decode(phy, fcnt>>16)
	if err != nil {
		logger.Errorf("sim: downlink in %s dropped: %v", w, err)
		m.endCycle(types.RxWindowNone, DataFrame{})
		return
	}
	m.endCycle(w, f)
}

// endCycle completes the uplink, or retransmits an unacknowledged confirmed uplink.
func (m *Mac) endCycle(w types.RxWindow, f DataFrame) {
	c := m.cycle
	acked := w != types.RxWindowNone && f.Ack
	if c.req.confirmed && !acked && !c.req.noRetries && c.trans < m.cfg.ConfirmedRetries {
		ch, at := m.plan.Select(m.now)
		c.req.channel = ch
		m.pubFreq.Store(ch.FrequencyHz)
		m.txEnd = at
		m.txJob = m.jobs.Add("retx", at, m.startTx)
		m.publish()
		logger.Debugf("sim: uplink #%d not acked, transmission %d at %d", c.fcnt, c.trans+1, at)
		return
	}

	m.cycle = nil
	m.pending = nil
	m.inFlight = false
	m.energy.StoreCycleEnergy(m.now)
	m.publish()

	ev := radio.Event{Kind: radio.EventTxComplete, Acked: acked, Window: w}
	if w != types.RxWindowNone {
		ev.Payload = f.Payload
		ev.SeqNoDown = f.FCnt
	}
	m.emit(ev)
}

func (m *Mac) capture(phy []byte, freq uint32, sf types.SpreadingFactor, r radiomodel.Reception) {
	if m.pcapFrameChan == nil || m.stopped {
		return
	}
	item := pcapFrameItem{frame: pcap.Frame{
		Timestamp:       uint64(m.now),
		Data:            phy,
		FrequencyHz:     freq,
		SpreadingFactor: uint8(sf),
		Rssi:            float32(radiomodel.ClipRssi(r.Rssi)),
		Snr:             float32(r.Snr),
	}}
	select {
	case m.pcapFrameChan <- item:
	default:
		logger.Warnf("pcap queue full, frame dropped")
	}
}
