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

// Package sim provides a simulated LoRaWAN class A end device MAC with a virtual clock. It implements the
// radio.Oracle contract: duty cycle derived transmit times, RX1/RX2 deadlines and completion events. All state
// changes happen on the goroutine calling RunOnce/Run (the radio timeline); the oracle getters are lock-free
// and may be called from any goroutine.
package sim

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lora-drt/drt/energy"
	"github.com/lora-drt/drt/logger"
	"github.com/lora-drt/drt/pcap"
	"github.com/lora-drt/drt/progctx"
	"github.com/lora-drt/drt/radio"
	"github.com/lora-drt/drt/radiomodel"
	"github.com/lora-drt/drt/types"
)

type txRequest struct {
	sf        types.SpreadingFactor
	port      uint8
	payload   []byte
	confirmed bool
	noRetries bool
	channel   Channel
}

type downlinkPlan struct {
	window  types.RxWindow
	ack     bool
	payload []byte
}

type txCycle struct {
	req   *txRequest
	fcnt  uint32
	trans int
	plan  downlinkPlan
}

type pcapFrameItem struct {
	frame pcap.Frame
}

// Stats counts what happened on the simulated link.
type Stats struct {
	Transmissions   uint64
	UplinksLost     uint64
	Downlinks       uint64
	DownlinksLost   uint64
	DownlinksMissed uint64
}

type Mac struct {
	cfg      Config
	plan     *ChannelPlan
	link     *radiomodel.Link
	jobs     *jobMgr
	energy   *energy.EnergyAnalyser
	taskChan chan func()
	handler  func(radio.Event)

	pcap          pcap.File
	pcapFrameChan chan pcapFrameItem
	waitGroup     sync.WaitGroup

	// radio timeline
	now                types.Tick
	txEnd              types.Tick
	rxTime             types.Tick
	inFlight           bool
	seqNoUp            uint32
	seqNoDown          uint32
	pending            *txRequest
	txJob              *job
	callback           *job
	cycle              *txCycle
	speed              float64
	speedStartRealTime time.Time
	speedStartTime     types.Tick
	stopped            bool

	snapshot  atomic.Pointer[radio.Snapshot]
	pubSeqNo  atomic.Uint32
	pubFreq   atomic.Uint32
	lastFrame atomic.Pointer[[]byte]
	pubSpeed  atomic.Uint64

	transmissions   atomic.Uint64
	uplinksLost     atomic.Uint64
	downlinks       atomic.Uint64
	downlinksLost   atomic.Uint64
	downlinksMissed atomic.Uint64
}

var _ radio.Oracle = (*Mac)(nil)

func NewMac(cfg *Config) *Mac {
	logger.AssertNotNil(cfg)
	linkParams := cfg.Link
	if linkParams == nil {
		linkParams = radiomodel.NewParams()
	}
	m := &Mac{
		cfg:                *cfg,
		plan:               NewEU868Plan(),
		link:               radiomodel.NewLink(linkParams),
		jobs:               newJobMgr(),
		energy:             energy.NewEnergyAnalyser(0),
		taskChan:           make(chan func(), 100),
		speedStartRealTime: time.Now(),
	}
	m.setSpeed(cfg.Speed)
	ch, _ := m.plan.Select(0)
	m.pubFreq.Store(ch.FrequencyHz)
	m.publish()
	logger.Infof("simulated MAC started: devaddr=%08x speed=%v", cfg.Session.DevAddr, m.speed)
	return m
}

// SetPcap makes the MAC write all uplinks and downlinks to f. The file is closed by Stop.
func (m *Mac) SetPcap(f pcap.File) {
	logger.AssertTrue(m.pcap == nil)
	m.pcap = f
	m.pcapFrameChan = make(chan pcapFrameItem, 1000)
	m.waitGroup.Add(1)
	go m.pcapFrameWriter()
}

func (m *Mac) pcapFrameWriter() {
	defer m.waitGroup.Done()

	defer func() {
		err := m.pcap.Close()
		if err != nil {
			logger.Errorf("failed to close pcap: %v", err)
		}
	}()
	for item := range m.pcapFrameChan {
		err := m.pcap.AppendFrame(item.frame)
		if err != nil {
			logger.Errorf("write pcap failed: %+v", err)
		}
	}
}

// Stop ends the pcap capture. It must be called from the radio timeline or after it ended.
func (m *Mac) Stop() {
	if m.stopped {
		return
	}
	m.stopped = true
	if m.pcapFrameChan != nil {
		close(m.pcapFrameChan)
	}
	m.waitGroup.Wait()
}

// Run drives the radio timeline until ctx is done.
func (m *Mac) Run(ctx *progctx.ProgCtx) {
	ctx.WaitAdd("radio", 1)
	defer ctx.WaitDone("radio")
	defer logger.Debugf("radio timeline exit.")

	defer m.Stop()

	ticker := time.NewTicker(m.cfg.LoopInterval)
	defer ticker.Stop()

	done := ctx.Done()
loop:
	for {
		select {
		case f := <-m.taskChan:
			m.runTask(f)
		case <-ticker.C:
			m.RunOnce()
		case <-done:
			break loop
		}
	}
}

// RunOnce runs pending tasks, then all jobs due until the current virtual time.
func (m *Mac) RunOnce() {
	m.handleTasks()
	if m.speed <= 0 {
		return
	}
	elapsed := time.Since(m.speedStartRealTime) / time.Microsecond
	target := m.speedStartTime + types.Tick(float64(elapsed)*m.speed)
	m.advanceTo(target)
}

// Advance runs pending tasks and moves virtual time forward by d, regardless of speed.
func (m *Mac) Advance(d types.Tick) {
	m.handleTasks()
	m.advanceTo(m.now + d)
	m.speedStartRealTime = time.Now()
	m.speedStartTime = m.now
}

func (m *Mac) advanceTo(target types.Tick) {
	for j := m.jobs.PopDue(target); j != nil; j = m.jobs.PopDue(target) {
		if j.Timestamp.After(m.now) {
			m.now = j.Timestamp
			m.publish()
		}
		logger.Tracef("sim: job %s at %d", j.Name, j.Timestamp)
		j.fn()
	}
	if target.After(m.now) {
		m.now = target
	}
	m.publish()
}

// PostAsync queues task for the radio timeline. Trivial tasks are dropped when the queue is full.
func (m *Mac) PostAsync(trivial bool, task func()) {
	if trivial {
		select {
		case m.taskChan <- task:
		default:
			logger.Warnf("radio task queue full, task dropped")
		}
	} else {
		m.taskChan <- task
	}
}

func (m *Mac) handleTasks() {
	for {
		select {
		case t := <-m.taskChan:
			m.runTask(t)
		default:
			return
		}
	}
}

func (m *Mac) runTask(t func()) {
	defer func() {
		err := recover()
		if err != nil {
			logger.Errorf("radio task failed: %+v", err)
		}
	}()
	t()
	m.publish()
}

// SetSpeed changes the virtual time speed. It must be called on the radio timeline (see PostAsync).
func (m *Mac) SetSpeed(f float64) {
	ns := normalizeSpeed(f)
	if ns == m.speed {
		return
	}
	// sync the speed start time with the current time
	m.speedStartRealTime = time.Now()
	m.speedStartTime = m.now
	m.setSpeed(ns)
}

func (m *Mac) setSpeed(f float64) {
	m.speed = normalizeSpeed(f)
	m.pubSpeed.Store(math.Float64bits(m.speed))
}

// Speed returns the current virtual time speed.
func (m *Mac) Speed() float64 {
	return math.Float64frombits(m.pubSpeed.Load())
}

func normalizeSpeed(f float64) float64 {
	if f <= 0 {
		f = 0
	} else if f >= MaxSimulateSpeed {
		f = MaxSimulateSpeed
	}
	return f
}

func (m *Mac) publish() {
	m.snapshot.Store(&radio.Snapshot{
		Now:        m.now,
		TxEnd:      m.txEnd,
		RxTime:     m.rxTime,
		OpInFlight: m.inFlight,
	})
}

func (m *Mac) Snapshot() radio.Snapshot {
	return *m.snapshot.Load()
}

func (m *Mac) Now() types.Tick {
	return m.snapshot.Load().Now
}

func (m *Mac) TxEnd() types.Tick {
	return m.snapshot.Load().TxEnd
}

func (m *Mac) RxTime() types.Tick {
	return m.snapshot.Load().RxTime
}

func (m *Mac) OpInFlight() bool {
	return m.snapshot.Load().OpInFlight
}

func (m *Mac) SeqNoUp() uint32 {
	return m.pubSeqNo.Load()
}

func (m *Mac) TxChannelFreq() uint32 {
	return m.pubFreq.Load()
}

func (m *Mac) LastFrame() []byte {
	f := m.lastFrame.Load()
	if f == nil {
		return nil
	}
	return append([]byte(nil), (*f)...)
}

func (m *Mac) Stats() Stats {
	return Stats{
		Transmissions:   m.transmissions.Load(),
		UplinksLost:     m.uplinksLost.Load(),
		Downlinks:       m.downlinks.Load(),
		DownlinksLost:   m.downlinksLost.Load(),
		DownlinksMissed: m.downlinksMissed.Load(),
	}
}

// Energy returns the radio energy spent so far. It must be called on the radio timeline.
func (m *Mac) Energy() energy.Consumption {
	return m.energy.Latest(m.now)
}

// SaveEnergy writes the energy spent after each uplink cycle to filename. It must be called on the radio
// timeline.
func (m *Mac) SaveEnergy(filename string) error {
	return m.energy.SaveEnergyDataToFile(filename, m.now)
}

func (m *Mac) OnEvent(handler func(radio.Event)) {
	m.handler = handler
}

func (m *Mac) SetTimedCallback(at types.Tick, fn func()) {
	m.jobs.Cancel(m.callback)
	m.callback = m.jobs.Add("callback", at, fn)
}

func (m *Mac) emit(ev radio.Event) {
	ev.Time = m.now
	if m.handler != nil {
		m.handler(ev)
	}
}
