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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lora-drt/drt/energy"
	"github.com/lora-drt/drt/pcap"
	"github.com/lora-drt/drt/prng"
	"github.com/lora-drt/drt/radio"
	"github.com/lora-drt/drt/radiomodel"
	"github.com/lora-drt/drt/types"
)

func linkParams(dist float64) *radiomodel.Params {
	p := radiomodel.NewParams()
	p.DistanceMeters = dist
	p.ShadowFadingSigmaDb = 0
	p.TimeFadingSigmaDb = 0
	return p
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Link = linkParams(10)
	cfg.DownlinkProbability = 0
	cfg.Rx1Preference = 1
	return cfg
}

type eventLog struct {
	events []radio.Event
}

func (el *eventLog) handle(ev radio.Event) {
	el.events = append(el.events, ev)
}

func (el *eventLog) completions() []radio.Event {
	var res []radio.Event
	for _, ev := range el.events {
		if ev.Kind == radio.EventTxComplete {
			res = append(res, ev)
		}
	}
	return res
}

func newTestMac(t *testing.T, cfg *Config) (*Mac, *eventLog) {
	prng.Init(42)
	m := NewMac(cfg)
	el := &eventLog{}
	m.OnEvent(el.handle)
	t.Cleanup(m.Stop)
	return m, el
}

func TestUnconfirmedCycle(t *testing.T) {
	m, el := newTestMac(t, testConfig())
	assert.False(t, m.OpInFlight())
	assert.Equal(t, uint32(0), m.SeqNoUp())

	m.SetTxData(types.SF7, 7, []byte{0x07}, false)
	assert.True(t, m.OpInFlight())
	assert.Equal(t, types.Tick(0), m.TxEnd())
	assert.Equal(t, uint32(1), m.SeqNoUp())
	assert.Equal(t, "4000100126000000075e3ab641e1", hex.EncodeToString(m.LastFrame()))
	require.Len(t, el.events, 1)
	assert.Equal(t, radio.EventTxStart, el.events[0].Kind)

	airtime := radiomodel.TimeOnAir(types.SF7, 14)
	m.Advance(airtime)
	assert.Equal(t, airtime, m.TxEnd())
	rx1 := airtime + types.Second - 50*types.Millisecond
	assert.Equal(t, rx1, m.RxTime())

	// RX1 closes after the widened window plus the preamble lock time
	m.Advance(rx1 - m.Now())
	m.Advance(100*types.Millisecond + 6*1024)
	rx2 := airtime + 2*types.Second - 100*types.Millisecond
	assert.Equal(t, rx2, m.RxTime())
	assert.True(t, m.OpInFlight())

	m.Advance(rx2 + 200*types.Millisecond + 6*4096 - m.Now())
	assert.False(t, m.OpInFlight())
	done := el.completions()
	require.Len(t, done, 1)
	assert.False(t, done[0].HasDownlink())
	assert.Equal(t, types.RxWindowNone, done[0].Window)
	assert.Equal(t, m.Now(), done[0].Time)

	kinds := map[radio.EventKind]int{}
	for _, ev := range el.events {
		kinds[ev.Kind]++
	}
	assert.Equal(t, 2, kinds[radio.EventRxStart])
}

func TestDutyCycleDelaysNextUplink(t *testing.T) {
	m, el := newTestMac(t, testConfig())
	m.SetTxData(types.SF7, 7, []byte{0x07}, false)
	m.Advance(3 * types.Second)
	require.Len(t, el.completions(), 1)

	// 1 % of the g band: off for 100 times the airtime
	availAt := 100 * radiomodel.TimeOnAir(types.SF7, 14)
	m.SetTxData(types.SF8, 8, []byte{0x08}, false)
	assert.Equal(t, availAt, m.TxEnd())
	assert.True(t, m.OpInFlight())
	assert.Equal(t, uint64(1), m.Stats().Transmissions)

	m.ClearTxData()
	assert.False(t, m.OpInFlight())
	assert.Equal(t, availAt, m.TxEnd())

	// nothing is sent once the band is free again
	m.Advance(availAt)
	assert.Equal(t, uint64(1), m.Stats().Transmissions)

	m.SetTxData(types.SF8, 8, []byte{0x08}, false)
	assert.Equal(t, m.Now(), m.TxEnd())
	assert.Equal(t, uint64(2), m.Stats().Transmissions)
	assert.Equal(t, uint32(2), m.SeqNoUp())
}

func TestQueuedUplinkStartsWhenBandFree(t *testing.T) {
	m, el := newTestMac(t, testConfig())
	m.SetTxData(types.SF7, 7, []byte{0x07}, false)
	m.Advance(3 * types.Second)

	m.SetTxData(types.SF7, 7, []byte{0x07}, false)
	at := m.TxEnd()
	require.True(t, at.After(m.Now()))
	m.Advance(at - m.Now())
	assert.Equal(t, uint64(2), m.Stats().Transmissions)
	assert.Equal(t, at, m.TxEnd())
	assert.Len(t, el.completions(), 1)
}

func TestConfirmedAckInRx1(t *testing.T) {
	m, el := newTestMac(t, testConfig())
	m.SetTxData(types.SF7, 7, []byte{0x07}, true)
	m.SuppressConfirmedRetries()
	m.Advance(5 * types.Second)

	done := el.completions()
	require.Len(t, done, 1)
	assert.True(t, done[0].Acked)
	assert.Equal(t, types.RxWindow1, done[0].Window)
	assert.Equal(t, uint32(0), done[0].SeqNoDown)
	assert.Empty(t, done[0].Payload)
	assert.Equal(t, uint64(1), m.Stats().Downlinks)
	assert.False(t, m.OpInFlight())
}

func TestDownlinkPayloadInRx2(t *testing.T) {
	cfg := testConfig()
	cfg.DownlinkProbability = 1
	cfg.Rx1Preference = 0
	m, el := newTestMac(t, cfg)

	m.SetTxData(types.SF10, 10, []byte{0x10}, false)
	m.Advance(10 * types.Second)

	done := el.completions()
	require.Len(t, done, 1)
	assert.False(t, done[0].Acked)
	assert.Equal(t, types.RxWindow2, done[0].Window)
	assert.Len(t, done[0].Payload, cfg.DownlinkPayloadLen)
}

func TestConfirmedRetries(t *testing.T) {
	cfg := testConfig()
	cfg.Link = linkParams(1e7)
	cfg.ConfirmedRetries = 3
	m, el := newTestMac(t, cfg)

	m.SetTxData(types.SF7, 7, []byte{0x07}, true)
	m.Advance(60 * types.Second)
	assert.Equal(t, uint64(3), m.Stats().Transmissions)
	assert.Equal(t, uint64(3), m.Stats().UplinksLost)
	assert.Equal(t, uint32(1), m.SeqNoUp())
	done := el.completions()
	require.Len(t, done, 1)
	assert.False(t, done[0].Acked)
}

func TestSuppressedRetries(t *testing.T) {
	cfg := testConfig()
	cfg.Link = linkParams(1e7)
	m, el := newTestMac(t, cfg)

	m.SetTxData(types.SF7, 7, []byte{0x07}, true)
	m.SuppressConfirmedRetries()
	m.Advance(60 * types.Second)
	assert.Equal(t, uint64(1), m.Stats().Transmissions)
	assert.Len(t, el.completions(), 1)
}

func TestClockDriftMissesRx1(t *testing.T) {
	cfg := testConfig()
	cfg.ClockErrorPercent = 0
	cfg.ClockDriftPercent = 0.5
	m, el := newTestMac(t, cfg)

	m.SetTxData(types.SF7, 7, []byte{0x07}, true)
	m.SuppressConfirmedRetries()
	m.Advance(5 * types.Second)
	done := el.completions()
	require.Len(t, done, 1)
	assert.False(t, done[0].Acked)
	assert.Equal(t, uint64(1), m.Stats().DownlinksMissed)

	// widening the window compensates
	cfg.ClockErrorPercent = 1
	m2, el2 := newTestMac(t, cfg)
	m2.SetTxData(types.SF7, 7, []byte{0x07}, true)
	m2.SuppressConfirmedRetries()
	m2.Advance(5 * types.Second)
	require.Len(t, el2.completions(), 1)
	assert.True(t, el2.completions()[0].Acked)
}

func TestSetDataDuringCycleIgnored(t *testing.T) {
	m, _ := newTestMac(t, testConfig())
	m.SetTxData(types.SF7, 7, []byte{0x07}, false)
	m.SetTxData(types.SF8, 8, []byte{0x08}, false)
	m.ClearTxData()
	assert.True(t, m.OpInFlight())
	assert.Equal(t, uint32(1), m.SeqNoUp())
}

func TestTimedCallbackReplaced(t *testing.T) {
	m, _ := newTestMac(t, testConfig())
	var fired []string
	m.SetTimedCallback(100, func() { fired = append(fired, "first") })
	m.SetTimedCallback(200, func() { fired = append(fired, "second") })
	m.Advance(150)
	assert.Empty(t, fired)
	m.Advance(100)
	assert.Equal(t, []string{"second"}, fired)

	// a callback in the past runs on the next advance
	m.SetTimedCallback(0, func() { fired = append(fired, "late") })
	m.Advance(0)
	assert.Equal(t, []string{"second", "late"}, fired)
}

func TestPostAsyncAndSpeed(t *testing.T) {
	m, _ := newTestMac(t, testConfig())
	ran := false
	m.PostAsync(false, func() {
		ran = true
		m.SetSpeed(0)
	})
	m.RunOnce()
	assert.True(t, ran)
	assert.Equal(t, 0.0, m.Speed())

	now := m.Now()
	m.RunOnce()
	assert.Equal(t, now, m.Now())

	m.SetSpeed(2 * MaxSimulateSpeed)
	assert.Equal(t, float64(MaxSimulateSpeed), m.Speed())
}

type memPcap struct {
	frames []pcap.Frame
	closed bool
}

func (mp *memPcap) AppendFrame(frame pcap.Frame) error {
	mp.frames = append(mp.frames, frame)
	return nil
}

func (mp *memPcap) Sync() error {
	return nil
}

func (mp *memPcap) Close() error {
	mp.closed = true
	return nil
}

func TestPcapCapture(t *testing.T) {
	m, _ := newTestMac(t, testConfig())
	mp := &memPcap{}
	m.SetPcap(mp)

	m.SetTxData(types.SF9, 9, []byte{0x09}, true)
	m.SuppressConfirmedRetries()
	m.Advance(5 * types.Second)
	m.Stop()

	assert.True(t, mp.closed)
	require.Len(t, mp.frames, 2)
	up, down := mp.frames[0], mp.frames[1]
	assert.Equal(t, uint8(9), up.SpreadingFactor)
	assert.Equal(t, byte(ConfirmedDataUp), up.Data[0])
	assert.Equal(t, byte(UnconfirmedDataDown), down.Data[0])
	assert.Equal(t, up.FrequencyHz, down.FrequencyHz)
	assert.True(t, down.Timestamp > up.Timestamp)
}

func TestEnergyAccounting(t *testing.T) {
	m, el := newTestMac(t, testConfig())
	m.SetTxData(types.SF7, 7, []byte{0x07}, false)
	airtime := radiomodel.TimeOnAir(types.SF7, 14)

	m.Advance(5 * types.Second)
	require.Len(t, el.completions(), 1)

	c := m.Energy()
	assert.Equal(t, 5*types.Second, c.Timestamp)
	assert.InDelta(t, float64(airtime)*energy.RadioTxConsumption, c.Tx, 1e-9)
	// both windows stay open for twice the widening plus six symbols
	rx := 2*50*types.Millisecond + 6*1024 + 2*100*types.Millisecond + 6*4096
	assert.InDelta(t, float64(rx)*energy.RadioRxConsumption, c.Rx, 1e-9)
	assert.Greater(t, c.Sleep, 0.0)

	fn := filepath.Join(t.TempDir(), "energy.txt")
	require.NoError(t, m.SaveEnergy(fn))
	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))
}
