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

// Package radiotest provides a scripted radio.Oracle for deterministic tests. It is not safe for concurrent use.
package radiotest

import (
	"github.com/lora-drt/drt/radio"
	"github.com/lora-drt/drt/types"
)

// TxData is one SetTxData request seen by the oracle.
type TxData struct {
	SpreadingFactor types.SpreadingFactor
	Port            uint8
	Payload         []byte
	Confirmed       bool
	SeqNo           uint32
	Time            types.Tick
}

// Oracle is a fake MAC whose timing fields are set directly by the test. A SetTxData issued while TxEndTick is
// not in the future is transmitted immediately: the frame counter advances and the operation is in flight.
type Oracle struct {
	Clock     types.Tick
	TxEndTick types.Tick
	RxTick    types.Tick
	InFlight  bool
	SeqNo     uint32
	Freq      uint32
	Frame     []byte

	Pending     *TxData
	Transmitted []TxData
	Cleared     int
	Suppressed  int

	CallbackAt types.Tick
	Callback   func()
	Scheduled  int

	handler func(radio.Event)
}

var _ radio.Oracle = (*Oracle)(nil)

func New() *Oracle {
	return &Oracle{
		Freq: 868100000,
	}
}

func (o *Oracle) Now() types.Tick    { return o.Clock }
func (o *Oracle) TxEnd() types.Tick  { return o.TxEndTick }
func (o *Oracle) RxTime() types.Tick { return o.RxTick }
func (o *Oracle) OpInFlight() bool   { return o.InFlight }

func (o *Oracle) Snapshot() radio.Snapshot {
	return radio.Snapshot{
		Now:        o.Clock,
		TxEnd:      o.TxEndTick,
		RxTime:     o.RxTick,
		OpInFlight: o.InFlight,
	}
}

func (o *Oracle) SeqNoUp() uint32       { return o.SeqNo }
func (o *Oracle) TxChannelFreq() uint32 { return o.Freq }
func (o *Oracle) LastFrame() []byte     { return o.Frame }

func (o *Oracle) SetTxData(sf types.SpreadingFactor, port uint8, payload []byte, confirmed bool) {
	o.Pending = &TxData{
		SpreadingFactor: sf,
		Port:            port,
		Payload:         append([]byte(nil), payload...),
		Confirmed:       confirmed,
		SeqNo:           o.SeqNo,
		Time:            o.Clock,
	}
	if !o.TxEndTick.After(o.Clock) {
		o.Transmitted = append(o.Transmitted, *o.Pending)
		o.Frame = append([]byte{0x40}, payload...)
		o.SeqNo++
		o.InFlight = true
	}
}

func (o *Oracle) ClearTxData() {
	o.Cleared++
	o.Pending = nil
}

func (o *Oracle) SuppressConfirmedRetries() {
	o.Suppressed++
}

func (o *Oracle) SetTimedCallback(at types.Tick, fn func()) {
	o.CallbackAt = at
	o.Callback = fn
	o.Scheduled++
}

func (o *Oracle) OnEvent(handler func(radio.Event)) {
	o.handler = handler
}

// Fire advances the clock to the scheduled callback time and runs the callback. It returns false if no callback
// is scheduled.
func (o *Oracle) Fire() bool {
	if o.Callback == nil {
		return false
	}
	fn := o.Callback
	o.Callback = nil
	if o.CallbackAt.After(o.Clock) {
		o.Clock = o.CallbackAt
	}
	fn()
	return true
}

// Complete ends the in-flight operation and delivers ev to the registered handler.
func (o *Oracle) Complete(ev radio.Event) {
	o.InFlight = false
	o.Pending = nil
	ev.Time = o.Clock
	if o.handler != nil {
		o.handler(ev)
	}
}

// Emit delivers ev to the registered handler without touching the oracle state.
func (o *Oracle) Emit(ev radio.Event) {
	if o.handler != nil {
		o.handler(ev)
	}
}
