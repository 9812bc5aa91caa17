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

// Package radio defines the contract of the LoRaWAN MAC as seen by the tester: a timing oracle that exposes its
// scheduled transmit and receive times, accepts transmissions and timed callbacks, and reports completion
// through events.
package radio

import (
	"github.com/lora-drt/drt/types"
)

// Snapshot is a consistent-enough read of the oracle's timing fields at one moment.
type Snapshot struct {
	Now        types.Tick
	TxEnd      types.Tick // scheduled end of transmission, or the earliest time the next one may start
	RxTime     types.Tick // scheduled start of the next receive window
	OpInFlight bool       // a TX/RX cycle is pending or running
}

// Oracle is the radio MAC. All methods except the timing getters and Snapshot must be called on the radio
// timeline; the getters may be called from any goroutine.
type Oracle interface {
	Now() types.Tick
	TxEnd() types.Tick
	RxTime() types.Tick
	OpInFlight() bool
	Snapshot() Snapshot

	// SeqNoUp is the frame counter the next uplink will use.
	SeqNoUp() uint32
	// TxChannelFreq is the frequency of the channel selected for the next uplink.
	TxChannelFreq() uint32
	// LastFrame returns the PHY payload of the most recent transmission.
	LastFrame() []byte

	// SetTxData queues an uplink, to be sent as soon as duty cycle limits allow.
	SetTxData(sf types.SpreadingFactor, port uint8, payload []byte, confirmed bool)
	// ClearTxData cancels a queued, not yet started, uplink.
	ClearTxData()
	// SuppressConfirmedRetries makes the MAC consider all retries of a confirmed uplink already used.
	SuppressConfirmedRetries()

	// SetTimedCallback schedules fn on the radio timeline at the given time, replacing any callback scheduled
	// before.
	SetTimedCallback(at types.Tick, fn func())
	// OnEvent registers the handler for MAC events.
	OnEvent(handler func(Event))
}
