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
	"encoding/hex"
	"fmt"
	"strings"
)

// SpreadingFactor is a LoRa spreading factor, SF7 through SF12.
type SpreadingFactor uint8

const (
	SF7  SpreadingFactor = 7
	SF8  SpreadingFactor = 8
	SF9  SpreadingFactor = 9
	SF10 SpreadingFactor = 10
	SF11 SpreadingFactor = 11
	SF12 SpreadingFactor = 12

	MinSpreadingFactor = SF7
	MaxSpreadingFactor = SF12
)

func (sf SpreadingFactor) String() string {
	return fmt.Sprintf("SF%d", uint8(sf))
}

func (sf SpreadingFactor) Valid() bool {
	return sf >= MinSpreadingFactor && sf <= MaxSpreadingFactor
}

// DataRate returns the EU868 data rate index for a 125 kHz LoRa spreading factor: DR0 is SF12, DR5 is SF7.
func (sf SpreadingFactor) DataRate() DataRate {
	return DataRate(12 - uint8(sf))
}

// BCD encodes the spreading factor as two binary-coded decimal nibbles, so SF10 reads as 0x10.
func (sf SpreadingFactor) BCD() byte {
	return (uint8(sf)/10)<<4 | uint8(sf)%10
}

// DataRate is an EU868 data rate index.
type DataRate uint8

func (dr DataRate) SpreadingFactor() SpreadingFactor {
	return SpreadingFactor(12 - uint8(dr))
}

func (dr DataRate) String() string {
	return fmt.Sprintf("DR%d", uint8(dr))
}

// RxWindow identifies the receive window in which a downlink arrived.
type RxWindow uint8

const (
	RxWindowNone RxWindow = iota
	RxWindow1
	RxWindow2
)

func (w RxWindow) String() string {
	switch w {
	case RxWindow1:
		return "rx1"
	case RxWindow2:
		return "rx2"
	default:
		return "-"
	}
}

// UplinkAttempt holds the parameters of an uplink, captured before the send is issued because the MAC changes
// its own counters as soon as it transmits.
type UplinkAttempt struct {
	SeqNo           uint32
	SpreadingFactor SpreadingFactor
	FrequencyHz     uint32
	Confirmed       bool
}

// FrequencyMHz returns the uplink frequency in MHz.
func (u UplinkAttempt) FrequencyMHz() float64 {
	return float64(u.FrequencyHz) / 1e6
}

// DownlinkRecord describes the downlink that completed an uplink's receive cycle.
type DownlinkRecord struct {
	SeqNoDown       uint32
	SeqNoUp         uint32
	SpreadingFactor SpreadingFactor
	Window          RxWindow
	Acked           bool
	Payload         []byte
}

// Summary returns a one-line description like "#12/34 SF7 rx1 ack 0a0b".
func (d DownlinkRecord) Summary() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "#%d/%d %s %s", d.SeqNoDown, d.SeqNoUp, d.SpreadingFactor, d.Window)
	if d.Acked {
		sb.WriteString(" ack")
	}
	if len(d.Payload) > 0 {
		sb.WriteString(" ")
		sb.WriteString(hex.EncodeToString(d.Payload))
	}
	return sb.String()
}
