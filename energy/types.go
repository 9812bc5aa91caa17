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

package energy

import (
	"github.com/lora-drt/drt/types"
)

type RadioState uint8

const (
	RadioSleep RadioState = iota
	RadioTx
	RadioRx
)

func (s RadioState) String() string {
	switch s {
	case RadioSleep:
		return "sleep"
	case RadioTx:
		return "tx"
	case RadioRx:
		return "rx"
	default:
		return "invalid"
	}
}

/*
 * Consumption by state of an SX1276 at 3.3V, transmitting at +14 dBm.
 * Consumption in kilowatts, time in microseconds, resulting energy in mJ.
 */
const (
	RadioSleepConsumption float64 = 0.00000000066 // kilowatts @ i = 0.2 uA
	RadioTxConsumption    float64 = 0.0001452     // kilowatts @ i = 44 mA
	RadioRxConsumption    float64 = 0.00003564    // kilowatts @ i = 10.8 mA
)

type RadioStatus struct {
	State      RadioState
	SpentSleep types.Tick
	SpentTx    types.Tick
	SpentRx    types.Tick
	Timestamp  types.Tick
}

// Consumption is the energy spent by the radio until Timestamp, in mJ.
type Consumption struct {
	Timestamp types.Tick
	Sleep     float64
	Tx        float64
	Rx        float64
}

func (c Consumption) Total() float64 {
	return c.Sleep + c.Tx + c.Rx
}
