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
	"github.com/lora-drt/drt/logger"
	"github.com/lora-drt/drt/types"
)

// Meter integrates the time the end device radio spends in each state.
type Meter struct {
	radio RadioStatus
}

func NewMeter(timestamp types.Tick) *Meter {
	return &Meter{
		radio: RadioStatus{
			State:     RadioSleep,
			Timestamp: timestamp,
		},
	}
}

func (m *Meter) ComputeRadioState(timestamp types.Tick) {
	delta := timestamp.Sub(m.radio.Timestamp)
	if delta < 0 {
		logger.Warnf("energy: radio state time went backwards by %d", -delta)
		delta = 0
	}
	switch m.radio.State {
	case RadioSleep:
		m.radio.SpentSleep += delta
	case RadioTx:
		m.radio.SpentTx += delta
	case RadioRx:
		m.radio.SpentRx += delta
	default:
		logger.Panicf("unknown radio state: %v", m.radio.State)
	}
	m.radio.Timestamp = timestamp
}

func (m *Meter) SetRadioState(state RadioState, timestamp types.Tick) {
	// account the time of the previous state first
	m.ComputeRadioState(timestamp)
	m.radio.State = state
}

func (m *Meter) State() RadioState {
	return m.radio.State
}

func (m *Meter) Status(timestamp types.Tick) RadioStatus {
	m.ComputeRadioState(timestamp)
	return m.radio
}

func (m *Meter) Consumption(timestamp types.Tick) Consumption {
	st := m.Status(timestamp)
	return Consumption{
		Timestamp: timestamp,
		Sleep:     float64(st.SpentSleep) * RadioSleepConsumption,
		Tx:        float64(st.SpentTx) * RadioTxConsumption,
		Rx:        float64(st.SpentRx) * RadioRxConsumption,
	}
}
