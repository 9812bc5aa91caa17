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

package display

import (
	"fmt"

	"github.com/lora-drt/drt/tester"
	"github.com/lora-drt/drt/types"
)

// Screen is everything shown for one presentation tick.
type Screen struct {
	Time            types.Tick
	State           types.CycleState
	Header          string
	Frame           Frame
	Downlink        string
	Attempt         types.UplinkAttempt
	SpreadingFactor types.SpreadingFactor
	FixedDataRate   bool
	Confirmed       bool
}

// HeaderLine formats the uplink parameters as "#12 [SF7]* 868.1": the frame counter, the spreading factor in
// brackets when fixed, an asterisk for confirmed uplinks and the frequency in MHz.
func HeaderLine(st tester.Status) string {
	sf := st.SpreadingFactor.String()
	if st.FixedDataRate {
		sf = "[" + sf + "]"
	}
	confirmed := ""
	if st.Confirmed {
		confirmed = "*"
	}
	return fmt.Sprintf("#%d %s%s %.1f", st.Attempt.SeqNo, sf, confirmed, st.Attempt.FrequencyMHz())
}

// Compose renders a full screen from a tester status.
func (cfg ProgressConfig) Compose(st tester.Status) Screen {
	s := Screen{
		Time:            st.Now,
		State:           st.Cycle.State,
		Header:          HeaderLine(st),
		Frame:           cfg.Render(st.Cycle.State, st.Cycle.Window, st.Now),
		Attempt:         st.Attempt,
		SpreadingFactor: st.SpreadingFactor,
		FixedDataRate:   st.FixedDataRate,
		Confirmed:       st.Confirmed,
	}
	if st.Downlink != nil {
		s.Downlink = st.Downlink.Summary()
	}
	return s
}
