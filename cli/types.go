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

package cli

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/lora-drt/drt/energy"
	"github.com/lora-drt/drt/input"
	"github.com/lora-drt/drt/tester"
)

// CommandInterruptedError is reported when the radio timeline ended before a command could run on it.
var CommandInterruptedError = errors.Errorf("command interrupted due to exit")

// Simulation is the radio timeline the console posts its commands to.
type Simulation interface {
	PostAsync(trivial bool, task func())
	Speed() float64
	SetSpeed(speed float64)

	// Energy and SaveEnergy must be called on the radio timeline.
	Energy() energy.Consumption
	SaveEnergy(filename string) error
}

// Target is what the console inspects and controls.
type Target interface {
	HandleAction(a input.Action)
	Status() tester.Status
	DataRates() *tester.DataRateSelector
}

type statusYaml struct {
	Now       string `yaml:"now"`
	State     string `yaml:"state"`
	Remaining string `yaml:"remaining"`
	DataRate  string `yaml:"sf"`
	Fixed     bool   `yaml:"fixed"`
	Confirmed bool   `yaml:"confirmed"`
	SeqNoUp   uint32 `yaml:"fcnt-up"`
	Frequency string `yaml:"freq"`
	Downlink  string `yaml:"downlink,omitempty"`
}

func newStatusYaml(st tester.Status) statusYaml {
	sy := statusYaml{
		Now:       st.Now.String(),
		State:     st.Cycle.State.String(),
		Remaining: st.Cycle.Window.Remaining(st.Now).Duration().String(),
		DataRate:  st.SpreadingFactor.String(),
		Fixed:     st.FixedDataRate,
		Confirmed: st.Confirmed,
		SeqNoUp:   st.Attempt.SeqNo,
	}
	if st.Attempt.FrequencyHz != 0 {
		sy.Frequency = fmt.Sprintf("%.1f MHz", st.Attempt.FrequencyMHz())
	}
	if st.Downlink != nil {
		sy.Downlink = st.Downlink.Summary()
	}
	return sy
}
