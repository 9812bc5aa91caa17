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
	"time"

	"github.com/lora-drt/drt/radiomodel"
	"github.com/lora-drt/drt/types"
)

const (
	DefaultSpeed     = 1.0
	MaxSimulateSpeed = 1000000
)

// Config holds the setup of the simulated end device and its network.
type Config struct {
	Speed        float64       // virtual time per real time
	LoopInterval time.Duration // real time between two RunOnce calls in Run

	Rx1Delay        types.Tick
	Rx2Delay        types.Tick
	Rx2FrequencyHz  uint32
	Rx2SpreadFactor types.SpreadingFactor

	// ClockErrorPercent widens the receive windows to tolerate a slow or fast device clock.
	ClockErrorPercent float64
	// ClockDriftPercent is the actual crystal error of the device; windows are missed when it exceeds what the
	// widening covers.
	ClockDriftPercent float64
	RxSymbols         int // minimum preamble symbols for the receiver to lock

	ConfirmedRetries    int     // transmissions of a confirmed uplink without ack
	DownlinkProbability float64 // chance that the network has application data for the device
	DownlinkPayloadLen  int
	Rx1Preference       float64 // chance that the network answers in RX1 rather than RX2

	Session Session
	Link    *radiomodel.Params
	Airtime radiomodel.AirtimeParams
}

// DefaultConfig returns the TTN EU868 ABP setup of the tester.
func DefaultConfig() *Config {
	cfg := &Config{
		Speed:               DefaultSpeed,
		LoopInterval:        5 * time.Millisecond,
		Rx1Delay:            types.Second,
		Rx2Delay:            2 * types.Second,
		Rx2FrequencyHz:      869525000,
		Rx2SpreadFactor:     types.SF9,
		ClockErrorPercent:   5,
		RxSymbols:           6,
		ConfirmedRetries:    8,
		DownlinkProbability: 0.2,
		DownlinkPayloadLen:  4,
		Rx1Preference:       0.9,
		Session:             Session{DevAddr: 0x26011000},
		Link:                radiomodel.NewParams(),
		Airtime:             radiomodel.DefaultAirtimeParams(),
	}
	for i := range cfg.Session.NwkSKey {
		cfg.Session.NwkSKey[i] = byte(i)
		cfg.Session.AppSKey[i] = byte(i)
	}
	return cfg
}
