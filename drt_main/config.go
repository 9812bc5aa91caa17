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

package drt_main

import (
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/lora-drt/drt/display"
	"github.com/lora-drt/drt/sim"
	"github.com/lora-drt/drt/tester"
	"github.com/lora-drt/drt/types"
)

// YamlConfigFile is the optional configuration file of the tester. Times are given in seconds. Absent entries
// keep their defaults.
type YamlConfigFile struct {
	Speed   *float64          `yaml:"speed"`
	Seed    *int64            `yaml:"seed"`
	Tester  YamlTesterConfig  `yaml:"tester"`
	Mac     YamlMacConfig     `yaml:"mac"`
	Link    YamlLinkConfig    `yaml:"link"`
	Display YamlDisplayConfig `yaml:"display"`
}

type YamlTesterConfig struct {
	DataRates   []int    `yaml:"data-rates,flow"`
	Fixed       *bool    `yaml:"fixed"`
	Confirmed   *bool    `yaml:"confirmed"`
	SettleDelay *float64 `yaml:"settle-delay"`
}

type YamlMacConfig struct {
	Rx1Delay            *float64 `yaml:"rx1-delay"`
	Rx2Delay            *float64 `yaml:"rx2-delay"`
	ClockError          *float64 `yaml:"clock-error"`
	ClockDrift          *float64 `yaml:"clock-drift"`
	ConfirmedRetries    *int     `yaml:"confirmed-retries"`
	DownlinkProbability *float64 `yaml:"downlink-probability"`
	Rx1Preference       *float64 `yaml:"rx1-preference"`
}

type YamlLinkConfig struct {
	Distance     *float64 `yaml:"distance"`
	TxPower      *float64 `yaml:"tx-power"`
	Exponent     *float64 `yaml:"exponent"`
	ShadowFading *float64 `yaml:"shadow-fading"`
	TimeFading   *float64 `yaml:"time-fading"`
}

type YamlDisplayConfig struct {
	Interval *float64 `yaml:"interval"`
	RxLead   *float64 `yaml:"rx-lead"`
}

// RunConfig is the complete setup of one run.
type RunConfig struct {
	Seed            int64
	Mac             *sim.Config
	Tester          tester.Config
	Progress        display.ProgressConfig
	DisplayInterval time.Duration
}

func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Mac:             sim.DefaultConfig(),
		Tester:          tester.DefaultConfig(),
		Progress:        display.DefaultProgressConfig(),
		DisplayInterval: 50 * time.Millisecond,
	}
}

func LoadConfigFile(filename string) (*YamlConfigFile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", filename)
	}
	cfgFile := &YamlConfigFile{}
	if err = yaml.Unmarshal(data, cfgFile); err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", filename)
	}
	return cfgFile, nil
}

// Apply overrides the entries of rc given in the file.
func (f *YamlConfigFile) Apply(rc *RunConfig) error {
	if f.Speed != nil {
		rc.Mac.Speed = *f.Speed
	}
	if f.Seed != nil {
		rc.Seed = *f.Seed
	}

	if len(f.Tester.DataRates) > 0 {
		table := make([]types.SpreadingFactor, len(f.Tester.DataRates))
		for i, v := range f.Tester.DataRates {
			if v < 0 || v > math.MaxUint8 || !types.SpreadingFactor(v).Valid() {
				return errors.Errorf("data-rates entry %d: invalid spreading factor %d", i, v)
			}
			table[i] = types.SpreadingFactor(v)
		}
		rc.Tester.AutoTable = table
	}
	if f.Tester.Fixed != nil {
		rc.Tester.AutoDataRate = !*f.Tester.Fixed
	}
	if f.Tester.Confirmed != nil {
		rc.Tester.Confirmed = *f.Tester.Confirmed
	}
	setTicks(&rc.Tester.SettleDelay, f.Tester.SettleDelay)

	setTicks(&rc.Mac.Rx1Delay, f.Mac.Rx1Delay)
	setTicks(&rc.Mac.Rx2Delay, f.Mac.Rx2Delay)
	if rc.Mac.Rx2Delay <= rc.Mac.Rx1Delay {
		return errors.Errorf("rx2-delay must be larger than rx1-delay")
	}
	setFloat(&rc.Mac.ClockErrorPercent, f.Mac.ClockError)
	setFloat(&rc.Mac.ClockDriftPercent, f.Mac.ClockDrift)
	if f.Mac.ConfirmedRetries != nil {
		if *f.Mac.ConfirmedRetries < 1 {
			return errors.Errorf("confirmed-retries must be at least 1")
		}
		rc.Mac.ConfirmedRetries = *f.Mac.ConfirmedRetries
	}
	if err := setProbability(&rc.Mac.DownlinkProbability, f.Mac.DownlinkProbability, "downlink-probability"); err != nil {
		return err
	}
	if err := setProbability(&rc.Mac.Rx1Preference, f.Mac.Rx1Preference, "rx1-preference"); err != nil {
		return err
	}

	setFloat(&rc.Mac.Link.DistanceMeters, f.Link.Distance)
	setFloat(&rc.Mac.Link.TxPowerDbm, f.Link.TxPower)
	setFloat(&rc.Mac.Link.ExponentDb, f.Link.Exponent)
	setFloat(&rc.Mac.Link.ShadowFadingSigmaDb, f.Link.ShadowFading)
	setFloat(&rc.Mac.Link.TimeFadingSigmaDb, f.Link.TimeFading)

	if f.Display.Interval != nil {
		if *f.Display.Interval <= 0 {
			return errors.Errorf("display interval must be positive")
		}
		rc.DisplayInterval = time.Duration(*f.Display.Interval * float64(time.Second))
	}
	setTicks(&rc.Progress.RxLead, f.Display.RxLead)
	return nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setTicks(dst *types.Tick, seconds *float64) {
	if seconds != nil {
		*dst = types.Tick(math.Round(*seconds * float64(types.Second)))
	}
}

func setProbability(dst *float64, v *float64, name string) error {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 1 {
		return errors.Errorf("%s must be within 0..1", name)
	}
	*dst = *v
	return nil
}
