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

// Package energy estimates the energy the simulated end device radio spends transmitting, receiving and
// sleeping.
package energy

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/lora-drt/drt/types"
)

// EnergyAnalyser keeps a consumption sample per completed uplink cycle.
type EnergyAnalyser struct {
	meter   *Meter
	history []Consumption
}

func NewEnergyAnalyser(timestamp types.Tick) *EnergyAnalyser {
	return &EnergyAnalyser{
		meter:   NewMeter(timestamp),
		history: make([]Consumption, 0, 3600),
	}
}

func (e *EnergyAnalyser) SetRadioState(state RadioState, timestamp types.Tick) {
	e.meter.SetRadioState(state, timestamp)
}

func (e *EnergyAnalyser) StoreCycleEnergy(timestamp types.Tick) {
	e.history = append(e.history, e.meter.Consumption(timestamp))
}

func (e *EnergyAnalyser) Latest(timestamp types.Tick) Consumption {
	return e.meter.Consumption(timestamp)
}

func (e *EnergyAnalyser) History() []Consumption {
	return append([]Consumption(nil), e.history...)
}

func (e *EnergyAnalyser) ClearEnergyData() {
	e.history = e.history[:0]
}

func (e *EnergyAnalyser) SaveEnergyDataToFile(name string, timestamp types.Tick) error {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "create energy file %s", name)
	}
	defer f.Close()

	if err = e.writeEnergyHistory(f, timestamp); err != nil {
		return errors.Wrapf(err, "write energy file %s", name)
	}
	return nil
}

func (e *EnergyAnalyser) writeEnergyHistory(w io.Writer, timestamp types.Tick) error {
	if _, err := fmt.Fprintf(w, "Duration of the simulation (in milliseconds): %d\n", timestamp.Ms()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Time (ms)\tSleep (mJ)\tTransmitting (mJ)\tReceiving (mJ)\n"); err != nil {
		return err
	}
	for _, c := range append(e.History(), e.Latest(timestamp)) {
		if _, err := fmt.Fprintf(w, "%d\t%f\t%f\t%f\n", c.Timestamp.Ms(), c.Sleep, c.Tx, c.Rx); err != nil {
			return err
		}
	}
	return nil
}
