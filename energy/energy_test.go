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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lora-drt/drt/types"
)

func TestMeter(t *testing.T) {
	m := NewMeter(0)
	assert.Equal(t, RadioSleep, m.State())

	m.SetRadioState(RadioTx, types.Second)
	m.SetRadioState(RadioSleep, types.Second+50*types.Millisecond)
	m.SetRadioState(RadioRx, 2*types.Second)
	m.SetRadioState(RadioSleep, 2*types.Second+10*types.Millisecond)

	st := m.Status(3 * types.Second)
	assert.Equal(t, 50*types.Millisecond, st.SpentTx)
	assert.Equal(t, 10*types.Millisecond, st.SpentRx)
	assert.Equal(t, 3*types.Second-60*types.Millisecond, st.SpentSleep)

	c := m.Consumption(3 * types.Second)
	assert.InDelta(t, 50000*RadioTxConsumption, c.Tx, 1e-9)
	assert.InDelta(t, 10000*RadioRxConsumption, c.Rx, 1e-9)
	assert.InDelta(t, c.Sleep+c.Tx+c.Rx, c.Total(), 1e-12)

	// time going backwards is not accounted
	m.SetRadioState(RadioTx, types.Second)
	assert.Equal(t, 50*types.Millisecond, m.Status(types.Second).SpentTx)
}

func TestEnergyAnalyserHistory(t *testing.T) {
	e := NewEnergyAnalyser(0)
	e.SetRadioState(RadioTx, 0)
	e.SetRadioState(RadioSleep, 100*types.Millisecond)
	e.StoreCycleEnergy(types.Second)
	e.StoreCycleEnergy(2 * types.Second)
	require.Len(t, e.History(), 2)
	assert.Equal(t, types.Second, e.History()[0].Timestamp)

	var buf bytes.Buffer
	require.NoError(t, e.writeEnergyHistory(&buf, 3*types.Second))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Duration of the simulation (in milliseconds): 3000", lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "1000\t"))
	assert.True(t, strings.HasPrefix(lines[4], "3000\t"))

	fn := filepath.Join(t.TempDir(), "energy.txt")
	require.NoError(t, e.SaveEnergyDataToFile(fn, 3*types.Second))
	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(data))

	e.ClearEnergyData()
	assert.Empty(t, e.History())
}
