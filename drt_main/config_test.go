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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lora-drt/drt/types"
)

var testYamlFile = `
speed: 10
seed: 42
tester:
    data-rates: [7, 12, 7, 9]
    fixed: false
    confirmed: true
    settle-delay: 0.25
mac:
    rx1-delay: 1
    rx2-delay: 2
    clock-error: 2.5
    confirmed-retries: 3
    downlink-probability: 0.5
link:
    distance: 1500
    shadow-fading: 0
display:
    interval: 0.1
    rx-lead: 0.5
`

func TestYamlConfigUnmarshall(t *testing.T) {
	cfgFile := YamlConfigFile{}
	require.NoError(t, yaml.Unmarshal([]byte(testYamlFile), &cfgFile))
	require.NotNil(t, cfgFile.Speed)
	assert.Equal(t, 10.0, *cfgFile.Speed)
	assert.Equal(t, []int{7, 12, 7, 9}, cfgFile.Tester.DataRates)
	assert.Nil(t, cfgFile.Mac.ClockDrift)

	rc := DefaultRunConfig()
	require.NoError(t, cfgFile.Apply(rc))
	assert.Equal(t, 10.0, rc.Mac.Speed)
	assert.Equal(t, int64(42), rc.Seed)
	assert.Equal(t, []types.SpreadingFactor{types.SF7, types.SF12, types.SF7, types.SF9}, rc.Tester.AutoTable)
	assert.True(t, rc.Tester.AutoDataRate)
	assert.True(t, rc.Tester.Confirmed)
	assert.Equal(t, 250*types.Millisecond, rc.Tester.SettleDelay)
	assert.Equal(t, 2.5, rc.Mac.ClockErrorPercent)
	assert.Equal(t, 3, rc.Mac.ConfirmedRetries)
	assert.Equal(t, 0.5, rc.Mac.DownlinkProbability)
	assert.Equal(t, 0.9, rc.Mac.Rx1Preference)
	assert.Equal(t, 1500.0, rc.Mac.Link.DistanceMeters)
	assert.Equal(t, 0.0, rc.Mac.Link.ShadowFadingSigmaDb)
	assert.Equal(t, 100*time.Millisecond, rc.DisplayInterval)
	assert.Equal(t, 500*types.Millisecond, rc.Progress.RxLead)
}

func TestYamlConfigInvalid(t *testing.T) {
	tests := []string{
		"tester: {data-rates: [6]}",
		"tester: {data-rates: [300]}",
		"mac: {rx1-delay: 2, rx2-delay: 1}",
		"mac: {confirmed-retries: 0}",
		"mac: {downlink-probability: 1.5}",
		"mac: {rx1-preference: -0.1}",
		"display: {interval: 0}",
	}
	for _, text := range tests {
		cfgFile := YamlConfigFile{}
		require.NoError(t, yaml.Unmarshal([]byte(text), &cfgFile), text)
		assert.Error(t, cfgFile.Apply(DefaultRunConfig()), text)
	}
}

func TestLoadConfigFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "drt.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(testYamlFile), 0644))
	cfgFile, err := LoadConfigFile(fn)
	require.NoError(t, err)
	require.NotNil(t, cfgFile.Seed)
	assert.Equal(t, int64(42), *cfgFile.Seed)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("speed: [1"), 0644))
	_, err = LoadConfigFile(bad)
	assert.Error(t, err)
}

func TestParseSpeed(t *testing.T) {
	speed, err := parseSpeed("max")
	require.NoError(t, err)
	assert.Equal(t, 1000000.0, speed)

	speed, err = parseSpeed("2.5")
	require.NoError(t, err)
	assert.Equal(t, 2.5, speed)

	_, err = parseSpeed("fast")
	assert.Error(t, err)
	_, err = parseSpeed("-1")
	assert.Error(t, err)
}

func TestCreateRunConfigFlags(t *testing.T) {
	saved := args
	defer func() {
		args = saved
	}()

	args = MainArgs{Speed: "4", Seed: 7, Confirmed: true, Fixed: true}
	rc, err := createRunConfig()
	require.NoError(t, err)
	assert.Equal(t, 4.0, rc.Mac.Speed)
	assert.Equal(t, int64(7), rc.Seed)
	assert.True(t, rc.Tester.Confirmed)
	assert.False(t, rc.Tester.AutoDataRate)

	args = MainArgs{}
	rc, err = createRunConfig()
	require.NoError(t, err)
	assert.NotZero(t, rc.Seed)
	assert.Equal(t, 1.0, rc.Mac.Speed)
}
