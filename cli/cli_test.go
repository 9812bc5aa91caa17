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
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lora-drt/drt/energy"
	"github.com/lora-drt/drt/logger"
	"github.com/lora-drt/drt/progctx"
	"github.com/lora-drt/drt/radio/radiotest"
	"github.com/lora-drt/drt/sim"
	"github.com/lora-drt/drt/tester"
)

// inlineSim runs posted tasks right away, or drops them when drop is set.
type inlineSim struct {
	speed float64
	drop  bool
	posts int
	saved string
}

func (s *inlineSim) PostAsync(_ bool, task func()) {
	s.posts++
	if !s.drop {
		task()
	}
}

func (s *inlineSim) Speed() float64 {
	return s.speed
}

func (s *inlineSim) SetSpeed(speed float64) {
	s.speed = speed
}

func (s *inlineSim) Energy() energy.Consumption {
	return energy.Consumption{Sleep: 0.5, Tx: 2, Rx: 1.25}
}

func (s *inlineSim) SaveEnergy(filename string) error {
	s.saved = filename
	return nil
}

func newTestRunner(t *testing.T) (*CmdRunner, *inlineSim, *progctx.ProgCtx) {
	cfg := tester.DefaultConfig()
	cfg.Countdown = false
	tst, err := tester.New(radiotest.New(), cfg, nil)
	require.NoError(t, err)

	ctx := progctx.New(context.Background())
	s := &inlineSim{speed: 1}
	return NewCmdRunner(ctx, s, tst), s, ctx
}

func run(t *testing.T, rt *CmdRunner, cmdline string) string {
	var out bytes.Buffer
	_ = rt.RunCommand(cmdline, &out)
	return out.String()
}

func TestParseBytes(t *testing.T) {
	var cmd Command
	assert.NotNil(t, ParseBytes([]byte("wrongcmd"), &cmd))

	for _, name := range []string{"tap", "click", "double", "long"} {
		cmd = Command{}
		assert.Nil(t, ParseBytes([]byte(name), &cmd))
		require.NotNil(t, cmd.Action, name)
		assert.Equal(t, name, cmd.Action.Name)
	}

	cmd = Command{}
	assert.True(t, ParseBytes([]byte("energy"), &cmd) == nil && cmd.Energy != nil && cmd.Energy.Save == nil)
	cmd = Command{}
	assert.True(t, ParseBytes([]byte("energy save \"e.txt\""), &cmd) == nil && cmd.Energy != nil)
	assert.NotNil(t, cmd.Energy.Save)
	assert.Equal(t, "e.txt", cmd.Energy.Name)

	assert.True(t, ParseBytes([]byte("exit"), &cmd) == nil && cmd.Exit != nil)
	assert.True(t, ParseBytes([]byte("quit"), &cmd) == nil && cmd.Exit != nil)

	assert.True(t, ParseBytes([]byte("help"), &cmd) == nil && cmd.Help != nil)
	cmd = Command{}
	assert.True(t, ParseBytes([]byte("help speed"), &cmd) == nil && cmd.Help != nil)
	assert.Equal(t, "speed", cmd.Help.HelpTopic)

	cmd = Command{}
	assert.True(t, ParseBytes([]byte("log"), &cmd) == nil && cmd.LogLevel != nil)
	assert.Equal(t, "", cmd.LogLevel.Level)
	assert.True(t, ParseBytes([]byte("log debug"), &cmd) == nil && cmd.LogLevel != nil)
	assert.True(t, ParseBytes([]byte("log warn"), &cmd) == nil && cmd.LogLevel != nil)
	assert.True(t, ParseBytes([]byte("log off"), &cmd) == nil && cmd.LogLevel != nil)
	assert.NotNil(t, ParseBytes([]byte("log fatal"), &cmd)) // not supported.

	assert.True(t, ParseBytes([]byte("sf"), &cmd) == nil && cmd.Rates != nil)
	assert.True(t, ParseBytes([]byte("rates"), &cmd) == nil && cmd.Rates != nil)

	cmd = Command{}
	assert.True(t, ParseBytes([]byte("speed"), &cmd) == nil && cmd.Speed != nil)
	assert.Nil(t, cmd.Speed.Speed)
	cmd = Command{}
	assert.True(t, ParseBytes([]byte("speed 2.5"), &cmd) == nil && cmd.Speed != nil)
	require.NotNil(t, cmd.Speed.Speed)
	assert.Equal(t, 2.5, *cmd.Speed.Speed)
	cmd = Command{}
	assert.True(t, ParseBytes([]byte("speed max"), &cmd) == nil && cmd.Speed != nil && cmd.Speed.Max != nil)

	assert.True(t, ParseBytes([]byte("status"), &cmd) == nil && cmd.Status != nil)
	assert.True(t, ParseBytes([]byte("time"), &cmd) == nil && cmd.Time != nil)
}

func TestRunActions(t *testing.T) {
	rt, s, _ := newTestRunner(t)

	assert.Equal(t, "SF7 confirmed=false\nDone\n", run(t, rt, "tap"))
	assert.Equal(t, "SF8 confirmed=false\nDone\n", run(t, rt, "tap"))
	assert.Equal(t, "SF8 confirmed=true\nDone\n", run(t, rt, "double"))
	assert.Equal(t, "[SF7] confirmed=true\nDone\n", run(t, rt, "long"))
	assert.Equal(t, "[SF8] confirmed=true\nDone\n", run(t, rt, "click"))
	assert.Equal(t, 5, s.posts)
}

func TestRunRates(t *testing.T) {
	rt, _, _ := newTestRunner(t)

	out := run(t, rt, "tap")
	require.True(t, strings.HasSuffix(out, "Done\n"))

	out = run(t, rt, "sf")
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, len(tester.DefaultAutoTable)+2)
	assert.Equal(t, "auto data rate table:", lines[0])
	assert.Equal(t, ">  0 SF7  DR5", lines[1])
	assert.Equal(t, "   4 SF12 DR0", lines[5])
	assert.Equal(t, "Done", lines[len(lines)-1])

	run(t, rt, "long")
	run(t, rt, "tap")
	out = run(t, rt, "rates")
	lines = strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "fixed data rate:", lines[0])
	assert.Equal(t, ">    SF8  DR4", lines[2])
}

func TestRunEnergy(t *testing.T) {
	rt, s, _ := newTestRunner(t)

	assert.Equal(t, "sleep 0.500 mJ\ntx    2.000 mJ\nrx    1.250 mJ\ntotal 3.750 mJ\nDone\n", run(t, rt, "energy"))
	assert.Equal(t, "Done\n", run(t, rt, "energy save"))
	assert.Equal(t, "energy.txt", s.saved)
	assert.Equal(t, "Done\n", run(t, rt, "energy save \"run1.txt\""))
	assert.Equal(t, "run1.txt", s.saved)
}

func TestRunSpeed(t *testing.T) {
	rt, s, _ := newTestRunner(t)

	assert.Equal(t, "1\nDone\n", run(t, rt, "speed"))
	assert.Equal(t, "Done\n", run(t, rt, "speed 10"))
	assert.Equal(t, 10.0, s.speed)
	assert.Equal(t, "10\nDone\n", run(t, rt, "speed"))
	assert.Equal(t, "Done\n", run(t, rt, "speed max"))
	assert.Equal(t, float64(sim.MaxSimulateSpeed), s.speed)
}

func TestRunLogLevel(t *testing.T) {
	rt, _, _ := newTestRunner(t)
	prev := logger.GetLevel()
	defer logger.SetLevel(prev)

	assert.Equal(t, "Done\n", run(t, rt, "log debug"))
	assert.Equal(t, logger.DebugLevel, logger.GetLevel())
	assert.Equal(t, "debug\nDone\n", run(t, rt, "log"))
	assert.Equal(t, "Done\n", run(t, rt, "log W"))
	assert.Equal(t, logger.WarnLevel, logger.GetLevel())
}

func TestRunTime(t *testing.T) {
	rt, _, _ := newTestRunner(t)
	assert.Equal(t, "0 ticks 0 ms 0 s\nDone\n", run(t, rt, "time"))
}

func TestRunErrors(t *testing.T) {
	rt, _, _ := newTestRunner(t)
	out := run(t, rt, "transmit")
	assert.True(t, strings.HasPrefix(out, "Error: "), out)
}

func TestRunExit(t *testing.T) {
	rt, _, ctx := newTestRunner(t)

	var out bytes.Buffer
	err := rt.RunCommand("exit", &out)
	assert.NotNil(t, err)
	assert.NotNil(t, ctx.Err())

	// commands are ignored once the program context is done
	out.Reset()
	assert.NotNil(t, rt.RunCommand("tap", &out))
	assert.Equal(t, "", out.String())
}

func TestPostAsyncWaitInterrupted(t *testing.T) {
	rt, s, ctx := newTestRunner(t)
	s.drop = true
	ctx.Cancel(nil)

	var out bytes.Buffer
	cc := &CommandContext{rt: rt, output: &out}
	ran := false
	rt.postAsyncWait(cc, func() {
		ran = true
	})
	assert.False(t, ran)
	assert.Equal(t, CommandInterruptedError, cc.Err())
}

func TestHelp(t *testing.T) {
	h := newHelp()
	for _, c := range []string{"tap", "double", "long", "status", "sf", "log", "speed", "help", "exit", "time"} {
		assert.Contains(t, h.topics, c)
	}
	assert.Equal(t, "Select the next data rate.", h.topics["tap"].summary)

	general := h.outputGeneralHelp()
	assert.Contains(t, general, "speed")
	assert.Contains(t, general, "help <command>")

	assert.Contains(t, h.outputCommandHelp("speed"), "speed [max | <value>]")
	assert.Contains(t, h.outputCommandHelp("nosuchcmd"), "(Non-existent command.)")
	assert.Equal(t, h.outputCommandHelp("sf"), h.outputCommandHelp("rates"))
	assert.True(t, strings.HasPrefix(h.outputCommandHelp("quit"), "exit\n"))

	rt, _, _ := newTestRunner(t)
	assert.Contains(t, run(t, rt, "help status"), "YAML")
}
