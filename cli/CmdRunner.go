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
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/lora-drt/drt/input"
	"github.com/lora-drt/drt/logger"
	"github.com/lora-drt/drt/progctx"
	"github.com/lora-drt/drt/sim"
	"github.com/lora-drt/drt/types"
)

const (
	Prompt = "drt> "
)

type CommandContext struct {
	context.Context
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	data, err := yaml.Marshal(items)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

type CmdRunner struct {
	sim    Simulation
	target Target
	ctx    *progctx.ProgCtx
	help   Help
}

func NewCmdRunner(ctx *progctx.ProgCtx, sim Simulation, target Target) *CmdRunner {
	return &CmdRunner{
		ctx:    ctx,
		sim:    sim,
		target: target,
		help:   newHelp(),
	}
}

func (rt *CmdRunner) RunCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}

		if err := ParseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
		} else {
			rt.execute(&cmd, output)
		}
	}
	return rt.ctx.Err()
}

func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	return rt.RunCommand(cmdline, output)
}

func (rt *CmdRunner) GetPrompt() string {
	return Prompt
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Command: cmd,
		rt:      rt,
		output:  output,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if cmd.Action != nil {
		rt.executeAction(cc, cmd.Action)
	} else if cmd.Energy != nil {
		rt.executeEnergy(cc, cmd.Energy)
	} else if cmd.Status != nil {
		rt.executeStatus(cc)
	} else if cmd.Rates != nil {
		rt.executeRates(cc)
	} else if cmd.Speed != nil {
		rt.executeSpeed(cc, cmd.Speed)
	} else if cmd.Time != nil {
		rt.executeTime(cc)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cmd.LogLevel)
	} else if cmd.Exit != nil {
		rt.executeExit(cc)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else {
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

// postAsyncWait runs f on the radio timeline and waits until it ran.
func (rt *CmdRunner) postAsyncWait(cc *CommandContext, f func()) {
	done := make(chan struct{})
	rt.sim.PostAsync(false, func() {
		defer close(done) // even if f() fails execution, 'done' should be closed.
		f()
	})
	select {
	case <-done:
	case <-rt.ctx.Done():
		cc.error(CommandInterruptedError)
	}
}

func (rt *CmdRunner) executeAction(cc *CommandContext, cmd *ActionCmd) {
	a, err := input.ParseAction(cmd.Name)
	if err != nil {
		cc.error(err)
		return
	}
	rt.postAsyncWait(cc, func() {
		rt.target.HandleAction(a)
	})
	st := rt.target.Status()
	sf := st.SpreadingFactor.String()
	if st.FixedDataRate {
		sf = "[" + sf + "]"
	}
	cc.outputf("%s confirmed=%v\n", sf, st.Confirmed)
}

func (rt *CmdRunner) executeEnergy(cc *CommandContext, cmd *EnergyCmd) {
	if cmd.Save != nil {
		name := cmd.Name
		if name == "" {
			name = "energy.txt"
		}
		rt.postAsyncWait(cc, func() {
			cc.error(rt.sim.SaveEnergy(name))
		})
		return
	}

	rt.postAsyncWait(cc, func() {
		c := rt.sim.Energy()
		cc.outputf("sleep %.3f mJ\ntx    %.3f mJ\nrx    %.3f mJ\ntotal %.3f mJ\n", c.Sleep, c.Tx, c.Rx, c.Total())
	})
}

func (rt *CmdRunner) executeStatus(cc *CommandContext) {
	cc.outputItemsAsYaml(newStatusYaml(rt.target.Status()))
}

func (rt *CmdRunner) executeRates(cc *CommandContext) {
	rates := rt.target.DataRates()
	current := rates.Current()
	if rates.Auto() {
		cc.outputf("auto data rate table:\n")
		for i, sf := range rates.Table() {
			mark := " "
			if i == rates.Index() {
				mark = ">"
			}
			cc.outputf("%s %2d %-4s %s\n", mark, i, sf, sf.DataRate())
		}
		return
	}

	cc.outputf("fixed data rate:\n")
	for sf := types.MinSpreadingFactor; sf <= types.MaxSpreadingFactor; sf++ {
		mark := " "
		if sf == current {
			mark = ">"
		}
		cc.outputf("%s    %-4s %s\n", mark, sf, sf.DataRate())
	}
}

func (rt *CmdRunner) executeSpeed(cc *CommandContext, cmd *SpeedCmd) {
	if cmd.Speed == nil && cmd.Max == nil {
		cc.outputf("%v\n", rt.sim.Speed())
		return
	}
	speed := float64(sim.MaxSimulateSpeed)
	if cmd.Speed != nil {
		speed = *cmd.Speed
	}
	if speed < 0 {
		cc.errorf("invalid speed: %v", speed)
		return
	}
	rt.postAsyncWait(cc, func() {
		rt.sim.SetSpeed(speed)
	})
}

func (rt *CmdRunner) executeTime(cc *CommandContext) {
	now := rt.target.Status().Now
	cc.outputf("%d ticks %d ms %d s\n", int64(now), now.Ms(), int64(now.Seconds()))
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		cc.outputf("%v\n", logger.GetLevelString(logger.GetLevel()))
		return
	}
	level, err := logger.ParseLevelString(cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	logger.SetLevel(level)
}

func (rt *CmdRunner) executeExit(cc *CommandContext) {
	rt.ctx.Cancel("exit")
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) > 0 {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.outputStr(rt.help.outputGeneralHelp())
	}
}
