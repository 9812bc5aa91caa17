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

package display_tui

import (
	"math"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lora-drt/drt/display"
	"github.com/lora-drt/drt/input"
	"github.com/lora-drt/drt/logger"
)

type tuiDisplay struct {
	screen  atomic.Pointer[display.Screen]
	speed   atomic.Uint64
	model   *Model
	program *tea.Program
	running atomic.Bool
	onQuit  func()
}

// NewTuiDisplay creates a new Display that shows the status screen in the terminal. Key presses are delivered
// to onAction; onQuit is called once the user quits.
func NewTuiDisplay(onAction func(a input.Action), onQuit func(), opts ...tea.ProgramOption) display.Display {
	td := &tuiDisplay{
		onQuit: onQuit,
	}
	td.screen.Store(&display.Screen{})
	td.speed.Store(math.Float64bits(1))
	td.model = NewModel(&td.screen, &td.speed, onAction, nil)
	td.program = tea.NewProgram(td.model, opts...)
	return td
}

func (td *tuiDisplay) Init() {
}

// Run blocks until the user quits or Stop is called.
func (td *tuiDisplay) Run() {
	td.running.Store(true)
	defer td.running.Store(false)
	if _, err := td.program.Run(); err != nil {
		logger.Errorf("tui: %v", err)
	}
	if td.onQuit != nil {
		td.onQuit()
	}
}

// Stop is a no-op unless Run is active; sending to a program that is not running would block.
func (td *tuiDisplay) Stop() {
	if td.running.Load() {
		td.program.Quit()
	}
}

func (td *tuiDisplay) Show(screen display.Screen) {
	td.screen.Store(&screen)
}

func (td *tuiDisplay) SetSpeed(speed float64) {
	td.speed.Store(math.Float64bits(speed))
}
