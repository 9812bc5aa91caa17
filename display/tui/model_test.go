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
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/lora-drt/drt/display"
	"github.com/lora-drt/drt/input"
	"github.com/lora-drt/drt/types"
)

func newTestModel() (*Model, *atomic.Pointer[display.Screen], *[]input.Action, *int) {
	var src atomic.Pointer[display.Screen]
	var speed atomic.Uint64
	speed.Store(math.Float64bits(1))
	var actions []input.Action
	quits := 0
	m := NewModel(&src, &speed, func(a input.Action) {
		actions = append(actions, a)
	}, func() {
		quits++
	})
	return m, &src, &actions, &quits
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelKeys(t *testing.T) {
	m, _, actions, quits := newTestModel()

	m.Update(keyMsg("c"))
	m.Update(keyMsg("d"))
	m.Update(keyMsg("l"))
	m.Update(keyMsg("x"))
	assert.Equal(t, []input.Action{input.Click, input.DoubleClick, input.LongPress}, *actions)

	_, cmd := m.Update(keyMsg("q"))
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, *quits)
}

func TestModelPicksUpScreen(t *testing.T) {
	m, src, _, _ := newTestModel()
	src.Store(&display.Screen{
		State:    types.AwaitingRx1,
		Header:   "#3 [SF9]* 868.3",
		Frame:    display.Frame{Label: "awaiting rx1", Percent: 75},
		Downlink: "#1/2 SF9 rx1 ack",
	})

	view := m.View()
	assert.False(t, strings.Contains(view, "#3 [SF9]* 868.3"))
	assert.True(t, strings.Contains(view, "no downlink yet"))

	_, cmd := m.Update(tickMsg(time.Now()))
	assert.NotNil(t, cmd)
	view = m.View()
	assert.True(t, strings.Contains(view, "#3 [SF9]* 868.3"))
	assert.True(t, strings.Contains(view, "awaiting rx1"))
	assert.True(t, strings.Contains(view, "#1/2 SF9 rx1 ack"))
	assert.True(t, strings.Contains(view, "toggle confirmed"))
}

func TestModelResize(t *testing.T) {
	m, _, _, _ := newTestModel()
	m.Update(tea.WindowSizeMsg{Width: 200, Height: 40})
	assert.Equal(t, maxBarWidth, m.bar.Width)
	m.Update(tea.WindowSizeMsg{Width: 12, Height: 40})
	assert.Equal(t, 10, m.bar.Width)
}

func TestTuiDisplayShow(t *testing.T) {
	d := NewTuiDisplay(nil, nil, tea.WithInput(nil), tea.WithoutRenderer()).(*tuiDisplay)
	d.Init()
	d.SetSpeed(10)
	d.Show(display.Screen{Header: "#7 SF12 868.5"})
	d.model.Update(tickMsg(time.Now()))
	assert.Equal(t, "#7 SF12 868.5", d.model.screen.Header)
	assert.True(t, strings.Contains(d.model.View(), "speed x10"))

	// not running
	d.Stop()
}
