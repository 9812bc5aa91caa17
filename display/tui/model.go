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
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lora-drt/drt/display"
	"github.com/lora-drt/drt/input"
)

const (
	defaultRefresh  = 50 * time.Millisecond
	defaultBarWidth = 40
	maxBarWidth     = 72
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	downlinkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)
)

type tickMsg time.Time

// Model is the Bubble Tea model of the status screen. It picks up the latest published screen on every
// refresh tick and turns key presses into button actions.
type Model struct {
	source   *atomic.Pointer[display.Screen]
	speed    *atomic.Uint64
	screen   display.Screen
	bar      progress.Model
	keys     KeyMap
	refresh  time.Duration
	width    int
	onAction func(a input.Action)
	onQuit   func()
}

func NewModel(source *atomic.Pointer[display.Screen], speed *atomic.Uint64, onAction func(a input.Action),
	onQuit func()) *Model {
	return &Model{
		source:   source,
		speed:    speed,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(defaultBarWidth)),
		keys:     DefaultKeyMap(),
		refresh:  defaultRefresh,
		onAction: onAction,
		onQuit:   onQuit,
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Init() tea.Cmd {
	return m.tick()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-8, 10), maxBarWidth)
		return m, nil
	case tickMsg:
		if s := m.source.Load(); s != nil {
			m.screen = *s
		}
		return m, m.tick()
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.Click):
			m.act(input.Click)
		case key.Matches(msg, m.keys.DoubleClick):
			m.act(input.DoubleClick)
		case key.Matches(msg, m.keys.LongPress):
			m.act(input.LongPress)
		}
	}
	return m, nil
}

func (m *Model) act(a input.Action) {
	if m.onAction != nil {
		m.onAction(a)
	}
}

func (m *Model) View() string {
	s := m.screen
	title := titleStyle.Render("LoRaWAN data rate tester")
	if m.speed != nil {
		if speed := math.Float64frombits(m.speed.Load()); speed != 1 {
			title += mutedStyle.Render(fmt.Sprintf("  speed x%g", speed))
		}
	}

	downlink := s.Downlink
	if downlink == "" {
		downlink = "no downlink yet"
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(s.Header),
		labelStyle.Render(fmt.Sprintf("%-28s %s", s.Frame.Label, mutedStyle.Render(s.State.String()))),
		m.bar.ViewAs(float64(s.Frame.Percent)/100),
		downlinkStyle.Render(downlink),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		boxStyle.Render(body),
		mutedStyle.Render(m.keys.helpLine()),
	) + "\n"
}
