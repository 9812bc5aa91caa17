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

package display

import (
	"sync/atomic"

	"github.com/lora-drt/drt/tester"
)

// StatusSource provides the tester status without blocking.
type StatusSource interface {
	Status() tester.Status
}

// Presenter renders the tester status on every display tick and hands the screen to a Display.
type Presenter struct {
	source StatusSource
	disp   Display
	cfg    ProgressConfig
	last   atomic.Pointer[Screen]
}

func NewPresenter(source StatusSource, disp Display, cfg ProgressConfig) *Presenter {
	if disp == nil {
		disp = NewNopDisplay()
	}
	p := &Presenter{
		source: source,
		disp:   disp,
		cfg:    cfg,
	}
	p.last.Store(&Screen{})
	return p
}

// Tick must be called on the display timeline.
func (p *Presenter) Tick() Screen {
	screen := p.cfg.Compose(p.source.Status())
	p.last.Store(&screen)
	p.disp.Show(screen)
	return screen
}

// Last returns the screen of the most recent tick. It is safe to call from any goroutine.
func (p *Presenter) Last() Screen {
	return *p.last.Load()
}
