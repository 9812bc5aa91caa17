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

package display_multi

import (
	"github.com/lora-drt/drt/display"
)

type MultiDisplay struct {
	ds []display.Display
}

// NewMultiDisplay creates a new Display that multiplexes to multiple Displays.
func NewMultiDisplay(ds ...display.Display) *MultiDisplay {
	return &MultiDisplay{ds: ds}
}

func (md *MultiDisplay) AddDisplay(ds ...display.Display) {
	md.ds = append(md.ds, ds...)
}

func (md *MultiDisplay) Len() int {
	return len(md.ds)
}

func (md *MultiDisplay) Init() {
	for _, d := range md.ds {
		d.Init()
	}
}

// Run runs the first display in the calling goroutine and all others in goroutines of their own.
func (md *MultiDisplay) Run() {
	if len(md.ds) == 0 {
		return
	}
	for i := 1; i < len(md.ds); i++ {
		go md.ds[i].Run()
	}
	md.ds[0].Run()
}

func (md *MultiDisplay) Stop() {
	for _, d := range md.ds {
		d.Stop()
	}
}

func (md *MultiDisplay) Show(screen display.Screen) {
	for _, d := range md.ds {
		d.Show(screen)
	}
}

func (md *MultiDisplay) SetSpeed(speed float64) {
	for _, d := range md.ds {
		d.SetSpeed(speed)
	}
}
