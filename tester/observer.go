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

package tester

import (
	"github.com/lora-drt/drt/types"
)

// Observer is notified of everything the tester does. OnTransition is called on the display timeline, all
// other methods on the radio timeline.
type Observer interface {
	OnTransition(tr Transition)
	OnUplink(attempt types.UplinkAttempt)
	OnReschedule(attempt types.UplinkAttempt, wait types.Tick)
	OnViolation()
	OnDownlink(rec types.DownlinkRecord)
	OnDataRate(sf types.SpreadingFactor, auto bool)
	OnConfirmed(confirmed bool)
}

type NopObserver struct{}

func (NopObserver) OnTransition(Transition)                      {}
func (NopObserver) OnUplink(types.UplinkAttempt)                 {}
func (NopObserver) OnReschedule(types.UplinkAttempt, types.Tick) {}
func (NopObserver) OnViolation()                                 {}
func (NopObserver) OnDownlink(types.DownlinkRecord)              {}
func (NopObserver) OnDataRate(types.SpreadingFactor, bool)       {}
func (NopObserver) OnConfirmed(bool)                             {}
