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

package radio

import (
	"fmt"

	"github.com/lora-drt/drt/types"
)

// EventKind enumerates the MAC lifecycle events. Values follow the numbering of the LMIC event type.
type EventKind uint8

const (
	EventScanTimeout EventKind = iota + 1
	EventBeaconFound
	EventBeaconMissed
	EventBeaconTracked
	EventJoining
	EventJoined
	EventRfu1
	EventJoinFailed
	EventRejoinFailed
	EventTxComplete
	EventLostTsync
	EventReset
	EventRxComplete
	EventLinkDead
	EventLinkAlive
	EventScanFound
	EventTxStart
	EventTxCanceled
	EventRxStart
	EventJoinTxComplete
)

var eventKindNames = map[EventKind]string{
	EventScanTimeout:    "EV_SCAN_TIMEOUT",
	EventBeaconFound:    "EV_BEACON_FOUND",
	EventBeaconMissed:   "EV_BEACON_MISSED",
	EventBeaconTracked:  "EV_BEACON_TRACKED",
	EventJoining:        "EV_JOINING",
	EventJoined:         "EV_JOINED",
	EventRfu1:           "EV_RFU1",
	EventJoinFailed:     "EV_JOIN_FAILED",
	EventRejoinFailed:   "EV_REJOIN_FAILED",
	EventTxComplete:     "EV_TXCOMPLETE",
	EventLostTsync:      "EV_LOST_TSYNC",
	EventReset:          "EV_RESET",
	EventRxComplete:     "EV_RXCOMPLETE",
	EventLinkDead:       "EV_LINK_DEAD",
	EventLinkAlive:      "EV_LINK_ALIVE",
	EventScanFound:      "EV_SCAN_FOUND",
	EventTxStart:        "EV_TXSTART",
	EventTxCanceled:     "EV_TXCANCELED",
	EventRxStart:        "EV_RXSTART",
	EventJoinTxComplete: "EV_JOIN_TXCOMPLETE",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EV_UNKNOWN(%d)", uint8(k))
}

// Known reports whether k is one of the defined event kinds.
func (k EventKind) Known() bool {
	_, ok := eventKindNames[k]
	return ok
}

// Event is a MAC event. The downlink fields are only set for EventTxComplete.
type Event struct {
	Kind EventKind
	Time types.Tick

	Acked     bool
	Window    types.RxWindow
	Payload   []byte
	SeqNoDown uint32 // frame counter of the received downlink
}

// HasDownlink reports whether the event carries an acknowledgement or application payload.
func (e Event) HasDownlink() bool {
	return e.Acked || len(e.Payload) > 0
}
