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

package display_mqtt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lora-drt/drt/display"
	"github.com/lora-drt/drt/types"
)

type published struct {
	topic   string
	payload []byte
}

func newTestDisplay(topic string) (*mqttDisplay, *[]published) {
	var msgs []published
	md := NewMqttDisplay("tcp://localhost:1883", topic, "0123456789abcdef").(*mqttDisplay)
	md.publish = func(topic string, payload []byte) {
		msgs = append(msgs, published{topic, payload})
	}
	return md, &msgs
}

func TestMqttDisplayPublishesOnChange(t *testing.T) {
	md, msgs := newTestDisplay("")
	screen := display.Screen{
		Time:            2500 * types.Millisecond,
		State:           types.AwaitingRx1,
		Header:          "#4 SF9* 868.3",
		Frame:           display.Frame{Label: "awaiting rx1", Percent: 90},
		Attempt:         types.UplinkAttempt{SeqNo: 4, SpreadingFactor: types.SF9, FrequencyHz: 868300000, Confirmed: true},
		SpreadingFactor: types.SF9,
		Confirmed:       true,
	}
	md.Show(screen)

	// the progress alone does not make a new message
	screen.Frame.Percent = 70
	screen.Time += 100 * types.Millisecond
	md.Show(screen)
	require.Len(t, *msgs, 1)

	screen.State = types.ReceiveCycleDone
	screen.Downlink = "#0/4 SF9 rx1 ack"
	md.Show(screen)
	require.Len(t, *msgs, 2)

	first := (*msgs)[0]
	assert.Equal(t, DefaultTopic, first.topic)
	var msg StatusMessage
	require.NoError(t, json.Unmarshal(first.payload, &msg))
	assert.Equal(t, StatusMessage{
		Run:       "0123456789abcdef",
		TimeSec:   2.5,
		State:     "rx1",
		Header:    "#4 SF9* 868.3",
		SeqNo:     4,
		SF:        9,
		FreqMHz:   868.3,
		Confirmed: true,
		Label:     "awaiting rx1",
		Percent:   90,
	}, msg)

	require.NoError(t, json.Unmarshal((*msgs)[1].payload, &msg))
	assert.Equal(t, "rxdone", msg.State)
	assert.Equal(t, "#0/4 SF9 rx1 ack", msg.Downlink)
}

func TestMqttDisplayStopped(t *testing.T) {
	md, msgs := newTestDisplay("lab/drt")
	md.Show(display.Screen{State: types.Transmitting})
	md.Stop()
	md.Show(display.Screen{State: types.AwaitingRx1})
	require.Len(t, *msgs, 1)
	assert.Equal(t, "lab/drt", (*msgs)[0].topic)
}

func TestClientID(t *testing.T) {
	assert.Equal(t, "drt_01234567", clientID("0123456789abcdef"))
	assert.Equal(t, "drt_ab", clientID("ab"))
}
