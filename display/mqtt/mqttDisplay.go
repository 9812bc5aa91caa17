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
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lora-drt/drt/display"
	"github.com/lora-drt/drt/logger"
)

const (
	DefaultTopic = "drt/status"

	publishQos        = 0
	disconnectQuiesce = 250 // ms
)

// StatusMessage is the JSON document published for every cycle state change.
type StatusMessage struct {
	Run       string  `json:"run"`
	TimeSec   float64 `json:"time_sec"`
	State     string  `json:"state"`
	Header    string  `json:"header"`
	SeqNo     uint32  `json:"seq_no"`
	SF        int     `json:"sf"`
	FreqMHz   float64 `json:"freq_mhz"`
	Confirmed bool    `json:"confirmed"`
	Fixed     bool    `json:"fixed"`
	Label     string  `json:"label,omitempty"`
	Percent   int     `json:"percent"`
	Downlink  string  `json:"downlink,omitempty"`
}

// publishFunc hands a payload to the broker without waiting for it.
type publishFunc func(topic string, payload []byte)

// changeKey is the part of a screen whose change triggers a new message.
type changeKey struct {
	state     string
	seqNo     uint32
	sf        int
	confirmed bool
	fixed     bool
	downlink  string
}

type mqttDisplay struct {
	sync.Mutex
	broker    string
	topic     string
	run       string
	client    mqtt.Client
	publish   publishFunc
	last      changeKey
	published bool
}

// NewMqttDisplay creates a new Display that publishes a retained status message to topic on the MQTT broker
// whenever the cycle state or the uplink parameters change. run identifies this tester run in every message.
func NewMqttDisplay(broker, topic, run string) display.Display {
	if topic == "" {
		topic = DefaultTopic
	}
	return &mqttDisplay{
		broker: broker,
		topic:  topic,
		run:    run,
	}
}

func (md *mqttDisplay) Init() {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(md.broker)
	opts.SetClientID(clientID(md.run))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Infof("MQTT: connected to broker %s", md.broker)
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warnf("MQTT: connection lost: %v", err)
	})

	md.client = mqtt.NewClient(opts)
	// with connect retry the token only completes once connected; never wait on the display timeline
	md.client.Connect()
	md.publish = func(topic string, payload []byte) {
		token := md.client.Publish(topic, publishQos, true, payload)
		go func() {
			<-token.Done()
			if err := token.Error(); err != nil {
				logger.Debugf("MQTT: publish to %s failed: %v", topic, err)
			}
		}()
	}
}

func (md *mqttDisplay) Run() {
	// no goroutine
}

func (md *mqttDisplay) Stop() {
	md.Lock()
	defer md.Unlock()
	if md.client != nil {
		md.client.Disconnect(disconnectQuiesce)
		md.client = nil
	}
	md.publish = nil
	logger.Debugf("MQTT display stopped")
}

func (md *mqttDisplay) SetSpeed(float64) {
}

func (md *mqttDisplay) Show(screen display.Screen) {
	md.Lock()
	defer md.Unlock()
	if md.publish == nil {
		return
	}

	key := changeKey{
		state:     screen.State.String(),
		seqNo:     screen.Attempt.SeqNo,
		sf:        int(screen.SpreadingFactor),
		confirmed: screen.Confirmed,
		fixed:     screen.FixedDataRate,
		downlink:  screen.Downlink,
	}
	if md.published && key == md.last {
		return
	}
	md.last = key
	md.published = true

	payload, err := json.Marshal(md.newStatusMessage(screen))
	logger.PanicIfError(err)
	md.publish(md.topic, payload)
}

func (md *mqttDisplay) newStatusMessage(screen display.Screen) StatusMessage {
	return StatusMessage{
		Run:       md.run,
		TimeSec:   screen.Time.Seconds(),
		State:     screen.State.String(),
		Header:    screen.Header,
		SeqNo:     screen.Attempt.SeqNo,
		SF:        int(screen.SpreadingFactor),
		FreqMHz:   screen.Attempt.FrequencyMHz(),
		Confirmed: screen.Confirmed,
		Fixed:     screen.FixedDataRate,
		Label:     screen.Frame.Label,
		Percent:   screen.Frame.Percent,
		Downlink:  screen.Downlink,
	}
}

func clientID(run string) string {
	if len(run) > 8 {
		run = run[:8]
	}
	return "drt_" + run
}
