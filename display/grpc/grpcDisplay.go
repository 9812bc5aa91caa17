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

package display_grpc

import (
	"net"
	"sync"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lora-drt/drt/display"
	"github.com/lora-drt/drt/input"
	"github.com/lora-drt/drt/logger"
)

type grpcDisplay struct {
	sync.Mutex
	server   *grpcServer
	last     *structpb.Struct
	speed    float64
	onAction func(a input.Action)
}

// NewGrpcDisplay creates a new Display that streams status screens to gRPC clients on the given address.
// Actions received from clients are delivered to onAction.
func NewGrpcDisplay(address string, onAction func(a input.Action)) display.Display {
	gd := &grpcDisplay{
		speed:    1,
		onAction: onAction,
	}
	gd.server = newGrpcServer(gd, address)
	return gd
}

func (gd *grpcDisplay) Init() {
}

// Run serves gRPC clients on the configured address until Stop is called.
func (gd *grpcDisplay) Run() {
	if err := gd.server.Run(); err != nil {
		logger.Errorf("gRPC server: %v", err)
	}
}

// Serve serves gRPC clients on an existing listener until Stop is called.
func (gd *grpcDisplay) Serve(lis net.Listener) error {
	return gd.server.Serve(lis)
}

func (gd *grpcDisplay) Stop() {
	gd.server.stop()
	logger.Debugf("gRPC display stopped")
}

func (gd *grpcDisplay) Show(screen display.Screen) {
	msg := gd.screenToStruct(screen)
	gd.Lock()
	gd.last = msg
	gd.Unlock()
	gd.server.SendEvent(msg)
}

func (gd *grpcDisplay) SetSpeed(speed float64) {
	gd.Lock()
	gd.speed = speed
	gd.Unlock()
}

// lastScreen returns the most recent screen, or nil if none was shown yet.
func (gd *grpcDisplay) lastScreen() *structpb.Struct {
	gd.Lock()
	defer gd.Unlock()
	return gd.last
}

func (gd *grpcDisplay) screenToStruct(screen display.Screen) *structpb.Struct {
	gd.Lock()
	speed := gd.speed
	gd.Unlock()

	msg, err := structpb.NewStruct(map[string]interface{}{
		"time_us":   int64(screen.Time),
		"state":     screen.State.String(),
		"header":    screen.Header,
		"label":     screen.Frame.Label,
		"percent":   screen.Frame.Percent,
		"downlink":  screen.Downlink,
		"seq_no":    screen.Attempt.SeqNo,
		"sf":        int(screen.SpreadingFactor),
		"freq_hz":   screen.Attempt.FrequencyHz,
		"confirmed": screen.Confirmed,
		"fixed":     screen.FixedDataRate,
		"speed":     speed,
	})
	logger.PanicIfError(err)
	return msg
}
