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
	"context"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lora-drt/drt/input"
	"github.com/lora-drt/drt/logger"
)

const streamBufferSize = 16

type grpcServer struct {
	sync.Mutex
	disp           *grpcDisplay
	server         *grpc.Server
	address        string
	watchStreams   map[*grpcStream]struct{}
	heartbeatEvery time.Duration
}

func (gs *grpcServer) Watch(req *structpb.Struct, stream StatusService_WatchServer) error {
	var err error
	contextDone := stream.Context().Done()
	heartbeatEvent, _ := structpb.NewStruct(map[string]interface{}{"heartbeat": true})

	gstream := newGrpcStream(stream)
	logger.Debugf("New gRPC watch request received.")

	gs.Lock()
	gs.watchStreams[gstream] = struct{}{}
	gs.Unlock()
	defer gs.disposeStream(gstream)

	// a new client first sees the current screen
	if last := gs.disp.lastScreen(); last != nil {
		if err = stream.Send(last); err != nil {
			goto exit
		}
	}

	for {
		heartbeat := time.NewTimer(gs.heartbeatEvery)
		select {
		case msg := <-gstream.events:
			heartbeat.Stop()
			err = stream.Send(msg)
		case <-heartbeat.C:
			err = stream.Send(heartbeatEvent)
		case <-contextDone:
			heartbeat.Stop()
			err = stream.Context().Err()
		case <-gstream.done:
			heartbeat.Stop()
			goto exit
		}
		if err != nil {
			goto exit
		}
	}

exit:
	logger.Debugf("Watch stream exit: %v", err)
	return err
}

func (gs *grpcServer) Action(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := req.GetFields()["action"].GetStringValue()
	a, err := input.ParseAction(name)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	if gs.disp.onAction != nil {
		gs.disp.onAction(a)
	}
	return structpb.NewStruct(map[string]interface{}{"action": a.String()})
}

func (gs *grpcServer) Run() error {
	lis, err := net.Listen("tcp", gs.address)
	if err != nil {
		return err
	}
	return gs.Serve(lis)
}

func (gs *grpcServer) Serve(lis net.Listener) error {
	logger.Infof("gRPC status server serving on %s ...", lis.Addr())
	err := gs.server.Serve(lis)
	if err == grpc.ErrServerStopped {
		return nil
	}
	return err
}

// SendEvent queues msg for every watching client. A client that does not keep up misses screens.
func (gs *grpcServer) SendEvent(msg *structpb.Struct) {
	gs.Lock()
	defer gs.Unlock()
	for stream := range gs.watchStreams {
		stream.offer(msg)
	}
}

func (gs *grpcServer) stop() {
	gs.Lock()
	for stream := range gs.watchStreams {
		stream.close()
	}
	gs.Unlock()
	gs.server.Stop()
}

func (gs *grpcServer) disposeStream(stream *grpcStream) {
	gs.Lock()
	delete(gs.watchStreams, stream)
	gs.Unlock()
	stream.close()
}

func (gs *grpcServer) numStreams() int {
	gs.Lock()
	defer gs.Unlock()
	return len(gs.watchStreams)
}

func newGrpcServer(disp *grpcDisplay, address string) *grpcServer {
	server := grpc.NewServer(grpc.ReadBufferSize(1024*8), grpc.WriteBufferSize(1024*64))
	gs := &grpcServer{
		disp:           disp,
		server:         server,
		address:        address,
		watchStreams:   map[*grpcStream]struct{}{},
		heartbeatEvery: time.Second,
	}
	RegisterStatusServiceServer(server, gs)
	return gs
}
