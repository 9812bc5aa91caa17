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

package metrics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lora-drt/drt/tester"
	"github.com/lora-drt/drt/types"
)

func TestMetricsObserver(t *testing.T) {
	m := NewMetrics()

	m.OnUplink(types.UplinkAttempt{SpreadingFactor: types.SF9, Confirmed: true})
	m.OnUplink(types.UplinkAttempt{SpreadingFactor: types.SF9})
	m.OnUplink(types.UplinkAttempt{SpreadingFactor: types.SF12})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.uplinksTotal.WithLabelValues("SF9")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uplinksTotal.WithLabelValues("SF12")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.spreadingFactor))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.confirmed))

	m.OnReschedule(types.UplinkAttempt{}, 3*types.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reschedulesTotal))

	m.OnViolation()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.violationsTotal))

	m.OnDownlink(types.DownlinkRecord{Window: types.RxWindow1, Acked: true})
	m.OnDownlink(types.DownlinkRecord{Window: types.RxWindow2, Payload: []byte{1}})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.downlinksTotal.WithLabelValues("rx1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.downlinksTotal.WithLabelValues("rx2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.acksTotal))

	m.OnTransition(tester.Transition{From: types.Transmitting, To: types.AwaitingRx1})
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cycleState))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("rx1")))

	m.OnDataRate(types.SF8, false)
	m.OnConfirmed(true)
	assert.Equal(t, 8.0, testutil.ToFloat64(m.spreadingFactor))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.autoDataRate))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.confirmed))
}

func TestMetricsRegistry(t *testing.T) {
	// independent registries, no duplicate registration
	a, b := NewMetrics(), NewMetrics()
	a.OnViolation()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.violationsTotal))

	err := testutil.GatherAndCompare(a.Registry(), strings.NewReader(`
# HELP drt_inflight_violations_total Total send attempts dropped because an operation was still in flight
# TYPE drt_inflight_violations_total counter
drt_inflight_violations_total 1
`), "drt_inflight_violations_total")
	assert.NoError(t, err)
}

func TestServe(t *testing.T) {
	m := NewMetrics()

	err := m.Serve(context.Background(), "127.0.0.1:99999")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.Serve(ctx, "127.0.0.1:0")
	}()
	cancel()
	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
