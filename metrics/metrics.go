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

// Package metrics exports the tester's activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lora-drt/drt/logger"
	"github.com/lora-drt/drt/tester"
	"github.com/lora-drt/drt/types"
)

// Metrics holds all collectors. It implements tester.Observer.
type Metrics struct {
	registry *prometheus.Registry

	uplinksTotal     *prometheus.CounterVec // Uplinks sent (by sf)
	reschedulesTotal prometheus.Counter     // Sends postponed for the duty cycle
	rescheduleWait   prometheus.Histogram   // Wait of postponed sends
	violationsTotal  prometheus.Counter     // Send attempts while an operation was in flight
	downlinksTotal   *prometheus.CounterVec // Downlinks received (by window)
	acksTotal        prometheus.Counter     // Acknowledged uplinks
	transitionsTotal *prometheus.CounterVec // Cycle state transitions (by state)

	cycleState      prometheus.Gauge // Current cycle state
	spreadingFactor prometheus.Gauge // Currently selected spreading factor
	autoDataRate    prometheus.Gauge // 1 when cycling through the auto table
	confirmed       prometheus.Gauge // 1 when sending confirmed uplinks
}

var _ tester.Observer = (*Metrics)(nil)

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		uplinksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drt_uplinks_total",
				Help: "Total uplinks sent, by spreading factor",
			},
			[]string{"sf"},
		),
		reschedulesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "drt_reschedules_total",
			Help: "Total send attempts postponed until the duty cycle allowed them",
		}),
		rescheduleWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "drt_reschedule_wait_seconds",
			Help:    "Wait time of postponed send attempts",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50, 100, 200},
		}),
		violationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "drt_inflight_violations_total",
			Help: "Total send attempts dropped because an operation was still in flight",
		}),
		downlinksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drt_downlinks_total",
				Help: "Total downlinks received, by receive window",
			},
			[]string{"window"},
		),
		acksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "drt_acks_total",
			Help: "Total acknowledged confirmed uplinks",
		}),
		transitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drt_cycle_transitions_total",
				Help: "Total cycle state transitions, by new state",
			},
			[]string{"state"},
		),
		cycleState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "drt_cycle_state",
			Help: "Current cycle state (0=idle 1=waiting 2=tx 3=rx1 4=rx2 5=rxdone)",
		}),
		spreadingFactor: factory.NewGauge(prometheus.GaugeOpts{
			Name: "drt_spreading_factor",
			Help: "Currently selected spreading factor",
		}),
		autoDataRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "drt_auto_data_rate",
			Help: "1 when cycling through the automatic data rate table",
		}),
		confirmed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "drt_confirmed_uplinks",
			Help: "1 when sending confirmed uplinks",
		}),
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) OnTransition(tr tester.Transition) {
	m.transitionsTotal.WithLabelValues(tr.To.String()).Inc()
	m.cycleState.Set(float64(tr.To))
}

func (m *Metrics) OnUplink(attempt types.UplinkAttempt) {
	m.uplinksTotal.WithLabelValues(attempt.SpreadingFactor.String()).Inc()
	m.spreadingFactor.Set(float64(attempt.SpreadingFactor))
	m.confirmed.Set(boolToFloat(attempt.Confirmed))
}

func (m *Metrics) OnReschedule(_ types.UplinkAttempt, wait types.Tick) {
	m.reschedulesTotal.Inc()
	m.rescheduleWait.Observe(wait.Seconds())
}

func (m *Metrics) OnViolation() {
	m.violationsTotal.Inc()
}

func (m *Metrics) OnDownlink(rec types.DownlinkRecord) {
	m.downlinksTotal.WithLabelValues(rec.Window.String()).Inc()
	if rec.Acked {
		m.acksTotal.Inc()
	}
}

func (m *Metrics) OnDataRate(sf types.SpreadingFactor, auto bool) {
	m.spreadingFactor.Set(float64(sf))
	m.autoDataRate.Set(boolToFloat(auto))
}

func (m *Metrics) OnConfirmed(confirmed bool) {
	m.confirmed.Set(boolToFloat(confirmed))
}

// Serve exposes /metrics on address until ctx is done or the server fails.
func (m *Metrics) Serve(ctx context.Context, address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("metrics served on http://%s/metrics", address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrapf(err, "metrics server on %s", address)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	})
	return g.Wait()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
