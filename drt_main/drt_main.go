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

// Package drt_main wires the data rate tester together: the simulated MAC on the radio timeline, the tester's
// poller and the display sinks on the display timeline, and the optional console, metrics and capture.
package drt_main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/lora-drt/drt/cli"
	"github.com/lora-drt/drt/display"
	displayGrpc "github.com/lora-drt/drt/display/grpc"
	displayMqtt "github.com/lora-drt/drt/display/mqtt"
	displayMulti "github.com/lora-drt/drt/display/multi"
	displayStatslog "github.com/lora-drt/drt/display/statslog"
	displayTui "github.com/lora-drt/drt/display/tui"
	"github.com/lora-drt/drt/input"
	"github.com/lora-drt/drt/logger"
	"github.com/lora-drt/drt/metrics"
	"github.com/lora-drt/drt/pcap"
	"github.com/lora-drt/drt/prng"
	"github.com/lora-drt/drt/progctx"
	"github.com/lora-drt/drt/sim"
	"github.com/lora-drt/drt/tester"
)

const (
	UiTui  = "tui"
	UiCli  = "cli"
	UiNone = "none"

	tuiLogFile = "drt.log"
)

type MainArgs struct {
	ConfigFile  string
	LogLevel    string
	Ui          string
	Speed       string
	Seed        int64
	PcapFile    string
	PcapType    string
	StatsLog    string
	GrpcAddr    string
	MetricsAddr string
	MqttBroker  string
	MqttTopic   string
	Confirmed   bool
	Fixed       bool
}

var (
	args MainArgs
)

func parseArgs() {
	flag.StringVar(&args.ConfigFile, "config", "", "YAML file with the simulated link and timing setup")
	flag.StringVar(&args.LogLevel, "log", "info", "set logging level: trace, debug, info, note, warn, error, off.")
	flag.StringVar(&args.Ui, "ui", UiTui, "user interface: tui, cli or none")
	flag.StringVar(&args.Speed, "speed", "", "set simulating speed, a number or \"max\"")
	flag.Int64Var(&args.Seed, "seed", 0, "random seed (0: seed from the clock or the config file)")
	flag.StringVar(&args.PcapFile, "pcap", "", "write uplinks and downlinks to this PCAP file")
	flag.StringVar(&args.PcapType, "pcap-type", "loratap", "PCAP frame type: lorawan or loratap")
	flag.StringVar(&args.StatsLog, "stats-log", "", "write a CSV line per cycle state change to this file")
	flag.StringVar(&args.GrpcAddr, "grpc", "", "serve the status stream over gRPC on this address")
	flag.StringVar(&args.MetricsAddr, "metrics", "", "serve Prometheus metrics on this address")
	flag.StringVar(&args.MqttBroker, "mqtt", "", "publish status changes to this MQTT broker, e.g. tcp://localhost:1883")
	flag.StringVar(&args.MqttTopic, "mqtt-topic", displayMqtt.DefaultTopic, "MQTT topic of the status messages")
	flag.BoolVar(&args.Confirmed, "confirmed", false, "start with confirmed uplinks")
	flag.BoolVar(&args.Fixed, "fixed", false, "start with fixed data rates instead of the automatic table")

	flag.Parse()
}

func Main(ctx *progctx.ProgCtx, cliOptions *cli.CliOptions) {
	parseArgs()
	level, err := logger.ParseLevelString(args.LogLevel)
	logger.FatalIfError(err)
	logger.SetLevel(level)

	switch args.Ui {
	case UiTui, UiCli, UiNone:
	default:
		logger.Fatalf("invalid ui: %s", args.Ui)
	}

	rc, err := createRunConfig()
	logger.FatalIfError(err)

	if args.Ui == UiTui {
		// the terminal belongs to the status screen
		logger.SetLogToTerminal(false)
		logger.SetOutput([]string{tuiLogFile})
		rc.Tester.Countdown = false
	}

	handleSignals(ctx)

	prng.Init(rc.Seed)
	runID := uuid.New().String()
	logger.Infof("run %s, random seed %d", runID, rc.Seed)

	mac := sim.NewMac(rc.Mac)
	logger.SetTickSource(mac.Now)
	if args.PcapFile != "" {
		pf, err := pcap.NewFile(args.PcapFile, pcap.ParseFrameTypeStr(args.PcapType), true)
		logger.FatalIfError(err)
		mac.SetPcap(pf)
	}

	var observer tester.Observer = tester.NopObserver{}
	if args.MetricsAddr != "" {
		m := metrics.NewMetrics()
		observer = m
		ctx.Go("metrics", func() {
			if err := m.Serve(ctx, args.MetricsAddr); err != nil {
				logger.Errorf("%v", err)
			}
		})
	}

	tst, err := tester.New(mac, rc.Tester, observer)
	logger.FatalIfError(err)

	onAction := newActionPoster(ctx, mac, tst)

	disp := displayMulti.NewMultiDisplay()
	if args.Ui == UiTui {
		tui := displayTui.NewTuiDisplay(onAction, func() {
			ctx.Cancel("tui exit")
		})
		disp.AddDisplay(tui)
		ctx.Defer(tui.Stop)
	}
	if args.GrpcAddr != "" {
		disp.AddDisplay(displayGrpc.NewGrpcDisplay(args.GrpcAddr, onAction))
	}
	if args.StatsLog != "" {
		disp.AddDisplay(displayStatslog.NewStatslogDisplay(args.StatsLog))
	}
	if args.MqttBroker != "" {
		disp.AddDisplay(displayMqtt.NewMqttDisplay(args.MqttBroker, args.MqttTopic, runID))
	}
	disp.Init()
	presenter := display.NewPresenter(tst, disp, rc.Progress)

	// the first uplink is sent from the radio timeline, like every other
	mac.PostAsync(false, tst.Start)
	go mac.Run(ctx)
	go runDisplayTimeline(ctx, tst, presenter, disp, mac, rc.DisplayInterval)

	if args.Ui == UiCli {
		ctx.Defer(func() {
			_ = os.Stdin.Close()
		})
		logger.SetStdoutCallback(cli.Cli)
		rt := cli.NewCmdRunner(ctx, mac, tst)
		go func() {
			err := cli.Cli.Run(rt, cliOptions)
			ctx.Cancel(errors.Wrapf(err, "console exit"))
		}()
	}

	if args.Ui == UiTui {
		disp.Run() // the terminal UI runs in the main goroutine
	} else {
		go disp.Run()
	}

	<-ctx.Done()
	logger.Debugf("waiting for drt to stop gracefully ...")
	ctx.Wait()
	disp.Stop()
	st := mac.Stats()
	logger.Infof("transmissions %d, uplinks lost %d, downlinks %d (lost %d, missed %d)", st.Transmissions,
		st.UplinksLost, st.Downlinks, st.DownlinksLost, st.DownlinksMissed)
	// the radio timeline has ended, so the MAC may be read from here
	en := mac.Energy()
	logger.Infof("radio energy %.3f mJ (tx %.3f, rx %.3f, sleep %.3f)", en.Total(), en.Tx, en.Rx, en.Sleep)
}

// runDisplayTimeline polls the tester and renders the status screen until ctx is done.
func runDisplayTimeline(ctx *progctx.ProgCtx, tst *tester.Tester, presenter *display.Presenter,
	disp display.Display, mac *sim.Mac, interval time.Duration) {
	ctx.WaitAdd("display", 1)
	defer ctx.WaitDone("display")
	defer logger.Debugf("display timeline exit.")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	speed := -1.0
	for {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}

		if s := mac.Speed(); s != speed {
			speed = s
			disp.SetSpeed(s)
		}
		tst.Poll()
		presenter.Tick()
	}
}

// newActionPoster returns the handler the display sinks use to hand user input to the radio timeline. An action is
// never dropped, so posting blocks while the task queue is full.
func newActionPoster(ctx context.Context, mac *sim.Mac, tst *tester.Tester) func(a input.Action) {
	return func(a input.Action) {
		if ctx.Err() != nil {
			return
		}
		mac.PostAsync(false, func() {
			tst.HandleAction(a)
		})
	}
}

func createRunConfig() (*RunConfig, error) {
	rc := DefaultRunConfig()
	if args.ConfigFile != "" {
		cfgFile, err := LoadConfigFile(args.ConfigFile)
		if err != nil {
			return nil, err
		}
		if err = cfgFile.Apply(rc); err != nil {
			return nil, errors.Wrapf(err, "config file %s", args.ConfigFile)
		}
	}

	if args.Speed != "" {
		speed, err := parseSpeed(args.Speed)
		if err != nil {
			return nil, err
		}
		rc.Mac.Speed = speed
	}
	if args.Seed != 0 {
		rc.Seed = args.Seed
	}
	if rc.Seed == 0 {
		rc.Seed = time.Now().UnixNano()
	}
	if args.Confirmed {
		rc.Tester.Confirmed = true
	}
	if args.Fixed {
		rc.Tester.AutoDataRate = false
	}
	return rc, nil
}

func parseSpeed(s string) (float64, error) {
	s = strings.ToLower(s)
	if s == "max" {
		return sim.MaxSimulateSpeed, nil
	}
	speed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid speed %q", s)
	}
	if speed < 0 {
		return 0, errors.Errorf("invalid speed %q", s)
	}
	return speed, nil
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	signal.Ignore(syscall.SIGALRM)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")

		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return
			}
		}
	}()
}
