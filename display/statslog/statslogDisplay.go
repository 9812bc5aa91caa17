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

package display_statslog

import (
	"fmt"
	"os"
	"sync"

	"github.com/lora-drt/drt/display"
	"github.com/lora-drt/drt/logger"
	"github.com/lora-drt/drt/types"
)

type statslogDisplay struct {
	sync.Mutex
	logFile       *os.File
	logFileName   string
	isFileEnabled bool
	last          display.Screen
	entry         cycleStats
	oldEntry      cycleStats
	hasEntry      bool
}

// cycleStats is the part of a screen that makes a new log entry when it changes.
type cycleStats struct {
	state     types.CycleState
	seqNo     uint32
	sf        types.SpreadingFactor
	freqHz    uint32
	confirmed bool
	fixed     bool
	downlink  string
}

// NewStatslogDisplay creates a new Display that writes a CSV log of cycle state changes to file.
func NewStatslogDisplay(fileName string) display.Display {
	return &statslogDisplay{
		logFileName:   fileName,
		isFileEnabled: true,
	}
}

func (sd *statslogDisplay) Init() {
	sd.Lock()
	defer sd.Unlock()
	sd.createLogFile()
}

func (sd *statslogDisplay) Run() {
	// no goroutine
}

func (sd *statslogDisplay) Stop() {
	sd.Lock()
	defer sd.Unlock()
	if sd.hasEntry {
		// final entry with final status
		sd.writeLogEntry(sd.last)
	}
	sd.close()
	logger.Debugf("statslogDisplay stopped and CSV log file closed.")
}

func (sd *statslogDisplay) SetSpeed(float64) {
}

func (sd *statslogDisplay) Show(screen display.Screen) {
	sd.Lock()
	defer sd.Unlock()

	sd.last = screen
	sd.entry = calcStats(screen)
	if !sd.hasEntry || sd.entry != sd.oldEntry {
		sd.writeLogEntry(screen)
		sd.oldEntry = sd.entry
		sd.hasEntry = true
	}
}

func calcStats(screen display.Screen) cycleStats {
	return cycleStats{
		state:     screen.State,
		seqNo:     screen.Attempt.SeqNo,
		sf:        screen.SpreadingFactor,
		freqHz:    screen.Attempt.FrequencyHz,
		confirmed: screen.Confirmed,
		fixed:     screen.FixedDataRate,
		downlink:  screen.Downlink,
	}
}

func (sd *statslogDisplay) createLogFile() {
	logger.AssertNil(sd.logFile)

	var err error
	_ = os.Remove(sd.logFileName)

	sd.logFile, err = os.OpenFile(sd.logFileName, os.O_CREATE|os.O_WRONLY, 0664)
	if err != nil {
		logger.Errorf("creating new stats log file %s failed: %+v", sd.logFileName, err)
		sd.isFileEnabled = false
		return
	}
	sd.writeLogFileHeader()
	logger.Debugf("Stats log file '%s' created.", sd.logFileName)
}

func (sd *statslogDisplay) writeLogFileHeader() {
	// RFC 4180 CSV file: no leading or trailing spaces in header field names
	header := "timeSec,state,seqNo,sf,freqMHz,confirmed,fixed,percent,downlink"
	_ = sd.writeToLogFile(header)
}

func (sd *statslogDisplay) writeLogEntry(screen display.Screen) {
	entry := fmt.Sprintf("%12.6f,%6s,%6d,%4s,%6.1f,%d,%d,%3d,%s", screen.Time.Seconds(), screen.State,
		screen.Attempt.SeqNo, screen.SpreadingFactor, screen.Attempt.FrequencyMHz(), btoi(screen.Confirmed),
		btoi(screen.FixedDataRate), screen.Frame.Percent, screen.Downlink)
	_ = sd.writeToLogFile(entry)
	logger.Tracef("statslog entry added: %s", entry)
}

func (sd *statslogDisplay) writeToLogFile(line string) error {
	if !sd.isFileEnabled {
		return nil
	}
	_, err := sd.logFile.WriteString(line + "\n")
	if err != nil {
		sd.close()
		sd.isFileEnabled = false
		logger.Errorf("couldn't write to stats log file (%s), closing it", sd.logFileName)
	}
	return err
}

func (sd *statslogDisplay) close() {
	if sd.logFile != nil {
		_ = sd.logFile.Close()
		sd.logFile = nil
		sd.isFileEnabled = false
	}
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
