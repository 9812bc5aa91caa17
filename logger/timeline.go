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

package logger

// TimelineLogger tags every line with the name of the goroutine timeline that produced it.
type TimelineLogger struct {
	name string
}

func NewTimelineLogger(name string) *TimelineLogger {
	return &TimelineLogger{name: name}
}

func (tl *TimelineLogger) Name() string {
	return tl.name
}

func (tl *TimelineLogger) logf(level Level, format string, args []interface{}) {
	if level > GetLevel() {
		return
	}
	logAlways(level, "["+tl.name+"] "+getMessage(format, args))
}

func (tl *TimelineLogger) Tracef(format string, args ...interface{}) {
	tl.logf(TraceLevel, format, args)
}

func (tl *TimelineLogger) Debugf(format string, args ...interface{}) {
	tl.logf(DebugLevel, format, args)
}

func (tl *TimelineLogger) Infof(format string, args ...interface{}) {
	tl.logf(InfoLevel, format, args)
}

func (tl *TimelineLogger) Warnf(format string, args ...interface{}) {
	tl.logf(WarnLevel, format, args)
}

func (tl *TimelineLogger) Errorf(format string, args ...interface{}) {
	tl.logf(ErrorLevel, format, args)
}
