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

package sim

import (
	"container/heap"

	"github.com/lora-drt/drt/logger"
	"github.com/lora-drt/drt/types"
)

type job struct {
	Name      string
	Timestamp types.Tick
	fn        func()

	seq   uint64
	index int
}

type jobQueue []*job

func (jq jobQueue) Len() int {
	return len(jq)
}

// Less orders by time, then by insertion so equal times run first come first served.
func (jq jobQueue) Less(i, j int) bool {
	d := jq[i].Timestamp.Sub(jq[j].Timestamp)
	if d != 0 {
		return d < 0
	}
	return jq[i].seq < jq[j].seq
}

func (jq jobQueue) Swap(i, j int) {
	a, b := jq[i], jq[j]
	if a.index != i && b.index != j {
		logger.Panicf("wrong index")
	}

	jq[i], jq[j] = b, a             // swap the elements
	jq[i].index, jq[j].index = i, j // fix the indexes
}

func (jq *jobQueue) Push(x interface{}) {
	e := x.(*job)
	*jq = append(*jq, e)
	e.index = len(*jq) - 1
}

func (jq *jobQueue) Pop() (elem interface{}) {
	jqlen := len(*jq)
	e := (*jq)[jqlen-1]
	e.index = -1
	*jq = (*jq)[:jqlen-1]
	return e
}

type jobMgr struct {
	q   jobQueue
	seq uint64
}

func newJobMgr() *jobMgr {
	mgr := &jobMgr{
		q: jobQueue{},
	}

	heap.Init(&mgr.q)
	return mgr
}

// Add schedules fn at timestamp.
func (jm *jobMgr) Add(name string, timestamp types.Tick, fn func()) *job {
	logger.AssertNotNil(fn)
	jm.seq++
	j := &job{
		Name:      name,
		Timestamp: timestamp,
		fn:        fn,
		seq:       jm.seq,
	}
	heap.Push(&jm.q, j)
	return j
}

// Cancel removes j if it is still queued. A nil job is ignored.
func (jm *jobMgr) Cancel(j *job) {
	if j == nil || j.index < 0 {
		return
	}
	logger.AssertTrue(jm.q[j.index] == j)
	heap.Remove(&jm.q, j.index)
}

func (jm *jobMgr) Pending(j *job) bool {
	return j != nil && j.index >= 0
}

func (jm *jobMgr) Len() int {
	return len(jm.q)
}

func (jm *jobMgr) NextJob() *job {
	if len(jm.q) == 0 {
		return nil
	}

	return jm.q[0]
}

// PopDue removes and returns the first job due at or before now, or nil.
func (jm *jobMgr) PopDue(now types.Tick) *job {
	next := jm.NextJob()
	if next == nil || next.Timestamp.After(now) {
		return nil
	}
	return heap.Pop(&jm.q).(*job)
}
