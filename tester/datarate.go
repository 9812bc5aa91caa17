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

package tester

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/lora-drt/drt/types"
)

// DefaultAutoTable repeats SF7 between the slower rates to limit the waiting time caused by the duty cycle.
var DefaultAutoTable = []types.SpreadingFactor{
	types.SF7, types.SF8, types.SF9, types.SF7, types.SF12, types.SF7,
	types.SF7, types.SF11, types.SF7, types.SF10, types.SF7,
}

const fixedRateCount = int32(types.MaxSpreadingFactor-types.MinSpreadingFactor) + 1

// DataRateSelector cycles through spreading factors, either along the auto table or, in fixed mode, from SF7
// down to SF12 one user click at a time. Next and ToggleAuto must be called from the radio timeline; the
// getters are safe from any goroutine.
type DataRateSelector struct {
	table   []types.SpreadingFactor
	auto    atomic.Bool
	index   atomic.Int32
	current atomic.Uint32
}

func NewDataRateSelector(table []types.SpreadingFactor, auto bool) (*DataRateSelector, error) {
	if len(table) == 0 {
		return nil, errors.Errorf("empty data rate table")
	}
	for i, sf := range table {
		if !sf.Valid() {
			return nil, errors.Errorf("data rate table entry %d: invalid spreading factor %d", i, uint8(sf))
		}
	}

	s := &DataRateSelector{
		table: append([]types.SpreadingFactor(nil), table...),
	}
	s.auto.Store(auto)
	s.index.Store(-1)
	if auto {
		s.current.Store(uint32(s.table[0]))
	} else {
		s.current.Store(uint32(types.MinSpreadingFactor))
	}
	return s, nil
}

// Next advances to the next spreading factor and returns it.
func (s *DataRateSelector) Next() types.SpreadingFactor {
	var sf types.SpreadingFactor
	if s.auto.Load() {
		idx := (s.index.Load() + 1) % int32(len(s.table))
		s.index.Store(idx)
		sf = s.table[idx]
	} else {
		idx := (s.index.Load() + 1) % fixedRateCount
		s.index.Store(idx)
		sf = types.MinSpreadingFactor + types.SpreadingFactor(idx)
	}
	s.current.Store(uint32(sf))
	return sf
}

// ToggleAuto switches between auto and fixed mode and restarts at the first rate of the new mode.
func (s *DataRateSelector) ToggleAuto() types.SpreadingFactor {
	s.auto.Store(!s.auto.Load())
	s.index.Store(-1)
	return s.Next()
}

func (s *DataRateSelector) Current() types.SpreadingFactor {
	return types.SpreadingFactor(s.current.Load())
}

func (s *DataRateSelector) Auto() bool {
	return s.auto.Load()
}

func (s *DataRateSelector) Index() int {
	return int(s.index.Load())
}

// Table returns a copy of the auto table.
func (s *DataRateSelector) Table() []types.SpreadingFactor {
	return append([]types.SpreadingFactor(nil), s.table...)
}
