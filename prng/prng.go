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

// Package prng provides the seeded random sources of the link simulation. A fixed root seed makes a whole run
// reproducible.
package prng

import (
	"math/rand"
	"sync"
	"time"
)

var (
	lock                 sync.Mutex
	linkRandGenerator    *rand.Rand
	payloadRandGenerator *rand.Rand
	channelRandGenerator *rand.Rand
)

func init() {
	Init(0)
}

// Init initializes the prng package, either with a fixed PRNG seed (rootSeed != 0) or a 'random' time-based PRNG
// seed (if rootSeed == 0).
func Init(rootSeed int64) {
	lock.Lock()
	defer lock.Unlock()

	if rootSeed == 0 {
		rootSeed = time.Now().UnixNano()
	}
	root := rand.New(rand.NewSource(rootSeed))

	linkRandGenerator = rand.New(rand.NewSource(rootSeed + root.Int63n(1e10)))
	payloadRandGenerator = rand.New(rand.NewSource(rootSeed + root.Int63n(1e10)))
	channelRandGenerator = rand.New(rand.NewSource(rootSeed + root.Int63n(1e10)))
}

// NewUnitRandom generates a new random unit [0, 1) float, used as a random probability for link events.
func NewUnitRandom() float64 {
	lock.Lock()
	defer lock.Unlock()
	return linkRandGenerator.Float64()
}

// NewNormRandom draws from the standard normal distribution, used for fading.
func NewNormRandom() float64 {
	lock.Lock()
	defer lock.Unlock()
	return linkRandGenerator.NormFloat64()
}

// NewPayload generates a random downlink payload of length n.
func NewPayload(n int) []byte {
	lock.Lock()
	defer lock.Unlock()
	buf := make([]byte, n)
	_, _ = payloadRandGenerator.Read(buf)
	return buf
}

// NewChannelIndex picks a random channel index in [0, n).
func NewChannelIndex(n int) int {
	lock.Lock()
	defer lock.Unlock()
	return channelRandGenerator.Intn(n)
}
