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
	"encoding/hex"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() *Session {
	s := &Session{DevAddr: 0x26011000}
	for i := range s.NwkSKey {
		s.NwkSKey[i] = byte(i)
		s.AppSKey[i] = byte(i)
	}
	return s
}

func TestEncodeUplink(t *testing.T) {
	s := testSession()
	phy, err := s.Encode(DataFrame{
		MType:   UnconfirmedDataUp,
		DevAddr: s.DevAddr,
		FCnt:    0,
		FPort:   7,
		Payload: []byte{0x07},
	})
	require.NoError(t, err)
	assert.Equal(t, "4000100126000000075e3ab641e1", hex.EncodeToString(phy))
}

func TestEncodeDownlinkAck(t *testing.T) {
	s := testSession()
	phy, err := s.Encode(DataFrame{
		MType:   UnconfirmedDataDown,
		DevAddr: s.DevAddr,
		Ack:     true,
		FCnt:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, "6000100126200100528dd0fc", hex.EncodeToString(phy))

	f, err := s.Decode(phy, 0)
	require.NoError(t, err)
	assert.True(t, f.Ack)
	assert.Equal(t, UnconfirmedDataDown, f.MType)
	assert.Equal(t, uint32(1), f.FCnt)
	assert.Empty(t, f.Payload)
}

func TestDecodePayload(t *testing.T) {
	s := testSession()
	payload := []byte("a downlink longer than one AES block")
	phy, err := s.Encode(DataFrame{
		MType:   ConfirmedDataDown,
		DevAddr: s.DevAddr,
		FCnt:    0x10005,
		FPort:   12,
		Payload: payload,
	})
	require.NoError(t, err)
	assert.NotContains(t, string(phy), "downlink")

	f, err := s.Decode(phy, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x10005), f.FCnt)
	assert.Equal(t, uint8(12), f.FPort)
	assert.Equal(t, payload, f.Payload)
	assert.False(t, f.MType.IsUplink())

	// wrong frame counter rollover breaks the MIC
	_, err = s.Decode(phy, 0)
	assert.True(t, errors.Is(err, ErrMicMismatch))
}

func TestDecodeErrors(t *testing.T) {
	s := testSession()
	_, err := s.Decode([]byte{0x40, 0x01}, 0)
	assert.True(t, errors.Is(err, ErrFrameTooShort))

	phy, err := hex.DecodeString("4000100126000000075e3ab641e1")
	require.NoError(t, err)
	phy[9] ^= 0x01
	_, err = s.Decode(phy, 0)
	assert.True(t, errors.Is(err, ErrMicMismatch))
}
