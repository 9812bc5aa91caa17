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

package pcap

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPcapFile(t *testing.T) {
	pcapFilename := filepath.Join(t.TempDir(), "test.pcap")
	pcap, err := NewFile(pcapFilename, FrameTypeLoRaWan, false)
	require.NoError(t, err)

	defer func() {
		_ = pcap.Close()
	}()

	require.NoError(t, pcap.Sync())
	assert.Equal(t, pcapFileHeaderSize, getFileSize(t, pcapFilename))

	for i := 0; i < 10; i++ {
		frame := Frame{
			Timestamp:       uint64(i) * 1000,
			Data:            []byte{0x40, 0x00, 0x10, 0x01, 0x26},
			FrequencyHz:     868100000,
			SpreadingFactor: 7,
			Rssi:            -60.0,
		}
		require.NoError(t, pcap.AppendFrame(frame))
		require.NoError(t, pcap.Sync())
		assert.Equal(t, pcapFileHeaderSize+(pcapFrameHeaderSize+5)*(i+1), getFileSize(t, pcapFilename))
	}

	data, err := os.ReadFile(pcapFilename)
	require.NoError(t, err)
	assert.Equal(t, uint32(dltUser0), binary.LittleEndian.Uint32(data[20:24]))
}

func TestPcapLoRaTapFile(t *testing.T) {
	pcapFilename := filepath.Join(t.TempDir(), "test_tap.pcap")
	pcap, err := NewFile(pcapFilename, FrameTypeLoRaTap, false)
	require.NoError(t, err)

	frame := Frame{
		Timestamp:       1500000,
		Data:            []byte{0x40, 0x00, 0x10, 0x01, 0x26},
		FrequencyHz:     868300000,
		SpreadingFactor: 9,
		Rssi:            -110.0,
		Snr:             -2.25,
	}
	require.NoError(t, pcap.AppendFrame(frame))
	require.NoError(t, pcap.Close())

	data, err := os.ReadFile(pcapFilename)
	require.NoError(t, err)
	require.Len(t, data, pcapFileHeaderSize+pcapFrameHeaderSize+pcapLoRaTapHeaderSize+5)
	assert.Equal(t, uint32(dltLoRaTap), binary.LittleEndian.Uint32(data[20:24]))

	rec := data[pcapFileHeaderSize:]
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(rec[0:4]))
	assert.Equal(t, uint32(500000), binary.LittleEndian.Uint32(rec[4:8]))
	assert.Equal(t, uint32(pcapLoRaTapHeaderSize+5), binary.LittleEndian.Uint32(rec[8:12]))

	tap := rec[pcapFrameHeaderSize:]
	assert.Equal(t, uint16(pcapLoRaTapHeaderSize), binary.BigEndian.Uint16(tap[2:4]))
	assert.Equal(t, uint32(868300000), binary.BigEndian.Uint32(tap[4:8]))
	assert.Equal(t, uint8(9), tap[9])
	assert.Equal(t, uint8(29), tap[10])
	assert.Equal(t, int8(-9), int8(tap[13]))
	assert.Equal(t, uint8(0x34), tap[14])
	assert.Equal(t, frame.Data, tap[pcapLoRaTapHeaderSize:])
}

func TestPcapFileWithTimeRefFrame(t *testing.T) {
	pcapFilename := filepath.Join(t.TempDir(), "test_timerefframe.pcap")
	pcap, err := NewFile(pcapFilename, FrameTypeLoRaWan, true)
	require.NoError(t, err)

	defer func() {
		_ = pcap.Close()
	}()

	require.NoError(t, pcap.Sync())
	assert.Equal(t, pcapFileHeaderSize+pcapFrameHeaderSize+len(timeReferenceFrameData), getFileSize(t, pcapFilename))
}

func TestParseFrameTypeStr(t *testing.T) {
	assert.Equal(t, FrameTypeOff, ParseFrameTypeStr("off"))
	assert.Equal(t, FrameTypeOff, ParseFrameTypeStr(""))
	assert.Equal(t, FrameTypeLoRaWan, ParseFrameTypeStr("lorawan"))
	assert.Equal(t, FrameTypeLoRaTap, ParseFrameTypeStr("loratap"))
	assert.Equal(t, FrameTypeUnknown, ParseFrameTypeStr("wpan"))

	_, err := NewFile(filepath.Join(t.TempDir(), "x.pcap"), FrameTypeOff, false)
	assert.Error(t, err)
}

func TestEncodeRssiSnr(t *testing.T) {
	assert.Equal(t, uint8(0), encodeRssi(-200))
	assert.Equal(t, uint8(139), encodeRssi(0))
	assert.Equal(t, int8(10), int8(encodeSnr(2.5)))
	assert.Equal(t, int8(-128), int8(encodeSnr(-100)))
}

func getFileSize(t *testing.T, fp string) int {
	info, err := os.Stat(fp)
	if err != nil {
		t.Fatal(err)
	}

	return int(info.Size())
}
