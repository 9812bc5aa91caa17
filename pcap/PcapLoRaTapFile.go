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
	"math"
	"os"
)

// LoRaTap version 0, see https://github.com/eriknl/LoRaTap
const (
	dltLoRaTap             = 270
	pcapLoRaTapHeaderSize  = 15
	loraTapBandwidth125kHz = 1
	loraTapSyncWordLoRaWan = 0x34
	loraTapRssiOffset      = 139
	loraTapSnrScale        = 4
)

type loraTapFile struct {
	fd *os.File
}

func newLoRaTapFile(filename string) (File, error) {
	fd, err := openFile(filename)
	if err != nil {
		return nil, err
	}

	pf := &loraTapFile{
		fd: fd,
	}

	if err = writeFileHeader(fd, dltLoRaTap); err != nil {
		_ = pf.Close()
		return nil, err
	}

	return pf, nil
}

// encodeRssi maps dBm onto the LoRaTap unsigned encoding (-139 + value).
func encodeRssi(rssi float32) uint8 {
	v := math.Round(float64(rssi)) + loraTapRssiOffset
	if v < 0 {
		v = 0
	} else if v > 255 {
		v = 255
	}
	return uint8(v)
}

// encodeSnr maps dB onto the LoRaTap signed quarter-dB encoding.
func encodeSnr(snr float32) uint8 {
	v := math.Round(float64(snr) * loraTapSnrScale)
	if v < math.MinInt8 {
		v = math.MinInt8
	} else if v > math.MaxInt8 {
		v = math.MaxInt8
	}
	return uint8(int8(v))
}

func (pf *loraTapFile) AppendFrame(frame Frame) error {
	var header [pcapFrameHeaderSize + pcapLoRaTapHeaderSize]byte
	putFrameHeader(header[:], frame.Timestamp, uint32(len(frame.Data))+pcapLoRaTapHeaderSize)

	// LoRaTap fields are big endian
	n := pcapFrameHeaderSize
	header[n] = 0 // version
	header[n+1] = 0
	binary.BigEndian.PutUint16(header[n+2:n+4], pcapLoRaTapHeaderSize)
	binary.BigEndian.PutUint32(header[n+4:n+8], frame.FrequencyHz)
	header[n+8] = loraTapBandwidth125kHz
	header[n+9] = frame.SpreadingFactor
	rssi := encodeRssi(frame.Rssi)
	header[n+10] = rssi // packet
	header[n+11] = rssi // max
	header[n+12] = rssi // current
	header[n+13] = encodeSnr(frame.Snr)
	header[n+14] = loraTapSyncWordLoRaWan

	if _, err := pf.fd.Write(header[:]); err != nil {
		return err
	}

	_, err := pf.fd.Write(frame.Data)
	return err
}

func (pf *loraTapFile) Sync() error {
	return pf.fd.Sync()
}

func (pf *loraTapFile) Close() error {
	return pf.fd.Close()
}
