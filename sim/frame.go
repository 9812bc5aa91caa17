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
	"crypto/aes"
	"crypto/subtle"
	"encoding/binary"
	"math"

	"github.com/jacobsa/crypto/cmac"
	"github.com/pkg/errors"
)

// MType is the LoRaWAN message type in the MHDR.
type MType uint8

const (
	UnconfirmedDataUp   MType = 0x40
	UnconfirmedDataDown MType = 0x60
	ConfirmedDataUp     MType = 0x80
	ConfirmedDataDown   MType = 0xA0
)

const (
	fctrlAck   = 0x20
	mhdrMask   = 0xE0
	micSize    = 4
	fhdrSize   = 7
	minPhySize = 1 + fhdrSize + micSize

	dirUplink   = 0
	dirDownlink = 1
)

var (
	ErrFrameTooShort = errors.New("frame too short")
	ErrMicMismatch   = errors.New("MIC mismatch")
	ErrPayloadTooBig = errors.New("payload too big")
)

// IsUplink reports whether m is sent by the end device.
func (m MType) IsUplink() bool {
	return m == UnconfirmedDataUp || m == ConfirmedDataUp
}

func (m MType) dir() uint8 {
	if m.IsUplink() {
		return dirUplink
	}
	return dirDownlink
}

// Session holds the ABP session of the simulated end device.
type Session struct {
	DevAddr uint32
	NwkSKey [16]byte
	AppSKey [16]byte
}

// DataFrame is a decoded LoRaWAN data message without FOpts.
type DataFrame struct {
	MType   MType
	DevAddr uint32
	Ack     bool
	FCnt    uint32
	FPort   uint8
	Payload []byte // plaintext FRMPayload
}

// Encode builds the PHYPayload: MHDR | DevAddr | FCtrl | FCnt | FPort | FRMPayload | MIC.
func (s *Session) Encode(f DataFrame) ([]byte, error) {
	buf := make([]byte, 0, minPhySize+1+len(f.Payload))
	buf = append(buf, byte(f.MType))
	buf = binary.LittleEndian.AppendUint32(buf, f.DevAddr)
	var fctrl byte
	if f.Ack {
		fctrl |= fctrlAck
	}
	buf = append(buf, fctrl)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(f.FCnt))
	if len(f.Payload) > 0 || f.FPort > 0 {
		buf = append(buf, f.FPort)
		enc, err := s.cryptFRMPayload(f.MType.dir(), f.DevAddr, f.FCnt, f.FPort, f.Payload)
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}

	mic := s.calcMessageMIC(buf, f.MType.dir(), f.DevAddr, f.FCnt)
	return append(buf, mic[:]...), nil
}

// Decode verifies the MIC of phy and decrypts its FRMPayload. fcntHigh supplies the upper 16 bits of the frame
// counter, which are not transmitted.
func (s *Session) Decode(phy []byte, fcntHigh uint32) (DataFrame, error) {
	var f DataFrame
	if len(phy) < minPhySize {
		return f, errors.Wrapf(ErrFrameTooShort, "%d bytes", len(phy))
	}
	f.MType = MType(phy[0] & mhdrMask)
	f.DevAddr = binary.LittleEndian.Uint32(phy[1:5])
	fctrl := phy[5]
	f.Ack = fctrl&fctrlAck != 0
	f.FCnt = fcntHigh<<16 | uint32(binary.LittleEndian.Uint16(phy[6:8]))
	foptsLen := int(fctrl & 0x0f)

	body := phy[:len(phy)-micSize]
	var mic [micSize]byte
	copy(mic[:], phy[len(phy)-micSize:])
	want := s.calcMessageMIC(body, f.MType.dir(), f.DevAddr, f.FCnt)
	if subtle.ConstantTimeCompare(mic[:], want[:]) != 1 {
		return f, errors.Wrapf(ErrMicMismatch, "devaddr %08x fcnt %d", f.DevAddr, f.FCnt)
	}

	rest := body[1+fhdrSize:]
	if foptsLen > len(rest) {
		return f, errors.Wrapf(ErrFrameTooShort, "fopts %d", foptsLen)
	}
	rest = rest[foptsLen:]
	if len(rest) == 0 {
		return f, nil
	}
	f.FPort = rest[0]
	plain, err := s.cryptFRMPayload(f.MType.dir(), f.DevAddr, f.FCnt, f.FPort, rest[1:])
	if err != nil {
		return f, err
	}
	f.Payload = plain
	return f, nil
}

// cryptFRMPayload encrypts or decrypts (the operation is symmetric) the FRMPayload, LoRaWAN 1.0.3 section 4.3.3.
func (s *Session) cryptFRMPayload(dir uint8, devAddr uint32, fCnt uint32, fPort uint8, payload []byte) ([]byte, error) {
	k := len(payload) / aes.BlockSize
	if len(payload)%aes.BlockSize != 0 {
		k++
	}
	if k > math.MaxUint8 {
		return nil, errors.Wrapf(ErrPayloadTooBig, "%d bytes", len(payload))
	}
	key := s.AppSKey
	if fPort == 0 {
		key = s.NwkSKey
	}
	cipher, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Wrap(err, "FRMPayload cipher")
	}

	var a [aes.BlockSize]byte
	a[0] = 0x01
	a[5] = dir
	binary.LittleEndian.PutUint32(a[6:10], devAddr)
	binary.LittleEndian.PutUint32(a[10:14], fCnt)
	out := make([]byte, len(payload))
	var st [aes.BlockSize]byte
	for i := 0; i < k; i++ {
		a[15] = uint8(i + 1)
		cipher.Encrypt(st[:], a[:])
		for j := 0; j < aes.BlockSize && i*aes.BlockSize+j < len(payload); j++ {
			out[i*aes.BlockSize+j] = payload[i*aes.BlockSize+j] ^ st[j]
		}
	}
	return out, nil
}

// calcMessageMIC computes the MIC over B0 | msg with the network session key.
func (s *Session) calcMessageMIC(msg []byte, dir uint8, devAddr uint32, fCnt uint32) [micSize]byte {
	var b0 [aes.BlockSize]byte
	b0[0] = 0x49
	b0[5] = dir
	binary.LittleEndian.PutUint32(b0[6:10], devAddr)
	binary.LittleEndian.PutUint32(b0[10:14], fCnt)
	b0[15] = uint8(len(msg))

	var mic [micSize]byte
	hash, err := cmac.New(s.NwkSKey[:])
	if err != nil {
		// only fails for invalid key sizes
		panic(err)
	}
	_, _ = hash.Write(b0[:])
	_, _ = hash.Write(msg)
	copy(mic[:], hash.Sum(nil))
	return mic
}
