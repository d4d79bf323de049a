// Package recordio reads and writes indexed record containers in the
// MXNet RecordIO layout: a .rec file of length-prefixed records and a
// text .idx file mapping slot keys to byte offsets.
package recordio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// Magic prefixes every record in the .rec file
	Magic uint32 = 0xced7230a

	// HeaderSize is the packed size of Header without array labels
	HeaderSize = 24

	lengthBits = 29
	lengthMask = 1<<lengthBits - 1
)

var (
	ErrBadMagic       = errors.New("recordio: bad magic number")
	ErrRecordTooLarge = errors.New("recordio: record exceeds 512MB")
	ErrShortRecord    = errors.New("recordio: record shorter than header")
	ErrUnknownKey     = errors.New("recordio: key not in index")
	ErrSplitRecord    = errors.New("recordio: multi-part records are not supported")
)

// Header precedes the payload of every record. When Labels is non-empty it
// replaces Label and Flag carries its length.
type Header struct {
	Flag   uint32
	Label  float32
	Labels []float32
	ID     uint64
	ID2    uint64
}

// Pack serializes h followed by payload
func Pack(h Header, payload []byte) []byte {
	flag, label := h.Flag, h.Label
	if len(h.Labels) > 0 {
		flag, label = uint32(len(h.Labels)), 0
	}

	out := make([]byte, HeaderSize+4*len(h.Labels)+len(payload))
	binary.LittleEndian.PutUint32(out[0:], flag)
	binary.LittleEndian.PutUint32(out[4:], math.Float32bits(label))
	binary.LittleEndian.PutUint64(out[8:], h.ID)
	binary.LittleEndian.PutUint64(out[16:], h.ID2)

	off := HeaderSize
	for _, l := range h.Labels {
		binary.LittleEndian.PutUint32(out[off:], math.Float32bits(l))
		off += 4
	}
	copy(out[off:], payload)
	return out
}

// Unpack splits a record body into its header and payload. A positive flag
// is read as the number of array labels following the fixed header.
func Unpack(data []byte) (Header, []byte, error) {
	if len(data) < HeaderSize {
		return Header{}, nil, ErrShortRecord
	}

	h := Header{
		Flag:  binary.LittleEndian.Uint32(data[0:]),
		Label: math.Float32frombits(binary.LittleEndian.Uint32(data[4:])),
		ID:    binary.LittleEndian.Uint64(data[8:]),
		ID2:   binary.LittleEndian.Uint64(data[16:]),
	}

	rest := data[HeaderSize:]
	if h.Flag > 0 {
		n := int(h.Flag)
		if len(rest) < 4*n {
			return Header{}, nil, fmt.Errorf("%w: %d labels declared", ErrShortRecord, n)
		}
		h.Labels = make([]float32, n)
		for i := range h.Labels {
			h.Labels[i] = math.Float32frombits(binary.LittleEndian.Uint32(rest[4*i:]))
		}
		rest = rest[4*n:]
	}

	return h, rest, nil
}

func encodeLength(cflag uint32, n int) uint32 {
	return cflag<<lengthBits | uint32(n)&lengthMask
}

func decodeLength(v uint32) (cflag uint32, n int) {
	return v >> lengthBits, int(v & lengthMask)
}

func padding(n int) int {
	return (4 - n%4) % 4
}
