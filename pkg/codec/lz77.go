// Package codec implements the LZ77-style compressor and the integrity
// checks (additive checksum, CRC-16) that sit underneath the packet framer.
package codec

import (
	"encoding/binary"
	"fmt"
)

const (
	windowSize  = 4096
	lookahead   = 18
	minMatchLen = 3
	marker      = 0xFF
)

// ErrCorruptStream is returned by Decompress when the input ends before the
// header's declared length is reached.
var ErrCorruptStream = fmt.Errorf("codec: corrupt stream")

type match struct {
	distance int
	length   int
}

// findLongestMatch scans the window preceding pos for the longest match with
// the lookahead starting at pos, breaking ties by the nearest (smallest
// distance) prior occurrence.
func findLongestMatch(data []byte, pos int) match {
	windowStart := max(0, pos-windowSize)
	maxLen := min(lookahead, len(data)-pos)

	best := match{}
	for start := pos - 1; start >= windowStart; start-- {
		length := 0
		for length < maxLen && data[start+length] == data[pos+length] {
			length++
		}
		if length > best.length {
			best = match{distance: pos - start, length: length}
		}
	}
	return best
}

// Compress encodes data with a single-pass sliding-window LZ77 matcher.
// Literal 0xFF bytes are escaped as a marker followed by a zero
// distance/length record, since the marker byte is otherwise
// indistinguishable from a match (see DESIGN.md).
func Compress(data []byte) []byte {
	out := make([]byte, 4, len(data)+4)
	binary.BigEndian.PutUint32(out, uint32(len(data)))

	pos := 0
	for pos < len(data) {
		b := data[pos]

		m := findLongestMatch(data, pos)
		if m.length >= minMatchLen {
			out = append(out, marker, byte(m.distance>>8), byte(m.distance), byte(m.length))
			pos += m.length
			continue
		}

		if b == marker {
			out = append(out, marker, 0, 0, 0)
		} else {
			out = append(out, b)
		}
		pos++
	}

	return out
}

// Decompress inverts Compress. It stops as soon as the declared original
// length is reached, and returns ErrCorruptStream if the input is exhausted
// first.
func Decompress(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, ErrCorruptStream
	}
	originalLen := int(binary.BigEndian.Uint32(data))
	out := make([]byte, 0, originalLen)

	i := 4
	for len(out) < originalLen {
		if i >= len(data) {
			return nil, ErrCorruptStream
		}
		b := data[i]
		i++

		if b != marker {
			out = append(out, b)
			continue
		}

		if i+3 > len(data) {
			return nil, ErrCorruptStream
		}
		distance := int(data[i])<<8 | int(data[i+1])
		length := int(data[i+2])
		i += 3

		if distance == 0 && length == 0 {
			out = append(out, marker)
			continue
		}
		if distance <= 0 || distance > len(out) {
			return nil, ErrCorruptStream
		}
		start := len(out) - distance
		for j := 0; j < length; j++ {
			out = append(out, out[start+j])
		}
	}

	return out, nil
}
