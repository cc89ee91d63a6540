// Package session implements the sender and receiver state machines:
// read/compress/chunk/send on one side, demod-loop/collect/reassemble/
// verify on the other.
package session

import (
	"wavecast/pkg/codec"
	"wavecast/pkg/framer"
	"wavecast/pkg/profile"
)

const (
	defaultChunkSize       = 128
	compressionMinSize     = 64
	defaultMaxRetries      = 3
	defaultPacketDelayMs   = 8
)

// buildMetadata assembles the FileMetadata JSON body for a completed
// read-compress-chunk pass.
func buildMetadata(filename string, original, payload []byte, compressed bool, chunkSize int, enc profile.Encoding, timestamp int64) framer.FileMetadata {
	chunks := 0
	if len(payload) > 0 {
		chunks = (len(payload) + chunkSize - 1) / chunkSize
	}
	return framer.FileMetadata{
		Filename:     filename,
		Size:         len(payload),
		OriginalSize: len(original),
		Compressed:   compressed,
		Checksum:     codec.Checksum(payload),
		CRC:          codec.CRC16(payload),
		Chunks:       chunks,
		Timestamp:    timestamp,
		EncodingName: enc.String(),
	}
}

// chunksOf splits payload into chunkSize-byte pieces, the last possibly
// shorter.
func chunksOf(payload []byte, chunkSize int) [][]byte {
	var out [][]byte
	for i := 0; i < len(payload); i += chunkSize {
		end := min(i+chunkSize, len(payload))
		out = append(out, payload[i:end])
	}
	return out
}
