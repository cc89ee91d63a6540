package framer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wavecast/pkg/profile"
)

func TestBytesBitsRoundTrip(t *testing.T) {
	data := []byte("Aethernet")
	bits := BytesToBits(data)
	require.Len(t, bits, len(data)*8)
	require.Equal(t, data, BitsToBytes(bits))
}

func TestEncodeFrameWrapsSyncMarkers(t *testing.T) {
	bits := EncodeFrame([]byte("END:COMPLETE"))
	require.Equal(t, SyncPrefix, bits[:len(SyncPrefix)])
	require.Equal(t, SyncSuffix, bits[len(bits)-len(SyncSuffix):])
}

func TestSerializeParseMetaRoundTrip(t *testing.T) {
	meta := FileMetadata{
		Filename:     "a.txt",
		Size:         10,
		OriginalSize: 12,
		Compressed:   true,
		Checksum:     42,
		CRC:          99,
		Chunks:       1,
		Timestamp:    123,
		EncodingName: "base64",
	}
	body, err := SerializeMeta(meta)
	require.NoError(t, err)

	pkt, err := ParsePacket(body)
	require.NoError(t, err)
	require.Equal(t, KindMeta, pkt.Kind)
	require.Equal(t, meta, pkt.Meta)

	enc, err := pkt.Meta.Encoding()
	require.NoError(t, err)
	require.Equal(t, profile.EncodingBase64, enc)
}

func TestSerializeParseDataRoundTrip(t *testing.T) {
	raw := []byte{0x00, 0xFF, 0x42, 0x13}

	for _, enc := range []profile.Encoding{profile.EncodingBinary, profile.EncodingBase64} {
		body := SerializeData(7, raw, enc)
		pkt, err := ParsePacket(body)
		require.NoError(t, err)
		require.Equal(t, KindData, pkt.Kind)
		require.EqualValues(t, 7, pkt.DataIndex)

		decoded, err := DecodePayload(string(pkt.DataPayload), enc)
		require.NoError(t, err)
		require.Equal(t, raw, decoded)
	}
}

func TestSerializeParseEndRoundTrip(t *testing.T) {
	body := SerializeEnd("COMPLETE")
	pkt, err := ParsePacket(body)
	require.NoError(t, err)
	require.Equal(t, KindEnd, pkt.Kind)
	require.Equal(t, "COMPLETE", pkt.EndReason)
}

func TestParsePacketRejectsUnknownTag(t *testing.T) {
	_, err := ParsePacket([]byte("NOPE:whatever"))
	require.Error(t, err)
	var parseErr *ErrPacketParse
	require.ErrorAs(t, err, &parseErr)
}

func TestParsePacketRejectsOversizedChunkIndex(t *testing.T) {
	body := SerializeData(MaxChunkIndex, []byte("x"), profile.EncodingBinary)
	_, err := ParsePacket(body)
	require.Error(t, err)
}

func TestInterleaveDeinterleavePadding(t *testing.T) {
	bits := []bool{true, false, true}
	streams := Interleave(bits, 4)
	require.Len(t, streams, 4)
	for _, s := range streams {
		require.Len(t, s, 1) // 3 bits over 4 channels, each gets one padded slot
	}

	back := Deinterleave(streams)
	require.Equal(t, bits, back[:len(bits)])
}

func TestSynchronizerBodyContainingSuffixBytePatternIsNotTruncated(t *testing.T) {
	// "U" is 0x55 = 01010101, the same bit pattern as SyncSuffix. A body
	// that legitimately contains it must not be cut short.
	meta := FileMetadata{Filename: "UUUUUUUU", EncodingName: "binary"}
	body, err := SerializeMeta(meta)
	require.NoError(t, err)

	s := NewSynchronizer()
	pkts := s.Feed(EncodeFrame(body))
	require.Len(t, pkts, 1)
	require.Equal(t, KindMeta, pkts[0].Kind)
	require.Equal(t, meta, pkts[0].Meta)
}

func TestSynchronizerHuntsThenFramesMetaPacket(t *testing.T) {
	meta := FileMetadata{Filename: "x", EncodingName: "binary"}
	body, err := SerializeMeta(meta)
	require.NoError(t, err)

	frame := EncodeFrame(body)
	noise := []bool{true, true, false, true, false, false}

	s := NewSynchronizer()
	pkts := s.Feed(append(noise, frame...))
	require.Len(t, pkts, 1)
	require.Equal(t, KindMeta, pkts[0].Kind)
	require.Equal(t, meta, pkts[0].Meta)
}

func TestSynchronizerRecoversFromMalformedFrame(t *testing.T) {
	s := NewSynchronizer()

	// a well-framed body with an unrecognized tag is dropped by ParsePacket
	// and the synchronizer returns to Hunting without ever emitting it.
	garbage := EncodeFrame([]byte("NOPE:\x00garbage"))
	pkts := s.Feed(garbage)
	require.Empty(t, pkts)

	frame := EncodeFrame(SerializeEnd("COMPLETE"))
	pkts = s.Feed(frame)
	require.Len(t, pkts, 1)
	require.Equal(t, KindEnd, pkts[0].Kind)
}
