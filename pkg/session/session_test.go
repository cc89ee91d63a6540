package session

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wavecast/pkg/audio"
	"wavecast/pkg/calibrate"
	"wavecast/pkg/codec"
	"wavecast/pkg/framer"
	"wavecast/pkg/profile"
)

// fskRoundTripSetup returns a profile/audio/calibration triple sized so one
// Goertzel frame exactly covers one symbol slot, and carriers spaced far
// enough apart that adjacent-channel correlation doesn't bleed into a
// neighboring decision bin.
func fskRoundTripSetup(chunkSize int) (profile.Profile, profile.AudioParams, calibrate.Result) {
	p := profile.STANDARD
	p.NumChannels = 4
	p.ChunkSize = chunkSize

	a := profile.Default
	a.FFTSize = a.SampleRateHz * p.SymbolDurationMs / 1000
	a.SignalThreshold = 50

	cal := calibrate.Result{Frequencies: []int{3000, 3300, 3600, 3900}}
	return p, a, cal
}

func fskSpectrumSource(source audio.SampleSource, a profile.AudioParams, cal calibrate.Result) audio.SpectrumSource {
	var freqs []float64
	for _, c := range cal.Frequencies {
		freqs = append(freqs, float64(c-a.FSKDeviationHz), float64(c+a.FSKDeviationHz))
	}
	return &audio.GoertzelChannel{
		Source:       source,
		Window:       a.FFTSize,
		NumBins:      a.FFTSize / 2,
		FreqsHz:      freqs,
		SampleRateHz: a.SampleRateHz,
		Scale:        50000,
	}
}

func TestSenderReceiverRoundTripOverLoopback(t *testing.T) {
	p, a, cal := fskRoundTripSetup(16)
	loop := &audio.Loopback{SampleRate: a.SampleRateHz}

	sender := NewSender(SenderConfig{
		Profile:     p,
		Audio:       a,
		Calibration: cal,
	}, loop)

	payload := []byte("the quick brown fox jumps over the lazy dog")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, sender.Send(ctx, "fox.txt", payload, nil))
	close(sender.Events)

	receiver := NewReceiver(ReceiverConfig{Profile: p, Audio: a, Calibration: cal})
	spectrum := fskSpectrumSource(loop, a, cal)

	result, err := receiver.Run(ctx, spectrum, nil)
	close(receiver.Events)
	require.NoError(t, err)

	require.Equal(t, "fox.txt", result.Filename)
	require.Equal(t, payload, result.Bytes)
	require.True(t, result.ChecksumOK)
	require.True(t, result.CRCOK)
}

func TestSenderReceiverRoundTripEmptyFile(t *testing.T) {
	p, a, cal := fskRoundTripSetup(16)
	loop := &audio.Loopback{SampleRate: a.SampleRateHz}

	sender := NewSender(SenderConfig{Profile: p, Audio: a, Calibration: cal}, loop)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, sender.Send(ctx, "empty.bin", nil, nil))
	close(sender.Events)

	receiver := NewReceiver(ReceiverConfig{Profile: p, Audio: a, Calibration: cal})
	result, err := receiver.Run(ctx, fskSpectrumSource(loop, a, cal), nil)
	close(receiver.Events)
	require.NoError(t, err)

	require.Equal(t, "empty.bin", result.Filename)
	require.Empty(t, result.Bytes)
	require.True(t, result.ChecksumOK)
	require.True(t, result.CRCOK)
}

func TestReceiverDispatchDuplicateDataIgnored(t *testing.T) {
	r := NewReceiver(ReceiverConfig{Profile: profile.STANDARD, Audio: profile.Default})

	meta := framer.FileMetadata{Filename: "x", Size: 4, Chunks: 1, EncodingName: "binary"}
	r.dispatch(framer.Packet{Kind: framer.KindMeta, Meta: meta})

	body := framer.SerializeData(0, []byte("abcd"), profile.EncodingBinary)
	pkt, err := framer.ParsePacket(body)
	require.NoError(t, err)

	r.dispatch(pkt)
	require.Equal(t, 1, r.chunks.Len())

	r.dispatch(pkt) // same index again: first-wins, no second event or overwrite
	require.Equal(t, 1, r.chunks.Len())

	chunk, ok := r.chunks.Get(0)
	require.True(t, ok)
	require.Equal(t, []byte("abcd"), chunk)
}

func TestReceiverDispatchDataBeforeMetaIsDropped(t *testing.T) {
	r := NewReceiver(ReceiverConfig{Profile: profile.STANDARD, Audio: profile.Default})

	body := framer.SerializeData(0, []byte("abcd"), profile.EncodingBinary)
	pkt, err := framer.ParsePacket(body)
	require.NoError(t, err)

	r.dispatch(pkt)
	require.Equal(t, 0, r.chunks.Len())
}

func TestReceiverAssembleReportsMissingChunk(t *testing.T) {
	r := NewReceiver(ReceiverConfig{Profile: profile.STANDARD, Audio: profile.Default})

	payload := []byte("hello!!!")
	meta := framer.FileMetadata{
		Filename:     "gap.bin",
		Size:         len(payload),
		Chunks:       2,
		EncodingName: "binary",
		Checksum:     codec.Checksum(payload),
		CRC:          codec.CRC16(payload),
	}
	r.meta = &meta
	r.chunks.Put(0, payload[:4]) // chunk index 1 never arrives

	result, err := r.assemble()
	require.NoError(t, err)
	require.Equal(t, payload[:4], result.Bytes)
	require.False(t, result.ChecksumOK)
	require.False(t, result.CRCOK)
}

func TestReceiverAssembleDecompresses(t *testing.T) {
	r := NewReceiver(ReceiverConfig{Profile: profile.STANDARD, Audio: profile.Default})

	original := bytes.Repeat([]byte("abcabcabc"), 10)
	compressed := codec.Compress(original)
	meta := framer.FileMetadata{
		Filename:     "repeat.bin",
		Size:         len(compressed),
		OriginalSize: len(original),
		Compressed:   true,
		Chunks:       1,
		EncodingName: "binary",
		Checksum:     codec.Checksum(compressed),
		CRC:          codec.CRC16(compressed),
	}
	r.meta = &meta
	r.chunks.Put(0, compressed)

	result, err := r.assemble()
	require.NoError(t, err)
	require.Equal(t, original, result.Bytes)
	require.True(t, result.ChecksumOK)
	require.True(t, result.CRCOK)
}

func TestBuildMetadataRecordsOriginalAndCompressedSize(t *testing.T) {
	original := bytes.Repeat([]byte("x"), 200)
	compressed := codec.Compress(original)

	meta := buildMetadata("big.bin", original, compressed, true, 64, profile.EncodingBinary, 1700000000000)
	require.Equal(t, len(compressed), meta.Size)
	require.Equal(t, len(original), meta.OriginalSize)
	require.True(t, meta.Compressed)
	require.Equal(t, (len(compressed)+63)/64, meta.Chunks)
}

func TestChunksOfExactMultiple(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 32)
	chunks := chunksOf(payload, 16)
	require.Len(t, chunks, 2)
	require.Equal(t, payload[:16], chunks[0])
	require.Equal(t, payload[16:], chunks[1])
}

func TestChunksOfEmptyPayload(t *testing.T) {
	require.Empty(t, chunksOf(nil, 16))
}
