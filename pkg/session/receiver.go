package session

import (
	"context"
	"fmt"
	"log"

	"wavecast/pkg/audio"
	"wavecast/pkg/calibrate"
	"wavecast/pkg/codec"
	"wavecast/pkg/framer"
	"wavecast/pkg/modem"
	"wavecast/pkg/profile"
)

// ReceiverConfig bundles the knobs a Receiver needs once calibration has
// already produced a Result.
type ReceiverConfig struct {
	Profile     profile.Profile
	Audio       profile.AudioParams
	Calibration calibrate.Result
}

// Receiver drives the demodulation loop for one incoming transfer.
type Receiver struct {
	cfg ReceiverConfig

	sync   *framer.Synchronizer
	chunks *ChunkStore
	meta   *framer.FileMetadata
	ended  int

	Events chan Event
}

// NewReceiver constructs a Receiver ready to Run against a live audio
// source.
func NewReceiver(cfg ReceiverConfig) *Receiver {
	return &Receiver{
		cfg:    cfg,
		sync:   framer.NewSynchronizer(),
		chunks: NewChunkStore(),
		Events: make(chan Event, 32),
	}
}

// Result is the outcome of one completed receive. A checksum or CRC
// mismatch is reported, not fatal — the caller decides whether to keep
// the bytes.
type Result struct {
	Filename   string
	Bytes      []byte
	ChecksumOK bool
	CRCOK      bool
}

// Run drives the demodulation loop until two End packets close the
// transfer or ctx is canceled. Which audio interface it reads from
// depends on the active profile's scheme: FSK decisions only need
// magnitude spectra, QPSK/8PSK need raw samples for I/Q correlation, so
// exactly one of spectrum/samples is actually consumed — pass nil for
// the interface the profile doesn't need.
func (r *Receiver) Run(ctx context.Context, spectrum audio.SpectrumSource, samples audio.SampleSource) (Result, error) {
	demod := &modem.Demodulator{
		Profile:     r.cfg.Profile,
		Calibration: r.cfg.Calibration,
		Audio:       r.cfg.Audio,
	}
	samplesPerSymbol := r.cfg.Audio.SampleRateHz * r.cfg.Profile.SymbolDurationMs / 1000

	for r.ended < 2 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		before := len(demod.Bits)

		if r.cfg.Profile.Scheme == profile.FSK {
			frame, err := spectrum.NextFrame(ctx)
			if err != nil {
				return Result{}, fmt.Errorf("session: reading spectrum: %w", err)
			}
			demod.TickSpectrum(frame)
		} else {
			window, err := samples.NextSamples(ctx, samplesPerSymbol)
			if err != nil {
				return Result{}, fmt.Errorf("session: reading samples: %w", err)
			}
			demod.TickSamples(window)
		}

		newBits := demod.Bits[before:]
		if len(newBits) == 0 {
			continue
		}
		for _, pkt := range r.sync.Feed(newBits) {
			r.dispatch(pkt)
		}
	}

	return r.assemble()
}

func (r *Receiver) dispatch(pkt framer.Packet) {
	switch pkt.Kind {
	case framer.KindMeta:
		m := pkt.Meta
		r.meta = &m
		r.emit(Event{Kind: EventMetaReceived, Metadata: m})

	case framer.KindData:
		if r.meta == nil {
			return // no metadata yet to decide the payload encoding; drop
		}
		enc, err := r.meta.Encoding()
		if err != nil {
			r.emit(Event{Kind: EventError, Err: err})
			return
		}
		raw, err := framer.DecodePayload(string(pkt.DataPayload), enc)
		if err != nil {
			r.emit(Event{Kind: EventError, Err: err})
			return
		}
		if r.chunks.Put(pkt.DataIndex, raw) {
			r.emit(Event{Kind: EventChunkReceived, ChunkIndex: int(pkt.DataIndex), ChunkTotal: r.meta.Chunks})
		}

	case framer.KindEnd:
		r.ended++
	}
}

// assemble concatenates every recorded chunk in index order, decompresses
// if the sender flagged it, and cross-checks both integrity fields against
// what the sender's metadata declared. A chunk missing at the end of a
// transfer leaves a gap in the output rather than blocking forever.
func (r *Receiver) assemble() (Result, error) {
	if r.meta == nil {
		return Result{}, fmt.Errorf("session: transfer ended before metadata arrived")
	}

	payload := make([]byte, 0, r.meta.Size)
	for i := 0; i < r.meta.Chunks; i++ {
		chunk, ok := r.chunks.Get(uint32(i))
		if !ok {
			log.Printf("[Receiver] missing chunk %d of %d", i, r.meta.Chunks)
			continue
		}
		payload = append(payload, chunk...)
	}

	out := payload
	if r.meta.Compressed {
		decompressed, err := codec.Decompress(payload)
		if err != nil {
			return Result{}, fmt.Errorf("session: decompressing payload: %w", err)
		}
		out = decompressed
	}

	res := Result{
		Filename:   r.meta.Filename,
		Bytes:      out,
		ChecksumOK: codec.Checksum(payload) == r.meta.Checksum,
		CRCOK:      codec.CRC16(payload) == r.meta.CRC,
	}
	r.emit(Event{Kind: EventTransferDone, Metadata: *r.meta})
	return res, nil
}

func (r *Receiver) emit(ev Event) {
	select {
	case r.Events <- ev:
	default:
		log.Printf("[Receiver] event channel full, dropping %v", ev.Kind)
	}
}
