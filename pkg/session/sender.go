package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/exp/rand"

	"wavecast/pkg/audio"
	"wavecast/pkg/calibrate"
	"wavecast/pkg/codec"
	"wavecast/pkg/framer"
	"wavecast/pkg/modem"
	"wavecast/pkg/profile"
)

// BackoffTimer sets the delay after a failed attempt in a chunk's retry
// loop, adapted from a prior MAC-layer resend loop. No ACK is awaited in
// this protocol revision; the timer only spaces out transmissions.
type BackoffTimer interface {
	Backoff(attempt int) time.Duration
}

// RandomBackoffTimer picks a uniform random delay in [MinDelay, MaxDelay].
type RandomBackoffTimer struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

func (b RandomBackoffTimer) Backoff(attempt int) time.Duration {
	if b.MaxDelay <= b.MinDelay {
		return b.MinDelay
	}
	span := b.MaxDelay - b.MinDelay
	return b.MinDelay + time.Duration(rand.Int63n(int64(span)))
}

// SenderConfig bundles the knobs a sending session needs.
type SenderConfig struct {
	Profile        profile.Profile
	Audio          profile.AudioParams
	Calibration    calibrate.Result
	UseCompression bool
	MaxRetries     int
	PacketDelay    time.Duration
	Backoff        BackoffTimer
	Adaptive       bool
}

// Sender drives one file transfer over a Sink.
type Sender struct {
	cfg    SenderConfig
	sink   audio.Sink
	power  *modem.PowerController
	Events chan Event
}

// NewSender constructs a Sender with defaults filled in where the caller
// left them zero.
func NewSender(cfg SenderConfig, sink audio.Sink) *Sender {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.PacketDelay == 0 {
		cfg.PacketDelay = defaultPacketDelayMs * time.Millisecond
	}
	if cfg.Backoff == nil {
		cfg.Backoff = RandomBackoffTimer{MinDelay: 20 * time.Millisecond, MaxDelay: 60 * time.Millisecond}
	}
	chunkSize := cfg.Profile.ChunkSize
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}
	cfg.Profile.ChunkSize = chunkSize

	return &Sender{
		cfg:    cfg,
		sink:   sink,
		power:  modem.NewPowerController(cfg.Adaptive),
		Events: make(chan Event, 32),
	}
}

// Send reads, optionally compresses, chunks, and plays the full transfer
// over the sink: preamble, metadata, every data chunk, then a doubled End
// marker. stop, if non-nil, is polled
// between chunks (never mid-slot) to cancel cleanly with no partial file
// surfaced on the wire beyond whatever already played.
func (s *Sender) Send(ctx context.Context, filename string, raw []byte, stop <-chan struct{}) error {
	payload := raw
	compressed := false
	if s.cfg.UseCompression && len(raw) > compressionMinSize {
		c := codec.Compress(raw)
		if len(c) < len(raw) {
			payload = c
			compressed = true
		}
	}

	meta := buildMetadata(filename, raw, payload, compressed, s.cfg.Profile.ChunkSize, s.cfg.Profile.Encoding, time.Now().UnixMilli())

	if err := s.playPreamble(ctx); err != nil {
		return err
	}
	if err := s.sendMeta(ctx, meta); err != nil {
		return fmt.Errorf("session: sending meta: %w", err)
	}

	chunks := chunksOf(payload, s.cfg.Profile.ChunkSize)
	failed := make([]int, 0)

	for i, chunk := range chunks {
		select {
		case <-stop:
			return ErrCanceled
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ok := s.sendChunkWithRetry(ctx, uint32(i), chunk)
		if !ok {
			failed = append(failed, i)
		}
		s.emit(Event{Kind: EventChunkSent, ChunkIndex: i, ChunkTotal: len(chunks)})

		time.Sleep(s.cfg.PacketDelay)
	}

	// re-attempt every failed chunk once.
	for _, i := range failed {
		s.sendChunkWithRetry(ctx, uint32(i), chunks[i])
	}

	if err := s.sendEnd(ctx, "COMPLETE"); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := s.sendEnd(ctx, "COMPLETE"); err != nil {
		return err
	}

	s.emit(Event{Kind: EventTransferDone, Metadata: meta})
	return nil
}

// sendChunkWithRetry implements sendPacketWithAck: one-shot by design (no
// ACK channel exists in this protocol revision), attempted up to
// MaxRetries times only to absorb local encode/play errors, never to wait
// for a peer's confirmation.
func (s *Sender) sendChunkWithRetry(ctx context.Context, index uint32, chunk []byte) bool {
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if err := s.sendData(ctx, index, chunk); err == nil {
			return true
		}
		time.Sleep(s.cfg.Backoff.Backoff(attempt))
	}
	return false
}

func (s *Sender) playPreamble(ctx context.Context) error {
	pcm := modem.PlayPreamble(s.cfg.Calibration, s.cfg.Audio, s.power.Power())
	return s.sink.PlaySamples(ctx, pcm, s.cfg.Audio.SampleRateHz)
}

func (s *Sender) sendMeta(ctx context.Context, meta framer.FileMetadata) error {
	body, err := framer.SerializeMeta(meta)
	if err != nil {
		return err
	}
	return s.play(ctx, body)
}

func (s *Sender) sendData(ctx context.Context, index uint32, raw []byte) error {
	body := framer.SerializeData(index, raw, s.cfg.Profile.Encoding)
	return s.play(ctx, body)
}

func (s *Sender) sendEnd(ctx context.Context, reason string) error {
	body := framer.SerializeEnd(reason)
	return s.play(ctx, body)
}

func (s *Sender) play(ctx context.Context, body []byte) error {
	bits := framer.EncodeFrame(body)
	mod := modem.Modulator{
		Profile:     s.cfg.Profile,
		Calibration: s.cfg.Calibration,
		Audio:       s.cfg.Audio,
		Power:       s.power,
	}
	pcm := mod.Modulate(bits)
	return s.sink.PlaySamples(ctx, pcm, s.cfg.Audio.SampleRateHz)
}

func (s *Sender) emit(ev Event) {
	select {
	case s.Events <- ev:
	default:
		log.Printf("[Sender] event channel full, dropping %v", ev.Kind)
	}
}

// ErrCanceled is returned when stop fires between chunks.
var ErrCanceled = fmt.Errorf("session: canceled")
