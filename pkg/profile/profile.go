// Package profile defines the physical-layer parameter tuples (Profile) and
// the fixed audio-path constants (AudioParams) shared by the modulator,
// demodulator and calibrator.
package profile

import "fmt"

// Scheme selects the per-symbol constellation.
type Scheme int

const (
	FSK  Scheme = iota // 1 bit/symbol
	QPSK               // 2 bits/symbol
	PSK8               // 3 bits/symbol
)

func (s Scheme) String() string {
	switch s {
	case FSK:
		return "FSK"
	case QPSK:
		return "QPSK"
	case PSK8:
		return "8PSK"
	default:
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
}

// BitsPerSymbol returns the number of bits the scheme packs per symbol.
func (s Scheme) BitsPerSymbol() int {
	switch s {
	case FSK:
		return 1
	case QPSK:
		return 2
	case PSK8:
		return 3
	default:
		panic(fmt.Sprintf("profile: unknown scheme %v", s))
	}
}

// Encoding selects how Data packet payloads are carried over the air.
type Encoding int

const (
	EncodingBinary Encoding = iota
	EncodingBase64
)

func (e Encoding) String() string {
	if e == EncodingBase64 {
		return "base64"
	}
	return "binary"
}

// Profile is the immutable physical-layer parameter tuple.
type Profile struct {
	Name             string
	NumChannels      int // one of 4, 8, 12, 16
	ChannelSpacingHz int
	SymbolDurationMs int
	Scheme           Scheme
	Encoding         Encoding
	ChunkSize        int
}

// Validate checks the profile against the discrete choices this module allows.
func (p Profile) Validate() error {
	switch p.NumChannels {
	case 4, 8, 12, 16:
	default:
		return fmt.Errorf("profile %s: num_channels must be one of 4/8/12/16, got %d", p.Name, p.NumChannels)
	}
	if p.ChannelSpacingHz <= 0 {
		return fmt.Errorf("profile %s: channel_spacing_hz must be positive", p.Name)
	}
	if p.SymbolDurationMs <= 0 {
		return fmt.Errorf("profile %s: symbol_duration_ms must be positive", p.Name)
	}
	if p.ChunkSize <= 0 {
		return fmt.Errorf("profile %s: chunk_size must be positive", p.Name)
	}
	return nil
}

var (
	// FAST trades robustness for throughput: 8 channels, QPSK, binary
	// payload framing.
	FAST = Profile{
		Name:             "FAST",
		NumChannels:      8,
		ChannelSpacingHz: 200,
		SymbolDurationMs: 20,
		Scheme:           QPSK,
		Encoding:         EncodingBinary,
		ChunkSize:        128,
	}

	// STANDARD is the conservative default: 4 channels, FSK, Base64 framing,
	// 64-byte chunks.
	STANDARD = Profile{
		Name:             "STANDARD",
		NumChannels:      4,
		ChannelSpacingHz: 300,
		SymbolDurationMs: 30,
		Scheme:           FSK,
		Encoding:         EncodingBase64,
		ChunkSize:        64,
	}

	// ROBUST maximizes channel count for noisy rooms at the cost of
	// bandwidth efficiency: 16 channels, FSK, 150Hz spacing.
	ROBUST = Profile{
		Name:             "ROBUST",
		NumChannels:      16,
		ChannelSpacingHz: 150,
		SymbolDurationMs: 40,
		Scheme:           FSK,
		Encoding:         EncodingBase64,
		ChunkSize:        64,
	}

	// DENSE pushes throughput further with 8-PSK across 12 channels.
	DENSE = Profile{
		Name:             "DENSE",
		NumChannels:      12,
		ChannelSpacingHz: 200,
		SymbolDurationMs: 20,
		Scheme:           PSK8,
		Encoding:         EncodingBinary,
		ChunkSize:        128,
	}
)

// Named returns one of the built-in presets by name.
func Named(name string) (Profile, error) {
	switch name {
	case "FAST":
		return FAST, nil
	case "STANDARD":
		return STANDARD, nil
	case "ROBUST":
		return ROBUST, nil
	case "DENSE":
		return DENSE, nil
	default:
		return Profile{}, fmt.Errorf("profile: unknown preset %q", name)
	}
}
