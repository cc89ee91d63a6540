package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/xsjk/go-asio"
)

// ASIODevice wires the real hardware driver behind the Sink/SampleSource
// interfaces. Adapted from the prior device.ASIOMono: that type drove a
// single in/out channel pair directly from int32 PCM; here the speaker
// side is exposed as a Sink fed float32 samples, and the microphone side
// is exposed as raw PCM via SampleSource, with spectrum analysis left to
// the host integration layer that owns the device.
type ASIODevice struct {
	DeviceName string
	SampleRate float64
	InChannel  int
	OutChannel int

	mu     sync.Mutex
	device asio.Device
	input  chan []int32
	output chan []int32
	open   bool
}

func (d *ASIODevice) ensureOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return nil
	}

	d.device.Load(d.DeviceName)
	d.device.SetSampleRate(d.SampleRate)
	d.device.Open()

	d.input = make(chan []int32, 4)
	d.output = make(chan []int32, 4)

	d.device.Start(func(in, out [][]int32) {
		inCopy := make([]int32, len(in[d.InChannel]))
		copy(inCopy, in[d.InChannel])
		select {
		case d.input <- inCopy:
		default:
		}

		select {
		case buf := <-d.output:
			copy(out[d.OutChannel], buf)
		default:
			for i := range out[d.OutChannel] {
				out[d.OutChannel][i] = 0
			}
		}
	})

	d.open = true
	return nil
}

// Close stops and releases the ASIO device.
func (d *ASIODevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil
	}
	d.device.Stop()
	d.device.Close()
	d.device.Unload()
	d.open = false
	return nil
}

// PlaySamples implements Sink by queuing int32-converted PCM onto the ASIO
// output callback.
func (d *ASIODevice) PlaySamples(ctx context.Context, pcm []float32, sampleRate int) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}
	if sampleRate != int(d.SampleRate) {
		return fmt.Errorf("audio: sample rate mismatch, device is %v got %v", d.SampleRate, sampleRate)
	}

	buf := make([]int32, len(pcm))
	for i, v := range pcm {
		buf[i] = int32(float64(v) * 0x7fffffff)
	}

	select {
	case d.output <- buf:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// NextSamples implements SampleSource by draining n raw PCM samples
// (as float64 in [-1,1]) from the ASIO input callback.
func (d *ASIODevice) NextSamples(ctx context.Context, n int) ([]float64, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}

	out := make([]float64, 0, n)
	for len(out) < n {
		select {
		case buf := <-d.input:
			for _, v := range buf {
				out = append(out, float64(v)/0x7fffffff)
				if len(out) == n {
					break
				}
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, nil
}
