package audio

import (
	"encoding/binary"
)

const (
	// SampleRate is the only accepted input rate (PCM16 LE mono).
	SampleRate = 16000

	// BytesPerSample for 16-bit PCM.
	BytesPerSample = 2

	// DefaultThresholdBytes is ~2 seconds of 16 kHz 16-bit mono audio.
	DefaultThresholdBytes = 64000
)

// FrameBuffer accumulates raw PCM16 LE bytes for one session until enough
// audio is available for an inference window.
//
// Flush drains all complete samples: speech spanning the flush boundary may
// be split mid-word. Not safe for concurrent use; a session owns its buffer.
type FrameBuffer struct {
	data      []byte
	threshold int
}

// NewFrameBuffer creates a buffer that reports ready at threshold bytes.
// A non-positive threshold falls back to DefaultThresholdBytes.
func NewFrameBuffer(threshold int) *FrameBuffer {
	if threshold <= 0 {
		threshold = DefaultThresholdBytes
	}
	return &FrameBuffer{
		data:      make([]byte, 0, threshold+threshold/4),
		threshold: threshold,
	}
}

// Append adds raw bytes to the buffer.
func (b *FrameBuffer) Append(chunk []byte) {
	b.data = append(b.data, chunk...)
}

// IsReady reports whether the accumulated length reached the threshold.
func (b *FrameBuffer) IsReady() bool {
	return len(b.data) >= b.threshold
}

// Len returns the number of buffered bytes.
func (b *FrameBuffer) Len() int {
	return len(b.data)
}

// Threshold returns the ready threshold in bytes.
func (b *FrameBuffer) Threshold() int {
	return b.threshold
}

// Flush converts every complete sample to a normalized waveform and empties
// the buffer. A dangling odd byte is kept so the next chunk completes its
// sample. An empty buffer yields a zero-length waveform.
func (b *FrameBuffer) Flush() []float32 {
	whole := len(b.data) &^ 1
	waveform := PCM16ToFloat32(b.data[:whole])
	b.data = append(b.data[:0], b.data[whole:]...)
	return waveform
}

// PCM16ToFloat32 converts little-endian int16 samples to floats in [-1, 1).
// A trailing odd byte is ignored.
func PCM16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / BytesPerSample
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float32(sample) / 32768.0
	}
	return out
}

// Float32ToPCM16 converts a normalized waveform back to little-endian int16
// bytes, clamping out-of-range values.
func Float32ToPCM16(waveform []float32) []byte {
	out := make([]byte, len(waveform)*BytesPerSample)
	for i, v := range waveform {
		s := v * 32768.0
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s)))
	}
	return out
}
