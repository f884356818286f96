package audio

import (
	"encoding/binary"
	"testing"
)

func TestFrameBuffer_AppendAccumulates(t *testing.T) {
	b := NewFrameBuffer(100)
	chunks := [][]byte{make([]byte, 7), make([]byte, 0), make([]byte, 33), make([]byte, 10)}

	total := 0
	for _, c := range chunks {
		b.Append(c)
		total += len(c)
		if b.Len() != total {
			t.Fatalf("expected %d bytes, got %d", total, b.Len())
		}
	}
	if b.IsReady() {
		t.Error("expected buffer below threshold")
	}

	b.Append(make([]byte, 50))
	if !b.IsReady() {
		t.Error("expected buffer ready at threshold")
	}

	waveform := b.Flush()
	if len(waveform) != 100/2 {
		t.Errorf("expected %d samples, got %d", 50, len(waveform))
	}
	if b.Len() != 0 || b.IsReady() {
		t.Error("expected empty buffer after flush")
	}
}

func TestFrameBuffer_FlushEmpty(t *testing.T) {
	b := NewFrameBuffer(0)

	for i := 0; i < 2; i++ {
		waveform := b.Flush()
		if waveform == nil || len(waveform) != 0 {
			t.Errorf("flush %d: expected empty waveform, got %v", i, waveform)
		}
		if b.Len() != 0 {
			t.Errorf("flush %d: expected empty buffer", i)
		}
	}
	if b.Threshold() != DefaultThresholdBytes {
		t.Errorf("expected default threshold %d, got %d", DefaultThresholdBytes, b.Threshold())
	}
}

func TestFrameBuffer_SampleSplitAcrossFlush(t *testing.T) {
	b := NewFrameBuffer(4)

	b.Append([]byte{0x00, 0x01, 0x00, 0x02, 0x00})
	first := b.Flush()
	if len(first) != 2 || first[0] != 0.0078125 || first[1] != 0.015625 {
		t.Fatalf("unexpected first waveform %v", first)
	}
	if b.Len() != 1 {
		t.Fatalf("expected the odd byte to stay buffered, got %d bytes", b.Len())
	}

	b.Append([]byte{0x03, 0x00, 0x04})
	second := b.Flush()
	if len(second) != 2 || second[0] != 0.0234375 || second[1] != 0.03125 {
		t.Errorf("expected [0.0234375 0.03125], got %v", second)
	}
	if b.Len() != 0 {
		t.Errorf("expected empty buffer, got %d bytes", b.Len())
	}
}

func TestPCM16ToFloat32(t *testing.T) {
	samples := []int16{0, 16384, -16384, 32767, -32768}
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	got := PCM16ToFloat32(pcm)
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0, -1}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestPCM16ToFloat32_OddByteIgnored(t *testing.T) {
	if got := PCM16ToFloat32([]byte{0x00, 0x40, 0x7f}); len(got) != 1 || got[0] != 0.5 {
		t.Errorf("expected [0.5], got %v", got)
	}
}

func TestFloat32ToPCM16_RoundTripAndClamp(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 2, -2}
	out := PCM16ToFloat32(Float32ToPCM16(in))

	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0, -1}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], out[i])
		}
	}
}
