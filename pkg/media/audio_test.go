package media

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func encodeFloat32(samples []float32) []byte {
	data := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(s))
	}
	return data
}

func TestDecodeAudio(t *testing.T) {
	want := []float32{0, 0.5, -0.5, 1}
	got, err := DecodeAudio(encodeFloat32(want), "float32")
	if err != nil {
		t.Fatalf("DecodeAudio() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeAudioErrors(t *testing.T) {
	if _, err := DecodeAudio([]byte{0, 0, 0, 0}, "int16"); !errors.Is(err, ErrUnsupportedAudioFormat) {
		t.Errorf("int16 format error = %v, want ErrUnsupportedAudioFormat", err)
	}
	if _, err := DecodeAudio([]byte{0, 0, 0}, "float32"); !errors.Is(err, ErrAudioDecode) {
		t.Errorf("truncated data error = %v, want ErrAudioDecode", err)
	}
}

func TestDecodeAudioEmpty(t *testing.T) {
	got, err := DecodeAudio(nil, "float32")
	if err != nil {
		t.Fatalf("DecodeAudio(nil) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestResample(t *testing.T) {
	// 1 second of a constant signal: resampling preserves the value and
	// scales the length by the rate ratio.
	in := make([]float32, 16000)
	for i := range in {
		in[i] = 0.25
	}

	out := Resample(in, 16000, 8000)
	if len(out) != 8000 {
		t.Errorf("len = %d, want 8000", len(out))
	}
	for i, s := range out {
		if s != 0.25 {
			t.Fatalf("sample[%d] = %v, want 0.25", i, s)
		}
	}
}

func TestResampleSameRate(t *testing.T) {
	in := []float32{1, 2, 3}
	if out := Resample(in, 16000, 16000); len(out) != 3 {
		t.Errorf("same-rate resample changed length to %d", len(out))
	}
}

func TestResampleUpsampleInterpolates(t *testing.T) {
	in := []float32{0, 1}
	out := Resample(in, 8000, 16000)
	if len(out) != 4 {
		t.Fatalf("len = %d, want 4", len(out))
	}
	// Midpoint sample is linearly interpolated.
	if out[1] != 0.5 {
		t.Errorf("out[1] = %v, want 0.5", out[1])
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v, want 0", got)
	}
	if got := RMS([]float32{0.5, -0.5, 0.5, -0.5}); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("RMS = %v, want 0.5", got)
	}
}

func TestAudioPreprocessor(t *testing.T) {
	p := NewAudioPreprocessor()

	in := make([]float32, 8000)
	out := p.Preprocess(in, 8000)
	if len(out) != 16000 {
		t.Errorf("resampled len = %d, want 16000", len(out))
	}

	same := p.Preprocess(in, 16000)
	if len(same) != len(in) {
		t.Errorf("same-rate len = %d, want %d", len(same), len(in))
	}
}
