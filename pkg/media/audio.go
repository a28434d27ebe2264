package media

import (
	"encoding/binary"
	"math"
)

// DefaultSampleRate is the rate the stress analyzer expects.
const DefaultSampleRate = 16000

// DecodeAudio converts raw little-endian bytes in the declared format to
// float32 samples. Only "float32" is accepted.
func DecodeAudio(data []byte, format string) ([]float32, error) {
	if format != "float32" {
		return nil, ErrUnsupportedAudioFormat
	}
	if len(data)%4 != 0 {
		return nil, ErrAudioDecode
	}

	samples := make([]float32, len(data)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, nil
}

// Resample converts audio from one sample rate to another using linear
// interpolation. This is a simple resampler suitable for speech audio.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(samples) == 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	newLen := int(float64(len(samples)) / ratio)
	if newLen == 0 {
		return []float32{}
	}

	result := make([]float32, newLen)
	for i := 0; i < newLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		if srcIdx >= len(samples)-1 {
			result[i] = samples[len(samples)-1]
		} else {
			// Linear interpolation
			s1 := float64(samples[srcIdx])
			s2 := float64(samples[srcIdx+1])
			result[i] = float32(s1 + frac*(s2-s1))
		}
	}
	return result
}

// RMS calculates the root mean square of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// AudioPreprocessor resamples audio windows to the analyzer's rate.
// It is a total function: any sample buffer yields a valid output.
type AudioPreprocessor struct {
	TargetRate int
}

// NewAudioPreprocessor creates a preprocessor targeting 16 kHz.
func NewAudioPreprocessor() *AudioPreprocessor {
	return &AudioPreprocessor{TargetRate: DefaultSampleRate}
}

// Preprocess resamples the window to the target rate.
func (p *AudioPreprocessor) Preprocess(samples []float32, fromRate int) []float32 {
	if fromRate == p.TargetRate {
		return samples
	}
	return Resample(samples, fromRate, p.TargetRate)
}
