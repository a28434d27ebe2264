package estimate

import (
	"math"

	"github.com/eaglearn/go-sense/pkg/media"
)

// Stress category boundaries on the 0-1 stress level.
const (
	stressLowMax    = 0.33
	stressMediumMax = 0.66
)

// silenceRMS is the per-frame energy below which audio is treated as
// silence.
const silenceRMS = 1e-4

// audioFrameSize is the analysis frame length in samples.
const audioFrameSize = 512

// StressAnalyzer estimates vocal stress from an audio window. It is total:
// an empty or silent window yields the zero-stress default.
type StressAnalyzer struct {
	SampleRate int
}

// NewStressAnalyzer creates an analyzer expecting 16 kHz audio.
func NewStressAnalyzer() *StressAnalyzer {
	return &StressAnalyzer{SampleRate: media.DefaultSampleRate}
}

// audioFeatures holds the per-window features the stress model combines.
type audioFeatures struct {
	energyMean   float64
	energyStd    float64
	pitchMean    float64
	pitchStd     float64
	speakingRate float64
	centroid     float64
	voicedRatio  float64
}

// Analyze returns the stress estimate for one audio window.
func (a *StressAnalyzer) Analyze(samples []float32) StressResult {
	if len(samples) < audioFrameSize {
		return DefaultStressResult()
	}

	f := a.extractFeatures(samples)
	if f.voicedRatio == 0 {
		return DefaultStressResult()
	}

	level := a.stressLevel(f)

	return StressResult{
		StressLevel:   level,
		Category:      classifyStress(level),
		Confidence:    a.confidence(samples, f),
		SignalQuality: f.voicedRatio,
	}
}

// extractFeatures computes energy, pitch-proxy, and rate features over
// fixed-size frames.
func (a *StressAnalyzer) extractFeatures(samples []float32) audioFeatures {
	var energies, pitches []float64
	var onsets int
	prevEnergy := 0.0

	for off := 0; off+audioFrameSize <= len(samples); off += audioFrameSize / 2 {
		frame := samples[off : off+audioFrameSize]

		energy := media.RMS(frame)
		energies = append(energies, energy)

		if energy >= silenceRMS {
			// Zero-crossing rate doubles as a coarse pitch proxy.
			zc := zeroCrossings(frame)
			pitch := float64(zc) / 2.0 * float64(a.SampleRate) / float64(len(frame))
			pitches = append(pitches, pitch)
		}

		// Energy onsets approximate syllable starts.
		if prevEnergy < silenceRMS && energy >= silenceRMS*4 {
			onsets++
		}
		prevEnergy = energy
	}

	if len(energies) == 0 {
		return audioFeatures{}
	}

	energyMean, energyStd := meanStd(energies)
	pitchMean, pitchStd := meanStd(pitches)

	windowSec := float64(len(samples)) / float64(a.SampleRate)
	speakingRate := 0.0
	if windowSec > 0 {
		speakingRate = float64(onsets) / windowSec * 60.0 // per minute
	}

	return audioFeatures{
		energyMean:   energyMean,
		energyStd:    energyStd,
		pitchMean:    pitchMean,
		pitchStd:     pitchStd,
		speakingRate: speakingRate,
		centroid:     pitchMean, // spectral centroid proxy
		voicedRatio:  float64(len(pitches)) / float64(len(energies)),
	}
}

// stressLevel combines normalized features with fixed weights.
func (a *StressAnalyzer) stressLevel(f audioFeatures) float64 {
	pitchStress := math.Min(f.pitchStd/100.0, 1.0)
	energyStress := math.Min(f.energyStd/0.1, 1.0)
	speakingStress := math.Min(f.speakingRate/200.0, 1.0)
	spectralStress := math.Min(f.centroid/5000.0, 1.0)

	variability := 0.0
	if f.pitchMean > 0 {
		variability = math.Min(f.pitchStd/f.pitchMean/0.5, 1.0)
	}

	level := 0.25*pitchStress +
		0.20*energyStress +
		0.20*speakingStress +
		0.20*spectralStress +
		0.15*variability

	return clamp01(level)
}

// confidence scores audio quality: enough samples and enough energy.
func (a *StressAnalyzer) confidence(samples []float32, f audioFeatures) float64 {
	minSamples := float64(a.SampleRate) * 0.5
	lengthScore := math.Min(float64(len(samples))/minSamples, 1.0)
	energyScore := math.Min(f.energyMean/0.01, 1.0)
	return clamp01((lengthScore + energyScore) / 2.0)
}

func classifyStress(level float64) string {
	switch {
	case level < stressLowMax:
		return "low"
	case level < stressMediumMax:
		return "medium"
	default:
		return "high"
	}
}

func zeroCrossings(frame []float32) int {
	var n int
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0) != (frame[i] >= 0) {
			n++
		}
	}
	return n
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}
