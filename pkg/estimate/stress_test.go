package estimate

import (
	"math"
	"testing"
)

// sineWave generates amplitude-scaled sine samples at the given frequency.
func sineWave(freq float64, amplitude float64, sampleRate, n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return samples
}

func TestStressShortWindowDefault(t *testing.T) {
	got := NewStressAnalyzer().Analyze(make([]float32, 100))
	want := DefaultStressResult()
	if got != want {
		t.Errorf("Analyze(short) = %+v, want %+v", got, want)
	}
}

func TestStressSilenceDefault(t *testing.T) {
	got := NewStressAnalyzer().Analyze(make([]float32, 16000))
	want := DefaultStressResult()
	if got != want {
		t.Errorf("Analyze(silence) = %+v, want %+v", got, want)
	}
	if got.Category != "low" || got.StressLevel != 0 {
		t.Errorf("silence category/level = %q/%v, want low/0", got.Category, got.StressLevel)
	}
}

func TestStressSteadyTone(t *testing.T) {
	samples := sineWave(440, 0.5, 16000, 16000)
	got := NewStressAnalyzer().Analyze(samples)

	// A steady tone has almost no pitch or energy variability.
	if got.StressLevel < 0 || got.StressLevel > 1 {
		t.Errorf("stress level = %v, want within [0, 1]", got.StressLevel)
	}
	if got.Category != "low" {
		t.Errorf("category = %q, want low (level %v)", got.Category, got.StressLevel)
	}
	if got.Confidence <= 0 {
		t.Errorf("confidence = %v, want > 0", got.Confidence)
	}
	if got.SignalQuality != 1 {
		t.Errorf("signal quality = %v, want 1 for fully voiced audio", got.SignalQuality)
	}
}

func TestStressVariableSignalScoresHigher(t *testing.T) {
	steady := sineWave(440, 0.5, 16000, 16000)

	// Alternate pitch and amplitude per segment to raise variability.
	variable := make([]float32, 0, 16000)
	for i := 0; i < 8; i++ {
		freq := 200.0 + float64(i%4)*900.0
		amp := 0.1 + float64(i%3)*0.3
		variable = append(variable, sineWave(freq, amp, 16000, 2000)...)
	}

	a := NewStressAnalyzer()
	steadyLevel := a.Analyze(steady).StressLevel
	variableLevel := a.Analyze(variable).StressLevel

	if variableLevel <= steadyLevel {
		t.Errorf("variable level %v <= steady level %v", variableLevel, steadyLevel)
	}
}

func TestClassifyStress(t *testing.T) {
	tests := []struct {
		level float64
		want  string
	}{
		{0, "low"},
		{0.32, "low"},
		{0.33, "medium"},
		{0.5, "medium"},
		{0.66, "high"},
		{1, "high"},
	}

	for _, tt := range tests {
		if got := classifyStress(tt.level); got != tt.want {
			t.Errorf("classifyStress(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestZeroCrossings(t *testing.T) {
	if got := zeroCrossings([]float32{1, -1, 1, -1}); got != 3 {
		t.Errorf("zeroCrossings = %d, want 3", got)
	}
	if got := zeroCrossings([]float32{1, 1, 1}); got != 0 {
		t.Errorf("zeroCrossings = %d, want 0", got)
	}
}
