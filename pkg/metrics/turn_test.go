package metrics

import (
	"math"
	"testing"
)

// approx compares millisecond durations with a tolerance that absorbs
// float64 subtraction noise.
func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestComputeDerivedMetrics_FullTurn(t *testing.T) {
	turn := &Turn{
		TurnID:             1,
		UserSpeechStart:    9.5,
		UserSpeechEnd:      10.0,
		LLMProcessingStart: 10.2,
		LLMFirstToken:      10.3,
		LLMProcessingEnd:   10.32,
		TTSStart:           10.35,
		TTSFirstByte:       10.4,
		TTSEnd:             10.42,
		AudioPlaybackStart: 10.45,
	}

	m := ComputeDerivedMetrics(turn)

	want := map[string]float64{
		MetricEOUDelay:           200,
		MetricTTFT:               100,
		MetricTTFB:               50,
		MetricTotalLatency:       450,
		MetricLLMProcessingTime:  120,
		MetricTTSProcessingTime:  70,
		MetricUserSpeechDuration: 500,
	}

	if len(m) != len(want) {
		t.Fatalf("expected %d metrics, got %d: %v", len(want), len(m), m)
	}
	for key, expected := range want {
		got, ok := m[key]
		if !ok {
			t.Errorf("metric %s missing", key)
			continue
		}
		if !approx(got, expected) {
			t.Errorf("metric %s: expected %.3f, got %.3f", key, expected, got)
		}
	}
}

func TestComputeDerivedMetrics_MissingStamps(t *testing.T) {
	tests := []struct {
		name    string
		turn    Turn
		present []string
		absent  []string
	}{
		{
			name:    "empty turn yields no metrics",
			turn:    Turn{TurnID: 1},
			absent:  []string{MetricEOUDelay, MetricTTFT, MetricTTFB, MetricTotalLatency},
		},
		{
			name: "eou delay requires both stamps",
			turn: Turn{UserSpeechEnd: 10.0},
			absent: []string{MetricEOUDelay},
		},
		{
			name:    "llm start alone gives no eou delay",
			turn:    Turn{LLMProcessingStart: 10.2},
			absent:  []string{MetricEOUDelay, MetricTTFT},
		},
		{
			name:    "partial turn yields only the computable pair",
			turn:    Turn{UserSpeechEnd: 10.0, LLMProcessingStart: 10.2},
			present: []string{MetricEOUDelay},
			absent:  []string{MetricTTFT, MetricTTFB, MetricTotalLatency},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ComputeDerivedMetrics(&tt.turn)
			for _, key := range tt.present {
				if _, ok := m[key]; !ok {
					t.Errorf("expected metric %s to be present", key)
				}
			}
			for _, key := range tt.absent {
				if _, ok := m[key]; ok {
					t.Errorf("expected metric %s to be absent", key)
				}
			}
		})
	}
}

func TestComputeDerivedMetrics_SpecScenario(t *testing.T) {
	// Turn 1 carries the full stamp set, turns 2 and 3 are incomplete.
	turn1 := &Turn{
		TurnID:             1,
		UserSpeechEnd:      10.0,
		LLMProcessingStart: 10.2,
		LLMFirstToken:      10.3,
		TTSStart:           10.35,
		TTSFirstByte:       10.4,
		AudioPlaybackStart: 10.45,
	}
	turn2 := &Turn{TurnID: 2, LLMProcessingStart: 20.0, LLMFirstToken: 20.1}
	turn3 := &Turn{TurnID: 3}

	m1 := ComputeDerivedMetrics(turn1)
	if !approx(m1[MetricEOUDelay], 200) {
		t.Errorf("eou_delay: expected 200, got %.3f", m1[MetricEOUDelay])
	}
	if !approx(m1[MetricTTFT], 100) {
		t.Errorf("ttft: expected 100, got %.3f", m1[MetricTTFT])
	}
	if !approx(m1[MetricTTFB], 50) {
		t.Errorf("ttfb: expected 50, got %.3f", m1[MetricTTFB])
	}
	if !approx(m1[MetricTotalLatency], 450) {
		t.Errorf("total_latency: expected 450, got %.3f", m1[MetricTotalLatency])
	}

	// Only turn 1 has both eou_delay stamps, so the summary counts one value.
	summaries := summarize([]*Turn{turn1, turn2, turn3})
	for _, s := range summaries {
		if s.Header == "EOU Delay (ms)" {
			if s.Count != 1 {
				t.Errorf("eou_delay summary count: expected 1, got %d", s.Count)
			}
			return
		}
	}
	t.Error("eou_delay summary missing")
}
