// Package metrics tracks per-turn latency of a voice conversation and
// exports the collected numbers to a spreadsheet report.
//
// A Turn is one user-utterance-to-assistant-response exchange. Lifecycle
// callbacks stamp wall-clock times on the current turn as the pipeline
// progresses (end of user speech, first LLM token, first TTS byte, playback
// start) and the tracker derives human-meaningful latencies from the pairs
// that are present.
package metrics

import "time"

// Turn holds the raw timestamps for a single conversation turn.
// Timestamp fields are wall-clock seconds since the Unix epoch; zero means
// the stamp was never taken. A stamp, once set, is never overwritten.
type Turn struct {
	TurnID    int
	Timestamp string // ISO-8601 creation time

	UserSpeechStart    float64
	UserSpeechEnd      float64 // end of utterance
	LLMProcessingStart float64
	LLMFirstToken      float64
	LLMProcessingEnd   float64
	TTSStart           float64
	TTSFirstByte       float64
	TTSEnd             float64
	AudioPlaybackStart float64
	AudioPlaybackEnd   float64

	UserText      string
	AssistantText string
}

// Derived metric keys produced by ComputeDerivedMetrics.
const (
	MetricEOUDelay           = "eou_delay"
	MetricTTFT               = "ttft"
	MetricTTFB               = "ttfb"
	MetricTotalLatency       = "total_latency"
	MetricLLMProcessingTime  = "llm_processing_time"
	MetricTTSProcessingTime  = "tts_processing_time"
	MetricUserSpeechDuration = "user_speech_duration"
)

// MetricColumns is the fixed column order used by the exported report.
// Each entry pairs a derived metric key with its report header.
var MetricColumns = []struct {
	Key    string
	Header string
}{
	{MetricEOUDelay, "EOU Delay (ms)"},
	{MetricTTFT, "TTFT (ms)"},
	{MetricTTFB, "TTFB (ms)"},
	{MetricTotalLatency, "Total Latency (ms)"},
	{MetricLLMProcessingTime, "LLM Processing Time (ms)"},
	{MetricTTSProcessingTime, "TTS Processing Time (ms)"},
	{MetricUserSpeechDuration, "User Speech Duration (ms)"},
}

// ComputeDerivedMetrics derives latency metrics in milliseconds from the
// timestamps present on the turn. A metric is included only when both of
// its required stamps are set; a missing stamp never contributes a zero.
//
// Values keep full float64 precision. Rounding, where wanted, happens at
// the display boundary (CSV fallback and log lines), not here.
func ComputeDerivedMetrics(t *Turn) map[string]float64 {
	out := make(map[string]float64)

	span := func(key string, start, end float64) {
		if start != 0 && end != 0 {
			out[key] = (end - start) * 1000
		}
	}

	span(MetricEOUDelay, t.UserSpeechEnd, t.LLMProcessingStart)
	span(MetricTTFT, t.LLMProcessingStart, t.LLMFirstToken)
	span(MetricTTFB, t.TTSStart, t.TTSFirstByte)
	span(MetricTotalLatency, t.UserSpeechEnd, t.AudioPlaybackStart)
	span(MetricLLMProcessingTime, t.LLMProcessingStart, t.LLMProcessingEnd)
	span(MetricTTSProcessingTime, t.TTSStart, t.TTSEnd)
	span(MetricUserSpeechDuration, t.UserSpeechStart, t.UserSpeechEnd)

	return out
}

// wallSeconds returns the current wall-clock time as epoch seconds.
func wallSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
