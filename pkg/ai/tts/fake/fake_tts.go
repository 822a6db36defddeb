// Package fake provides a silence-generating TTS implementation for tests.
package fake

import (
	"context"
	"time"

	"github.com/echolabs-dev/voicelat/pkg/ai/tts"
	"github.com/echolabs-dev/voicelat/pkg/rtc"
)

// FakeTTS produces a fixed number of 10ms silence frames per request.
type FakeTTS struct {
	// FramesPerRequest controls how much audio each request yields.
	// Defaults to 10 (100ms).
	FramesPerRequest int
}

func NewFakeTTS() *FakeTTS {
	return &FakeTTS{FramesPerRequest: 10}
}

func (f *FakeTTS) Synthesize(ctx context.Context, req tts.SynthesizeRequest) (<-chan rtc.AudioFrame, error) {
	count := f.FramesPerRequest
	if count <= 0 {
		count = 10
	}

	out := make(chan rtc.AudioFrame, count)
	go func() {
		defer close(out)

		sampleRate := 48000
		samplesPerChannel := sampleRate / 100
		for i := 0; i < count; i++ {
			frame := rtc.AudioFrame{
				Data:              make([]byte, samplesPerChannel*2),
				SampleRate:        sampleRate,
				SamplesPerChannel: samplesPerChannel,
				NumChannels:       1,
				Timestamp:         time.Duration(i) * 10 * time.Millisecond,
			}
			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (f *FakeTTS) Capabilities() tts.Capabilities {
	return tts.Capabilities{
		Streaming:          true,
		SupportedLanguages: []string{"en"},
		SupportedVoices:    []string{"silence"},
		SampleRates:        []int{48000},
	}
}
