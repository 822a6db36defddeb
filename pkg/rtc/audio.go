// Package rtc holds the media types exchanged between the room transport
// and the AI providers.
package rtc

import (
	"fmt"
	"time"
)

// Sample rates the pipeline works with.
const (
	SampleRate48k = 48000
	SampleRate16k = 16000
)

// AudioFrame is 10 ms of 16-bit little-endian PCM.
// len(Data) == SamplesPerChannel * NumChannels * 2.
type AudioFrame struct {
	Data              []byte
	SampleRate        int // 48000 or 16000
	SamplesPerChannel int // SampleRate / 100
	NumChannels       int // 1 or 2
	Timestamp         time.Duration
}

// NewAudioFrame validates the data length against the frame geometry.
func NewAudioFrame(data []byte, sampleRate, numChannels int, timestamp time.Duration) (*AudioFrame, error) {
	samplesPerChannel := sampleRate / 100
	expected := samplesPerChannel * numChannels * 2
	if len(data) != expected {
		return nil, fmt.Errorf("audio frame length mismatch: got %d bytes, expected %d for %dHz %d-channel 10ms audio",
			len(data), expected, sampleRate, numChannels)
	}
	return &AudioFrame{
		Data:              data,
		SampleRate:        sampleRate,
		SamplesPerChannel: samplesPerChannel,
		NumChannels:       numChannels,
		Timestamp:         timestamp,
	}, nil
}

// Duration returns the play time of the frame, always 10 ms.
func (f *AudioFrame) Duration() time.Duration {
	return 10 * time.Millisecond
}
