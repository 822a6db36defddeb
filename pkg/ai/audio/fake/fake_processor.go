// Package fake provides a pass-through audio processor for tests.
package fake

import (
	"sync/atomic"
	"time"

	"github.com/echolabs-dev/voicelat/pkg/ai/audio"
	"github.com/echolabs-dev/voicelat/pkg/rtc"
)

// FakeProcessor passes frames through unchanged and counts calls so
// tests can assert the capture path ran through it.
type FakeProcessor struct {
	config audio.ProcessorConfig
	closed bool

	CaptureCalls atomic.Int64
	ReverseCalls atomic.Int64
}

func NewFakeProcessor() *FakeProcessor {
	return &FakeProcessor{config: audio.NewProcessorConfig()}
}

func NewFakeProcessorWithConfig(config audio.ProcessorConfig) *FakeProcessor {
	return &FakeProcessor{config: config}
}

func (p *FakeProcessor) ProcessReverse(frame rtc.AudioFrame) error {
	if p.closed {
		return audio.ErrFatal
	}
	p.ReverseCalls.Add(1)
	return nil
}

func (p *FakeProcessor) ProcessCapture(frame *rtc.AudioFrame) error {
	if p.closed {
		return audio.ErrFatal
	}
	p.CaptureCalls.Add(1)
	return nil
}

func (p *FakeProcessor) SetStreamDelay(d time.Duration) error {
	if p.closed {
		return audio.ErrFatal
	}
	return nil
}

func (p *FakeProcessor) Close() error {
	p.closed = true
	return nil
}
