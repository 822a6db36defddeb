package job

import (
	"context"
	"log/slog"

	"github.com/pion/webrtc/v3"

	"github.com/echolabs-dev/voicelat/pkg/rtc"
)

// TrackAudioSource pulls media from a subscribed remote track and
// delivers it as PCM frames. Payloads are forwarded as-is; tracks must
// carry linear16 audio (compressed codecs need a decoder in front of the
// STT provider, which handles containerized input server-side).
type TrackAudioSource struct {
	track  *webrtc.TrackRemote
	frames chan rtc.AudioFrame
}

// NewTrackAudioSource starts reading the track. The frame channel closes
// when the track ends or ctx is cancelled.
func NewTrackAudioSource(ctx context.Context, track *webrtc.TrackRemote) *TrackAudioSource {
	src := &TrackAudioSource{
		track:  track,
		frames: make(chan rtc.AudioFrame, 64),
	}
	go src.readLoop(ctx)
	return src
}

// Frames returns the PCM frame channel.
func (s *TrackAudioSource) Frames() <-chan rtc.AudioFrame {
	return s.frames
}

func (s *TrackAudioSource) readLoop(ctx context.Context) {
	defer close(s.frames)

	sampleRate := int(s.track.Codec().ClockRate)
	if sampleRate == 0 {
		sampleRate = 48000
	}
	channels := int(s.track.Codec().Channels)
	if channels == 0 {
		channels = 1
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pkt, _, err := s.track.ReadRTP()
		if err != nil {
			if ctx.Err() == nil {
				slog.Debug("track read ended", slog.String("error", err.Error()))
			}
			return
		}
		if len(pkt.Payload) == 0 {
			continue
		}

		frame := rtc.AudioFrame{
			Data:              pkt.Payload,
			SampleRate:        sampleRate,
			SamplesPerChannel: len(pkt.Payload) / (channels * 2),
			NumChannels:       channels,
		}

		select {
		case s.frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}
