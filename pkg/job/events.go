package job

import (
	"time"

	"github.com/livekit/protocol/livekit"
)

// EventType identifies a room event.
type EventType string

const (
	EventParticipantConnected    EventType = "participant_connected"
	EventParticipantDisconnected EventType = "participant_disconnected"
	EventTrackPublished          EventType = "track_published"
	EventTrackSubscribed         EventType = "track_subscribed"
	EventTrackUnsubscribed       EventType = "track_unsubscribed"
	EventDisconnected            EventType = "disconnected"
)

// Event is one room event with its associated metadata. Audio-track
// subscriptions additionally carry the frame source for the track.
type Event struct {
	Type        EventType
	Timestamp   time.Time
	Participant *livekit.ParticipantInfo
	Track       *livekit.TrackInfo

	// Audio delivers PCM frames for track_subscribed audio events.
	Audio *TrackAudioSource
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType EventType) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now(),
	}
}

// WithParticipant attaches participant information.
func (e *Event) WithParticipant(p *livekit.ParticipantInfo) *Event {
	e.Participant = p
	return e
}

// WithTrack attaches track information.
func (e *Event) WithTrack(t *livekit.TrackInfo) *Event {
	e.Track = t
	return e
}

// WithAudio attaches the audio source of a subscribed track.
func (e *Event) WithAudio(src *TrackAudioSource) *Event {
	e.Audio = src
	return e
}
