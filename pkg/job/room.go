package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go"
	"github.com/pion/webrtc/v3"
)

// Room wraps the LiveKit connection and translates SDK callbacks into an
// Event channel consumed by the session's dispatch loop. Audio tracks
// published by remote participants are subscribed explicitly as they
// appear.
type Room struct {
	Events chan *Event

	room   *lksdk.Room
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.RWMutex
	connected    bool
	eventsClosed bool
	participants map[string]*livekit.ParticipantInfo
}

// RoomConfig configures the room connection.
type RoomConfig struct {
	URL             string
	Token           string
	RoomName        string
	EventBufferSize int // default 100
}

// NewRoom creates a Room wrapper. Connect establishes the connection.
func NewRoom(ctx context.Context, config RoomConfig) (*Room, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if config.Token == "" {
		return nil, fmt.Errorf("token is required")
	}
	if config.RoomName == "" {
		return nil, fmt.Errorf("room name is required")
	}

	bufferSize := config.EventBufferSize
	if bufferSize == 0 {
		bufferSize = 100
	}

	roomCtx, cancel := context.WithCancel(ctx)
	return &Room{
		Events:       make(chan *Event, bufferSize),
		ctx:          roomCtx,
		cancel:       cancel,
		participants: make(map[string]*livekit.ParticipantInfo),
	}, nil
}

// Connect joins the LiveKit room.
func (r *Room) Connect(config RoomConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connected {
		return fmt.Errorf("room is already connected")
	}

	callback := &lksdk.RoomCallback{
		OnParticipantConnected:    r.onParticipantConnected,
		OnParticipantDisconnected: r.onParticipantDisconnected,
		OnDisconnected:            r.onDisconnected,
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackPublished:    r.onTrackPublished,
			OnTrackSubscribed:   r.onTrackSubscribed,
			OnTrackUnsubscribed: r.onTrackUnsubscribed,
		},
	}

	room, err := lksdk.ConnectToRoomWithToken(config.URL, config.Token, callback)
	if err != nil {
		return fmt.Errorf("failed to connect to room: %w", err)
	}

	r.room = room
	r.connected = true

	slog.Info("connected to LiveKit room",
		slog.String("room_name", config.RoomName),
		slog.String("url", config.URL))
	return nil
}

// Disconnect leaves the room and closes the event channel.
func (r *Room) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancel()

	if r.connected {
		r.connected = false
		if r.room != nil {
			r.room.Disconnect()
		}
		slog.Info("disconnected from LiveKit room")
	}

	if !r.eventsClosed {
		close(r.Events)
		r.eventsClosed = true
	}
	return nil
}

// IsConnected reports the connection state.
func (r *Room) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected
}

// LocalIdentity returns the local participant identity, or "" before
// connecting.
func (r *Room) LocalIdentity() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.room == nil {
		return ""
	}
	return r.room.LocalParticipant.Identity()
}

// Participants returns a snapshot of the remote participants.
func (r *Room) Participants() map[string]*livekit.ParticipantInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*livekit.ParticipantInfo, len(r.participants))
	for k, v := range r.participants {
		out[k] = v
	}
	return out
}

func participantInfo(p *lksdk.RemoteParticipant, state livekit.ParticipantInfo_State) *livekit.ParticipantInfo {
	return &livekit.ParticipantInfo{
		Sid:      p.SID(),
		Identity: p.Identity(),
		State:    state,
	}
}

func trackInfo(pub *lksdk.RemoteTrackPublication) *livekit.TrackInfo {
	return &livekit.TrackInfo{
		Sid:  pub.SID(),
		Name: pub.Name(),
		Type: pub.Kind().ProtoType(),
	}
}

func (r *Room) onParticipantConnected(participant *lksdk.RemoteParticipant) {
	info := participantInfo(participant, livekit.ParticipantInfo_ACTIVE)

	r.mu.Lock()
	r.participants[participant.Identity()] = info
	r.mu.Unlock()

	r.sendEvent(NewEvent(EventParticipantConnected).WithParticipant(info))

	slog.Info("participant connected",
		slog.String("identity", participant.Identity()),
		slog.String("sid", participant.SID()))
}

func (r *Room) onParticipantDisconnected(participant *lksdk.RemoteParticipant) {
	info := participantInfo(participant, livekit.ParticipantInfo_DISCONNECTED)

	r.mu.Lock()
	delete(r.participants, participant.Identity())
	r.mu.Unlock()

	r.sendEvent(NewEvent(EventParticipantDisconnected).WithParticipant(info))

	slog.Info("participant disconnected",
		slog.String("identity", participant.Identity()))
}

// onTrackPublished subscribes to remote audio tracks as they appear.
func (r *Room) onTrackPublished(publication *lksdk.RemoteTrackPublication, participant *lksdk.RemoteParticipant) {
	info := participantInfo(participant, livekit.ParticipantInfo_ACTIVE)

	r.sendEvent(NewEvent(EventTrackPublished).
		WithParticipant(info).
		WithTrack(trackInfo(publication)))

	slog.Info("track published",
		slog.String("participant", participant.Identity()),
		slog.String("kind", publication.Kind().String()))

	if publication.Kind() == lksdk.TrackKindAudio {
		if err := publication.SetSubscribed(true); err != nil {
			slog.Error("failed to subscribe to audio track",
				slog.String("participant", participant.Identity()),
				slog.String("error", err.Error()))
		}
	}
}

func (r *Room) onTrackSubscribed(track *webrtc.TrackRemote, publication *lksdk.RemoteTrackPublication, participant *lksdk.RemoteParticipant) {
	info := participantInfo(participant, livekit.ParticipantInfo_ACTIVE)
	event := NewEvent(EventTrackSubscribed).
		WithParticipant(info).
		WithTrack(trackInfo(publication))

	if publication.Kind() == lksdk.TrackKindAudio {
		event = event.WithAudio(NewTrackAudioSource(r.ctx, track))
	}
	r.sendEvent(event)

	slog.Info("track subscribed",
		slog.String("participant", participant.Identity()),
		slog.String("track_sid", publication.SID()),
		slog.String("kind", publication.Kind().String()))
}

func (r *Room) onTrackUnsubscribed(track *webrtc.TrackRemote, publication *lksdk.RemoteTrackPublication, participant *lksdk.RemoteParticipant) {
	info := participantInfo(participant, livekit.ParticipantInfo_ACTIVE)
	r.sendEvent(NewEvent(EventTrackUnsubscribed).
		WithParticipant(info).
		WithTrack(trackInfo(publication)))
}

func (r *Room) onDisconnected() {
	r.sendEvent(NewEvent(EventDisconnected))
}

// sendEvent delivers to the Events channel, dropping when the buffer is
// full rather than blocking an SDK callback.
func (r *Room) sendEvent(event *Event) {
	r.mu.RLock()
	closed := r.eventsClosed
	r.mu.RUnlock()
	if closed {
		return
	}

	select {
	case r.Events <- event:
	case <-r.ctx.Done():
	default:
		slog.Warn("room event buffer full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}
