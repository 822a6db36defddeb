package job

import (
	"context"
	"testing"
)

func TestNewRoom(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		config  RoomConfig
		wantErr bool
	}{
		{
			name: "valid config",
			config: RoomConfig{
				URL:      "wss://demo.livekit.cloud",
				Token:    "token",
				RoomName: "demo-room",
			},
			wantErr: false,
		},
		{
			name:    "missing URL",
			config:  RoomConfig{Token: "token", RoomName: "demo-room"},
			wantErr: true,
		},
		{
			name:    "missing token",
			config:  RoomConfig{URL: "wss://demo.livekit.cloud", RoomName: "demo-room"},
			wantErr: true,
		},
		{
			name:    "missing room name",
			config:  RoomConfig{URL: "wss://demo.livekit.cloud", Token: "token"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, err := NewRoom(ctx, tt.config)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if room.Events == nil {
				t.Error("events channel should not be nil")
			}
			if room.IsConnected() {
				t.Error("new room should not be connected")
			}
			if room.LocalIdentity() != "" {
				t.Error("local identity should be empty before connecting")
			}
		})
	}
}

func TestRoom_DisconnectWithoutConnect(t *testing.T) {
	room, err := NewRoom(context.Background(), RoomConfig{
		URL:      "wss://demo.livekit.cloud",
		Token:    "token",
		RoomName: "demo-room",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Disconnect on a never-connected room is clean and idempotent.
	if err := room.Disconnect(); err != nil {
		t.Errorf("disconnect failed: %v", err)
	}
	if err := room.Disconnect(); err != nil {
		t.Errorf("second disconnect failed: %v", err)
	}

	// The event channel must be closed, not left dangling.
	if _, ok := <-room.Events; ok {
		t.Error("events channel should be closed after disconnect")
	}
}

func TestRoom_SendEventAfterClose(t *testing.T) {
	room, err := NewRoom(context.Background(), RoomConfig{
		URL:             "wss://demo.livekit.cloud",
		Token:           "token",
		RoomName:        "demo-room",
		EventBufferSize: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	room.Disconnect()
	// Late SDK callbacks must not panic on the closed channel.
	room.sendEvent(NewEvent(EventParticipantConnected))
}

func TestRoom_EventBufferOverflowDropsInsteadOfBlocking(t *testing.T) {
	room, err := NewRoom(context.Background(), RoomConfig{
		URL:             "wss://demo.livekit.cloud",
		Token:           "token",
		RoomName:        "demo-room",
		EventBufferSize: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Without a consumer, the third event must be dropped, not deadlock.
	for i := 0; i < 3; i++ {
		room.sendEvent(NewEvent(EventTrackPublished))
	}
	if got := len(room.Events); got != 2 {
		t.Errorf("expected 2 buffered events, got %d", got)
	}
}
