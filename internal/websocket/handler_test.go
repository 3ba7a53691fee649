package websocket

import (
	"encoding/json"
	"testing"
)

func TestJoinDeniedPayloadEscapesRoom(t *testing.T) {
	room := `conversation:"};bad`
	var got struct {
		Event string `json:"event"`
		Room  string `json:"room"`
	}
	if err := json.Unmarshal(joinDeniedPayload(room), &got); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if got.Event != "join_denied" {
		t.Errorf("event = %q", got.Event)
	}
	if got.Room != room {
		t.Errorf("room = %q, want %q", got.Room, room)
	}
}
