package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := ProjectChannel(uuid.New())

	clientA := hub.NewSSEClient()
	hub.AddChannel(clientA, channel)

	first := SSEMessage{Channel: channel, Event: SSEEventRunStarted, Data: map[string]any{"seq": 1}}
	second := SSEMessage{Channel: channel, Event: SSEEventPhaseStarted, Data: map[string]any{"seq": 2}}
	hub.Broadcast(first)
	hub.Broadcast(second)

	gotFirst := recvMessage(t, clientA.Outbound, time.Second)
	gotSecond := recvMessage(t, clientA.Outbound, time.Second)
	if gotFirst.Event != SSEEventRunStarted {
		t.Fatalf("first event: want=%s got=%s", SSEEventRunStarted, gotFirst.Event)
	}
	if gotSecond.Event != SSEEventPhaseStarted {
		t.Fatalf("second event: want=%s got=%s", SSEEventPhaseStarted, gotSecond.Event)
	}

	hub.CloseClient(clientA)
	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}

	clientB := hub.NewSSEClient()
	hub.AddChannel(clientB, channel)
	reconnect := SSEMessage{Channel: channel, Event: SSEEventRunSucceeded, Data: map[string]any{"seq": 3}}
	hub.Broadcast(reconnect)
	gotReconnect := recvMessage(t, clientB.Outbound, time.Second)
	if gotReconnect.Event != SSEEventRunSucceeded {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventRunSucceeded, gotReconnect.Event)
	}
}

func TestSSEHubDeliversRepeatedEvents(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := ProjectChannel(uuid.New())
	client := hub.NewSSEClient()
	hub.AddChannel(client, channel)

	dup := SSEMessage{Channel: channel, Event: SSEEventPhaseFinished, Data: map[string]any{"phase": "foundation"}}
	hub.Broadcast(dup)
	hub.Broadcast(dup)

	gotOne := recvMessage(t, client.Outbound, time.Second)
	gotTwo := recvMessage(t, client.Outbound, time.Second)
	if gotOne.Event != SSEEventPhaseFinished || gotTwo.Event != SSEEventPhaseFinished {
		t.Fatalf("expected repeated transition events to be delivered, got=%s and %s", gotOne.Event, gotTwo.Event)
	}
}

func TestSSEHubChannelIsolation(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	chanA := ProjectChannel(uuid.New())
	chanB := ProjectChannel(uuid.New())

	clientA := hub.NewSSEClient()
	hub.AddChannel(clientA, chanA)
	clientB := hub.NewSSEClient()
	hub.AddChannel(clientB, chanB)

	hub.Broadcast(SSEMessage{Channel: chanA, Event: SSEEventRunFailed})

	got := recvMessage(t, clientA.Outbound, time.Second)
	if got.Channel != chanA {
		t.Fatalf("channel = %s, want %s", got.Channel, chanA)
	}
	select {
	case msg := <-clientB.Outbound:
		t.Fatalf("clientB received cross-channel message %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}
