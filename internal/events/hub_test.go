package events

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skypro1111/live-transcribe-service/internal/audio"
	"github.com/skypro1111/live-transcribe-service/internal/transcript"
)

func testHub(t *testing.T) (*Hub, *websocket.Conn, func()) {
	t.Helper()

	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial hub: %v", err)
	}

	cleanup := func() {
		conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		hub.Close(ctx)
		cancel()
		server.Close()
	}
	return hub, conn, cleanup
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event map[string]interface{}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	return event
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.GetStats().Clients >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d clients", n)
}

func TestHubBroadcastsLevelEvents(t *testing.T) {
	hub, conn, cleanup := testHub(t)
	defer cleanup()
	waitForClients(t, hub, 1)

	hub.PublishLevel(audio.LevelSample{Level: 0.4, Timestamp: 1234})

	event := readEvent(t, conn)
	if event["type"] != TypeAudioLevel {
		t.Errorf("Expected %s event, got %v", TypeAudioLevel, event["type"])
	}

	data, ok := event["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data object, got %T", event["data"])
	}
	if data["level"] != 0.4 {
		t.Errorf("Expected level 0.4, got %v", data["level"])
	}
}

func TestHubBroadcastsTranscriptionEvents(t *testing.T) {
	hub, conn, cleanup := testHub(t)
	defer cleanup()
	waitForClients(t, hub, 1)

	hub.PublishTranscription(transcript.Result{
		Text:       "hello world",
		Confidence: 0.9,
		Timestamp:  1234,
		IsFinal:    true,
	})

	event := readEvent(t, conn)
	if event["type"] != TypeTranscription {
		t.Errorf("Expected %s event, got %v", TypeTranscription, event["type"])
	}

	data := event["data"].(map[string]interface{})
	if data["text"] != "hello world" {
		t.Errorf("Expected transcript text, got %v", data["text"])
	}
	if data["is_final"] != true {
		t.Errorf("Expected final flag, got %v", data["is_final"])
	}
}

func TestHubTracksClientLifecycle(t *testing.T) {
	hub, conn, cleanup := testHub(t)
	defer cleanup()
	waitForClients(t, hub, 1)

	conn.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.GetStats().Clients == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("Expected client to be unregistered after disconnect")
}

func TestNopSinkDiscards(t *testing.T) {
	var sink Sink = NopSink{}
	sink.PublishLevel(audio.LevelSample{Level: 0.1})
	sink.PublishTranscription(transcript.Result{Text: "x"})
	sink.PublishResponse(SuggestedResponse{Text: "y"})
}
