package session

import (
	"encoding/json"
	"errors"
	"testing"

	"mockly/internal/config"
	"mockly/internal/speech"
)

func TestBridgeDetachedEngineFails(t *testing.T) {
	bridge := NewBridge(nil)

	if err := bridge.Start(); !errors.Is(err, errBridgeDetached) {
		t.Fatalf("expected detached error, got %v", err)
	}
	if err := bridge.Speak(speech.Utterance{Text: "hello"}); !errors.Is(err, errBridgeDetached) {
		t.Fatalf("expected detached error, got %v", err)
	}
}

func TestBridgeRoutesRecognition(t *testing.T) {
	bridge := NewBridge(nil)
	capture := speech.NewCapture(bridge, nil)
	bridge.Bind(capture, speech.NewSpeaker(bridge, config.SpeechConfig{}, nil))

	bridge.HandleInbound("recognition", json.RawMessage(`{"text":"hello there","isFinal":true}`))

	select {
	case snapshot := <-capture.Snapshots():
		if snapshot.Text != "hello there" || !snapshot.Final {
			t.Fatalf("unexpected snapshot %+v", snapshot)
		}
	default:
		t.Fatal("expected a transcript snapshot")
	}
}

func TestBridgePausedState(t *testing.T) {
	bridge := NewBridge(nil)

	if bridge.Paused() {
		t.Fatal("bridge should start unpaused")
	}
	bridge.HandleInbound("speech_paused", json.RawMessage(`{"paused":true}`))
	if !bridge.Paused() {
		t.Fatal("expected paused after browser report")
	}
}

func TestBridgeVoices(t *testing.T) {
	bridge := NewBridge(nil)
	bridge.HandleInbound("voices", json.RawMessage(`{"voices":["Google UK English Female","Samantha"]}`))

	voices := bridge.Voices()
	if len(voices) != 2 || voices[0] != "Google UK English Female" {
		t.Fatalf("unexpected voices %v", voices)
	}
}

func TestBridgeIgnoresMalformedPayloads(t *testing.T) {
	bridge := NewBridge(nil)
	capture := speech.NewCapture(bridge, nil)
	bridge.Bind(capture, speech.NewSpeaker(bridge, config.SpeechConfig{}, nil))

	bridge.HandleInbound("recognition", json.RawMessage(`not json`))
	bridge.HandleInbound("unknown_type", json.RawMessage(`{}`))

	select {
	case snapshot := <-capture.Snapshots():
		t.Fatalf("unexpected snapshot %+v", snapshot)
	default:
	}
}

func TestBridgesRegistry(t *testing.T) {
	bridges := NewBridges(nil)
	created := bridges.Create("sess-1")

	got, ok := bridges.Get("sess-1")
	if !ok || got != created {
		t.Fatalf("expected registered bridge, got %v ok=%v", got, ok)
	}

	bridges.Remove("sess-1")
	if _, ok := bridges.Get("sess-1"); ok {
		t.Fatal("expected bridge removed")
	}
}
