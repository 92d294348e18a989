package ai

import (
	"testing"
	"time"

	"mockly/internal/model/interview"
)

func message(sender interview.Sender, text string) interview.Message {
	return interview.Message{Sender: sender, Text: text, CreatedAt: time.Now().UTC()}
}

func TestBuildHistoryDropsTrailingUserMessage(t *testing.T) {
	history := buildHistory([]interview.Message{
		message(interview.SenderAI, "Tell me about yourself."),
		message(interview.SenderUser, "I write Go services."),
	})

	if len(history) != 1 {
		t.Fatalf("expected trailing user message dropped, got %d entries", len(history))
	}
	if history[0].Content != "Tell me about yourself." {
		t.Fatalf("unexpected history content %q", history[0].Content)
	}
}

func TestBuildHistoryLimit(t *testing.T) {
	var messages []interview.Message
	for i := 0; i < 20; i++ {
		messages = append(messages, message(interview.SenderAI, "question"))
	}

	if got := len(buildHistory(messages)); got != historyLimit {
		t.Fatalf("expected history capped at %d, got %d", historyLimit, got)
	}
}

func TestBuildHistoryEmpty(t *testing.T) {
	if buildHistory(nil) != nil {
		t.Fatal("expected nil history for empty timeline")
	}
	only := []interview.Message{message(interview.SenderUser, "hello")}
	if buildHistory(only) != nil {
		t.Fatal("a lone user message should yield no history")
	}
}
