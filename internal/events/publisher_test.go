package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestWatermillPublisher_GoChannel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher, pubSub := NewGoChannelPublisher(logger)
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, TopicAttempts)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	score := 12.5
	event := NewEvent(EventAttemptSubmitted, AttemptEvent{AttemptID: 3, ExamID: 7, UserID: "u-1", TotalScore: &score})
	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if msg.UUID != event.ID {
			t.Errorf("message uuid = %s, want %s", msg.UUID, event.ID)
		}
		if got := msg.Metadata.Get("event_type"); got != string(EventAttemptSubmitted) {
			t.Errorf("event_type metadata = %q", got)
		}

		var decoded struct {
			Type EventType    `json:"type"`
			Data AttemptEvent `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
			t.Fatalf("payload decode error = %v", err)
		}
		if decoded.Data.AttemptID != 3 || decoded.Data.TotalScore == nil || *decoded.Data.TotalScore != 12.5 {
			t.Errorf("decoded payload = %+v", decoded.Data)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestEventType_Topic(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventAttemptStarted, TopicAttempts},
		{EventAttemptPaused, TopicAttempts},
		{EventAttemptSubmitted, TopicAttempts},
		{EventExamPublished, TopicExams},
	}
	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			if got := tt.eventType.Topic(); got != tt.want {
				t.Errorf("Topic() = %q, want %q", got, tt.want)
			}
		})
	}

	p := NewWatermillPublisher(nil, "prod.", slog.Default())
	if got := p.Topic(EventExamPublished); got != "prod.exams" {
		t.Errorf("prefixed topic = %q", got)
	}
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(EventAttemptStarted, nil)
	if event.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if event.Source != "exam-service" {
		t.Errorf("Expected source 'exam-service', got '%s'", event.Source)
	}
	if event.Version != "1.0" {
		t.Errorf("Expected version '1.0', got '%s'", event.Version)
	}
	if event.Timestamp.IsZero() {
		t.Error("Event timestamp should not be zero")
	}
}
