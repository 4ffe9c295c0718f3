package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	want := Message{Type: "submission", Body: []byte("sess-1")}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-msgs:
		if got.Type != want.Type || string(got.Body) != string(want.Body) {
			t.Errorf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("message never delivered")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"plain", Message{Type: "submission", Body: []byte("sess-1")}},
		{"body with delimiter", Message{Type: "submission", Body: []byte("a|b")}},
		{"empty body", Message{Type: "sweep", Body: nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deserialize(serialize(tt.msg))
			if got.Type != tt.msg.Type || string(got.Body) != string(tt.msg.Body) {
				t.Errorf("round trip = %+v, want %+v", got, tt.msg)
			}
		})
	}
}
