package chat

import (
	"fmt"
	"sync"
	"testing"
)

func TestAddAndGet(t *testing.T) {
	mb := NewMessageBuffer()

	mb.Add("t1", BufferedMessage{From: "buyer", Text: "is it available?", Ts: 1})
	mb.Add("t1", BufferedMessage{From: "seller", Text: "yes it is", Ts: 2})
	mb.Add("t1", BufferedMessage{From: "buyer", Text: "great, when?", Ts: 3})

	msgs := mb.Get("t1")
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "is it available?" {
		t.Errorf("expected first message 'is it available?', got %q", msgs[0].Text)
	}
	if msgs[1].Text != "yes it is" {
		t.Errorf("expected second message 'yes it is', got %q", msgs[1].Text)
	}
	if msgs[2].Text != "great, when?" {
		t.Errorf("expected third message 'great, when?', got %q", msgs[2].Text)
	}
}

func TestRingBufferWraparound(t *testing.T) {
	mb := NewMessageBuffer()

	// Add 7 messages; the buffer holds only 5.
	for i := 1; i <= 7; i++ {
		mb.Add("t1", BufferedMessage{
			From: "buyer",
			Text: fmt.Sprintf("msg-%d", i),
			Ts:   int64(i),
		})
	}

	msgs := mb.Get("t1")
	if len(msgs) != MaxBufferMessages {
		t.Fatalf("expected %d messages, got %d", MaxBufferMessages, len(msgs))
	}

	// Should contain messages 3 through 7 in order.
	for i, msg := range msgs {
		expected := fmt.Sprintf("msg-%d", i+3)
		if msg.Text != expected {
			t.Errorf("index %d: expected %q, got %q", i, expected, msg.Text)
		}
	}
}

func TestGetNonExistentThread(t *testing.T) {
	mb := NewMessageBuffer()

	msgs := mb.Get("does-not-exist")
	if len(msgs) != 0 {
		t.Errorf("expected empty slice for unknown thread, got %d messages", len(msgs))
	}
}

func TestRemove(t *testing.T) {
	mb := NewMessageBuffer()

	mb.Add("t1", BufferedMessage{From: "buyer", Text: "hello", Ts: 1})
	mb.Remove("t1")

	if msgs := mb.Get("t1"); len(msgs) != 0 {
		t.Errorf("expected no messages after Remove, got %d", len(msgs))
	}
}

func TestConcurrentAccess(t *testing.T) {
	mb := NewMessageBuffer()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			mb.Add(fmt.Sprintf("t%d", n%3), BufferedMessage{From: "u", Text: "x", Ts: int64(n)})
		}(i)
		go func(n int) {
			defer wg.Done()
			mb.Get(fmt.Sprintf("t%d", n%3))
		}(i)
	}
	wg.Wait()
}
