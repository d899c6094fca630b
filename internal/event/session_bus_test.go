package event

import (
	"testing"
	"time"
)

func TestSessionBus_PublishDeliversToSubscriber(t *testing.T) {
	b := NewSessionBus()
	ch, unsub := b.Subscribe("term-1")
	defer unsub()

	b.Publish(SessionEvent{Type: TagText, Content: "hello"})

	select {
	case e := <-ch:
		if e.Content != "hello" {
			t.Errorf("expected hello, got %q", e.Content)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSessionBus_OverflowMarksLossy(t *testing.T) {
	b := NewSessionBus()
	b.Subscribe("term-1") // channel never drained

	for i := 0; i < sessionConsumerBuffer+10; i++ {
		b.Publish(SessionEvent{Type: TagText, Content: "x"})
	}

	b.mu.Lock()
	c := b.consumers["term-1"]
	b.mu.Unlock()

	c.mu.Lock()
	lossy := c.lossy
	c.mu.Unlock()

	if !lossy {
		t.Fatal("expected consumer to be marked lossy after overflow")
	}

	select {
	case e := <-c.nextRead():
		if e.Type != TagError {
			t.Errorf("expected synthetic error event, got %v", e.Type)
		}
	default:
		t.Fatal("expected a synthetic error event queued")
	}
}

func TestSessionBus_ReturnToTerminalClosesConsumer(t *testing.T) {
	b := NewSessionBus()
	ch, _ := b.Subscribe("term-1")

	b.Publish(SessionEvent{Type: TagReturnToTerminal})

	// Drain the event itself, then expect the channel to be closed.
	<-ch
	_, ok := <-ch
	if ok {
		t.Fatal("expected channel closed after return_to_terminal")
	}
}

func TestSessionBus_PublishToSingleConsumer(t *testing.T) {
	b := NewSessionBus()
	ch1, _ := b.Subscribe("term-1")
	ch2, _ := b.Subscribe("term-2")

	b.PublishTo("term-1", SessionEvent{Type: TagSupersession})

	select {
	case e, ok := <-ch1:
		if !ok || e.Type != TagSupersession {
			t.Fatalf("expected supersession event on term-1, got %v ok=%v", e, ok)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for term-1 delivery")
	}
	if _, ok := <-ch1; ok {
		t.Fatal("expected term-1 channel closed after supersession")
	}

	select {
	case e := <-ch2:
		t.Fatalf("term-2 should not receive anything, got %v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionBus_SubscribeConsumerSurfacesLossyNotice(t *testing.T) {
	b := NewSessionBus()
	consumer, unsub := b.SubscribeConsumer("term-1")
	defer unsub()

	for i := 0; i < sessionConsumerBuffer+10; i++ {
		b.Publish(SessionEvent{Type: TagText, Content: "x"})
	}

	select {
	case e := <-consumer.Next():
		if e.Type != TagError {
			t.Errorf("expected synthetic error event first, got %v", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for lossy notice")
	}

	select {
	case e := <-consumer.Next():
		if e.Type != TagText {
			t.Errorf("expected a real event after the lossy notice, got %v", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for real event after lossy notice")
	}
}

func TestSessionBus_CloseTearsDownConsumers(t *testing.T) {
	b := NewSessionBus()
	ch, _ := b.Subscribe("term-1")

	b.Close()

	_, ok := <-ch
	if ok {
		t.Fatal("expected channel closed after bus Close")
	}

	// Publishing after close must not panic.
	b.Publish(SessionEvent{Type: TagText})
}
