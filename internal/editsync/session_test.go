package editsync

import (
	"sync"
	"testing"
	"time"
)

type recordingTransport struct {
	mu   sync.Mutex
	sent []Message
}

func (t *recordingTransport) Send(msg Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, msg)
	return nil
}

func (t *recordingTransport) messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.sent))
	copy(out, t.sent)
	return out
}

func TestReadyPushesContent(t *testing.T) {
	s := NewSession(0)
	s.SetBody("hello")
	tr := &recordingTransport{}
	s.Bind(tr)
	if s.State() != StateAwaitingReady {
		t.Fatalf("expected awaiting-ready after bind, got %v", s.State())
	}

	s.HandleMessage(NewReadyMessage())
	if s.State() != StateSynced {
		t.Fatalf("expected synced after ready, got %v", s.State())
	}
	sent := tr.messages()
	if len(sent) != 1 || sent[0].Type != TypeSetContent || sent[0].Value != "hello" {
		t.Fatalf("expected one set-content push, got %v", sent)
	}
}

func TestReadyRetryPushesAgain(t *testing.T) {
	s := NewSession(10 * time.Millisecond)
	s.SetBody("body")
	tr := &recordingTransport{}
	s.Bind(tr)
	s.HandleMessage(NewReadyMessage())

	time.Sleep(50 * time.Millisecond)
	sent := tr.messages()
	if len(sent) != 2 {
		t.Fatalf("expected initial push plus one retry, got %v", sent)
	}
	for _, m := range sent {
		if m.Type != TypeSetContent || m.Value != "body" {
			t.Fatalf("unexpected message %v", m)
		}
	}
}

func TestReadyRetrySkippedAfterRebind(t *testing.T) {
	s := NewSession(10 * time.Millisecond)
	s.SetBody("body")
	tr := &recordingTransport{}
	s.Bind(tr)
	s.HandleMessage(NewReadyMessage())

	tr2 := &recordingTransport{}
	s.Bind(tr2)
	time.Sleep(50 * time.Millisecond)
	if sent := tr.messages(); len(sent) != 1 {
		t.Fatalf("expected no retry on the replaced surface, got %v", sent)
	}
	if sent := tr2.messages(); len(sent) != 0 {
		t.Fatalf("expected nothing sent before ready on new surface, got %v", sent)
	}
}

func TestUpdateNotEchoedBack(t *testing.T) {
	s := NewSession(0)
	s.SetBody("old")
	tr := &recordingTransport{}
	s.Bind(tr)
	s.HandleMessage(NewReadyMessage())

	s.HandleMessage(NewUpdateMessage("old edited"))
	if s.Body() != "old edited" {
		t.Fatalf("expected body updated, got %q", s.Body())
	}
	// The host persisting the surface's own text must not echo it.
	s.SetBody("old edited")
	sent := tr.messages()
	if len(sent) != 1 {
		t.Fatalf("expected only the ready push, got %v", sent)
	}
}

func TestSetBodyPushesForeignChange(t *testing.T) {
	s := NewSession(0)
	s.SetBody("one")
	tr := &recordingTransport{}
	s.Bind(tr)
	s.HandleMessage(NewReadyMessage())

	s.SetBody("two")
	sent := tr.messages()
	if len(sent) != 2 {
		t.Fatalf("expected ready push plus one set-content, got %v", sent)
	}
	if sent[1].Value != "two" {
		t.Fatalf("expected pushed value %q, got %q", "two", sent[1].Value)
	}
}

func TestDuplicateUpdateIsNoOp(t *testing.T) {
	s := NewSession(0)
	tr := &recordingTransport{}
	s.Bind(tr)
	s.HandleMessage(NewReadyMessage())

	updates := 0
	s.OnUpdate(func(string) { updates++ })
	s.HandleMessage(NewUpdateMessage("text"))
	s.HandleMessage(NewUpdateMessage("text"))
	if updates != 1 {
		t.Fatalf("expected one update callback, got %d", updates)
	}
}

func TestCommandsForwarded(t *testing.T) {
	s := NewSession(0)
	tr := &recordingTransport{}
	s.Bind(tr)
	s.HandleMessage(NewReadyMessage())

	s.InsertText("```\n\n```")
	s.WrapSelection("[", "](shard://doc42)", "Foo")
	sent := tr.messages()
	if len(sent) != 3 {
		t.Fatalf("expected ready push plus two commands, got %v", sent)
	}
	if sent[1].Type != TypeInsertText || sent[1].Text != "```\n\n```" {
		t.Fatalf("unexpected insert command %v", sent[1])
	}
	if sent[2].Type != TypeWrapSelection || sent[2].Prefix != "[" || sent[2].DefaultText != "Foo" {
		t.Fatalf("unexpected wrap command %v", sent[2])
	}
}

func TestCommandDroppedWithoutSurface(t *testing.T) {
	s := NewSession(0)
	s.InsertText("x")

	tr := &recordingTransport{}
	s.Bind(tr)
	s.InsertText("y") // bound but not ready yet
	if sent := tr.messages(); len(sent) != 0 {
		t.Fatalf("expected commands dropped before sync, got %v", sent)
	}
}

func TestOpenReferenceCallback(t *testing.T) {
	s := NewSession(0)
	var got string
	s.OnOpenReference(func(id string) { got = id })
	s.HandleMessage(NewOpenReferenceMessage("doc42"))
	if got != "doc42" {
		t.Fatalf("expected open-reference id doc42, got %q", got)
	}
}

func TestUnknownMessageIgnored(t *testing.T) {
	s := NewSession(0)
	tr := &recordingTransport{}
	s.Bind(tr)
	s.HandleMessage(Message{Type: "bogus"})
	if s.State() != StateAwaitingReady {
		t.Fatalf("stray message must not change state, got %v", s.State())
	}
}

func TestRebindResetsLastKnown(t *testing.T) {
	s := NewSession(0)
	tr := &recordingTransport{}
	s.Bind(tr)
	s.HandleMessage(NewReadyMessage())
	s.HandleMessage(NewUpdateMessage("typed"))

	// Surface recreated (shard switch); same body must be pushed again.
	tr2 := &recordingTransport{}
	s.Bind(tr2)
	s.HandleMessage(NewReadyMessage())
	sent := tr2.messages()
	if len(sent) != 1 || sent[0].Value != "typed" {
		t.Fatalf("expected full push after rebind, got %v", sent)
	}
}
