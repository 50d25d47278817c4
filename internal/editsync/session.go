package editsync

import (
	"log/slog"
	"sync"
	"time"
)

// State of the host side of one editing session.
type State int

const (
	StateUninitialized State = iota
	StateAwaitingReady
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateAwaitingReady:
		return "awaiting-ready"
	case StateSynced:
		return "synced"
	default:
		return "uninitialized"
	}
}

// Transport delivers one command to the editing surface. Delivery is
// at-most-once; a later command may arrive before an earlier one is
// processed.
type Transport interface {
	Send(msg Message) error
}

// Session is the host side of the sync protocol for one editing surface.
// It owns lastKnown, the last text both sides are known to agree on: a
// surface report that matches it is a duplicate, and a host body change
// that matches it originated from the surface and is never echoed back.
type Session struct {
	mu         sync.Mutex
	state      State
	transport  Transport
	body       string
	lastKnown  string
	readyRetry time.Duration
	generation int

	onUpdate        func(body string)
	onOpenReference func(id string)
}

// NewSession creates a session. readyRetry is the delay before the single
// repeated set-content push after ready, covering the race where the
// first push beats the surface's listener attachment; zero disables it.
func NewSession(readyRetry time.Duration) *Session {
	return &Session{readyRetry: readyRetry}
}

// OnUpdate registers the callback invoked when the surface reports new
// text, after host body state has been updated. Used for dirty marking.
func (s *Session) OnUpdate(fn func(body string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = fn
}

// OnOpenReference registers the callback for open-reference notifications.
func (s *Session) OnOpenReference(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOpenReference = fn
}

// Bind attaches a freshly created surface. Any prior surface state is
// forgotten: the session re-enters AwaitingReady and lastKnown is
// cleared, so the next ready pushes the full body unconditionally.
func (s *Session) Bind(t Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transport = t
	s.state = StateAwaitingReady
	s.lastKnown = ""
	s.generation++
}

// State returns the current protocol state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Body returns the host-held body text.
func (s *Session) Body() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body
}

// SetBody records a host-side body change. When the new text already
// matches what the surface last reported, the change originated from the
// surface and no command is sent; otherwise a set-content push replaces
// the surface's text.
func (s *Session) SetBody(body string) {
	s.mu.Lock()
	s.body = body
	if body == s.lastKnown || s.state != StateSynced || s.transport == nil {
		s.mu.Unlock()
		return
	}
	s.lastKnown = body
	t := s.transport
	s.mu.Unlock()
	s.send(t, NewSetContentMessage(body))
}

// InsertText asks the surface to insert text at its cursor. The surface
// computes offsets locally and reports the result via update.
func (s *Session) InsertText(text string) {
	s.command(NewInsertTextMessage(text))
}

// WrapSelection asks the surface to wrap its selection (or defaultText
// when empty) in prefix and suffix.
func (s *Session) WrapSelection(prefix, suffix, defaultText string) {
	s.command(NewWrapSelectionMessage(prefix, suffix, defaultText))
}

func (s *Session) command(msg Message) {
	s.mu.Lock()
	if s.state != StateSynced || s.transport == nil {
		s.mu.Unlock()
		slog.Debug("editsync command dropped, no synced surface", "type", msg.Type)
		return
	}
	t := s.transport
	s.mu.Unlock()
	s.send(t, msg)
}

// HandleMessage processes one surface notification. Stray, duplicate and
// unknown messages are ignored, never escalated.
func (s *Session) HandleMessage(msg Message) {
	switch msg.Type {
	case TypeReady:
		s.handleReady()
	case TypeUpdate:
		s.handleUpdate(msg.Value)
	case TypeOpenReference:
		s.mu.Lock()
		fn := s.onOpenReference
		s.mu.Unlock()
		if fn != nil {
			fn(msg.ID)
		}
	default:
		slog.Debug("editsync unknown message ignored", "type", msg.Type)
	}
}

func (s *Session) handleReady() {
	s.mu.Lock()
	if s.transport == nil {
		s.mu.Unlock()
		return
	}
	s.state = StateSynced
	s.lastKnown = s.body
	body := s.body
	t := s.transport
	gen := s.generation
	retry := s.readyRetry
	s.mu.Unlock()

	s.send(t, NewSetContentMessage(body))
	if retry <= 0 {
		return
	}
	time.AfterFunc(retry, func() {
		s.mu.Lock()
		if s.generation != gen || s.state != StateSynced {
			s.mu.Unlock()
			return
		}
		body := s.body
		s.lastKnown = body
		t := s.transport
		s.mu.Unlock()
		s.send(t, NewSetContentMessage(body))
	})
}

func (s *Session) handleUpdate(value string) {
	s.mu.Lock()
	if value == s.lastKnown {
		s.mu.Unlock()
		return
	}
	s.lastKnown = value
	s.body = value
	fn := s.onUpdate
	s.mu.Unlock()
	if fn != nil {
		fn(value)
	}
}

func (s *Session) send(t Transport, msg Message) {
	if err := t.Send(msg); err != nil {
		slog.Warn("editsync send failed", "type", msg.Type, "err", err)
	}
}
