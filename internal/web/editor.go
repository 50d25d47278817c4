package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"shardkeep/internal/editsync"
)

var upgrader = websocket.Upgrader{
	// The server binds loopback only; cross-origin pages cannot reach it.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsTransport sends sync messages over one websocket connection.
// gorilla connections allow a single concurrent writer, so sends are
// serialized with a mutex.
type wsTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (t *wsTransport) Send(msg editsync.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteJSON(msg)
}

// sessionRegistry keeps one editing session per shard so structural
// commands and saves from other handlers reach the live surface.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*editsync.Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*editsync.Session)}
}

func (r *sessionRegistry) acquire(shardID string, newSession func() *editsync.Session) *editsync.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[shardID]; ok {
		return sess
	}
	sess := newSession()
	r.sessions[shardID] = sess
	return sess
}

func (r *sessionRegistry) lookup(shardID string) *editsync.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[shardID]
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request, shardID string) {
	shard, err := s.vault.GetShard(r.Context(), shardID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("sync upgrade failed", "shard", shardID, "err", err)
		return
	}
	defer conn.Close()

	sess := s.sessions.acquire(shardID, func() *editsync.Session {
		return editsync.NewSession(s.cfg.ReadyRetry)
	})
	sess.OnUpdate(func(body string) {
		// The request context dies with the hijacked connection; saves
		// must not be tied to it.
		ctx := context.Background()
		current, err := s.vault.GetShard(ctx, shardID)
		if err != nil {
			slog.Error("autosave lookup failed", "shard", shardID, "err", err)
			return
		}
		if _, err := s.vault.UpdateShard(ctx, shardID, current.Title, body, current.Tags); err != nil {
			slog.Error("autosave failed", "shard", shardID, "err", err)
		}
	})
	sess.OnOpenReference(func(id string) {
		slog.Info("open reference requested", "shard", shardID, "target", id)
	})
	sess.SetBody(shard.Body)
	sess.Bind(&wsTransport{conn: conn})
	slog.Info("editing surface connected", "shard", shardID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			slog.Debug("editing surface disconnected", "shard", shardID, "err", err)
			return
		}
		msg, err := editsync.Decode(data)
		if err != nil {
			slog.Debug("undecodable sync message", "shard", shardID, "err", err)
			continue
		}
		sess.HandleMessage(msg)
	}
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request, shardID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req insertRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess := s.sessions.lookup(shardID)
	if sess == nil {
		http.Error(w, "no editing session", http.StatusConflict)
		return
	}
	sess.InsertText(req.Text)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWrap(w http.ResponseWriter, r *http.Request, shardID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req wrapRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess := s.sessions.lookup(shardID)
	if sess == nil {
		http.Error(w, "no editing session", http.StatusConflict)
		return
	}
	sess.WrapSelection(req.Prefix, req.Suffix, req.DefaultText)
	w.WriteHeader(http.StatusNoContent)
}
