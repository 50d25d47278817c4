package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shardkeep/internal/render"
	"shardkeep/internal/vault"
)

const maxAssetUpload = 256 << 20

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.views.RenderPage(w, ViewData{
		Title:           "Shardkeep",
		ContentTemplate: "shell",
		Theme:           s.cfg.Theme,
	})
}

func (s *Server) handleShards(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		shards, err := s.vault.ListShards(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out := make([]shardSummary, 0, len(shards))
		for _, sh := range shards {
			out = append(out, shardSummary{
				ID:        sh.ID,
				Title:     sh.Title,
				Tags:      sh.Tags,
				UpdatedAt: sh.UpdatedAt.Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req saveRequest
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Title == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}
		shard, err := s.vault.CreateShard(r.Context(), req.Title, req.Body, req.Tags)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, toPayload(shard))

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleShard(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/shards/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch action {
	case "":
		s.handleShardByID(w, r, id)
	case "view":
		s.handleView(w, r, id)
	case "sync":
		s.handleSync(w, r, id)
	case "insert":
		s.handleInsert(w, r, id)
	case "wrap":
		s.handleWrap(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleShardByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		shard, err := s.vault.GetShard(r.Context(), id)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPayload(shard))

	case http.MethodPut:
		var req saveRequest
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Title == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}
		shard, err := s.vault.UpdateShard(r.Context(), id, req.Title, req.Body, req.Tags)
		if err != nil {
			httpError(w, err)
			return
		}
		// Surface-originated saves come back with the body the surface
		// already holds; loop prevention makes the push a no-op.
		if sess := s.sessions.lookup(id); sess != nil {
			sess.SetBody(shard.Body)
		}
		writeJSON(w, http.StatusOK, toPayload(shard))

	case http.MethodDelete:
		if err := s.vault.DeleteShard(r.Context(), id); err != nil {
			httpError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleView returns the shard rendered as a standalone HTML document,
// ready to load into the preview iframe.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request, id string) {
	shard, err := s.vault.GetShard(r.Context(), id)
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, s.renderer.Render(shard.Title, shard.Body))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	results, err := s.vault.SearchShards(r.Context(), query, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out := make([]searchHit, 0, len(results))
	for _, res := range results {
		out = append(out, searchHit{ID: res.ID, Title: res.Title, Snippet: res.Snippet})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxAssetUpload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file required", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	asset, err := s.vault.ImportAsset(r.Context(), header.Filename, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, assetPayload{
		ID:           asset.ID,
		OriginalName: asset.OriginalName,
		MimeType:     asset.MimeType,
		URI:          render.AssetScheme + asset.ID,
	})
}

func (s *Server) handleAssetByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/assets/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		data, mimeType, err := s.vault.OpenAsset(r.Context(), id)
		if err != nil {
			httpError(w, err)
			return
		}
		w.Header().Set("Content-Type", mimeType)
		w.Write(data)

	case http.MethodDelete:
		if err := s.vault.DeleteAsset(r.Context(), id); err != nil {
			httpError(w, err)
			return
		}
		s.assets.Invalidate(id)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func toPayload(shard vault.Shard) shardPayload {
	return shardPayload{
		ID:        shard.ID,
		Title:     shard.Title,
		Body:      shard.Body,
		Tags:      shard.Tags,
		CreatedAt: shard.CreatedAt.Format(time.RFC3339),
		UpdatedAt: shard.UpdatedAt.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func httpError(w http.ResponseWriter, err error) {
	if errors.Is(err, vault.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
