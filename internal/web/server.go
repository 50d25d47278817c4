package web

import (
	"net/http"

	"shardkeep/internal/config"
	"shardkeep/internal/render"
	"shardkeep/internal/vault"
)

type Server struct {
	cfg      config.Config
	vault    *vault.Vault
	assets   *AssetServer
	mux      *http.ServeMux
	views    *Templates
	renderer *render.Renderer
	sessions *sessionRegistry
}

// NewServer wires the HTTP API, the page templates and the renderer.
// assets must already be started so its port can be baked into rendered
// asset URLs.
func NewServer(cfg config.Config, v *vault.Vault, assets *AssetServer) *Server {
	s := &Server{
		cfg:      cfg,
		vault:    v,
		assets:   assets,
		mux:      http.NewServeMux(),
		views:    MustParseTemplates(),
		renderer: render.New(assets.Base(), cfg.Theme),
		sessions: newSessionRegistry(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleHome)
	s.mux.HandleFunc("/api/shards", s.handleShards)
	s.mux.HandleFunc("/api/shards/", s.handleShard)
	s.mux.HandleFunc("/api/search", s.handleSearch)
	s.mux.HandleFunc("/api/assets", s.handleAssets)
	s.mux.HandleFunc("/api/assets/", s.handleAssetByID)
}
