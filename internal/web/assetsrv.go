package web

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"shardkeep/internal/vault"
)

// AssetServer serves decrypted asset bytes over loopback. It keeps a
// small cache of decrypted files so repeated views of the same shard do
// not redo the AES work.
type AssetServer struct {
	vault    *vault.Vault
	host     string
	listener net.Listener
	srv      *http.Server

	mu       sync.Mutex
	cache    map[string]cachedAsset
	cacheMax int
}

type cachedAsset struct {
	data     []byte
	mimeType string
}

func NewAssetServer(v *vault.Vault, host string, cacheMax int) *AssetServer {
	if cacheMax <= 0 {
		cacheMax = 50
	}
	return &AssetServer{
		vault:    v,
		host:     host,
		cache:    make(map[string]cachedAsset),
		cacheMax: cacheMax,
	}
}

// Start binds an ephemeral loopback port and begins serving.
func (a *AssetServer) Start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(a.host, "0"))
	if err != nil {
		return fmt.Errorf("listen asset server: %w", err)
	}
	a.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/asset/", a.handleAsset)
	a.srv = &http.Server{Handler: mux}

	go func() {
		if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("asset server stopped", "err", err)
		}
	}()
	slog.Info("asset server listening", "addr", ln.Addr().String())
	return nil
}

func (a *AssetServer) Close() error {
	if a.srv == nil {
		return nil
	}
	return a.srv.Close()
}

// Port returns the bound port. Valid only after Start.
func (a *AssetServer) Port() int {
	return a.listener.Addr().(*net.TCPAddr).Port
}

// Base returns the URL prefix rendered bodies point their asset
// references at, e.g. "http://127.0.0.1:49152".
func (a *AssetServer) Base() string {
	return "http://" + net.JoinHostPort(a.host, strconv.Itoa(a.Port()))
}

func (a *AssetServer) handleAsset(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/asset/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	entry, err := a.lookup(r, id)
	if errors.Is(err, vault.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data, mimeType := entry.data, entry.mimeType
	if width := parseWidth(r.URL.Query().Get("w")); width > 0 && strings.HasPrefix(mimeType, "image/") {
		if scaled, ok := downscale(data, width); ok {
			data, mimeType = scaled, "image/png"
		}
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=60")
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(data))
}

func (a *AssetServer) lookup(r *http.Request, id string) (cachedAsset, error) {
	a.mu.Lock()
	if entry, ok := a.cache[id]; ok {
		a.mu.Unlock()
		return entry, nil
	}
	a.mu.Unlock()

	data, mimeType, err := a.vault.OpenAsset(r.Context(), id)
	if err != nil {
		return cachedAsset{}, err
	}
	entry := cachedAsset{data: data, mimeType: mimeType}

	a.mu.Lock()
	if len(a.cache) >= a.cacheMax {
		// Evict an arbitrary entry; any key works for this cache size.
		for k := range a.cache {
			delete(a.cache, k)
			break
		}
	}
	a.cache[id] = entry
	a.mu.Unlock()
	return entry, nil
}

// Invalidate drops a cached asset, used after delete or reclamation.
func (a *AssetServer) Invalidate(id string) {
	a.mu.Lock()
	delete(a.cache, id)
	a.mu.Unlock()
}

func parseWidth(raw string) int {
	if raw == "" {
		return 0
	}
	w, err := strconv.Atoi(raw)
	if err != nil || w <= 0 || w > 4096 {
		return 0
	}
	return w
}

// downscale resizes an image to the requested width, keeping the aspect
// ratio. Undecodable input is served as-is.
func downscale(data []byte, width int) ([]byte, bool) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Debug("asset downscale decode failed", "err", err)
		return nil, false
	}
	if img.Bounds().Dx() <= width {
		return nil, false
	}
	resized := imaging.Resize(img, width, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		slog.Debug("asset downscale encode failed", "err", err)
		return nil, false
	}
	return buf.Bytes(), true
}
