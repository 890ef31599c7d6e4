package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"mcwatch/internal/app"
	"mcwatch/internal/domain"
	"mcwatch/internal/logger"
	"mcwatch/internal/metrics"
	"mcwatch/internal/server"
	"mcwatch/internal/updater"
	"mcwatch/internal/ws"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	Manager         *server.Manager
	Settings        domain.SettingRepository
	HubManager      *ws.HubManager
	Metrics         metrics.Recorder
	CheckForUpdates func(ctx context.Context) (*updater.UpdateInfo, error)

	mu         sync.Mutex
	httpServer *http.Server
}

func NewAPIServer(container *app.Container) *Server {
	return &Server{
		Manager:         container.ServerManager,
		Settings:        container.Store,
		HubManager:      container.HubManager,
		Metrics:         container.Metrics,
		CheckForUpdates: updater.CheckForUpdates,
	}
}

func (api *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /servers", api.handleListServers)
	mux.HandleFunc("POST /servers", api.handleAddServer)
	mux.HandleFunc("GET /servers/{address}", api.handleGetServer)
	mux.HandleFunc("PUT /servers/{address}", api.handleRenameServer)
	mux.HandleFunc("DELETE /servers/{address}", api.handleRemoveServer)
	mux.HandleFunc("POST /servers/{address}/refresh", api.handleRefreshServer)
	mux.HandleFunc("POST /refresh", api.handleRefreshAll)

	mux.HandleFunc("GET /settings", api.handleListSettings)
	mux.HandleFunc("GET /settings/{key}", api.handleGetSetting)
	mux.HandleFunc("PUT /settings/{key}", api.handleSetSetting)

	mux.HandleFunc("GET /ws/events", api.handleEvents)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /updates", api.handleUpdates)

	return api.logMiddleware(api.corsMiddleware(mux))
}

func (api *Server) Start(listenAddr string) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	api.mu.Lock()
	api.httpServer = srv
	api.mu.Unlock()

	logger.Info("API listening", "addr", listenAddr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (api *Server) Shutdown(ctx context.Context) error {
	api.mu.Lock()
	srv := api.httpServer
	api.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (api *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Manager.List())
}

func (api *Server) handleAddServer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	entry, err := api.Manager.AddNamed(req.Address, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	api.Metrics.SetTracked(len(api.Manager.List()))

	writeJSON(w, http.StatusCreated, entry)
}

func (api *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	entry, err := api.Manager.Detail(r.PathValue("address"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (api *Server) handleRenameServer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	entry, err := api.Manager.Rename(r.PathValue("address"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (api *Server) handleRemoveServer(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if err := api.Manager.Remove(address); err != nil {
		writeError(w, err)
		return
	}

	address = domain.NormalizeAddress(address)
	api.HubManager.RemoveHub(address)
	api.Metrics.Forget(address)
	api.Metrics.SetTracked(len(api.Manager.List()))

	w.WriteHeader(http.StatusNoContent)
}

func (api *Server) handleRefreshServer(w http.ResponseWriter, r *http.Request) {
	if err := api.Manager.RefreshOne(r.PathValue("address")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"started": true})
}

func (api *Server) handleRefreshAll(w http.ResponseWriter, r *http.Request) {
	started := api.Manager.RefreshAll()
	writeJSON(w, http.StatusAccepted, map[string]bool{"started": started})
}

func (api *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := api.Settings.ListSettings()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (api *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, err := api.Settings.GetSetting(key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func (api *Server) handleSetSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	key := r.PathValue("key")
	if err := api.Settings.SetSetting(key, req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": req.Value})
}

// handleEvents streams ChangeEvents; ?address= narrows the feed to one server.
func (api *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address != "" {
		address = domain.NormalizeAddress(address)
		if _, err := api.Manager.Get(address); err != nil {
			writeError(w, err)
			return
		}
	}
	api.HubManager.GetHub(address).ServeWs(w, r)
}

func (api *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	info, err := api.CheckForUpdates(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Could not write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidAddress):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateAddress):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrServerNotFound), errors.Is(err, domain.ErrSettingNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
