package main

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/CTAG07/Trellis/pkg/views"
)

const (
	actionShutdown = "shutdown"
	actionRestart  = "restart"
)

// ServerAPI holds the dependencies for the server control handlers.
type ServerAPI struct {
	config     *Config
	configPath string
	db         *sql.DB
	renderer   *views.Renderer
	actionChan chan string
	logger     *slog.Logger
}

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// CacheInfo describes the template cache.
type CacheInfo struct {
	Enabled  bool `json:"enabled"`
	Entries  int  `json:"entries"`
	Capacity int  `json:"capacity"`
}

// NewServerAPI creates a new instance of the ServerAPI.
func NewServerAPI(config *Config, configPath string, db *sql.DB, renderer *views.Renderer, actionChan chan string, logger *slog.Logger) *ServerAPI {
	return &ServerAPI{
		config:     config,
		configPath: configPath,
		db:         db,
		renderer:   renderer,
		actionChan: actionChan,
		logger:     logger,
	}
}

// RegisterRoutes sets up the routing for the /api/server and /api/cache
// endpoints.
func (a *ServerAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/server/config", a.handleConfig)
	mux.HandleFunc("/api/server/version", a.handleVersion)
	mux.HandleFunc("/api/server/shutdown", a.handleShutdown)
	mux.HandleFunc("/api/server/restart", a.handleRestart)
	mux.HandleFunc("/api/cache", a.handleCache)
}

// handleHealthCheck reports whether the database is reachable.
func (a *ServerAPI) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	if err := a.db.PingContext(r.Context()); err != nil {
		a.logger.Error("Health check failed", "error", err)
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleConfig returns the configuration, or validates and saves a new one.
// Saved changes take effect on the next restart.
func (a *ServerAPI) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPut) || !requireScope(w, r, scopeServerConfig) {
		return
	}

	if r.Method == http.MethodGet {
		respondWithJSON(w, http.StatusOK, a.config)
		return
	}

	newConfig := DefaultConfig()
	if err := json.NewDecoder(r.Body).Decode(newConfig); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if err := newConfig.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := SaveConfig(a.configPath, newConfig); err != nil {
		a.logger.Error("Failed to save config", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to save configuration to disk")
		return
	}

	a.logger.Info("Configuration saved via API, restart to apply")
	respondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Configuration saved. Restart the server to apply it.",
		"config":  newConfig,
	})
}

// handleVersion returns the application's build information.
func (a *ServerAPI) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	respondWithJSON(w, http.StatusOK, VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	})
}

// handleCache reports on the template cache, or purges it.
func (a *ServerAPI) handleCache(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodDelete) || !requireScope(w, r, scopeCacheManage) {
		return
	}

	if r.Method == http.MethodDelete {
		a.renderer.Purge()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	cfg := a.renderer.Config()
	info := CacheInfo{Enabled: cfg.Cache, Entries: a.renderer.CacheLen()}
	if cfg.Cache {
		info.Capacity = cfg.CacheSize
	}
	respondWithJSON(w, http.StatusOK, info)
}

// handleShutdown initiates a graceful shutdown of the server.
func (a *ServerAPI) handleShutdown(w http.ResponseWriter, r *http.Request) {
	a.handleAction(w, r, actionShutdown, "Server is shutting down...")
}

// handleRestart initiates a graceful restart of the server.
func (a *ServerAPI) handleRestart(w http.ResponseWriter, r *http.Request) {
	a.handleAction(w, r, actionRestart, "Server is restarting...")
}

func (a *ServerAPI) handleAction(w http.ResponseWriter, r *http.Request, action, message string) {
	if !allowMethods(w, r, http.MethodPost) || !requireScope(w, r, scopeServerControl) {
		return
	}

	a.logger.Warn("Server "+action+" initiated via API", "remote_addr", r.RemoteAddr)
	respondWithJSON(w, http.StatusAccepted, map[string]string{"message": message})

	go func() {
		a.actionChan <- action
	}()
}
