// Package web exposes studio sessions over a JSON API and pushes session
// events over websockets.
package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/text/language"

	"dugo-banana-studio/internal/gemini"
	"dugo-banana-studio/internal/i18n"
	"dugo-banana-studio/internal/media"
	"dugo-banana-studio/internal/preset"
	"dugo-banana-studio/internal/prompt"
	"dugo-banana-studio/internal/studio"
)

const defaultMaxUploadBytes = 25 << 20

type Options struct {
	Studio         *studio.Service
	Hub            *Hub
	Logger         *slog.Logger
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

type Server struct {
	studio         *studio.Service
	hub            *Hub
	logger         *slog.Logger
	maxUploadBytes int64
	requestTimeout time.Duration
}

type apiError struct {
	Error string `json:"error"`
}

// sessionView is the snapshot as clients see it, with the last failure
// rendered in the caller's language.
type sessionView struct {
	studio.Snapshot
	Error string `json:"error,omitempty"`
}

func newSessionView(snap studio.Snapshot, lang language.Tag) sessionView {
	return sessionView{Snapshot: snap, Error: i18n.Message(lang, snap.Err)}
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub(logger)
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 4 * time.Minute
	}

	return &Server{
		studio:         opts.Studio,
		hub:            hub,
		logger:         logger,
		maxUploadBytes: maxUpload,
		requestTimeout: timeout,
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws/sessions/{id}", s.handleWebSocket).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/options", s.handleOptions).Methods(http.MethodGet)

	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/config", s.handleConfig).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/creative", s.handleCreative).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/prompt", s.handlePrompt).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/prompt/refresh", s.handleRefreshPrompt).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods(http.MethodPost)

	api.HandleFunc("/sessions/{id}/images/{slot}", s.handleGetImage).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/images/{slot}", s.handlePutImage).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/images/{slot}", s.handleDeleteImage).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/mask/auto", s.handleAutoMask).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/mask", s.handlePutMask).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/mask", s.handleDeleteMask).Methods(http.MethodDelete)

	api.HandleFunc("/sessions/{id}/generate", s.handleGenerate).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/enhance", s.handleEnhance).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/download", s.handleDownload).Methods(http.MethodGet)

	api.HandleFunc("/sessions/{id}/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/history", s.handleClearHistory).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/history/{n:[0-9]+}", s.handleHistoryImage).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/history/{n:[0-9]+}/select", s.handleSelectHistory).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/history/{n:[0-9]+}/reiterate", s.handleReiterate).Methods(http.MethodPost)

	api.HandleFunc("/presets", s.handleListPresets).Methods(http.MethodGet)
	api.HandleFunc("/presets/{pid}", s.handleDeletePreset).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/presets", s.handleSavePreset).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/presets/{pid}/load", s.handleLoadPreset).Methods(http.MethodPost)

	return withLogging(enableCORS(i18n.Middleware(r)), s.logger)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, status int, snap studio.Snapshot) {
	writeJSON(w, status, newSessionView(snap, i18n.FromContext(r.Context())))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, apiError{Error: i18n.Message(i18n.FromContext(r.Context()), err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, studio.ErrSessionNotFound),
		errors.Is(err, studio.ErrHistoryIndex),
		errors.Is(err, preset.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, studio.ErrBusy),
		errors.Is(err, studio.ErrNoResult):
		return http.StatusConflict
	case errors.Is(err, gemini.ErrMissingInput),
		errors.Is(err, prompt.ErrInvalidConfig),
		errors.Is(err, preset.ErrInvalidName),
		errors.Is(err, studio.ErrUnknownSlot),
		errors.Is(err, errBadRequest),
		errors.Is(err, media.ErrImageDecode),
		errors.Is(err, media.ErrUnsupportedType),
		errors.Is(err, media.ErrEmptyImage),
		errors.Is(err, media.ErrInvalidRatio):
		return http.StatusBadRequest
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	}

	var opErr *studio.OpError
	if errors.As(err, &opErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept-Language, X-Locale")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
