package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"dugo-banana-studio/internal/media"
	"dugo-banana-studio/internal/prompt"
	"dugo-banana-studio/internal/studio"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, prompt.Catalog())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	snap, err := s.studio.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.serve(w, r, snap)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s.writeSession(w, r, http.StatusCreated, s.studio.Create())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.studio.Get(mux.Vars(r)["id"])
	s.respond(w, r, snap, err)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.Delete(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleConfig merges the body into the current configuration, so clients
// may send only the fields they change.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var patch json.RawMessage
	if err := decodeJSON(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.studio.UpdateConfig(mux.Vars(r)["id"], func(cfg *prompt.ShotConfig) error {
		if len(patch) == 0 {
			return nil
		}
		if err := json.Unmarshal(patch, cfg); err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return nil
	})
	s.respond(w, r, snap, err)
}

func (s *Server) handleCreative(w http.ResponseWriter, r *http.Request) {
	var mode prompt.CreativeMode
	if err := decodeJSON(r, &mode); err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.studio.SetCreative(mux.Vars(r)["id"], mode)
	s.respond(w, r, snap, err)
}

type promptRequest struct {
	Positive *string `json:"positive"`
	Negative *string `json:"negative"`
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := mux.Vars(r)["id"]
	snap, err := s.studio.Get(id)
	if err == nil && req.Negative != nil {
		snap, err = s.studio.SetNegative(id, *req.Negative)
	}
	if err == nil && req.Positive != nil {
		snap, err = s.studio.SetPrompt(id, *req.Positive)
	}
	s.respond(w, r, snap, err)
}

func (s *Server) handleRefreshPrompt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.callContext(r)
	defer cancel()
	snap, err := s.studio.RefreshPrompt(ctx, mux.Vars(r)["id"])
	s.respond(w, r, snap, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.studio.Reset(mux.Vars(r)["id"])
	s.respond(w, r, snap, err)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slot, err := studio.ParseSlot(vars["slot"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	img, err := s.studio.Image(vars["id"], slot)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if img.IsZero() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeImage(w, img, "")
}

func (s *Server) handlePutImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	img, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var snap studio.Snapshot
	switch studio.Slot(vars["slot"]) {
	case studio.SlotProduct:
		snap, err = s.studio.SetProductImage(vars["id"], img)
	case studio.SlotStyle:
		snap, err = s.studio.SetStyleImage(vars["id"], img)
	case studio.SlotBackground:
		snap, err = s.studio.SetCustomBackground(vars["id"], img)
	default:
		err = studio.ErrUnknownSlot
	}
	s.respond(w, r, snap, err)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var (
		snap studio.Snapshot
		err  error
	)
	switch studio.Slot(vars["slot"]) {
	case studio.SlotProduct:
		snap, err = s.studio.ClearProductImage(vars["id"])
	case studio.SlotStyle:
		snap, err = s.studio.ClearStyleImage(vars["id"])
	case studio.SlotBackground:
		snap, err = s.studio.ClearCustomBackground(vars["id"])
	default:
		err = studio.ErrUnknownSlot
	}
	s.respond(w, r, snap, err)
}

func (s *Server) handleAutoMask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.callContext(r)
	defer cancel()
	snap, err := s.studio.AutoMask(ctx, mux.Vars(r)["id"])
	s.respond(w, r, snap, err)
}

func (s *Server) handlePutMask(w http.ResponseWriter, r *http.Request) {
	img, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.studio.SetMask(mux.Vars(r)["id"], img)
	s.respond(w, r, snap, err)
}

func (s *Server) handleDeleteMask(w http.ResponseWriter, r *http.Request) {
	snap, err := s.studio.ClearMask(mux.Vars(r)["id"])
	s.respond(w, r, snap, err)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.callContext(r)
	defer cancel()
	snap, err := s.studio.Generate(ctx, mux.Vars(r)["id"])
	s.respond(w, r, snap, err)
}

type enhanceRequest struct {
	Level string `json:"level"`
	Index *int   `json:"index"`
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	level, err := prompt.ParseEnhancementLevel(req.Level)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	index := -1
	if req.Index != nil {
		index = *req.Index
	}

	ctx, cancel := s.callContext(r)
	defer cancel()
	snap, err := s.studio.Enhance(ctx, mux.Vars(r)["id"], level, index)
	s.respond(w, r, snap, err)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	format, err := media.ParseFormat(query.Get("format"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	quality := media.DefaultQuality
	if raw := strings.TrimSpace(query.Get("quality")); raw != "" {
		quality, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: quality", errBadRequest))
			return
		}
	}

	out, err := s.studio.Export(mux.Vars(r)["id"], format, quality)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeImage(w, out, "dugo-banana"+format.Extension())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.studio.History(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	snap, err := s.studio.ClearHistory(mux.Vars(r)["id"])
	s.respond(w, r, snap, err)
}

func (s *Server) handleHistoryImage(w http.ResponseWriter, r *http.Request) {
	n, err := pathIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	img, err := s.studio.HistoryImage(mux.Vars(r)["id"], n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeImage(w, img, "")
}

func (s *Server) handleSelectHistory(w http.ResponseWriter, r *http.Request) {
	n, err := pathIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.studio.SelectHistory(mux.Vars(r)["id"], n)
	s.respond(w, r, snap, err)
}

func (s *Server) handleReiterate(w http.ResponseWriter, r *http.Request) {
	n, err := pathIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.studio.Reiterate(mux.Vars(r)["id"], n)
	s.respond(w, r, snap, err)
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": s.studio.Presets(r.Context())})
}

type savePresetRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleSavePreset(w http.ResponseWriter, r *http.Request) {
	var req savePresetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.studio.SavePreset(r.Context(), mux.Vars(r)["id"], req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleLoadPreset(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	snap, err := s.studio.LoadPreset(r.Context(), vars["id"], vars["pid"])
	s.respond(w, r, snap, err)
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.DeletePreset(r.Context(), mux.Vars(r)["pid"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, snap studio.Snapshot, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusOK, snap)
}
