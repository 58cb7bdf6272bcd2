package server

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/nudge/internal/store"
)

const maxBody = 1 << 20

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	items, err := s.db.GetAll()
	if err != nil {
		s.obs.Log().Error().Err(err).Msg("GET /api/memories")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []store.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// memoryRequest accepts both the camelCase and snake_case due date spelling.
type memoryRequest struct {
	store.Item
	DueDateSnake string `json:"due_date"`
}

func (s *Server) handleUpsertMemory(w http.ResponseWriter, r *http.Request) {
	var req memoryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	it := req.Item
	if it.DueDate == "" {
		it.DueDate = req.DueDateSnake
	}
	if strings.TrimSpace(it.ID) == "" || strings.TrimSpace(it.Title) == "" {
		writeError(w, http.StatusBadRequest, "id and title required")
		return
	}
	if err := it.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.db.Upsert(&it); err != nil {
		s.obs.Log().Error().Str("id", it.ID).Err(err).Msg("POST /api/memories")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Rescoring never fails the write.
	if s.scorer != nil {
		s.scorer.Submit()
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": it.ID})
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.db.Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "memory not found")
			return
		}
		s.obs.Log().Error().Str("id", id).Err(err).Msg("DELETE /api/memories")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMarkDone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.db.MarkDone(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "memory not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleTriggerReminders(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "engine not configured")
		return
	}

	res, err := s.engine.RunReminders(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":    err.Error(),
			"runId":    res.RunID,
			"selected": res.Selected,
			"sent":     res.Sent,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"runId":    res.RunID,
		"selected": res.Selected,
		"sent":     res.Sent,
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "engine not configured")
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": s.engine.HandleCommand(r.Context(), req.Text)})
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// handleWhatsApp answers a Twilio inbound-message webhook with TwiML.
func (s *Server) handleWhatsApp(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "engine not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	reply := s.engine.HandleCommand(r.Context(), r.PostFormValue("Body"))

	w.Header().Set("Content-Type", "text/xml")
	io.WriteString(w, xml.Header)
	xml.NewEncoder(w).Encode(twimlResponse{Message: reply})
}
