package wanstatus

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"openwan/internal/models"

	"github.com/gorilla/mux"
)

type HTTP struct{ svc *Service }

func NewHTTP(s *Service) *HTTP { return &HTTP{svc: s} }

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/wanstatus", h.receive).Methods(http.MethodPost)
	r.HandleFunc("/wanstatus", h.list).Methods(http.MethodGet)
}

type receiveIn struct {
	Identity string `json:"identity"`
	Comment  string `json:"comment"`
	Status   string `json:"status"`
	Since    string `json:"since"`
}

type recordOut struct {
	ID        uint   `json:"id"`
	Identity  string `json:"identity"`
	Comment   string `json:"comment"`
	Status    string `json:"status"`
	Since     string `json:"since"`
	CreatedAt string `json:"createdAt"`
}

// parseSince принимает RFC3339 и уже отформатированный display-вид;
// непарсящееся значение трактуем как "сейчас".
func parseSince(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, SinceLayout, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Now()
}

// POST /wanstatus — push-вход детектора: {identity, comment, status, since}.
func (h *HTTP) receive(w http.ResponseWriter, r *http.Request) {
	var in receiveIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad request", "invalid json body", nil)
		return
	}
	if in.Identity == "" || in.Comment == "" || in.Status == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad request", "identity, comment and status are required", nil)
		return
	}

	_, err := h.svc.Record(r.Context(), Observation{
		Identity: in.Identity,
		Comment:  in.Comment,
		Status:   in.Status,
		Since:    parseSince(in.Since),
	})
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Save failed", err.Error(), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Data saved successfully",
		"data":    in,
	})
}

// GET /wanstatus — журнал переходов, createdAt в формате dd/MM/yyyy, HH:mm:ss.
func (h *HTTP) list(w http.ResponseWriter, _ *http.Request) {
	recs, err := h.svc.List()
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Fetch failed", err.Error(), nil)
		return
	}

	out := make([]recordOut, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordOut{
			ID:        rec.ID,
			Identity:  rec.Identity,
			Comment:   rec.Comment,
			Status:    rec.Status,
			Since:     rec.Since,
			CreatedAt: rec.CreatedAt.Format(SinceLayout),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Logs retrieved successfully",
		"data":    out,
	})
}
