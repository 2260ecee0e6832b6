package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MikeSquared-Agency/Concierge/internal/agent"
	"github.com/MikeSquared-Agency/Concierge/internal/models"
	"github.com/MikeSquared-Agency/Concierge/internal/trace"
)

const maxBodyBytes = 1 << 20

type RecommendationsHandler struct {
	agent  *agent.Agent
	logger *slog.Logger
}

func NewRecommendationsHandler(a *agent.Agent, logger *slog.Logger) *RecommendationsHandler {
	return &RecommendationsHandler{agent: a, logger: logger}
}

type SearchRequest struct {
	Text string `json:"text"`
}

// StreamRequest carries either a structured query or free text.
type StreamRequest struct {
	Query *models.Query `json:"query,omitempty"`
	Text  string        `json:"text,omitempty"`
}

// StreamLine is one NDJSON line of a streamed recommendation.
type StreamLine struct {
	Type      string                `json:"type"` // "event", "result" or "error"
	Event     *trace.Event          `json:"event,omitempty"`
	QueryID   string                `json:"query_id,omitempty"`
	Results   []models.RankedResult `json:"results,omitempty"`
	Error     string                `json:"error,omitempty"`
	Reason    string                `json:"reason,omitempty"`
	Retryable bool                  `json:"retryable,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (h *RecommendationsHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var q models.Query
	if err := decodeBody(w, r, &q); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	rec, err := h.agent.Recommend(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *RecommendationsHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text required", Reason: "invalid"})
		return
	}
	rec, err := h.agent.RecommendText(r.Context(), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Stream writes trace events as NDJSON while the query runs and finishes
// with a result or error line. Errors after the first byte cannot change
// the status code, so they are reported in-band.
func (h *RecommendationsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req StreamRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Query == nil && strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query or text required", Reason: "invalid"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	var ev *agent.Evaluation
	if req.Query != nil {
		ev = h.agent.Begin(r.Context(), *req.Query)
	} else {
		ev = h.agent.BeginText(r.Context(), req.Text)
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("X-Query-ID", ev.QueryID())
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)

	streamCtx, stop := context.WithCancel(r.Context())
	defer stop()
	for e := range ev.Events(streamCtx) {
		if err := enc.Encode(StreamLine{Type: "event", Event: &e}); err != nil {
			h.logger.Debug("stream write failed", "query_id", ev.QueryID(), "error", err)
			break
		}
		flusher.Flush()
	}

	rec, err := ev.Wait()
	line := StreamLine{Type: "result", QueryID: ev.QueryID()}
	if err != nil {
		reason, retryable := agent.Classify(err)
		line = StreamLine{Type: "error", QueryID: ev.QueryID(), Error: err.Error(), Reason: reason, Retryable: retryable}
	} else {
		line.Results = rec.Results
	}
	if err := enc.Encode(line); err != nil {
		h.logger.Debug("stream write failed", "query_id", ev.QueryID(), "error", err)
		return
	}
	flusher.Flush()
}

func (h *RecommendationsHandler) Criteria(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"criteria": h.agent.Criteria()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeError(w http.ResponseWriter, err error) {
	reason, retryable := agent.Classify(err)
	status := http.StatusInternalServerError
	switch reason {
	case "invalid":
		status = http.StatusBadRequest
	case "unavailable", "canceled":
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Reason: reason, Retryable: retryable})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
