package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tripops/attribution/internal/consistency"
	"github.com/tripops/attribution/internal/ingest"
	"github.com/tripops/attribution/internal/models"
	"github.com/tripops/attribution/internal/report"
	"github.com/tripops/attribution/internal/store"
	"github.com/tripops/attribution/internal/utils"
)

func NewRouter(log *slog.Logger, reports *report.Service, checker *consistency.Checker, ing *ingest.Service, allowedOrigins []string) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))
	mux.Use(utils.Metrics)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.Post("/reports", func(w http.ResponseWriter, r *http.Request) {
		var req models.ReportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, log, models.Invalid("invalid JSON body: %v", err))
			return
		}
		resp, err := reports.Generate(r.Context(), req)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	type checkReq struct {
		AgentID  string   `json:"agentId"`
		BranchID string   `json:"branchId"`
		Date     string   `json:"date"`
		Dates    []string `json:"dates"`
	}

	mux.Post("/consistency/check", func(w http.ResponseWriter, r *http.Request) {
		var req checkReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, log, models.Invalid("invalid JSON body: %v", err))
			return
		}
		res, err := checker.CheckAlignment(r.Context(), req.AgentID, req.Date, req.BranchID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	// GET variant for dashboards and curl: same parameters as query string.
	mux.Get("/consistency/check", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res, err := checker.CheckAlignment(r.Context(), q.Get("agentId"), q.Get("date"), q.Get("branchId"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	mux.Post("/consistency/batch", func(w http.ResponseWriter, r *http.Request) {
		var req checkReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, log, models.Invalid("invalid JSON body: %v", err))
			return
		}
		res, err := checker.CheckBatch(r.Context(), req.AgentID, req.Dates, req.BranchID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	mux.Get("/consistency/batch", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res, err := checker.CheckBatch(r.Context(), q.Get("agentId"), csvParam(q.Get("dates")), q.Get("branchId"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	mux.Post("/ingest/media", func(w http.ResponseWriter, r *http.Request) {
		var entry ingest.MediaEntry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			writeError(w, log, models.Invalid("invalid JSON body: %v", err))
			return
		}
		n, err := ing.RecordMedia(r.Context(), entry)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"recorded": n})
	})

	mux.Post("/ingest/sales", func(w http.ResponseWriter, r *http.Request) {
		var entry ingest.SalesEntry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			writeError(w, log, models.Invalid("invalid JSON body: %v", err))
			return
		}
		n, err := ing.RecordSales(r.Context(), entry)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"recorded": n})
	})

	return mux
}

// csvParam splits a comma-separated query value, dropping empty items.
func csvParam(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}

// writeError maps the error taxonomy to status codes: validation errors are
// 400 with the message verbatim, unresolvable master-data references are 422,
// everything else is an opaque 500.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Msg})
	case errors.Is(err, store.ErrUnknownReference):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		log.Error("request failed", slog.String("err", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
