package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/54b3r/legalrag-go/internal/intake"
	"github.com/54b3r/legalrag-go/internal/logging"
)

// Prediction outcomes used as metric label values.
const (
	outcomeOK       = "ok"
	outcomeFallback = "fallback"
	outcomeInvalid  = "invalid"
	outcomeTimeout  = "timeout"
	outcomeError    = "error"
)

// Limits for GET /api/cases.
const (
	defaultCasesLimit = 20
	maxCasesLimit     = 200
)

// handlePredict handles POST /predict/ and POST /api/predict. It classifies
// the submitted case and answers with the input echoed alongside the result.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()
	s.metrics.predictInFlight.Inc()
	defer s.metrics.predictInFlight.Dec()

	outcome := outcomeError
	defer func() {
		s.metrics.predictRequestsTotal.WithLabelValues(outcome).Inc()
		s.metrics.predictDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	var req intake.CaseInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		outcome = outcomeInvalid
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.CaseDescription) == "" {
		outcome = outcomeInvalid
		writeError(w, r, http.StatusBadRequest, "case_description is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.PredictTimeout)
	defer cancel()

	res, err := s.predictor.Predict(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, intake.ErrEmptyDescription):
			outcome = outcomeInvalid
			writeError(w, r, http.StatusBadRequest, "case_description is required")
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			outcome = outcomeTimeout
			log.Error("predict timed out", slog.Duration("timeout", s.cfg.PredictTimeout), slog.Any("error", err))
			writeError(w, r, http.StatusGatewayTimeout, "prediction timed out")
		default:
			log.Error("predict failed", slog.Any("error", err))
			writeError(w, r, http.StatusBadGateway, upstreamMessage(err))
		}
		return
	}

	outcome = outcomeOK
	if res.Fallback {
		outcome = outcomeFallback
	}
	s.metrics.predictUrgencyTotal.WithLabelValues(string(res.Response.Urgency)).Inc()

	writeJSON(w, r, http.StatusOK, intake.Prediction{Input: req, Response: res})
}

// upstreamMessage names the failing stage without leaking provider detail.
func upstreamMessage(err error) string {
	switch {
	case errors.Is(err, intake.ErrRetrieval):
		return "document retrieval failed"
	case errors.Is(err, intake.ErrModel):
		return "language model request failed"
	default:
		return "prediction failed"
	}
}

// handleCases handles GET /api/cases?limit=N, listing recent predictions.
func (s *Server) handleCases(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, r, http.StatusNotFound, "prediction history is disabled")
		return
	}

	limit := defaultCasesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxCasesLimit)
	}

	recs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("history: list failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "failed to load prediction history")
		return
	}
	writeJSON(w, r, http.StatusOK, casesResponse{Cases: recs})
}
