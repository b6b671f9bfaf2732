package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Brownie44l1/fitness-api/internal/fitness"
	"github.com/Brownie44l1/fitness-api/internal/metrics"
	"github.com/Brownie44l1/fitness-api/internal/raster"
)

// EvaluateRequest carries a raw row-major RGB image. A pointer distinguishes
// a missing field from an empty array.
type EvaluateRequest struct {
	ImageBytes *[]int `json:"image_bytes"`
}

type EvaluateResponse struct {
	Fitness float64 `json:"fitness"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Target    string `json:"target"`
	Dimension int    `json:"dimension"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	scorer       *fitness.Scorer
	metrics      *metrics.Metrics
	logger       *slog.Logger
	targetPath   string
	maxBodyBytes int64
}

func NewHandler(scorer *fitness.Scorer, m *metrics.Metrics, logger *slog.Logger, targetPath string, maxBodyBytes int64) *Handler {
	return &Handler{
		scorer:       scorer,
		metrics:      m,
		logger:       logger,
		targetPath:   targetPath,
		maxBodyBytes: maxBodyBytes,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Target:    h.targetPath,
		Dimension: h.scorer.Dimension(),
	})
}

// Evaluate scores the posted image against the target.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var req EvaluateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ImageBytes == nil {
		writeError(w, http.StatusBadRequest, "Missing field image_bytes")
		return
	}

	payload, err := toBytes(*req.ImageBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	img, err := raster.FromRGB(payload, raster.Width, raster.Height)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Expected %d values, got %d",
			raster.PayloadSize(raster.Width, raster.Height), len(payload)))
		return
	}

	start := time.Now()
	score, err := h.scorer.Score(img)
	if err != nil {
		h.logger.Error("evaluation failed", "err", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Evaluation failed")
		return
	}
	elapsed := time.Since(start)
	h.metrics.ObserveEvaluation(score, elapsed)

	h.logger.Debug("evaluated candidate",
		"fitness", score,
		"duration", elapsed,
		"request_id", RequestID(r.Context()))

	writeJSON(w, http.StatusOK, EvaluateResponse{Fitness: score})
}

func toBytes(values []int) ([]byte, error) {
	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("image_bytes[%d] = %d is outside 0-255", i, v)
		}
		out[i] = byte(v)
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
