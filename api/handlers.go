package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"agent-optimus/services"
	"agent-optimus/utils"
)

// Handler serves the API routes.
type Handler struct {
	deps   Deps
	logger *utils.Logger
}

type errorBody struct {
	Code    services.Code `json:"code"`
	Message string        `json:"message"`
}

type uploadRequest struct {
	FileName          string `json:"fileName"`
	FileContentBase64 string `json:"fileContentBase64"`
}

type activateTrialRequest struct {
	UserID string `json:"userId"`
}

// statusFor maps a failure category to its HTTP status.
func statusFor(code services.Code) int {
	switch code {
	case services.CodeUnauthenticated:
		return http.StatusUnauthorized
	case services.CodePermissionDenied:
		return http.StatusForbidden
	case services.CodeInvalidArgument:
		return http.StatusBadRequest
	case services.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes err as {"error": {"code", "message"}}.
func writeError(w http.ResponseWriter, err error) {
	code := services.CodeOf(err)
	msg := "Internal error."
	var se *services.Error
	if errors.As(err, &se) {
		msg = se.Message
	}
	writeJSON(w, statusFor(code), map[string]errorBody{"error": {Code: code, Message: msg}})
}

func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, data)
}

func (h *Handler) Fail(w http.ResponseWriter, err error) {
	writeError(w, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.Fail(w, &services.Error{Code: services.CodeInvalidArgument, Message: "Malformed request body."})
		return false
	}
	return true
}

// UploadPropertyCSV handles POST /functions/uploadPropertyCSV.
func (h *Handler) UploadPropertyCSV(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.deps.Uploader.SubmitUpload(r.Context(), CallerFrom(r.Context()), req.FileName, req.FileContentBase64)
	if err != nil {
		h.Fail(w, err)
		return
	}
	h.JSON(w, http.StatusOK, res)
}

// ActivateTrial handles POST /functions/activateTrial.
func (h *Handler) ActivateTrial(w http.ResponseWriter, r *http.Request) {
	var req activateTrialRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.deps.Trials.ActivateTrial(r.Context(), CallerFrom(r.Context()), req.UserID)
	if err != nil {
		h.Fail(w, err)
		return
	}
	h.JSON(w, http.StatusOK, res)
}

// PropertyInsights handles GET /properties/insights for the caller's listings.
func (h *Handler) PropertyInsights(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	if caller == nil {
		h.Fail(w, &services.Error{Code: services.CodeUnauthenticated, Message: "You must be logged in."})
		return
	}
	props, err := h.deps.Properties.ListByAgent(r.Context(), caller.ID)
	if err != nil {
		h.logger.Error("[api] Listing properties of %s failed: %v", caller.ID, err)
		h.Fail(w, err)
		return
	}
	h.JSON(w, http.StatusOK, h.deps.Insights.Generate(props))
}

type check struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// Health reports "healthy" or "degraded" with per-dependency checks.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]check)
	healthy := true

	if h.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		start := time.Now()
		if err := h.deps.DB.Ping(ctx); err != nil {
			checks["postgres"] = check{Status: "fail", Message: "connection failed"}
			healthy = false
		} else {
			checks["postgres"] = check{Status: "pass", Latency: time.Since(start).String()}
		}
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	h.JSON(w, code, map[string]interface{}{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
