// Package httpapi exposes the on-demand trigger and status endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fd1az/carbon-oracle/business/oracle/domain"
	"github.com/fd1az/carbon-oracle/internal/apperror"
	"github.com/fd1az/carbon-oracle/internal/logger"
	"github.com/fd1az/carbon-oracle/internal/ratelimit"
)

// Orchestrator is what the trigger surface needs from a domain orchestrator.
type Orchestrator interface {
	Domain() domain.Domain
	Run(ctx context.Context, trigger domain.Trigger) domain.RunResult
	Status() domain.Status
}

// Handler serves POST /trigger-update[/{domain}] and GET /status.
type Handler struct {
	orchestrators map[domain.Domain]Orchestrator
	order         []domain.Domain
	limiter       *ratelimit.Limiter
	logger        logger.LoggerInterface
}

// NewHandler creates a Handler. The first orchestrator answers the bare
// /trigger-update route. limiter may be nil.
func NewHandler(log logger.LoggerInterface, limiter *ratelimit.Limiter, orchestrators ...Orchestrator) *Handler {
	h := &Handler{
		orchestrators: make(map[domain.Domain]Orchestrator, len(orchestrators)),
		limiter:       limiter,
		logger:        log,
	}
	for _, o := range orchestrators {
		h.orchestrators[o.Domain()] = o
		h.order = append(h.order, o.Domain())
	}
	return h
}

// Register mounts the routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	limit := ratelimit.Middleware(h.limiter, h.rejectRateLimited)

	mux.Handle("POST /trigger-update", limit(http.HandlerFunc(h.handleTriggerPrimary)))
	mux.Handle("POST /trigger-update/{domain}", limit(http.HandlerFunc(h.handleTriggerDomain)))
	mux.HandleFunc("GET /status", h.handleStatus)
}

type runResponse struct {
	Success bool                   `json:"success"`
	JobID   string                 `json:"jobId,omitempty"`
	Domain  domain.Domain          `json:"domain"`
	Data    *domain.EstimateResult `json:"data,omitempty"`
	Receipt *domain.Receipt        `json:"receipt,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Code    string                 `json:"code,omitempty"`
	TxHash  string                 `json:"transactionHash,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func (h *Handler) handleTriggerPrimary(w http.ResponseWriter, r *http.Request) {
	if len(h.order) == 0 {
		h.writeError(w, apperror.New(apperror.CodeUnknownDomain, apperror.WithContext("no domains configured")))
		return
	}
	h.trigger(w, r, h.orchestrators[h.order[0]])
}

func (h *Handler) handleTriggerDomain(w http.ResponseWriter, r *http.Request) {
	d, err := domain.ParseDomain(r.PathValue("domain"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	o, ok := h.orchestrators[d]
	if !ok {
		h.writeError(w, apperror.New(apperror.CodeUnknownDomain,
			apperror.WithContext(d.String()+" is not served by this process")))
		return
	}
	h.trigger(w, r, o)
}

// trigger runs synchronously. The run is detached from the request so a
// client hanging up cannot abandon a broadcast transaction mid-confirmation.
func (h *Handler) trigger(w http.ResponseWriter, r *http.Request, o Orchestrator) {
	ctx := r.Context()
	h.logger.Info(ctx, "manual update triggered", "domain", o.Domain().String(), "remote", r.RemoteAddr)

	res := o.Run(context.WithoutCancel(ctx), domain.TriggerManual)

	resp := runResponse{
		Success: res.Success,
		JobID:   res.JobID,
		Domain:  res.Domain,
		Data:    res.Data,
		Receipt: res.Receipt,
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
		resp.Error = errorMessage(res.Err)
		resp.Code = string(apperror.GetCode(res.Err))
		var appErr *apperror.AppError
		if errors.As(res.Err, &appErr) {
			resp.TxHash = appErr.TxHash
		}
	}
	writeJSON(w, status, resp)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	out := struct {
		Timestamp time.Time       `json:"timestamp"`
		Domains   []domain.Status `json:"domains"`
	}{
		Timestamp: time.Now().UTC(),
		Domains:   make([]domain.Status, 0, len(h.order)),
	}
	for _, d := range h.order {
		out.Domains = append(out.Domains, h.orchestrators[d].Status())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) rejectRateLimited(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	h.logger.Warn(r.Context(), "manual trigger rate limited", "path", r.URL.Path, "retry_after", retryAfter.String())
	h.writeError(w, apperror.New(apperror.CodeRateLimitExceeded,
		apperror.WithContext("retry in "+retryAfter.Round(time.Second).String())))
}

// writeError answers with the error's own status code.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		status = appErr.StatusCode
	}
	writeJSON(w, status, errorResponse{
		Success: false,
		Error:   errorMessage(err),
		Code:    string(apperror.GetCode(err)),
	})
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
