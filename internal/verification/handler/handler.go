package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"

	"docgate/internal/audit"
	"docgate/internal/platform/middleware"
	"docgate/internal/transport/http/shared"
	"docgate/internal/verification"
	"docgate/internal/verification/lock"
	dErrors "docgate/pkg/domain-errors"
)

// Service defines the verification gateway operations the handler depends on.
type Service interface {
	Verify(ctx context.Context, req verification.Request, actor verification.Actor) (verification.Result, error)
	IssueCode(ctx context.Context, docID string) (string, time.Time, error)
	IssueToken(ctx context.Context, docID, issuer string, ttl time.Duration) (string, time.Time, error)
	LockState(ctx context.Context, docID string) (lock.State, error)
	Relock(ctx context.Context, docID string, actor verification.Actor) (lock.State, error)
	History(ctx context.Context, docID string) ([]audit.Entry, error)
}

// Handler exposes the verification gate over HTTP.
type Handler struct {
	gateway Service
	logger  *slog.Logger
}

func New(gateway Service, logger *slog.Logger) *Handler {
	return &Handler{gateway: gateway, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/ingest/receipt-code/verify", h.handleVerify)
	r.Post("/documents/{docID}/verification-code", h.handleIssueCode)
	r.Post("/documents/{docID}/verification-token", h.handleIssueToken)
	r.Get("/documents/{docID}/lock-state", h.handleLockState)
	r.Post("/documents/{docID}/relock", h.handleRelock)
	r.Get("/documents/{docID}/audit", h.handleAuditHistory)
}

// actorFrom builds the opaque verifying identity from the request: the caller
// supplied actor ID plus a short device summary for the audit trail.
func actorFrom(r *http.Request, actorID string) verification.Actor {
	actor := verification.Actor{ID: actorID}
	if rawUA := r.Header.Get("User-Agent"); rawUA != "" {
		ua := useragent.New(rawUA)
		name, version := ua.Browser()
		actor.Device = fmt.Sprintf("%s %s (%s)", name, version, ua.OS())
	}
	return actor
}

type verifyResponse struct {
	Verified bool `json:"verified"`
	Unlocked bool `json:"unlocked"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verification.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.gateway.Verify(ctx, req, actorFrom(r, req.Actor))
	if err != nil {
		// Rate limiting and audit unavailability are surfaced as statuses;
		// the body stays generic either way.
		if dErrors.Is(err, dErrors.CodeRateLimited) || dErrors.Is(err, dErrors.CodeUnavailable) || dErrors.Is(err, dErrors.CodeBadRequest) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "verification failed",
			"request_id", middleware.GetRequestID(ctx),
			"doc_id", req.DocID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "verification failed"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, verifyResponse{Verified: result.Verified, Unlocked: result.Unlocked})
}

type issueCodeResponse struct {
	Code6     string    `json:"code6"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) handleIssueCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := chi.URLParam(r, "docID")

	raw, expiresAt, err := h.gateway.IssueCode(ctx, docID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue verification code",
			"request_id", middleware.GetRequestID(ctx),
			"doc_id", docID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	// The raw code crosses the wire exactly once; it is never retrievable again.
	shared.WriteJSON(w, http.StatusCreated, issueCodeResponse{Code6: raw, ExpiresAt: expiresAt})
}

type issueTokenRequest struct {
	Issuer     string `json:"issuer"`
	TTLSeconds int    `json:"ttl_seconds"`
}

type issueTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := chi.URLParam(r, "docID")

	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if req.TTLSeconds < 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "ttl_seconds must not be negative"))
		return
	}
	// Zero falls through to the service's configured default lifetime.
	ttl := time.Duration(req.TTLSeconds) * time.Second

	token, expiresAt, err := h.gateway.IssueToken(ctx, docID, req.Issuer, ttl)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue verification token",
			"request_id", middleware.GetRequestID(ctx),
			"doc_id", docID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, issueTokenResponse{Token: token, ExpiresAt: expiresAt})
}

type lockStateResponse struct {
	SensitiveInputLocked bool       `json:"sensitive_input_locked"`
	UnlockedAt           *time.Time `json:"unlocked_at,omitempty"`
	UnlockedMethod       string     `json:"unlocked_method,omitempty"`
	UnlockedBy           string     `json:"unlocked_by,omitempty"`
}

func toLockStateResponse(state lock.State) lockStateResponse {
	return lockStateResponse{
		SensitiveInputLocked: state.SensitiveInputLocked,
		UnlockedAt:           state.UnlockedAt,
		UnlockedMethod:       string(state.UnlockedMethod),
		UnlockedBy:           state.UnlockedBy,
	}
}

func (h *Handler) handleLockState(w http.ResponseWriter, r *http.Request) {
	state, err := h.gateway.LockState(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toLockStateResponse(state))
}

type relockRequest struct {
	Actor string `json:"actor"`
}

func (h *Handler) handleRelock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := chi.URLParam(r, "docID")

	var req relockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	state, err := h.gateway.Relock(ctx, docID, actorFrom(r, req.Actor))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to relock document",
			"request_id", middleware.GetRequestID(ctx),
			"doc_id", docID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toLockStateResponse(state))
}

type auditEntryResponse struct {
	DocID   string    `json:"doc_id"`
	Actor   string    `json:"actor,omitempty"`
	Device  string    `json:"device,omitempty"`
	Method  string    `json:"method"`
	Outcome string    `json:"outcome"`
	At      time.Time `json:"at"`
}

func (h *Handler) handleAuditHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.gateway.History(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		// Reason codes stay internal; the timeline shows outcomes only.
		out = append(out, auditEntryResponse{
			DocID:   e.DocID,
			Actor:   e.Actor,
			Device:  e.Device,
			Method:  string(e.Method),
			Outcome: string(e.Outcome),
			At:      e.At,
		})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}
