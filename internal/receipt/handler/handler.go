package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"docgate/internal/platform/middleware"
	"docgate/internal/receipt"
	"docgate/internal/transport/http/shared"
	dErrors "docgate/pkg/domain-errors"
)

// Service defines the receipt operations the handler depends on.
type Service interface {
	Issue(ctx context.Context, docID string, facts receipt.FactSet) (receipt.Receipt, error)
	Get(ctx context.Context, receiptID string) (receipt.Receipt, error)
	Latest(ctx context.Context, docID string) (receipt.Receipt, error)
	ListByDoc(ctx context.Context, docID string) ([]receipt.Receipt, error)
}

// Handler exposes receipt issuance and lookup over HTTP.
type Handler struct {
	receipts Service
	logger   *slog.Logger
}

func New(receipts Service, logger *slog.Logger) *Handler {
	return &Handler{receipts: receipts, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/ingest/receipts", h.handleIssue)
	r.Get("/documents/{docID}/receipt", h.handleLatest)
	r.Get("/documents/{docID}/receipts", h.handleList)
	r.Get("/receipts/{receiptID}", h.handleGet)
}

type issueRequest struct {
	DocID string          `json:"doc_id"`
	Facts receipt.FactSet `json:"facts"`
}

type receiptResponse struct {
	ReceiptID     string          `json:"receipt_id"`
	DocID         string          `json:"doc_id"`
	CanonicalJSON json.RawMessage `json:"canonical_json"`
	SHA256Hash    string          `json:"sha256_hash"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toResponse(r receipt.Receipt) receiptResponse {
	return receiptResponse{
		ReceiptID:     r.ID.String(),
		DocID:         r.DocID,
		CanonicalJSON: json.RawMessage(r.CanonicalJSON()),
		SHA256Hash:    r.Hash,
		CreatedAt:     r.CreatedAt,
	}
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	issued, err := h.receipts.Issue(ctx, req.DocID, req.Facts)
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeBadRequest) {
			h.logger.ErrorContext(ctx, "failed to issue receipt",
				"request_id", middleware.GetRequestID(ctx),
				"doc_id", req.DocID,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toResponse(issued))
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	found, err := h.receipts.Latest(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(found))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.receipts.ListByDoc(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]receiptResponse, 0, len(receipts))
	for _, item := range receipts {
		out = append(out, toResponse(item))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	found, err := h.receipts.Get(r.Context(), chi.URLParam(r, "receiptID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(found))
}
