package httptransport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"procura/internal/evidence"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
)

// EvidenceService captures assets and assembles bundles.
type EvidenceService interface {
	Capture(ctx context.Context, planExecutionID id.PlanExecutionID, assetType evidence.AssetType, reference string, content []byte) (*evidence.Asset, error)
	Collect(ctx context.Context, planExecutionID id.PlanExecutionID) (*evidence.Bundle, error)
}

type EvidenceHandler struct {
	service EvidenceService
}

func NewEvidenceHandler(service EvidenceService) *EvidenceHandler {
	return &EvidenceHandler{service: service}
}

func (h *EvidenceHandler) Register(r chi.Router) {
	r.Post("/evidence", h.handleCapture)
	r.Get("/plan-executions/{planExecutionID}/evidence", h.handleCollect)
}

type captureRequest struct {
	PlanExecutionID string `json:"plan_execution_id"`
	Type            string `json:"type"`
	Reference       string `json:"reference"`
	ContentBase64   string `json:"content_base64"`
}

type assetResponse struct {
	ID              string `json:"id"`
	PlanExecutionID string `json:"plan_execution_id"`
	Type            string `json:"type"`
	Reference       string `json:"reference"`
	ContentHash     string `json:"content_hash"`
	CreatedAt       string `json:"created_at"`
}

func toAssetResponse(asset *evidence.Asset) assetResponse {
	return assetResponse{
		ID:              asset.ID.String(),
		PlanExecutionID: string(asset.PlanExecutionID),
		Type:            string(asset.Type),
		Reference:       asset.Reference,
		ContentHash:     asset.ContentHash,
		CreatedAt:       asset.CreatedAt.Format(time.RFC3339Nano),
	}
}

func (h *EvidenceHandler) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "content_base64 is not valid base64"))
		return
	}

	asset, err := h.service.Capture(r.Context(), id.PlanExecutionID(req.PlanExecutionID), evidence.AssetType(req.Type), req.Reference, content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssetResponse(asset))
}

func (h *EvidenceHandler) handleCollect(w http.ResponseWriter, r *http.Request) {
	planExecutionID := id.PlanExecutionID(chi.URLParam(r, "planExecutionID"))

	bundle, err := h.service.Collect(r.Context(), planExecutionID)
	if err != nil {
		writeError(w, err)
		return
	}

	assets := make([]assetResponse, 0, len(bundle.Assets))
	for _, asset := range bundle.Assets {
		assets = append(assets, toAssetResponse(asset))
	}
	entries := make([]auditEntryResponse, 0, len(bundle.AuditEntries))
	for _, entry := range bundle.AuditEntries {
		entries = append(entries, toAuditEntryResponse(entry))
	}

	payload := map[string]any{
		"plan_execution_id": string(bundle.PlanExecutionID),
		"assets":            assets,
		"audit_entries":     entries,
	}
	if bundle.Charge != nil {
		payload["charge"] = chargeResponse{
			ID:              bundle.Charge.ID.String(),
			PlanExecutionID: string(bundle.Charge.PlanExecutionID),
			UserID:          bundle.Charge.UserID.String(),
			MandateID:       bundle.Charge.MandateID.String(),
			AmountCents:     bundle.Charge.AmountCents,
			Currency:        bundle.Charge.Currency,
			Status:          string(bundle.Charge.Status),
			ProcessorRef:    bundle.Charge.ProcessorRef,
			FailureReason:   bundle.Charge.FailureReason,
			CreatedAt:       bundle.Charge.CreatedAt.Format(time.RFC3339Nano),
		}
	}
	writeJSON(w, http.StatusOK, payload)
}
