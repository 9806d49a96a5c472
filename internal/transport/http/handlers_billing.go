package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"procura/internal/billing/models"
	"procura/internal/billing/store"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
	"procura/pkg/requestcontext"
)

// ChargeService raises the at-most-once charge for a plan execution.
type ChargeService interface {
	ChargeOnSuccess(ctx context.Context, planExecutionID id.PlanExecutionID) (*models.Charge, error)
}

type BillingHandler struct {
	charger ChargeService
	plans   store.PlanExecutionStore
}

func NewBillingHandler(charger ChargeService, plans store.PlanExecutionStore) *BillingHandler {
	return &BillingHandler{charger: charger, plans: plans}
}

func (h *BillingHandler) Register(r chi.Router) {
	r.Post("/plan-executions", h.handleCreatePlan)
	r.Post("/plan-executions/{planExecutionID}/complete", h.handleCompletePlan)
	r.Post("/charges", h.handleCharge)
}

type createPlanRequest struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	MandateID   string `json:"mandate_id"`
	Provider    string `json:"provider"`
	Tool        string `json:"tool"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

func (h *BillingHandler) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.ID == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "plan execution id is required"))
		return
	}

	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	mandateID, err := id.ParseMandateID(req.MandateID)
	if err != nil {
		writeError(w, err)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	plan := &models.PlanExecution{
		ID:          id.PlanExecutionID(req.ID),
		UserID:      userID,
		MandateID:   mandateID,
		Provider:    id.Provider(req.Provider),
		Tool:        req.Tool,
		AmountCents: req.AmountCents,
		Currency:    currency,
		Status:      models.PlanPending,
		CreatedAt:   requestcontext.Now(r.Context()).UTC(),
	}
	if err := h.plans.Create(r.Context(), plan); err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeConflict, "plan execution already exists"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID, "status": string(plan.Status)})
}

type completePlanRequest struct {
	Status string `json:"status"`
}

func (h *BillingHandler) handleCompletePlan(w http.ResponseWriter, r *http.Request) {
	planExecutionID := id.PlanExecutionID(chi.URLParam(r, "planExecutionID"))

	var req completePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	status := models.PlanStatus(req.Status)
	if status != models.PlanSuccess && status != models.PlanFailed {
		writeError(w, dErrors.Newf(dErrors.CodeInvalidInput, "status must be %q or %q", models.PlanSuccess, models.PlanFailed))
		return
	}

	if err := h.plans.UpdateStatus(r.Context(), planExecutionID, status, requestcontext.Now(r.Context()).UTC()); err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "plan execution not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": string(planExecutionID), "status": string(status)})
}

type chargeRequest struct {
	PlanExecutionID string `json:"plan_execution_id"`
}

type chargeResponse struct {
	ID              string `json:"id"`
	PlanExecutionID string `json:"plan_execution_id"`
	UserID          string `json:"user_id"`
	MandateID       string `json:"mandate_id"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
	ProcessorRef    string `json:"processor_ref,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func (h *BillingHandler) handleCharge(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	charge, err := h.charger.ChargeOnSuccess(r.Context(), id.PlanExecutionID(req.PlanExecutionID))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chargeResponse{
		ID:              charge.ID.String(),
		PlanExecutionID: string(charge.PlanExecutionID),
		UserID:          charge.UserID.String(),
		MandateID:       charge.MandateID.String(),
		AmountCents:     charge.AmountCents,
		Currency:        charge.Currency,
		Status:          string(charge.Status),
		ProcessorRef:    charge.ProcessorRef,
		FailureReason:   charge.FailureReason,
		CreatedAt:       charge.CreatedAt.Format(time.RFC3339Nano),
	})
}
