package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"procura/internal/mandate/models"
	mandatesvc "procura/internal/mandate/service"
	"procura/internal/mandate/token"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
)

// MandateService issues and refreshes mandates.
type MandateService interface {
	CreateOrRefreshMandate(ctx context.Context, userID id.UserID, provider id.Provider, orgRef string, scopes []string, opts mandatesvc.CreateOptions) (*models.Mandate, bool, error)
}

// MandateReader serves lookups. The mandate store satisfies it.
type MandateReader interface {
	FindByID(ctx context.Context, mandateID id.MandateID) (*models.Mandate, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Mandate, error)
	UpdateStatus(ctx context.Context, mandateID id.MandateID, status models.Status) error
}

// TokenVerifier runs the stateless mandate check.
type TokenVerifier interface {
	Verify(ctx context.Context, signed string, required id.Scopes, opts ...mandatesvc.VerifyOption) (*token.Claims, error)
}

// RevocationList marks revoked mandate ids for the refresh path.
type RevocationList interface {
	Revoke(ctx context.Context, mandateID id.MandateID, ttl time.Duration) error
}

type MandateHandler struct {
	service    MandateService
	mandates   MandateReader
	verifier   TokenVerifier
	revocation RevocationList
}

func NewMandateHandler(service MandateService, mandates MandateReader, verifier TokenVerifier, revocation RevocationList) *MandateHandler {
	return &MandateHandler{service: service, mandates: mandates, verifier: verifier, revocation: revocation}
}

func (h *MandateHandler) Register(r chi.Router) {
	r.Post("/mandates", h.handleCreate)
	r.Post("/mandates/verify", h.handleVerify)
	r.Get("/mandates/{mandateID}", h.handleGet)
	r.Post("/mandates/{mandateID}/revoke", h.handleRevoke)
	r.Get("/users/{userID}/mandates", h.handleListByUser)
}

type createMandateRequest struct {
	UserID         string   `json:"user_id"`
	Provider       string   `json:"provider"`
	OrgRef         string   `json:"org_ref"`
	Scopes         []string `json:"scopes"`
	ChildID        string   `json:"child_id"`
	ProgramRef     string   `json:"program_ref"`
	MaxAmountCents int64    `json:"max_amount_cents"`
}

type mandateResponse struct {
	ID             string   `json:"id"`
	UserID         string   `json:"user_id"`
	Provider       string   `json:"provider"`
	OrgRef         string   `json:"org_ref,omitempty"`
	Scopes         []string `json:"scopes"`
	ChildID        string   `json:"child_id,omitempty"`
	ProgramRef     string   `json:"program_ref,omitempty"`
	MaxAmountCents int64    `json:"max_amount_cents"`
	ValidFrom      string   `json:"valid_from"`
	ValidUntil     string   `json:"valid_until"`
	TimePeriod     string   `json:"time_period"`
	CredentialType string   `json:"credential_type"`
	Status         string   `json:"status"`
	Token          string   `json:"token"`
	Reused         bool     `json:"reused"`
}

func toMandateResponse(m *models.Mandate, reused bool) mandateResponse {
	return mandateResponse{
		ID:             m.ID.String(),
		UserID:         m.UserID.String(),
		Provider:       m.Provider.String(),
		OrgRef:         m.OrgRef,
		Scopes:         m.Scopes.Strings(),
		ChildID:        m.ChildID,
		ProgramRef:     m.ProgramRef,
		MaxAmountCents: m.MaxAmountCents,
		ValidFrom:      m.ValidFrom.Format(time.RFC3339),
		ValidUntil:     m.ValidUntil.Format(time.RFC3339),
		TimePeriod:     m.TimePeriod,
		CredentialType: string(m.CredentialType),
		Status:         string(m.Status),
		Token:          m.Token,
		Reused:         reused,
	}
}

func (h *MandateHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createMandateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	mandate, reused, err := h.service.CreateOrRefreshMandate(r.Context(), userID, id.Provider(req.Provider), req.OrgRef, req.Scopes, mandatesvc.CreateOptions{
		ChildID:        req.ChildID,
		ProgramRef:     req.ProgramRef,
		MaxAmountCents: req.MaxAmountCents,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if reused {
		status = http.StatusOK
	}
	writeJSON(w, status, toMandateResponse(mandate, reused))
}

func (h *MandateHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	mandateID, err := id.ParseMandateID(chi.URLParam(r, "mandateID"))
	if err != nil {
		writeError(w, err)
		return
	}

	mandate, err := h.mandates.FindByID(r.Context(), mandateID)
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "mandate not found"))
		return
	}
	writeJSON(w, http.StatusOK, toMandateResponse(mandate, false))
}

func (h *MandateHandler) handleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}

	mandates, err := h.mandates.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list mandates"))
		return
	}

	out := make([]mandateResponse, 0, len(mandates))
	for _, m := range mandates {
		out = append(out, toMandateResponse(m, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"mandates": out})
}

func (h *MandateHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	mandateID, err := id.ParseMandateID(chi.URLParam(r, "mandateID"))
	if err != nil {
		writeError(w, err)
		return
	}

	mandate, err := h.mandates.FindByID(r.Context(), mandateID)
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "mandate not found"))
		return
	}

	if err := h.mandates.UpdateStatus(r.Context(), mandateID, models.StatusRevoked); err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke mandate"))
		return
	}

	if h.revocation != nil {
		// Keep the revocation marker around as long as the token could
		// otherwise still pass the validity window check.
		ttl := time.Until(mandate.ValidUntil)
		if ttl > 0 {
			if err := h.revocation.Revoke(r.Context(), mandateID, ttl); err != nil {
				writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark mandate revoked"))
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.StatusRevoked)})
}

type verifyMandateRequest struct {
	Token       string   `json:"token"`
	Scopes      []string `json:"scopes"`
	AmountCents int64    `json:"amount_cents"`
}

type verifyMandateResponse struct {
	MandateID      string   `json:"mandate_id"`
	UserID         string   `json:"user_id"`
	Provider       string   `json:"provider"`
	Scopes         []string `json:"scopes"`
	MaxAmountCents int64    `json:"max_amount_cents"`
	ValidFrom      string   `json:"valid_from"`
	ValidUntil     string   `json:"valid_until"`
	Verified       bool     `json:"verified"`
}

func (h *MandateHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyMandateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	signed := r.Header.Get(MandateJWSHeader)
	if signed == "" {
		signed = req.Token
	}
	if signed == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "missing mandate token"))
		return
	}

	var opts []mandatesvc.VerifyOption
	if req.AmountCents > 0 {
		opts = append(opts, mandatesvc.WithAmountCents(req.AmountCents))
	}

	claims, err := h.verifier.Verify(r.Context(), signed, id.NewScopes(req.Scopes), opts...)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyMandateResponse{
		MandateID:      claims.MandateID,
		UserID:         claims.UserID,
		Provider:       claims.Provider,
		Scopes:         claims.Scope,
		MaxAmountCents: claims.MaxAmountCents,
		ValidFrom:      claims.ValidFrom,
		ValidUntil:     claims.ValidUntil,
		Verified:       claims.Verified,
	})
}
