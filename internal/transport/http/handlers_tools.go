package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"procura/internal/audit"
	"procura/internal/policy"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
)

// AuditRecorder wraps a privileged call with the audit lifecycle.
type AuditRecorder interface {
	Record(ctx context.Context, call audit.Call, action audit.Action) (any, error)
}

// ToolExecutor runs a provider tool. Implementations live behind this
// interface so the transport never talks to providers directly.
type ToolExecutor interface {
	Execute(ctx context.Context, provider id.Provider, tool string, args map[string]any) (any, error)
}

type ToolsHandler struct {
	recorder AuditRecorder
	executor ToolExecutor
}

func NewToolsHandler(recorder AuditRecorder, executor ToolExecutor) *ToolsHandler {
	return &ToolsHandler{recorder: recorder, executor: executor}
}

func (h *ToolsHandler) Register(r chi.Router) {
	r.Post("/tools/{provider}/{tool}/invoke", h.handleInvoke)
}

type invokeRequest struct {
	PlanExecutionID string         `json:"plan_execution_id"`
	AmountCents     int64          `json:"amount_cents"`
	Args            map[string]any `json:"args"`
}

// handleInvoke runs one provider tool under audit. The mandate comes from
// the X-Mandate-Id header; the scopes it must grant come from the policy
// table for the tool.
func (h *ToolsHandler) handleInvoke(w http.ResponseWriter, r *http.Request) {
	provider := id.Provider(chi.URLParam(r, "provider"))
	tool := chi.URLParam(r, "tool")

	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	required, err := policy.RequiredScopes(provider, tool)
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "unknown provider tool"))
		return
	}

	var mandateID id.MandateID
	if raw := r.Header.Get(MandateIDHeader); raw != "" {
		mandateID, err = id.ParseMandateID(raw)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	if mandateID.IsNil() {
		writeError(w, dErrors.Newf(dErrors.CodeInvalidMandate, "%s header is required", MandateIDHeader))
		return
	}

	result, err := h.recorder.Record(r.Context(), audit.Call{
		Tool:            tool,
		PlanExecutionID: id.PlanExecutionID(req.PlanExecutionID),
		MandateID:       mandateID,
		RequiredScopes:  required,
		AmountCents:     req.AmountCents,
		Args:            req.Args,
	}, func(ctx context.Context) (any, error) {
		return h.executor.Execute(ctx, provider, tool, req.Args)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}
