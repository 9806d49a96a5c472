package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"procura/internal/audit"
	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
)

// AuditReader serves trail queries. The audit store satisfies it.
type AuditReader interface {
	ListByPlanExecution(ctx context.Context, planExecutionID id.PlanExecutionID) ([]*audit.Entry, error)
	ListByMandate(ctx context.Context, mandateID id.MandateID) ([]*audit.Entry, error)
	ListByTool(ctx context.Context, tool string) ([]*audit.Entry, error)
}

type AuditHandler struct {
	entries AuditReader
}

func NewAuditHandler(entries AuditReader) *AuditHandler {
	return &AuditHandler{entries: entries}
}

func (h *AuditHandler) Register(r chi.Router) {
	r.Get("/audit/entries", h.handleList)
}

type auditEntryResponse struct {
	ID              string         `json:"id"`
	PlanExecutionID string         `json:"plan_execution_id,omitempty"`
	MandateID       string         `json:"mandate_id,omitempty"`
	Tool            string         `json:"tool"`
	Args            map[string]any `json:"args,omitempty"`
	Decision        string         `json:"decision"`
	Result          any            `json:"result,omitempty"`
	CreatedAt       string         `json:"created_at"`
	SealedAt        string         `json:"sealed_at,omitempty"`
}

func toAuditEntryResponse(entry *audit.Entry) auditEntryResponse {
	out := auditEntryResponse{
		ID:              entry.ID.String(),
		PlanExecutionID: string(entry.PlanExecutionID),
		Tool:            entry.Tool,
		Args:            entry.Args,
		Decision:        string(entry.Decision),
		Result:          entry.Result,
		CreatedAt:       entry.CreatedAt.Format(time.RFC3339Nano),
	}
	if !entry.MandateID.IsNil() {
		out.MandateID = entry.MandateID.String()
	}
	if entry.SealedAt != nil {
		out.SealedAt = entry.SealedAt.Format(time.RFC3339Nano)
	}
	return out
}

// handleList requires exactly one of the three filters.
func (h *AuditHandler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	planExecID := query.Get("plan_execution_id")
	mandateID := query.Get("mandate_id")
	tool := query.Get("tool")

	given := 0
	for _, v := range []string{planExecID, mandateID, tool} {
		if v != "" {
			given++
		}
	}
	if given != 1 {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "exactly one of plan_execution_id, mandate_id, tool is required"))
		return
	}

	var (
		entries []*audit.Entry
		err     error
	)
	switch {
	case planExecID != "":
		entries, err = h.entries.ListByPlanExecution(r.Context(), id.PlanExecutionID(planExecID))
	case mandateID != "":
		var parsed id.MandateID
		parsed, err = id.ParseMandateID(mandateID)
		if err == nil {
			entries, err = h.entries.ListByMandate(r.Context(), parsed)
		}
	default:
		entries, err = h.entries.ListByTool(r.Context(), tool)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toAuditEntryResponse(entry))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}
