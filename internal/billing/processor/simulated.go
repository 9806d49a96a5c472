// Package processor holds payment rail adapters. Simulated is the default
// until a real PSP adapter is configured; it approves every charge and mints
// a local reference, so the rest of the billing flow is exercised end to end.
package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"procura/internal/billing/service"
)

type Simulated struct {
	logger *slog.Logger
}

func NewSimulated(logger *slog.Logger) *Simulated {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulated{logger: logger}
}

func (p *Simulated) Charge(ctx context.Context, req service.ChargeRequest) (string, error) {
	ref := fmt.Sprintf("sim_%s", uuid.NewString())
	p.logger.InfoContext(ctx, "simulated charge approved",
		"plan_execution_id", string(req.PlanExecutionID),
		"amount_cents", req.AmountCents,
		"currency", req.Currency,
		"processor_ref", ref,
	)
	return ref, nil
}
