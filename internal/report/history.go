package report

import (
	"context"
	"errors"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
)

// MirroredHistory reads turns from a history provider and copies every
// new turn to the provider (when it records turns) and to each mirror.
type MirroredHistory struct {
	models.HistoryProvider
	Mirrors []models.TurnRecorder
}

func (h MirroredHistory) AppendTurn(ctx context.Context, projectID string, m models.Message) error {
	var errs []error
	if rec, ok := h.HistoryProvider.(models.TurnRecorder); ok {
		if err := rec.AppendTurn(ctx, projectID, m); err != nil {
			errs = append(errs, err)
		}
	}
	for _, mirror := range h.Mirrors {
		if err := mirror.AppendTurn(ctx, projectID, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
