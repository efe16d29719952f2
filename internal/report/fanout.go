package report

import (
	"context"
	"errors"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
)

// Fanout delivers every report to each of its reporters. A failing
// reporter does not stop delivery to the others.
type Fanout []models.Reporter

func (f Fanout) Report(ctx context.Context, r models.Report) error {
	var errs []error
	for _, rep := range f {
		if rep == nil {
			continue
		}
		if err := rep.Report(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReportCompletion forwards to the reporters that accept completions.
func (f Fanout) ReportCompletion(ctx context.Context, c models.Completion) error {
	var errs []error
	for _, rep := range f {
		cr, ok := rep.(models.CompletionReporter)
		if !ok {
			continue
		}
		if err := cr.ReportCompletion(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
