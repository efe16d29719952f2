package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	orchmodels "github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/Cyclone1070/kosuke/internal/tokens"
	"github.com/Cyclone1070/kosuke/internal/ui/models"
	"github.com/Cyclone1070/kosuke/internal/ui/views"
)

// Plain prints finished actions and run status as lines, for output that
// is not a terminal.
type Plain struct {
	mu sync.Mutex
	w  io.Writer
}

func NewPlain(w io.Writer) *Plain {
	return &Plain{w: w}
}

func (p *Plain) Report(_ context.Context, r orchmodels.Report) error {
	var line string
	switch {
	case r.IsAction():
		if r.Status == orchmodels.StatusPending {
			return nil
		}
		line = views.RenderActionLine(models.ActionLine{
			Kind:    r.Kind,
			Path:    r.Path,
			Message: r.Message,
			Status:  r.Status,
		}, "")
	case r.UpdateType == orchmodels.UpdateError:
		line = views.StatusFailedStyle.Render("✘ " + r.Message)
	case r.UpdateType == orchmodels.UpdateCompleted:
		line = views.StatusDoneStyle.Render("✔ Done") + "\n" + r.Message
	default:
		line = views.MessageStyle.Render(r.Message)
	}
	return p.println(line)
}

func (p *Plain) ReportCompletion(_ context.Context, c orchmodels.Completion) error {
	return p.println(views.FooterStyle.Render(fmt.Sprintf("%d actions, %s tokens in %s",
		c.TotalActions, tokens.Format(c.TotalTokens), c.Duration.Round(100*time.Millisecond))))
}

func (p *Plain) println(s string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintln(p.w, s)
	return err
}
