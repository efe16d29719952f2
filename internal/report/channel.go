package report

import (
	"context"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
)

// Event is one item of a run's update stream. Exactly one field is set.
type Event struct {
	Report     *models.Report     `json:"report,omitempty"`
	Completion *models.Completion `json:"completion,omitempty"`
}

// Channel turns reports into Events on a channel, for streaming them to
// a client. Sends block until received or ctx is done.
type Channel struct {
	events chan Event
}

// NewChannel creates a channel reporter with the given buffer size.
func NewChannel(buffer int) *Channel {
	return &Channel{events: make(chan Event, buffer)}
}

// Events returns the receive side of the stream.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Close ends the stream. No reports may be sent afterwards.
func (c *Channel) Close() {
	close(c.events)
}

func (c *Channel) Report(ctx context.Context, r models.Report) error {
	return c.send(ctx, Event{Report: &r})
}

func (c *Channel) ReportCompletion(ctx context.Context, comp models.Completion) error {
	return c.send(ctx, Event{Completion: &comp})
}

func (c *Channel) send(ctx context.Context, e Event) error {
	select {
	case c.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
