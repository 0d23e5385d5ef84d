package mqtt

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/ingest"
)

// EventIngestRejected is the event type published for rejected bundles.
const EventIngestRejected = "ingest_rejected"

// Publisher is the subset of *Client the StatePublisher needs.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// StatePublisher publishes normalised systems as retained state and
// rejected bundles as events. It implements ingest.Publisher.
type StatePublisher struct {
	client Publisher
}

// NewStatePublisher returns a StatePublisher that publishes through client
// at the client's configured QoS.
func NewStatePublisher(client Publisher) *StatePublisher {
	return &StatePublisher{client: client}
}

// PublishSystem publishes the whole system on its state topic, then each
// zone on its own topic. All messages are retained. Zone failures are
// joined so one bad publish does not hide the others.
//
// The system id comes from the payload, so it is checked with CheckLevel
// before it is placed in a topic.
func (p *StatePublisher) PublishSystem(ctx context.Context, sys *climate.System) error {
	if sys == nil {
		return fmt.Errorf("%w: nil system", ErrPublishFailed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := CheckLevel(sys.ID()); err != nil {
		return fmt.Errorf("publishing system: %w", err)
	}

	topics := Topics{}
	if err := p.client.PublishJSON(topics.SystemState(sys.ID()), sys, true); err != nil {
		return fmt.Errorf("publishing system %s: %w", sys.ID(), err)
	}

	var errs []error
	for _, z := range sys.Zones() {
		if err := p.client.PublishJSON(topics.ZoneState(sys.ID(), z.Index), z.View(), true); err != nil {
			errs = append(errs, fmt.Errorf("publishing zone %d: %w", z.Index, err))
		}
	}
	return errors.Join(errs...)
}

// PublishRejection publishes r on the ingest_rejected event topic.
func (p *StatePublisher) PublishRejection(ctx context.Context, r ingest.Rejection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.client.PublishJSON(Topics{}.Event(EventIngestRejected), r, false)
}
