package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/audit"
	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// Source says where a bundle came from.
type Source string

// Bundle sources.
const (
	SourceMQTT  Source = audit.SourceMQTT
	SourceAPI   Source = audit.SourceAPI
	SourceSpool Source = audit.SourceSpool
)

// Store persists accepted systems. payload is the raw system object.
type Store interface {
	Save(ctx context.Context, sys *climate.System, payload []byte) (string, error)
}

// Rejection describes a bundle that failed validation.
type Rejection struct {
	Source   Source    `json:"source"`
	SystemID string    `json:"system_id,omitempty"`
	Kind     string    `json:"kind"`
	Error    string    `json:"error"`
	At       time.Time `json:"at"`
}

// Publisher announces accepted systems and rejected bundles.
type Publisher interface {
	PublishSystem(ctx context.Context, sys *climate.System) error
	PublishRejection(ctx context.Context, r Rejection) error
}

// Telemetry records time series points. Writes are fire-and-forget.
type Telemetry interface {
	WriteSystem(sys *climate.System)
	WriteDeviceData(data *climate.DeviceData)
}

// Auditor records the outcome of each bundle.
type Auditor interface {
	Create(ctx context.Context, entry *audit.Entry) error
}

// MultiPublisher fans out to every publisher and joins their errors.
type MultiPublisher []Publisher

// PublishSystem implements Publisher.
func (m MultiPublisher) PublishSystem(ctx context.Context, sys *climate.System) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishSystem(ctx, sys); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishRejection implements Publisher.
func (m MultiPublisher) PublishRejection(ctx context.Context, r Rejection) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishRejection(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
