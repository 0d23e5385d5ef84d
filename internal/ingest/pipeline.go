package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nerrad567/gray-logic-climate/internal/audit"
	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
)

// Sink names used in logs and climate_ingest_sink_errors_total.
const (
	sinkPublisher = "publisher"
	sinkAudit     = "audit"
)

// Logger is the logging surface the pipeline needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps are the pipeline's optional collaborators.
type Deps struct {
	Store     Store
	Publisher Publisher
	Telemetry Telemetry
	Auditor   Auditor
	Metrics   *Metrics
	Logger    Logger
}

// Result is an accepted bundle.
type Result struct {
	// SnapshotID is empty when no Store is configured.
	SnapshotID string
	System     *climate.System
	Devices    []*climate.Device
}

// Pipeline validates bundles and fans them out to sinks. It is safe for
// concurrent use when its sinks are.
type Pipeline struct {
	options         []climate.Option
	maxAttempts     int
	initialInterval time.Duration

	store     Store
	publisher Publisher
	telemetry Telemetry
	auditor   Auditor
	metrics   *Metrics
	logger    Logger
	now       func() time.Time
}

// Options returns the climate options selected by cfg. The snapshot store
// rebuilds systems with the same options the pipeline validated them with.
func Options(cfg config.IngestConfig) []climate.Option {
	var opts []climate.Option
	if cfg.StrictFields {
		opts = append(opts, climate.WithStrictFields())
	}
	if cfg.UniqueIndices {
		opts = append(opts, climate.WithUniqueIndices())
	}
	return opts
}

// New creates a pipeline from the ingest configuration.
func New(cfg config.IngestConfig, deps Deps) *Pipeline {
	p := &Pipeline{
		maxAttempts:     cfg.Retry.MaxAttempts,
		initialInterval: cfg.Retry.Interval(),
		store:           deps.Store,
		publisher:       deps.Publisher,
		telemetry:       deps.Telemetry,
		auditor:         deps.Auditor,
		metrics:         deps.Metrics,
		logger:          deps.Logger,
		now:             time.Now,
	}
	p.options = Options(cfg)
	if p.maxAttempts < 1 {
		p.maxAttempts = 1
	}
	if p.logger == nil {
		p.logger = noopLogger{}
	}
	return p
}

// Ingest validates one bundle and, when it is accepted, stores, publishes
// and records it.
//
// Validation errors wrap ErrInvalidBundle or a climate sentinel and leave
// no trace in the store. A store that still fails after the configured
// retries yields ErrStoreFailed. Publisher, telemetry and audit failures
// are logged and counted but do not fail the call.
func (p *Pipeline) Ingest(ctx context.Context, source Source, payload []byte) (*Result, error) {
	start := p.now()

	res, rawSystem, hint, err := p.build(payload)
	if err != nil {
		p.fail(ctx, source, hint, err, start)
		return nil, err
	}

	if p.store != nil {
		id, err := p.save(ctx, res.System, rawSystem)
		if err != nil {
			p.fail(ctx, source, res.System.ID(), err, start)
			return nil, err
		}
		res.SnapshotID = id
	}

	if p.publisher != nil {
		if err := p.publisher.PublishSystem(ctx, res.System); err != nil {
			p.metrics.sinkError(sinkPublisher)
			p.logger.Warn("publishing system state failed", "system_id", res.System.ID(), "error", err)
		}
	}

	if p.telemetry != nil {
		p.telemetry.WriteSystem(res.System)
		for _, dev := range res.Devices {
			for _, dd := range dev.Data() {
				p.telemetry.WriteDeviceData(dd)
			}
		}
	}

	p.record(ctx, &audit.Entry{
		Action:   audit.ActionAccepted,
		SystemID: res.System.ID(),
		Source:   string(source),
		Details: map[string]any{
			"snapshot_id": res.SnapshotID,
			"devices":     len(res.Devices),
		},
	})

	p.metrics.accepted(res.System, p.now().Sub(start))
	p.logger.Debug("bundle accepted",
		"system_id", res.System.ID(),
		"source", source,
		"devices", len(res.Devices),
	)
	return res, nil
}

// build decodes the bundle and constructs the graph. It returns the raw
// system object re-encoded for storage and, on failure, the system id if
// one could be read.
func (p *Pipeline) build(payload []byte) (*Result, []byte, string, error) {
	bundle, err := decodeBundle(payload)
	if err != nil {
		return nil, nil, "", err
	}

	v, ok := bundle["system"]
	if !ok || v == nil {
		return nil, nil, "", fmt.Errorf("%w: bundle has no system object", climate.ErrMissingStructure)
	}
	rawSystem, ok := v.(map[string]any)
	if !ok {
		return nil, nil, "", &climate.FieldError{Path: "system", Expected: "object", Err: climate.ErrTypeMismatch}
	}
	hint, _ := rawSystem["id"].(string)

	sys, err := climate.NewSystem(rawSystem, p.options...)
	if err != nil {
		return nil, nil, hint, fmt.Errorf("system: %w", err)
	}

	devices, err := buildDevices(sys, bundle["devices"], p.options)
	if err != nil {
		return nil, nil, hint, err
	}

	encoded, err := json.Marshal(rawSystem)
	if err != nil {
		return nil, nil, hint, fmt.Errorf("%w: re-encoding system: %w", ErrInvalidBundle, err)
	}

	return &Result{System: sys, Devices: devices}, encoded, hint, nil
}

// decodeBundle parses exactly one JSON object, keeping numbers as json.Number
// so integers survive the round trip to storage unchanged.
func decodeBundle(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var bundle map[string]any
	if err := dec.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	if bundle == nil {
		return nil, fmt.Errorf("%w: bundle is null", ErrInvalidBundle)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after bundle", ErrInvalidBundle)
	}
	return bundle, nil
}

func buildDevices(sys *climate.System, v any, opts []climate.Option) ([]*climate.Device, error) {
	if v == nil {
		return []*climate.Device{}, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &climate.FieldError{Path: "devices", Expected: "array", Err: climate.ErrTypeMismatch}
	}

	devices := make([]*climate.Device, 0, len(list))
	for i, item := range list {
		raw, ok := item.(map[string]any)
		if !ok {
			return nil, &climate.FieldError{Path: fmt.Sprintf("devices[%d]", i), Expected: "object", Err: climate.ErrTypeMismatch}
		}
		dev, err := climate.NewDevice(sys, raw, opts...)
		if err != nil {
			return nil, fmt.Errorf("devices[%d]: %w", i, err)
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// save writes the snapshot, retrying with exponential backoff.
func (p *Pipeline) save(ctx context.Context, sys *climate.System, payload []byte) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.initialInterval

	var id string
	op := func() error {
		var err error
		id, err = p.store.Save(ctx, sys, payload)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		p.logger.Warn("saving snapshot failed, retrying",
			"system_id", sys.ID(),
			"error", err,
			"backoff", next,
		)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.maxAttempts-1)), ctx)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	return id, nil
}

// fail counts, audits and announces a bundle that was not accepted.
func (p *Pipeline) fail(ctx context.Context, source Source, systemID string, err error, start time.Time) {
	kind := Kind(err)
	result := resultRejected
	if !IsValidation(err) {
		result = resultFailed
	}
	p.metrics.rejected(result, kind, p.now().Sub(start))

	p.logger.Warn("bundle "+result,
		"source", source,
		"system_id", systemID,
		"kind", kind,
		"error", err,
	)

	p.record(ctx, &audit.Entry{
		Action:   audit.ActionRejected,
		SystemID: systemID,
		Source:   string(source),
		Kind:     kind,
		Details:  map[string]any{"error": err.Error()},
	})

	if p.publisher != nil {
		rej := Rejection{
			Source:   source,
			SystemID: systemID,
			Kind:     kind,
			Error:    err.Error(),
			At:       p.now().UTC(),
		}
		if perr := p.publisher.PublishRejection(ctx, rej); perr != nil {
			p.metrics.sinkError(sinkPublisher)
			p.logger.Warn("publishing rejection failed", "error", perr)
		}
	}
}

func (p *Pipeline) record(ctx context.Context, entry *audit.Entry) {
	if p.auditor == nil {
		return
	}
	if err := p.auditor.Create(ctx, entry); err != nil {
		p.metrics.sinkError(sinkAudit)
		p.logger.Warn("recording audit entry failed", "action", entry.Action, "error", err)
	}
}

// IngestDir ingests every *.json file in dir in lexical order with
// SourceSpool. It returns the number of accepted bundles and the per-file
// failures joined; one bad file does not stop the others.
func (p *Pipeline) IngestDir(ctx context.Context, dir string) (int, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("listing spool directory: %w", err)
	}

	accepted := 0
	var errs []error
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return accepted, err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("reading %s: %w", filepath.Base(path), err))
			continue
		}
		if _, err := p.Ingest(ctx, SourceSpool, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
			continue
		}
		accepted++
	}

	p.logger.Info("spool directory ingested", "dir", dir, "files", len(files), "accepted", accepted)
	return accepted, errors.Join(errs...)
}
