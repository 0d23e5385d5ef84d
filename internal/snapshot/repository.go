package snapshot

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// History limits. The API uses the same bounds for its limit parameter.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 500
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// summaryColumns is the column list scanned by scanSummary.
const summaryColumns = "id, system_id, outdoor_temperature, water_pressure, mode, zone_count, circuit_count, dhw_count, created_at"

// Summary describes one stored snapshot without its payload.
type Summary struct {
	ID                 string    `json:"id"`
	SystemID           string    `json:"system_id"`
	OutdoorTemperature *float64  `json:"outdoor_temperature,omitempty"`
	WaterPressure      *float64  `json:"water_pressure,omitempty"`
	Mode               *string   `json:"mode,omitempty"`
	ZoneCount          int       `json:"zone_count"`
	CircuitCount       int       `json:"circuit_count"`
	DHWCount           int       `json:"dhw_count"`
	CreatedAt          time.Time `json:"created_at"`
}

// Snapshot is a stored summary with the rebuilt system.
type Snapshot struct {
	Summary
	System *climate.System `json:"system"`
}

// Repository defines snapshot persistence.
type Repository interface {
	Save(ctx context.Context, sys *climate.System, payload []byte) (string, error)
	Latest(ctx context.Context, systemID string) (*Snapshot, error)
	History(ctx context.Context, systemID string, limit int) ([]Summary, error)
	Systems(ctx context.Context) ([]Summary, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SQLiteRepository stores snapshots in the system_snapshots table.
type SQLiteRepository struct {
	db   *sql.DB
	opts []climate.Option
	now  func() time.Time
}

// NewSQLiteRepository creates a snapshot repository. opts are applied when
// Latest rebuilds a stored system.
func NewSQLiteRepository(db *sql.DB, opts ...climate.Option) *SQLiteRepository {
	return &SQLiteRepository{db: db, opts: opts, now: time.Now}
}

// Save stores payload (the raw system object) for sys and returns the new
// snapshot id.
func (r *SQLiteRepository) Save(ctx context.Context, sys *climate.System, payload []byte) (string, error) {
	if sys == nil || len(payload) == 0 {
		return "", fmt.Errorf("%w: system and payload are required", ErrInvalidInput)
	}

	id := uuid.NewString()
	var temp, pressure, mode any
	if v, err := sys.OutdoorTemperature(); err == nil {
		temp = v
	}
	if v, err := sys.WaterPressure(); err == nil {
		pressure = v
	}
	if v, err := sys.Mode(); err == nil {
		mode = v
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO system_snapshots
		 (id, system_id, payload, outdoor_temperature, water_pressure, mode,
		  zone_count, circuit_count, dhw_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sys.ID(), string(payload), temp, pressure, mode,
		len(sys.Zones()), len(sys.Circuits()), len(sys.DomesticHotWater()),
		r.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("inserting snapshot: %w", err)
	}
	return id, nil
}

// Latest returns the newest snapshot for systemID with the system rebuilt
// from its payload.
func (r *SQLiteRepository) Latest(ctx context.Context, systemID string) (*Snapshot, error) {
	if systemID == "" {
		return nil, fmt.Errorf("%w: system id is required", ErrInvalidInput)
	}

	row := r.db.QueryRowContext(ctx,
		"SELECT "+summaryColumns+", payload FROM system_snapshots WHERE system_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		systemID,
	)

	var snap Snapshot
	var payload string
	if err := scanSummary(row, &snap.Summary, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, systemID)
		}
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}

	sys, err := r.rebuild(payload)
	if err != nil {
		return nil, fmt.Errorf("rebuilding snapshot %s: %w", snap.ID, err)
	}
	snap.System = sys
	return &snap, nil
}

// rebuild decodes a stored payload and validates it again.
func (r *SQLiteRepository) rebuild(payload string) (*climate.System, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return climate.NewSystem(raw, r.opts...)
}

// History returns snapshot summaries for systemID, newest first.
// A limit of zero or less means DefaultHistoryLimit; larger limits are
// capped at MaxHistoryLimit.
func (r *SQLiteRepository) History(ctx context.Context, systemID string, limit int) ([]Summary, error) {
	if systemID == "" {
		return nil, fmt.Errorf("%w: system id is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+summaryColumns+" FROM system_snapshots WHERE system_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?",
		systemID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying snapshot history: %w", err)
	}
	return collectSummaries(rows)
}

// Systems returns the newest summary of every stored system, ordered by id.
func (r *SQLiteRepository) Systems(ctx context.Context) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM (
		   SELECT *, ROW_NUMBER() OVER (PARTITION BY system_id ORDER BY created_at DESC, rowid DESC) AS rn
		   FROM system_snapshots
		 ) WHERE rn = 1 ORDER BY system_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying systems: %w", err)
	}
	return collectSummaries(rows)
}

// Prune deletes snapshots older than the given duration and returns how many.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: olderThan must be positive", ErrInvalidInput)
	}

	cutoff := r.now().UTC().Add(-olderThan).Format(timeLayout)
	result, err := r.db.ExecContext(ctx, "DELETE FROM system_snapshots WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting snapshots: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSummary reads summaryColumns (plus any extra trailing columns).
func scanSummary(s scanner, sum *Summary, extra ...any) error {
	var temp, pressure sql.NullFloat64
	var mode sql.NullString
	var createdAt string

	dest := []any{
		&sum.ID, &sum.SystemID, &temp, &pressure, &mode,
		&sum.ZoneCount, &sum.CircuitCount, &sum.DHWCount, &createdAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return err
	}

	if temp.Valid {
		sum.OutdoorTemperature = &temp.Float64
	}
	if pressure.Valid {
		sum.WaterPressure = &pressure.Float64
	}
	if mode.Valid {
		sum.Mode = &mode.String
	}

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	sum.CreatedAt = t
	return nil
}

func collectSummaries(rows *sql.Rows) ([]Summary, error) {
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var s Summary
		if err := scanSummary(rows, &s); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return summaries, nil
}
