package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-climate/migrations"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestCreate_GeneratesIDAndTimestamp(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	entry := &Entry{Action: ActionAccepted, SystemID: "sys-1", Source: SourceMQTT}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Errorf("entry = %+v, want generated id and timestamp", entry)
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 || len(result.Entries) != 1 {
		t.Fatalf("List() = %+v", result)
	}
	got := result.Entries[0]
	if got.ID != entry.ID || got.SystemID != "sys-1" || got.Kind != "" || got.Details != nil {
		t.Errorf("stored entry = %+v", got)
	}
}

func TestCreate_InvalidAction(t *testing.T) {
	repo := setupRepo(t)

	if err := repo.Create(context.Background(), &Entry{Action: "deleted", Source: SourceAPI}); err == nil {
		t.Error("Create() expected error for unknown action")
	}
}

func TestList_FiltersAndOrder(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []*Entry{
		{Action: ActionAccepted, SystemID: "sys-1", Source: SourceMQTT, CreatedAt: base},
		{Action: ActionRejected, Source: SourceAPI, Kind: "missing_field",
			Details: map[string]any{"error": "zones[0]: name: climate: missing field"}, CreatedAt: base.Add(time.Minute)},
		{Action: ActionAccepted, SystemID: "sys-2", Source: SourceSpool, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name    string
		filter  Filter
		wantIDs []string
	}{
		{"all newest first", Filter{}, []string{entries[2].ID, entries[1].ID, entries[0].ID}},
		{"accepted only", Filter{Action: ActionAccepted}, []string{entries[2].ID, entries[0].ID}},
		{"by system", Filter{SystemID: "sys-1"}, []string{entries[0].ID}},
		{"by source", Filter{Source: SourceAPI}, []string{entries[1].ID}},
		{"paged", Filter{Limit: 1, Offset: 1}, []string{entries[1].ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(result.Entries) != len(tt.wantIDs) {
				t.Fatalf("got %d entries, want %d", len(result.Entries), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if result.Entries[i].ID != id {
					t.Errorf("Entries[%d].ID = %q, want %q", i, result.Entries[i].ID, id)
				}
			}
		})
	}

	rejected, err := repo.List(ctx, Filter{Action: ActionRejected})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	got := rejected.Entries[0]
	if got.Kind != "missing_field" || got.Details["error"] == nil || !got.CreatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("rejected entry = %+v", got)
	}
}

func TestList_ClampsLimit(t *testing.T) {
	repo := setupRepo(t)

	tests := []struct {
		in, want int
	}{
		{0, defaultLimit},
		{-5, defaultLimit},
		{1000, maxLimit},
		{10, 10},
	}
	for _, tt := range tests {
		result, err := repo.List(context.Background(), Filter{Limit: tt.in, Offset: -1})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if result.Limit != tt.want || result.Offset != 0 {
			t.Errorf("Limit %d -> %d (offset %d), want %d", tt.in, result.Limit, result.Offset, tt.want)
		}
	}
}

func TestPrune(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := &Entry{Action: ActionAccepted, Source: SourceMQTT, CreatedAt: now.Add(-48 * time.Hour)}
	fresh := &Entry{Action: ActionAccepted, Source: SourceMQTT, CreatedAt: now}
	for _, e := range []*Entry{old, fresh} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	n, err := repo.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Prune() removed %d, want 1", n)
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 || result.Entries[0].ID != fresh.ID {
		t.Errorf("remaining = %+v", result.Entries)
	}
}
