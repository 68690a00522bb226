package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
)

func newTestTagRepository(t *testing.T) *TagRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tags.db")
	repo, err := NewTagRepository(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("NewTagRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestTag(t *testing.T, id string) *domain.Tag {
	t.Helper()
	tagID, err := domain.NewTagID(id)
	if err != nil {
		t.Fatalf("NewTagID(%q) error = %v", id, err)
	}
	return domain.NewTag(tagID, "dev-1", map[string]any{"port": "/dev/ttyUSB0"}, domain.NewPollingMode(1000), domain.ValueTypeSimple, domain.PipelineConfig{})
}

func TestTagRepositorySaveAndFindByID(t *testing.T) {
	repo := newTestTagRepository(t)
	ctx := context.Background()
	tag := newTestTag(t, "TAG_A")

	if err := repo.Save(ctx, tag); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	found, ok, err := repo.FindByID(ctx, tag.ID())
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if !ok {
		t.Fatal("expected tag to be found")
	}
	if found.ID() != tag.ID() || found.DeviceID() != tag.DeviceID() {
		t.Fatalf("found tag = %+v, want id=%v device=%v", found, tag.ID(), tag.DeviceID())
	}
}

func TestTagRepositorySaveUpserts(t *testing.T) {
	repo := newTestTagRepository(t)
	ctx := context.Background()
	tag := newTestTag(t, "TAG_B")

	if err := repo.Save(ctx, tag); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	tag.Disable()
	if err := repo.Save(ctx, tag); err != nil {
		t.Fatalf("Save() (update) error = %v", err)
	}

	found, ok, err := repo.FindByID(ctx, tag.ID())
	if err != nil || !ok {
		t.Fatalf("FindByID() error = %v ok = %v", err, ok)
	}
	if found.IsEnabled() {
		t.Fatal("expected upserted tag to carry the disabled state")
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len(FindAll()) = %d, want 1 (upsert must not duplicate rows)", len(all))
	}
}

func TestTagRepositoryFindEnabledExcludesDisabled(t *testing.T) {
	repo := newTestTagRepository(t)
	ctx := context.Background()

	enabled := newTestTag(t, "TAG_C")
	disabled := newTestTag(t, "TAG_D")
	disabled.Disable()

	if err := repo.Save(ctx, enabled); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(ctx, disabled); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	found, err := repo.FindEnabled(ctx)
	if err != nil {
		t.Fatalf("FindEnabled() error = %v", err)
	}
	if len(found) != 1 || found[0].ID() != enabled.ID() {
		t.Fatalf("FindEnabled() = %+v, want only %v", found, enabled.ID())
	}
}

func TestTagRepositoryDeleteRemovesTag(t *testing.T) {
	repo := newTestTagRepository(t)
	ctx := context.Background()
	tag := newTestTag(t, "TAG_E")

	if err := repo.Save(ctx, tag); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Delete(ctx, tag.ID()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, ok, err := repo.FindByID(ctx, tag.ID())
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if ok {
		t.Fatal("expected tag to be gone after Delete")
	}
}

func TestTagRepositoryFindByIDMissingReturnsNotFound(t *testing.T) {
	repo := newTestTagRepository(t)
	missing, err := domain.NewTagID("NOPE")
	if err != nil {
		t.Fatalf("NewTagID() error = %v", err)
	}

	_, ok, err := repo.FindByID(context.Background(), missing)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if ok {
		t.Fatal("expected not-found for a missing id")
	}
}
