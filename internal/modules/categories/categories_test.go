package categories_test

import (
	"context"
	"errors"
	"testing"

	"geethika.lk/app/internal/database/dbtest"
	"geethika.lk/app/internal/modules/categories"
	"geethika.lk/app/internal/modules/products"
)

func TestCategoryLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	svc := categories.NewService(db)
	ctx := context.Background()

	frames, err := svc.Create(ctx, categories.Input{Name: " Photo Frames ", SortOrder: 2, IsActive: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if frames.Slug != "photo-frames" || frames.Name != "Photo Frames" {
		t.Errorf("Unexpected category %+v", frames)
	}
	if _, err := svc.Create(ctx, categories.Input{Name: "Albums", SortOrder: 1, IsActive: true}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	hidden, err := svc.Create(ctx, categories.Input{Name: "Seasonal", IsActive: false})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Create(ctx, categories.Input{Name: "Frames", Slug: "photo-frames"}); !errors.Is(err, categories.ErrSlugTaken) {
		t.Errorf("Expected ErrSlugTaken, got %v", err)
	}
	if _, err := svc.Create(ctx, categories.Input{Name: "Bad", Slug: "Bad Slug"}); !errors.Is(err, categories.ErrInvalidSlug) {
		t.Errorf("Expected ErrInvalidSlug, got %v", err)
	}

	active, err := svc.ListActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 || active[0].Name != "Albums" {
		t.Errorf("Expected Albums first among 2 active, got %+v", active)
	}
	all, _ := svc.ListAll(ctx)
	if len(all) != 3 {
		t.Errorf("Expected 3 categories, got %d", len(all))
	}
	if _, err := svc.GetBySlug(ctx, hidden.Slug); !errors.Is(err, categories.ErrNotFound) {
		t.Errorf("Expected inactive categories hidden, got %v", err)
	}

	updated, err := svc.Update(ctx, hidden.ID, categories.Input{Name: "Seasonal Gifts", IsActive: true})
	if err != nil || updated.Slug != "seasonal-gifts" || !updated.IsActive {
		t.Errorf("Unexpected update %+v, %v", updated, err)
	}
	if _, err := svc.Update(ctx, "00000000-0000-0000-0000-000000000000", categories.Input{Name: "X"}); !errors.Is(err, categories.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if _, err := products.NewRepo(db).Create(ctx, products.Input{Name: "Oak Frame", PriceCents: 1000, CategoryID: frames.ID}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := svc.Delete(ctx, frames.ID); !errors.Is(err, categories.ErrCategoryInUse) {
		t.Errorf("Expected ErrCategoryInUse, got %v", err)
	}
	if err := svc.Delete(ctx, hidden.ID); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, hidden.ID); !errors.Is(err, categories.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}
