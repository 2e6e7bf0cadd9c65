package studio_test

import (
	"context"
	"errors"
	"testing"

	"geethika.lk/app/internal/database/dbtest"
	"geethika.lk/app/internal/modules/studio"
)

func TestStudioServices(t *testing.T) {
	db := dbtest.Open(t)
	svc := studio.NewService(db)
	ctx := context.Background()

	wedding, err := svc.Create(ctx, studio.Input{Name: "Wedding Photography", StartingPriceCents: 7500000, IsActive: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if wedding.Slug != "wedding-photography" {
		t.Errorf("Expected a derived slug, got %q", wedding.Slug)
	}
	draft, err := svc.Create(ctx, studio.Input{Name: "Drone Shoots"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, studio.Input{Name: "Weddings", Slug: "wedding-photography"}); !errors.Is(err, studio.ErrSlugTaken) {
		t.Errorf("Expected ErrSlugTaken, got %v", err)
	}

	public, _ := svc.List(ctx, false)
	if len(public) != 1 || public[0].ID != wedding.ID {
		t.Errorf("Expected only the active service, got %+v", public)
	}
	all, _ := svc.List(ctx, true)
	if len(all) != 2 {
		t.Errorf("Expected 2 services, got %d", len(all))
	}

	got, err := svc.Update(ctx, draft.ID, studio.Input{Name: "Drone Shoots", IsActive: true, StartingPriceCents: 2000000})
	if err != nil || !got.IsActive || got.StartingPriceCents != 2000000 {
		t.Errorf("Unexpected update %+v, %v", got, err)
	}
	if err := svc.Delete(ctx, draft.ID); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, draft.ID); !errors.Is(err, studio.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
