package repository

import (
	"context"
	waitlisterrors "courtbook/internal/waitlist/errors"
	"courtbook/pkg/model"
	"errors"
	"testing"
)

func positions(t *testing.T, repo WaitlistRepository, slotID string) map[string]int {
	t.Helper()
	entries, err := repo.FindBySlot(context.Background(), slotID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.Position != i+1 {
			t.Fatalf("positions not dense: %s at index %d has position %d", e.ID, i, e.Position)
		}
		got[e.UserID] = e.Position
	}
	return got
}

func TestMemoryWaitlist_InsertRemoveKeepsPositionsDense(t *testing.T) {
	repo := NewMemoryWaitlistRepository()
	ctx := context.Background()

	for i, user := range []string{"a", "b", "c", "d"} {
		e := &model.WaitingListEntry{ID: "e-" + user, SlotID: "s1", UserID: user, Position: i + 1}
		if err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if _, err := repo.Remove(ctx, "e-b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := positions(t, repo, "s1")
	if got["a"] != 1 || got["c"] != 2 || got["d"] != 3 {
		t.Errorf("unexpected positions after removal: %v", got)
	}

	if err := repo.Insert(ctx, &model.WaitingListEntry{ID: "e-b", SlotID: "s1", UserID: "b", Position: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got = positions(t, repo, "s1")
	if got["b"] != 2 || got["c"] != 3 || got["d"] != 4 {
		t.Errorf("unexpected positions after reinsertion: %v", got)
	}
}

func TestMemoryWaitlist_Errors(t *testing.T) {
	repo := NewMemoryWaitlistRepository()
	ctx := context.Background()

	_ = repo.Insert(ctx, &model.WaitingListEntry{ID: "e1", SlotID: "s1", UserID: "a", Position: 1})
	err := repo.Insert(ctx, &model.WaitingListEntry{ID: "e2", SlotID: "s1", UserID: "a", Position: 2})
	if !errors.Is(err, waitlisterrors.ErrAlreadyQueued) {
		t.Errorf("expected ErrAlreadyQueued, got %v", err)
	}

	if _, err := repo.Remove(ctx, "missing"); !errors.Is(err, waitlisterrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, waitlisterrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryWaitlist_FindAllGroupsBySlot(t *testing.T) {
	repo := NewMemoryWaitlistRepository()
	ctx := context.Background()

	inserts := []struct{ id, slot, user string }{
		{"e1", "s2", "a"},
		{"e2", "s1", "b"},
		{"e3", "s2", "c"},
		{"e4", "s1", "d"},
	}
	for i, in := range inserts {
		e := &model.WaitingListEntry{ID: in.id, SlotID: in.slot, UserID: in.user, Position: i + 1}
		if err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	all, err := repo.FindAll(ctx, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var order []string
	for _, e := range all {
		order = append(order, e.ID)
	}
	if len(order) != 4 || order[0] != "e2" || order[1] != "e4" || order[2] != "e1" || order[3] != "e3" {
		t.Errorf("expected slot-then-position order, got %v", order)
	}

	page, _ := repo.FindAll(ctx, 2, 3)
	if len(page) != 1 || page[0].ID != "e3" {
		t.Errorf("unexpected last page %+v", page)
	}
	if count, _ := repo.CountAll(ctx); count != 4 {
		t.Errorf("expected 4 entries, got %d", count)
	}
}
