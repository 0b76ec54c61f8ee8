package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/dermalab/dermacare-backend/internal/domain"
	"github.com/dermalab/dermacare-backend/internal/repos/testutil"
)

func TestProfileRepo(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)

	ctx := context.Background()
	repo := NewProfileRepo(gdb, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, "profile-repo@test.dev")

	if next, err := repo.NextVersion(ctx, tx, user.ID); err != nil || next != 1 {
		t.Fatalf("NextVersion(no profiles): next=%d err=%v, want 1", next, err)
	}

	v1 := testutil.SeedProfile(t, ctx, tx, user.ID, 1, domain.SkinTypeDry)
	v2 := testutil.SeedProfile(t, ctx, tx, user.ID, 2, domain.SkinTypeOily)

	if got, err := repo.GetByID(ctx, tx, v1.ID); err != nil || got == nil || got.ID != v1.ID {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got, err := repo.GetByID(ctx, tx, uuid.New()); err != nil || got != nil {
		t.Fatalf("GetByID(unknown): got=%v err=%v, want nil,nil", got, err)
	}
	if got, err := repo.GetByID(ctx, tx, uuid.Nil); err != nil || got != nil {
		t.Fatalf("GetByID(nil id): got=%v err=%v, want nil,nil", got, err)
	}

	if got, err := repo.GetLatest(ctx, tx, user.ID); err != nil || got == nil || got.ID != v2.ID {
		t.Fatalf("GetLatest: got=%v err=%v, want v2", got, err)
	}
	if got, err := repo.GetLatest(ctx, tx, uuid.New()); err != nil || got != nil {
		t.Fatalf("GetLatest(unknown user): got=%v err=%v, want nil,nil", got, err)
	}

	if got, err := repo.GetByUserVersion(ctx, tx, user.ID, 1); err != nil || got == nil || got.SkinType != domain.SkinTypeDry {
		t.Fatalf("GetByUserVersion(1): got=%v err=%v", got, err)
	}
	if got, err := repo.GetByUserVersion(ctx, tx, user.ID, 9); err != nil || got != nil {
		t.Fatalf("GetByUserVersion(missing): got=%v err=%v, want nil,nil", got, err)
	}

	if next, err := repo.NextVersion(ctx, tx, user.ID); err != nil || next != 3 {
		t.Fatalf("NextVersion: next=%d err=%v, want 3", next, err)
	}
}
