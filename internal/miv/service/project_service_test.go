package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-miv/internal/miv/repository"
	"github.com/bitfantasy/nimo-miv/internal/miv/testutil"
	"github.com/google/uuid"
)

func TestProjectLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewProjectService(repos.Project)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateProjectInput{Code: "prj-a", Name: "Unit A"}, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Code != "PRJ-A" {
		t.Errorf("code = %q, want normalized PRJ-A", p.Code)
	}

	if _, err := svc.Create(ctx, CreateProjectInput{Code: "PRJ-A"}, "tester"); err == nil {
		t.Error("duplicate code accepted")
	}

	got, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Code != "PRJ-A" {
		t.Errorf("get code = %q", got.Code)
	}

	list, err := svc.List(ctx, "")
	if err != nil || len(list) != 1 {
		t.Errorf("list = %d projects (err %v), want 1", len(list), err)
	}

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, p.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("deleted project still readable: %v", err)
	}
	if err := svc.Delete(ctx, uuid.NewString()); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
}
