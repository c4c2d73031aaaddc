package service

import (
	"context"
	"errors"
	"testing"
)

func TestImportCatalogReplaceAndOrphans(t *testing.T) {
	env := setupAllocTest(t)
	ctx := context.Background()

	csv1 := []byte("Line No,Item Code,Description,Unit,Type,P1 Bore,Length M,Qty\n" +
		"L-700,PFS-100,ELBOW 90,EA,Elbow,4,0,100\n" +
		"L-700,PIPE-01,PIPE SMLS,M,Pipe,6,30,0\n")

	result, err := env.svcs.Catalog.ImportCatalog(ctx, env.project.ID, "mto.csv", csv1)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Imported != 2 || len(result.Orphans) != 0 {
		t.Fatalf("imported=%d orphans=%d, want 2/0", result.Imported, len(result.Orphans))
	}

	// 在PFS-100上登记消耗
	if _, err := env.svcs.Allocation.RegisterMIV(ctx, RegisterMIVInput{
		ProjectID: env.project.ID,
		LineNo:    "L-700",
		Tag:       "MIV-700",
		Lines:     []ConsumptionLine{{ItemKey: "PFS-100", UsedQty: 10}},
	}, "tester"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// 重导的清单里没有PFS-100：台账记录失配，导入结果要带告警但不删记录
	csv2 := []byte("Line No,Item Code,Description,Unit,Type,P1 Bore,Length M,Qty\n" +
		"L-700,PIPE-01,PIPE SMLS,M,Pipe,6,30,0\n")
	result, err = env.svcs.Catalog.ImportCatalog(ctx, env.project.ID, "mto.csv", csv2)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("imported = %d, want 1", result.Imported)
	}
	if len(result.Orphans) != 1 || result.Orphans[0].ItemKey != "PFS-100" {
		t.Fatalf("orphans = %+v, want single PFS-100", result.Orphans)
	}

	orphans, err := env.svcs.Catalog.OrphanProgress(ctx, env.project.ID)
	if err != nil {
		t.Fatalf("orphan report: %v", err)
	}
	if len(orphans) != 1 {
		t.Errorf("orphan report = %d rows, want 1", len(orphans))
	}

	// 重导回包含该料号的清单后失配消失
	csv3 := []byte("Line No,Item Code,Description,Unit,Type,P1 Bore,Length M,Qty\n" +
		"L-700,PFS-100,ELBOW 90,EA,Elbow,4,0,100\n")
	if _, err := env.svcs.Catalog.ImportCatalog(ctx, env.project.ID, "mto.csv", csv3); err != nil {
		t.Fatalf("restore import: %v", err)
	}
	orphans, err = env.svcs.Catalog.OrphanProgress(ctx, env.project.ID)
	if err != nil {
		t.Fatalf("orphan report: %v", err)
	}
	if len(orphans) != 0 {
		t.Errorf("orphan report after restore = %d rows, want 0", len(orphans))
	}
}

func TestImportCatalogRejectsEmpty(t *testing.T) {
	env := setupAllocTest(t)
	ctx := context.Background()

	_, err := env.svcs.Catalog.ImportCatalog(ctx, env.project.ID, "mto.csv", []byte("Line No,Qty\n"))
	if !errors.Is(err, ErrCatalogEmpty) {
		t.Errorf("header-only file: expected ErrCatalogEmpty, got %v", err)
	}

	_, err = env.svcs.Catalog.ImportCatalog(ctx, "no-such-project", "mto.csv", []byte("x"))
	if !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
}
