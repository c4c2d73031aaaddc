package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-miv/internal/miv/entity"
	"github.com/bitfantasy/nimo-miv/internal/miv/repository"
	"github.com/bitfantasy/nimo-miv/internal/miv/testutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestSpoolRegisterAndFindCompatible(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewSpoolService(repos.Spool, db, zap.NewNop())
	ctx := context.Background()

	spool, err := svc.Register(ctx, RegisterSpoolInput{
		SpoolCode: "sp-100",
		Location:  "Yard A",
		Items: []SpoolItemInput{
			{ComponentType: "PIPE", P1Bore: 6, Unit: "M", Qty: 12},
			{ComponentType: "ELBOW", P1Bore: 6, Unit: "EA", Qty: 4},
		},
	}, "tester")
	if err != nil {
		t.Fatalf("register spool: %v", err)
	}
	if len(spool.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(spool.Items))
	}
	for _, it := range spool.Items {
		if !almostEqual(it.QtyAvailable, it.QtyInitial) {
			t.Errorf("new item available %v != initial %v", it.QtyAvailable, it.QtyInitial)
		}
	}

	matches, err := svc.FindCompatible(ctx, "pipe", 6)
	if err != nil {
		t.Fatalf("find compatible: %v", err)
	}
	if len(matches) != 1 || matches[0].ComponentType != "PIPE" {
		t.Errorf("compatible = %+v, want single PIPE item", matches)
	}

	// 口径0表示不限口径
	matches, err = svc.FindCompatible(ctx, "ELBOW", 0)
	if err != nil {
		t.Fatalf("find compatible any bore: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("compatible any-bore = %d items, want 1", len(matches))
	}
}

func TestSpoolReserveAndClamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewSpoolService(repos.Spool, db, zap.NewNop())

	spool := testutil.SeedSpool(t, db, "SP-CLAMP", []entity.SpoolItem{
		{ComponentType: "PIPE", P1Bore: 4, Unit: "M", QtyInitial: 10, QtyAvailable: 10},
	})
	itemID := spool.Items[0].ID

	err := db.Transaction(func(tx *gorm.DB) error {
		item, err := svc.Reserve(tx, itemID, 7)
		if err != nil {
			return err
		}
		if !almostEqual(item.QtyAvailable, 3) {
			t.Errorf("available after draw = %v, want 3", item.QtyAvailable)
		}

		if _, err := svc.Reserve(tx, itemID, 5); !errors.Is(err, ErrInsufficientSpool) {
			t.Errorf("expected ErrInsufficientSpool, got %v", err)
		}

		// 异常回退量超过初始量时钳位
		item, err = svc.Reserve(tx, itemID, -20)
		if err != nil {
			return err
		}
		if !almostEqual(item.QtyAvailable, 10) {
			t.Errorf("available after anomalous return = %v, want clamped 10", item.QtyAvailable)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve transaction: %v", err)
	}

	if _, err := svc.Restock(context.Background(), itemID, 5); err != nil {
		t.Fatalf("restock: %v", err)
	}
	var item entity.SpoolItem
	if err := db.First(&item, "id = ?", itemID).Error; err != nil {
		t.Fatal(err)
	}
	if !almostEqual(item.QtyInitial, 15) || !almostEqual(item.QtyAvailable, 15) {
		t.Errorf("after restock initial/available = %v/%v, want 15/15", item.QtyInitial, item.QtyAvailable)
	}

	if _, err := svc.Reserve(db, uuid.NewString(), 1); !errors.Is(err, ErrSpoolItemNotFound) {
		t.Errorf("expected ErrSpoolItemNotFound, got %v", err)
	}
}

// 浮点累加后的库存和领用量可能差在容差以内，这种“刚好领完”
// 不算超领，落库余量取整到0。
func TestSpoolReserveEpsilonTolerance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewSpoolService(repos.Spool, db, zap.NewNop())

	spool := testutil.SeedSpool(t, db, "SP-EPS", []entity.SpoolItem{
		{ComponentType: "PIPE", P1Bore: 4, Unit: "M", QtyInitial: 10, QtyAvailable: 10},
	})
	itemID := spool.Items[0].ID

	err := db.Transaction(func(tx *gorm.DB) error {
		item, err := svc.Reserve(tx, itemID, 10+1e-12)
		if err != nil {
			return err
		}
		if item.QtyAvailable != 0 {
			t.Errorf("available after exact drain = %v, want 0", item.QtyAvailable)
		}

		// 超出容差仍然拒绝
		if _, err := svc.Reserve(tx, itemID, 1e-6); !errors.Is(err, ErrInsufficientSpool) {
			t.Errorf("expected ErrInsufficientSpool, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve transaction: %v", err)
	}
}
