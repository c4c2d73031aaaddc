package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/nimo-miv/internal/miv/entity"
	"github.com/bitfantasy/nimo-miv/internal/miv/repository"
	"github.com/bitfantasy/nimo-miv/internal/miv/testutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestLedgerApplyDelta(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewLedgerService(repos.Progress, zap.NewNop())
	projectID := uuid.NewString()
	meta := ItemMeta{ItemCode: "PFS-100", Description: "ELBOW 90", Unit: "EA"}

	err := db.Transaction(func(tx *gorm.DB) error {
		// 首写建行
		got, err := svc.ApplyDelta(tx, projectID, "l1", "PFS-100", meta, 12)
		if err != nil {
			return err
		}
		if !almostEqual(got, 12) {
			t.Errorf("first delta = %v, want 12", got)
		}

		// 累加与回退
		if got, err = svc.ApplyDelta(tx, projectID, "l1", "PFS-100", meta, -5); err != nil {
			return err
		}
		if !almostEqual(got, 7) {
			t.Errorf("after -5 = %v, want 7", got)
		}

		// 回退超过累计量钳位到0
		if got, err = svc.ApplyDelta(tx, projectID, "l1", "PFS-100", meta, -99); err != nil {
			return err
		}
		if !almostEqual(got, 0) {
			t.Errorf("after anomalous reversal = %v, want 0", got)
		}

		// 首写就是负增量：建行并钳位
		if got, err = svc.ApplyDelta(tx, projectID, "l1", "OTHER-KEY", meta, -3); err != nil {
			return err
		}
		if !almostEqual(got, 0) {
			t.Errorf("negative first delta = %v, want 0", got)
		}

		if _, err = svc.ApplyDelta(tx, projectID, "l1", "", meta, 1); err != ErrEmptyItemKey {
			t.Errorf("empty key: expected ErrEmptyItemKey, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ledger transaction: %v", err)
	}

	row, err := repos.Progress.Get(context.Background(), projectID, "l1", "PFS-100")
	if err != nil || row == nil {
		t.Fatalf("read back ledger row: %v", err)
	}
	if row.ItemCode != "PFS-100" || row.Unit != "EA" {
		t.Errorf("metadata snapshot = %q/%q", row.ItemCode, row.Unit)
	}
}

func TestProgressUpsertAccumulatesOnConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	projectID := uuid.NewString()

	// 两个事务都没看到既有行时各自走插入路径，后写的必须撞唯一键并转为增量累加，
	// 而不是让整个事务报唯一键冲突回滚
	first := &entity.MTOProgress{
		ProjectID: projectID, LineKey: "l1", ItemKey: "PFS-100",
		ItemCode: "PFS-100", Unit: "EA", UsedQty: 12,
	}
	if err := repos.Progress.Upsert(db, first, 12); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second := &entity.MTOProgress{
		ProjectID: projectID, LineKey: "l1", ItemKey: "PFS-100",
		ItemCode: "PFS-100", Unit: "EA", UsedQty: 8,
	}
	if err := repos.Progress.Upsert(db, second, 8); err != nil {
		t.Fatalf("conflicting upsert: %v", err)
	}

	row, err := repos.Progress.Get(context.Background(), projectID, "l1", "PFS-100")
	if err != nil || row == nil {
		t.Fatalf("read back: %v", err)
	}
	if !almostEqual(row.UsedQty, 20) {
		t.Errorf("used_qty = %v, want accumulated 20", row.UsedQty)
	}

	// 冲突路径上的负增量同样不把累计量推成负数
	third := &entity.MTOProgress{
		ProjectID: projectID, LineKey: "l1", ItemKey: "PFS-100",
		ItemCode: "PFS-100", Unit: "EA",
	}
	if err := repos.Progress.Upsert(db, third, -99); err != nil {
		t.Fatalf("negative upsert: %v", err)
	}
	row, _ = repos.Progress.Get(context.Background(), projectID, "l1", "PFS-100")
	if !almostEqual(row.UsedQty, 0) {
		t.Errorf("used_qty = %v, want floored at 0", row.UsedQty)
	}
}
