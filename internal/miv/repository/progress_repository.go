package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-miv/internal/miv/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Get(ctx context.Context, projectID, lineKey, itemKey string) (*entity.MTOProgress, error) {
	var p entity.MTOProgress
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND line_key = ? AND item_key = ?", projectID, lineKey, itemKey).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetForUpdate 在事务内加行锁读取台账记录，不存在时返回nil。
// 同一管线上的并发领料靠这把锁串行化。
func (r *ProgressRepository) GetForUpdate(tx *gorm.DB, projectID, lineKey, itemKey string) (*entity.MTOProgress, error) {
	var p entity.MTOProgress
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("project_id = ? AND line_key = ? AND item_key = ?", projectID, lineKey, itemKey).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Save 事务内更新已加锁的台账记录
func (r *ProgressRepository) Save(tx *gorm.DB, p *entity.MTOProgress) error {
	return tx.Save(p).Error
}

// Upsert 事务内插入新台账记录。对不存在的行 FOR UPDATE 拿不到锁，
// 并发首写可能撞唯一键，撞上时转为对已有行做增量累加（不低于0），
// 保证两个事务都能提交而不是其中一个报唯一键冲突。
func (r *ProgressRepository) Upsert(tx *gorm.DB, p *entity.MTOProgress, delta float64) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "project_id"}, {Name: "line_key"}, {Name: "item_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"used_qty":   gorm.Expr("GREATEST(0, miv_mto_progress.used_qty + ?)", delta),
			"updated_at": gorm.Expr("NOW()"),
		}),
	}).Create(p).Error
}

func (r *ProgressRepository) ListByLine(ctx context.Context, projectID, lineKey string) ([]entity.MTOProgress, error) {
	var rows []entity.MTOProgress
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND line_key = ?", projectID, lineKey).
		Find(&rows).Error
	return rows, err
}

func (r *ProgressRepository) ListByProject(ctx context.Context, projectID string) ([]entity.MTOProgress, error) {
	var rows []entity.MTOProgress
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Find(&rows).Error
	return rows, err
}
