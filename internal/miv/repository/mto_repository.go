package repository

import (
	"context"

	"github.com/bitfantasy/nimo-miv/internal/miv/entity"
	"gorm.io/gorm"
)

type MTORepository struct {
	db *gorm.DB
}

func NewMTORepository(db *gorm.DB) *MTORepository {
	return &MTORepository{db: db}
}

// ListByLine 获取某条管线的全部MTO需求行
func (r *MTORepository) ListByLine(ctx context.Context, projectID, lineKey string) ([]entity.MTOItem, error) {
	var items []entity.MTOItem
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND line_key = ?", projectID, lineKey).
		Order("item_code, description").
		Find(&items).Error
	return items, err
}

func (r *MTORepository) ListByProject(ctx context.Context, projectID string) ([]entity.MTOItem, error) {
	var items []entity.MTOItem
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("line_key, item_code").
		Find(&items).Error
	return items, err
}

// DistinctLines 项目下全部管线号（按导入时的原始写法）
func (r *MTORepository) DistinctLines(ctx context.Context, projectID string) ([]string, error) {
	var lines []string
	err := r.db.WithContext(ctx).Model(&entity.MTOItem{}).
		Where("project_id = ?", projectID).
		Distinct("line_no").
		Order("line_no").
		Pluck("line_no", &lines).Error
	return lines, err
}

// ReplaceCatalog 整体替换项目MTO清单。删除和插入在同一事务内，
// 避免并发领料匹配到只换了一半的清单。
func (r *MTORepository) ReplaceCatalog(ctx context.Context, projectID string, items []entity.MTOItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&entity.MTOItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.CreateInBatches(items, 200).Error
	})
}

// FindOrphanProgress 查找重导MTO后失去对应需求行的台账记录。只报告，不删除。
func (r *MTORepository) FindOrphanProgress(ctx context.Context, projectID string) ([]entity.MTOProgress, error) {
	var orphans []entity.MTOProgress
	err := r.db.WithContext(ctx).Raw(`
		SELECT p.*
		FROM miv_mto_progress p
		LEFT JOIN miv_mto_items m
		  ON m.project_id = p.project_id
		 AND m.line_key = p.line_key
		 AND COALESCE(NULLIF(NULLIF(NULLIF(NULLIF(UPPER(TRIM(m.item_code)), ''), 'NAN'), 'NULL'), 'NONE'), UPPER(TRIM(m.description))) = p.item_key
		WHERE p.project_id = ? AND m.id IS NULL
		ORDER BY p.line_key, p.item_key
	`, projectID).Scan(&orphans).Error
	return orphans, err
}
