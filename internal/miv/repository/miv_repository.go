package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-miv/internal/miv/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MIVRepository struct {
	db *gorm.DB
}

func NewMIVRepository(db *gorm.DB) *MIVRepository {
	return &MIVRepository{db: db}
}

// Create 事务内创建领料单及其明细
func (r *MIVRepository) Create(tx *gorm.DB, record *entity.MIVRecord) error {
	return tx.Create(record).Error
}

func (r *MIVRepository) FindByID(ctx context.Context, id string) (*entity.MIVRecord, error) {
	var rec entity.MIVRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("SpoolDraws").
		Where("deleted_at IS NULL").
		First(&rec, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindByIDForUpdate 事务内加行锁读取领料单（含明细），编辑/删除走这里
func (r *MIVRepository) FindByIDForUpdate(tx *gorm.DB, id string) (*entity.MIVRecord, error) {
	var rec entity.MIVRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "miv_records"}}).
		Preload("Items").
		Preload("SpoolDraws").
		Where("deleted_at IS NULL").
		First(&rec, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *MIVRepository) TagExists(ctx context.Context, projectID, tag string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.MIVRecord{}).
		Where("project_id = ? AND tag = ? AND deleted_at IS NULL", projectID, tag).
		Count(&count).Error
	return count > 0, err
}

type MIVListParams struct {
	ProjectID string
	LineKey   string
	Filter    string // complete | incomplete
	Keyword   string
	Page      int
	Size      int
}

func (r *MIVRepository) List(ctx context.Context, params MIVListParams) ([]entity.MIVRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.MIVRecord{}).
		Where("project_id = ? AND deleted_at IS NULL", params.ProjectID)
	if params.LineKey != "" {
		query = query.Where("line_key = ?", params.LineKey)
	}
	switch params.Filter {
	case "complete":
		query = query.Where("status = ?", entity.MIVStatusDone)
	case "incomplete":
		query = query.Where("status <> ?", entity.MIVStatusDone)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("tag ILIKE ? OR line_no ILIKE ? OR location ILIKE ?", kw, kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var records []entity.MIVRecord
	err := query.Preload("Items").
		Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&records).Error
	return records, total, err
}

// Update 事务内更新领料单表头
func (r *MIVRepository) Update(tx *gorm.DB, record *entity.MIVRecord) error {
	return tx.Save(record).Error
}

// ReplaceDetails 事务内替换领料单全部明细（编辑时先删后建）
func (r *MIVRepository) ReplaceDetails(tx *gorm.DB, record *entity.MIVRecord, items []entity.MIVItem, draws []entity.MIVSpoolDraw) error {
	if err := tx.Where("miv_record_id = ?", record.ID).Delete(&entity.MIVItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("miv_record_id = ?", record.ID).Delete(&entity.MIVSpoolDraw{}).Error; err != nil {
		return err
	}
	if len(items) > 0 {
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
	}
	if len(draws) > 0 {
		if err := tx.Create(&draws).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete 事务内软删除领料单并清掉明细
func (r *MIVRepository) Delete(tx *gorm.DB, record *entity.MIVRecord) error {
	if err := r.ReplaceDetails(tx, record, nil, nil); err != nil {
		return err
	}
	return tx.Model(record).Update("deleted_at", gorm.Expr("NOW()")).Error
}

// IsNotFound gorm记录不存在判断
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
