package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-miv/internal/miv/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SpoolRepository struct {
	db *gorm.DB
}

func NewSpoolRepository(db *gorm.DB) *SpoolRepository {
	return &SpoolRepository{db: db}
}

// CreateSpool 登记预制管段及其组件
func (r *SpoolRepository) CreateSpool(ctx context.Context, spool *entity.Spool) error {
	return r.db.WithContext(ctx).Create(spool).Error
}

func (r *SpoolRepository) FindSpoolByID(ctx context.Context, id string) (*entity.Spool, error) {
	var s entity.Spool
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("deleted_at IS NULL").
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SpoolRepository) FindSpoolByCode(ctx context.Context, code string) (*entity.Spool, error) {
	var s entity.Spool
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("spool_code = ? AND deleted_at IS NULL", code).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SpoolRepository) ListSpools(ctx context.Context, status string) ([]entity.Spool, error) {
	var spools []entity.Spool
	query := r.db.WithContext(ctx).Preload("Items").Where("deleted_at IS NULL")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("spool_code").Find(&spools).Error
	return spools, err
}

func (r *SpoolRepository) GetItem(ctx context.Context, itemID string) (*entity.SpoolItem, error) {
	var item entity.SpoolItem
	err := r.db.WithContext(ctx).Preload("Spool").First(&item, "id = ?", itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemForUpdate 事务内加行锁读取组件库存，领用/回退的检查和扣减在这把锁下进行
func (r *SpoolRepository) GetItemForUpdate(tx *gorm.DB, itemID string) (*entity.SpoolItem, error) {
	var item entity.SpoolItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SaveItem 事务内保存组件库存
func (r *SpoolRepository) SaveItem(tx *gorm.DB, item *entity.SpoolItem) error {
	return tx.Save(item).Error
}

// FindCompatible 按兼容类型和口径查找还有库存的组件
func (r *SpoolRepository) FindCompatible(ctx context.Context, componentType string, bore float64) ([]entity.SpoolItem, error) {
	var items []entity.SpoolItem
	query := r.db.WithContext(ctx).
		Preload("Spool").
		Where("UPPER(component_type) = UPPER(?) AND qty_available > 0", componentType)
	if bore > 0 {
		query = query.Where("p1_bore = ?", bore)
	}
	err := query.Order("qty_available DESC").Find(&items).Error
	return items, err
}
