package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-miv/internal/miv/entity"
	"github.com/bitfantasy/nimo-miv/internal/miv/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SpoolService 预制件库。库存只通过 Reserve（领用/回退）和 Restock 变动。
type SpoolService struct {
	spoolRepo *repository.SpoolRepository
	db        *gorm.DB
	logger    *zap.Logger
}

func NewSpoolService(spoolRepo *repository.SpoolRepository, db *gorm.DB, logger *zap.Logger) *SpoolService {
	return &SpoolService{spoolRepo: spoolRepo, db: db, logger: logger}
}

type SpoolItemInput struct {
	ComponentType string  `json:"component_type" binding:"required"`
	P1Bore        float64 `json:"p1_bore"`
	Unit          string  `json:"unit"`
	Qty           float64 `json:"qty" binding:"required,gt=0"`
}

type RegisterSpoolInput struct {
	SpoolCode string           `json:"spool_code" binding:"required"`
	Location  string           `json:"location"`
	Notes     string           `json:"notes"`
	Items     []SpoolItemInput `json:"items" binding:"required,min=1,dive"`
}

// Register 登记预制管段及组件库存
func (s *SpoolService) Register(ctx context.Context, input RegisterSpoolInput, userID string) (*entity.Spool, error) {
	spool := &entity.Spool{
		ID:        uuid.New().String(),
		SpoolCode: input.SpoolCode,
		Location:  input.Location,
		Status:    entity.SpoolStatusAvailable,
		Notes:     input.Notes,
		CreatedBy: userID,
	}
	for _, it := range input.Items {
		spool.Items = append(spool.Items, entity.SpoolItem{
			ID:            uuid.New().String(),
			SpoolID:       spool.ID,
			ComponentType: it.ComponentType,
			P1Bore:        it.P1Bore,
			Unit:          it.Unit,
			QtyInitial:    it.Qty,
			QtyAvailable:  it.Qty,
		})
	}
	if err := s.spoolRepo.CreateSpool(ctx, spool); err != nil {
		return nil, fmt.Errorf("登记预制管段失败: %w", err)
	}
	return spool, nil
}

func (s *SpoolService) Get(ctx context.Context, id string) (*entity.Spool, error) {
	spool, err := s.spoolRepo.FindSpoolByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrSpoolItemNotFound
		}
		return nil, err
	}
	return spool, nil
}

func (s *SpoolService) List(ctx context.Context, status string) ([]entity.Spool, error) {
	return s.spoolRepo.ListSpools(ctx, status)
}

// FindCompatible 按MTO行的类型和口径查找可替代的组件
func (s *SpoolService) FindCompatible(ctx context.Context, componentType string, bore float64) ([]entity.SpoolItem, error) {
	return s.spoolRepo.FindCompatible(ctx, componentType, bore)
}

// Reserve 事务内对组件库存做带符号变动：正数=领用（受可用量约束），
// 负数=回退（编辑/删除领料单时把量还回来）。
// 回退把可用量推过初始登记量时钳位到初始量并记数据异常日志，不报错。
func (s *SpoolService) Reserve(tx *gorm.DB, spoolItemID string, qty float64) (*entity.SpoolItem, error) {
	item, err := s.spoolRepo.GetItemForUpdate(tx, spoolItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrSpoolItemNotFound
	}

	if qty > 0 && qty > item.QtyAvailable+qtyEpsilon {
		return nil, fmt.Errorf("%w: 组件 %s 可用 %.4f, 请求 %.4f",
			ErrInsufficientSpool, item.ComponentType, item.QtyAvailable, qty)
	}

	newAvail := item.QtyAvailable - qty
	if newAvail < 0 {
		newAvail = 0
	}
	if newAvail > item.QtyInitial {
		s.logger.Warn("预制件回退量超过初始登记量，可用量钳位为初始量",
			zap.String("spool_item_id", item.ID),
			zap.Float64("qty_initial", item.QtyInitial),
			zap.Float64("qty_available", item.QtyAvailable),
			zap.Float64("qty", qty),
		)
		newAvail = item.QtyInitial
	}
	item.QtyAvailable = newAvail
	item.UpdatedAt = time.Now()

	if err := s.spoolRepo.SaveItem(tx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Restock 显式补库，独立事务
func (s *SpoolService) Restock(ctx context.Context, spoolItemID string, qty float64) (*entity.SpoolItem, error) {
	if qty <= 0 {
		return nil, ErrNegativeQty
	}
	var out *entity.SpoolItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.spoolRepo.GetItemForUpdate(tx, spoolItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrSpoolItemNotFound
		}
		item.QtyInitial += qty
		item.QtyAvailable += qty
		item.UpdatedAt = time.Now()
		out = item
		return s.spoolRepo.SaveItem(tx, item)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
