package service

import (
	"time"

	"github.com/bitfantasy/nimo-miv/internal/miv/entity"
	"github.com/bitfantasy/nimo-miv/internal/miv/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LedgerService 消耗台账。台账只通过带符号增量变动，任意顺序的增量都能回推到零。
type LedgerService struct {
	progressRepo *repository.ProgressRepository
	logger       *zap.Logger
}

func NewLedgerService(progressRepo *repository.ProgressRepository, logger *zap.Logger) *LedgerService {
	return &LedgerService{progressRepo: progressRepo, logger: logger}
}

// ItemMeta 首次落台账时的物料信息快照
type ItemMeta struct {
	ItemCode    string
	Description string
	Unit        string
}

// ApplyDelta 事务内把带符号增量记入 (项目, 管线, 物料键) 的台账并返回新累计量。
// 负增量把累计量推成负数时钳位到0并记数据异常日志：这说明某次回退超出了曾记录的量，
// 多半是历史数据问题，不能让它污染其他管线。
func (s *LedgerService) ApplyDelta(tx *gorm.DB, projectID, lineKey, itemKey string, meta ItemMeta, delta float64) (float64, error) {
	if itemKey == "" {
		return 0, ErrEmptyItemKey
	}

	p, err := s.progressRepo.GetForUpdate(tx, projectID, lineKey, itemKey)
	if err != nil {
		return 0, err
	}

	// 首写：不存在的行锁不住，插入走upsert，并发撞唯一键时退化为增量累加
	if p == nil {
		newUsed := delta
		if newUsed < 0 {
			s.logger.Warn("台账回退量超过已记录量，累计量钳位为0",
				zap.String("project_id", projectID),
				zap.String("line_key", lineKey),
				zap.String("item_key", itemKey),
				zap.Float64("used_qty", 0),
				zap.Float64("delta", delta),
			)
			newUsed = 0
		}
		p = &entity.MTOProgress{
			ProjectID:   projectID,
			LineKey:     lineKey,
			ItemKey:     itemKey,
			ItemCode:    meta.ItemCode,
			Description: meta.Description,
			Unit:        meta.Unit,
			UsedQty:     newUsed,
			UpdatedAt:   time.Now(),
		}
		if err := s.progressRepo.Upsert(tx, p, delta); err != nil {
			return 0, err
		}
		return newUsed, nil
	}

	newUsed := p.UsedQty + delta
	if newUsed < 0 {
		s.logger.Warn("台账回退量超过已记录量，累计量钳位为0",
			zap.String("project_id", projectID),
			zap.String("line_key", lineKey),
			zap.String("item_key", itemKey),
			zap.Float64("used_qty", p.UsedQty),
			zap.Float64("delta", delta),
		)
		newUsed = 0
	}
	p.UsedQty = newUsed
	p.UpdatedAt = time.Now()

	if err := s.progressRepo.Save(tx, p); err != nil {
		return 0, err
	}
	return newUsed, nil
}
