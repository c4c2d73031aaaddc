package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/bitfantasy/nimo-miv/internal/miv/entity"
	"github.com/bitfantasy/nimo-miv/internal/miv/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	progressCacheKeyFmt = "miv:progress:%s"
	progressCacheTTL    = 5 * time.Minute
)

// ProgressService 进度汇总。权重 = 有效需求量 × 口径（无口径按1），
// 口径大的管线占的工程量权重大。
type ProgressService struct {
	mtoRepo      *repository.MTORepository
	progressRepo *repository.ProgressRepository
	rdb          *redis.Client
	logger       *zap.Logger
}

func NewProgressService(mtoRepo *repository.MTORepository, progressRepo *repository.ProgressRepository, rdb *redis.Client, logger *zap.Logger) *ProgressService {
	return &ProgressService{mtoRepo: mtoRepo, progressRepo: progressRepo, rdb: rdb, logger: logger}
}

// LineProgressRow 管线进度明细行
type LineProgressRow struct {
	ItemKey      string  `json:"item_key"`
	ItemCode     string  `json:"item_code"`
	Description  string  `json:"description"`
	Unit         string  `json:"unit"`
	ItemType     string  `json:"item_type"`
	Basis        string  `json:"basis"`
	Bore         float64 `json:"bore"`
	RequiredQty  float64 `json:"required_qty"`
	UsedQty      float64 `json:"used_qty"`
	RemainingQty float64 `json:"remaining_qty"`
}

// LineProgress 管线进度汇总
type LineProgress struct {
	LineKey        string            `json:"line_key"`
	Rows           []LineProgressRow `json:"rows,omitempty"`
	RequiredWeight float64           `json:"required_weight"`
	UsedWeight     float64           `json:"used_weight"`
	Percentage     float64           `json:"percentage"`
	IsComplete     bool              `json:"is_complete"`
}

// ProjectProgress 项目进度汇总
type ProjectProgress struct {
	ProjectID      string  `json:"project_id"`
	LineCount      int     `json:"line_count"`
	CompletedLines int     `json:"completed_lines"`
	RequiredWeight float64 `json:"required_weight"`
	UsedWeight     float64 `json:"used_weight"`
	Percentage     float64 `json:"percentage"`
}

// ComputeLineProgress 纯计算：由合并需求和台账累计量得出管线进度。
// 计权时已用量封顶到需求量，台账异常超量不会把进度顶过100%。
// 完成判定：每个需求键都有台账记录且剩余量<=0，没有台账记录的键视为完全未发。
func ComputeLineProgress(lineKey string, groups []RequirementGroup, used map[string]float64) LineProgress {
	lp := LineProgress{LineKey: lineKey, IsComplete: len(groups) > 0}

	for _, g := range groups {
		usedQty, hasEntry := used[g.ItemKey]
		remaining := math.Max(0, g.RequiredQty-usedQty)

		weight := g.Bore
		if weight <= 0 {
			weight = 1
		}
		lp.RequiredWeight += g.RequiredQty * weight
		lp.UsedWeight += math.Min(usedQty, g.RequiredQty) * weight

		if !hasEntry || remaining > 0 {
			lp.IsComplete = false
		}

		lp.Rows = append(lp.Rows, LineProgressRow{
			ItemKey:      g.ItemKey,
			ItemCode:     g.ItemCode,
			Description:  g.Description,
			Unit:         g.Unit,
			ItemType:     g.ItemType,
			Basis:        g.Basis,
			Bore:         g.Bore,
			RequiredQty:  g.RequiredQty,
			UsedQty:      usedQty,
			RemainingQty: remaining,
		})
	}

	if lp.RequiredWeight > 0 {
		lp.Percentage = 100 * lp.UsedWeight / lp.RequiredWeight
	}
	return lp
}

// LineProgressByNo 某条管线的进度（含明细行）
func (s *ProgressService) LineProgressByNo(ctx context.Context, projectID, lineNo string) (*LineProgress, error) {
	lineKey := NormalizeLineNo(lineNo)
	items, err := s.mtoRepo.ListByLine(ctx, projectID, lineKey)
	if err != nil {
		return nil, fmt.Errorf("读取MTO清单失败: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrLineNotFound
	}

	rows, err := s.progressRepo.ListByLine(ctx, projectID, lineKey)
	if err != nil {
		return nil, fmt.Errorf("读取消耗台账失败: %w", err)
	}

	lp := ComputeLineProgress(lineKey, GroupRequirements(items), usedByKey(rows))
	return &lp, nil
}

// Project 项目级进度，5分钟redis缓存，领料提交/清单重导时失效
func (s *ProgressService) Project(ctx context.Context, projectID string) (*ProjectProgress, error) {
	cacheKey := fmt.Sprintf(progressCacheKeyFmt, projectID)
	if s.rdb != nil {
		if data, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached ProjectProgress
			if json.Unmarshal(data, &cached) == nil {
				return &cached, nil
			}
		}
	}

	pp, err := s.computeProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(pp); err == nil {
			if err := s.rdb.Set(ctx, cacheKey, data, progressCacheTTL).Err(); err != nil {
				s.logger.Warn("写入进度缓存失败", zap.String("project_id", projectID), zap.Error(err))
			}
		}
	}
	return pp, nil
}

// Invalidate 使项目进度缓存失效
func (s *ProgressService) Invalidate(ctx context.Context, projectID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, fmt.Sprintf(progressCacheKeyFmt, projectID)).Err(); err != nil {
		s.logger.Warn("清除进度缓存失败", zap.String("project_id", projectID), zap.Error(err))
	}
}

// LineStatuses 项目全部管线的进度摘要（仪表盘用，不带明细行）
func (s *ProgressService) LineStatuses(ctx context.Context, projectID string) ([]LineProgress, error) {
	items, err := s.mtoRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("读取MTO清单失败: %w", err)
	}
	progressRows, err := s.progressRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("读取消耗台账失败: %w", err)
	}

	itemsByLine := make(map[string][]entity.MTOItem)
	lineOrder := make([]string, 0)
	for _, item := range items {
		if _, ok := itemsByLine[item.LineKey]; !ok {
			lineOrder = append(lineOrder, item.LineKey)
		}
		itemsByLine[item.LineKey] = append(itemsByLine[item.LineKey], item)
	}
	usedByLine := make(map[string]map[string]float64)
	for _, row := range progressRows {
		if usedByLine[row.LineKey] == nil {
			usedByLine[row.LineKey] = make(map[string]float64)
		}
		usedByLine[row.LineKey][row.ItemKey] = row.UsedQty
	}

	statuses := make([]LineProgress, 0, len(lineOrder))
	for _, lineKey := range lineOrder {
		lp := ComputeLineProgress(lineKey, GroupRequirements(itemsByLine[lineKey]), usedByLine[lineKey])
		lp.Rows = nil
		statuses = append(statuses, lp)
	}
	return statuses, nil
}

func (s *ProgressService) computeProject(ctx context.Context, projectID string) (*ProjectProgress, error) {
	statuses, err := s.LineStatuses(ctx, projectID)
	if err != nil {
		return nil, err
	}

	pp := &ProjectProgress{ProjectID: projectID, LineCount: len(statuses)}
	for _, lp := range statuses {
		pp.RequiredWeight += lp.RequiredWeight
		pp.UsedWeight += lp.UsedWeight
		if lp.IsComplete {
			pp.CompletedLines++
		}
	}
	if pp.RequiredWeight > 0 {
		pp.Percentage = 100 * pp.UsedWeight / pp.RequiredWeight
	}
	return pp, nil
}

func usedByKey(rows []entity.MTOProgress) map[string]float64 {
	used := make(map[string]float64, len(rows))
	for _, row := range rows {
		used[row.ItemKey] = row.UsedQty
	}
	return used
}
