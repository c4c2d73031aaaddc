package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bitfantasy/nimo-miv/internal/miv/entity"
	"github.com/bitfantasy/nimo-miv/internal/miv/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 数量比较容差，decimal(12,4)列存float64，校验时不能用裸等号
const qtyEpsilon = 1e-9

// AllocationService 领料分配协调器。
// 登记/编辑/删除领料单都在单个数据库事务里完成：台账行和预制件库存行按序加锁，
// 先回退该单的既有贡献再套用新值，任何一步失败整单回滚。
type AllocationService struct {
	db           *gorm.DB
	catalog      *CatalogService
	ledger       *LedgerService
	spool        *SpoolService
	progress     *ProgressService
	mivRepo      *repository.MIVRepository
	progressRepo *repository.ProgressRepository
	logger       *zap.Logger
}

func NewAllocationService(
	db *gorm.DB,
	catalog *CatalogService,
	ledger *LedgerService,
	spool *SpoolService,
	progress *ProgressService,
	mivRepo *repository.MIVRepository,
	progressRepo *repository.ProgressRepository,
	logger *zap.Logger,
) *AllocationService {
	return &AllocationService{
		db:           db,
		catalog:      catalog,
		ledger:       ledger,
		spool:        spool,
		progress:     progress,
		mivRepo:      mivRepo,
		progressRepo: progressRepo,
		logger:       logger,
	}
}

// SpoolDrawInput 预制件领用行
type SpoolDrawInput struct {
	SpoolItemID string  `json:"spool_item_id" binding:"required"`
	Qty         float64 `json:"qty" binding:"required,gt=0"`
}

// ConsumptionLine 领料单中一个物料的消耗：UsedQty是该物料的领料总量，
// 其中预制件领用部分从预制件库扣，剩余部分（UsedQty - Σ预制件量）直接记消耗台账。
type ConsumptionLine struct {
	ItemKey    string           `json:"item_key" binding:"required"`
	UsedQty    float64          `json:"used_qty"`
	SpoolDraws []SpoolDrawInput `json:"spool_draws,omitempty"`
}

type RegisterMIVInput struct {
	ProjectID     string            `json:"project_id" binding:"required"`
	LineNo        string            `json:"line_no" binding:"required"`
	Tag           string            `json:"tag" binding:"required"`
	Location      string            `json:"location"`
	Status        string            `json:"status"`
	Comment       string            `json:"comment"`
	RegisteredFor string            `json:"registered_for"`
	Lines         []ConsumptionLine `json:"lines" binding:"required,min=1,dive"`
}

type UpdateMIVInput struct {
	Location      string            `json:"location"`
	Status        string            `json:"status"`
	Comment       string            `json:"comment"`
	RegisteredFor string            `json:"registered_for"`
	Lines         []ConsumptionLine `json:"lines" binding:"required,dive"`
}

// RegisterMIV 登记领料单并提交消耗
func (s *AllocationService) RegisterMIV(ctx context.Context, input RegisterMIVInput, userID string) (*entity.MIVRecord, error) {
	groups, err := s.catalog.LineGroups(ctx, input.ProjectID, input.LineNo)
	if err != nil {
		return nil, err
	}

	tag := strings.ToUpper(strings.TrimSpace(input.Tag))
	exists, err := s.mivRepo.TagExists(ctx, input.ProjectID, tag)
	if err != nil {
		return nil, fmt.Errorf("检查领料单号失败: %w", err)
	}
	if exists {
		return nil, ErrDuplicateMIVTag
	}

	status := input.Status
	if status == "" {
		status = entity.MIVStatusInProgress
	}
	record := &entity.MIVRecord{
		ID:            uuid.New().String(),
		ProjectID:     input.ProjectID,
		Tag:           tag,
		LineNo:        strings.TrimSpace(input.LineNo),
		LineKey:       NormalizeLineNo(input.LineNo),
		Location:      input.Location,
		Status:        status,
		Comment:       input.Comment,
		RegisteredFor: input.RegisteredFor,
		RegisteredBy:  userID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, draws, txErr := s.applyConsumption(tx, record, groups, nil, input.Lines)
		if txErr != nil {
			return txErr
		}
		record.Comment = appendSummary(input.Comment, summarize(items, draws, groups))
		if txErr := s.mivRepo.Create(tx, record); txErr != nil {
			return fmt.Errorf("保存领料单失败: %w", txErr)
		}
		if len(items) > 0 || len(draws) > 0 {
			if txErr := s.mivRepo.ReplaceDetails(tx, record, items, draws); txErr != nil {
				return fmt.Errorf("保存领料明细失败: %w", txErr)
			}
		}
		return s.refreshComplete(tx, record, groups)
	})
	if err != nil {
		return nil, err
	}

	s.progress.Invalidate(ctx, input.ProjectID)
	s.logger.Info("领料单已登记",
		zap.String("project_id", input.ProjectID),
		zap.String("tag", record.Tag),
		zap.String("line_no", record.LineNo),
	)
	return record, nil
}

// EditMIV 编辑领料单：新明细整体替换旧明细，旧贡献先回退再按新值校验套用，
// 所以把数量改成原值等于没改（净变动为零）。
func (s *AllocationService) EditMIV(ctx context.Context, mivID string, input UpdateMIVInput) (*entity.MIVRecord, error) {
	var record *entity.MIVRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prior, txErr := s.mivRepo.FindByIDForUpdate(tx, mivID)
		if txErr != nil {
			if repository.IsNotFound(txErr) {
				return ErrMIVNotFound
			}
			return txErr
		}

		groups, txErr := s.catalog.LineGroups(ctx, prior.ProjectID, prior.LineNo)
		if txErr != nil {
			return txErr
		}

		items, draws, txErr := s.applyConsumption(tx, prior, groups, prior, input.Lines)
		if txErr != nil {
			return txErr
		}
		if txErr := s.mivRepo.ReplaceDetails(tx, prior, items, draws); txErr != nil {
			return fmt.Errorf("更新领料明细失败: %w", txErr)
		}

		if input.Location != "" {
			prior.Location = input.Location
		}
		if input.Status != "" {
			prior.Status = input.Status
		}
		if input.RegisteredFor != "" {
			prior.RegisteredFor = input.RegisteredFor
		}
		prior.Comment = appendSummary(input.Comment, summarize(items, draws, groups))

		if txErr := s.refreshComplete(tx, prior, groups); txErr != nil {
			return txErr
		}
		record = prior
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.progress.Invalidate(ctx, record.ProjectID)
	s.logger.Info("领料单已更新", zap.String("miv_id", mivID), zap.String("tag", record.Tag))
	return record, nil
}

// DeleteMIV 删除领料单：回退它的全部台账贡献和预制件领用后软删除
func (s *AllocationService) DeleteMIV(ctx context.Context, mivID string) error {
	var projectID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, txErr := s.mivRepo.FindByIDForUpdate(tx, mivID)
		if txErr != nil {
			if repository.IsNotFound(txErr) {
				return ErrMIVNotFound
			}
			return txErr
		}
		projectID = record.ProjectID

		groups, txErr := s.catalog.LineGroups(ctx, record.ProjectID, record.LineNo)
		if txErr != nil {
			return txErr
		}

		// 空的新明细 = 把既有贡献全部回退
		if _, _, txErr := s.applyConsumption(tx, record, groups, record, nil); txErr != nil {
			return txErr
		}
		return s.mivRepo.Delete(tx, record)
	})
	if err != nil {
		return err
	}

	s.progress.Invalidate(ctx, projectID)
	s.logger.Info("领料单已删除", zap.String("miv_id", mivID))
	return nil
}

func (s *AllocationService) GetMIV(ctx context.Context, mivID string) (*entity.MIVRecord, error) {
	record, err := s.mivRepo.FindByID(ctx, mivID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrMIVNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *AllocationService) ListMIVs(ctx context.Context, params repository.MIVListParams) ([]entity.MIVRecord, int64, error) {
	return s.mivRepo.List(ctx, params)
}

// applyConsumption 校验并提交一张领料单的全部消耗变动。
// prior 非空时表示编辑：遍历新旧物料键的并集，旧键在新明细里缺席按归零处理。
// 台账行按物料键升序、预制件按组件ID升序加锁，并发领料不会交叉死锁。
func (s *AllocationService) applyConsumption(
	tx *gorm.DB,
	record *entity.MIVRecord,
	groups []RequirementGroup,
	prior *entity.MIVRecord,
	lines []ConsumptionLine,
) ([]entity.MIVItem, []entity.MIVSpoolDraw, error) {
	groupByKey := make(map[string]RequirementGroup, len(groups))
	for _, g := range groups {
		groupByKey[g.ItemKey] = g
	}

	newByKey := make(map[string]ConsumptionLine, len(lines))
	keySet := make(map[string]bool)
	for _, line := range lines {
		key := strings.ToUpper(strings.TrimSpace(line.ItemKey))
		if key == "" {
			return nil, nil, ErrEmptyItemKey
		}
		if line.UsedQty < 0 {
			return nil, nil, ErrNegativeQty
		}
		if _, dup := newByKey[key]; dup {
			return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateItemKey, key)
		}
		line.ItemKey = key
		newByKey[key] = line
		keySet[key] = true
	}

	priorDirect := make(map[string]float64)
	priorDraws := make(map[string]map[string]float64) // itemKey -> spoolItemID -> qty
	if prior != nil {
		for _, it := range prior.Items {
			priorDirect[it.ItemKey] += it.UsedQty
			keySet[it.ItemKey] = true
		}
		for _, d := range prior.SpoolDraws {
			if priorDraws[d.ItemKey] == nil {
				priorDraws[d.ItemKey] = make(map[string]float64)
			}
			priorDraws[d.ItemKey][d.SpoolItemID] += d.UsedQty
			keySet[d.ItemKey] = true
		}
	}

	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var outItems []entity.MIVItem
	var outDraws []entity.MIVSpoolDraw
	for _, key := range keys {
		g, ok := groupByKey[key]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrItemNotInMTO, key)
		}

		line := newByKey[key] // 缺席键零值即“回退到0”
		total := line.UsedQty

		var sumDraws float64
		newDraws := make(map[string]float64)
		for _, d := range line.SpoolDraws {
			if d.Qty <= 0 {
				return nil, nil, ErrNegativeQty
			}
			newDraws[d.SpoolItemID] += d.Qty
			sumDraws += d.Qty
		}
		if sumDraws > total+qtyEpsilon {
			return nil, nil, fmt.Errorf("%w: %s 领料 %.4f, 预制件 %.4f", ErrSpoolDrawExceedsTotal, key, total, sumDraws)
		}
		direct := total - sumDraws

		// 需求侧校验：剩余量按不含本单既有贡献计
		progressRow, err := s.progressRepo.GetForUpdate(tx, record.ProjectID, record.LineKey, key)
		if err != nil {
			return nil, nil, err
		}
		var used float64
		if progressRow != nil {
			used = progressRow.UsedQty
		}
		remaining := math.Max(0, g.RequiredQty-used)
		allowedMax := remaining + priorDirect[key]
		if total > allowedMax+qtyEpsilon {
			return nil, nil, fmt.Errorf("%w: %s 允许 %.4f, 请求 %.4f", ErrQtyExceedsRemaining, key, allowedMax, total)
		}

		// 台账：先回退既有贡献，再套用新的直接消耗
		meta := ItemMeta{ItemCode: g.ItemCode, Description: g.Description, Unit: g.Unit}
		if pd := priorDirect[key]; pd != 0 {
			if _, err := s.ledger.ApplyDelta(tx, record.ProjectID, record.LineKey, key, meta, -pd); err != nil {
				return nil, nil, err
			}
		}
		if direct > qtyEpsilon {
			if _, err := s.ledger.ApplyDelta(tx, record.ProjectID, record.LineKey, key, meta, direct); err != nil {
				return nil, nil, err
			}
		}

		// 预制件：逐组件先还旧账再扣新账，扣减时的可用量检查天然等于“可用+本单既有领用”
		spoolIDs := make(map[string]bool)
		for id := range priorDraws[key] {
			spoolIDs[id] = true
		}
		for id := range newDraws {
			spoolIDs[id] = true
		}
		sortedIDs := make([]string, 0, len(spoolIDs))
		for id := range spoolIDs {
			sortedIDs = append(sortedIDs, id)
		}
		sort.Strings(sortedIDs)

		for _, spoolItemID := range sortedIDs {
			if pq := priorDraws[key][spoolItemID]; pq != 0 {
				if _, err := s.spool.Reserve(tx, spoolItemID, -pq); err != nil {
					return nil, nil, err
				}
			}
			if nq := newDraws[spoolItemID]; nq > 0 {
				if _, err := s.spool.Reserve(tx, spoolItemID, nq); err != nil {
					return nil, nil, err
				}
			}
		}

		if direct > qtyEpsilon {
			outItems = append(outItems, entity.MIVItem{
				ID:          uuid.New().String(),
				MIVRecordID: record.ID,
				ItemKey:     key,
				ItemCode:    g.ItemCode,
				Description: g.Description,
				Unit:        g.Unit,
				UsedQty:     direct,
			})
		}
		for _, spoolItemID := range sortedIDs {
			if nq := newDraws[spoolItemID]; nq > 0 {
				outDraws = append(outDraws, entity.MIVSpoolDraw{
					ID:          uuid.New().String(),
					MIVRecordID: record.ID,
					SpoolItemID: spoolItemID,
					ItemKey:     key,
					UsedQty:     nq,
				})
			}
		}
	}

	return outItems, outDraws, nil
}

// refreshComplete 在事务内按最新台账重算该管线是否全部发完，并更新单据标记
func (s *AllocationService) refreshComplete(tx *gorm.DB, record *entity.MIVRecord, groups []RequirementGroup) error {
	var rows []entity.MTOProgress
	if err := tx.Where("project_id = ? AND line_key = ?", record.ProjectID, record.LineKey).
		Find(&rows).Error; err != nil {
		return err
	}
	lp := ComputeLineProgress(record.LineKey, groups, usedByKey(rows))
	record.Complete = lp.IsComplete
	return s.mivRepo.Update(tx, record)
}

// summarize 生成消耗摘要：线性物料 "3.5m PIPE-A106"，离散物料 "2x ELBOW-90"
func summarize(items []entity.MIVItem, draws []entity.MIVSpoolDraw, groups []RequirementGroup) string {
	basisByKey := make(map[string]string, len(groups))
	for _, g := range groups {
		basisByKey[g.ItemKey] = g.Basis
	}

	totals := make(map[string]float64)
	order := make([]string, 0)
	for _, it := range items {
		if _, ok := totals[it.ItemKey]; !ok {
			order = append(order, it.ItemKey)
		}
		totals[it.ItemKey] += it.UsedQty
	}
	for _, d := range draws {
		if _, ok := totals[d.ItemKey]; !ok {
			order = append(order, d.ItemKey)
		}
		totals[d.ItemKey] += d.UsedQty
	}

	parts := make([]string, 0, len(order))
	for _, key := range order {
		if basisByKey[key] == entity.BasisLinear {
			parts = append(parts, fmt.Sprintf("%.4gm %s", totals[key], key))
		} else {
			parts = append(parts, fmt.Sprintf("%.4gx %s", totals[key], key))
		}
	}
	return strings.Join(parts, ", ")
}

func appendSummary(comment, summary string) string {
	if summary == "" {
		return comment
	}
	if comment == "" {
		return summary
	}
	return comment + " | " + summary
}
