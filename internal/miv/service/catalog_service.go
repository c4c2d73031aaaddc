package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bitfantasy/nimo-miv/internal/miv/entity"
	"github.com/bitfantasy/nimo-miv/internal/miv/repository"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type CatalogService struct {
	mtoRepo     *repository.MTORepository
	projectRepo *repository.ProjectRepository
	logger      *zap.Logger
}

func NewCatalogService(mtoRepo *repository.MTORepository, projectRepo *repository.ProjectRepository, logger *zap.Logger) *CatalogService {
	return &CatalogService{mtoRepo: mtoRepo, projectRepo: projectRepo, logger: logger}
}

// RequirementGroup 同一物料键的MTO需求行合并结果。
// 料号为空且描述相同的行无法区分，按同一逻辑组处理：需求量求和，口径取组内最大值。
type RequirementGroup struct {
	ItemKey     string  `json:"item_key"`
	ItemCode    string  `json:"item_code"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	ItemType    string  `json:"item_type"`
	Basis       string  `json:"basis"`
	RequiredQty float64 `json:"required_qty"`
	Bore        float64 `json:"bore"` // 0 表示无口径数据
}

// GroupRequirements 按物料键合并需求行，结果按键排序保证稳定
func GroupRequirements(items []entity.MTOItem) []RequirementGroup {
	byKey := make(map[string]*RequirementGroup)
	for i := range items {
		item := &items[i]
		key := ResolveKey(item.ItemCode, item.Description)
		if key == "" {
			continue
		}
		g, ok := byKey[key]
		if !ok {
			g = &RequirementGroup{
				ItemKey:     key,
				ItemCode:    strings.TrimSpace(item.ItemCode),
				Description: strings.TrimSpace(item.Description),
				Unit:        strings.TrimSpace(item.Unit),
				ItemType:    strings.TrimSpace(item.ItemType),
				Basis:       item.Basis(),
			}
			byKey[key] = g
		}
		g.RequiredQty += item.RequiredQty()
		if item.P1Bore > g.Bore {
			g.Bore = item.P1Bore
		}
	}

	groups := make([]RequirementGroup, 0, len(byKey))
	for _, g := range byKey {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ItemKey < groups[j].ItemKey })
	return groups
}

// LineGroups 某条管线的合并需求。管线不存在于MTO时返回 ErrLineNotFound。
func (s *CatalogService) LineGroups(ctx context.Context, projectID, lineNo string) ([]RequirementGroup, error) {
	items, err := s.mtoRepo.ListByLine(ctx, projectID, NormalizeLineNo(lineNo))
	if err != nil {
		return nil, fmt.Errorf("读取MTO清单失败: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrLineNotFound
	}
	return GroupRequirements(items), nil
}

// Lines 项目下全部管线号
func (s *CatalogService) Lines(ctx context.Context, projectID string) ([]string, error) {
	return s.mtoRepo.DistinctLines(ctx, projectID)
}

// SuggestLines 管线号模糊匹配
func (s *CatalogService) SuggestLines(ctx context.Context, projectID, input string, topN int) ([]LineSuggestion, error) {
	lines, err := s.mtoRepo.DistinctLines(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("读取管线列表失败: %w", err)
	}
	return SuggestLines(input, lines, topN), nil
}

// ImportResult MTO导入结果
type ImportResult struct {
	TotalRows   int                  `json:"total_rows"`
	Imported    int                  `json:"imported"`
	SkippedRows []int                `json:"skipped_rows,omitempty"` // 缺管线号或物料键的行号
	Orphans     []entity.MTOProgress `json:"orphans,omitempty"`      // 重导后失配的台账记录
}

// ImportCatalog 导入MTO清单并整体替换项目现有清单。
// 支持xlsx和csv；csv内容不是合法UTF-8时按Windows-1256重解码（现场导出的清单常见这种编码）。
// 替换后检查台账失配项并随结果返回告警，不做删除。
func (s *CatalogService) ImportCatalog(ctx context.Context, projectID, filename string, data []byte) (*ImportResult, error) {
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		return nil, ErrProjectNotFound
	}

	var rows [][]string
	var err error
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		rows, err = readXLSX(data)
	} else {
		rows, err = readCSV(data)
	}
	if err != nil {
		return nil, fmt.Errorf("解析MTO文件失败: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrCatalogEmpty
	}

	cols := mapColumns(rows[0])
	if cols.lineNo < 0 {
		return nil, fmt.Errorf("%w: 缺少 Line No 列", ErrCatalogEmpty)
	}

	result := &ImportResult{TotalRows: len(rows) - 1}
	items := make([]entity.MTOItem, 0, len(rows)-1)
	for i, row := range rows[1:] {
		lineNo := cols.get(row, cols.lineNo)
		itemCode := cols.get(row, cols.itemCode)
		desc := cols.get(row, cols.description)
		if lineNo == "" || ResolveKey(itemCode, desc) == "" {
			result.SkippedRows = append(result.SkippedRows, i+2)
			continue
		}
		items = append(items, entity.MTOItem{
			ProjectID:   projectID,
			LineNo:      lineNo,
			LineKey:     NormalizeLineNo(lineNo),
			ItemCode:    itemCode,
			Description: desc,
			Unit:        cols.get(row, cols.unit),
			ItemType:    cols.get(row, cols.itemType),
			P1Bore:      parseFloat(cols.get(row, cols.bore)),
			LengthM:     parseFloat(cols.get(row, cols.lengthM)),
			Quantity:    parseFloat(cols.get(row, cols.quantity)),
		})
	}
	if len(items) == 0 {
		return nil, ErrCatalogEmpty
	}

	if err := s.mtoRepo.ReplaceCatalog(ctx, projectID, items); err != nil {
		return nil, fmt.Errorf("替换MTO清单失败: %w", err)
	}
	result.Imported = len(items)

	orphans, err := s.mtoRepo.FindOrphanProgress(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("检查台账失配失败: %w", err)
	}
	if len(orphans) > 0 {
		s.logger.Warn("MTO重导后存在失配的消耗台账记录",
			zap.String("project_id", projectID),
			zap.Int("orphans", len(orphans)),
		)
		result.Orphans = orphans
	}
	return result, nil
}

// OrphanProgress 台账失配报告
func (s *CatalogService) OrphanProgress(ctx context.Context, projectID string) ([]entity.MTOProgress, error) {
	return s.mtoRepo.FindOrphanProgress(ctx, projectID)
}

type columnMap struct {
	lineNo, itemCode, description, unit, itemType, bore, lengthM, quantity int
}

func (c columnMap) get(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// mapColumns 识别表头列。列名大小写、空格、下划线不敏感。
func mapColumns(header []string) columnMap {
	cols := columnMap{lineNo: -1, itemCode: -1, description: -1, unit: -1, itemType: -1, bore: -1, lengthM: -1, quantity: -1}
	for i, h := range header {
		switch normalizeHeader(h) {
		case "LINENO", "LINE":
			cols.lineNo = i
		case "ITEMCODE", "ITEM":
			cols.itemCode = i
		case "DESCRIPTION", "DESC":
			cols.description = i
		case "UNIT", "UOM":
			cols.unit = i
		case "TYPE", "ITEMTYPE":
			cols.itemType = i
		case "P1BORE", "P1BOREIN", "BORE", "NPS":
			cols.bore = i
		case "LENGTHM", "LENGTH":
			cols.lengthM = i
		case "QUANTITY", "QTY":
			cols.quantity = i
		}
	}
	return cols
}

func normalizeHeader(h string) string {
	h = strings.ToUpper(strings.TrimSpace(h))
	for _, ch := range []string{" ", "_", "-", "(", ")", "."} {
		h = strings.ReplaceAll(h, ch, "")
	}
	return h
}

// parseFloat 宽松解析数量：带千分位/空值/占位符一律按0处理，坏行不阻断整个导入
func parseFloat(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrCatalogEmpty
	}
	return f.GetRows(sheets[0])
}

func readCSV(data []byte) ([][]string, error) {
	var reader io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		reader = transform.NewReader(bytes.NewReader(data), charmap.Windows1256.NewDecoder())
	}
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.ReadAll()
}
