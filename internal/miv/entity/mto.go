package entity

import (
	"strings"
	"time"
)

// QuantityBasis 数量基准
const (
	BasisLinear   = "LINEAR"   // 线性材料，按长度(米)计量
	BasisDiscrete = "DISCRETE" // 离散材料，按件数计量
)

// MTOItem 管线材料清单行（MTO需求行）
// 每次导入按项目整体替换，不做增量合并。
type MTOItem struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ProjectID   string    `json:"project_id" gorm:"type:uuid;not null;index"`
	LineNo      string    `json:"line_no" gorm:"size:100;not null"`
	LineKey     string    `json:"line_key" gorm:"size:100;not null;index:idx_mto_line"`
	ItemCode    string    `json:"item_code" gorm:"size:64"`
	Description string    `json:"description" gorm:"size:256"`
	Unit        string    `json:"unit" gorm:"size:20"`
	ItemType    string    `json:"item_type" gorm:"size:50"` // PIPE, ELBOW, FLANGE...
	P1Bore      float64   `json:"p1_bore" gorm:"type:decimal(8,2);default:0"`
	LengthM     float64   `json:"length_m" gorm:"type:decimal(12,4);default:0"`
	Quantity    float64   `json:"quantity" gorm:"type:decimal(12,4);default:0"`
	CreatedAt   time.Time `json:"created_at"`
}

func (MTOItem) TableName() string {
	return "miv_mto_items"
}

// Basis 管材类按长度计量，其余按件数
func (m *MTOItem) Basis() string {
	t := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(m.ItemType)), " ", "")
	if strings.Contains(t, "pipe") {
		return BasisLinear
	}
	return BasisDiscrete
}

// RequiredQty 需求量：线性取长度，离散取数量
func (m *MTOItem) RequiredQty() float64 {
	if m.Basis() == BasisLinear {
		return m.LengthM
	}
	return m.Quantity
}
