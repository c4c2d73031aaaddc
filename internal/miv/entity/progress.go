package entity

import (
	"time"
)

// MTOProgress 消耗台账：一条记录对应 (项目, 管线, 物料键) 的累计已发量。
// ItemKey 为规范化物料键（有料号取料号，否则取描述），与MTO行按键匹配而非按ID，
// 这样MTO整体重导后历史消耗不丢失。
type MTOProgress struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ProjectID   string    `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:uidx_progress_key"`
	LineKey     string    `json:"line_key" gorm:"size:100;not null;uniqueIndex:uidx_progress_key"`
	ItemKey     string    `json:"item_key" gorm:"size:256;not null;uniqueIndex:uidx_progress_key"`
	ItemCode    string    `json:"item_code" gorm:"size:64"`
	Description string    `json:"description" gorm:"size:256"`
	Unit        string    `json:"unit" gorm:"size:20"`
	UsedQty     float64   `json:"used_qty" gorm:"type:decimal(12,4);not null;default:0"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (MTOProgress) TableName() string {
	return "miv_mto_progress"
}
