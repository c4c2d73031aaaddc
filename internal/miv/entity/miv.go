package entity

import (
	"time"
)

// MIVStatus 领料单状态
const (
	MIVStatusInProgress = "IN_PROGRESS"
	MIVStatusDone       = "DONE"
)

// MIVRecord 材料领料单（Material Issue Voucher）
// 一张领料单挂零到多条直接消耗明细和零到多条预制件领用明细。
type MIVRecord struct {
	ID            string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ProjectID     string     `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:uidx_miv_tag;index"`
	Tag           string     `json:"tag" gorm:"size:50;not null;uniqueIndex:uidx_miv_tag"`
	LineNo        string     `json:"line_no" gorm:"size:100;not null"`
	LineKey       string     `json:"line_key" gorm:"size:100;not null;index"`
	Location      string     `json:"location" gorm:"size:100"`
	Status        string     `json:"status" gorm:"size:20;not null;default:IN_PROGRESS"`
	Comment       string     `json:"comment" gorm:"type:text"`
	RegisteredFor string     `json:"registered_for" gorm:"size:64"`
	RegisteredBy  string     `json:"registered_by" gorm:"size:64;not null"`
	Complete      bool       `json:"complete" gorm:"default:false"` // 登记/编辑时该管线是否已全部发完
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at" gorm:"index"`

	Items      []MIVItem      `json:"items,omitempty" gorm:"foreignKey:MIVRecordID"`
	SpoolDraws []MIVSpoolDraw `json:"spool_draws,omitempty" gorm:"foreignKey:MIVRecordID"`
}

func (MIVRecord) TableName() string {
	return "miv_records"
}

// MIVItem 领料单直接消耗明细（对MTO需求的直接扣减部分）
type MIVItem struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	MIVRecordID string    `json:"miv_record_id" gorm:"type:uuid;not null;index"`
	ItemKey     string    `json:"item_key" gorm:"size:256;not null"`
	ItemCode    string    `json:"item_code" gorm:"size:64"`
	Description string    `json:"description" gorm:"size:256"`
	Unit        string    `json:"unit" gorm:"size:20"`
	UsedQty     float64   `json:"used_qty" gorm:"type:decimal(12,4);not null"`
	CreatedAt   time.Time `json:"created_at"`
}

func (MIVItem) TableName() string {
	return "miv_record_items"
}

// MIVSpoolDraw 领料单预制件领用明细
type MIVSpoolDraw struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	MIVRecordID string    `json:"miv_record_id" gorm:"type:uuid;not null;index"`
	SpoolItemID string    `json:"spool_item_id" gorm:"type:uuid;not null;index"`
	ItemKey     string    `json:"item_key" gorm:"size:256;not null"`
	UsedQty     float64   `json:"used_qty" gorm:"type:decimal(12,4);not null"`
	CreatedAt   time.Time `json:"created_at"`
}

func (MIVSpoolDraw) TableName() string {
	return "miv_spool_draws"
}
