package entity

import (
	"time"
)

// SpoolStatus 预制管段状态
const (
	SpoolStatusAvailable = "AVAILABLE"
	SpoolStatusDepleted  = "DEPLETED"
)

// Spool 预制管段（车间预制的组合件，其组件可替代MTO直接消耗）
type Spool struct {
	ID        string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	SpoolCode string     `json:"spool_code" gorm:"size:50;not null;uniqueIndex"`
	Location  string     `json:"location" gorm:"size:100"`
	Status    string     `json:"status" gorm:"size:20;not null;default:AVAILABLE"`
	Notes     string     `json:"notes" gorm:"type:text"`
	CreatedBy string     `json:"created_by" gorm:"size:64;not null"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`

	Items []SpoolItem `json:"items,omitempty" gorm:"foreignKey:SpoolID"`
}

func (Spool) TableName() string {
	return "miv_spools"
}

// SpoolItem 预制管段组件库存。QtyAvailable 是剩余可领量，只能通过领用/回退/补库变动，
// 任何时刻 0 <= QtyAvailable <= QtyInitial。
type SpoolItem struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	SpoolID       string    `json:"spool_id" gorm:"type:uuid;not null;index"`
	ComponentType string    `json:"component_type" gorm:"size:50;not null;index:idx_spool_compat"`
	P1Bore        float64   `json:"p1_bore" gorm:"type:decimal(8,2);index:idx_spool_compat"`
	Unit          string    `json:"unit" gorm:"size:20"`
	QtyInitial    float64   `json:"qty_initial" gorm:"type:decimal(12,4);not null"`
	QtyAvailable  float64   `json:"qty_available" gorm:"type:decimal(12,4);not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Spool *Spool `json:"spool,omitempty" gorm:"foreignKey:SpoolID"`
}

func (SpoolItem) TableName() string {
	return "miv_spool_items"
}
