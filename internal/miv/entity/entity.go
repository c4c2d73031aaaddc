package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有MIV表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Project{},

		// MTO需求与消耗台账
		&MTOItem{},
		&MTOProgress{},

		// 领料单
		&MIVRecord{},
		&MIVItem{},
		&MIVSpoolDraw{},

		// 预制件库
		&Spool{},
		&SpoolItem{},
	)
}
