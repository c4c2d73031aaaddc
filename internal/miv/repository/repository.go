package repository

import "gorm.io/gorm"

// Repositories MIV数据访问层集合
type Repositories struct {
	Project  *ProjectRepository
	MTO      *MTORepository
	Progress *ProgressRepository
	MIV      *MIVRepository
	Spool    *SpoolRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Project:  NewProjectRepository(db),
		MTO:      NewMTORepository(db),
		Progress: NewProgressRepository(db),
		MIV:      NewMIVRepository(db),
		Spool:    NewSpoolRepository(db),
	}
}
