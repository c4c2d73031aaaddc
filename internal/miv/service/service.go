package service

import (
	"github.com/bitfantasy/nimo-miv/internal/miv/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services MIV业务服务集合
type Services struct {
	Project    *ProjectService
	Catalog    *CatalogService
	Ledger     *LedgerService
	Spool      *SpoolService
	Progress   *ProgressService
	Allocation *AllocationService
}

func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, logger *zap.Logger) *Services {
	project := NewProjectService(repos.Project)
	catalog := NewCatalogService(repos.MTO, repos.Project, logger)
	ledger := NewLedgerService(repos.Progress, logger)
	spool := NewSpoolService(repos.Spool, db, logger)
	progress := NewProgressService(repos.MTO, repos.Progress, rdb, logger)
	allocation := NewAllocationService(db, catalog, ledger, spool, progress, repos.MIV, repos.Progress, logger)

	return &Services{
		Project:    project,
		Catalog:    catalog,
		Ledger:     ledger,
		Spool:      spool,
		Progress:   progress,
		Allocation: allocation,
	}
}
