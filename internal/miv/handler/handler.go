package handler

import (
	"errors"
	"net/http"

	"github.com/bitfantasy/nimo-miv/internal/miv/service"
	"github.com/gin-gonic/gin"
)

// Handlers MIV HTTP处理器集合
type Handlers struct {
	Project  *ProjectHandler
	Catalog  *CatalogHandler
	MIV      *MIVHandler
	Spool    *SpoolHandler
	Progress *ProgressHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Project:  NewProjectHandler(services.Project),
		Catalog:  NewCatalogHandler(services.Catalog),
		MIV:      NewMIVHandler(services.Allocation, services.Catalog),
		Spool:    NewSpoolHandler(services.Spool),
		Progress: NewProgressHandler(services.Progress),
	}
}

func ok(c *gin.Context, data interface{}) {
	if data == nil {
		c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": data})
}

// fail 按错误类型映射HTTP状态：业务校验拒绝回422由调用方改小数量后重提，
// 不存在类错误回404，其余回500
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProjectNotFound),
		errors.Is(err, service.ErrLineNotFound),
		errors.Is(err, service.ErrMIVNotFound),
		errors.Is(err, service.ErrSpoolItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": err.Error()})
	case errors.Is(err, service.ErrQtyExceedsRemaining),
		errors.Is(err, service.ErrSpoolDrawExceedsTotal),
		errors.Is(err, service.ErrInsufficientSpool),
		errors.Is(err, service.ErrDuplicateMIVTag),
		errors.Is(err, service.ErrItemNotInMTO),
		errors.Is(err, service.ErrEmptyItemKey),
		errors.Is(err, service.ErrDuplicateItemKey),
		errors.Is(err, service.ErrNegativeQty),
		errors.Is(err, service.ErrCatalogEmpty):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": 10003, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
}
