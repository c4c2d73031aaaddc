package handler

import (
	"strconv"

	"github.com/bitfantasy/nimo-miv/internal/miv/repository"
	"github.com/bitfantasy/nimo-miv/internal/miv/service"
	"github.com/gin-gonic/gin"
)

type MIVHandler struct {
	allocation *service.AllocationService
	catalog    *service.CatalogService
}

func NewMIVHandler(allocation *service.AllocationService, catalog *service.CatalogService) *MIVHandler {
	return &MIVHandler{allocation: allocation, catalog: catalog}
}

// Register 登记领料单
func (h *MIVHandler) Register(c *gin.Context) {
	var input service.RegisterMIVInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	userID := c.GetString("user_id")
	record, err := h.allocation.RegisterMIV(c.Request.Context(), input, userID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, record)
}

func (h *MIVHandler) Get(c *gin.Context) {
	record, err := h.allocation.GetMIV(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, record)
}

func (h *MIVHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	params := repository.MIVListParams{
		ProjectID: c.Param("id"),
		Filter:    c.Query("filter"),
		Keyword:   c.Query("keyword"),
		Page:      page,
		Size:      size,
	}
	if lineNo := c.Query("line_no"); lineNo != "" {
		params.LineKey = service.NormalizeLineNo(lineNo)
	}
	records, total, err := h.allocation.ListMIVs(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"items": records, "total": total, "page": page, "size": size})
}

// Update 编辑领料单（明细整体替换）
func (h *MIVHandler) Update(c *gin.Context) {
	var input service.UpdateMIVInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	record, err := h.allocation.EditMIV(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, record)
}

// Delete 删除领料单并回退其全部消耗
func (h *MIVHandler) Delete(c *gin.Context) {
	if err := h.allocation.DeleteMIV(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}
