package handler

import (
	"strconv"

	"github.com/bitfantasy/nimo-miv/internal/miv/service"
	"github.com/gin-gonic/gin"
)

type SpoolHandler struct {
	svc *service.SpoolService
}

func NewSpoolHandler(svc *service.SpoolService) *SpoolHandler {
	return &SpoolHandler{svc: svc}
}

// Register 登记预制管段
func (h *SpoolHandler) Register(c *gin.Context) {
	var input service.RegisterSpoolInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	userID := c.GetString("user_id")
	spool, err := h.svc.Register(c.Request.Context(), input, userID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, spool)
}

func (h *SpoolHandler) Get(c *gin.Context) {
	spool, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, spool)
}

func (h *SpoolHandler) List(c *gin.Context) {
	spools, err := h.svc.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, spools)
}

// FindCompatible 按MTO行类型和口径查可替代组件
func (h *SpoolHandler) FindCompatible(c *gin.Context) {
	bore, _ := strconv.ParseFloat(c.Query("bore"), 64)
	items, err := h.svc.FindCompatible(c.Request.Context(), c.Query("type"), bore)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, items)
}

type restockRequest struct {
	Qty float64 `json:"qty" binding:"required,gt=0"`
}

// Restock 组件补库
func (h *SpoolHandler) Restock(c *gin.Context) {
	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	item, err := h.svc.Restock(c.Request.Context(), c.Param("item_id"), req.Qty)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, item)
}
