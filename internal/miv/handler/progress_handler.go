package handler

import (
	"github.com/bitfantasy/nimo-miv/internal/miv/service"
	"github.com/gin-gonic/gin"
)

type ProgressHandler struct {
	svc *service.ProgressService
}

func NewProgressHandler(svc *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

// Line 某条管线的进度（含明细行，领料窗口的数据源）
func (h *ProgressHandler) Line(c *gin.Context) {
	lp, err := h.svc.LineProgressByNo(c.Request.Context(), c.Param("id"), c.Query("line_no"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, lp)
}

// Project 项目级进度汇总
func (h *ProgressHandler) Project(c *gin.Context) {
	pp, err := h.svc.Project(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, pp)
}

// Lines 项目全部管线的进度摘要（仪表盘）
func (h *ProgressHandler) Lines(c *gin.Context) {
	statuses, err := h.svc.LineStatuses(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, statuses)
}
