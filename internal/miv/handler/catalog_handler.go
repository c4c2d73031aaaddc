package handler

import (
	"io"
	"strconv"

	"github.com/bitfantasy/nimo-miv/internal/miv/service"
	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	svc *service.CatalogService
}

func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// Import 上传MTO清单（xlsx/csv），整体替换项目现有清单
func (h *CatalogHandler) Import(c *gin.Context) {
	projectID := c.Param("id")

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.ImportCatalog(c.Request.Context(), projectID, header.Filename, data)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

// Lines 项目全部管线号
func (h *CatalogHandler) Lines(c *gin.Context) {
	lines, err := h.svc.Lines(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, lines)
}

// LineItems 某条管线的合并需求行
func (h *CatalogHandler) LineItems(c *gin.Context) {
	groups, err := h.svc.LineGroups(c.Request.Context(), c.Param("id"), c.Query("line_no"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, groups)
}

// SuggestLines 管线号模糊匹配建议
func (h *CatalogHandler) SuggestLines(c *gin.Context) {
	topN, _ := strconv.Atoi(c.DefaultQuery("top", "6"))
	suggestions, err := h.svc.SuggestLines(c.Request.Context(), c.Param("id"), c.Query("q"), topN)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, suggestions)
}

// Orphans 重导MTO后失配的消耗台账记录
func (h *CatalogHandler) Orphans(c *gin.Context) {
	orphans, err := h.svc.OrphanProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, orphans)
}
