package handler

import (
	"net/http"

	"intranet_admin/internal/service"
	"intranet_admin/pkg/log"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 提供分类树接口，展开状态按当前会话保存。
type CategoryHandler struct {
	categoryService service.CategoryService
}

func NewCategoryHandler(categoryService service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// ToggleRequest 是切换展开状态的请求体。
type ToggleRequest struct {
	Level string `json:"level" binding:"required"`
	ID    string `json:"id" binding:"required"`
}

func (h *CategoryHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/categories")
	g.GET("", h.Tree)
	g.POST("", h.Add)
	g.DELETE("", h.Delete)
	g.POST("/toggle", h.Toggle)
}

func (h *CategoryHandler) Tree(c *gin.Context) {
	snap, ok := getSnapshotFromContext(c)
	if !ok {
		return
	}
	nodes, err := h.categoryService.Tree(c.Request.Context(), snap.Session.ID)
	if err != nil {
		log.Errorf("Tree: failed to load categories: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    nodes,
	})
}

func (h *CategoryHandler) Add(c *gin.Context) {
	snap, ok := getSnapshotFromContext(c)
	if !ok {
		return
	}
	var in service.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		log.Warnf("AddCategory: failed to bind request: %v", err)
		respondBadBody(c)
		return
	}

	node, err := h.categoryService.Add(c.Request.Context(), snap.Session.ID, in)
	if err != nil {
		log.Warnf("AddCategory: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "Category created successfully",
		"data":    node,
	})
}

// Delete 通过查询参数定位节点：level、categoryId、subcategoryId、level3Id。
func (h *CategoryHandler) Delete(c *gin.Context) {
	snap, ok := getSnapshotFromContext(c)
	if !ok {
		return
	}
	var ref service.CategoryRef
	if err := c.ShouldBindQuery(&ref); err != nil {
		log.Warnf("DeleteCategory: failed to bind query: %v", err)
		respondBadBody(c)
		return
	}

	if err := h.categoryService.Delete(c.Request.Context(), snap.Session.ID, ref); err != nil {
		log.Warnf("DeleteCategory: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Category deleted successfully",
	})
}

func (h *CategoryHandler) Toggle(c *gin.Context) {
	snap, ok := getSnapshotFromContext(c)
	if !ok {
		return
	}
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("ToggleCategory: failed to bind request: %v", err)
		respondBadBody(c)
		return
	}

	expanded, err := h.categoryService.Toggle(c.Request.Context(), snap.Session.ID, req.Level, req.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"level": req.Level, "id": req.ID, "expanded": expanded},
	})
}
