package handler

import (
	"net/http"

	"intranet_admin/internal/service"
	"intranet_admin/pkg/log"

	"github.com/gin-gonic/gin"
)

// ResourceHandler 为一个后台 CRUD 页面提供 REST 接口：
//
//	GET    /<path>       列表（过滤 + 分页）
//	GET    /<path>/:id   详情
//	POST   /<path>       新建
//	PUT    /<path>/:id   更新
//	DELETE /<path>/:id   删除
type ResourceHandler[V any, I any] struct {
	name string
	svc  service.ResourceService[V, I]
	list ListConfig
}

func NewResourceHandler[V any, I any](name string, svc service.ResourceService[V, I], list ListConfig) *ResourceHandler[V, I] {
	return &ResourceHandler[V, I]{name: name, svc: svc, list: list}
}

// Register 把五个接口挂到路由组的 path 下。
func (h *ResourceHandler[V, I]) Register(rg *gin.RouterGroup, path string) {
	g := rg.Group(path)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *ResourceHandler[V, I]) List(c *gin.Context) {
	page, err := h.svc.List(c.Request.Context(), parseViewState(c, h.list))
	if err != nil {
		log.Warnf("List %s: %v", h.name, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    page,
	})
}

func (h *ResourceHandler[V, I]) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Warnf("Get %s %s: %v", h.name, c.Param("id"), err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    item,
	})
}

func (h *ResourceHandler[V, I]) Create(c *gin.Context) {
	var in I
	if err := c.ShouldBindJSON(&in); err != nil {
		log.Warnf("Create %s: failed to bind request: %v", h.name, err)
		respondBadBody(c)
		return
	}

	item, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		log.Warnf("Create %s: %v", h.name, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "Created successfully",
		"data":    item,
	})
}

func (h *ResourceHandler[V, I]) Update(c *gin.Context) {
	var in I
	if err := c.ShouldBindJSON(&in); err != nil {
		log.Warnf("Update %s: failed to bind request: %v", h.name, err)
		respondBadBody(c)
		return
	}

	item, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		log.Warnf("Update %s %s: %v", h.name, c.Param("id"), err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Updated successfully",
		"data":    item,
	})
}

func (h *ResourceHandler[V, I]) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		log.Warnf("Delete %s %s: %v", h.name, c.Param("id"), err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Deleted successfully",
	})
}
