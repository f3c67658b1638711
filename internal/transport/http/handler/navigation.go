// Package handler 非 JSON Action 形态的处理器（跳转、路由表）
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cineverse/internal/access"
	"cineverse/internal/service"
	"cineverse/internal/session"
	"cineverse/internal/transport/http/ez"
	mdw "cineverse/internal/transport/http/middleware"
	resp "cineverse/internal/transport/http/response"
)

// NavHandler 按当前会话解析前端导航
type NavHandler struct {
	Pages  *service.PageService
	Prefix string // 跳转地址前缀，如 /api/v1/app
}

func NewNavHandler(pages *service.PageService, prefix string) *NavHandler {
	return &NavHandler{Pages: pages, Prefix: prefix}
}

func currentState(c *gin.Context) session.State {
	if ctrl := mdw.Controller(c); ctrl != nil {
		return ctrl.State()
	}
	return session.State{Status: session.Unauthenticated}
}

// Routes 当前会话可见的路由表
func (h *NavHandler) Routes(c *gin.Context) {
	t := access.Select(currentState(c))
	c.JSON(http.StatusOK, resp.OK(gin.H{
		"table":    t.Name(),
		"fallback": t.Fallback(),
		"routes":   t.Routes(),
	}))
}

// Navigate GET {Prefix}/*path：跳转用 302，动态页面附带页面内容
func (h *NavHandler) Navigate(c *gin.Context) {
	res := access.Select(currentState(c)).Resolve(c.Param("path"))
	if res.Redirect != "" {
		c.Redirect(http.StatusFound, h.Prefix+res.Redirect)
		return
	}
	out := gin.H{"resolution": res}
	if res.Page == access.PageDynamic {
		p, err := h.Pages.GetVisible(c.Request.Context(), res.Params["pageId"])
		if err != nil {
			ez.Fail(c, err)
			return
		}
		out["page"] = p
	}
	c.JSON(http.StatusOK, resp.OK(out))
}
