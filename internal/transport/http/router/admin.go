package router

import (
	"github.com/gin-gonic/gin"

	"cineverse/internal/core/server"
	"cineverse/internal/transport/http/ez"
	mdw "cineverse/internal/transport/http/middleware"
)

// NewAdminEngine 后台：/admin/v1，会话必须解析为管理员
func NewAdminEngine(d Deps) *gin.Engine {
	ez.RegisterValidators()
	r := server.NewRouter(d.Log, d.Cfg.CORS.AllowOrigins)
	r.Use(d.baseChain("admin")...)
	mountOps(r)

	admin := r.Group("/admin/v1")
	admin.Use(d.session(), mdw.RequireAdmin())

	d.modules().MountAdmin(admin)
	return r
}
