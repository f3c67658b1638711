package router

import (
	"github.com/gin-gonic/gin"

	"cineverse/internal/core/server"
	"cineverse/internal/transport/http/ez"
	"cineverse/internal/transport/http/handler"
)

const appPrefix = "/api/v1/app"

// NewAPIEngine 用户端：/api/v1
func NewAPIEngine(d Deps) *gin.Engine {
	ez.RegisterValidators()
	r := server.NewRouter(d.Log, d.Cfg.CORS.AllowOrigins)
	r.Use(d.baseChain("api")...)
	mountOps(r)

	api := r.Group("/api/v1")
	api.Use(d.session())

	nav := handler.NewNavHandler(d.Pages, appPrefix)
	api.GET("/routes", nav.Routes)
	api.GET("/app/*path", nav.Navigate)

	d.modules().MountAPI(api)
	return r
}
