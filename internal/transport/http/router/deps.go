package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"cineverse/internal/core/config"
	"cineverse/internal/identity"
	"cineverse/internal/repo"
	"cineverse/internal/service"
	mdw "cineverse/internal/transport/http/middleware"
)

// Deps 两个引擎共用的依赖
type Deps struct {
	Log      *zap.Logger
	Cfg      *config.Config
	DB       *gorm.DB
	Backend  *identity.Backend
	Profiles *repo.ProfileRepo
	Users    *service.UserService
	Pages    *service.PageService
}

func (d Deps) modules() Modules {
	return Modules{
		authModule{d},
		meModule{},
		favoritesModule{db: d.DB},
		pagesModule{pages: d.Pages},
		usersModule{users: d.Users},
	}
}

// baseChain 通用中间件链，限额来自配置
func (d Deps) baseChain(server string) []gin.HandlerFunc {
	l := d.Cfg.Limits
	return []gin.HandlerFunc{
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(l.RPS), l.Burst),
		mdw.ConcurrencyLimit(max(l.MaxConcurrent, 1)),
		mdw.MaxBodyBytes(max(l.MaxBodyMB, 1) << 20),
		mdw.Timeout(time.Duration(l.TimeoutSec) * time.Second),
		mdw.Metrics(server),
		mdw.AccessLog(d.Log.Named(server)),
		mdw.Recovery(d.Log.Named(server)),
	}
}

func (d Deps) session() gin.HandlerFunc {
	return mdw.Session(mdw.SessionConfig{
		Backend:        d.Backend,
		Profiles:       d.Profiles,
		Log:            d.Log,
		CookieName:     d.Cfg.Session.CookieName,
		Secure:         d.Cfg.Session.Secure,
		ResolveTimeout: time.Duration(d.Cfg.Session.ResolveTimeoutSec) * time.Second,
	})
}

func mountOps(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
