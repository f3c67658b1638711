package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cineverse/internal/domain"
	"cineverse/internal/identity"
	"cineverse/internal/session"
	resp "cineverse/internal/transport/http/response"
)

const (
	keySession = "session"
	keyClient  = "sessionClient"
)

type SessionConfig struct {
	Backend        *identity.Backend
	Profiles       domain.ProfileStore
	Log            *zap.Logger
	CookieName     string
	Secure         bool
	ResolveTimeout time.Duration // 0 不限制
}

func bearer(c *gin.Context) string {
	ah := c.GetHeader("Authorization")
	if strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
	}
	return ""
}

// Session 每个请求一个凭证客户端 + 会话控制器；token 来自 cookie 或 Bearer。
// 登录/登出时通过 OnTokenChange 写回 HttpOnly cookie。
func Session(cfg SessionConfig) gin.HandlerFunc {
	log := cfg.Log.Named("session")
	return func(c *gin.Context) {
		tok := bearer(c)
		if tok == "" {
			tok, _ = c.Cookie(cfg.CookieName)
		}

		client := cfg.Backend.NewClient()
		client.OnTokenChange(func(token string, expires time.Time) {
			c.SetSameSite(http.SameSiteLaxMode)
			if token == "" {
				c.SetCookie(cfg.CookieName, "", -1, "/", "", cfg.Secure, true)
				return
			}
			c.SetCookie(cfg.CookieName, token, int(time.Until(expires).Seconds()), "/", "", cfg.Secure, true)
		})
		ctrl := session.New(client, cfg.Profiles, log, session.WithResolveTimeout(cfg.ResolveTimeout))
		defer func() {
			ctrl.Close()
			client.Close()
		}()

		client.Restore(c.Request.Context(), tok)
		if err := ctrl.Wait(c.Request.Context()); err != nil {
			resp.Abort(c, resp.CodeTimeout, "session resolve timeout")
			return
		}

		c.Set(keySession, ctrl)
		c.Set(keyClient, client)
		if st := ctrl.State(); st.Status == session.Authenticated {
			c.Set("userId", st.User.ID)
			c.Set("role", st.User.Role())
		}
		c.Next()
	}
}

// Controller 当前请求的会话控制器
func Controller(c *gin.Context) *session.Controller {
	v, _ := c.Get(keySession)
	ctrl, _ := v.(*session.Controller)
	return ctrl
}

// Client 当前请求的凭证客户端
func Client(c *gin.Context) *identity.Client {
	v, _ := c.Get(keyClient)
	cl, _ := v.(*identity.Client)
	return cl
}

// RequireSession 会话必须已解析为登录
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl := Controller(c)
		if ctrl == nil || ctrl.State().Status != session.Authenticated {
			resp.Abort(c, resp.CodeUnauthorized, "unauthorized")
			return
		}
		c.Next()
	}
}

// RequireAdmin 角色每次从资料实时读取，不看 token
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl := Controller(c)
		if ctrl == nil || ctrl.State().Status != session.Authenticated {
			resp.Abort(c, resp.CodeUnauthorized, "unauthorized")
			return
		}
		if !ctrl.State().IsAdmin() {
			resp.Abort(c, resp.CodeForbidden, "forbidden")
			return
		}
		c.Next()
	}
}
