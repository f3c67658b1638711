package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"cineverse/internal/domain"
	"cineverse/internal/session"
	"cineverse/internal/transport/http/ez"
	mdw "cineverse/internal/transport/http/middleware"
)

// authModule /auth/*：注册、登录、登出、重置密码、邮箱验证
type authModule struct{ d Deps }

func (authModule) Priority() int { return 10 }

type sessionOut struct {
	Status       session.Status     `json:"status"`
	User         *domain.UserRecord `json:"user"`
	NeedsProfile bool               `json:"needsProfile"`
	Token        string             `json:"token,omitempty"`
}

func sessionOf(c *gin.Context) sessionOut {
	ctrl := mdw.Controller(c)
	st := ctrl.State()
	out := sessionOut{Status: st.Status, User: st.User, NeedsProfile: ctrl.NeedsProfile()}
	if cl := mdw.Client(c); cl != nil {
		out.Token = cl.Token()
	}
	return out
}

func (m authModule) MountAPI(api *gin.RouterGroup) {
	l := m.d.Cfg.Limits
	g := api.Group("/auth")
	g.Use(mdw.RateLimitPerIP(rate.Limit(l.AuthRPS), l.AuthBurst, 10*time.Minute))
	e := ez.New(g)
	backend := m.d.Backend

	type signUpIn struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
		domain.ProfileFields
	}
	ez.RegisterAction(e, ez.Action[signUpIn, sessionOut]{
		Method: http.MethodPost,
		Path:   "/signup",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *signUpIn) (sessionOut, error) {
			in.IsAdmin = false // 公开注册不能授予管理员
			if _, err := mdw.Controller(c).SignUp(c.Request.Context(), in.Email, in.Password, in.ProfileFields); err != nil {
				return sessionOut{}, err
			}
			return sessionOf(c), nil
		},
	})

	// 凭证存在但缺资料时补全
	ez.RegisterAction(e, ez.Action[domain.ProfileFields, sessionOut]{
		Method: http.MethodPost,
		Path:   "/signup/complete",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *domain.ProfileFields) (sessionOut, error) {
			in.IsAdmin = false
			if _, err := mdw.Controller(c).CompleteProfile(c.Request.Context(), *in); err != nil {
				return sessionOut{}, err
			}
			return sessionOf(c), nil
		},
	})

	type signInIn struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	ez.RegisterAction(e, ez.Action[signInIn, sessionOut]{
		Method: http.MethodPost,
		Path:   "/signin",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *signInIn) (sessionOut, error) {
			if _, err := mdw.Controller(c).SignIn(c.Request.Context(), in.Email, in.Password); err != nil {
				return sessionOut{}, err
			}
			return sessionOf(c), nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, sessionOut]{
		Method: http.MethodPost,
		Path:   "/signout",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (sessionOut, error) {
			if err := mdw.Controller(c).SignOut(c.Request.Context()); err != nil {
				return sessionOut{}, err
			}
			return sessionOf(c), nil
		},
	})

	type resetIn struct {
		Email string `json:"email" binding:"required,email"`
	}
	ez.RegisterAction(e, ez.Action[resetIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/password/reset",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *resetIn) (gin.H, error) {
			// 邮箱是否注册都返回成功
			if err := mdw.Controller(c).ResetPassword(c.Request.Context(), in.Email); err != nil {
				return nil, err
			}
			return gin.H{"sent": true}, nil
		},
	})

	type resetConfirmIn struct {
		Token    string `json:"token"    binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	ez.RegisterAction(e, ez.Action[resetConfirmIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/password/reset/confirm",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *resetConfirmIn) (gin.H, error) {
			if err := backend.ConfirmPasswordReset(c.Request.Context(), in.Token, in.Password); err != nil {
				return nil, err
			}
			return gin.H{"reset": true}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/verify",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if err := mdw.Controller(c).VerifyEmail(c.Request.Context()); err != nil {
				return nil, err
			}
			return gin.H{"sent": true}, nil
		},
	})

	type verifyConfirmIn struct {
		Token string `form:"token" binding:"required"`
	}
	ez.RegisterAction(e, ez.Action[verifyConfirmIn, gin.H]{
		Method: http.MethodGet,
		Path:   "/verify/confirm",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *verifyConfirmIn) (gin.H, error) {
			id, err := backend.ConfirmVerification(c.Request.Context(), in.Token)
			if err != nil {
				return nil, err
			}
			return gin.H{"id": id, "emailVerified": true}, nil
		},
	})
}

// meModule /me：当前用户资料与密码
type meModule struct{}

func (meModule) Priority() int { return 20 }

func (meModule) MountAPI(api *gin.RouterGroup) {
	g := api.Group("/me")
	g.Use(mdw.RequireSession())
	e := ez.New(g)

	e.GET("", func(c *gin.Context) (any, error) {
		return sessionOf(c).User, nil
	})

	ez.RegisterAction(e, ez.Action[domain.ProfilePatch, *domain.UserRecord]{
		Method: http.MethodPatch,
		Path:   "",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *domain.ProfilePatch) (*domain.UserRecord, error) {
			return mdw.Controller(c).UpdateProfile(c.Request.Context(), *in)
		},
	})

	type passwordIn struct {
		Current  string `json:"current"  binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	ez.RegisterAction(e, ez.Action[passwordIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/password",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *passwordIn) (gin.H, error) {
			if err := mdw.Controller(c).ChangePassword(c.Request.Context(), in.Current, in.Password); err != nil {
				return nil, err
			}
			return gin.H{"changed": true}, nil
		},
	})
}
