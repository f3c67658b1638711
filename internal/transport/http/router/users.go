package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cineverse/internal/domain"
	"cineverse/internal/service"
	"cineverse/internal/transport/http/ez"
	mdw "cineverse/internal/transport/http/middleware"
	resp "cineverse/internal/transport/http/response"
)

// usersModule 后台用户管理；分组已要求管理员，操作者再交给 service 校验
type usersModule struct{ users *service.UserService }

func (usersModule) Priority() int { return 50 }

func actor(c *gin.Context) *domain.UserRecord {
	return mdw.Controller(c).State().User
}

func (m usersModule) MountAdmin(admin *gin.RouterGroup) {
	e := ez.New(admin)

	type listQ struct {
		Offset int    `form:"offset,default=0"`
		Limit  int    `form:"limit,default=20"`
		Q      string `form:"q"`      // 按 email/username/姓名 模糊搜
		Admins bool   `form:"admins"` // 只看管理员
	}
	ez.RegisterAction(e, ez.Action[listQ, resp.Paged[domain.UserRecord]]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *listQ) (resp.Paged[domain.UserRecord], error) {
			if in.Limit <= 0 || in.Limit > 100 {
				in.Limit = 20
			}
			if in.Offset < 0 {
				in.Offset = 0
			}
			us, total, err := m.users.List(c.Request.Context(), domain.ProfileQuery{
				Offset: in.Offset, Limit: in.Limit, Q: in.Q, AdminsOnly: in.Admins,
			})
			return resp.List(us, total, in.Offset, in.Limit), err
		},
	})

	e.GET("/users/:id", func(c *gin.Context) (any, error) {
		return m.users.Get(c.Request.Context(), c.Param("id"))
	})

	ez.RegisterAction(e, ez.Action[domain.ProfilePatch, *domain.UserRecord]{
		Method: http.MethodPut,
		Path:   "/users/:id",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *domain.ProfilePatch) (*domain.UserRecord, error) {
			return m.users.Update(c.Request.Context(), actor(c), c.Param("id"), *in)
		},
	})

	type createIn struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
		IsAdmin  bool   `json:"isAdmin"`
		domain.ProfileFields
	}
	ez.RegisterAction(e, ez.Action[createIn, *domain.UserRecord]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *createIn) (*domain.UserRecord, error) {
			in.ProfileFields.IsAdmin = in.IsAdmin
			return m.users.Create(c.Request.Context(), actor(c), service.CreateUserInput{
				Email: in.Email, Password: in.Password, Profile: in.ProfileFields,
			})
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/users/:id/password-reset",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			return gin.H{"id": id, "sent": true}, m.users.TriggerReset(c.Request.Context(), actor(c), id)
		},
	})

	e.GET("/synthesis", func(c *gin.Context) (any, error) {
		return m.users.Synthesis(c.Request.Context())
	})
}
