package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cineverse/internal/domain"
	"cineverse/internal/service"
	"cineverse/internal/transport/http/ez"
	resp "cineverse/internal/transport/http/response"
)

// pagesModule 静态页面：公开读取 + 后台维护
type pagesModule struct{ pages *service.PageService }

func (pagesModule) Priority() int { return 40 }

func (m pagesModule) MountAPI(api *gin.RouterGroup) {
	e := ez.New(api)

	type navQ struct {
		Location domain.PageLocation `form:"location" binding:"required,oneof=navbar footer none"`
	}
	ez.RegisterAction(e, ez.Action[navQ, []domain.Page]{
		Method: http.MethodGet,
		Path:   "/pages",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *navQ) ([]domain.Page, error) {
			ps, err := m.pages.Nav(c.Request.Context(), in.Location)
			if ps == nil && err == nil {
				ps = []domain.Page{}
			}
			return ps, err
		},
	})

	e.GET("/pages/:id", func(c *gin.Context) (any, error) {
		return m.pages.GetVisible(c.Request.Context(), c.Param("id"))
	})
}

type pageIn struct {
	Title     string              `json:"title"     binding:"required,max=255"`
	Path      string              `json:"path"      binding:"required,pagepath"`
	Content   string              `json:"content"`
	Location  domain.PageLocation `json:"location"  binding:"omitempty,oneof=navbar footer none"`
	IsVisible bool                `json:"isVisible"`
}

func (m pagesModule) MountAdmin(admin *gin.RouterGroup) {
	e := ez.New(admin)

	e.GET("/pages", func(c *gin.Context) (any, error) {
		ps, err := m.pages.List(c.Request.Context())
		return resp.List(ps, int64(len(ps)), 0, len(ps)), err
	})

	ez.RegisterAction(e, ez.Action[pageIn, *domain.Page]{
		Method: http.MethodPost,
		Path:   "/pages",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *pageIn) (*domain.Page, error) {
			return m.pages.Create(c.Request.Context(), service.PageInput{
				Title: in.Title, Path: in.Path, Content: in.Content,
				Location: in.Location, IsVisible: in.IsVisible,
			})
		},
	})

	type metaIn struct {
		Title     string              `json:"title"     binding:"required,max=255"`
		Path      string              `json:"path"      binding:"required,pagepath"`
		Location  domain.PageLocation `json:"location"  binding:"omitempty,oneof=navbar footer none"`
		IsVisible bool                `json:"isVisible"`
	}
	ez.RegisterAction(e, ez.Action[metaIn, *domain.Page]{
		Method: http.MethodPut,
		Path:   "/pages/:id",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *metaIn) (*domain.Page, error) {
			return m.pages.UpdateMeta(c.Request.Context(), c.Param("id"), domain.PageMeta{
				Title: in.Title, Path: in.Path, Location: in.Location, IsVisible: in.IsVisible,
			})
		},
	})

	type contentIn struct {
		Content string `json:"content"`
	}
	ez.RegisterAction(e, ez.Action[contentIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/pages/:id/content",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *contentIn) (gin.H, error) {
			id := c.Param("id")
			return gin.H{"id": id}, m.pages.UpdateContent(c.Request.Context(), id, in.Content)
		},
	})
}
