package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cineverse/internal/feature/favorite"
	"cineverse/internal/transport/http/ez"
	mdw "cineverse/internal/transport/http/middleware"
)

// favoritesModule /me/favorites：按 UserID 归属的收藏，不支持修改
type favoritesModule struct{ db *gorm.DB }

func (favoritesModule) Priority() int { return 30 }

func (m favoritesModule) MountAPI(api *gin.RouterGroup) {
	g := api.Group("/me")
	g.Use(mdw.RequireSession())
	ez.Crud(ez.CrudConfig[favorite.FavoriteModel]{
		DB:          m.db,
		Group:       g,
		Path:        "/favorites",
		New:         func() *favorite.FavoriteModel { return &favorite.FavoriteModel{} },
		AllowCreate: true,
		AllowList:   true,
		AllowGet:    true,
		AllowDelete: true,
		OwnerField:  "UserID",
		OrderBy:     "CreatedAt",
		OrderByDesc: true,
		DupMsg:      "already in favorites",
		Hooks: ez.CrudHooks[favorite.FavoriteModel]{
			// ?mediaType=movie|tv
			ScopeList: func(c *gin.Context, q *gorm.DB) *gorm.DB {
				if t := c.Query("mediaType"); t != "" {
					q = q.Where("media_type = ?", t)
				}
				return q
			},
		},
	})
}
