package repo

import (
	"context"

	"gorm.io/gorm"

	"cineverse/internal/domain"
	"cineverse/internal/feature/favorite"
)

// FavoriteRepo 收藏的增删查由 ez.Crud 挂载，这里只给后台概览计数
type FavoriteRepo struct{ db *gorm.DB }

func NewFavoriteRepo(db *gorm.DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

func (r *FavoriteRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&favorite.FavoriteModel{}).Count(&n).Error; err != nil {
		return 0, domain.Unavailable("favorite count", err)
	}
	return n, nil
}
