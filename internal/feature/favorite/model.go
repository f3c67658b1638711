package favorite

import "time"

// FavoriteModel 收藏；通过 ez.Crud 按 UserID 归属挂载
type FavoriteModel struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string    `gorm:"type:varchar(36);not null;uniqueIndex:uk_fav_owner_media,priority:1" json:"userId"`
	MediaType  string    `gorm:"size:8;not null;uniqueIndex:uk_fav_owner_media,priority:2" json:"mediaType" binding:"required,oneof=movie tv"`
	MediaID    int64     `gorm:"not null;uniqueIndex:uk_fav_owner_media,priority:3" json:"mediaId" binding:"required,gt=0"`
	Title      string    `gorm:"size:255" json:"title" binding:"max=255"`
	PosterPath string    `gorm:"size:255" json:"posterPath" binding:"max=255"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (FavoriteModel) TableName() string { return "favorites" }
