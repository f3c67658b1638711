package page

import (
	"time"

	"cineverse/internal/domain"
)

type PageModel struct {
	ID        string `gorm:"primaryKey;size:191"`
	Title     string `gorm:"size:255;not null"`
	Path      string `gorm:"uniqueIndex;size:191;not null"`
	Content   string `gorm:"type:text"`
	Location  string `gorm:"size:16;index;not null;default:'none'"`
	IsVisible bool   `gorm:"index;not null;default:false"`

	LastModified time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (PageModel) TableName() string { return "pages" }

func FromDomain(p domain.Page) PageModel {
	return PageModel{
		ID: p.ID, Title: p.Title, Path: p.Path, Content: p.Content,
		Location: string(p.Location), IsVisible: p.IsVisible,
		LastModified: p.LastModified, CreatedAt: p.CreatedAt,
	}
}

func (m PageModel) Domain() domain.Page {
	return domain.Page{
		ID: m.ID, Title: m.Title, Path: m.Path, Content: m.Content,
		Location: domain.PageLocation(m.Location), IsVisible: m.IsVisible,
		LastModified: m.LastModified, CreatedAt: m.CreatedAt,
	}
}
