package domain

import (
	"context"
	"strings"
	"time"
)

type PageLocation string

const (
	LocationNavbar PageLocation = "navbar"
	LocationFooter PageLocation = "footer"
	LocationNone   PageLocation = "none"
)

func (l PageLocation) Valid() bool {
	switch l {
	case LocationNavbar, LocationFooter, LocationNone:
		return true
	}
	return false
}

// Page 后台维护的静态页面
type Page struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Path         string       `json:"path"`
	Content      string       `json:"content"`
	Location     PageLocation `json:"location"`
	IsVisible    bool         `json:"isVisible"`
	LastModified time.Time    `json:"lastModified"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// PageMeta 元数据更新（标题/路径/位置/可见性）
type PageMeta struct {
	Title     string
	Path      string
	Location  PageLocation
	IsVisible bool
}

// NormalizePagePath 补齐前导斜杠并去掉尾部斜杠
func NormalizePagePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimRight(p, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// PageIDFromPath "/about" -> "about"；多段路径的斜杠换成 "-"
func PageIDFromPath(p string) string {
	p = NormalizePagePath(p)
	return strings.ReplaceAll(strings.TrimPrefix(p, "/"), "/", "-")
}

type PageStore interface {
	Create(ctx context.Context, p Page) error
	Get(ctx context.Context, id string) (*Page, error)
	List(ctx context.Context) ([]Page, error)
	ListVisible(ctx context.Context, loc PageLocation) ([]Page, error)
	UpdateContent(ctx context.Context, id, content string, at time.Time) error
	// UpdateMeta 路径变化会改变 id（PageIDFromPath）
	UpdateMeta(ctx context.Context, id string, m PageMeta, at time.Time) error
	Count(ctx context.Context) (total, visible int64, err error)
}
