package service

import (
	"context"
	"strings"
	"time"

	"cineverse/internal/access"
	"cineverse/internal/domain"
	"cineverse/internal/repo"
)

// PageService 静态页面
type PageService struct {
	store *repo.PageRepo
	now   func() time.Time
}

func NewPageService(store *repo.PageRepo) *PageService {
	return &PageService{store: store, now: time.Now}
}

type PageInput struct {
	Title     string
	Path      string
	Content   string
	Location  domain.PageLocation
	IsVisible bool
}

// checkPath 页面只占一级路径（导航按 /:pageId 匹配），且不能与路由表冲突
func checkPath(p string) (string, error) {
	p = domain.NormalizePagePath(p)
	if p == "/" {
		return "", domain.Invalid("page path is required")
	}
	seg := strings.TrimPrefix(p, "/")
	if strings.Contains(seg, "/") {
		return "", domain.Invalid("page path " + p + " must be a single segment")
	}
	if access.Reserved(seg) {
		return "", domain.Invalid("page path " + p + " is reserved")
	}
	return p, nil
}

func checkLocation(l domain.PageLocation) (domain.PageLocation, error) {
	if l == "" {
		return domain.LocationNone, nil
	}
	if !l.Valid() {
		return "", domain.Invalid("unknown page location " + string(l))
	}
	return l, nil
}

// Create id 由路径推导：去掉前导斜杠，其余斜杠换成 "-"
func (s *PageService) Create(ctx context.Context, in PageInput) (*domain.Page, error) {
	path, err := checkPath(in.Path)
	if err != nil {
		return nil, err
	}
	loc, err := checkLocation(in.Location)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, domain.Invalid("page title is required")
	}
	now := s.now()
	p := domain.Page{
		ID:           domain.PageIDFromPath(path),
		Title:        strings.TrimSpace(in.Title),
		Path:         path,
		Content:      in.Content,
		Location:     loc,
		IsVisible:    in.IsVisible,
		LastModified: now,
		CreatedAt:    now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PageService) UpdateContent(ctx context.Context, id, content string) error {
	return s.store.UpdateContent(ctx, id, content, s.now())
}

// UpdateMeta 改路径时 id 随之改变，返回更新后的页面
func (s *PageService) UpdateMeta(ctx context.Context, id string, m domain.PageMeta) (*domain.Page, error) {
	path, err := checkPath(m.Path)
	if err != nil {
		return nil, err
	}
	loc, err := checkLocation(m.Location)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(m.Title) == "" {
		return nil, domain.Invalid("page title is required")
	}
	m.Path, m.Location, m.Title = path, loc, strings.TrimSpace(m.Title)
	if err := s.store.UpdateMeta(ctx, id, m, s.now()); err != nil {
		return nil, err
	}
	p, err := s.store.Get(ctx, domain.PageIDFromPath(path))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *PageService) List(ctx context.Context) ([]domain.Page, error) { return s.store.List(ctx) }

// GetVisible 公开读取；隐藏页面与不存在一样
func (s *PageService) GetVisible(ctx context.Context, id string) (*domain.Page, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.IsVisible {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// Nav 导航栏/页脚链接
func (s *PageService) Nav(ctx context.Context, loc domain.PageLocation) ([]domain.Page, error) {
	if !loc.Valid() {
		return nil, domain.Invalid("unknown page location " + string(loc))
	}
	return s.store.ListVisible(ctx, loc)
}
