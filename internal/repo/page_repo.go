package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"cineverse/internal/core/cache"
	"cineverse/internal/domain"
	"cineverse/internal/feature/page"
)

// PageRepo 静态页面；公开读（按 id / 按位置）走缓存
type PageRepo struct {
	db      *gorm.DB
	pages   cache.Doc[domain.Page]
	visible cache.Doc[[]domain.Page] // 按位置
}

var _ domain.PageStore = (*PageRepo)(nil)

func NewPageRepo(db *gorm.DB, c *cache.Cache, ttl time.Duration) *PageRepo {
	return &PageRepo{
		db:      db,
		pages:   cache.NewDoc[domain.Page](c, ttl, "page"),
		visible: cache.NewDoc[[]domain.Page](c, ttl, "pages", "visible"),
	}
}

func (r *PageRepo) Create(ctx context.Context, p domain.Page) error {
	m := page.FromDomain(p)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if IsDupKey(err) {
			return fmt.Errorf("%w: page %s already exists", domain.ErrInvalidInput, p.Path)
		}
		return domain.Unavailable("page create", err)
	}
	r.invalidate(ctx, p.ID)
	return nil
}

func (r *PageRepo) Get(ctx context.Context, id string) (*domain.Page, error) {
	load := func(ctx context.Context) (*domain.Page, error) {
		var m page.PageModel
		err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, domain.Unavailable("page get", err)
		}
		p := m.Domain()
		return &p, nil
	}
	return r.pages.Get(ctx, id, load)
}

// List 后台全量（按路径排序）
func (r *PageRepo) List(ctx context.Context) ([]domain.Page, error) {
	return r.find(ctx, r.db.WithContext(ctx).Order("path"))
}

func (r *PageRepo) ListVisible(ctx context.Context, loc domain.PageLocation) ([]domain.Page, error) {
	load := func(ctx context.Context) (*[]domain.Page, error) {
		ps, err := r.find(ctx, r.db.WithContext(ctx).
			Where("is_visible = ? AND location = ?", true, string(loc)).
			Order("title"))
		if err != nil {
			return nil, err
		}
		return &ps, nil
	}
	out, err := r.visible.Get(ctx, string(loc), load)
	if err != nil || out == nil {
		return nil, err
	}
	return *out, nil
}

func (r *PageRepo) UpdateContent(ctx context.Context, id, content string, at time.Time) error {
	return r.updates(ctx, id, map[string]any{"content": content, "last_modified": at})
}

// UpdateMeta 路径推导出的 id 变了就在事务里换主键（删旧建新）
func (r *PageRepo) UpdateMeta(ctx context.Context, id string, m domain.PageMeta, at time.Time) error {
	newID := domain.PageIDFromPath(m.Path)
	if newID == id {
		return r.updates(ctx, id, map[string]any{
			"title":         m.Title,
			"path":          m.Path,
			"location":      string(m.Location),
			"is_visible":    m.IsVisible,
			"last_modified": at,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old page.PageModel
		if err := tx.First(&old, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&page.PageModel{}, "id = ?", id).Error; err != nil {
			return err
		}
		moved := old
		moved.ID, moved.Title, moved.Path = newID, m.Title, m.Path
		moved.Location, moved.IsVisible, moved.LastModified = string(m.Location), m.IsVisible, at
		return tx.Create(&moved).Error
	})
	r.invalidate(ctx, id)
	r.invalidate(ctx, newID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case IsDupKey(err):
		return fmt.Errorf("%w: page path already taken", domain.ErrInvalidInput)
	}
	return domain.Unavailable("page rename", err)
}

func (r *PageRepo) Count(ctx context.Context) (total, visible int64, err error) {
	if err = r.db.WithContext(ctx).Model(&page.PageModel{}).Count(&total).Error; err != nil {
		return 0, 0, domain.Unavailable("page count", err)
	}
	if err = r.db.WithContext(ctx).Model(&page.PageModel{}).Where("is_visible = ?", true).Count(&visible).Error; err != nil {
		return 0, 0, domain.Unavailable("page count", err)
	}
	return total, visible, nil
}

func (r *PageRepo) find(ctx context.Context, tx *gorm.DB) ([]domain.Page, error) {
	var ms []page.PageModel
	if err := tx.Find(&ms).Error; err != nil {
		return nil, domain.Unavailable("page list", err)
	}
	out := make([]domain.Page, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Domain())
	}
	return out, nil
}

func (r *PageRepo) updates(ctx context.Context, id string, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&page.PageModel{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		if IsDupKey(res.Error) {
			return fmt.Errorf("%w: page path already taken", domain.ErrInvalidInput)
		}
		return domain.Unavailable("page update", res.Error)
	}
	r.invalidate(ctx, id)
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// 页面写操作同时影响 id 缓存和各位置的可见列表
func (r *PageRepo) invalidate(ctx context.Context, id string) {
	_ = r.pages.Invalidate(ctx, id)
	_ = r.visible.Invalidate(ctx,
		string(domain.LocationNavbar), string(domain.LocationFooter), string(domain.LocationNone))
}
