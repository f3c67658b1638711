package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"cineverse/internal/core/cache"
	"cineverse/internal/domain"
	"cineverse/internal/feature/user"
)

// ProfileRepo domain.ProfileStore 的 gorm 实现；读走 redis，写后失效
type ProfileRepo struct {
	db   *gorm.DB
	docs cache.Doc[domain.UserRecord]
}

var _ domain.ProfileStore = (*ProfileRepo)(nil)

func NewProfileRepo(db *gorm.DB, c *cache.Cache, ttl time.Duration) *ProfileRepo {
	return &ProfileRepo{db: db, docs: cache.NewDoc[domain.UserRecord](c, ttl, "profile")}
}

func (r *ProfileRepo) Get(ctx context.Context, id string) (*domain.UserRecord, error) {
	load := func(ctx context.Context) (*domain.UserRecord, error) {
		var m user.ProfileModel
		err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, domain.Unavailable("profile get", err)
		}
		u := m.Record()
		return &u, nil
	}
	return r.docs.Get(ctx, id, load)
}

// Put 整体写入（按主键 upsert）
func (r *ProfileRepo) Put(ctx context.Context, u domain.UserRecord) error {
	m := user.FromRecord(u)
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		if IsDupKey(err) {
			return domain.ErrProfileExists
		}
		return domain.Unavailable("profile put", err)
	}
	r.invalidate(ctx, u.ID)
	return nil
}

func (r *ProfileRepo) Patch(ctx context.Context, id string, p domain.ProfilePatch) error {
	cols := user.PatchColumns(p)
	if len(cols) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&user.ProfileModel{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return domain.Unavailable("profile patch", res.Error)
	}
	r.invalidate(ctx, id)
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProfileRepo) ListAll(ctx context.Context, q domain.ProfileQuery) ([]domain.UserRecord, int64, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	tx := r.db.WithContext(ctx).Model(&user.ProfileModel{})
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(email) LIKE ? OR LOWER(username) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
			like, like, like, like)
	}
	if q.AdminsOnly {
		tx = tx.Where("is_admin = ?", true)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, domain.Unavailable("profile count", err)
	}
	var ms []user.ProfileModel
	if err := tx.Order("created_at desc").Offset(q.Offset).Limit(q.Limit).Find(&ms).Error; err != nil {
		return nil, 0, domain.Unavailable("profile list", err)
	}
	out := make([]domain.UserRecord, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Record())
	}
	return out, total, nil
}

// Stats 后台概览计数
func (r *ProfileRepo) Stats(ctx context.Context) (domain.ProfileStats, error) {
	var s domain.ProfileStats
	base := func() *gorm.DB { return r.db.WithContext(ctx).Model(&user.ProfileModel{}) }
	if err := base().Count(&s.Users).Error; err != nil {
		return s, domain.Unavailable("profile stats", err)
	}
	if err := base().Where("is_admin = ?", true).Count(&s.Admins).Error; err != nil {
		return s, domain.Unavailable("profile stats", err)
	}
	if err := base().Where("email_verified = ?", true).Count(&s.Verified).Error; err != nil {
		return s, domain.Unavailable("profile stats", err)
	}
	return s, nil
}

// 缓存删除失败只会让读到旧值直到 TTL 过期
func (r *ProfileRepo) invalidate(ctx context.Context, id string) {
	_ = r.docs.Invalidate(ctx, id)
}
