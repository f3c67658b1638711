package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"cineverse/internal/domain"
	"cineverse/internal/feature/account"
	"cineverse/internal/feature/user"
)

type CredentialRepo struct{ db *gorm.DB }

func NewCredentialRepo(db *gorm.DB) *CredentialRepo { return &CredentialRepo{db: db} }

// Create 邮箱唯一冲突 → domain.ErrAccountExists
func (r *CredentialRepo) Create(ctx context.Context, m *account.CredentialModel) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if IsDupKey(err) {
			return domain.ErrAccountExists
		}
		return domain.Unavailable("credential create", err)
	}
	return nil
}

func (r *CredentialRepo) FindByID(ctx context.Context, id string) (*account.CredentialModel, error) {
	var m account.CredentialModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable("credential get", err)
	}
	return &m, nil
}

func (r *CredentialRepo) FindByEmail(ctx context.Context, email string) (*account.CredentialModel, error) {
	var m account.CredentialModel
	err := r.db.WithContext(ctx).First(&m, "email = ?", domain.NormalizeEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable("credential get", err)
	}
	return &m, nil
}

func (r *CredentialRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.update(ctx, id, "password_hash", hash)
}

func (r *CredentialRepo) MarkVerified(ctx context.Context, id string) error {
	return r.update(ctx, id, "email_verified", true)
}

func (r *CredentialRepo) update(ctx context.Context, id, col string, v any) error {
	res := r.db.WithContext(ctx).Model(&account.CredentialModel{}).Where("id = ?", id).Update(col, v)
	if res.Error != nil {
		return domain.Unavailable("credential update", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListOrphans 有凭证但没有资料的账号（注册第二步失败留下的）
func (r *CredentialRepo) ListOrphans(ctx context.Context, limit int) ([]account.CredentialModel, error) {
	if limit <= 0 {
		limit = 500
	}
	creds := account.CredentialModel{}.TableName()
	profiles := user.ProfileModel{}.TableName()
	var out []account.CredentialModel
	err := r.db.WithContext(ctx).
		Model(&account.CredentialModel{}).
		Select(creds+".*").
		Joins("LEFT JOIN "+profiles+" p ON p.id = "+creds+".id").
		Where("p.id IS NULL").
		Order(creds + ".created_at").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, domain.Unavailable("credential orphans", err)
	}
	return out, nil
}
