package domain

import (
	"context"
	"strings"
	"time"
)

// UserRecord 身份 + 资料的统一视图，业务层只消费它
type UserRecord struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Username      string    `json:"username"`
	BirthDate     string    `json:"birthDate"`
	Address       string    `json:"address,omitempty"`
	PostalCode    string    `json:"postalCode,omitempty"`
	City          string    `json:"city,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Bio           string    `json:"bio,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	IsAdmin       bool      `json:"isAdmin"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Role 由 IsAdmin 推导，仅用于日志/鉴权标签
func (u UserRecord) Role() string {
	if u.IsAdmin {
		return "admin"
	}
	return "user"
}

// ProfileFields 注册时提交的资料
type ProfileFields struct {
	FirstName  string `json:"firstName"  binding:"max=64"`
	LastName   string `json:"lastName"   binding:"max=64"`
	Username   string `json:"username"   binding:"max=64"`
	BirthDate  string `json:"birthDate"  binding:"omitempty,ymd"`
	Address    string `json:"address"    binding:"max=255"`
	PostalCode string `json:"postalCode" binding:"max=16"`
	City       string `json:"city"       binding:"max=128"`
	Phone      string `json:"phone"      binding:"max=32"`
	Bio        string `json:"bio"        binding:"max=2000"`
	IsAdmin    bool   `json:"-"`
}

// ProfilePatch 局部更新；nil 表示不改
type ProfilePatch struct {
	FirstName     *string `json:"firstName"  binding:"omitempty,max=64"`
	LastName      *string `json:"lastName"   binding:"omitempty,max=64"`
	Username      *string `json:"username"   binding:"omitempty,max=64"`
	BirthDate     *string `json:"birthDate"  binding:"omitempty,ymd"`
	Address       *string `json:"address"    binding:"omitempty,max=255"`
	PostalCode    *string `json:"postalCode" binding:"omitempty,max=16"`
	City          *string `json:"city"       binding:"omitempty,max=128"`
	Phone         *string `json:"phone"      binding:"omitempty,max=32"`
	Bio           *string `json:"bio"        binding:"omitempty,max=2000"`
	IsAdmin       *bool   `json:"isAdmin"`
	EmailVerified *bool   `json:"-"`

	UpdatedAt time.Time `json:"-"`
}

// Empty 没有任何字段需要写
func (p ProfilePatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Username == nil && p.BirthDate == nil &&
		p.Address == nil && p.PostalCode == nil && p.City == nil && p.Phone == nil && p.Bio == nil &&
		p.IsAdmin == nil && p.EmailVerified == nil
}

// Apply 把 patch 合并到 u（不触碰 ID/Email/CreatedAt）
func (p ProfilePatch) Apply(u *UserRecord) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.FirstName, p.FirstName)
	set(&u.LastName, p.LastName)
	set(&u.Username, p.Username)
	set(&u.BirthDate, p.BirthDate)
	set(&u.Address, p.Address)
	set(&u.PostalCode, p.PostalCode)
	set(&u.City, p.City)
	set(&u.Phone, p.Phone)
	set(&u.Bio, p.Bio)
	if p.IsAdmin != nil {
		u.IsAdmin = *p.IsAdmin
	}
	if p.EmailVerified != nil {
		u.EmailVerified = *p.EmailVerified
	}
	if !p.UpdatedAt.IsZero() {
		u.UpdatedAt = p.UpdatedAt
	}
}

// NewUserRecord 注册/后台建号时组装的初始档案
func NewUserRecord(id, email string, f ProfileFields, now time.Time) UserRecord {
	return UserRecord{
		ID:            id,
		Email:         NormalizeEmail(email),
		FirstName:     f.FirstName,
		LastName:      f.LastName,
		Username:      f.Username,
		BirthDate:     f.BirthDate,
		Address:       f.Address,
		PostalCode:    f.PostalCode,
		City:          f.City,
		Phone:         f.Phone,
		Bio:           f.Bio,
		EmailVerified: false,
		IsAdmin:       f.IsAdmin,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// ProfileQuery 后台列表条件
type ProfileQuery struct {
	Offset     int
	Limit      int
	Q          string // email/username/姓名 模糊搜
	AdminsOnly bool
}

// ProfileStats 后台概览计数
type ProfileStats struct {
	Users    int64 `json:"users"`
	Admins   int64 `json:"admins"`
	Verified int64 `json:"verified"`
}

// ProfileStore 按用户 ID 存取资料文档
type ProfileStore interface {
	Get(ctx context.Context, id string) (*UserRecord, error) // 不存在返回 nil, nil
	Put(ctx context.Context, u UserRecord) error
	Patch(ctx context.Context, id string, p ProfilePatch) error
	ListAll(ctx context.Context, q ProfileQuery) ([]UserRecord, int64, error)
}
