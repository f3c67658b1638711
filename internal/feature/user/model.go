package user

import (
	"time"

	"cineverse/internal/domain"
)

// ProfileModel 资料文档（按用户 ID 存）
type ProfileModel struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	Email         string `gorm:"uniqueIndex;size:255;not null"`
	FirstName     string `gorm:"size:64;not null;default:''"`
	LastName      string `gorm:"size:64;not null;default:''"`
	Username      string `gorm:"size:64;index;not null;default:''"`
	BirthDate     string `gorm:"size:10;not null;default:''"`
	Address       string `gorm:"size:255"`
	PostalCode    string `gorm:"size:16"`
	City          string `gorm:"size:128"`
	Phone         string `gorm:"size:32"`
	Bio           string `gorm:"type:text"`
	EmailVerified bool   `gorm:"not null;default:false"`
	IsAdmin       bool   `gorm:"index;not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProfileModel) TableName() string { return "profiles" }

func FromRecord(u domain.UserRecord) ProfileModel {
	return ProfileModel{
		ID: u.ID, Email: u.Email,
		FirstName: u.FirstName, LastName: u.LastName, Username: u.Username, BirthDate: u.BirthDate,
		Address: u.Address, PostalCode: u.PostalCode, City: u.City, Phone: u.Phone, Bio: u.Bio,
		EmailVerified: u.EmailVerified, IsAdmin: u.IsAdmin,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (m ProfileModel) Record() domain.UserRecord {
	return domain.UserRecord{
		ID: m.ID, Email: m.Email,
		FirstName: m.FirstName, LastName: m.LastName, Username: m.Username, BirthDate: m.BirthDate,
		Address: m.Address, PostalCode: m.PostalCode, City: m.City, Phone: m.Phone, Bio: m.Bio,
		EmailVerified: m.EmailVerified, IsAdmin: m.IsAdmin,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

// PatchColumns patch -> 列更新 map（只包含非 nil 字段）
func PatchColumns(p domain.ProfilePatch) map[string]any {
	cols := map[string]any{}
	str := func(col string, v *string) {
		if v != nil {
			cols[col] = *v
		}
	}
	str("first_name", p.FirstName)
	str("last_name", p.LastName)
	str("username", p.Username)
	str("birth_date", p.BirthDate)
	str("address", p.Address)
	str("postal_code", p.PostalCode)
	str("city", p.City)
	str("phone", p.Phone)
	str("bio", p.Bio)
	if p.IsAdmin != nil {
		cols["is_admin"] = *p.IsAdmin
	}
	if p.EmailVerified != nil {
		cols["email_verified"] = *p.EmailVerified
	}
	if !p.UpdatedAt.IsZero() {
		cols["updated_at"] = p.UpdatedAt
	}
	return cols
}
