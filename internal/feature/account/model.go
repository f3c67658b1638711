package account

import "time"

// CredentialModel 登录凭证（与资料分表存放）
type CredentialModel struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	Email         string `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash  string `gorm:"size:100;not null"`
	EmailVerified bool   `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (CredentialModel) TableName() string { return "credentials" }
