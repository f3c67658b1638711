package domain

import "context"

// Credential 当前会话持有的账号凭证
type Credential struct {
	ID    string
	Email string
}

// CredentialEvent 会话变化通知；CredentialID 为空表示未登录。
// Seq 在同一个 CredentialStore 上严格递增。
type CredentialEvent struct {
	Seq          uint64
	CredentialID string
}

// CredentialStore 认证后端（单个客户端会话视角）
type CredentialStore interface {
	// CreateAccount 只建号，不开启会话
	CreateAccount(ctx context.Context, email, password string) (string, error)
	// Authenticate 成功后开启会话并发出事件
	Authenticate(ctx context.Context, email, password string) (string, error)
	// EndSession 作废会话并发出空事件
	EndSession(ctx context.Context) error
	// Subscribe 订阅事件；已解析过的会话会立即补发一次当前状态
	Subscribe(fn func(CredentialEvent)) (unsubscribe func())
	SendVerification(ctx context.Context, credentialID string) error
	SendPasswordReset(ctx context.Context, email string) error
	Reauthenticate(ctx context.Context, credentialID, password string) error
	SetPassword(ctx context.Context, credentialID, newPassword string) error

	// Current 当前会话凭证
	Current() (Credential, bool)
	// Refresh 重新校验当前会话并再发一次事件
	Refresh(ctx context.Context) error
	// Seq 最近一次已发出事件的序号
	Seq() uint64
}
