// Package identity 凭证存储：账号、会话 token、吊销、邮箱验证与重置密码。
// Backend 是服务端权威；Client 是单个会话的视角，实现 domain.CredentialStore。
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cineverse/internal/core/auth"
	"cineverse/internal/domain"
	"cineverse/internal/feature/account"
	"cineverse/internal/repo"
	"cineverse/pkg/utils"
)

// Mailer 邮件投递（生产实现把任务丢进队列）
type Mailer interface {
	SendVerification(ctx context.Context, to, link string) error
	SendPasswordReset(ctx context.Context, to, link string) error
}

type Config struct {
	PublicURL string
	VerifyTTL time.Duration
	ResetTTL  time.Duration
}

type Backend struct {
	creds    *repo.CredentialRepo
	profiles domain.ProfileStore
	jwt      *auth.JWTer
	rdb      *redis.Client
	mail     Mailer
	log      *zap.Logger
	cfg      Config
	validate *validator.Validate
}

func NewBackend(
	creds *repo.CredentialRepo,
	profiles domain.ProfileStore,
	jwter *auth.JWTer,
	rdb *redis.Client,
	mail Mailer,
	log *zap.Logger,
	cfg Config,
) *Backend {
	if cfg.VerifyTTL <= 0 {
		cfg.VerifyTTL = 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &Backend{
		creds: creds, profiles: profiles, jwt: jwter, rdb: rdb, mail: mail,
		log: log.Named("identity"), cfg: cfg, validate: validator.New(),
	}
}

func revokedKey(sid string) string  { return "revoked:" + sid }
func verifyKey(token string) string { return "verify:" + token }
func resetKey(token string) string  { return "reset:" + token }

// CreateAccount 建号；不签发会话
func (b *Backend) CreateAccount(ctx context.Context, email, password string) (string, error) {
	email = domain.NormalizeEmail(email)
	if err := b.validate.Var(email, "required,email,max=255"); err != nil {
		return "", domain.Invalid("email is not valid")
	}
	if err := utils.ValidatePassword(password); err != nil {
		return "", domain.Invalid(err.Error())
	}
	m := &account.CredentialModel{
		ID:           utils.NewID(),
		Email:        email,
		PasswordHash: utils.HashPassword(password),
	}
	if err := b.creds.Create(ctx, m); err != nil {
		return "", err
	}
	b.log.Info("account created", zap.String("uid", m.ID))
	return m.ID, nil
}

func (b *Backend) authenticate(ctx context.Context, email, password string) (*account.CredentialModel, error) {
	m, err := b.creds.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if m == nil || !utils.CheckPassword(password, m.PasswordHash) {
		return nil, domain.ErrInvalidCredential
	}
	return m, nil
}

// session 解析 token：签名/过期/吊销/账号仍存在
func (b *Backend) session(ctx context.Context, token string) (*auth.Claims, *account.CredentialModel, error) {
	claims, err := b.jwt.Parse(token)
	if err != nil {
		return nil, nil, domain.ErrInvalidToken
	}
	n, err := b.rdb.Exists(ctx, revokedKey(claims.SessionID())).Result()
	if err != nil {
		return nil, nil, domain.Unavailable("session revoked check", err)
	}
	if n > 0 {
		return nil, nil, domain.ErrInvalidToken
	}
	m, err := b.creds.FindByID(ctx, claims.UID)
	if err != nil {
		return nil, nil, err
	}
	if m == nil {
		return nil, nil, domain.ErrInvalidToken
	}
	return claims, m, nil
}

func (b *Backend) revoke(ctx context.Context, claims *auth.Claims) error {
	ttl := claims.TTL(time.Now())
	if ttl <= 0 {
		return nil
	}
	// 多留一分钟，覆盖 Parse 的 leeway
	if err := b.rdb.Set(ctx, revokedKey(claims.SessionID()), 1, ttl+time.Minute).Err(); err != nil {
		return domain.Unavailable("session revoke", err)
	}
	return nil
}

// SendVerification 生成一次性 token 并投递验证邮件
func (b *Backend) SendVerification(ctx context.Context, credentialID string) error {
	m, err := b.creds.FindByID(ctx, credentialID)
	if err != nil {
		return err
	}
	if m == nil {
		return domain.ErrNotFound
	}
	tok := utils.NewToken()
	if err := b.rdb.Set(ctx, verifyKey(tok), m.ID, b.cfg.VerifyTTL).Err(); err != nil {
		return domain.Unavailable("verify token", err)
	}
	link := b.cfg.PublicURL + "/api/v1/auth/verify/confirm?" + url.Values{"token": {tok}}.Encode()
	if err := b.mail.SendVerification(ctx, m.Email, link); err != nil {
		return domain.Unavailable("send verification", err)
	}
	return nil
}

// SendPasswordReset 未注册邮箱也返回 nil，不暴露账号是否存在
func (b *Backend) SendPasswordReset(ctx context.Context, email string) error {
	m, err := b.creds.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if m == nil {
		b.log.Debug("password reset for unknown email")
		return nil
	}
	tok := utils.NewToken()
	if err := b.rdb.Set(ctx, resetKey(tok), m.ID, b.cfg.ResetTTL).Err(); err != nil {
		return domain.Unavailable("reset token", err)
	}
	link := b.cfg.PublicURL + "/auth?" + url.Values{"resetToken": {tok}}.Encode()
	if err := b.mail.SendPasswordReset(ctx, m.Email, link); err != nil {
		return domain.Unavailable("send password reset", err)
	}
	return nil
}

// ConfirmVerification 消费验证 token，凭证与资料同时标记已验证
func (b *Backend) ConfirmVerification(ctx context.Context, token string) (string, error) {
	id, err := b.consume(ctx, verifyKey, token)
	if err != nil {
		return "", err
	}
	if err := b.creds.MarkVerified(ctx, id); err != nil {
		return "", err
	}
	yes := true
	err = b.profiles.Patch(ctx, id, domain.ProfilePatch{EmailVerified: &yes, UpdatedAt: time.Now()})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	b.log.Info("email verified", zap.String("uid", id))
	return id, nil
}

// ConfirmPasswordReset 先校验新密码，避免弱密码白白消耗 token
func (b *Backend) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if err := utils.ValidatePassword(newPassword); err != nil {
		return domain.Invalid(err.Error())
	}
	id, err := b.consume(ctx, resetKey, token)
	if err != nil {
		return err
	}
	if err := b.creds.UpdatePasswordHash(ctx, id, utils.HashPassword(newPassword)); err != nil {
		return err
	}
	b.log.Info("password reset", zap.String("uid", id))
	return nil
}

// consume 一次性 token：GETDEL 保证只能用一次
func (b *Backend) consume(ctx context.Context, key func(string) string, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", domain.ErrInvalidToken
	}
	id, err := b.rdb.GetDel(ctx, key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrInvalidToken
	}
	if err != nil {
		return "", domain.Unavailable("consume token", err)
	}
	return id, nil
}

func (b *Backend) reauthenticate(ctx context.Context, credentialID, password string) error {
	m, err := b.creds.FindByID(ctx, credentialID)
	if err != nil {
		return err
	}
	if m == nil {
		return domain.ErrNotAuthenticated
	}
	if !utils.CheckPassword(password, m.PasswordHash) {
		return domain.ErrInvalidCredential
	}
	return nil
}

func (b *Backend) setPassword(ctx context.Context, credentialID, password string) error {
	if err := utils.ValidatePassword(password); err != nil {
		return domain.Invalid(err.Error())
	}
	if err := b.creds.UpdatePasswordHash(ctx, credentialID, utils.HashPassword(password)); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}
