package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cineverse/internal/domain"
	"cineverse/internal/identity"
	"cineverse/internal/repo"
)

// UserService 后台用户管理；所有写操作都要求操作者是管理员
type UserService struct {
	profiles  *repo.ProfileRepo
	pages     *repo.PageRepo
	favorites *repo.FavoriteRepo
	accounts  *identity.Backend
	log       *zap.Logger
	now       func() time.Time
}

func NewUserService(
	profiles *repo.ProfileRepo,
	pages *repo.PageRepo,
	favorites *repo.FavoriteRepo,
	accounts *identity.Backend,
	log *zap.Logger,
) *UserService {
	return &UserService{
		profiles: profiles, pages: pages, favorites: favorites, accounts: accounts,
		log: log.Named("users"), now: time.Now,
	}
}

// CreateUserInput 后台建号
type CreateUserInput struct {
	Email    string
	Password string
	Profile  domain.ProfileFields
}

// Synthesis 后台概览
type Synthesis struct {
	domain.ProfileStats
	Pages        int64 `json:"pages"`
	VisiblePages int64 `json:"visiblePages"`
	Favorites    int64 `json:"favorites"`
}

func requireAdmin(actor *domain.UserRecord) error {
	if actor == nil || !actor.IsAdmin {
		return domain.ErrForbidden
	}
	return nil
}

func (s *UserService) List(ctx context.Context, q domain.ProfileQuery) ([]domain.UserRecord, int64, error) {
	return s.profiles.ListAll(ctx, q)
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.UserRecord, error) {
	u, err := s.profiles.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

// Update 管理员编辑任意资料（含 isAdmin）；emailVerified 只能走验证流程
func (s *UserService) Update(ctx context.Context, actor *domain.UserRecord, id string, p domain.ProfilePatch) (*domain.UserRecord, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	p.EmailVerified = nil
	if p.Empty() {
		return s.Get(ctx, id)
	}
	p.UpdatedAt = s.now()
	if err := s.profiles.Patch(ctx, id, p); err != nil {
		return nil, err
	}
	if p.IsAdmin != nil {
		s.log.Info("role changed",
			zap.String("actor", actor.ID), zap.String("uid", id), zap.Bool("isAdmin", *p.IsAdmin))
	}
	return s.Get(ctx, id)
}

// Create 建凭证 + 资料并发验证邮件；不影响操作者自己的会话
func (s *UserService) Create(ctx context.Context, actor *domain.UserRecord, in CreateUserInput) (*domain.UserRecord, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	id, err := s.accounts.CreateAccount(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	rec := domain.NewUserRecord(id, in.Email, in.Profile, s.now())
	if err := s.profiles.Put(ctx, rec); err != nil {
		s.log.Error("profile write failed after account creation", zap.String("uid", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrProfileInconsistent, err)
	}
	if err := s.accounts.SendVerification(ctx, id); err != nil {
		s.log.Warn("verification dispatch failed", zap.String("uid", id), zap.Error(err))
	}
	s.log.Info("user created by admin", zap.String("actor", actor.ID), zap.String("uid", id), zap.Bool("isAdmin", rec.IsAdmin))
	return &rec, nil
}

// TriggerReset 给指定用户发重置密码邮件
func (s *UserService) TriggerReset(ctx context.Context, actor *domain.UserRecord, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.accounts.SendPasswordReset(ctx, u.Email)
}

func (s *UserService) Synthesis(ctx context.Context) (Synthesis, error) {
	var out Synthesis
	stats, err := s.profiles.Stats(ctx)
	if err != nil {
		return out, err
	}
	out.ProfileStats = stats
	if out.Pages, out.VisiblePages, err = s.pages.Count(ctx); err != nil {
		return out, err
	}
	if out.Favorites, err = s.favorites.Count(ctx); err != nil {
		return out, err
	}
	return out, nil
}
