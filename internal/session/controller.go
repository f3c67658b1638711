// Package session 会话控制器：把凭证事件翻译成 State，是所有身份变更操作的唯一入口。
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"cineverse/internal/domain"
)

var resolutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "session_resolutions_total", Help: "Credential events resolved by outcome"},
	[]string{"outcome"},
)

func init() { prometheus.MustRegister(resolutions) }

type Option func(*Controller)

// WithClock 注入时钟（updatedAt / createdAt）
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithResolveTimeout 单次资料解析的超时；0 不限制
func WithResolveTimeout(d time.Duration) Option {
	return func(c *Controller) { c.resolveTimeout = d }
}

type Controller struct {
	creds    domain.CredentialStore
	profiles domain.ProfileStore
	log      *zap.Logger

	now            func() time.Time
	resolveTimeout time.Duration

	mu           sync.RWMutex
	state        State
	seq          uint64 // 已处理的最后一条事件
	needsProfile bool
	resolveErr   error
	changed      chan struct{}
	subs         map[int]func(State)
	nextSub      int

	unsubscribe func()
}

// New 立即订阅凭证事件；在第一条事件处理完之前状态为 Loading
func New(creds domain.CredentialStore, profiles domain.ProfileStore, log *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		creds:    creds,
		profiles: profiles,
		log:      log.Named("session"),
		now:      time.Now,
		state:    State{Status: Loading},
		changed:  make(chan struct{}),
		subs:     map[int]func(State){},
	}
	for _, o := range opts {
		o(c)
	}
	c.unsubscribe = creds.Subscribe(c.handle)
	return c
}

// Close 取消订阅
func (c *Controller) Close() { c.unsubscribe() }

// State 当前状态副本
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// NeedsProfile 凭证有效但资料缺失（注册第二步失败）
func (c *Controller) NeedsProfile() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.needsProfile
}

// Subscribe 每次状态变化回调一次（在触发变化的 goroutine 上）
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Wait 阻塞到离开 Loading
func (c *Controller) Wait(ctx context.Context) error { return c.awaitSeq(ctx, 1) }

func (c *Controller) awaitSeq(ctx context.Context, seq uint64) error {
	for {
		c.mu.RLock()
		if c.seq >= seq {
			c.mu.RUnlock()
			return nil
		}
		ch := c.changed
		c.mu.RUnlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// handle 在凭证存储的分发 goroutine 上串行执行
func (c *Controller) handle(ev domain.CredentialEvent) {
	c.mu.RLock()
	stale := ev.Seq <= c.seq
	c.mu.RUnlock()
	if stale {
		return
	}

	next, needsProfile, err := c.resolve(ev.CredentialID)

	c.mu.Lock()
	if ev.Seq <= c.seq {
		c.mu.Unlock()
		return
	}
	c.seq = ev.Seq
	c.needsProfile = needsProfile
	c.resolveErr = err
	c.publishLocked(next)
}

func (c *Controller) resolve(id string) (State, bool, error) {
	if id == "" {
		resolutions.WithLabelValues("unauthenticated").Inc()
		return State{Status: Unauthenticated}, false, nil
	}

	ctx := context.Background()
	if c.resolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.resolveTimeout)
		defer cancel()
	}
	u, err := c.profiles.Get(ctx, id)
	if err != nil {
		resolutions.WithLabelValues("profile_error").Inc()
		c.log.Warn("profile fetch failed, treating as signed out", zap.String("uid", id), zap.Error(err))
		return State{Status: Unauthenticated}, false, err
	}
	if u == nil {
		resolutions.WithLabelValues("missing_profile").Inc()
		c.log.Warn("credential has no profile, treating as signed out", zap.String("uid", id))
		return State{Status: Unauthenticated}, true, domain.ErrProfileInconsistent
	}
	rec := *u
	rec.ID = id
	resolutions.WithLabelValues("authenticated").Inc()
	return State{Status: Authenticated, User: &rec}, false, nil
}

// publishLocked 调用方持有写锁；返回时已解锁
func (c *Controller) publishLocked(next State) {
	c.state = next
	close(c.changed)
	c.changed = make(chan struct{})
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	snap := c.state.clone()
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snap.clone())
	}
}

// settle 等凭证存储最近一次事件被处理完
func (c *Controller) settle(ctx context.Context) error {
	return c.awaitSeq(ctx, c.creds.Seq())
}

// SignUp 建号 → 写资料 → 发验证邮件 → 登录，并等待会话解析完成
func (c *Controller) SignUp(ctx context.Context, email, password string, f domain.ProfileFields) (*domain.UserRecord, error) {
	id, err := c.creds.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, err
	}
	rec := domain.NewUserRecord(id, email, f, c.now())
	if err := c.profiles.Put(ctx, rec); err != nil {
		c.log.Error("profile write failed after account creation", zap.String("uid", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrProfileInconsistent, err)
	}
	if err := c.creds.SendVerification(ctx, id); err != nil {
		c.log.Warn("verification dispatch failed", zap.String("uid", id), zap.Error(err))
	}
	if _, err := c.creds.Authenticate(ctx, email, password); err != nil {
		return nil, err
	}
	if err := c.settle(ctx); err != nil {
		return nil, err
	}
	return c.authenticatedUser()
}

// SignIn 资料缺失时返回 Unauthenticated 且不报错，见 NeedsProfile
func (c *Controller) SignIn(ctx context.Context, email, password string) (State, error) {
	if _, err := c.creds.Authenticate(ctx, email, password); err != nil {
		return c.State(), err
	}
	if err := c.settle(ctx); err != nil {
		return c.State(), err
	}
	return c.State(), nil
}

func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.creds.EndSession(ctx); err != nil {
		return err
	}
	return c.settle(ctx)
}

// ResetPassword 未注册的邮箱同样成功
func (c *Controller) ResetPassword(ctx context.Context, email string) error {
	return c.creds.SendPasswordReset(ctx, domain.NormalizeEmail(email))
}

func (c *Controller) VerifyEmail(ctx context.Context) error {
	st := c.State()
	if st.Status != Authenticated {
		return domain.ErrNotAuthenticated
	}
	return c.creds.SendVerification(ctx, st.User.ID)
}

// UpdateProfile 写入并本地合并，不重新拉取；普通用户不能改 isAdmin
func (c *Controller) UpdateProfile(ctx context.Context, p domain.ProfilePatch) (*domain.UserRecord, error) {
	st := c.State()
	if st.Status != Authenticated {
		return nil, domain.ErrNotAuthenticated
	}
	p.EmailVerified = nil
	if p.IsAdmin != nil && *p.IsAdmin == st.User.IsAdmin {
		p.IsAdmin = nil
	}
	if p.IsAdmin != nil && !st.User.IsAdmin {
		return nil, domain.ErrForbidden
	}
	if p.Empty() {
		return st.User, nil
	}
	p.UpdatedAt = c.now()
	if err := c.profiles.Patch(ctx, st.User.ID, p); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.state.Status != Authenticated || c.state.User.ID != st.User.ID {
		// 已写入；期间登出或换人则只返回写入结果，不并入当前状态
		c.mu.Unlock()
		saved := *st.User
		p.Apply(&saved)
		return &saved, nil
	}
	next := c.state.clone()
	p.Apply(next.User)
	out := *next.User
	c.publishLocked(next)
	return &out, nil
}

// ChangePassword 先用当前密码重新认证
func (c *Controller) ChangePassword(ctx context.Context, current, next string) error {
	st := c.State()
	if st.Status != Authenticated {
		return domain.ErrNotAuthenticated
	}
	if err := c.creds.Reauthenticate(ctx, st.User.ID, current); err != nil {
		return err
	}
	return c.creds.SetPassword(ctx, st.User.ID, next)
}

// CompleteProfile 给缺资料的凭证补写资料，再经事件通道重新解析
func (c *Controller) CompleteProfile(ctx context.Context, f domain.ProfileFields) (*domain.UserRecord, error) {
	cred, ok := c.creds.Current()
	if !ok {
		return nil, domain.ErrNotAuthenticated
	}
	existing, err := c.profiles.Get(ctx, cred.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrProfileExists
	}
	if err := c.profiles.Put(ctx, domain.NewUserRecord(cred.ID, cred.Email, f, c.now())); err != nil {
		return nil, err
	}
	if err := c.creds.Refresh(ctx); err != nil {
		return nil, err
	}
	if err := c.settle(ctx); err != nil {
		return nil, err
	}
	return c.authenticatedUser()
}

func (c *Controller) authenticatedUser() (*domain.UserRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.Status == Authenticated {
		u := *c.state.User
		return &u, nil
	}
	if c.resolveErr != nil {
		return nil, c.resolveErr
	}
	return nil, domain.ErrNotAuthenticated
}
