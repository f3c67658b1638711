package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"cineverse/internal/core/auth"
	"cineverse/internal/domain"
)

type delivery struct {
	ev     domain.CredentialEvent
	target int // 0 = 广播；否则只发给该订阅者（补发当前状态）
}

// Client 单个会话的凭证句柄。事件在独立的分发 goroutine 上按序投递，
// 队列无上限，发出方从不因订阅者阻塞。
type Client struct {
	b   *Backend
	log *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	cur     *domain.Credential
	claims  *auth.Claims
	token   string
	seq     uint64
	subs    map[int]func(domain.CredentialEvent)
	nextSub int
	queue   []delivery
	closed  bool
	onToken func(token string, expires time.Time)

	done chan struct{}
}

var _ domain.CredentialStore = (*Client)(nil)

// NewClient 新会话句柄；调用方订阅后再 Restore，才会有第一条事件
func (b *Backend) NewClient() *Client {
	c := &Client{
		b:    b,
		log:  b.log,
		subs: map[int]func(domain.CredentialEvent){},
		done: make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	go c.dispatch()
	return c
}

// OnTokenChange token 变化回调（登录签发 / 登出清空），用于写 cookie
func (c *Client) OnTokenChange(fn func(token string, expires time.Time)) {
	c.mu.Lock()
	c.onToken = fn
	c.mu.Unlock()
}

// Restore 用持久化的 token 恢复会话并发出首条事件；token 无效按未登录处理
func (c *Client) Restore(ctx context.Context, token string) {
	if token != "" {
		claims, m, err := c.b.session(ctx, token)
		switch {
		case err == nil:
			c.mu.Lock()
			c.cur = &domain.Credential{ID: m.ID, Email: m.Email}
			c.claims = claims
			c.token = token
			c.mu.Unlock()
		case errors.Is(err, domain.ErrInvalidToken):
			c.log.Debug("session token rejected")
		default:
			c.log.Warn("session restore failed", zap.Error(err))
		}
	}
	c.mu.Lock()
	c.emitLocked()
	c.mu.Unlock()
}

func (c *Client) CreateAccount(ctx context.Context, email, password string) (string, error) {
	return c.b.CreateAccount(ctx, email, password)
}

// Authenticate 校验密码并签发新会话；已有会话会被吊销替换
func (c *Client) Authenticate(ctx context.Context, email, password string) (string, error) {
	m, err := c.b.authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	tok, claims, err := c.b.jwt.Issue(m.ID)
	if err != nil {
		return "", domain.Unavailable("issue token", err)
	}

	c.mu.Lock()
	prev := c.claims
	c.cur = &domain.Credential{ID: m.ID, Email: m.Email}
	c.claims = claims
	c.token = tok
	c.emitLocked()
	fn := c.onToken
	c.mu.Unlock()

	if prev != nil {
		if err := c.b.revoke(ctx, prev); err != nil {
			c.log.Warn("revoke replaced session", zap.Error(err))
		}
	}
	if fn != nil {
		fn(tok, claims.ExpiresAt.Time)
	}
	c.log.Info("signed in", zap.String("uid", m.ID))
	return m.ID, nil
}

// EndSession 吊销当前 token；吊销失败时会话保持不变
func (c *Client) EndSession(ctx context.Context) error {
	c.mu.Lock()
	claims := c.claims
	c.mu.Unlock()

	if claims != nil {
		if err := c.b.revoke(ctx, claims); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.cur, c.claims, c.token = nil, nil, ""
	c.emitLocked()
	fn := c.onToken
	c.mu.Unlock()

	if fn != nil {
		fn("", time.Time{})
	}
	return nil
}

// Subscribe 已发过事件时，会立即（在分发 goroutine 上）补发一次当前状态
func (c *Client) Subscribe(fn func(domain.CredentialEvent)) func() {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = fn
	if c.seq > 0 {
		c.queue = append(c.queue, delivery{ev: c.eventLocked(), target: id})
		c.cond.Signal()
	}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) SendVerification(ctx context.Context, credentialID string) error {
	return c.b.SendVerification(ctx, credentialID)
}

func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	return c.b.SendPasswordReset(ctx, email)
}

func (c *Client) Reauthenticate(ctx context.Context, credentialID, password string) error {
	return c.b.reauthenticate(ctx, credentialID, password)
}

func (c *Client) SetPassword(ctx context.Context, credentialID, newPassword string) error {
	return c.b.setPassword(ctx, credentialID, newPassword)
}

func (c *Client) Current() (domain.Credential, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return domain.Credential{}, false
	}
	return *c.cur, true
}

// Token 当前会话 token（未登录为空）
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Refresh 重新校验当前 token 并再发一次事件（资料补全后用它重新解析）
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.Lock()
	tok := c.token
	c.mu.Unlock()

	if tok != "" {
		_, m, err := c.b.session(ctx, tok)
		switch {
		case errors.Is(err, domain.ErrInvalidToken):
			c.mu.Lock()
			if c.token == tok {
				c.cur, c.claims, c.token = nil, nil, ""
			}
			c.mu.Unlock()
		case err != nil:
			return err
		default:
			c.mu.Lock()
			if c.token == tok {
				c.cur = &domain.Credential{ID: m.ID, Email: m.Email}
			}
			c.mu.Unlock()
		}
	}

	c.mu.Lock()
	c.emitLocked()
	c.mu.Unlock()
	return nil
}

func (c *Client) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Close 投递完已排队事件后退出分发 goroutine
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cond.Broadcast()
	c.mu.Unlock()
	<-c.done
}

func (c *Client) eventLocked() domain.CredentialEvent {
	ev := domain.CredentialEvent{Seq: c.seq}
	if c.cur != nil {
		ev.CredentialID = c.cur.ID
	}
	return ev
}

// emitLocked 调用方持有 mu
func (c *Client) emitLocked() {
	c.seq++
	c.queue = append(c.queue, delivery{ev: c.eventLocked()})
	c.cond.Signal()
}

func (c *Client) dispatch() {
	defer close(c.done)
	for {
		c.mu.Lock()
		for len(c.queue) == 0 && !c.closed {
			c.cond.Wait()
		}
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		d := c.queue[0]
		c.queue[0] = delivery{}
		c.queue = c.queue[1:]

		var fns []func(domain.CredentialEvent)
		if d.target != 0 {
			if fn, ok := c.subs[d.target]; ok {
				fns = append(fns, fn)
			}
		} else {
			for _, fn := range c.subs {
				fns = append(fns, fn)
			}
		}
		c.mu.Unlock()

		for _, fn := range fns {
			fn(d.ev)
		}
	}
}
