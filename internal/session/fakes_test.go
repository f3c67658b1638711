package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cineverse/internal/domain"
)

type fakeAccount struct {
	id       string
	email    string
	password string
}

// fakeCreds 内存凭证存储；事件经缓冲通道在独立 goroutine 上按序投递
type fakeCreds struct {
	mu        sync.Mutex
	accounts  map[string]*fakeAccount
	cur       *domain.Credential
	seq       uint64
	subs      map[int]func(domain.CredentialEvent)
	nextSub   int
	events    chan domain.CredentialEvent
	verified  []string
	resets    []string
	verifyErr error
	nextID    int
}

func newFakeCreds() *fakeCreds {
	f := &fakeCreds{
		accounts: map[string]*fakeAccount{},
		subs:     map[int]func(domain.CredentialEvent){},
		events:   make(chan domain.CredentialEvent, 64),
	}
	go func() {
		for ev := range f.events {
			f.mu.Lock()
			fns := make([]func(domain.CredentialEvent), 0, len(f.subs))
			for _, fn := range f.subs {
				fns = append(fns, fn)
			}
			f.mu.Unlock()
			for _, fn := range fns {
				fn(ev)
			}
		}
	}()
	return f
}

func (f *fakeCreds) emitLocked() {
	f.seq++
	ev := domain.CredentialEvent{Seq: f.seq}
	if f.cur != nil {
		ev.CredentialID = f.cur.ID
	}
	f.events <- ev
}

// start 模拟进程启动时凭证存储给出的第一条通知
func (f *fakeCreds) start(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cur = nil
	for _, a := range f.accounts {
		if a.id == id {
			f.cur = &domain.Credential{ID: a.id, Email: a.email}
		}
	}
	f.emitLocked()
}

// raw 直接投递一条事件（不改变序号）
func (f *fakeCreds) raw(ev domain.CredentialEvent) { f.events <- ev }

func (f *fakeCreds) password(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[email]; ok {
		return a.password
	}
	return ""
}

func (f *fakeCreds) CreateAccount(_ context.Context, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = domain.NormalizeEmail(email)
	if _, ok := f.accounts[email]; ok {
		return "", domain.ErrAccountExists
	}
	f.nextID++
	id := fmt.Sprintf("uid-%d", f.nextID)
	f.accounts[email] = &fakeAccount{id: id, email: email, password: password}
	return id, nil
}

func (f *fakeCreds) Authenticate(_ context.Context, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[domain.NormalizeEmail(email)]
	if !ok || a.password != password {
		return "", domain.ErrInvalidCredential
	}
	f.cur = &domain.Credential{ID: a.id, Email: a.email}
	f.emitLocked()
	return a.id, nil
}

func (f *fakeCreds) EndSession(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cur = nil
	f.emitLocked()
	return nil
}

func (f *fakeCreds) Subscribe(fn func(domain.CredentialEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSub++
	id := f.nextSub
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fakeCreds) SendVerification(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return f.verifyErr
	}
	f.verified = append(f.verified, id)
	return nil
}

func (f *fakeCreds) SendPasswordReset(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; ok {
		f.resets = append(f.resets, email)
	}
	return nil
}

func (f *fakeCreds) account(id string) *fakeAccount {
	for _, a := range f.accounts {
		if a.id == id {
			return a
		}
	}
	return nil
}

func (f *fakeCreds) Reauthenticate(_ context.Context, id, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.account(id)
	if a == nil {
		return domain.ErrNotAuthenticated
	}
	if a.password != password {
		return domain.ErrInvalidCredential
	}
	return nil
}

func (f *fakeCreds) SetPassword(_ context.Context, id, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.account(id)
	if a == nil {
		return domain.ErrNotFound
	}
	a.password = password
	return nil
}

func (f *fakeCreds) Current() (domain.Credential, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cur == nil {
		return domain.Credential{}, false
	}
	return *f.cur, true
}

func (f *fakeCreds) Refresh(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitLocked()
	return nil
}

func (f *fakeCreds) Seq() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}

// fakeProfiles 内存资料存储
type fakeProfiles struct {
	mu      sync.Mutex
	docs    map[string]domain.UserRecord
	gets    int
	getErr  error
	putErr  error
	blockCh chan struct{} // 非空时 Get 阻塞到 ctx 结束或通道关闭
	onPatch func()        // Patch 写入后调用（锁外）
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{docs: map[string]domain.UserRecord{}}
}

func (p *fakeProfiles) Get(ctx context.Context, id string) (*domain.UserRecord, error) {
	p.mu.Lock()
	p.gets++
	block, getErr := p.blockCh, p.getErr
	p.mu.Unlock()
	if block != nil {
		select {
		case <-ctx.Done():
			return nil, domain.Unavailable("profile get", ctx.Err())
		case <-block:
		}
	}
	if getErr != nil {
		return nil, getErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.docs[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (p *fakeProfiles) Put(_ context.Context, u domain.UserRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.putErr != nil {
		return p.putErr
	}
	p.docs[u.ID] = u
	return nil
}

func (p *fakeProfiles) Patch(_ context.Context, id string, patch domain.ProfilePatch) error {
	p.mu.Lock()
	u, ok := p.docs[id]
	if !ok {
		p.mu.Unlock()
		return domain.ErrNotFound
	}
	patch.Apply(&u)
	p.docs[id] = u
	hook := p.onPatch
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (p *fakeProfiles) ListAll(context.Context, domain.ProfileQuery) ([]domain.UserRecord, int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.UserRecord, 0, len(p.docs))
	for _, u := range p.docs {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (p *fakeProfiles) getCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gets
}

func (p *fakeProfiles) set(fn func(p *fakeProfiles)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

// stepClock 每次调用前进一分钟
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}

var errBoom = errors.New("boom")
