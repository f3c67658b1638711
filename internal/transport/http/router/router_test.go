package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cineverse/internal/core/auth"
	"cineverse/internal/core/config"
	"cineverse/internal/domain"
	"cineverse/internal/identity"
	"cineverse/internal/repo"
	"cineverse/internal/service"
	"cineverse/internal/testutil"
)

const cookieName = "cv_session"

type outbox struct {
	mu     sync.Mutex
	verify map[string]string
	reset  map[string]string
}

func (o *outbox) SendVerification(_ context.Context, to, link string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verify[to] = link
	return nil
}

func (o *outbox) SendPasswordReset(_ context.Context, to, link string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reset[to] = link
	return nil
}

func (o *outbox) link(kind map[string]string, to string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return kind[to]
}

type env struct {
	api, admin *gin.Engine
	deps       Deps
	mail       *outbox
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	c, _ := testutil.Cache(t)
	cfg := &config.Config{
		Session: config.Session{CookieName: cookieName},
		Limits:  config.Limits{MaxConcurrent: 50, MaxBodyMB: 1, TimeoutSec: 5},
	}
	mail := &outbox{verify: map[string]string{}, reset: map[string]string{}}
	profiles := repo.NewProfileRepo(db, c, time.Minute)
	creds := repo.NewCredentialRepo(db)
	pageRepo := repo.NewPageRepo(db, c, time.Minute)
	jwter := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "test", TTL: time.Hour}
	backend := identity.NewBackend(creds, profiles, jwter, c.RDB, mail, zap.NewNop(),
		identity.Config{PublicURL: "http://cv.test"})

	d := Deps{
		Log:      zap.NewNop(),
		Cfg:      cfg,
		DB:       db,
		Backend:  backend,
		Profiles: profiles,
		Users:    service.NewUserService(profiles, pageRepo, repo.NewFavoriteRepo(db), backend, zap.NewNop()),
		Pages:    service.NewPageService(pageRepo),
	}
	return &env{api: NewAPIEngine(d), admin: NewAdminEngine(d), deps: d, mail: mail}
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func call(t *testing.T, h http.Handler, method, path string, body any, token string) (envelope, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if w.Code == http.StatusOK && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return env, w
}

type sessionBody struct {
	Status       string             `json:"status"`
	User         *domain.UserRecord `json:"user"`
	NeedsProfile bool               `json:"needsProfile"`
	Token        string             `json:"token"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func (e *env) signUp(t *testing.T, email string, extra map[string]any) sessionBody {
	t.Helper()
	body := map[string]any{"email": email, "password": "secret1", "firstName": "Ada"}
	for k, v := range extra {
		body[k] = v
	}
	res, _ := call(t, e.api, http.MethodPost, "/api/v1/auth/signup", body, "")
	require.Equal(t, 0, res.Code, res.Msg)
	return decode[sessionBody](t, res.Data)
}

// adminToken 直接在存储里造一个管理员，再走登录接口拿 token
func (e *env) adminToken(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	id, err := e.deps.Backend.CreateAccount(ctx, "root@cv.test", "secret1")
	require.NoError(t, err)
	require.NoError(t, e.deps.Profiles.Put(ctx, domain.NewUserRecord(id, "root@cv.test",
		domain.ProfileFields{FirstName: "Root", IsAdmin: true}, time.Now())))

	res, _ := call(t, e.api, http.MethodPost, "/api/v1/auth/signin",
		map[string]any{"email": "root@cv.test", "password": "secret1"}, "")
	require.Equal(t, 0, res.Code, res.Msg)
	s := decode[sessionBody](t, res.Data)
	require.True(t, s.User.IsAdmin)
	return s.Token
}

func TestSignUpSignOutRevokesToken(t *testing.T) {
	e := newEnv(t)

	res, w := call(t, e.api, http.MethodPost, "/api/v1/auth/signup",
		map[string]any{"email": "Ada@Example.com", "password": "secret1", "firstName": "Ada"}, "")
	require.Equal(t, 0, res.Code, res.Msg)
	s := decode[sessionBody](t, res.Data)
	assert.Equal(t, "authenticated", s.Status)
	assert.Equal(t, "ada@example.com", s.User.Email)
	assert.False(t, s.User.EmailVerified)
	require.NotEmpty(t, s.Token)

	var cookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == cookieName {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, s.Token, cookie.Value)

	res, _ = call(t, e.api, http.MethodGet, "/api/v1/me", nil, s.Token)
	require.Equal(t, 0, res.Code, res.Msg)
	assert.Equal(t, "Ada", decode[domain.UserRecord](t, res.Data).FirstName)

	res, w = call(t, e.api, http.MethodPost, "/api/v1/auth/signout", nil, s.Token)
	require.Equal(t, 0, res.Code, res.Msg)
	assert.Equal(t, "unauthenticated", decode[sessionBody](t, res.Data).Status)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == cookieName {
			assert.Empty(t, ck.Value)
			assert.Negative(t, ck.MaxAge)
		}
	}

	res, _ = call(t, e.api, http.MethodGet, "/api/v1/me", nil, s.Token)
	assert.Equal(t, 401, res.Code)
}

func TestSignUpDuplicateAndBadInput(t *testing.T) {
	e := newEnv(t)
	e.signUp(t, "a@b.com", nil)

	res, _ := call(t, e.api, http.MethodPost, "/api/v1/auth/signup",
		map[string]any{"email": "A@B.com", "password": "secret1"}, "")
	assert.Equal(t, 400, res.Code)

	res, _ = call(t, e.api, http.MethodPost, "/api/v1/auth/signup",
		map[string]any{"email": "c@b.com", "password": "123"}, "")
	assert.Equal(t, 400, res.Code, "weak password")

	res, _ = call(t, e.api, http.MethodPost, "/api/v1/auth/signup",
		map[string]any{"email": "d@b.com", "password": "secret1", "birthDate": "12/31/1990"}, "")
	assert.Equal(t, 400, res.Code, "birth date must be YYYY-MM-DD")

	res, _ = call(t, e.api, http.MethodPost, "/api/v1/auth/signin",
		map[string]any{"email": "a@b.com", "password": "wrong-pass"}, "")
	assert.Equal(t, 401, res.Code)
}

func TestSelfServiceCannotGrantAdmin(t *testing.T) {
	e := newEnv(t)
	s := e.signUp(t, "a@b.com", map[string]any{"isAdmin": true})
	assert.False(t, s.User.IsAdmin)

	res, _ := call(t, e.api, http.MethodPatch, "/api/v1/me", map[string]any{"isAdmin": true}, s.Token)
	assert.Equal(t, 403, res.Code)

	res, _ = call(t, e.api, http.MethodPatch, "/api/v1/me", map[string]any{"city": "Lyon"}, s.Token)
	require.Equal(t, 0, res.Code, res.Msg)
	assert.Equal(t, "Lyon", decode[domain.UserRecord](t, res.Data).City)

	res, _ = call(t, e.api, http.MethodGet, "/api/v1/routes", nil, s.Token)
	require.Equal(t, 0, res.Code)
	assert.Equal(t, "user", decode[struct{ Table string }](t, res.Data).Table)
}

func TestAdminPromotionSelectsAdminTable(t *testing.T) {
	e := newEnv(t)
	admin := e.adminToken(t)
	s := e.signUp(t, "user@b.com", nil)

	res, _ := call(t, e.admin, http.MethodPut, "/admin/v1/users/"+s.User.ID, map[string]any{"isAdmin": true}, admin)
	require.Equal(t, 0, res.Code, res.Msg)
	assert.True(t, decode[domain.UserRecord](t, res.Data).IsAdmin)

	res, _ = call(t, e.api, http.MethodGet, "/api/v1/routes", nil, s.Token)
	require.Equal(t, 0, res.Code)
	assert.Equal(t, "admin", decode[struct{ Table string }](t, res.Data).Table)

	res, _ = call(t, e.admin, http.MethodGet, "/admin/v1/users?admins=true", nil, admin)
	require.Equal(t, 0, res.Code, res.Msg)
	assert.EqualValues(t, 2, decode[struct{ Total int64 }](t, res.Data).Total)
}

func TestAdminAPIRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	s := e.signUp(t, "user@b.com", nil)

	res, _ := call(t, e.admin, http.MethodGet, "/admin/v1/users", nil, "")
	assert.Equal(t, 401, res.Code)
	res, _ = call(t, e.admin, http.MethodGet, "/admin/v1/users", nil, s.Token)
	assert.Equal(t, 403, res.Code)
	res, _ = call(t, e.admin, http.MethodGet, "/admin/v1/synthesis", nil, "not-a-jwt")
	assert.Equal(t, 401, res.Code)
}

func TestAdminCreatesUserAndTriggersReset(t *testing.T) {
	e := newEnv(t)
	admin := e.adminToken(t)

	res, _ := call(t, e.admin, http.MethodPost, "/admin/v1/users", map[string]any{
		"email": "new@b.com", "password": "secret1", "firstName": "Neo", "isAdmin": true,
	}, admin)
	require.Equal(t, 0, res.Code, res.Msg)
	u := decode[domain.UserRecord](t, res.Data)
	assert.True(t, u.IsAdmin)
	assert.NotEmpty(t, e.mail.link(e.mail.verify, "new@b.com"))

	res, _ = call(t, e.admin, http.MethodPost, "/admin/v1/users/"+u.ID+"/password-reset", nil, admin)
	require.Equal(t, 0, res.Code, res.Msg)
	assert.NotEmpty(t, e.mail.link(e.mail.reset, "new@b.com"))

	res, _ = call(t, e.admin, http.MethodGet, "/admin/v1/users/ghost", nil, admin)
	assert.Equal(t, 404, res.Code)

	res, _ = call(t, e.admin, http.MethodGet, "/admin/v1/synthesis", nil, admin)
	require.Equal(t, 0, res.Code)
	syn := decode[service.Synthesis](t, res.Data)
	assert.EqualValues(t, 2, syn.Users)
	assert.EqualValues(t, 2, syn.Admins)
}

func TestPasswordResetFlow(t *testing.T) {
	e := newEnv(t)
	e.signUp(t, "a@b.com", nil)

	res, _ := call(t, e.api, http.MethodPost, "/api/v1/auth/password/reset", map[string]any{"email": "nobody@b.com"}, "")
	require.Equal(t, 0, res.Code, "unknown email still succeeds")
	assert.Empty(t, e.mail.link(e.mail.reset, "nobody@b.com"))

	res, _ = call(t, e.api, http.MethodPost, "/api/v1/auth/password/reset", map[string]any{"email": "A@b.com"}, "")
	require.Equal(t, 0, res.Code)
	link, err := url.Parse(e.mail.link(e.mail.reset, "a@b.com"))
	require.NoError(t, err)
	tok := link.Query().Get("resetToken")
	require.NotEmpty(t, tok)

	confirm := map[string]any{"token": tok, "password": "brand-new"}
	res, _ = call(t, e.api, http.MethodPost, "/api/v1/auth/password/reset/confirm", confirm, "")
	require.Equal(t, 0, res.Code, res.Msg)
	res, _ = call(t, e.api, http.MethodPost, "/api/v1/auth/password/reset/confirm", confirm, "")
	assert.Equal(t, 401, res.Code, "token is single-use")

	res, _ = call(t, e.api, http.MethodPost, "/api/v1/auth/signin", map[string]any{"email": "a@b.com", "password": "brand-new"}, "")
	assert.Equal(t, 0, res.Code, res.Msg)
}

func TestEmailVerificationFlow(t *testing.T) {
	e := newEnv(t)
	s := e.signUp(t, "a@b.com", nil)

	link, err := url.Parse(e.mail.link(e.mail.verify, "a@b.com"))
	require.NoError(t, err)
	res, _ := call(t, e.api, http.MethodGet, link.RequestURI(), nil, "")
	require.Equal(t, 0, res.Code, res.Msg)

	res, _ = call(t, e.api, http.MethodGet, "/api/v1/me", nil, s.Token)
	require.Equal(t, 0, res.Code)
	assert.True(t, decode[domain.UserRecord](t, res.Data).EmailVerified)

	res, _ = call(t, e.api, http.MethodPost, "/api/v1/auth/verify", nil, "")
	assert.Equal(t, 401, res.Code)
	res, _ = call(t, e.api, http.MethodPost, "/api/v1/auth/verify", nil, s.Token)
	assert.Equal(t, 0, res.Code)
}

func TestChangePassword(t *testing.T) {
	e := newEnv(t)
	s := e.signUp(t, "a@b.com", nil)

	res, _ := call(t, e.api, http.MethodPost, "/api/v1/me/password", map[string]any{"current": "nope-nope", "password": "secret2"}, s.Token)
	assert.Equal(t, 401, res.Code)
	res, _ = call(t, e.api, http.MethodPost, "/api/v1/me/password", map[string]any{"current": "secret1", "password": "secret2"}, s.Token)
	require.Equal(t, 0, res.Code, res.Msg)

	res, _ = call(t, e.api, http.MethodPost, "/api/v1/auth/signin", map[string]any{"email": "a@b.com", "password": "secret2"}, "")
	assert.Equal(t, 0, res.Code)
}

func TestMissingProfileCanBeCompleted(t *testing.T) {
	e := newEnv(t)
	_, err := e.deps.Backend.CreateAccount(context.Background(), "half@b.com", "secret1")
	require.NoError(t, err)

	res, _ := call(t, e.api, http.MethodPost, "/api/v1/auth/signin", map[string]any{"email": "half@b.com", "password": "secret1"}, "")
	require.Equal(t, 0, res.Code, res.Msg)
	s := decode[sessionBody](t, res.Data)
	assert.Equal(t, "unauthenticated", s.Status)
	assert.True(t, s.NeedsProfile)
	require.NotEmpty(t, s.Token)

	res, _ = call(t, e.api, http.MethodPost, "/api/v1/auth/signup/complete", map[string]any{"firstName": "Half", "isAdmin": true}, s.Token)
	require.Equal(t, 0, res.Code, res.Msg)
	done := decode[sessionBody](t, res.Data)
	assert.Equal(t, "authenticated", done.Status)
	assert.False(t, done.User.IsAdmin)

	res, _ = call(t, e.api, http.MethodPost, "/api/v1/auth/signup/complete", map[string]any{"firstName": "Again"}, s.Token)
	assert.Equal(t, 400, res.Code)
}

func TestNavigation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.deps.Pages.Create(ctx, service.PageInput{Title: "About", Path: "/about", Content: "<p>hi</p>", IsVisible: true})
	require.NoError(t, err)
	_, err = e.deps.Pages.Create(ctx, service.PageInput{Title: "Draft", Path: "/draft"})
	require.NoError(t, err)

	_, w := call(t, e.api, http.MethodGet, "/api/v1/app/profile", nil, "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, appPrefix+"/", w.Header().Get("Location"))

	_, w = call(t, e.api, http.MethodGet, "/api/v1/app/favorites", nil, "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, appPrefix+"/auth", w.Header().Get("Location"))

	res, _ := call(t, e.api, http.MethodGet, "/api/v1/app/movie/550", nil, "")
	require.Equal(t, 0, res.Code)
	nav := decode[struct {
		Resolution struct {
			Page   string
			Params map[string]string
		}
	}](t, res.Data)
	assert.Equal(t, "movie", nav.Resolution.Page)
	assert.Equal(t, "550", nav.Resolution.Params["id"])

	res, _ = call(t, e.api, http.MethodGet, "/api/v1/app/about", nil, "")
	require.Equal(t, 0, res.Code, res.Msg)
	assert.Equal(t, "<p>hi</p>", decode[struct{ Page domain.Page }](t, res.Data).Page.Content)

	res, _ = call(t, e.api, http.MethodGet, "/api/v1/app/draft", nil, "")
	assert.Equal(t, 404, res.Code)

	s := e.signUp(t, "a@b.com", nil)
	res, _ = call(t, e.api, http.MethodGet, "/api/v1/app/profile", nil, s.Token)
	require.Equal(t, 0, res.Code)
	assert.Equal(t, "profile", decode[struct{ Resolution struct{ Page string } }](t, res.Data).Resolution.Page)
}

func TestAdminPagesAndPublicNav(t *testing.T) {
	e := newEnv(t)
	admin := e.adminToken(t)

	res, _ := call(t, e.admin, http.MethodPost, "/admin/v1/pages", map[string]any{
		"title": "CGU", "path": "/cgu", "location": "footer",
	}, admin)
	require.Equal(t, 0, res.Code, res.Msg)
	assert.Equal(t, "cgu", decode[domain.Page](t, res.Data).ID)

	res, _ = call(t, e.admin, http.MethodPost, "/admin/v1/pages", map[string]any{"title": "x", "path": "/admin"}, admin)
	assert.Equal(t, 400, res.Code, "reserved path")
	res, _ = call(t, e.admin, http.MethodPost, "/admin/v1/pages", map[string]any{"title": "x", "path": "/Bad Path"}, admin)
	assert.Equal(t, 400, res.Code)

	res, _ = call(t, e.api, http.MethodGet, "/api/v1/pages?location=footer", nil, "")
	require.Equal(t, 0, res.Code)
	assert.Empty(t, decode[[]domain.Page](t, res.Data))

	res, _ = call(t, e.admin, http.MethodPut, "/admin/v1/pages/cgu", map[string]any{
		"title": "CGU", "path": "/cgu", "location": "footer", "isVisible": true,
	}, admin)
	require.Equal(t, 0, res.Code, res.Msg)
	res, _ = call(t, e.admin, http.MethodPut, "/admin/v1/pages/cgu/content", map[string]any{"content": "terms"}, admin)
	require.Equal(t, 0, res.Code, res.Msg)

	res, _ = call(t, e.api, http.MethodGet, "/api/v1/pages?location=footer", nil, "")
	require.Equal(t, 0, res.Code)
	assert.Len(t, decode[[]domain.Page](t, res.Data), 1)

	res, _ = call(t, e.api, http.MethodGet, "/api/v1/pages/cgu", nil, "")
	require.Equal(t, 0, res.Code)
	assert.Equal(t, "terms", decode[domain.Page](t, res.Data).Content)

	res, _ = call(t, e.api, http.MethodGet, "/api/v1/pages?location=sidebar", nil, "")
	assert.Equal(t, 400, res.Code)

	res, _ = call(t, e.admin, http.MethodGet, "/admin/v1/pages", nil, admin)
	require.Equal(t, 0, res.Code)
	assert.EqualValues(t, 1, decode[struct{ Total int64 }](t, res.Data).Total)

	res, _ = call(t, e.admin, http.MethodPost, "/admin/v1/pages", map[string]any{"title": "x", "path": "/legal/cgu"}, admin)
	assert.Equal(t, 400, res.Code, "nested path")

	res, _ = call(t, e.admin, http.MethodPut, "/admin/v1/pages/cgu", map[string]any{
		"title": "Terms of use", "path": "/terms-of-use", "location": "footer", "isVisible": true,
	}, admin)
	require.Equal(t, 0, res.Code, res.Msg)
	assert.Equal(t, "terms-of-use", decode[domain.Page](t, res.Data).ID)

	res, _ = call(t, e.api, http.MethodGet, "/api/v1/pages?location=footer", nil, "")
	require.Equal(t, 0, res.Code)
	links := decode[[]domain.Page](t, res.Data)
	require.Len(t, links, 1)
	res, _ = call(t, e.api, http.MethodGet, "/api/v1/app"+links[0].Path, nil, "")
	require.Equal(t, 0, res.Code, res.Msg)
	assert.Equal(t, "terms", decode[struct{ Page domain.Page }](t, res.Data).Page.Content)

	res, _ = call(t, e.api, http.MethodGet, "/api/v1/app/cgu", nil, "")
	assert.Equal(t, 404, res.Code, "old path")
}

func TestFavorites(t *testing.T) {
	e := newEnv(t)
	a := e.signUp(t, "a@b.com", nil)
	b := e.signUp(t, "b@b.com", nil)
	fav := map[string]any{"mediaType": "movie", "mediaId": 550, "title": "Fight Club", "userId": b.User.ID}

	res, _ := call(t, e.api, http.MethodGet, "/api/v1/me/favorites", nil, "")
	assert.Equal(t, 401, res.Code)

	res, _ = call(t, e.api, http.MethodPost, "/api/v1/me/favorites", fav, a.Token)
	require.Equal(t, 0, res.Code, res.Msg)
	created := decode[struct{ ID, UserID string }](t, res.Data)
	assert.Equal(t, a.User.ID, created.UserID, "owner comes from the session")

	res, _ = call(t, e.api, http.MethodPost, "/api/v1/me/favorites", fav, a.Token)
	assert.Equal(t, 400, res.Code)
	res, _ = call(t, e.api, http.MethodPost, "/api/v1/me/favorites", map[string]any{"mediaType": "book", "mediaId": 1}, a.Token)
	assert.Equal(t, 400, res.Code)

	res, _ = call(t, e.api, http.MethodGet, "/api/v1/me/favorites?mediaType=movie", nil, a.Token)
	require.Equal(t, 0, res.Code)
	assert.EqualValues(t, 1, decode[struct{ Total int64 }](t, res.Data).Total)

	res, _ = call(t, e.api, http.MethodGet, "/api/v1/me/favorites", nil, b.Token)
	require.Equal(t, 0, res.Code)
	assert.EqualValues(t, 0, decode[struct{ Total int64 }](t, res.Data).Total)
	res, _ = call(t, e.api, http.MethodDelete, "/api/v1/me/favorites/"+created.ID, nil, b.Token)
	assert.Equal(t, 404, res.Code)

	res, _ = call(t, e.api, http.MethodDelete, "/api/v1/me/favorites/"+created.ID, nil, a.Token)
	assert.Equal(t, 0, res.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)
	_, w := call(t, e.api, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	_, w = call(t, e.api, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
