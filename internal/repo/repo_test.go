package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cineverse/internal/domain"
	"cineverse/internal/feature/account"
	"cineverse/internal/testutil"
	"cineverse/pkg/utils"
)

func record(id, email string, admin bool) domain.UserRecord {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return domain.NewUserRecord(id, email, domain.ProfileFields{
		FirstName: "Ada", LastName: "Lovelace", Username: email[:1], IsAdmin: admin,
	}, now)
}

func TestProfileRepoGetPutPatch(t *testing.T) {
	ctx := context.Background()
	c, mr := testutil.Cache(t)
	r := NewProfileRepo(testutil.DB(t), c, time.Minute)

	u, err := r.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, r.Put(ctx, record("u1", "A@B.com ", false)))
	u, err = r.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "a@b.com", u.Email)
	assert.True(t, mr.Exists("test:profile:u1"))

	city := "Paris"
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.Patch(ctx, "u1", domain.ProfilePatch{City: &city, UpdatedAt: at}))
	assert.False(t, mr.Exists("test:profile:u1"), "patch must drop the cached profile")

	u, err = r.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Paris", u.City)
	assert.True(t, u.UpdatedAt.Equal(at))
	assert.Equal(t, "Ada", u.FirstName)
}

func TestProfileRepoPutInvalidatesNegativeCache(t *testing.T) {
	ctx := context.Background()
	c, mr := testutil.Cache(t)
	r := NewProfileRepo(testutil.DB(t), c, time.Minute)

	u, err := r.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.True(t, mr.Exists("test:profile:u2"))

	require.NoError(t, r.Put(ctx, record("u2", "c@d.com", false)))
	u, err = r.Get(ctx, "u2")
	require.NoError(t, err)
	require.NotNil(t, u)
}

func TestProfileRepoPatchMissing(t *testing.T) {
	r := NewProfileRepo(testutil.DB(t), nil, 0)
	city := "Lyon"
	err := r.Patch(context.Background(), "nope", domain.ProfilePatch{City: &city})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, r.Patch(context.Background(), "nope", domain.ProfilePatch{}))
}

func TestProfileRepoListAllAndStats(t *testing.T) {
	ctx := context.Background()
	r := NewProfileRepo(testutil.DB(t), nil, 0)
	require.NoError(t, r.Put(ctx, record("u1", "alice@x.io", false)))
	require.NoError(t, r.Put(ctx, record("u2", "bob@x.io", true)))
	require.NoError(t, r.Put(ctx, record("u3", "carol@y.io", false)))
	yes := true
	require.NoError(t, r.Patch(ctx, "u3", domain.ProfilePatch{EmailVerified: &yes}))

	all, total, err := r.ListAll(ctx, domain.ProfileQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	admins, total, err := r.ListAll(ctx, domain.ProfileQuery{AdminsOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "u2", admins[0].ID)

	found, total, err := r.ListAll(ctx, domain.ProfileQuery{Q: "X.IO"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, found, 2)

	page, total, err := r.ListAll(ctx, domain.ProfileQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 1)

	s, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileStats{Users: 3, Admins: 1, Verified: 1}, s)
}

func TestCredentialRepo(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	creds := NewCredentialRepo(db)
	profiles := NewProfileRepo(db, nil, 0)

	m := &account.CredentialModel{ID: "c1", Email: "a@b.com", PasswordHash: utils.HashPassword("secret1")}
	require.NoError(t, creds.Create(ctx, m))
	err := creds.Create(ctx, &account.CredentialModel{ID: "c2", Email: "a@b.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, domain.ErrAccountExists)

	got, err := creds.FindByEmail(ctx, " A@b.COM")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c1", got.ID)

	none, err := creds.FindByID(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, creds.UpdatePasswordHash(ctx, "c1", utils.HashPassword("secret2")))
	require.NoError(t, creds.MarkVerified(ctx, "c1"))
	got, err = creds.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword("secret2", got.PasswordHash))
	assert.True(t, got.EmailVerified)
	assert.ErrorIs(t, creds.MarkVerified(ctx, "zzz"), domain.ErrNotFound)

	require.NoError(t, creds.Create(ctx, &account.CredentialModel{ID: "c3", Email: "c@d.com", PasswordHash: "x"}))
	require.NoError(t, profiles.Put(ctx, record("c3", "c@d.com", false)))

	orphans, err := creds.ListOrphans(ctx, 0)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "c1", orphans[0].ID)
}

func TestPageRepo(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	c, mr := testutil.Cache(t)
	r := NewPageRepo(db, c, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p := domain.Page{ID: "about", Title: "About", Path: "/about", Content: "hi",
		Location: domain.LocationFooter, IsVisible: true, LastModified: now, CreatedAt: now}
	require.NoError(t, r.Create(ctx, p))
	err := r.Create(ctx, domain.Page{ID: "about2", Title: "x", Path: "/about", Location: domain.LocationNone})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	footer, err := r.ListVisible(ctx, domain.LocationFooter)
	require.NoError(t, err)
	require.Len(t, footer, 1)
	assert.True(t, mr.Exists("test:pages:visible:footer"))

	require.NoError(t, r.UpdateMeta(ctx, "about", domain.PageMeta{
		Title: "About us", Path: "/about", Location: domain.LocationNavbar, IsVisible: true,
	}, now.Add(time.Hour)))
	assert.False(t, mr.Exists("test:pages:visible:footer"))

	footer, err = r.ListVisible(ctx, domain.LocationFooter)
	require.NoError(t, err)
	assert.Empty(t, footer)
	nav, err := r.ListVisible(ctx, domain.LocationNavbar)
	require.NoError(t, err)
	require.Len(t, nav, 1)
	assert.Equal(t, "About us", nav[0].Title)

	require.NoError(t, r.UpdateContent(ctx, "about", "<p>new</p>", now.Add(2*time.Hour)))
	got, err := r.Get(ctx, "about")
	require.NoError(t, err)
	assert.Equal(t, "<p>new</p>", got.Content)
	assert.True(t, got.LastModified.Equal(now.Add(2*time.Hour)))

	assert.ErrorIs(t, r.UpdateContent(ctx, "nope", "x", now), domain.ErrNotFound)

	total, visible, err := r.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.EqualValues(t, 1, visible)

	require.NoError(t, r.UpdateMeta(ctx, "about", domain.PageMeta{
		Title: "Info", Path: "/info", Location: domain.LocationNavbar, IsVisible: true,
	}, now.Add(3*time.Hour)))
	gone, err := r.Get(ctx, "about")
	require.NoError(t, err)
	assert.Nil(t, gone)
	moved, err := r.Get(ctx, "info")
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Equal(t, "/info", moved.Path)
	assert.Equal(t, "<p>new</p>", moved.Content)
	assert.True(t, moved.CreatedAt.Equal(now))
	assert.ErrorIs(t, r.UpdateMeta(ctx, "about", domain.PageMeta{Title: "x", Path: "/x"}, now), domain.ErrNotFound)

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
