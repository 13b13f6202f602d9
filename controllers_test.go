package blog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	blog "github.com/goliatone/go-blog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app     *fiber.App
	users   *blog.Users
	entries *blog.Entries
	tokens  *blog.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := newTestDB(t)
	users, err := blog.NewUsers(db, "admin", "admin-password")
	require.NoError(t, err)
	entries, err := blog.NewEntries(db)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, users.Init(ctx))
	require.NoError(t, entries.Init(ctx))

	cfg := newTestConfig()
	tokens := blog.NewTokenManager(cfg)
	auth := blog.NewAuthenticator(users, tokens, cfg)

	app := fiber.New()
	blog.NewAuthController(users, auth, tokens).RegisterRoutes(app)
	blog.NewBlogController(entries, users).RegisterRoutes(app, auth)
	blog.NewBlogAPIController(entries, users).RegisterRoutes(app, auth)

	return &testServer{app: app, users: users, entries: entries, tokens: tokens}
}

func (s *testServer) postJSON(t *testing.T, path string, payload any, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (s *testServer) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()

	resp := postForm(t, s.app, "/login", url.Values{
		"username": {username},
		"password": {password},
	})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	return sessionCookie(t, resp, s.tokens.CookieName())
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
}

func TestRegisterGrantAndAdminAPI(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	// Self-registration hands out a reader session straight away.
	resp := postForm(t, srv.app, "/register", url.Values{
		"username": {"alice"},
		"password": {"wonderland1"},
	})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/blog", resp.Header.Get("Location"))
	aliceCookie := sessionCookie(t, resp, srv.tokens.CookieName())

	// Readers cannot reach the admin API.
	resp = getWithCookies(t, srv.app, "/api/users", aliceCookie)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// The seeded admin promotes alice.
	adminCookie := srv.login(t, "admin", "admin-password")

	alice, err := srv.users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, alice)

	resp = postForm(t, srv.app, "/admin/grant", url.Values{
		"id":   {fmt.Sprint(alice.ID)},
		"role": {"admin"},
	}, adminCookie)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	// The old session still carries the reader role.
	resp = getWithCookies(t, srv.app, "/api/users", aliceCookie)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// A fresh login picks up the new role.
	aliceCookie = srv.login(t, "alice", "wonderland1")
	resp = getWithCookies(t, srv.app, "/api/users", aliceCookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var accounts []blog.Account
	decodeJSON(t, resp, &accounts)
	names := make([]string, len(accounts))
	for i, a := range accounts {
		names[i] = a.Username
	}
	assert.Contains(t, names, "alice")
	assert.Contains(t, names, "admin")
}

func TestLoginRejectionAndRedirectTargets(t *testing.T) {
	srv := newTestServer(t)

	// Bad credentials bounce back to the login page, no cookie.
	resp := postForm(t, srv.app, "/login", url.Values{
		"username": {"admin"},
		"password": {"wrong"},
	})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Empty(t, resp.Cookies())

	// Admins land on the admin page.
	resp = postForm(t, srv.app, "/login", url.Values{
		"username": {"admin"},
		"password": {"admin-password"},
	})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))
}

func TestEntryAPILifecycle(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, err := srv.users.Register(ctx, "bob", "builder-pass", blog.RoleBlogger)
	require.NoError(t, err)
	_, err = srv.users.Register(ctx, "carol", "carol-pass12", blog.RoleBlogger)
	require.NoError(t, err)

	bobCookie := srv.login(t, "bob", "builder-pass")
	carolCookie := srv.login(t, "carol", "carol-pass12")

	// Bob publishes an entry.
	resp := srv.postJSON(t, "/api/blog/entries", fiber.Map{
		"title":       "Hello",
		"description": "first post",
		"content":     "body text",
	}, bobCookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var created struct {
		ID   int64  `json:"id"`
		Read string `json:"read"`
	}
	decodeJSON(t, resp, &created)
	require.Greater(t, created.ID, int64(0))
	require.NotEmpty(t, created.Read)

	// Carol is a blogger too, but not the owner.
	resp = srv.postJSON(t, created.Read, fiber.Map{"title": "Hijacked"}, carolCookie)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// The owner may edit.
	resp = srv.postJSON(t, created.Read, fiber.Map{"title": "Hello, revised"}, bobCookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = getWithCookies(t, srv.app, created.Read, carolCookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var entry blog.Entry
	decodeJSON(t, resp, &entry)
	assert.Equal(t, "Hello, revised", entry.Title)
	assert.True(t, entry.UpdatedAt.After(entry.CreatedAt))

	// The window listing surfaces the fresh entry with its projection.
	resp = getWithCookies(t, srv.app, "/api/blog/entries", bobCookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed []map[string]any
	decodeJSON(t, resp, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "Hello, revised", listed[0]["title"])
	assert.NotContains(t, listed[0], "content")

	// Deletion follows the same ownership policy.
	req := httptest.NewRequest(http.MethodDelete, created.Read, nil)
	req.AddCookie(carolCookie)
	resp, err = srv.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodDelete, created.Read, nil)
	req.AddCookie(bobCookie)
	resp, err = srv.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = getWithCookies(t, srv.app, created.Read, bobCookie)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestEntryAPIRoleGateAndWindowQuery(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, err := srv.users.Register(ctx, "dave", "reader-pass1", blog.RoleReader)
	require.NoError(t, err)
	daveCookie := srv.login(t, "dave", "reader-pass1")

	// Readers may browse but not publish.
	resp := srv.postJSON(t, "/api/blog/entries", fiber.Map{"title": "Nope"}, daveCookie)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	bob, err := srv.users.Register(ctx, "bob", "builder-pass", blog.RoleBlogger)
	require.NoError(t, err)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for day := 0; day < 4; day++ {
		at := base.AddDate(0, 0, day)
		srv.entries.WithClock(func() time.Time { return at })
		_, err := srv.entries.Create(ctx, bob, at.Format("Jan 2"), "", "")
		require.NoError(t, err)
	}

	// An explicit from/to window is honored, newest first.
	path := "/api/blog/entries?from=" + url.QueryEscape(base.AddDate(0, 0, 1).Format(time.RFC3339)) +
		"&to=" + url.QueryEscape(base.AddDate(0, 0, 2).Format(time.RFC3339))
	resp = getWithCookies(t, srv.app, path, daveCookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed []map[string]any
	decodeJSON(t, resp, &listed)
	require.Len(t, listed, 2)
	assert.Equal(t, "Jun 3", listed[0]["title"])
	assert.Equal(t, "Jun 2", listed[1]["title"])

	// A malformed timestamp is the caller's fault.
	resp = getWithCookies(t, srv.app, "/api/blog/entries?from=yesterday", daveCookie)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// limit caps the result.
	resp = getWithCookies(t, srv.app, "/api/blog/entries?from="+url.QueryEscape(base.Format(time.RFC3339))+"&limit=2", daveCookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &listed)
	assert.Len(t, listed, 2)
}
