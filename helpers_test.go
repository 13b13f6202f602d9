package blog_test

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	blog "github.com/goliatone/go-blog"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type testConfig struct {
	secret      string
	tokenExpiry time.Duration
	loginExpiry time.Duration
	loginPath   string
}

func newTestConfig() *testConfig {
	return &testConfig{
		secret:      "test-secret",
		tokenExpiry: 15 * time.Minute,
		loginExpiry: 24 * time.Hour,
		loginPath:   "/login",
	}
}

func (c *testConfig) GetSecret() string              { return c.secret }
func (c *testConfig) GetIssuer() string              { return "go-blog-test" }
func (c *testConfig) GetCookieName() string          { return "blog-session" }
func (c *testConfig) GetCookieDomain() string        { return "" }
func (c *testConfig) GetCookiePath() string          { return "/" }
func (c *testConfig) GetCookieMaxAge() time.Duration { return 48 * time.Hour }
func (c *testConfig) GetTokenExpiry() time.Duration  { return c.tokenExpiry }
func (c *testConfig) GetLoginExpiry() time.Duration  { return c.loginExpiry }
func (c *testConfig) GetLoginPath() string           { return c.loginPath }

var _ blog.Config = (*testConfig)(nil)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })
	return db
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func getWithCookies(t *testing.T, app *fiber.App, path string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func sessionCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()

	for _, ck := range resp.Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	t.Fatalf("response carries no %q cookie", name)
	return nil
}
