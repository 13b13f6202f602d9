package blog

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

// Config holds the options the token manager and authenticator need.
type Config interface {
	GetSecret() string
	GetIssuer() string
	GetCookieName() string
	GetCookieDomain() string
	GetCookiePath() string
	GetCookieMaxAge() time.Duration
	GetTokenExpiry() time.Duration
	GetLoginExpiry() time.Duration
	GetLoginPath() string
}

// AppConfig is the env-backed configuration for the server binary. Duration
// fields use the compact w/d/h/m/s grammar; values that fail to parse fall
// back to the defaults baked into the getters.
type AppConfig struct {
	Addr     string `env:"BLOG_ADDR" envDefault:":8080"`
	DSN      string `env:"BLOG_DSN" envDefault:"file:blog.db?cache=shared"`
	ViewsDir string `env:"BLOG_VIEWS" envDefault:"./views"`

	Secret       string `env:"BLOG_SECRET" envDefault:"development-secret"`
	Issuer       string `env:"BLOG_ISSUER" envDefault:"go-blog"`
	CookieName   string `env:"BLOG_COOKIE_NAME" envDefault:"blog-session"`
	CookieDomain string `env:"BLOG_COOKIE_DOMAIN" envDefault:""`
	CookiePath   string `env:"BLOG_COOKIE_PATH" envDefault:"/"`
	CookieMaxAge string `env:"BLOG_COOKIE_MAX_AGE" envDefault:"2d"`
	TokenExpiry  string `env:"BLOG_TOKEN_EXPIRY" envDefault:"15m"`
	LoginExpiry  string `env:"BLOG_LOGIN_EXPIRY" envDefault:"1d"`
	LoginPath    string `env:"BLOG_LOGIN_PATH" envDefault:"/login"`

	AdminUsername string `env:"BLOG_ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"BLOG_ADMIN_PASSWORD" envDefault:"admin"`
}

var _ Config = (*AppConfig)(nil)

// LoadConfig reads configuration from the environment, honoring a local
// .env file when present.
func LoadConfig() (*AppConfig, error) {
	// Missing .env is fine, the environment may be set by the host.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to parse environment")
	}
	return cfg, nil
}

func (c *AppConfig) GetSecret() string       { return c.Secret }
func (c *AppConfig) GetIssuer() string       { return c.Issuer }
func (c *AppConfig) GetCookieName() string   { return c.CookieName }
func (c *AppConfig) GetCookieDomain() string { return c.CookieDomain }
func (c *AppConfig) GetCookiePath() string   { return c.CookiePath }
func (c *AppConfig) GetLoginPath() string    { return c.LoginPath }

func (c *AppConfig) GetCookieMaxAge() time.Duration {
	return LifetimeOrDefault(c.CookieMaxAge, 48*time.Hour)
}

func (c *AppConfig) GetTokenExpiry() time.Duration {
	return LifetimeOrDefault(c.TokenExpiry, 15*time.Minute)
}

func (c *AppConfig) GetLoginExpiry() time.Duration {
	return LifetimeOrDefault(c.LoginExpiry, 24*time.Hour)
}
