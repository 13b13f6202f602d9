package blog

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// AuthControllerRoutes are the paths the controller mounts its handlers on.
type AuthControllerRoutes struct {
	Index          string
	Login          string
	Register       string
	Admin          string
	Grant          string
	ChangePassword string
	APIUsers       string
}

// AuthControllerViews are the template names the HTML handlers render.
type AuthControllerViews struct {
	Login          string
	Register       string
	Admin          string
	ChangePassword string
}

// AuthController serves the login, registration, and account admin surface.
type AuthController struct {
	Users  *Users
	Auth   *Authenticator
	Tokens *TokenManager
	Logger Logger
	Routes *AuthControllerRoutes
	Views  *AuthControllerViews
}

// NewAuthController wires the controller with the default route table.
func NewAuthController(users *Users, auth *Authenticator, tokens *TokenManager) *AuthController {
	return &AuthController{
		Users:  users,
		Auth:   auth,
		Tokens: tokens,
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Index:          "/",
			Login:          "/login",
			Register:       "/register",
			Admin:          "/admin",
			Grant:          "/admin/grant",
			ChangePassword: "/change-password",
			APIUsers:       "/api/users",
		},
		Views: &AuthControllerViews{
			Login:          "login",
			Register:       "register",
			Admin:          "admin",
			ChangePassword: "change_password",
		},
	}
}

func (a *AuthController) WithLogger(logger Logger) *AuthController {
	a.Logger = logger
	return a
}

// RegisterRoutes mounts the controller on the app.
func (a *AuthController) RegisterRoutes(app *fiber.App) {
	protected := a.Auth.Protect()

	app.Get(a.Routes.Index, a.IndexRedirect)
	app.Get(a.Routes.Login, a.LoginShow)
	app.Post(a.Routes.Login, a.LoginPost)
	app.Get(a.Routes.Register, a.RegisterShow)
	app.Post(a.Routes.Register, a.RegisterCreate)

	app.Get(a.Routes.Admin, protected, RequireRole(RoleAdmin), a.AdminShow)
	app.Post(a.Routes.Grant, protected, RequireRole(RoleAdmin), a.Grant)
	app.Get(a.Routes.APIUsers, protected, RequireRole(RoleAdmin), a.UsersIndex)

	app.Get(a.Routes.ChangePassword, protected, a.ChangePasswordShow)
	app.Post(a.Routes.ChangePassword, protected, a.ChangePasswordPost)
}

func (a *AuthController) IndexRedirect(c *fiber.Ctx) error {
	return c.Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *AuthController) LoginShow(c *fiber.Ctx) error {
	return c.Render(a.Views.Login, fiber.Map{})
}

type credentialsPayload struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

func (p credentialsPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.Password, validation.Required, validation.Length(1, 128)),
	)
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	var payload credentialsPayload
	if err := c.BodyParser(&payload); err != nil {
		return HTTPError(c, a.Logger, errors.Wrap(err, errors.CategoryBadInput, "unable to parse login form"))
	}
	if err := payload.Validate(); err != nil {
		return HTTPError(c, a.Logger, errors.Wrap(err, errors.CategoryValidation, "invalid login form"))
	}

	ok, err := a.Users.VerifyPassword(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		return HTTPError(c, a.Logger, err)
	}
	if !ok {
		a.Logger.Info("rejected login for %q", payload.Username)
		return c.Redirect(a.Routes.Login, fiber.StatusSeeOther)
	}

	account, err := a.Users.FindByUsername(c.UserContext(), payload.Username)
	if err != nil {
		return HTTPError(c, a.Logger, err)
	}
	if account == nil {
		// Verified a moment ago, gone now. Treat as a server fault.
		return HTTPError(c, a.Logger, errors.New("account vanished after verification", errors.CategoryInternal))
	}

	cookie, err := a.Tokens.GenerateCookie(account.Username, account.Role)
	if err != nil {
		return HTTPError(c, a.Logger, err)
	}
	c.Cookie(cookie)

	target := "/blog"
	if account.Role == RoleAdmin {
		target = a.Routes.Admin
	}
	return c.Redirect(target, fiber.StatusSeeOther)
}

func (a *AuthController) RegisterShow(c *fiber.Ctx) error {
	return c.Render(a.Views.Register, fiber.Map{})
}

type registerPayload struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

func (p registerPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required, validation.Length(3, 64)),
		validation.Field(&p.Password, validation.Required, validation.Length(8, 128)),
	)
}

// RegisterCreate self-registers a reader account and logs it straight in.
// The role is forced server side.
func (a *AuthController) RegisterCreate(c *fiber.Ctx) error {
	var payload registerPayload
	if err := c.BodyParser(&payload); err != nil {
		return HTTPError(c, a.Logger, errors.Wrap(err, errors.CategoryBadInput, "unable to parse registration form"))
	}
	if err := payload.Validate(); err != nil {
		return HTTPError(c, a.Logger, errors.Wrap(err, errors.CategoryValidation, "invalid registration form"))
	}

	if _, err := a.Users.Register(c.UserContext(), payload.Username, payload.Password, RoleReader); err != nil {
		return HTTPError(c, a.Logger, err)
	}

	cookie, err := a.Tokens.GenerateCookie(payload.Username, RoleReader)
	if err != nil {
		return HTTPError(c, a.Logger, err)
	}
	c.Cookie(cookie)

	return c.Redirect("/blog", fiber.StatusSeeOther)
}

func (a *AuthController) AdminShow(c *fiber.Ctx) error {
	users, err := a.Users.List(c.UserContext(), 10000)
	if err != nil {
		return HTTPError(c, a.Logger, err)
	}
	return c.Render(a.Views.Admin, fiber.Map{"users": users})
}

// UsersIndex is the JSON twin of AdminShow.
func (a *AuthController) UsersIndex(c *fiber.Ctx) error {
	users, err := a.Users.List(c.UserContext(), 10000)
	if err != nil {
		return HTTPError(c, a.Logger, err)
	}
	return c.JSON(users)
}

type grantPayload struct {
	ID   int64  `form:"id" json:"id"`
	Role string `form:"role" json:"role"`
}

// Grant changes an account's role.
func (a *AuthController) Grant(c *fiber.Ctx) error {
	var payload grantPayload
	if err := c.BodyParser(&payload); err != nil {
		return HTTPError(c, a.Logger, errors.Wrap(err, errors.CategoryBadInput, "unable to parse grant form"))
	}

	role, ok := ParseRole(payload.Role)
	if !ok {
		return HTTPError(c, a.Logger, errors.New("unknown role "+payload.Role, errors.CategoryBadInput))
	}

	updated, err := a.Users.Grant(c.UserContext(), payload.ID, role)
	if err != nil {
		return HTTPError(c, a.Logger, err)
	}
	if !updated {
		return c.SendStatus(fiber.StatusNotFound)
	}

	return c.Redirect(a.Routes.Admin, fiber.StatusSeeOther)
}

func (a *AuthController) ChangePasswordShow(c *fiber.Ctx) error {
	claims, _ := SessionFromFiber(c)
	username := ""
	if claims != nil {
		username = claims.Username()
	}
	return c.Render(a.Views.ChangePassword, fiber.Map{"username": username})
}

type changePasswordPayload struct {
	OldPassword string `form:"old_password" json:"old_password"`
	NewPassword string `form:"new_password" json:"new_password"`
}

func (p changePasswordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.OldPassword, validation.Required),
		validation.Field(&p.NewPassword, validation.Required, validation.Length(8, 128)),
	)
}

// ChangePasswordPost rotates the session subject's password after checking
// the old one.
func (a *AuthController) ChangePasswordPost(c *fiber.Ctx) error {
	claims, ok := SessionFromFiber(c)
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var payload changePasswordPayload
	if err := c.BodyParser(&payload); err != nil {
		return HTTPError(c, a.Logger, errors.Wrap(err, errors.CategoryBadInput, "unable to parse form"))
	}
	if err := payload.Validate(); err != nil {
		return HTTPError(c, a.Logger, errors.Wrap(err, errors.CategoryValidation, "invalid password change form"))
	}

	valid, err := a.Users.VerifyPassword(c.UserContext(), claims.Username(), payload.OldPassword)
	if err != nil {
		return HTTPError(c, a.Logger, err)
	}
	if !valid {
		return c.Redirect(a.Routes.ChangePassword, fiber.StatusSeeOther)
	}

	changed, err := a.Users.ChangePassword(c.UserContext(), claims.Username(), payload.NewPassword)
	if err != nil {
		return HTTPError(c, a.Logger, err)
	}
	if !changed {
		return c.SendStatus(fiber.StatusNotFound)
	}

	return c.Redirect("/blog", fiber.StatusSeeOther)
}

// requester resolves the session subject to its stored account.
func requester(ctx context.Context, c *fiber.Ctx, users *Users) (*Account, error) {
	claims, ok := SessionFromFiber(c)
	if !ok {
		return nil, nil
	}
	return users.FindByUsername(ctx, claims.Username())
}
