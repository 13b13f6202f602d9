package blog

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-blog/repository"
	"github.com/goliatone/go-errors"
)

// BlogController serves the HTML blog pages. All routes sit behind the
// authenticator; edit and delete additionally require ownership or admin,
// enforced here because the store stays policy free.
type BlogController struct {
	Entries *Entries
	Users   *Users
	Logger  Logger
}

// NewBlogController wires the HTML blog surface.
func NewBlogController(entries *Entries, users *Users) *BlogController {
	return &BlogController{
		Entries: entries,
		Users:   users,
		Logger:  defLogger{},
	}
}

func (b *BlogController) WithLogger(logger Logger) *BlogController {
	b.Logger = logger
	return b
}

// RegisterRoutes mounts the blog pages behind the authenticator.
func (b *BlogController) RegisterRoutes(app *fiber.App, auth *Authenticator) {
	protected := auth.Protect()
	author := RequireRole(RoleBlogger)

	app.Get("/blog", protected, b.Index)
	app.Get("/blog/create", protected, author, b.CreateShow)
	app.Post("/blog/create", protected, author, b.CreateSave)
	app.Get("/blog/entries/:id", protected, b.Read)
	app.Get("/blog/entries/:id/edit", protected, b.EditShow)
	app.Post("/blog/entries/:id/edit", protected, b.EditSave)
	app.Post("/blog/entries/:id/delete", protected, b.Delete)
}

func (b *BlogController) Index(c *fiber.Ctx) error {
	latest, err := b.Entries.Latest(
		c.UserContext(),
		[]string{"id", "title", "description", "created"},
		10,
	)
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	return c.Render("blog/index", fiber.Map{
		"title": "blog",
		"posts": latest,
	})
}

func (b *BlogController) Read(c *fiber.Ctx) error {
	entry, err := b.entry(c)
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	if entry == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}
	return c.Render("blog/read", fiber.Map{"entry": entry})
}

func (b *BlogController) CreateShow(c *fiber.Ctx) error {
	return c.Render("blog/edit", fiber.Map{
		"action": "/blog/create",
		"entry":  &Entry{},
	})
}

type entryPayload struct {
	Title       string `form:"title" json:"title"`
	Description string `form:"description" json:"description"`
	Content     string `form:"content" json:"content"`
}

func (p entryPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(1, 256)),
		validation.Field(&p.Description, validation.Length(0, 1024)),
	)
}

func (b *BlogController) CreateSave(c *fiber.Ctx) error {
	var payload entryPayload
	if err := c.BodyParser(&payload); err != nil {
		return HTTPError(c, b.Logger, errors.Wrap(err, errors.CategoryBadInput, "unable to parse entry form"))
	}
	if err := payload.Validate(); err != nil {
		return HTTPError(c, b.Logger, errors.Wrap(err, errors.CategoryValidation, "invalid entry form"))
	}

	account, err := requester(c.UserContext(), c, b.Users)
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	if account == nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	id, err := b.Entries.Create(c.UserContext(), account.ID, payload.Title, payload.Description, payload.Content)
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}

	return c.Redirect(fmt.Sprintf("/blog/entries/%d", id), fiber.StatusSeeOther)
}

func (b *BlogController) EditShow(c *fiber.Ctx) error {
	entry, err := b.entry(c)
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	if entry == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	if status := b.authorize(c, entry); status != 0 {
		return c.SendStatus(status)
	}

	return c.Render("blog/edit", fiber.Map{
		"action": fmt.Sprintf("/blog/entries/%d/edit", entry.ID),
		"entry":  entry,
	})
}

func (b *BlogController) EditSave(c *fiber.Ctx) error {
	entry, err := b.entry(c)
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	if entry == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	if status := b.authorize(c, entry); status != 0 {
		return c.SendStatus(status)
	}

	var payload entryPayload
	if err := c.BodyParser(&payload); err != nil {
		return HTTPError(c, b.Logger, errors.Wrap(err, errors.CategoryBadInput, "unable to parse entry form"))
	}
	if err := payload.Validate(); err != nil {
		return HTTPError(c, b.Logger, errors.Wrap(err, errors.CategoryValidation, "invalid entry form"))
	}

	if _, err := b.Entries.Update(c.UserContext(), entry.ID, repository.Row{
		"title":       payload.Title,
		"description": payload.Description,
		"content":     payload.Content,
	}); err != nil {
		return HTTPError(c, b.Logger, err)
	}

	return c.Redirect(fmt.Sprintf("/blog/entries/%d", entry.ID), fiber.StatusSeeOther)
}

func (b *BlogController) Delete(c *fiber.Ctx) error {
	entry, err := b.entry(c)
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	if entry == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	if status := b.authorize(c, entry); status != 0 {
		return c.SendStatus(status)
	}

	if _, err := b.Entries.Delete(c.UserContext(), entry.ID); err != nil {
		return HTTPError(c, b.Logger, err)
	}

	return c.Redirect("/blog", fiber.StatusSeeOther)
}

func (b *BlogController) entry(c *fiber.Ctx) (*Entry, error) {
	id, err := c.ParamsInt("id")
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid entry id")
	}
	return b.Entries.GetByID(c.UserContext(), int64(id))
}

// authorize returns the status to respond with when the session subject may
// not modify the entry, or 0 when it may.
func (b *BlogController) authorize(c *fiber.Ctx, entry *Entry) int {
	account, err := requester(c.UserContext(), c, b.Users)
	if err != nil || account == nil {
		return fiber.StatusUnauthorized
	}
	if !canModify(account, entry) {
		return fiber.StatusUnauthorized
	}
	return 0
}

// canModify is the ownership policy: the owning account or an admin.
func canModify(account *Account, entry *Entry) bool {
	if account == nil || entry == nil {
		return false
	}
	return account.ID == entry.OwnerID || account.Role == RoleAdmin
}
