package blog

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-blog/repository"
	"github.com/goliatone/go-errors"
)

const (
	defaultWindow      = 5 * 24 * time.Hour
	defaultWindowLimit = 20
)

// BlogAPIController serves the JSON entry API under /api/blog. Mutating
// routes enforce the same ownership policy as the HTML controller.
type BlogAPIController struct {
	Entries *Entries
	Users   *Users
	Logger  Logger
	prefix  string
}

// NewBlogAPIController wires the JSON surface.
func NewBlogAPIController(entries *Entries, users *Users) *BlogAPIController {
	return &BlogAPIController{
		Entries: entries,
		Users:   users,
		Logger:  defLogger{},
		prefix:  "/api/blog",
	}
}

func (b *BlogAPIController) WithLogger(logger Logger) *BlogAPIController {
	b.Logger = logger
	return b
}

// RegisterRoutes mounts the API behind the authenticator.
func (b *BlogAPIController) RegisterRoutes(app *fiber.App, auth *Authenticator) {
	group := app.Group(b.prefix, auth.Protect())

	group.Post("/entries", RequireRole(RoleBlogger), b.Create)
	group.Get("/entries", b.Window)
	group.Get("/entries/:id", b.Read)
	group.Post("/entries/:id", b.Update)
	group.Delete("/entries/:id", b.Delete)
}

func (b *BlogAPIController) Create(c *fiber.Ctx) error {
	var payload entryPayload
	if err := c.BodyParser(&payload); err != nil {
		return HTTPError(c, b.Logger, errors.Wrap(err, errors.CategoryBadInput, "unable to parse entry body"))
	}
	if err := payload.Validate(); err != nil {
		return HTTPError(c, b.Logger, errors.Wrap(err, errors.CategoryValidation, "invalid entry body"))
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

	return c.JSON(fiber.Map{
		"id":   id,
		"read": b.entryPath(id),
	})
}

// Window lists entries created inside the from/to query window, most recent
// first. Defaults: to=now, from=to-5d, limit=20.
func (b *BlogAPIController) Window(c *fiber.Ctx) error {
	end, err := queryTime(c, "to", time.Now().UTC())
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	start, err := queryTime(c, "from", end.Add(-defaultWindow))
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	limit := c.QueryInt("limit", defaultWindowLimit)

	rows, err := b.Entries.ListBetween(
		c.UserContext(),
		start,
		end,
		[]string{"id", "title", "description", "created"},
		limit,
	)
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	return c.JSON(rows)
}

func (b *BlogAPIController) Read(c *fiber.Ctx) error {
	entry, err := b.entry(c)
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	if entry == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}
	return c.JSON(entry)
}

type entryUpdatePayload struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Content     *string `json:"content"`
}

func (b *BlogAPIController) Update(c *fiber.Ctx) error {
	entry, err := b.entry(c)
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	if entry == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	account, err := requester(c.UserContext(), c, b.Users)
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	if !canModify(account, entry) {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var payload entryUpdatePayload
	if err := c.BodyParser(&payload); err != nil {
		return HTTPError(c, b.Logger, errors.Wrap(err, errors.CategoryBadInput, "unable to parse entry body"))
	}

	fields := repository.Row{}
	if payload.Title != nil {
		fields["title"] = *payload.Title
	}
	if payload.Description != nil {
		fields["description"] = *payload.Description
	}
	if payload.Content != nil {
		fields["content"] = *payload.Content
	}
	if len(fields) == 0 {
		return HTTPError(c, b.Logger, errors.New("no updatable fields given", errors.CategoryBadInput))
	}

	updated, err := b.Entries.Update(c.UserContext(), entry.ID, fields)
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	if !updated {
		return c.SendStatus(fiber.StatusNotFound)
	}

	return c.JSON(fiber.Map{
		"id":   entry.ID,
		"read": b.entryPath(entry.ID),
	})
}

func (b *BlogAPIController) Delete(c *fiber.Ctx) error {
	entry, err := b.entry(c)
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	if entry == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	account, err := requester(c.UserContext(), c, b.Users)
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	if !canModify(account, entry) {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	deleted, err := b.Entries.Delete(c.UserContext(), entry.ID)
	if err != nil {
		return HTTPError(c, b.Logger, err)
	}
	if !deleted {
		return c.SendStatus(fiber.StatusNotFound)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (b *BlogAPIController) entry(c *fiber.Ctx) (*Entry, error) {
	id, err := c.ParamsInt("id")
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid entry id")
	}
	return b.Entries.GetByID(c.UserContext(), int64(id))
}

func (b *BlogAPIController) entryPath(id int64) string {
	return fmt.Sprintf("%s/entries/%d", b.prefix, id)
}

func queryTime(c *fiber.Ctx, name string, def time.Time) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.CategoryBadInput, "invalid "+name+" timestamp")
	}
	return t.UTC(), nil
}
