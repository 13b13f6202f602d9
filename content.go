package blog

import (
	"context"
	"time"

	"github.com/goliatone/go-blog/repository"
	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Timestamps persist as UTC epoch nanoseconds so range scans and ordering
// stay purely numeric regardless of which sqlite driver the shim resolves.
var entrySchema = repository.Schema{
	Table:   "blog_entries",
	PK:      "id",
	Columns: []string{"id", "user_id", "title", "description", "content", "created", "updated"},
	DDL: `CREATE TABLE IF NOT EXISTS blog_entries
(
    id INTEGER PRIMARY KEY,
    user_id INTEGER NOT NULL,
    title TEXT NOT NULL,
    description TEXT NULL,
    content TEXT NULL,
    created INTEGER NOT NULL,
    updated INTEGER NOT NULL
)`,
}

// entryFields are the columns callers may set through Create and Update.
// Ownership and timestamps are stamped by the store itself.
var entryFields = map[string]struct{}{
	"title":       {},
	"description": {},
	"content":     {},
}

// Entries specializes the generic repository for blog entries. The store is
// mechanism only: ownership checks belong to the calling controller.
type Entries struct {
	repo   *repository.Repository
	logger Logger
	now    func() time.Time
}

// NewEntries builds the content store on a shared bun handle.
func NewEntries(db bun.IDB) (*Entries, error) {
	repo, err := repository.New(db, entrySchema)
	if err != nil {
		return nil, err
	}

	return &Entries{
		repo:   repo,
		logger: defLogger{},
		now:    time.Now,
	}, nil
}

func (e *Entries) WithLogger(logger Logger) *Entries {
	e.logger = logger
	return e
}

// WithClock overrides the time source. Test hook.
func (e *Entries) WithClock(now func() time.Time) *Entries {
	e.now = now
	return e
}

// Init creates the schema. Idempotent.
func (e *Entries) Init(ctx context.Context) error {
	return e.repo.Init(ctx)
}

// Create stores a new entry owned by ownerID with created == updated == now.
func (e *Entries) Create(ctx context.Context, ownerID int64, title, description, content string) (int64, error) {
	now := e.now().UTC().UnixNano()
	return e.repo.Create(ctx, repository.Row{
		"user_id":     ownerID,
		"title":       title,
		"description": description,
		"content":     content,
		"created":     now,
		"updated":     now,
	})
}

// Update merges the given content fields and bumps the updated stamp.
// Only title, description, and content may be set; anything else is
// rejected before it reaches the repository.
func (e *Entries) Update(ctx context.Context, id int64, fields repository.Row) (bool, error) {
	updates := repository.Row{
		"updated": e.now().UTC().UnixNano(),
	}
	for col, val := range fields {
		if _, ok := entryFields[col]; !ok {
			return false, errors.New(
				"field "+col+" is not updatable on a blog entry",
				errors.CategoryBadInput,
			)
		}
		updates[col] = val
	}
	return e.repo.Update(ctx, id, updates)
}

// GetByID returns the full entry or (nil, nil) when absent.
func (e *Entries) GetByID(ctx context.Context, id int64) (*Entry, error) {
	row, err := e.repo.GetByID(ctx, id, nil)
	if err != nil || row == nil {
		return nil, err
	}
	entry := entryFromRow(row)
	return &entry, nil
}

// ListBetween reads entries created inside the inclusive [start, end]
// window, most recent first. A nil projection selects all columns; epoch
// stamps in the result are converted back to time.Time.
func (e *Entries) ListBetween(ctx context.Context, start, end time.Time, projection []string, limit int) ([]repository.Row, error) {
	rows, err := e.repo.ListBetween(
		ctx,
		"created",
		start.UTC().UnixNano(),
		end.UTC().UnixNano(),
		projection,
		"created",
		false,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return presentRows(rows), nil
}

// Latest reads the most recently created entries. Backs the index pages.
func (e *Entries) Latest(ctx context.Context, projection []string, limit int) ([]repository.Row, error) {
	rows, err := e.repo.List(ctx, projection, "created", false, limit)
	if err != nil {
		return nil, err
	}
	return presentRows(rows), nil
}

// Delete removes the entry. False when no row matched.
func (e *Entries) Delete(ctx context.Context, id int64) (bool, error) {
	return e.repo.Delete(ctx, id)
}

func presentRows(rows []repository.Row) []repository.Row {
	for _, row := range rows {
		for _, col := range []string{"created", "updated"} {
			if v, ok := row[col]; ok {
				row[col] = time.Unix(0, asInt64(v)).UTC()
			}
		}
	}
	return rows
}

func entryFromRow(row repository.Row) Entry {
	return Entry{
		ID:          asInt64(row["id"]),
		OwnerID:     asInt64(row["user_id"]),
		Title:       asString(row["title"]),
		Description: asString(row["description"]),
		Content:     asString(row["content"]),
		CreatedAt:   time.Unix(0, asInt64(row["created"])).UTC(),
		UpdatedAt:   time.Unix(0, asInt64(row["updated"])).UTC(),
	}
}
