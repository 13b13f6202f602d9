package blog

import (
	"context"

	"github.com/goliatone/go-blog/repository"
	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

var userSchema = repository.Schema{
	Table:   "users",
	PK:      "id",
	Columns: []string{"id", "username", "hash", "salt", "role"},
	DDL: `CREATE TABLE IF NOT EXISTS users
(
    id INTEGER PRIMARY KEY,
    username TEXT NOT NULL,
    hash TEXT NOT NULL,
    salt TEXT NOT NULL,
    role TEXT NOT NULL,

    UNIQUE (username)
)`,
}

// Users specializes the generic repository for account records: passwords
// are hashed on the way in and digests never travel further than the
// verification path needs.
type Users struct {
	repo          *repository.Repository
	adminUsername string
	adminPassword string
	logger        Logger
}

var _ IdentityStore = (*Users)(nil)

// NewUsers builds the account store on a shared bun handle. The admin
// credentials seed the single admin account during Init.
func NewUsers(db bun.IDB, adminUsername, adminPassword string) (*Users, error) {
	repo, err := repository.New(db, userSchema)
	if err != nil {
		return nil, err
	}

	return &Users{
		repo:          repo,
		adminUsername: adminUsername,
		adminPassword: adminPassword,
		logger:        defLogger{},
	}, nil
}

func (u *Users) WithLogger(logger Logger) *Users {
	u.logger = logger
	return u
}

// Init creates the schema and seeds the admin account when no admin row
// exists yet. Idempotent; must run before any authentication attempt.
func (u *Users) Init(ctx context.Context) error {
	if err := u.repo.Init(ctx); err != nil {
		return err
	}

	admins, err := u.ListByRole(ctx, RoleAdmin, 1)
	if err != nil {
		return err
	}
	if len(admins) > 0 {
		return nil
	}

	u.logger.Info("seeding admin account %q", u.adminUsername)
	_, err = u.Register(ctx, u.adminUsername, u.adminPassword, RoleAdmin)
	return err
}

// Register hashes the password and creates the account. A duplicate
// username surfaces as a conflict error.
func (u *Users) Register(ctx context.Context, username, password string, role Role) (int64, error) {
	if !role.IsValid() {
		return 0, errors.New("unknown role "+string(role), errors.CategoryBadInput)
	}

	digest, salt, err := HashPassword(password)
	if err != nil {
		return 0, err
	}

	return u.repo.Create(ctx, repository.Row{
		"username": username,
		"hash":     digest,
		"salt":     salt,
		"role":     string(role),
	})
}

// FindByUsername returns the account or (nil, nil) when absent.
func (u *Users) FindByUsername(ctx context.Context, username string) (*Account, error) {
	row, err := u.repo.GetByColumn(ctx, "username", username, nil)
	if err != nil || row == nil {
		return nil, err
	}
	account := accountFromRow(row)
	return &account, nil
}

// VerifyPassword reports whether the password matches the stored digest.
// An unknown username and a wrong password are indistinguishable so the
// response cannot be used to enumerate accounts.
func (u *Users) VerifyPassword(ctx context.Context, username, password string) (bool, error) {
	row, err := u.repo.GetByColumn(ctx, "username", username, []string{"hash", "salt"})
	if err != nil {
		return false, err
	}
	if row == nil {
		return false, nil
	}
	return ComparePasswordAndHash(password, asString(row["salt"]), asString(row["hash"])), nil
}

// ChangePassword re-hashes with a fresh salt. False when the user is
// absent.
func (u *Users) ChangePassword(ctx context.Context, username, newPassword string) (bool, error) {
	account, err := u.FindByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if account == nil {
		return false, nil
	}

	digest, salt, err := HashPassword(newPassword)
	if err != nil {
		return false, err
	}

	return u.repo.Update(ctx, account.ID, repository.Row{
		"hash": digest,
		"salt": salt,
	})
}

// Grant changes the role of the account identified by id.
func (u *Users) Grant(ctx context.Context, id int64, role Role) (bool, error) {
	if !role.IsValid() {
		return false, errors.New("unknown role "+string(role), errors.CategoryBadInput)
	}
	return u.repo.Update(ctx, id, repository.Row{"role": string(role)})
}

// ListByRole returns up to limit accounts holding the role, ordered by
// username ascending.
func (u *Users) ListByRole(ctx context.Context, role Role, limit int) ([]Account, error) {
	rows, err := u.repo.ListByColumn(ctx, "role", string(role), nil, "username", true, limit)
	if err != nil {
		return nil, err
	}
	return accountsFromRows(rows), nil
}

// List returns up to limit accounts ordered by username ascending. Backs
// the admin user listing.
func (u *Users) List(ctx context.Context, limit int) ([]Account, error) {
	rows, err := u.repo.List(ctx, []string{"id", "username", "role"}, "username", true, limit)
	if err != nil {
		return nil, err
	}
	return accountsFromRows(rows), nil
}

func accountsFromRows(rows []repository.Row) []Account {
	accounts := make([]Account, len(rows))
	for i, row := range rows {
		accounts[i] = accountFromRow(row)
	}
	return accounts
}

func accountFromRow(row repository.Row) Account {
	return Account{
		ID:           asInt64(row["id"]),
		Username:     asString(row["username"]),
		PasswordHash: asString(row["hash"]),
		PasswordSalt: asString(row["salt"]),
		Role:         Role(asString(row["role"])),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
