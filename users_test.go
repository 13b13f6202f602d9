package blog_test

import (
	"context"
	"testing"

	blog "github.com/goliatone/go-blog"
	"github.com/goliatone/go-blog/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUsers(t *testing.T) *blog.Users {
	t.Helper()

	users, err := blog.NewUsers(newTestDB(t), "admin", "admin-password")
	require.NoError(t, err)
	require.NoError(t, users.Init(context.Background()))
	return users
}

func TestInitSeedsSingleAdmin(t *testing.T) {
	users := newTestUsers(t)
	ctx := context.Background()

	admins, err := users.ListByRole(ctx, blog.RoleAdmin, 10)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "admin", admins[0].Username)

	ok, err := users.VerifyPassword(ctx, "admin", "admin-password")
	require.NoError(t, err)
	assert.True(t, ok)

	// A second Init must not mint another admin.
	require.NoError(t, users.Init(ctx))
	admins, err = users.ListByRole(ctx, blog.RoleAdmin, 10)
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}

func TestRegisterAndVerifyPassword(t *testing.T) {
	users := newTestUsers(t)
	ctx := context.Background()

	id, err := users.Register(ctx, "alice", "wonderland1", blog.RoleReader)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	ok, err := users.VerifyPassword(ctx, "alice", "wonderland1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = users.VerifyPassword(ctx, "alice", "not-her-password")
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown user and wrong password must be indistinguishable.
	ok, err = users.VerifyPassword(ctx, "nobody", "whatever")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterDuplicateUsernameConflicts(t *testing.T) {
	users := newTestUsers(t)
	ctx := context.Background()

	_, err := users.Register(ctx, "alice", "wonderland1", blog.RoleReader)
	require.NoError(t, err)

	_, err = users.Register(ctx, "alice", "different-pass", blog.RoleReader)
	require.Error(t, err)
	assert.True(t, repository.IsConflict(err))
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	users := newTestUsers(t)

	_, err := users.Register(context.Background(), "mallory", "password123", blog.Role("superuser"))
	require.Error(t, err)
}

func TestFindByUsername(t *testing.T) {
	users := newTestUsers(t)
	ctx := context.Background()

	_, err := users.Register(ctx, "bob", "builder-pass", blog.RoleBlogger)
	require.NoError(t, err)

	account, err := users.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "bob", account.Username)
	assert.Equal(t, blog.RoleBlogger, account.Role)

	account, err = users.FindByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestChangePassword(t *testing.T) {
	users := newTestUsers(t)
	ctx := context.Background()

	_, err := users.Register(ctx, "alice", "old-password1", blog.RoleReader)
	require.NoError(t, err)

	changed, err := users.ChangePassword(ctx, "alice", "new-password1")
	require.NoError(t, err)
	assert.True(t, changed)

	ok, err := users.VerifyPassword(ctx, "alice", "old-password1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = users.VerifyPassword(ctx, "alice", "new-password1")
	require.NoError(t, err)
	assert.True(t, ok)

	changed, err = users.ChangePassword(ctx, "nobody", "whatever12")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestGrant(t *testing.T) {
	users := newTestUsers(t)
	ctx := context.Background()

	id, err := users.Register(ctx, "alice", "wonderland1", blog.RoleReader)
	require.NoError(t, err)

	granted, err := users.Grant(ctx, id, blog.RoleBlogger)
	require.NoError(t, err)
	assert.True(t, granted)

	account, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, blog.RoleBlogger, account.Role)

	granted, err = users.Grant(ctx, 424242, blog.RoleBlogger)
	require.NoError(t, err)
	assert.False(t, granted)

	_, err = users.Grant(ctx, id, blog.Role("superuser"))
	require.Error(t, err)
}

func TestListOrdersByUsername(t *testing.T) {
	users := newTestUsers(t)
	ctx := context.Background()

	for _, name := range []string{"zoe", "bob", "alice"} {
		_, err := users.Register(ctx, name, "password-123", blog.RoleReader)
		require.NoError(t, err)
	}

	accounts, err := users.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, accounts, 4)
	assert.Equal(t, "admin", accounts[0].Username)
	assert.Equal(t, "alice", accounts[1].Username)
	assert.Equal(t, "bob", accounts[2].Username)
	assert.Equal(t, "zoe", accounts[3].Username)

	// The listing projection must not carry credential material.
	assert.Empty(t, accounts[1].PasswordHash)
	assert.Empty(t, accounts[1].PasswordSalt)
}
