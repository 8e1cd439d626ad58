package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/storage"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/testsCommon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"
)

func createTestDirectory(t *testing.T) (*userDirectory, common.DocumentStore) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.Nil(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	ud, err := NewUserDirectory(ArgsUserDirectory{
		Store:      store,
		Collection: "users",
		BcryptCost: bcrypt.MinCost,
	})
	require.Nil(t, err)

	return ud, store
}

func TestNewUserDirectory(t *testing.T) {
	t.Parallel()

	t.Run("nil store should error", func(t *testing.T) {
		ud, err := NewUserDirectory(ArgsUserDirectory{Collection: "users"})
		assert.Nil(t, ud)
		assert.True(t, ud.IsInterfaceNil())
		assert.Contains(t, err.Error(), "nil document store")
	})
	t.Run("empty collection should error", func(t *testing.T) {
		ud, err := NewUserDirectory(ArgsUserDirectory{Store: &testsCommon.DocumentStoreStub{}})
		assert.Nil(t, ud)
		assert.Contains(t, err.Error(), "empty users collection")
	})
	t.Run("invalid cost should error", func(t *testing.T) {
		ud, err := NewUserDirectory(ArgsUserDirectory{Store: &testsCommon.DocumentStoreStub{}, Collection: "users", BcryptCost: 100})
		assert.Nil(t, ud)
		assert.Contains(t, err.Error(), "invalid bcrypt cost")
	})
	t.Run("should work with default cost", func(t *testing.T) {
		ud, err := NewUserDirectory(ArgsUserDirectory{Store: &testsCommon.DocumentStoreStub{}, Collection: "users"})
		assert.Nil(t, err)
		assert.Equal(t, bcrypt.DefaultCost, ud.cost)
		assert.False(t, ud.IsInterfaceNil())
	})
}

func TestUserDirectory_AddAndAuthenticate(t *testing.T) {
	t.Parallel()

	ud, store := createTestDirectory(t)
	ctx := context.Background()

	err := ud.Add(ctx, NewUser{Username: "alice", Password: "secret", Email: "alice@example.com", Role: common.RoleAdmin})
	require.Nil(t, err)

	doc, err := store.GetDocument(ctx, "users", "alice")
	require.Nil(t, err)
	hash := gjson.GetBytes(doc.Body, "password").String()
	assert.NotEqual(t, "secret", hash)
	assert.True(t, strings.HasPrefix(hash, "$2"))

	user, err := ud.Authenticate(ctx, "alice", "secret")
	require.Nil(t, err)
	assert.Equal(t, common.User{Username: "alice", Name: "alice", Email: "alice@example.com", Role: common.RoleAdmin}, *user)

	_, err = ud.Authenticate(ctx, "alice", "wrong")
	assert.Equal(t, common.ErrInvalidCredentials, err)

	_, err = ud.Authenticate(ctx, "bob", "secret")
	assert.Equal(t, common.ErrInvalidCredentials, err)

	_, err = ud.Authenticate(ctx, "", "secret")
	assert.Equal(t, common.ErrInvalidCredentials, err)
}

func TestUserDirectory_AddErrors(t *testing.T) {
	t.Parallel()

	ud, _ := createTestDirectory(t)
	ctx := context.Background()

	require.Nil(t, ud.Add(ctx, NewUser{Username: "alice", Password: "secret", Role: common.RoleUser}))

	t.Run("duplicate should error", func(t *testing.T) {
		err := ud.Add(ctx, NewUser{Username: "alice", Password: "other", Role: common.RoleAdmin})
		assert.True(t, errors.Is(err, common.ErrUserAlreadyExists))

		user, err := ud.Authenticate(ctx, "alice", "secret")
		require.Nil(t, err)
		assert.Equal(t, common.RoleUser, user.Role)
	})
	t.Run("empty username should error", func(t *testing.T) {
		err := ud.Add(ctx, NewUser{Username: " ", Password: "x", Role: common.RoleUser})
		assert.True(t, errors.Is(err, common.ErrInvalidUser))
	})
	t.Run("empty password should error", func(t *testing.T) {
		err := ud.Add(ctx, NewUser{Username: "bob", Role: common.RoleUser})
		assert.True(t, errors.Is(err, common.ErrInvalidUser))
	})
	t.Run("invalid role should error", func(t *testing.T) {
		err := ud.Add(ctx, NewUser{Username: "bob", Password: "x", Role: "root"})
		assert.True(t, errors.Is(err, common.ErrInvalidRole))
	})
	t.Run("too long password should error", func(t *testing.T) {
		err := ud.Add(ctx, NewUser{Username: "bob", Password: strings.Repeat("x", 100), Role: common.RoleUser})
		assert.True(t, errors.Is(err, common.ErrInvalidUser))
	})
}

func TestUserDirectory_EnsureUser(t *testing.T) {
	t.Parallel()

	ud, _ := createTestDirectory(t)
	ctx := context.Background()

	require.Nil(t, ud.EnsureUser(ctx, NewUser{Username: "root", Password: "first", Role: common.RoleSuperAdmin}))
	require.Nil(t, ud.EnsureUser(ctx, NewUser{Username: "root", Password: "second", Role: common.RoleSuperAdmin}))

	_, err := ud.Authenticate(ctx, "root", "first")
	assert.Nil(t, err)
	_, err = ud.Authenticate(ctx, "root", "second")
	assert.Equal(t, common.ErrInvalidCredentials, err)
}

func TestUserDirectory_ListFiltersByRole(t *testing.T) {
	t.Parallel()

	ud, _ := createTestDirectory(t)
	ctx := context.Background()

	require.Nil(t, ud.Add(ctx, NewUser{Username: "root", Password: "x", Role: common.RoleSuperAdmin}))
	require.Nil(t, ud.Add(ctx, NewUser{Username: "carol", Password: "x", Role: common.RoleAdmin}))
	require.Nil(t, ud.Add(ctx, NewUser{Username: "bob", Password: "x", Role: common.RoleUser}))

	usernames := func(list []common.User) []string {
		out := make([]string, 0, len(list))
		for _, u := range list {
			out = append(out, u.Username)
		}
		return out
	}

	list, err := ud.List(ctx, common.User{Username: "root", Role: common.RoleSuperAdmin})
	require.Nil(t, err)
	assert.Equal(t, []string{"bob", "carol", "root"}, usernames(list))

	list, err = ud.List(ctx, common.User{Username: "carol", Role: common.RoleAdmin})
	require.Nil(t, err)
	assert.Equal(t, []string{"bob", "carol"}, usernames(list))

	list, err = ud.List(ctx, common.User{Username: "bob", Role: common.RoleUser})
	require.Nil(t, err)
	assert.Equal(t, []string{"bob"}, usernames(list))
}

func TestUserDirectory_Remove(t *testing.T) {
	t.Parallel()

	ud, _ := createTestDirectory(t)
	ctx := context.Background()

	require.Nil(t, ud.Add(ctx, NewUser{Username: "bob", Password: "x", Role: common.RoleUser}))
	require.Nil(t, ud.Remove(ctx, "bob"))

	_, err := ud.Get(ctx, "bob")
	assert.True(t, errors.Is(err, common.ErrUserNotFound))

	err = ud.Remove(ctx, "bob")
	assert.True(t, errors.Is(err, common.ErrUserNotFound))
}
