package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neussi/comsas-uy1.com/core"
	"github.com/neussi/comsas-uy1.com/core/user"
	"github.com/neussi/comsas-uy1.com/tests"
)

func usernames(users []user.User) []string {
	unames := make([]string, 0, len(users))
	for _, usr := range users {
		unames = append(unames, usr.Username)
	}
	return unames
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(testutil.PrepareDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	admin := testutil.CreateUser(t, repo, "Awa Admin", "awa", "awa@comsas.cm", "pwd", []string{user.RoleAdminOwner}, true, now.Add(-3*time.Hour))
	bureau := testutil.CreateUser(t, repo, "Boris Bureau", "boris", "boris@comsas.cm", "", []string{user.RoleBureau}, true, now.Add(-2*time.Hour))
	testutil.CreateUser(t, repo, "Chantal", "chantal", "chantal@comsas.cm", "", nil, false, now.Add(-time.Hour))

	t.Run("unique username and email", func(t *testing.T) {
		_, err := repo.CreateUser(ctx, user.User{Username: "awa", Email: "other@comsas.cm", CreatedAt: now, UpdatedAt: now})
		assert.Equal(t, user.ErrUserExists, err)
		_, err = repo.CreateUser(ctx, user.User{Username: "other", Email: "awa@comsas.cm", CreatedAt: now, UpdatedAt: now})
		assert.Equal(t, user.ErrUserExists, err)

		assert.Equal(t, user.ErrUsernameExists, repo.CheckUsernameUniqueness(ctx, "awa", "x@comsas.cm"))
		assert.Equal(t, user.ErrEmailExists, repo.CheckUsernameUniqueness(ctx, "x", "awa@comsas.cm"))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "awa", "awa@comsas.cm", admin.ID))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "", ""))
	})

	t.Run("query", func(t *testing.T) {
		active := true
		tests := []struct {
			name     string
			filter   *user.QueryFilter
			ordering []core.DBOrdering
			want     []string
		}{
			{name: "all, oldest first", want: []string{"awa", "boris", "chantal"}},
			{name: "search", filter: &user.QueryFilter{Search: "BUREAU"}, want: []string{"boris"}},
			{name: "search email", filter: &user.QueryFilter{Search: "chantal@"}, want: []string{"chantal"}},
			{name: "admin role prefix", filter: &user.QueryFilter{Roles: []string{user.RoleAdmin}}, want: []string{"awa"}},
			{name: "any role", filter: &user.QueryFilter{Roles: []string{user.RoleAdmin, user.RoleBureau}}, want: []string{"awa", "boris"}},
			{name: "active", filter: &user.QueryFilter{IsActive: &active}, want: []string{"awa", "boris"}},
			{
				name:     "ordering",
				ordering: []core.DBOrdering{{Field: "username", Ascending: false}},
				want:     []string{"chantal", "boris", "awa"},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				users, err := repo.QueryUsers(ctx, tt.filter, tt.ordering)
				require.NoError(t, err)
				assert.Equal(t, tt.want, usernames(users))
			})
		}
	})

	t.Run("get", func(t *testing.T) {
		tests := []struct {
			name    string
			filter  user.GetFilter
			wantID  string
			wantErr error
		}{
			{name: "by id", filter: user.GetFilter{ID: bureau.ID}, wantID: bureau.ID},
			{name: "malformed id", filter: user.GetFilter{ID: "42"}, wantErr: user.ErrNotFound},
			{name: "by username", filter: user.GetFilter{Username: "awa"}, wantID: admin.ID},
			{name: "by email", filter: user.GetFilter{Email: "boris@comsas.cm"}, wantID: bureau.ID},
			{name: "username as identifier", filter: user.GetFilter{UsernameOrEmail: []string{"awa"}}, wantID: admin.ID},
			{name: "email as identifier", filter: user.GetFilter{UsernameOrEmail: []string{"awa@comsas.cm"}}, wantID: admin.ID},
			{name: "unknown", filter: user.GetFilter{Username: "nobody"}, wantErr: user.ErrNotFound},
			{name: "empty filter", wantErr: user.ErrNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				usr, err := repo.GetUser(ctx, tt.filter)
				if tt.wantErr != nil {
					assert.Equal(t, tt.wantErr, err)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, usr.ID)
			})
		}

		usr, err := repo.GetUser(ctx, user.GetFilter{ID: admin.ID})
		require.NoError(t, err)
		assert.Equal(t, core.StringList{user.RoleAdminOwner}, usr.Roles)
		assert.NoError(t, usr.CheckPassword("pwd"))
		require.NotNil(t, usr.IsActive)
		assert.True(t, *usr.IsActive)
	})

	t.Run("update or create", func(t *testing.T) {
		usr, err := repo.UpdateOrCreateUser(ctx, user.User{Name: "Boris B.", Username: "boris", Email: "boris@comsas.cm", CreatedAt: now, UpdatedAt: now})
		require.NoError(t, err)
		assert.Equal(t, bureau.ID, usr.ID)

		got, err := repo.GetUser(ctx, user.GetFilter{ID: bureau.ID})
		require.NoError(t, err)
		assert.Equal(t, "Boris B.", got.Name)

		usr, err = repo.UpdateOrCreateUser(ctx, user.User{Name: "Dora", Username: "dora", Email: "dora@comsas.cm", CreatedAt: now, UpdatedAt: now})
		require.NoError(t, err)
		assert.NotEmpty(t, usr.ID)

		_, err = repo.UpdateUser(ctx, user.User{ID: usr.ID, Username: "awa", UpdatedAt: now})
		assert.Equal(t, user.ErrUserExists, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteUsersByID(ctx, bureau.ID, admin.ID))
		require.NoError(t, repo.DeleteUsersByID(ctx))

		users, err := repo.QueryUsers(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"chantal", "dora"}, usernames(users))
	})
}
