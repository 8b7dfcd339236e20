package tests

import (
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/neussi/comsas-uy1.com/apps/api/echo"
	"github.com/neussi/comsas-uy1.com/core/user"
	"github.com/neussi/comsas-uy1.com/tests"
)

var errForbidden = httpErr{Error: "permission refusée"}

func userIDs(users []user.User) []string {
	ids := make([]string, 0, len(users))
	for _, usr := range users {
		ids = append(ids, usr.ID)
	}
	return ids
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	pwd := "Pa$$w0rd!"
	usr := testutil.CreateUser(t, app.usrRepo, "Awa", "awa", "awa@comsas.cm", pwd, []string{user.RoleBureau}, true)
	testutil.CreateUser(t, app.usrRepo, "Gone", "gone", "gone@comsas.cm", pwd, nil, false)

	login := func(uname, pwd string) []byte {
		return marshallObj(t, echoapi.LoginRequest{Username: uname, Password: pwd})
	}
	badCreds := marshallObj(t, httpErr{Error: "identifiants invalides"})

	tests := []httpTest{
		{name: "empty body", body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "unknown user", body: login("nobody", pwd), wantCode: http.StatusBadRequest, wantData: badCreds},
		{name: "wrong password", body: login("awa", "nope"), wantCode: http.StatusBadRequest, wantData: badCreds},
		{name: "deactivated", body: login("gone", pwd), wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "compte désactivé"})},
		{name: "by username", body: login(" AWA ", pwd), wantCode: http.StatusOK},
		{name: "by email", body: login("awa@comsas.cm", pwd), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newRequest(http.MethodPost, "/v1/users/login", tt.body))
			checkCodeAndData(t, tt, rec)
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp echoapi.LoginResponse
			unmarshall(t, rec, &resp)
			claims := new(echoapi.Claims)
			_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(app.conf.SecretKey), nil
			})
			require.NoError(t, err)
			assert.Equal(t, usr.ID, claims.Subject)
			assert.True(t, claims.IsBureau)
			assert.False(t, claims.IsAdmin)
		})
	}

	got, err := app.usrRepo.GetUser(testCtx, user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.NotNil(t, got.LastLogin)
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, app.usrRepo, "Awa", "awa", "awa@comsas.cm", "", nil, true)
	token := app.token(t, usr)

	rec := app.do(newRequest(http.MethodGet, "/v1/users/me"))
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)}, rec)

	rec = app.do(newAuthRequest(http.MethodGet, "/v1/users/me", token))
	require.Equal(t, http.StatusOK, rec.Code)
	var me user.User
	unmarshall(t, rec, &me)
	assert.Equal(t, usr.ID, me.ID)
	assert.Equal(t, "awa", me.Username)

	rec = app.do(newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp echoapi.LoginResponse
	unmarshall(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)

	// tokens of deleted users are useless
	require.NoError(t, app.usrRepo.DeleteUsersByID(testCtx, usr.ID))
	rec = app.do(newAuthRequest(http.MethodGet, "/v1/users/me", token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_userApi_create(t *testing.T) {
	app := setup(t)
	president := testutil.CreateUser(t, app.usrRepo, "Pres", "pres", "pres@comsas.cm", "", []string{user.RoleAdminPresident}, true)
	bureau := testutil.CreateUser(t, app.usrRepo, "Bob", "bobby", "bob@comsas.cm", "", []string{user.RoleBureau}, true)
	presToken := app.token(t, president)

	newUser := func(uname, email, pwd string, roles ...string) []byte {
		return marshallObj(t, user.NewUser{
			Name:            "New Member",
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		})
	}
	pwd := "Zk#9vQ!m2Lp"

	tests := []httpTest{
		{name: "no token", body: newUser("member", "", pwd), wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "bureau cannot register", body: newUser("member", "", pwd), token: app.token(t, bureau), wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)},
		{name: "invalid body", body: []byte(`{"name": ""}`), token: presToken, wantCode: http.StatusBadRequest},
		{name: "weak password", body: newUser("member", "", "password"), token: presToken, wantCode: http.StatusBadRequest},
		{name: "unknown role", body: newUser("member", "", pwd, "root"), token: presToken, wantCode: http.StatusBadRequest},
		{
			name:     "username taken",
			body:     newUser("bobby", "", pwd),
			token:    presToken,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name:     "role above own",
			body:     newUser("member", "", pwd, user.RoleAdminOwner),
			token:    presToken,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"roles": "droits insuffisants pour attribuer ces rôles"}),
		},
		{name: "created", body: newUser("Member", "member@comsas.cm", pwd, user.RoleBureau), token: presToken, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newAuthRequest(http.MethodPost, "/v1/users/register", tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}

	usr, err := app.usrRepo.GetUser(testCtx, user.GetFilter{Username: "member"})
	require.NoError(t, err)
	assert.Equal(t, "member@comsas.cm", usr.Email)
	assert.True(t, usr.IsBureau())
	assert.NoError(t, usr.CheckPassword(pwd))
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)
	now := time.Now()
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@comsas.cm", "", []string{user.RoleAdmin}, true, now.Add(-3*time.Hour))
	bureau := testutil.CreateUser(t, app.usrRepo, "Bureau", "bureau", "bureau@comsas.cm", "", []string{user.RoleBureau}, true, now.Add(-2*time.Hour))
	naughty := testutil.CreateUser(t, app.usrRepo, "N Dog", "ndog", "ndog@comsas.cm", "", nil, false, now.Add(-time.Hour))
	adminToken := app.token(t, admin)

	path := func(search, ordering string, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	tests := []struct {
		name    string
		path    string
		wantIDs []string
	}{
		{name: "all", path: path("", "", nil), wantIDs: []string{admin.ID, bureau.ID, naughty.ID}},
		{name: "search", path: path("dog", "", nil), wantIDs: []string{naughty.ID}},
		{name: "inactive", path: path("", "", bPtr(false)), wantIDs: []string{naughty.ID}},
		{name: "role", path: path("", "", nil, user.RoleBureau), wantIDs: []string{bureau.ID}},
		{name: "ordering", path: path("", "-created_at", nil), wantIDs: []string{naughty.ID, bureau.ID, admin.ID}},
		{name: "unknown ordering is ignored", path: path("", "password_hash", nil), wantIDs: []string{admin.ID, bureau.ID, naughty.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newAuthRequest(http.MethodGet, tt.path, adminToken))
			require.Equal(t, http.StatusOK, rec.Code)
			var users []user.User
			unmarshall(t, rec, &users)
			assert.Equal(t, tt.wantIDs, userIDs(users))
		})
	}

	rec := app.do(newAuthRequest(http.MethodGet, "/v1/users", app.token(t, bureau)))
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)}, rec)

	rec = app.do(newAuthRequest(http.MethodGet, "/v1/users/roles", adminToken))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, user.Roles)}, rec)
}

func Test_userApi_destroyMultiple(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@comsas.cm", "", []string{user.RoleAdmin}, true)
	usr1 := testutil.CreateUser(t, app.usrRepo, "One", "one", "one@comsas.cm", "", nil, true)
	usr2 := testutil.CreateUser(t, app.usrRepo, "Two", "two", "two@comsas.cm", "", nil, true)
	adminToken := app.token(t, admin)

	ids := func(ids ...string) string {
		v := make(url.Values)
		for _, id := range ids {
			v.Add("id", id)
		}
		return "/v1/users?" + v.Encode()
	}

	runHTTPTests(t, app, []httpTest{
		{name: "no ids", method: http.MethodDelete, path: ids(), token: adminToken, wantCode: http.StatusNoContent},
		{name: "self", method: http.MethodDelete, path: ids(usr1.ID, admin.ID), token: adminToken, wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)},
		{name: "others", method: http.MethodDelete, path: ids(usr1.ID, usr2.ID), token: adminToken, wantCode: http.StatusNoContent},
	})

	users, err := app.usrRepo.QueryUsers(testCtx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{admin.ID}, userIDs(users))
}
