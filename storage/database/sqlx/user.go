package sqlxrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/neussi/comsas-uy1.com/core"
	"github.com/neussi/comsas-uy1.com/core/user"
)

const userColumns = `id, name, COALESCE(username, '') AS username, COALESCE(email, '') AS email,
	is_active, roles, password_hash, created_at, updated_at, last_login`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error {
	var w where
	switch {
	case username != "" && email != "":
		w.add("(username = ? OR email = ?)", username, email)
	case username != "":
		w.add("username = ?", username)
	case email != "":
		w.add("email = ?", email)
	default:
		return nil
	}
	if len(excludedIDs) > 0 {
		w.add("id NOT IN (?)", excludedIDs)
	}

	q, args, err := in(repo.db, "SELECT COALESCE(username, '') AS username FROM users"+w.String(), w.args...)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}
	var taken []string
	if err = sqlx.SelectContext(ctx, repo.db, &taken, q, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if len(taken) == 0 {
		return nil
	}
	for _, uname := range taken {
		if username != "" && uname == username {
			return user.ErrUsernameExists
		}
	}
	return user.ErrEmailExists
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	if usr.IsActive == nil {
		usr.SetActive(true)
	}
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(`INSERT INTO users
		(id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		usr.ID, usr.Name, nullString(usr.Username), nullString(usr.Email), *usr.IsActive,
		usr.Roles, usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), usr.LastLogin,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var w where
	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			w.add("(LOWER(name) LIKE ? OR LOWER(COALESCE(username, '')) LIKE ? OR LOWER(COALESCE(email, '')) LIKE ?)", val, val, val)
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			conds := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				conds = append(conds, "roles LIKE ?")
				w.args = append(w.args, `%"`+role+`%`)
			}
			w.conds = append(w.conds, "("+strings.Join(conds, " OR ")+")")
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
	}

	orderBy := "created_at ASC, id ASC"
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		orderBy = strings.Join(orderList, ", ")
	}

	users := make([]user.User, 0)
	q := repo.db.Rebind("SELECT " + userColumns + " FROM users" + w.String() + " ORDER BY " + orderBy)
	if err := sqlx.SelectContext(ctx, repo.db, &users, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var w where
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Username != "":
		w.add("username = ?", filter.Username)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case len(filter.UsernameOrEmail) > 0:
		var email string
		uname := filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 {
			email = filter.UsernameOrEmail[1]
		}
		if email == "" {
			email = uname
		} else if uname == "" {
			uname = email
		}
		w.add("(username = ? OR email = ?)", uname, email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	q := repo.db.Rebind("SELECT " + userColumns + " FROM users" + w.String() + " LIMIT 1")
	if err := sqlx.GetContext(ctx, repo.db, &usr, q, w.args...); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "getting user")
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.IsActive == nil {
		usr.SetActive(true)
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`UPDATE users SET
		name = ?, username = ?, email = ?, is_active = ?, roles = ?, password_hash = ?, updated_at = ?, last_login = ?
		WHERE id = ?`),
		usr.Name, nullString(usr.Username), nullString(usr.Email), *usr.IsActive, usr.Roles,
		usr.PasswordHash, usr.UpdatedAt.UTC(), usr.LastLogin, usr.ID,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = affectedOne(res, user.ErrNotFound, "updating user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	filter := user.GetFilter{ID: usr.ID}
	if usr.ID == "" {
		filter = user.GetFilter{UsernameOrEmail: []string{usr.Username, usr.Email}}
	}
	existing, err := repo.GetUser(ctx, filter)
	switch {
	case err == user.ErrNotFound:
		return repo.CreateUser(ctx, usr)
	case err != nil:
		return user.User{}, err
	}
	usr.ID = existing.ID
	usr.CreatedAt = existing.CreatedAt
	return repo.UpdateUser(ctx, usr)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := in(repo.db, "DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
