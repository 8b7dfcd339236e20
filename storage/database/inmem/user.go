package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/neussi/comsas-uy1.com/core"
	"github.com/neussi/comsas-uy1.com/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) checkUniqueness(username, email string, excludedIDs ...string) error {
	excluded := make(map[string]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	for _, usr := range repo.db.users {
		if excluded[usr.ID] {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedIDs ...string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.checkUniqueness(username, email, excludedIDs...)
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.create(usr)
}

func (repo *userRepository) create(usr user.User) (user.User, error) {
	if err := repo.checkUniqueness(usr.Username, usr.Email); err != nil {
		return user.User{}, user.ErrUserExists
	}
	usr.ID = uuid.New().String()
	if usr.IsActive == nil {
		usr.SetActive(true)
	}
	repo.db.users[usr.ID] = &usr
	repo.db.track(usr.ID)
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter != nil && !matchUser(*usr, *filter) {
			continue
		}
		users = append(users, *usr)
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := userField(users[i], ord.Field), userField(users[j], ord.Field)
			if a != b {
				return (a < b) == ord.Ascending
			}
		}
		return repo.db.before(users[i].ID, users[j].ID)
	})
	return users, nil
}

func matchUser(usr user.User, filter user.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(usr.Name), s) &&
			!strings.Contains(strings.ToLower(usr.Username), s) &&
			!strings.Contains(strings.ToLower(usr.Email), s) {
			return false
		}
	}
	if len(filter.Roles) > 0 {
		found := false
		for _, role := range filter.Roles {
			if usr.RoleStartsWith(role) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && (usr.IsActive == nil || *usr.IsActive != *filter.IsActive) {
		return false
	}
	return true
}

func userField(usr user.User, field string) string {
	switch field {
	case "name":
		return usr.Name
	case "username":
		return usr.Username
	case "email":
		return usr.Email
	case "created_at":
		return usr.CreatedAt.Format("20060102150405.000000000")
	case "is_active":
		if usr.IsActive != nil && *usr.IsActive {
			return "1"
		}
		return "0"
	}
	return ""
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.get(filter)
}

func (repo *userRepository) get(filter user.GetFilter) (user.User, error) {
	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}

	var uname, email string
	switch {
	case filter.Username != "":
		uname = filter.Username
	case filter.Email != "":
		email = filter.Email
	case len(filter.UsernameOrEmail) > 0:
		uname = filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 {
			email = filter.UsernameOrEmail[1]
		}
		if email == "" {
			email = uname
		} else if uname == "" {
			uname = email
		}
	default:
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.users {
		if (uname != "" && usr.Username == uname) || (email != "" && usr.Email == email) {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.update(usr)
}

func (repo *userRepository) update(usr user.User) (user.User, error) {
	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if err := repo.checkUniqueness(usr.Username, usr.Email, usr.ID); err != nil {
		return user.User{}, user.ErrUserExists
	}
	if usr.IsActive == nil {
		usr.SetActive(true)
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	filter := user.GetFilter{ID: usr.ID}
	if usr.ID == "" {
		filter = user.GetFilter{UsernameOrEmail: []string{usr.Username, usr.Email}}
	}
	existing, err := repo.get(filter)
	if err == user.ErrNotFound {
		return repo.create(usr)
	}
	usr.ID = existing.ID
	usr.CreatedAt = existing.CreatedAt
	return repo.update(usr)
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.users, id)
	}
	return nil
}
