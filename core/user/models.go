package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/neussi/comsas-uy1.com/core"
)

// Roles
const (
	// Admin: full back-office access
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPresident = "admin:president"

	// Bureau: club officers running sponsorship sessions and contests
	RoleBureau = "bureau:"
)

var (
	AdminRoles  = []string{RoleAdmin, RoleAdminOwner, RoleAdminPresident}
	BureauRoles = []string{RoleBureau}
	AllRoles    = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner:     30,
		RoleAdminPresident: 29,
		RoleAdmin:          21,

		// Bureau: 20 - 11
		RoleBureau: 11,
	}

	Roles = []Role{
		{Name: "Bureau", Value: RoleBureau},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Président", Value: RoleAdminPresident},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 4)
	all = append(all, AdminRoles...)
	all = append(all, BureauRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string          `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Username     string          `json:"username" db:"username"`
	Email        string          `json:"email" db:"email"`
	IsActive     *bool           `json:"is_active" db:"is_active"`
	Roles        core.StringList `json:"roles" db:"roles"`
	PasswordHash []byte          `json:"-" db:"password_hash"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`           // UTC
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`           // UTC
	LastLogin    *time.Time      `json:"last_login,omitempty" db:"last_login"` // UTC
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsBureau() bool {
	return u.RoleStartsWith(RoleBureau)
}

// IsStaff reports whether the user can access the back-office.
func (u *User) IsStaff() bool {
	return u.IsAdmin() || u.IsBureau()
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

// GetFilter selects a single User; the first non-empty field wins.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail []string
}

type QueryFilter struct {
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	IsActive *bool    `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
