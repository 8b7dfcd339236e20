package member

import (
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/neussi/comsas-uy1.com/core"
)

// Member types
const (
	TypeFounder = "founder"
	TypeBureau  = "bureau"
	TypeCouncil = "conseil"
	TypeSimple  = "simple"
)

var (
	Types  = []string{TypeFounder, TypeBureau, TypeCouncil, TypeSimple}
	Levels = []string{"L1", "L2", "L3", "ICT-L1", "ICT-L2", "ICT-L3", "M1", "M2", "PHD"}
)

// Member is an association member. Applications stay inactive until the bureau approves them.
type Member struct {
	ID         string    `json:"id" db:"id"`
	FullName   string    `json:"full_name" db:"full_name"`
	BirthDate  time.Time `json:"birth_date" db:"birth_date"`
	BirthPlace string    `json:"birth_place" db:"birth_place"`
	Level      string    `json:"level" db:"level"`
	Promotion  string    `json:"promotion" db:"promotion"`
	Phone      string    `json:"phone" db:"phone"`
	Email      string    `json:"email" db:"email"`
	Matricule  string    `json:"matricule" db:"matricule"`
	Profession string    `json:"profession" db:"profession"`
	Address    string    `json:"address" db:"address"`
	Type       string    `json:"member_type" db:"member_type"`
	BureauPost string    `json:"bureau_post" db:"bureau_post"`
	Bio        string    `json:"bio" db:"bio"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	JoinedAt   time.Time `json:"joined_at" db:"joined_at"`
}

// Profile is the public part of a member, shown in the directory.
type Profile struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	Type       string `json:"member_type"`
	BureauPost string `json:"bureau_post"`
	Level      string `json:"level"`
	Promotion  string `json:"promotion"`
	Profession string `json:"profession"`
	Bio        string `json:"bio"`
}

func (m Member) Profile() Profile {
	return Profile{
		ID:         m.ID,
		FullName:   m.FullName,
		Type:       m.Type,
		BureauPost: m.BureauPost,
		Level:      m.Level,
		Promotion:  m.Promotion,
		Profession: m.Profession,
		Bio:        m.Bio,
	}
}

// Application contains what a candidate member submits.
type Application struct {
	FullName   string `json:"full_name" validate:"required,notblank,max=200"`
	Matricule  string `json:"matricule" validate:"required,max=20"`
	BirthDate  string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	BirthPlace string `json:"birth_place" validate:"required,notblank,max=100"`
	Phone      string `json:"phone" validate:"required,max=20"`
	Email      string `json:"email" validate:"required,email"`
	Level      string `json:"level" validate:"omitempty,memberlevel"`
	Bio        string `json:"bio"`
}

func (a *Application) Validate(validate *validator.Validate) error {
	a.FullName = core.CleanString(a.FullName)
	a.Matricule = strings.ToUpper(core.CleanString(a.Matricule))
	a.BirthDate = core.CleanString(a.BirthDate)
	a.BirthPlace = core.CleanString(a.BirthPlace)
	a.Phone = core.CleanString(a.Phone)
	a.Email = core.CleanString(a.Email, true /* lower */)
	a.Level = strings.ToUpper(core.CleanString(a.Level))
	a.Bio = strings.TrimSpace(a.Bio)
	return validate.Struct(a)
}

// Update holds the fields the bureau edits on a member.
type Update struct {
	Type       string `json:"member_type" validate:"required,oneof=founder bureau conseil simple"`
	BureauPost string `json:"bureau_post" validate:"max=100"`
	Level      string `json:"level" validate:"omitempty,memberlevel"`
	Promotion  string `json:"promotion" validate:"max=20"`
	Profession string `json:"profession" validate:"max=200"`
	Address    string `json:"address"`
	Bio        string `json:"bio"`
}

func (u *Update) Validate(validate *validator.Validate) error {
	u.Type = core.CleanString(u.Type, true /* lower */)
	u.BureauPost = core.CleanString(u.BureauPost)
	u.Level = strings.ToUpper(core.CleanString(u.Level))
	u.Promotion = core.CleanString(u.Promotion)
	u.Profession = core.CleanString(u.Profession)
	u.Address = strings.TrimSpace(u.Address)
	u.Bio = strings.TrimSpace(u.Bio)
	return validate.Struct(u)
}

// Statuses of QueryFilter
const (
	StatusPending = "pending"
	StatusActive  = "active"
)

type QueryFilter struct {
	Type   string
	Status string // "", pending or active
	Search string // name, email or promotion
}

func sortByName(members []Member) {
	sort.SliceStable(members, func(i, j int) bool {
		return strings.ToLower(members[i].FullName) < strings.ToLower(members[j].FullName)
	})
}
