package sponsorship

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/neussi/comsas-uy1.com/core"
)

const DefaultMaxMentees = 2

type Session struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Mentor struct {
	ID               string    `json:"id" db:"id"`
	SessionID        string    `json:"session_id" db:"session_id"`
	FirstName        string    `json:"first_name" db:"first_name"`
	LastName         string    `json:"last_name" db:"last_name"`
	Phone            string    `json:"phone" db:"phone"`
	Email            string    `json:"email" db:"email"`
	Level            string    `json:"level" db:"level"`
	Specialty        string    `json:"specialty" db:"specialty"`
	ExpertiseDomains TagSet    `json:"expertise_domains" db:"expertise_domains"`
	MaxMentees       int       `json:"max_mentees" db:"max_mentees"`
	CurrentLoad      int       `json:"current_load" db:"current_load"` // active matches; derived
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

func (m Mentor) FullName() string { return m.FirstName + " " + m.LastName }

// HasCapacity reports whether the mentor can take one more mentee.
func (m Mentor) HasCapacity() bool { return m.CurrentLoad < m.MaxMentees }

type Mentee struct {
	ID               string    `json:"id" db:"id"`
	SessionID        string    `json:"session_id" db:"session_id"`
	FirstName        string    `json:"first_name" db:"first_name"`
	LastName         string    `json:"last_name" db:"last_name"`
	Phone            string    `json:"phone" db:"phone"`
	Email            string    `json:"email" db:"email"`
	Level            string    `json:"level" db:"level"`
	DesiredSpecialty string    `json:"desired_specialty" db:"desired_specialty"`
	Competencies     TagSet    `json:"competencies" db:"competencies"`
	DesiredDomains   TagSet    `json:"desired_domains" db:"desired_domains"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

func (m Mentee) FullName() string { return m.FirstName + " " + m.LastName }

// Match ties one mentor to one mentee within a session.
type Match struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	MentorID  string    `json:"mentor_id" db:"mentor_id"`
	MenteeID  string    `json:"mentee_id" db:"mentee_id"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MatchDetail is a Match joined with its participants, for listings and exports.
type MatchDetail struct {
	Match
	SessionName string `json:"session_name" db:"session_name"`
	MentorName  string `json:"mentor_name" db:"mentor_name"`
	MentorEmail string `json:"mentor_email" db:"mentor_email"`
	MentorPhone string `json:"mentor_phone" db:"mentor_phone"`
	MenteeName  string `json:"mentee_name" db:"mentee_name"`
	MenteeEmail string `json:"mentee_email" db:"mentee_email"`
	MenteePhone string `json:"mentee_phone" db:"mentee_phone"`
}

// AssignmentResult summarizes an auto-match pass.
type AssignmentResult struct {
	Created   int     `json:"created"`
	Unmatched int     `json:"unmatched"`
	Skipped   int     `json:"skipped"` // matched concurrently by someone else
	Matches   []Match `json:"matches"`
}

type Stats struct {
	Mentors        int `json:"mentors"`
	Mentees        int `json:"mentees"`
	ActiveMatches  int `json:"active_matches"`
	PendingMentees int `json:"pending_mentees"`
	FreeSlots      int `json:"free_slots"`
}

// NewSession contains information needed to open a sponsorship session.
type NewSession struct {
	Name      string    `json:"name" validate:"required,notblank,max=100"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	IsActive  *bool     `json:"is_active"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// NewMentor contains information needed to register a mentor.
type NewMentor struct {
	FirstName        string `json:"first_name" validate:"required,notblank,max=100"`
	LastName         string `json:"last_name" validate:"required,notblank,max=100"`
	Phone            string `json:"phone" validate:"required,max=20"`
	Email            string `json:"email" validate:"required,email"`
	Level            string `json:"level" validate:"required,mentorlevel"`
	Specialty        string `json:"specialty" validate:"required,specialty"`
	ExpertiseDomains TagSet `json:"expertise_domains" validate:"required,min=1,domains"`
	MaxMentees       int    `json:"max_mentees" validate:"omitempty,min=1,max=10"`
}

func (nm *NewMentor) Validate(validate *validator.Validate) error {
	nm.FirstName = core.CleanString(nm.FirstName)
	nm.LastName = core.CleanString(nm.LastName)
	nm.Phone = core.CleanString(nm.Phone)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.Level = strings.ToUpper(core.CleanString(nm.Level))
	nm.Specialty = strings.ToUpper(core.CleanString(nm.Specialty))
	if nm.MaxMentees == 0 {
		nm.MaxMentees = DefaultMaxMentees
	}
	return validate.Struct(nm)
}

// NewMentee contains information needed to register a mentee.
type NewMentee struct {
	FirstName        string `json:"first_name" validate:"required,notblank,max=100"`
	LastName         string `json:"last_name" validate:"required,notblank,max=100"`
	Phone            string `json:"phone" validate:"required,max=20"`
	Email            string `json:"email" validate:"required,email"`
	Level            string `json:"level" validate:"required,menteelevel"`
	DesiredSpecialty string `json:"desired_specialty" validate:"required,specialty"`
	Competencies     TagSet `json:"competencies" validate:"omitempty,competencies"`
	DesiredDomains   TagSet `json:"desired_domains" validate:"required,min=1,max=2,domains"`
}

func (nm *NewMentee) Validate(validate *validator.Validate) error {
	nm.FirstName = core.CleanString(nm.FirstName)
	nm.LastName = core.CleanString(nm.LastName)
	nm.Phone = core.CleanString(nm.Phone)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.Level = strings.ToUpper(core.CleanString(nm.Level))
	nm.DesiredSpecialty = strings.ToUpper(core.CleanString(nm.DesiredSpecialty))
	return validate.Struct(nm)
}

type MentorFilter struct {
	SessionID string `query:"-"`
	Specialty string `query:"specialty"`
	// Available keeps mentors with spare capacity.
	Available bool `query:"available"`
}

type MenteeFilter struct {
	SessionID string `query:"-"`
	Specialty string `query:"specialty"`
	Unmatched bool   `query:"unmatched"`
}

type MatchFilter struct {
	SessionID  string `query:"-"`
	MentorID   string `query:"mentor_id"`
	ActiveOnly bool   `query:"active"`
}
