package event

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/neussi/comsas-uy1.com/core"
)

type Event struct {
	ID                   string    `json:"id" db:"id"`
	Title                string    `json:"title" db:"title"`
	Description          string    `json:"description" db:"description"`
	Date                 time.Time `json:"date" db:"event_date"`
	Location             string    `json:"location" db:"location"`
	MaxParticipants      *int      `json:"max_participants" db:"max_participants"` // nil: unlimited
	RegistrationDeadline time.Time `json:"registration_deadline" db:"registration_deadline"`
	IsFeatured           bool      `json:"is_featured" db:"is_featured"`
	IsActive             bool      `json:"is_active" db:"is_active"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// IsRegistrationOpen reports whether registrations are accepted at now: active and before the deadline.
func (e Event) IsRegistrationOpen(now time.Time) bool {
	return e.IsActive && now.Before(e.RegistrationDeadline)
}

// Registration is a participant's sign-up. Ticket identifies it at the entrance.
type Registration struct {
	ID          string    `json:"id" db:"id"`
	EventID     string    `json:"event_id" db:"event_id"`
	FullName    string    `json:"full_name" db:"full_name"`
	Email       string    `json:"email" db:"email"`
	Phone       string    `json:"phone" db:"phone"`
	Promotion   string    `json:"promotion" db:"promotion"`
	Message     string    `json:"message" db:"message"`
	IsConfirmed bool      `json:"is_confirmed" db:"is_confirmed"`
	Ticket      string    `json:"ticket" db:"ticket"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Detail is an event as shown to visitors.
type Detail struct {
	Event
	IsRegistrationOpen bool `json:"is_registration_open"`
	Registered         int  `json:"registered"`
	PlacesLeft         *int `json:"places_left"` // nil: unlimited
}

// Registrations lists an event's registrations with their counts.
type Registrations struct {
	Event         Event          `json:"event"`
	Confirmed     int            `json:"confirmed"`
	Pending       int            `json:"pending"`
	Registrations []Registration `json:"registrations"`
}

// NewEvent contains information needed to create or update an event.
type NewEvent struct {
	Title                string    `json:"title" validate:"required,notblank,max=200"`
	Description          string    `json:"description"`
	Date                 time.Time `json:"date" validate:"required"`
	Location             string    `json:"location" validate:"required,notblank,max=200"`
	MaxParticipants      *int      `json:"max_participants" validate:"omitempty,min=1"`
	RegistrationDeadline time.Time `json:"registration_deadline" validate:"required,ltefield=Date"`
	IsFeatured           bool      `json:"is_featured"`
	IsActive             *bool     `json:"is_active"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = strings.TrimSpace(ne.Description)
	ne.Location = core.CleanString(ne.Location)
	return validate.Struct(ne)
}

// NewRegistration contains what a participant submits.
type NewRegistration struct {
	FullName  string `json:"full_name" validate:"required,notblank,max=200"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,max=20"`
	Promotion string `json:"promotion" validate:"required,max=20"`
	Message   string `json:"message"`
}

func (nr *NewRegistration) Validate(validate *validator.Validate) error {
	nr.FullName = core.CleanString(nr.FullName)
	nr.Email = core.CleanString(nr.Email, true /* lower */)
	nr.Phone = core.CleanString(nr.Phone)
	nr.Promotion = core.CleanString(nr.Promotion)
	nr.Message = strings.TrimSpace(nr.Message)
	return validate.Struct(nr)
}
