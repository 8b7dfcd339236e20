package contact

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/neussi/comsas-uy1.com/core"
)

// Message is a note left through the contact form. It is marked read when a staff member
// opens it, and replied once someone answered it.
type Message struct {
	ID        string    `json:"id" db:"id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	Subject   string    `json:"subject" db:"subject"`
	Body      string    `json:"message" db:"body"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	IsReplied bool      `json:"is_replied" db:"is_replied"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type NewMessage struct {
	FullName string `json:"full_name" validate:"required,notblank,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"max=20"`
	Subject  string `json:"subject" validate:"required,notblank,max=200"`
	Body     string `json:"message" validate:"required,notblank,max=5000"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.FullName = core.CleanString(nm.FullName)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.Phone = core.CleanString(nm.Phone)
	nm.Subject = core.CleanString(nm.Subject)
	nm.Body = strings.TrimSpace(nm.Body)
	return validate.Struct(nm)
}

// Statuses of QueryFilter
const (
	StatusRead   = "read"
	StatusUnread = "unread"
)

type QueryFilter struct {
	Status string // "", read or unread
}
