package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campusdesk/portal/core"
)

// User is a student account. There is no password: every sign-in proves ownership of Email
// with a one-time code mailed to it, and the account is created by the first one.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
	LastLogin time.Time `json:"last_login"` // UTC
}

// Challenge is a pending sign-in for Email. Only the bcrypt hash of the mailed code is kept.
type Challenge struct {
	Email     string
	CodeHash  []byte
	IssuedAt  time.Time // UTC
	ExpiresAt time.Time // UTC
	Attempts  int       // wrong codes tried so far
}

func (ch Challenge) Expired(now time.Time) bool {
	return !now.Before(ch.ExpiresAt)
}

// CodeRequest asks for a sign-in code to be mailed.
type CodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (cr *CodeRequest) Validate(validate *validator.Validate) error {
	cr.Email = core.CleanString(cr.Email, true /* lower */)
	return validate.Struct(cr)
}

// CodeLogin exchanges a mailed code for a session. Name is only used when the account is created.
type CodeLogin struct {
	Email string `json:"email,omitempty" validate:"required,email"`
	Code  string `json:"code,omitempty" validate:"required,otpcode"`
	Name  string `json:"name,omitempty" validate:"omitempty,max=100"`
}

func (cl *CodeLogin) Validate(validate *validator.Validate) error {
	cl.Email = core.CleanString(cl.Email, true /* lower */)
	cl.Code = strings.Join(strings.Fields(cl.Code), "") // "123 456" as printed in the mail
	cl.Name = core.CleanString(cl.Name)
	return validate.Struct(cl)
}

// nameFromEmail is the display name given to accounts created without one.
func nameFromEmail(email string) string {
	if i := strings.LastIndex(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
