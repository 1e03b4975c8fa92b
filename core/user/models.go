package user

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maharatedu/platform/core"
)

// Roles
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

func (u User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u User) IsStudent() bool { return u.Role == RoleStudent }

// Registration contains information needed to create a new account.
type Registration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=teacher student"`
}

func (r *Registration) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

// UpdateStudent defines what information the teacher may modify on a student.
type UpdateStudent struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (u *UpdateStudent) Validate(validate *validator.Validate) error {
	u.Name = core.CleanString(u.Name)
	u.Email = core.CleanString(u.Email, true /* lower */)
	return validate.Struct(u)
}
