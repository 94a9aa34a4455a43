package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/ies/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

var (
	AllRoles = []string{RoleStudent, RoleFaculty, RoleAdmin}

	rolePriorities = map[string]int{
		RoleAdmin:   21,
		RoleFaculty: 11,
		RoleStudent: 1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Faculty", Value: RoleFaculty},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	GoogleID     string    `json:"googleId,omitempty"`
	Picture      string    `json:"picture,omitempty"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`           // UTC
	UpdatedAt    time.Time `json:"updatedAt"`           // UTC
	LastLogin    time.Time `json:"lastLogin,omitempty"` // UTC
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

func (u *User) HasPassword() bool { return len(u.PasswordHash) > 0 }

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsFaculty() bool { return u.Role == RoleFaculty }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// Ref returns the public identity of the User, as embedded in other resources.
func (u *User) Ref() *Ref {
	return &Ref{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Ref is a resolved reference to a User.
type Ref struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"-"`
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required,notblank"`
	Email           string `json:"email" validate:"required,email,institutional_email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"omitempty,user_role"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email)
}

// NewGoogleUser holds the verified Google identity of a User signing in with Google.
type NewGoogleUser struct {
	GoogleID string `json:"googleId" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email,institutional_email"`
	Picture  string `json:"picture"`
	Role     string `json:"role" validate:"omitempty,oneof=student faculty"`
}

func (gu *NewGoogleUser) Validate(validate *validator.Validate) error {
	gu.Name = core.CleanString(gu.Name)
	gu.Email = core.CleanString(gu.Email, true /* lower */)
	gu.Role = core.CleanString(gu.Role, true /* lower */)
	return validate.Struct(gu)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"omitempty,email,institutional_email"`
	IsActive        *bool  `json:"isActive"`
	Role            string `json:"role" validate:"omitempty,user_role"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc *Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	uu.Role = core.CleanString(uu.Role, true /* lower */)

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	IsActive *bool    `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single User. The first non-empty field is used.
type GetFilter struct {
	ID       string
	Email    string
	GoogleID string
}
