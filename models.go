package identity

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserGender is an optional profile attribute
type UserGender = string

const (
	GenderFemale UserGender = "F"
	GenderMale   UserGender = "M"
)

// User is the user model. Soft deletion is the single nullable DeletedAt
// column; the deleted flag is derived so the two can never disagree.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"password_hash,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Gender        UserGender `bun:"gender" json:"gender,omitempty"`
	Company       string     `bun:"company" json:"company,omitempty"`
	JobTitle      string     `bun:"job_title" json:"job_title,omitempty"`
	JoinDate      *time.Time `bun:"join_date,nullzero" json:"join_date,omitempty"`
	DateOfBirth   *time.Time `bun:"date_of_birth,nullzero" json:"date_of_birth,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Deleted reports whether the user has been soft deleted.
func (u *User) Deleted() bool {
	return u != nil && u.DeletedAt != nil
}

// UserCreateData carries the attributes accepted at registration time.
type UserCreateData struct {
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Gender      UserGender `json:"gender"`
	Company     string     `json:"company"`
	JobTitle    string     `json:"job_title"`
	JoinDate    *time.Time `json:"join_date"`
	DateOfBirth *time.Time `json:"date_of_birth"`
}

func (d UserCreateData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Username, validation.Required, validation.Length(3, 100)),
		validation.Field(&d.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&d.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&d.Gender, validation.In(GenderFemale, GenderMale)),
	)
}

// UserPatchData is an explicit patch structure: one optional field per
// mutable attribute, nil meaning "leave unchanged".
type UserPatchData struct {
	Username    *string     `json:"username"`
	Email       *string     `json:"email"`
	Password    *string     `json:"password"`
	FirstName   *string     `json:"first_name"`
	LastName    *string     `json:"last_name"`
	Gender      *UserGender `json:"gender"`
	Company     *string     `json:"company"`
	JobTitle    *string     `json:"job_title"`
	JoinDate    *time.Time  `json:"join_date"`
	DateOfBirth *time.Time  `json:"date_of_birth"`
}

func (d UserPatchData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Username, validation.Length(3, 100)),
		validation.Field(&d.Email, validation.Length(6, 100), is.Email),
		validation.Field(&d.Password, validation.Length(8, 100)),
	)
}
