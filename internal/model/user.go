package model

import (
	"github.com/google/uuid"
)

type User struct {
	Base
	Email        string `db:"email" json:"email"`
	Name         string `db:"name" json:"name"`
	PasswordHash string `db:"password_hash" json:"-"`
	Role         Role   `db:"role" json:"role"`
	Gender       string `db:"gender" json:"gender,omitempty"`
}

type Patient struct {
	Base
	UserID uuid.UUID `db:"user_id" json:"user_id"`
	Name   string    `db:"name" json:"name"`
}

// RoleGenderCount is one row of the user population aggregate.
type RoleGenderCount struct {
	Role   Role   `db:"role" json:"role"`
	Gender string `db:"gender" json:"gender"`
	Count  int    `db:"count" json:"count"`
}
