package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// NullString wraps sql.NullString to provide proper JSON marshaling
type NullString struct {
	sql.NullString
}

// NewNullString returns a valid NullString for non-empty input and NULL otherwise
func NewNullString(s string) NullString {
	if s == "" {
		return NullString{}
	}
	return NullString{sql.NullString{String: s, Valid: true}}
}

// MarshalJSON implements json.Marshaler
func (ns NullString) MarshalJSON() ([]byte, error) {
	if ns.Valid {
		return json.Marshal(ns.String)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (ns *NullString) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != nil {
		ns.Valid = true
		ns.String = *s
	} else {
		ns.Valid = false
	}
	return nil
}

// User represents an admin account of the attendance dashboard
type User struct {
	ID                 int64          `db:"id" json:"id"`
	Username           string         `db:"username" json:"username"`
	Email              NullString     `db:"email" json:"email"`
	Role               string         `db:"role" json:"role"`
	MustChangePassword bool           `db:"must_change_password" json:"must_change_password"`
	PasswordHash       string         `db:"password_hash" json:"-"`
	PasswordSalt       sql.NullString `db:"password_salt" json:"-"` // set only on accounts hashed before bcrypt
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// HasLegacyPassword reports whether the stored hash is the salted SHA-256 format
func (u *User) HasLegacyPassword() bool {
	return u.PasswordSalt.Valid && u.PasswordSalt.String != ""
}

// ClientUser is the user shape returned to the dashboard
type ClientUser struct {
	ID                 int64   `json:"id"`
	Username           string  `json:"username"`
	Email              *string `json:"email"`
	Role               string  `json:"role"`
	MustChangePassword bool    `json:"mustChangePassword"`
}

// ToClient converts a user to its dashboard representation
func (u *User) ToClient() ClientUser {
	var email *string
	if u.Email.Valid {
		e := u.Email.String
		email = &e
	}
	return ClientUser{
		ID:                 u.ID,
		Username:           u.Username,
		Email:              email,
		Role:               u.Role,
		MustChangePassword: u.MustChangePassword,
	}
}

// LoginRequest represents the login payload; username is accepted as an alias of identifier
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// ChangePasswordRequest represents the password change payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
