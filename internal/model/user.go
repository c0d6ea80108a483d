package model

import (
	"strings"
	"time"
)

// User is the profile document stored next to an identity account.
type User struct {
	ID        string    `json:"id"`
	IDNumber  string    `json:"idNumber"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

// FullName joins first and last name, skipping empty parts.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
