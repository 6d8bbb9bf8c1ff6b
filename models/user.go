package models

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type User struct {
	ID           string    `json:"id"`
	LoginName    string    `json:"login_name"`
	UserName     string    `json:"user_name"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email"`
	Valid        bool      `json:"valid"`
	Enabled      bool      `json:"enabled"`
	Roles        []Role    `json:"roles"`
	Groups       []Group   `json:"groups"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) AddRole(role Role) {
	for _, r := range u.Roles {
		if r.ID == role.ID {
			return
		}
	}
	u.Roles = append(u.Roles, role)
}

func (u *User) AddGroup(group Group) {
	for _, g := range u.Groups {
		if g.ID == group.ID {
			return
		}
	}
	u.Groups = append(u.Groups, group)
}

type Role struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Valid     bool      `json:"valid"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Valid     bool      `json:"valid"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
