package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleTeam  Role = "team"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTeam
}

type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	TeamID       *int64    `db:"team_id" json:"team_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Claims defines the structure of the JWT claims.
type Claims struct {
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	TeamID *int64 `json:"team_id,omitempty"`
	jwt.RegisteredClaims
}

// Session is the authenticated caller, derived from a verified token.
// It lives for one request and is passed explicitly to services.
type Session struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	TeamID    *int64    `json:"team_id,omitempty"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// InTeam reports whether the session belongs to the given team.
func (s *Session) InTeam(teamID *int64) bool {
	if s == nil || s.TeamID == nil || teamID == nil {
		return false
	}
	return *s.TeamID == *teamID
}
