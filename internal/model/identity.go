package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of privilege levels. Raw role strings are parsed
// exactly once at the system boundary; internal code only ever sees a Role.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleManager      Role = "MANAGER"
	RoleWorker       Role = "WORKER"
	RoleCollaborator Role = "COLLABORATOR"
)

// ParseRole normalizes a raw role string into a Role. Legacy values carry a
// "ROLE_" prefix; it is stripped here and nowhere else.
func ParseRole(raw string) (Role, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "ROLE_")
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleWorker, RoleCollaborator:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// Identity is one user record: credentials, role and the pending
// role-change request state. PendingToken and PendingRole are paired:
// both set or both empty.
type Identity struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Enabled      bool       `json:"enabled"`
	PendingToken string     `json:"-"`
	PendingRole  Role       `json:"-"`
	VerifyCode   string     `json:"-"`
	ResetToken   string     `json:"-"`
	Mobile       string     `json:"mobile,omitempty"`
	AvatarURL    string     `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// HasPendingRequest reports whether a role-change request is awaiting an
// administrative decision.
func (u *Identity) HasPendingRequest() bool {
	return u.PendingToken != "" && u.PendingRole != ""
}
