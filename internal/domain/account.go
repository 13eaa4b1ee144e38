// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxDisplayNameLen = 36

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrUnknownRole        = errors.New("unknown role")
)

type AccountID string

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleTeacher:
		return RoleTeacher, nil
	}
	return "", ErrUnknownRole
}

type Account struct {
	ID          AccountID `json:"id"`
	Role        Role      `json:"role"`
	DisplayName string    `json:"display_name"`
}

// NewAccount is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewAccount(id AccountID, role Role, displayName string) (*Account, error) {
	if len(displayName) == 0 {
		return nil, ErrDisplayNameEmpty
	}
	if len(displayName) > MaxDisplayNameLen {
		return nil, ErrDisplayNameTooLong
	}
	if role != RoleStudent && role != RoleTeacher {
		return nil, ErrUnknownRole
	}
	return &Account{ID: id, Role: role, DisplayName: displayName}, nil
}
