package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleHostAdmin      Role = "HOST_ADMIN"
	RoleHostTeamMember Role = "HOST_TEAM_MEMBER"
	RoleAttendee       Role = "ATTENDEE"
	RoleAttendeeAdmin  Role = "ATTENDEE_ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHostAdmin, RoleHostTeamMember, RoleAttendee, RoleAttendeeAdmin:
		return true
	}
	return false
}

// IsHost reports whether the role is scoped to a host tenant.
func (r Role) IsHost() bool {
	return r == RoleHostAdmin || r == RoleHostTeamMember
}

// IsAttendee reports whether the role is scoped to an attendee company.
func (r Role) IsAttendee() bool {
	return r == RoleAttendee || r == RoleAttendeeAdmin
}

// Account is the system-of-record identity. PasswordHash is nil whenever
// PasswordSet is false, and ResetToken/ResetTokenExpiry are set or cleared
// together.
type Account struct {
	ID                string
	Email             string
	FirstName         string
	LastName          string
	Role              Role
	PasswordHash      *string
	PasswordSet       bool
	ResetToken        *string
	ResetTokenExpiry  *time.Time
	HostID            *string
	AttendeeCompanyID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (a Account) HasPassword() bool {
	return a.PasswordSet && a.PasswordHash != nil && *a.PasswordHash != ""
}

func (a Account) DisplayName() string {
	return strings.TrimSpace(a.FirstName)
}

func (a Account) HostIDOrEmpty() string {
	if a.HostID == nil {
		return ""
	}
	return *a.HostID
}

func (a Account) AttendeeIDOrEmpty() string {
	if a.AttendeeCompanyID == nil {
		return ""
	}
	return *a.AttendeeCompanyID
}

// NormalizeEmail is applied before every account lookup or write.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
